package storefront

import "strings"

// Access is the guard applied to a page.
type Access int

const (
	Public Access = iota
	Protected
	AdminOnly
)

// Route is one client page. Segments starting with ":" match any value.
type Route struct {
	Pattern string
	Access  Access
}

// Routes lists the storefront pages in match order.
var Routes = []Route{
	{Pattern: "/", Access: Public},
	{Pattern: "/products", Access: Public},
	{Pattern: "/products/:category", Access: Public},
	{Pattern: "/product/:id", Access: Public},
	{Pattern: "/cart", Access: Public},
	{Pattern: "/login", Access: Public},
	{Pattern: "/register", Access: Public},

	{Pattern: "/checkout", Access: Protected},
	{Pattern: "/profile", Access: Protected},
	{Pattern: "/saved-items", Access: Protected},

	{Pattern: "/admin", Access: AdminOnly},
	{Pattern: "/admin/products", Access: AdminOnly},
	{Pattern: "/admin/orders", Access: AdminOnly},
}

const (
	LoginPath = "/login"
	HomePath  = "/"
)

// Match returns the route for path. Unknown paths are public (the not
// found page).
func Match(path string) (Route, bool) {
	segs := split(path)
	for _, r := range Routes {
		if matches(split(r.Pattern), segs) {
			return r, true
		}
	}
	return Route{Pattern: "*", Access: Public}, false
}

// Resolve decides what a visitor to path sees. While the session is still
// loading ready is false and no page may be shown, since neither the
// identity nor the admin flag is known yet. Once ready, redirect is where
// the visitor should be sent instead, or "" when the page may be shown:
// signed-out visitors of protected pages go to the login page, non-admins
// of admin pages go home.
func Resolve(path string, state SessionState) (redirect string, ready bool) {
	if state.Loading {
		return "", false
	}

	route, _ := Match(path)
	switch route.Access {
	case Protected:
		if !state.SignedIn() {
			return LoginPath, true
		}
	case AdminOnly:
		if !state.SignedIn() {
			return LoginPath, true
		}
		if !state.IsAdmin() {
			return HomePath, true
		}
	}
	return "", true
}

func split(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func matches(pattern, segs []string) bool {
	if len(pattern) != len(segs) {
		return false
	}
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			if segs[i] == "" {
				return false
			}
			continue
		}
		if p != segs[i] {
			return false
		}
	}
	return true
}
