package pricing

import (
	"strconv"
	"strings"
)

// ParseQuantity reads a quantity typed by a user. Leading digits are used
// and anything unparsable or below one becomes one.
func ParseQuantity(text string) int {
	text = strings.TrimSpace(text)

	end := 0
	if end < len(text) && (text[0] == '-' || text[0] == '+') {
		end++
	}
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}

	n, err := strconv.Atoi(text[:end])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
