package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"essence-store/internal/model"
	"essence-store/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ProductHandler handles catalogue browsing requests.
type ProductHandler struct {
	service service.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// List handles GET /api/products requests.
//
// Query parameters: category, subcategory, featured, search, min_price,
// max_price and limit.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProductFilter(r.URL.Query())
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func parseProductFilter(q url.Values) (model.ProductFilter, error) {
	filter := model.ProductFilter{
		Category:    q.Get("category"),
		Subcategory: q.Get("subcategory"),
		Search:      q.Get("search"),
	}

	if v := q.Get("featured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			return filter, model.NewValidationError("invalid featured parameter")
		}
		filter.Featured = featured
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return filter, model.NewValidationError("invalid limit parameter")
		}
		filter.Limit = limit
	}

	for name, dst := range map[string]**decimal.Decimal{
		"min_price": &filter.MinPrice,
		"max_price": &filter.MaxPrice,
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return filter, model.NewValidationError("invalid " + name + " parameter")
		}
		*dst = &d
	}

	return filter, nil
}

// GetByID handles GET /api/products/{id} requests.
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	product, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	if product == nil {
		writeError(w, http.StatusNotFound, model.ErrCodeProductNotFound, "product not found", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// Categories handles GET /api/catalog/categories requests.
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(categories))
}

// Subcategories handles GET /api/catalog/subcategories?category= requests.
func (h *ProductHandler) Subcategories(w http.ResponseWriter, r *http.Request) {
	subcategories, err := h.service.Subcategories(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(subcategories))
}

// MaxPrice handles GET /api/catalog/max-price requests.
func (h *ProductHandler) MaxPrice(w http.ResponseWriter, r *http.Request) {
	highest, err := h.service.MaxPrice(r.Context())
	if err != nil {
		respondError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"max_price": highest})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
