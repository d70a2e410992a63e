package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clovershop/backoffice/internal/common"
)

// Handler exposes the product catalog endpoints.
type Handler struct {
	Svc            *Service
	Validate       *validator.Validate
	DefaultPerPage int
}

type productPayload struct {
	Name        string   `json:"name" validate:"required,min=1,max=200"`
	Slug        string   `json:"slug" validate:"required,min=1,max=200"`
	SKU         string   `json:"sku" validate:"required,min=1,max=64"`
	Barcode     string   `json:"barcode" validate:"max=64"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageUrl" validate:"omitempty,url"`
	Price       string   `json:"price" validate:"required"`
	TaxRate     *string  `json:"taxRate"`
	Inventory   int32    `json:"inventory" validate:"gte=0"`
	CategoryIDs []string `json:"categoryIds" validate:"dive,uuid"`
}

// List handles GET /products.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	perPage := h.DefaultPerPage
	if perPage <= 0 {
		perPage = 20
	}
	page, perPage := common.ParsePagination(r, perPage)
	products, total, err := h.Svc.List(r.Context(), page, perPage)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": products,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: total,
		},
	})
}

// Get handles GET /products/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	product, err := h.Svc.Product(r.Context(), id)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}

// Create handles POST /admin/products.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	product, ok := h.productFromPayload(w, payload, uuid.Nil)
	if !ok {
		return
	}
	created, err := h.Svc.Create(r.Context(), product)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// Update handles PATCH /admin/products/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	product, ok := h.productFromPayload(w, payload, id)
	if !ok {
		return
	}
	updated, err := h.Svc.Update(r.Context(), product)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": updated})
}

// Delete handles DELETE /admin/products/{id} as a soft delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	if err := h.Svc.Archive(r.Context(), id); err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request) (productPayload, bool) {
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return productPayload{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", err.Error())
			return productPayload{}, false
		}
	}
	return payload, true
}

func (h *Handler) productFromPayload(w http.ResponseWriter, payload productPayload, id uuid.UUID) (Product, bool) {
	price, err := decimal.NewFromString(payload.Price)
	if err != nil || price.IsNegative() {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid price", nil)
		return Product{}, false
	}
	product := Product{
		ID:          id,
		Name:        payload.Name,
		Slug:        payload.Slug,
		SKU:         payload.SKU,
		Barcode:     payload.Barcode,
		Description: payload.Description,
		ImageURL:    payload.ImageURL,
		Price:       price,
		Inventory:   payload.Inventory,
	}
	if payload.TaxRate != nil {
		rate, err := decimal.NewFromString(*payload.TaxRate)
		if err != nil || rate.IsNegative() {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid tax rate", nil)
			return Product{}, false
		}
		product.TaxRate = &rate
	}
	for _, raw := range payload.CategoryIDs {
		cid, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
			return Product{}, false
		}
		product.CategoryIDs = append(product.CategoryIDs, cid)
	}
	return product, true
}

type categoryPayload struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
	Slug string `json:"slug" validate:"required,min=1,max=120"`
}

// ListCategories handles GET /categories.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Svc.Categories(r.Context())
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": categories})
}

// CreateCategory handles POST /admin/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", err.Error())
			return
		}
	}
	created, err := h.Svc.CreateCategory(r.Context(), Category{Name: payload.Name, Slug: payload.Slug})
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// DeleteCategory handles DELETE /admin/categories/{id}.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid category id", nil)
		return
	}
	if err := h.Svc.DeleteCategory(r.Context(), id); err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type variantPayload struct {
	Name      string            `json:"name" validate:"required,min=1,max=200"`
	SKU       string            `json:"sku" validate:"required,min=1,max=64"`
	Barcode   string            `json:"barcode" validate:"max=64"`
	Price     *string           `json:"price"`
	Inventory int32             `json:"inventory" validate:"gte=0"`
	Options   map[string]string `json:"options"`
}

// ListVariants handles GET /products/{id}/variants.
func (h *Handler) ListVariants(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	variants, err := h.Svc.Variants(r.Context(), productID)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": variants})
}

// CreateVariant handles POST /admin/products/{id}/variants.
func (h *Handler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	var payload variantPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", err.Error())
			return
		}
	}
	variant := Variant{
		ProductID: productID,
		Name:      payload.Name,
		SKU:       payload.SKU,
		Barcode:   payload.Barcode,
		Inventory: payload.Inventory,
		Options:   payload.Options,
	}
	if payload.Price != nil {
		price, err := decimal.NewFromString(*payload.Price)
		if err != nil || price.IsNegative() {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid price", nil)
			return
		}
		variant.Price = &price
	}
	created, err := h.Svc.CreateVariant(r.Context(), variant)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// DeleteVariant handles DELETE /admin/products/{id}/variants/{variantId}.
func (h *Handler) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	variantID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "variantId")))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid variant id", nil)
		return
	}
	if err := h.Svc.DeleteVariant(r.Context(), productID, variantID); err != nil {
		writeCatalogError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrVariantNotFound), errors.Is(err, ErrCategoryNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog error", nil)
	}
}
