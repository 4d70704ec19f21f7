package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/marketplace/backend/internal/apperrors"
	"github.com/marketplace/backend/internal/auth/middleware"
	"github.com/marketplace/backend/internal/models"
	"go.uber.org/zap"
)

// ProductService is the interface that wraps methods for product business logic.
type ProductService interface {
	// Method Create validates "req" and stores a new product owned by "sellerID".
	//
	// If the seller does not exist, an error wrapping apperrors.ErrNotFound is returned together with "nil" value.
	Create(ctx context.Context, sellerID int, req *models.ProductRequest) (*models.ProductWithSeller, error)
	// Method GetByID retrieves a product with its seller's public info.
	GetByID(ctx context.Context, productID string) (*models.ProductWithSeller, error)
	// Method List retrieves all active products with their sellers' public info.
	List(ctx context.Context) ([]models.ProductWithSeller, error)
	// Method Update validates "req" and replaces the editable fields of a product.
	Update(ctx context.Context, productID string, req *models.ProductRequest) (*models.ProductWithSeller, error)
	// Method Delete removes a product.
	Delete(ctx context.Context, productID string) error
}

// ProductHandler handles product HTTP requests
type ProductHandler struct {
	BaseHandler
	service   ProductService
	validator middleware.AccessTokenValidator
}

// NewProductHandler creates a new product handler
func NewProductHandler(svc ProductService, validator middleware.AccessTokenValidator, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		BaseHandler: BaseHandler{logger: logger},
		service:     svc,
		validator:   validator,
	}
}

// RegisterRoutes registers all product handler routes.
// Reads are open to users and admins, writes to admins only.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/request", h.Request)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoles(h.validator, models.RoleUser, models.RoleAdmin))
			r.Get("/", h.List)
			r.Get("/{product_id}", h.GetByID)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRoles(h.validator, models.RoleAdmin))
			r.Post("/", h.Create)
			r.Put("/{product_id}", h.Update)
			r.Delete("/{product_id}", h.Delete)
		})
	})
}

// Request handles GET /api/products/request
// @Summary Products router probe
// @Tags products
// @Produce json
// @Success 200 {object} Response
// @Router /api/products/request [get]
func (h *ProductHandler) Request(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, "Request OK!", nil)
}

// List handles GET /api/products
// @Summary List products
// @Description Returns all active products with their sellers
// @Tags products
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=map[string][]models.ProductWithSeller}
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Failure 500 {object} Response
// @Router /api/products [get]
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context())
	if err != nil {
		h.respondServiceError(w, err, "failed to list products", nil)
		return
	}

	h.respondJSON(w, http.StatusOK, "Products retrieved", map[string]any{"products": products})
}

// GetByID handles GET /api/products/{product_id}
// @Summary Get product by ID
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param product_id path string true "Product ID (UUID)"
// @Success 200 {object} Response{data=map[string]models.ProductWithSeller}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/products/{product_id} [get]
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetByID(r.Context(), chi.URLParam(r, "product_id"))
	if err != nil {
		h.respondServiceError(w, err, "failed to get product", errorMessages{
			apperrors.ErrNotFound: "Product not found",
		})
		return
	}

	h.respondJSON(w, http.StatusOK, "Product retrieved", map[string]any{"product": product})
}

// Create handles POST /api/products
// @Summary Create product
// @Description Creates a product owned by the authenticated admin
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ProductRequest true "Product"
// @Success 201 {object} Response{data=map[string]models.ProductWithSeller}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response "Seller not found"
// @Failure 500 {object} Response
// @Router /api/products [post]
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req models.ProductRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	product, err := h.service.Create(r.Context(), identity.UserID, &req)
	if err != nil {
		h.respondServiceError(w, err, "failed to create product", errorMessages{
			apperrors.ErrNotFound: "Seller not found",
		})
		return
	}

	h.respondJSON(w, http.StatusCreated, "Product created successfully", map[string]any{"product": product})
}

// Update handles PUT /api/products/{product_id}
// @Summary Update product
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param product_id path string true "Product ID (UUID)"
// @Param request body models.ProductRequest true "Product"
// @Success 200 {object} Response{data=map[string]models.ProductWithSeller}
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/products/{product_id} [put]
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.ProductRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	product, err := h.service.Update(r.Context(), chi.URLParam(r, "product_id"), &req)
	if err != nil {
		h.respondServiceError(w, err, "failed to update product", errorMessages{
			apperrors.ErrNotFound: "Product not found",
		})
		return
	}

	h.respondJSON(w, http.StatusOK, "Product updated successfully", map[string]any{"product": product})
}

// Delete handles DELETE /api/products/{product_id}
// @Summary Delete product
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param product_id path string true "Product ID (UUID)"
// @Success 200 {object} Response
// @Failure 400 {object} Response
// @Failure 401 {object} Response
// @Failure 403 {object} Response
// @Failure 404 {object} Response
// @Failure 500 {object} Response
// @Router /api/products/{product_id} [delete]
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "product_id")); err != nil {
		h.respondServiceError(w, err, "failed to delete product", errorMessages{
			apperrors.ErrNotFound: "Product not found",
		})
		return
	}

	h.respondJSON(w, http.StatusOK, "Product deleted successfully", nil)
}
