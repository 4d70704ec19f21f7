package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/marketplace/backend/internal/apperrors"
	"github.com/marketplace/backend/internal/models"
	"go.uber.org/zap"
)

// ProductRepository is the interface that wraps methods for product storage.
// It is implemented by both the MySQL and the MongoDB product stores.
type ProductRepository interface {
	// Method Create stores a new product. ID and timestamps are already set.
	Create(ctx context.Context, product *models.Product) error
	// Method GetByID retrieves a product by its ID.
	//
	// If product with such ID does not exist, an error wrapping apperrors.ErrNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, productID string) (*models.Product, error)
	// Method ListActive retrieves all active products.
	ListActive(ctx context.Context) ([]models.Product, error)
	// Method Update overwrites title, slug, price, stock, description, category and updated_at.
	//
	// If product with such ID does not exist, an error wrapping apperrors.ErrNotFound will be returned.
	Update(ctx context.Context, product *models.Product) error
	// Method Delete removes a product by its ID.
	//
	// If product with such ID does not exist, an error wrapping apperrors.ErrNotFound will be returned.
	Delete(ctx context.Context, productID string) error
}

// SellerRepository is the interface that wraps the user lookups needed to attach sellers to products
type SellerRepository interface {
	// Method GetByID retrieves a user by ID.
	GetByID(ctx context.Context, userID int) (*models.User, error)
	// Method GetInfoByIDs retrieves public info of several users keyed by ID. Unknown IDs are absent from the result.
	GetInfoByIDs(ctx context.Context, userIDs []int) (map[int]models.UserInfo, error)
}

type productService struct {
	repo    ProductRepository
	sellers SellerRepository
	logger  *zap.Logger
	now     func() time.Time
}

// NewProductService creates a new product service
func NewProductService(repo ProductRepository, sellers SellerRepository, logger *zap.Logger) *productService {
	return &productService{
		repo:    repo,
		sellers: sellers,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Create stores a new product owned by sellerID
func (s *productService) Create(ctx context.Context, sellerID int, req *models.ProductRequest) (*models.ProductWithSeller, error) {
	if err := validateProductRequest(req); err != nil {
		return nil, err
	}

	seller, err := s.sellers.GetByID(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seller: %w", err)
	}
	if !seller.Active {
		return nil, fmt.Errorf("seller is inactive: %w", apperrors.ErrNotFound)
	}

	now := s.now()
	product := &models.Product{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Slug:        slug.Make(req.Title),
		Price:       req.Price,
		Stock:       req.Stock,
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		SellerID:    seller.ID,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("product created", zap.String("productId", product.ID), zap.Int("sellerId", seller.ID))
	info := seller.Info()
	info.Role = ""
	return &models.ProductWithSeller{Product: *product, Seller: &info}, nil
}

// GetByID retrieves a product with its seller
func (s *productService) GetByID(ctx context.Context, productID string) (*models.ProductWithSeller, error) {
	if err := validateProductID(productID); err != nil {
		return nil, err
	}

	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	products, err := s.withSellers(ctx, []models.Product{*product})
	if err != nil {
		return nil, err
	}
	return &products[0], nil
}

// List retrieves all active products with their sellers
func (s *productService) List(ctx context.Context) ([]models.ProductWithSeller, error) {
	products, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return s.withSellers(ctx, products)
}

// Update replaces the editable fields of a product
func (s *productService) Update(ctx context.Context, productID string, req *models.ProductRequest) (*models.ProductWithSeller, error) {
	if err := validateProductID(productID); err != nil {
		return nil, err
	}
	if err := validateProductRequest(req); err != nil {
		return nil, err
	}

	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	product.Title = strings.TrimSpace(req.Title)
	product.Slug = slug.Make(req.Title)
	product.Price = req.Price
	product.Stock = req.Stock
	product.Description = strings.TrimSpace(req.Description)
	product.Category = strings.TrimSpace(req.Category)
	product.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}

	products, err := s.withSellers(ctx, []models.Product{*product})
	if err != nil {
		return nil, err
	}
	return &products[0], nil
}

// Delete removes a product
func (s *productService) Delete(ctx context.Context, productID string) error {
	if err := validateProductID(productID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.String("productId", productID))
	return nil
}

// withSellers attaches public seller info. Products whose seller no longer exists keep a nil seller.
func (s *productService) withSellers(ctx context.Context, products []models.Product) ([]models.ProductWithSeller, error) {
	result := make([]models.ProductWithSeller, 0, len(products))
	if len(products) == 0 {
		return result, nil
	}

	seen := make(map[int]struct{}, len(products))
	sellerIDs := make([]int, 0, len(products))
	for _, p := range products {
		if _, ok := seen[p.SellerID]; !ok {
			seen[p.SellerID] = struct{}{}
			sellerIDs = append(sellerIDs, p.SellerID)
		}
	}

	sellers, err := s.sellers.GetInfoByIDs(ctx, sellerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get sellers: %w", err)
	}

	for _, p := range products {
		item := models.ProductWithSeller{Product: p}
		if seller, ok := sellers[p.SellerID]; ok {
			item.Seller = &seller
		}
		result = append(result, item)
	}
	return result, nil
}

func validateProductID(productID string) error {
	if _, err := uuid.Parse(productID); err != nil {
		return apperrors.NewValidationError(map[string]string{"product_id": "Invalid product id"})
	}
	return nil
}

// maxPrice is the exclusive upper bound of a DECIMAL(10,2) price column
const maxPrice = 1e8

// hasCentPrecision reports whether price has at most two decimal places
func hasCentPrecision(price float64) bool {
	cents := price * 100
	return math.Abs(cents-math.Round(cents)) < 1e-3
}

func validateProductRequest(req *models.ProductRequest) error {
	fields := make(map[string]string)
	if strings.TrimSpace(req.Title) == "" {
		fields["title"] = "Title is required"
	}
	if strings.TrimSpace(req.Description) == "" {
		fields["description"] = "Description is required"
	}
	if strings.TrimSpace(req.Category) == "" {
		fields["category"] = "Category is required"
	}
	switch {
	case req.Price <= 0:
		fields["price"] = "Price must be greater than 0"
	case req.Price >= maxPrice:
		fields["price"] = "Price must be less than 100000000"
	case !hasCentPrecision(req.Price):
		fields["price"] = "Price must have at most two decimal places"
	}
	if req.Stock < 0 {
		fields["stock"] = "Stock cannot be negative"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError(fields)
	}
	return nil
}
