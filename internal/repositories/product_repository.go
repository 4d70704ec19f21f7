package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/marketplace/backend/internal/apperrors"
	"github.com/marketplace/backend/internal/models"
	"go.uber.org/zap"
)

const productColumns = `id, title, slug, price, stock, description, category, seller_id, active, created_at, updated_at`

// productRepository implements the product store on MySQL
type productRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProductRepository creates a new MySQL product repository
func NewProductRepository(db *sql.DB, logger *zap.Logger) *productRepository {
	return &productRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new product. ID and timestamps are assigned by the caller.
func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.Title,
		product.Slug,
		product.Price,
		product.Stock,
		product.Description,
		product.Category,
		product.SellerID,
		product.Active,
		product.CreatedAt,
		product.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("product already exists: %w", apperrors.ErrConflict)
		}
		r.logger.Error("failed to create product", zap.Error(err), zap.String("productId", product.ID))
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by ID
func (r *productRepository) GetByID(ctx context.Context, productID string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ? LIMIT 1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, productID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product not found: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get product by id", zap.Error(err), zap.String("productId", productID))
		return nil, fmt.Errorf("failed to get product by id: %w", err)
	}

	return product, nil
}

// ListActive retrieves all active products, newest first
func (r *productRepository) ListActive(ctx context.Context) ([]models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE active = TRUE ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to list products", zap.Error(err))
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			r.logger.Error("failed to scan product", zap.Error(err))
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *product)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating product rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}

	return products, nil
}

// Update overwrites the mutable fields of a product
func (r *productRepository) Update(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET title = ?, slug = ?, price = ?, stock = ?, description = ?, category = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		product.Title,
		product.Slug,
		product.Price,
		product.Stock,
		product.Description,
		product.Category,
		product.UpdatedAt,
		product.ID,
	)
	if err != nil {
		r.logger.Error("failed to update product", zap.Error(err), zap.String("productId", product.ID))
		return fmt.Errorf("failed to update product: %w", err)
	}

	return r.requireAffected(result)
}

// Delete removes a product by ID
func (r *productRepository) Delete(ctx context.Context, productID string) error {
	query := `DELETE FROM products WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, productID)
	if err != nil {
		r.logger.Error("failed to delete product", zap.Error(err), zap.String("productId", productID))
		return fmt.Errorf("failed to delete product: %w", err)
	}

	return r.requireAffected(result)
}

func (r *productRepository) requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.logger.Error("failed to get rows affected", zap.Error(err))
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("product not found: %w", apperrors.ErrNotFound)
	}
	return nil
}

func scanProduct(row rowScanner) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID,
		&product.Title,
		&product.Slug,
		&product.Price,
		&product.Stock,
		&product.Description,
		&product.Category,
		&product.SellerID,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}
