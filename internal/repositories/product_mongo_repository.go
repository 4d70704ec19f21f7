package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/marketplace/backend/internal/apperrors"
	"github.com/marketplace/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ProductsCollection is the Mongo collection holding products
const ProductsCollection = "products"

// productMongoRepository implements the product store on MongoDB
type productMongoRepository struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// NewProductMongoRepository creates a new MongoDB product repository
func NewProductMongoRepository(coll *mongo.Collection, logger *zap.Logger) *productMongoRepository {
	return &productMongoRepository{
		coll:   coll,
		logger: logger,
	}
}

// Create inserts a new product document
func (r *productMongoRepository) Create(ctx context.Context, product *models.Product) error {
	if _, err := r.coll.InsertOne(ctx, product); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("product already exists: %w", apperrors.ErrConflict)
		}
		r.logger.Error("failed to create product", zap.Error(err), zap.String("productId", product.ID))
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetByID retrieves a product document by ID
func (r *productMongoRepository) GetByID(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	err := r.coll.FindOne(ctx, bson.M{"_id": productID}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("product not found: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get product by id", zap.Error(err), zap.String("productId", productID))
		return nil, fmt.Errorf("failed to get product by id: %w", err)
	}
	return &product, nil
}

// ListActive retrieves all active products, newest first
func (r *productMongoRepository) ListActive(ctx context.Context) ([]models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		r.logger.Error("failed to list products", zap.Error(err))
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		r.logger.Error("failed to decode products", zap.Error(err))
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

// Update overwrites the mutable fields of a product document
func (r *productMongoRepository) Update(ctx context.Context, product *models.Product) error {
	update := bson.M{"$set": bson.M{
		"title":       product.Title,
		"slug":        product.Slug,
		"price":       product.Price,
		"stock":       product.Stock,
		"description": product.Description,
		"category":    product.Category,
		"updated_at":  product.UpdatedAt,
	}}

	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": product.ID}, update)
	if err != nil {
		r.logger.Error("failed to update product", zap.Error(err), zap.String("productId", product.ID))
		return fmt.Errorf("failed to update product: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("product not found: %w", apperrors.ErrNotFound)
	}
	return nil
}

// Delete removes a product document by ID
func (r *productMongoRepository) Delete(ctx context.Context, productID string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": productID})
	if err != nil {
		r.logger.Error("failed to delete product", zap.Error(err), zap.String("productId", productID))
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("product not found: %w", apperrors.ErrNotFound)
	}
	return nil
}
