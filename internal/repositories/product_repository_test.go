package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/marketplace/backend/internal/apperrors"
	"github.com/marketplace/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var productRowColumns = []string{"id", "title", "slug", "price", "stock", "description", "category", "seller_id", "active", "created_at", "updated_at"}

// setupProductTestRepository creates a product repository with a mock database
func setupProductTestRepository(t *testing.T) (*productRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewProductRepository(db, zap.NewNop())

	return repo, mock, func() { db.Close() }
}

func testProduct(now time.Time) *models.Product {
	return &models.Product{
		ID:          "0b6c7f5e-3d4a-4a39-9a3e-2f1f0c7b9d11",
		Title:       "Green Tea",
		Slug:        "green-tea",
		Price:       4.5,
		Stock:       10,
		Description: "Loose leaf",
		Category:    "drinks",
		SellerID:    7,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestNewProductRepository(t *testing.T) {
	logger := zap.NewNop()
	db := &sql.DB{}

	repo := NewProductRepository(db, logger)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
	assert.Equal(t, logger, repo.logger)
}

func TestProductRepository_Create(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock, *models.Product)
		expectedError error
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock, p *models.Product) {
				mock.ExpectExec(`INSERT INTO products`).
					WithArgs(p.ID, p.Title, p.Slug, p.Price, p.Stock, p.Description, p.Category, p.SellerID, p.Active, p.CreatedAt, p.UpdatedAt).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock, p *models.Product) {
				mock.ExpectExec(`INSERT INTO products`).
					WillReturnError(errors.New("database error"))
			},
			expectedError: errors.New("failed to create product"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupProductTestRepository(t)
			defer cleanup()

			product := testProduct(now)
			tt.setupMock(mock, product)

			err := repo.Create(context.Background(), product)
			if tt.expectedError != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProductRepository_GetByID(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	id := "0b6c7f5e-3d4a-4a39-9a3e-2f1f0c7b9d11"

	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedError error
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(productRowColumns).
					AddRow(id, "Green Tea", "green-tea", 4.5, 10, "Loose leaf", "drinks", 7, true, now, now)
				mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \? LIMIT 1`).
					WithArgs(id).
					WillReturnRows(rows)
			},
		},
		{
			name: "not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \? LIMIT 1`).
					WithArgs(id).
					WillReturnError(sql.ErrNoRows)
			},
			expectedError: apperrors.ErrNotFound,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \? LIMIT 1`).
					WithArgs(id).
					WillReturnError(errors.New("database error"))
			},
			expectedError: errors.New("failed to get product by id"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupProductTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			product, err := repo.GetByID(context.Background(), id)
			switch {
			case tt.expectedError == nil:
				require.NoError(t, err)
				assert.Equal(t, testProduct(now), product)
			case errors.Is(tt.expectedError, apperrors.ErrNotFound):
				assert.Nil(t, product)
				assert.ErrorIs(t, err, apperrors.ErrNotFound)
			default:
				assert.Nil(t, product)
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError.Error())
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProductRepository_ListActive(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		repo, mock, cleanup := setupProductTestRepository(t)
		defer cleanup()

		rows := sqlmock.NewRows(productRowColumns).
			AddRow("a", "Tea", "tea", 4.5, 10, "d", "drinks", 7, true, now, now).
			AddRow("b", "Cup", "cup", 9.0, 0, "d", "kitchen", 8, true, now, now)
		mock.ExpectQuery(`SELECT .+ FROM products WHERE active = TRUE`).
			WillReturnRows(rows)

		products, err := repo.ListActive(context.Background())
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, "cup", products[1].Slug)
		assert.Equal(t, 8, products[1].SellerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty", func(t *testing.T) {
		repo, mock, cleanup := setupProductTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT .+ FROM products WHERE active = TRUE`).
			WillReturnRows(sqlmock.NewRows(productRowColumns))

		products, err := repo.ListActive(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, products)
		assert.Empty(t, products)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		repo, mock, cleanup := setupProductTestRepository(t)
		defer cleanup()

		mock.ExpectQuery(`SELECT .+ FROM products WHERE active = TRUE`).
			WillReturnError(errors.New("database error"))

		products, err := repo.ListActive(context.Background())
		assert.Nil(t, products)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProductRepository_Update(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		result        driverResult
		execErr       error
		expectedError error
	}{
		{name: "success", result: driverResult{affected: 1}},
		{name: "not found", result: driverResult{affected: 0}, expectedError: apperrors.ErrNotFound},
		{name: "database error", execErr: errors.New("database error"), expectedError: errors.New("failed to update product")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupProductTestRepository(t)
			defer cleanup()

			p := testProduct(now)
			exec := mock.ExpectExec(`UPDATE products`).
				WithArgs(p.Title, p.Slug, p.Price, p.Stock, p.Description, p.Category, p.UpdatedAt, p.ID)
			if tt.execErr != nil {
				exec.WillReturnError(tt.execErr)
			} else {
				exec.WillReturnResult(sqlmock.NewResult(0, tt.result.affected))
			}

			err := repo.Update(context.Background(), p)
			assertRepoError(t, tt.expectedError, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProductRepository_Delete(t *testing.T) {
	tests := []struct {
		name          string
		result        driverResult
		execErr       error
		expectedError error
	}{
		{name: "success", result: driverResult{affected: 1}},
		{name: "not found", result: driverResult{affected: 0}, expectedError: apperrors.ErrNotFound},
		{name: "database error", execErr: errors.New("database error"), expectedError: errors.New("failed to delete product")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupProductTestRepository(t)
			defer cleanup()

			exec := mock.ExpectExec(`DELETE FROM products WHERE id = \?`).WithArgs("abc")
			if tt.execErr != nil {
				exec.WillReturnError(tt.execErr)
			} else {
				exec.WillReturnResult(sqlmock.NewResult(0, tt.result.affected))
			}

			err := repo.Delete(context.Background(), "abc")
			assertRepoError(t, tt.expectedError, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

type driverResult struct {
	affected int64
}

func assertRepoError(t *testing.T, expected, actual error) {
	t.Helper()
	switch {
	case expected == nil:
		assert.NoError(t, actual)
	case errors.Is(expected, apperrors.ErrNotFound):
		assert.ErrorIs(t, actual, apperrors.ErrNotFound)
	default:
		require.Error(t, actual)
		assert.Contains(t, actual.Error(), expected.Error())
	}
}
