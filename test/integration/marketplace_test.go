//go:build integration

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/go-sql-driver/mysql"
	"github.com/marketplace/backend/internal/auth/service"
	"github.com/marketplace/backend/internal/config"
	"github.com/marketplace/backend/internal/handlers"
	"github.com/marketplace/backend/internal/mail"
	"github.com/marketplace/backend/internal/models"
	"github.com/marketplace/backend/internal/repositories"
	"github.com/marketplace/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	frontendURL = "http://front.test"
	backendURL  = "http://back.test"
)

var (
	testDB     *sql.DB
	testRouter chi.Router
	testMailer = &capturingMailer{}
)

// capturingMailer keeps every sent message so tests can follow emailed links
type capturingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
}

func (m *capturingMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *capturingMailer) last(t *testing.T, to string) mail.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.messages) - 1; i >= 0; i-- {
		if m.messages[i].To == to {
			return m.messages[i]
		}
	}
	t.Fatalf("no email sent to %s", to)
	return mail.Message{}
}

type envelope struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	OK      bool              `json:"ok"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func TestMain(m *testing.M) {
	cfg, err := config.LoadTestConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load test config: %v", err))
	}
	dsn := cfg.TestDSN()
	if dsn == "" {
		fmt.Println("TEST_DB_* not configured, skipping integration tests")
		os.Exit(0)
	}

	testDB, err = sql.Open("mysql", dsn)
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to test database: %v", err))
	}
	if err = testDB.Ping(); err != nil {
		panic(fmt.Sprintf("Failed to ping test database: %v", err))
	}

	setupTestSchema(testDB)
	testRouter = setupTestRouter(testDB, cfg.JWT.Secret, zap.NewNop())

	code := m.Run()

	testDB.Close()
	os.Exit(code)
}

// setupTestSchema creates the tables the migrations would create
func setupTestSchema(db *sql.DB) {
	for _, query := range []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			email VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role ENUM('user', 'admin') NOT NULL DEFAULT 'user',
			verified BOOLEAN NOT NULL DEFAULT FALSE,
			verification_token TEXT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uq_users_email (email)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		`CREATE TABLE IF NOT EXISTS products (
			id CHAR(36) NOT NULL PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			slug VARCHAR(255) NOT NULL,
			price DECIMAL(10, 2) NOT NULL,
			stock INT NOT NULL DEFAULT 0,
			description TEXT NOT NULL,
			category VARCHAR(100) NOT NULL,
			seller_id INT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
			updated_at TIMESTAMP(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
			CONSTRAINT fk_products_seller FOREIGN KEY (seller_id) REFERENCES users (id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	} {
		if _, err := db.Exec(query); err != nil {
			panic(fmt.Sprintf("Failed to create test schema: %v", err))
		}
	}
}

// setupTestRouter wires the real repositories and services behind the HTTP handlers
func setupTestRouter(db *sql.DB, secret string, logger *zap.Logger) chi.Router {
	tokens := service.NewTokenGenerator(secret, time.Hour, 24*time.Hour, 24*time.Hour)
	userRepo := repositories.NewUserRepository(db, logger)
	productRepo := repositories.NewProductRepository(db, logger)

	authService := services.NewAuthService(userRepo, tokens, testMailer, logger, bcrypt.MinCost, frontendURL, backendURL)
	productService := services.NewProductService(productRepo, userRepo, logger)

	r := chi.NewRouter()
	handlers.NewAuthHandler(authService, frontendURL, logger).RegisterRoutes(r)
	handlers.NewProductHandler(productService, tokens, logger).RegisterRoutes(r)
	handlers.NewStatusHandler(tokens, map[string]handlers.HealthCheck{"mysql": db.PingContext}, logger).RegisterRoutes(r)
	return r
}

func cleanupTestData(t *testing.T) {
	t.Helper()
	_, err := testDB.Exec("DELETE FROM products")
	require.NoError(t, err)
	_, err = testDB.Exec("DELETE FROM users")
	require.NoError(t, err)
}

func do(t *testing.T, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	testRouter.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func tokenFromEmail(t *testing.T, msg mail.Message, param string) string {
	t.Helper()
	match := regexp.MustCompile(param + `=([A-Za-z0-9_.\-]+)`).FindStringSubmatch(msg.Body)
	require.Len(t, match, 2, "link with %s not found in email", param)
	return match[1]
}

func registerVerifyLogin(t *testing.T, username, email, password string, role models.Role) string {
	t.Helper()

	w := do(t, http.MethodPost, "/api/auth/register", models.RegisterRequest{Username: username, Email: email, Password: password, Role: role}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	token := tokenFromEmail(t, testMailer.last(t, email), "verification_token")
	w = do(t, http.MethodGet, "/api/auth/verify-email?verification_token="+token, nil, "")
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, frontendURL+"/verify-email/success", w.Header().Get("Location"))

	w = do(t, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: email, Password: password}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login models.LoginResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &login))
	require.NotEmpty(t, login.AccessToken)
	assert.Equal(t, role, login.UserInfo.Role)
	return login.AccessToken
}

func TestIntegration_AuthFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cleanupTestData(t)
	defer cleanupTestData(t)

	accessToken := registerVerifyLogin(t, "buyer", "buyer@example.com", "first-pass", models.RoleUser)

	t.Run("verified link cannot be replayed", func(t *testing.T) {
		token := tokenFromEmail(t, testMailer.last(t, "buyer@example.com"), "verification_token")
		w := do(t, http.MethodGet, "/api/auth/verify-email?verification_token="+token, nil, "")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Contains(t, w.Header().Get("Location"), "/verify-email/error?reason=")
	})

	t.Run("duplicate registration conflicts", func(t *testing.T) {
		w := do(t, http.MethodPost, "/api/auth/register", models.RegisterRequest{Username: "b", Email: "buyer@example.com", Password: "x"}, "")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("emails are case-sensitive", func(t *testing.T) {
		w := do(t, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "Buyer@example.com", Password: "first-pass"}, "")
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = do(t, http.MethodPost, "/api/auth/register", models.RegisterRequest{Username: "b2", Email: "Buyer@example.com", Password: "x"}, "")
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("authenticated ping echoes identity", func(t *testing.T) {
		w := do(t, http.MethodPost, "/api/status/ping", nil, accessToken)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Pong", decode(t, w).Message)
	})

	t.Run("password reset", func(t *testing.T) {
		w := do(t, http.MethodPost, "/api/auth/forgot-password", models.EmailRequest{Email: "buyer@example.com"}, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resetToken := tokenFromEmail(t, testMailer.last(t, "buyer@example.com"), "reset_token")
		w = do(t, http.MethodPost, "/api/auth/reset-password?reset_token="+resetToken, models.ResetPasswordRequest{Password: "second-pass"}, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = do(t, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "buyer@example.com", Password: "first-pass"}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = do(t, http.MethodPost, "/api/auth/login", models.LoginRequest{Email: "buyer@example.com", Password: "second-pass"}, "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestIntegration_ProductLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cleanupTestData(t)
	defer cleanupTestData(t)

	adminToken := registerVerifyLogin(t, "shop", "shop@example.com", "admin-pass", models.RoleAdmin)
	userToken := registerVerifyLogin(t, "buyer", "buyer@example.com", "buyer-pass", models.RoleUser)

	request := models.ProductRequest{Title: "Green Tea", Price: 4.5, Stock: 10, Description: "Loose leaf", Category: "tea"}

	w := do(t, http.MethodPost, "/api/products", request, userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, http.MethodPost, "/api/products", request, adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Product models.ProductWithSeller `json:"product"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	assert.Equal(t, "green-tea", created.Product.Slug)
	require.NotNil(t, created.Product.Seller)
	assert.Equal(t, "shop", created.Product.Seller.Username)

	w = do(t, http.MethodGet, "/api/products", nil, userToken)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Products []models.ProductWithSeller `json:"products"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &listed))
	require.Len(t, listed.Products, 1)
	assert.Equal(t, created.Product.ID, listed.Products[0].ID)

	request.Title = "Black Tea"
	w = do(t, http.MethodPut, "/api/products/"+created.Product.ID, request, adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, http.MethodDelete, "/api/products/"+created.Product.ID, nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, http.MethodGet, "/api/products/"+created.Product.ID, nil, userToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
