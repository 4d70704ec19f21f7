package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/marketplace/backend/internal/apperrors"
	"github.com/marketplace/backend/internal/auth/service"
	"github.com/marketplace/backend/internal/mail"
	"github.com/marketplace/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository is the interface that wraps methods for User table data access
type UserRepository interface {
	// Method Create inserts a new user into the database.
	//
	// "user" parameter is used to create a new user. On success its ID is populated.
	//
	// If the email is already registered, an error wrapping apperrors.ErrConflict is returned.
	Create(ctx context.Context, user *models.User) error
	// Method GetByEmail retrieves a user by email.
	//
	// If user with such email does not exist, an error wrapping apperrors.ErrNotFound will be returned together with "nil" value.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Method GetByID retrieves a user by ID.
	//
	// If user with such ID does not exist, an error wrapping apperrors.ErrNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, userID int) (*models.User, error)
	// Method ExistsByEmail checks if a user with such email exists.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Method UpdateVerificationToken overwrites the stored verification token of a user.
	UpdateVerificationToken(ctx context.Context, userID int, token string) error
	// Method MarkVerified sets the user verified and clears the stored verification token.
	MarkVerified(ctx context.Context, userID int) error
	// Method UpdatePassword overwrites the password hash of a user.
	UpdatePassword(ctx context.Context, userID int, passwordHash string) error
}

// TokenService is the interface that wraps methods for issuing and verifying signed tokens
type TokenService interface {
	// Method IssueAccessToken issues a session token carrying the user's identity and role.
	IssueAccessToken(payload service.Payload) (string, error)
	// Method IssueVerificationToken issues an email verification token scoped to "email".
	IssueVerificationToken(email string) (string, error)
	// Method IssueResetToken issues a password reset token scoped to "email".
	IssueResetToken(email string) (string, error)
	// Method Verify checks the signature, expiry and purpose of a token and returns its payload.
	//
	// On any failure an error wrapping apperrors.ErrInvalidToken is returned together with "nil" value.
	Verify(tokenString string, purpose service.Purpose) (*service.Payload, error)
}

// authService implements the authentication flows
type authService struct {
	userRepo    UserRepository
	tokens      TokenService
	mailer      mail.Sender
	logger      *zap.Logger
	bcryptCost  int
	frontendURL string
	backendURL  string
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo UserRepository,
	tokens TokenService,
	mailer mail.Sender,
	logger *zap.Logger,
	bcryptCost int,
	frontendURL string,
	backendURL string,
) *authService {
	return &authService{
		userRepo:    userRepo,
		tokens:      tokens,
		mailer:      mailer,
		logger:      logger,
		bcryptCost:  bcryptCost,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		backendURL:  strings.TrimRight(backendURL, "/"),
	}
}

// emailRegex validates email format
var emailRegex = regexp.MustCompile(`^[\w\-.]+@([\w-]+\.)+[\w-]{2,4}$`)

// Register creates an unverified account and sends the verification email
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.UserInfo, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	fields := make(map[string]string)
	if username == "" {
		fields["username"] = "Username is required"
	}
	if email == "" {
		fields["email"] = "Email is required"
	} else if !emailRegex.MatchString(email) {
		fields["email"] = "You must enter a valid value for email"
	}
	if req.Password == "" {
		fields["password"] = "Password is required"
	}
	role := req.Role
	if role == "" {
		role = models.RoleUser
	} else if !role.Valid() {
		fields["role"] = "Role must be one of: user, admin"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError(fields)
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("email already registered: %w", apperrors.ErrConflict)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	verificationToken, err := s.tokens.IssueVerificationToken(email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue verification token: %w", err)
	}

	user := &models.User{
		Username:          username,
		Email:             email,
		PasswordHash:      string(passwordHash),
		Role:              role,
		VerificationToken: &verificationToken,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.sendVerificationEmail(ctx, user, verificationToken); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Int("userId", user.ID), zap.String("role", string(user.Role)))
	info := user.Info()
	return &info, nil
}

// VerifyEmail marks the token owner verified.
//
// The token must be the one currently stored for the user: tokens replaced by a resend,
// or already consumed by a previous verification, fail with apperrors.ErrTokenSuperseded.
func (s *authService) VerifyEmail(ctx context.Context, verificationToken string) error {
	if verificationToken == "" {
		return apperrors.NewValidationError(map[string]string{"verification_token": "Verification token is required"})
	}

	payload, err := s.tokens.Verify(verificationToken, service.PurposeEmailVerification)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetByEmail(ctx, payload.Email)
	if err != nil {
		return err
	}

	if user.VerificationToken == nil || *user.VerificationToken != verificationToken {
		return apperrors.ErrTokenSuperseded
	}

	if err := s.userRepo.MarkVerified(ctx, user.ID); err != nil {
		return err
	}

	s.logger.Info("email verified", zap.Int("userId", user.ID))
	return nil
}

// ResendVerification issues a new verification token, replacing the stored one, and emails it
func (s *authService) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.NewValidationError(map[string]string{"email": "Email is required"})
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Verified {
		return fmt.Errorf("email already verified: %w", apperrors.ErrConflict)
	}

	verificationToken, err := s.tokens.IssueVerificationToken(user.Email)
	if err != nil {
		return fmt.Errorf("failed to issue verification token: %w", err)
	}

	if err := s.userRepo.UpdateVerificationToken(ctx, user.ID, verificationToken); err != nil {
		return err
	}

	return s.sendVerificationEmail(ctx, user, verificationToken)
}

// Login checks the credentials and issues an access token.
// The optional role in the request is ignored: the token always carries the stored role.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	email := strings.TrimSpace(req.Email)

	fields := make(map[string]string)
	if email == "" || !emailRegex.MatchString(email) {
		fields["email"] = "You must enter a valid value for email"
	}
	if req.Password == "" {
		fields["password"] = "You must enter a password"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError(fields)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, fmt.Errorf("user is inactive: %w", apperrors.ErrNotFound)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, fmt.Errorf("wrong password: %w", apperrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to compare password: %w", err)
	}

	accessToken, err := s.tokens.IssueAccessToken(service.Payload{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     string(user.Role),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	return &models.LoginResponse{
		AccessToken: accessToken,
		UserInfo:    user.Info(),
	}, nil
}

// ForgotPassword emails a password reset link to a registered address
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.NewValidationError(map[string]string{"email": "Email is required"})
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	resetToken, err := s.tokens.IssueResetToken(user.Email)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}

	link := s.frontendURL + "/reset-password?" + url.Values{"reset_token": {resetToken}}.Encode()
	msg, err := mail.ResetPasswordEmail(user.Email, user.Username, link)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	return nil
}

// ResetPassword sets a new password for the user named by a valid reset token.
// Access tokens issued before the reset stay valid until they expire.
func (s *authService) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	fields := make(map[string]string)
	if resetToken == "" {
		fields["reset_token"] = "Reset token is required"
	}
	if newPassword == "" {
		fields["password"] = "Password is required"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError(fields)
	}

	payload, err := s.tokens.Verify(resetToken, service.PurposePasswordReset)
	if err != nil {
		return err
	}

	user, err := s.userRepo.GetByEmail(ctx, payload.Email)
	if err != nil {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(passwordHash)); err != nil {
		return err
	}

	s.logger.Info("password reset", zap.Int("userId", user.ID))
	return nil
}

func (s *authService) sendVerificationEmail(ctx context.Context, user *models.User, verificationToken string) error {
	link := s.backendURL + "/api/auth/verify-email?" + url.Values{"verification_token": {verificationToken}}.Encode()
	msg, err := mail.VerificationEmail(user.Email, user.Username, link)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}
