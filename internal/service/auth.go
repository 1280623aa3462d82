// Package service — AuthService handles storefront registration, login and
// access-token validation.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/boddenberg/organic-shop-bfa/internal/domain"
	"github.com/boddenberg/organic-shop-bfa/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

const (
	DefaultTokenTTL  = 7 * 24 * time.Hour
	RememberTokenTTL = 30 * 24 * time.Hour

	maxNameLen     = 120
	maxEmailLen    = 191
	maxPhoneLen    = 30
	maxAddressLen  = 255
	minPasswordLen = 6
)

// MsgInvalidCredentials is returned for any failed login, whichever part
// of the credentials was wrong.
const MsgInvalidCredentials = "Thông tin đăng nhập không chính xác."

// AuthService orchestrates authentication flows.
type AuthService struct {
	store       port.UserStore
	jwtSecret   []byte
	accessTTL   time.Duration
	rememberTTL time.Duration
	bcryptCost  int
	logger      *zap.Logger
}

// NewAuthService creates a new auth service. Zero TTLs fall back to the
// storefront defaults of 7 and 30 days.
func NewAuthService(store port.UserStore, jwtSecret string, accessTTL, rememberTTL time.Duration, logger *zap.Logger) *AuthService {
	if accessTTL <= 0 {
		accessTTL = DefaultTokenTTL
	}
	if rememberTTL <= 0 {
		rememberTTL = RememberTokenTTL
	}
	return &AuthService{
		store:       store,
		jwtSecret:   []byte(jwtSecret),
		accessTTL:   accessTTL,
		rememberTTL: rememberTTL,
		bcryptCost:  bcrypt.DefaultCost,
		logger:      logger,
	}
}

// WithBcryptCost overrides the hashing cost (tests use bcrypt.MinCost).
func (s *AuthService) WithBcryptCost(cost int) *AuthService {
	s.bcryptCost = cost
	return s
}

// ============================================================
// Register — POST /v1/auth/register
// ============================================================

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	email, err := validateRegistration(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, &domain.ErrConflict{Message: "Email đã được sử dụng."}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, &domain.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
		PasswordHash: string(hash),
	})
	if err != nil {
		var conflict *domain.ErrConflict
		if errors.As(err, &conflict) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID))

	return s.issue(user, s.accessTTL)
}

// ============================================================
// Login — POST /v1/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()
	span.SetAttributes(attribute.Bool("remember_me", req.RememberMe))

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "Email là bắt buộc."}
	}
	if req.Password == "" {
		return nil, &domain.ErrValidation{Field: "password", Message: "Mật khẩu là bắt buộc."}
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, &domain.ErrUnauthorized{Message: MsgInvalidCredentials}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("login: wrong password", zap.Int64("user_id", user.ID))
		return nil, &domain.ErrUnauthorized{Message: MsgInvalidCredentials}
	}

	ttl := s.accessTTL
	if req.RememberMe {
		ttl = s.rememberTTL
	}

	s.logger.Info("user logged in", zap.Int64("user_id", user.ID))
	return s.issue(user, ttl)
}

// ============================================================
// Me — GET /v1/auth/me
// ============================================================

func (s *AuthService) Me(ctx context.Context, userID int64) (*domain.User, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Me")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", userID))

	return s.store.GetUserByID(ctx, userID)
}

// ============================================================
// Internal helpers
// ============================================================

func (s *AuthService) issue(user *domain.User, ttl time.Duration) (*domain.AuthResponse, error) {
	expiresAt := time.Now().Add(ttl).Truncate(time.Second)
	token, err := s.signAccessToken(strconv.FormatInt(user.ID, 10), expiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &domain.AuthResponse{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// validateRegistration checks the register body field by field, in the
// order the storefront form shows them, and returns the normalised e-mail.
func validateRegistration(req *domain.RegisterRequest) (string, error) {
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return "", &domain.ErrValidation{Field: "name", Message: "Tên là bắt buộc."}
	case utf8.RuneCountInString(name) > maxNameLen:
		return "", &domain.ErrValidation{Field: "name", Message: fmt.Sprintf("Tên không được vượt quá %d ký tự.", maxNameLen)}
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return "", &domain.ErrValidation{Field: "email", Message: "Email là bắt buộc."}
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email || len(email) > maxEmailLen {
		return "", &domain.ErrValidation{Field: "email", Message: "Email không hợp lệ."}
	}

	if utf8.RuneCountInString(req.Phone) > maxPhoneLen {
		return "", &domain.ErrValidation{Field: "phone", Message: fmt.Sprintf("Số điện thoại không được vượt quá %d ký tự.", maxPhoneLen)}
	}
	if utf8.RuneCountInString(req.Address) > maxAddressLen {
		return "", &domain.ErrValidation{Field: "address", Message: fmt.Sprintf("Địa chỉ không được vượt quá %d ký tự.", maxAddressLen)}
	}

	switch {
	case req.Password == "":
		return "", &domain.ErrValidation{Field: "password", Message: "Mật khẩu là bắt buộc."}
	case utf8.RuneCountInString(req.Password) < minPasswordLen:
		return "", &domain.ErrValidation{Field: "password", Message: "Mật khẩu phải có ít nhất 6 ký tự."}
	case req.Password != req.PasswordConfirmation:
		return "", &domain.ErrValidation{Field: "password", Message: "Xác nhận mật khẩu không khớp."}
	}

	return email, nil
}
