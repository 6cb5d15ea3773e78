package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/codemart-io/storefront/internal/app/domain/user"
	"github.com/codemart-io/storefront/internal/app/storage"
	apperrors "github.com/codemart-io/storefront/internal/errors"
	"github.com/codemart-io/storefront/pkg/logger"
)

const minPasswordLength = 8

// Claims are the JWT claims carried by admin bearer tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   user.Role
}

// IsAdmin reports whether the identity carries the admin role.
func (i Identity) IsAdmin() bool { return i.Role == user.RoleAdmin }

// Service issues and verifies admin credentials.
type Service struct {
	store    storage.UserStore
	secret   []byte
	tokenTTL time.Duration
	log      *logger.Logger

	now func() time.Time
}

// New creates a configured identity service.
func New(store storage.UserStore, secret string, tokenTTL time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("identity")
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		store:    store,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		log:      log,
		now:      time.Now,
	}
}

// Login verifies the credentials and issues a signed bearer token. Unknown
// emails, wrong passwords, and deactivated accounts all fail the same way.
func (s *Service) Login(ctx context.Context, email, password string) (string, user.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", user.User{}, apperrors.Unauthorized("invalid credentials")
	}

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Equalize timing between unknown and known emails.
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$000000000000000000000u"), []byte(password))
			return "", user.User{}, apperrors.Unauthorized("invalid credentials")
		}
		return "", user.User{}, err
	}
	if !u.Active {
		return "", user.User{}, apperrors.Unauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.log.WithField("email", email).Warnf("failed login attempt")
		return "", user.User{}, apperrors.Unauthorized("invalid credentials")
	}

	token, err := s.issueToken(u)
	if err != nil {
		return "", user.User{}, err
	}
	s.log.WithField("user_id", u.ID).Infof("admin logged in")
	return token, u, nil
}

// RegisterAdmin creates an admin account. Duplicate emails are rejected by the
// store's unique constraint.
func (s *Service) RegisterAdmin(ctx context.Context, name, email, password string) (user.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" {
		return user.User{}, apperrors.Validation("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return user.User{}, apperrors.Validation("email is invalid")
	}
	if len(password) < minPasswordLength {
		return user.User{}, apperrors.Validation("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.store.CreateUser(ctx, user.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         user.RoleAdmin,
		Active:       true,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return user.User{}, apperrors.Conflict("email already registered").WithCause(err)
		}
		return user.User{}, err
	}
	s.log.WithField("user_id", created.ID).Infof("admin registered: %s", created.Email)
	return created, nil
}

// Authenticate verifies a bearer token and confirms the account behind it is
// still present and active.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, apperrors.Unauthorized("invalid token")
	}

	u, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		return Identity{}, apperrors.Unauthorized("invalid token")
	}
	if !u.Active {
		return Identity{}, apperrors.Unauthorized("account disabled")
	}

	return Identity{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}, nil
}

func (s *Service) issueToken(u user.User) (string, error) {
	now := s.now().UTC()
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
