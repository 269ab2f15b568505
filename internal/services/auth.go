package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"theagentvikram/resumatch/internal/models"
	"theagentvikram/resumatch/internal/repositories"
)

var (
	ErrAuthDisabled       = errors.New("authentication is not configured on this server")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidUsername    = errors.New("username may only contain letters, digits, '.', '_' and '-'")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID   uuid.UUID   `json:"user_id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	ValidateToken(tokenString string) (*Claims, error)
	CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	// EnsureAdmin creates the admin account when it does not exist yet.
	EnsureAdmin(ctx context.Context, username, password string) error
}

type authService struct {
	users      repositories.UserRepository
	secret     []byte
	expiration time.Duration
	bcryptCost int
	now        func() time.Time
}

func NewAuthService(users repositories.UserRepository, secret string, expirationHours, bcryptCost int) AuthService {
	if expirationHours <= 0 {
		expirationHours = 24
	}
	return &authService{
		users:      users,
		secret:     []byte(secret),
		expiration: time.Duration(expirationHours) * time.Hour,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

func (s *authService) enabled() bool { return len(s.secret) > 0 }

func (s *authService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if !s.enabled() {
		return nil, ErrAuthDisabled
	}

	username := strings.TrimSpace(req.Username)
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}

	role := req.Role
	if role == "" {
		role = models.RoleApplicant
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("✅ Registered %s user %s\n", user.Role, user.Username)
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	if !s.enabled() {
		return nil, ErrAuthDisabled
	}

	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *authService) issue(user *models.User) (*models.AuthResponse, error) {
	now := s.now()
	expiresAt := now.Add(s.expiration)

	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &models.AuthResponse{Token: signed, ExpiresAt: expiresAt.UTC(), User: *user}, nil
}

func (s *authService) ValidateToken(tokenString string) (*Claims, error) {
	if !s.enabled() {
		return nil, ErrAuthDisabled
	}
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == uuid.Nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (s *authService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.users.FindByID(ctx, userID)
}

func (s *authService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, repositories.ErrUserNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.User{ID: uuid.New(), Username: username, PasswordHash: string(hash), Role: models.RoleAdmin}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}

	log.Printf("✅ Admin user %s created\n", username)
	return nil
}
