// Package auth implements registration, login and JWT issuance.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/SpasiboVadya/loan-planning-system/internal/domain/user"
	"github.com/SpasiboVadya/loan-planning-system/internal/storage"
	"github.com/SpasiboVadya/loan-planning-system/pkg/logger"
)

var (
	// ErrLoginTaken reports a registration attempt with an existing login.
	ErrLoginTaken = errors.New("login already registered")
	// ErrInvalidCredentials reports a failed login.
	ErrInvalidCredentials = errors.New("incorrect login or password")
	// ErrInvalidToken reports a token that failed verification.
	ErrInvalidToken = errors.New("invalid token")
)

const maxLoginLen = 50

// Claims carries the authenticated user identity inside a JWT.
type Claims struct {
	UserID int64  `json:"user_id"`
	Login  string `json:"login"`
	jwt.RegisteredClaims
}

// Service issues and verifies access tokens.
type Service struct {
	users  storage.UserStore
	secret []byte
	ttl    time.Duration
	log    *logger.Logger
}

// New constructs an auth service.
func New(users storage.UserStore, secret string, ttl time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Service{users: users, secret: []byte(secret), ttl: ttl, log: log}
}

// Register creates a user and returns it with a fresh access token.
func (s *Service) Register(ctx context.Context, login, password string) (user.User, string, error) {
	login = strings.TrimSpace(login)
	if err := validateCredentials(login, password); err != nil {
		return user.User{}, "", err
	}

	if _, err := s.users.GetUserByLogin(ctx, login); err == nil {
		return user.User{}, "", ErrLoginTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return user.User{}, "", err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return user.User{}, "", err
	}

	u, err := s.users.CreateUser(ctx, user.User{
		Login:            login,
		PasswordHash:     hash,
		RegistrationDate: time.Now().UTC(),
	})
	if err != nil {
		return user.User{}, "", err
	}

	token, err := s.issueToken(u)
	if err != nil {
		return user.User{}, "", err
	}

	s.log.WithField("user_id", u.ID).WithField("login", u.Login).Info("user registered")
	return u, token, nil
}

// Login verifies credentials and returns the user with an access token.
func (s *Service) Login(ctx context.Context, login, password string) (user.User, string, error) {
	u, err := s.users.GetUserByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, "", ErrInvalidCredentials
		}
		return user.User{}, "", err
	}

	if !CheckPassword(password, u.PasswordHash) {
		return user.User{}, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(u)
	if err != nil {
		return user.User{}, "", err
	}
	return u, token, nil
}

// VerifyToken validates a bearer token and returns its claims.
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) issueToken(u user.User) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: u.ID,
		Login:  u.Login,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func validateCredentials(login, password string) error {
	if login == "" {
		return fmt.Errorf("login is required")
	}
	if len(login) > maxLoginLen {
		return fmt.Errorf("login must be at most %d characters", maxLoginLen)
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}
	// bcrypt truncates beyond 72 bytes.
	if len(password) > 72 {
		return fmt.Errorf("password must be at most 72 bytes")
	}
	return nil
}
