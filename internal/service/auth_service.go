package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"lpr-service/internal/domain/anpr"
	"lpr-service/internal/repository"
)

// Claims carried by operator tokens.
type Claims struct {
	Role     string `json:"role"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type LoginResult struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Operator  anpr.Operator `json:"operator"`
}

type AuthService struct {
	operators OperatorStore
	secret    []byte
	ttl       time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

func NewAuthService(operators OperatorStore, secret string, ttl time.Duration, log zerolog.Logger) *AuthService {
	return &AuthService{
		operators: operators,
		secret:    []byte(secret),
		ttl:       ttl,
		log:       log.With().Str("component", "auth_service").Logger(),
		now:       time.Now,
	}
}

func validRole(role string) bool {
	switch role {
	case anpr.RoleAdmin, anpr.RoleOperator, anpr.RoleViewer:
		return true
	}
	return false
}

func (s *AuthService) CreateOperator(ctx context.Context, username, password, role string) (*anpr.Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("%w: password must have at least 6 characters", ErrInvalidInput)
	}
	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		role = anpr.RoleOperator
	}
	if !validRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	op := &anpr.Operator{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	if err := s.operators.CreateOperator(ctx, op); err != nil {
		return nil, storeError("create operator", err)
	}
	s.log.Info().Int64("operator_id", op.ID).Str("username", username).Str("role", role).Msg("operator created")
	return op, nil
}

// Login checks the credentials and issues an HS256 token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	op, err := s.operators.FindOperatorByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find operator: %w", err)
	}
	if !op.Active {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		s.log.Warn().Str("username", op.Username).Msg("login rejected")
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := Claims{
		Role:     op.Role,
		Username: op.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(op.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &LoginResult{Token: token, ExpiresAt: expiresAt, Operator: *op}, nil
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: malformed token", ErrTokenInvalid)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: token expired", ErrTokenInvalid)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || claims.Subject == "" || claims.Role == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
