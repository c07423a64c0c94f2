package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tasktracker/internal/apperror"
)

// Claims is the payload embedded in issued tokens.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Manager checks the configured credential pair and issues signed tokens.
type Manager struct {
	secret   []byte
	email    string
	password string
	ttl      time.Duration
}

// NewManager builds a token manager around a single fixed credential pair.
func NewManager(secret, email, password string, ttl time.Duration) *Manager {
	return &Manager{
		secret:   []byte(secret),
		email:    email,
		password: password,
		ttl:      ttl,
	}
}

// Login verifies the credential pair and returns a signed HS256 token with
// the configured expiry.
func (m *Manager) Login(email, password string) (string, error) {
	if email == "" || password == "" {
		return "", apperror.New(apperror.CodeValidation, "Please provide email and password")
	}
	if email != m.email || password != m.password {
		return "", apperror.New(apperror.CodeUnauthorized, "Invalid credentials")
	}

	now := time.Now()
	claims := Claims{
		Email: m.email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Verify parses a bearer token and returns its claims. Signature, algorithm
// and expiry are all checked; any failure maps to unauthorized.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperror.New(apperror.CodeUnauthorized, "unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.New(apperror.CodeUnauthorized, "Token is invalid or expired")
	}
	return claims, nil
}
