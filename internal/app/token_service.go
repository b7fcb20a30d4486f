package app

import (
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// TokenService mints and verifies the HS256 session tokens that gate the
// gateway handshake. Tokens are issued upstream (after wallet auth) and
// presented when the websocket connection is opened.
type TokenService struct {
	secret string
	issuer string
	ttl    time.Duration
}

func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	return &TokenService{secret: secret, issuer: issuer, ttl: ttl}
}

// Generate signs a session token for the subject wallet address. The server
// itself only verifies tokens (issuance happens in the upstream auth flow);
// Generate lives alongside Verify so both ends share one claims layout.
func (s *TokenService) Generate(subject string) (string, error) {
	if s.secret == "" {
		return "", fmt.Errorf("token secret is not configured")
	}
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}

	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": subject,
		"exp": time.Now().Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// Verify parses the token and returns its subject.
func (s *TokenService) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid session token")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("session token has no subject")
	}
	return sub, nil
}
