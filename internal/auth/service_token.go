package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/inboxpilot/folderengine/pkg/crypto"
)

// ErrInvalidToken is returned for any token that fails validation.
var ErrInvalidToken = errors.New("invalid service token")

// ServiceTokenConfig configures HS256 service-to-service tokens.
type ServiceTokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Claims carries the validated identity of a calling service.
type Claims struct {
	Service string `json:"svc,omitempty"`
	jwt.RegisteredClaims
}

// ServiceTokenService issues and validates the bearer tokens accepted on /api.
// Callers are internal services (onboarding UI backend, workflow engine), not
// end users.
type ServiceTokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewServiceTokenService constructs a token service from configuration.
func NewServiceTokenService(cfg ServiceTokenConfig) (*ServiceTokenService, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("service token: secret is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "folderengine"
	}

	return &ServiceTokenService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue mints a token identifying the named calling service.
func (s *ServiceTokenService) Issue(service string) (string, error) {
	service = strings.TrimSpace(service)
	if service == "" {
		return "", errors.New("service token: service name is required")
	}

	// A random jti lets audit logs tell apart tokens minted for the same
	// service.
	jti, err := crypto.GenerateToken(16)
	if err != nil {
		return "", fmt.Errorf("service token: generate id: %w", err)
	}

	now := s.now()
	claims := Claims{
		Service: service,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   service,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("service token: sign: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token, returning its claims.
func (s *ServiceTokenService) Validate(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Service == "" {
		claims.Service = claims.Subject
	}
	return claims, nil
}
