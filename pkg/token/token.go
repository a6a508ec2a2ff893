package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	// TypeAccess marks tokens accepted by the API auth middleware.
	TypeAccess = "ACCESS"
	// TypeRefresh marks tokens accepted only by the refresh endpoint.
	TypeRefresh = "REFRESH"

	defaultIssuer = "godsaeng-api"
)

var defaultLeeway = 30 * time.Second

// ErrInvalidToken is returned when a token fails signature, expiry,
// format, or type-claim validation.
var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// Issuer creates and validates HS256 access and refresh tokens.
// It keeps no server-side state: refresh tokens stay valid until their
// natural expiry and are never rotated.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	leeway     time.Duration
}

// Options configures optional claim behavior.
type Options struct {
	Issuer string
	Leeway time.Duration
}

// New builds an issuer from a shared HMAC secret.
func New(secret string, accessTTL, refreshTTL time.Duration) (*Issuer, error) {
	return NewWithOptions(secret, accessTTL, refreshTTL, Options{})
}

// NewWithOptions builds an issuer with custom claim options.
func NewWithOptions(secret string, accessTTL, refreshTTL time.Duration, opts Options) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	if len(secret) < 32 {
		return nil, errors.New("token secret must be at least 32 bytes")
	}
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		issuer = defaultIssuer
	}
	leeway := opts.Leeway
	if leeway <= 0 {
		leeway = defaultLeeway
	}
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     issuer,
		leeway:     leeway,
	}, nil
}

// AccessToken issues a short-lived token carrying type=ACCESS.
func (i *Issuer) AccessToken(subject string) (string, error) {
	return i.sign(subject, TypeAccess, i.accessTTL)
}

// RefreshToken issues a long-lived token carrying type=REFRESH.
func (i *Issuer) RefreshToken(subject string) (string, error) {
	return i.sign(subject, TypeRefresh, i.refreshTTL)
}

func (i *Issuer) sign(subject, tokenType string, ttl time.Duration) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	now := time.Now().UTC()
	c := claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
}

// ValidateAccess verifies an access token and returns its subject.
// Refresh tokens are rejected even when otherwise valid.
func (i *Issuer) ValidateAccess(token string) (string, error) {
	c, err := i.parse(token)
	if err != nil {
		return "", err
	}
	if c.Type != TypeAccess {
		return "", fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, c.Type)
	}
	return c.Subject, nil
}

// Refresh validates a refresh token and issues a new access token for
// the same subject. The refresh token itself is left untouched.
func (i *Issuer) Refresh(refreshToken string) (string, error) {
	c, err := i.parse(refreshToken)
	if err != nil {
		return "", err
	}
	if c.Type != TypeRefresh {
		return "", fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, c.Type)
	}
	return i.AccessToken(c.Subject)
}

func (i *Issuer) parse(token string) (claims, error) {
	c := claims{}
	token = strings.TrimSpace(token)
	if token == "" {
		return c, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(i.leeway),
	)
	if err != nil || !parsed.Valid {
		return claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(c.Subject) == "" {
		return claims{}, fmt.Errorf("%w: subject missing", ErrInvalidToken)
	}
	return c, nil
}
