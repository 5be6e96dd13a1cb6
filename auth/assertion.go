package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stonixai/dashcore/session"
)

const minKeyBytes = 32

var (
	// ErrInvalidAssertion is returned for assertions that fail verification.
	ErrInvalidAssertion = errors.New("invalid user assertion")
)

// Claims is the JWT body of a user assertion.
type Claims struct {
	Username    string   `json:"username"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// AssertionConfig configures both ends of a user assertion.
type AssertionConfig struct {
	Key    []byte
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
	// Now replaces time.Now for issuing and validation.
	Now func() time.Time
}

func (c AssertionConfig) validate() error {
	if len(c.Key) < minKeyBytes {
		return fmt.Errorf("assertion key must be >= %d bytes", minKeyBytes)
	}
	if c.Issuer == "" {
		return errors.New("assertion issuer is required")
	}
	if c.Leeway < 0 || c.Leeway > 2*time.Minute {
		return errors.New("invalid assertion leeway")
	}
	return nil
}

func (c AssertionConfig) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Signer mints user assertions.
type Signer struct {
	cfg AssertionConfig
}

func NewSigner(cfg AssertionConfig) (*Signer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("assertion TTL must be > 0")
	}
	return &Signer{cfg: cfg}, nil
}

func (s *Signer) Sign(u session.User) (string, error) {
	now := s.cfg.now()
	claims := Claims{
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		Permissions: u.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Key)
}

// Verifier checks user assertions.
type Verifier struct {
	cfg    AssertionConfig
	parser *jwt.Parser
}

func NewVerifier(cfg AssertionConfig) (*Verifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(cfg.now),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	return &Verifier{cfg: cfg, parser: jwt.NewParser(options...)}, nil
}

// Verify returns the user vouched for by assertion.
func (v *Verifier) Verify(assertion string) (session.User, error) {
	token, err := v.parser.ParseWithClaims(assertion, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return v.cfg.Key, nil
	})
	if err != nil {
		return session.User{}, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return session.User{}, ErrInvalidAssertion
	}
	return session.User{
		ID:          claims.Subject,
		Username:    claims.Username,
		Email:       claims.Email,
		Role:        claims.Role,
		Permissions: claims.Permissions,
	}, nil
}
