package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultSize is the number of random bytes behind every token.
const DefaultSize = 32

const (
	accessPrefix  = "access_"
	refreshPrefix = "refresh_"
)

// Kind identifies the purpose of a token.
type Kind int

const (
	KindUnknown Kind = iota
	KindAccess
	KindRefresh
)

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

var (
	// ErrEntropy is returned when the random source fails or runs short.
	ErrEntropy = errors.New("token entropy unavailable")
)

// Issuer mints tokens from a random source.
type Issuer struct {
	rand io.Reader
	size int
}

// Option customizes an Issuer.
type Option func(*Issuer)

// WithReader replaces crypto/rand as the entropy source.
func WithReader(r io.Reader) Option {
	return func(i *Issuer) {
		if r != nil {
			i.rand = r
		}
	}
}

// WithSize sets the random byte count. Values below DefaultSize are ignored.
func WithSize(n int) Option {
	return func(i *Issuer) {
		if n >= DefaultSize {
			i.size = n
		}
	}
}

func NewIssuer(opts ...Option) *Issuer {
	i := &Issuer{rand: rand.Reader, size: DefaultSize}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// IssueAccessToken returns a new "access_" token.
func (i *Issuer) IssueAccessToken() (string, error) {
	return i.issue(accessPrefix)
}

// IssueRefreshToken returns a new "refresh_" token.
func (i *Issuer) IssueRefreshToken() (string, error) {
	return i.issue(refreshPrefix)
}

// IssuePair returns an access and a refresh token.
func (i *Issuer) IssuePair() (access, refresh string, err error) {
	access, err = i.IssueAccessToken()
	if err != nil {
		return "", "", err
	}
	refresh, err = i.IssueRefreshToken()
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (i *Issuer) issue(prefix string) (string, error) {
	if i == nil {
		i = NewIssuer()
	}
	buf := make([]byte, i.size)
	if _, err := io.ReadFull(i.rand, buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropy, err)
	}
	return prefix + hex.EncodeToString(buf), nil
}

// KindOf reports the kind of a well-formed token, or KindUnknown.
func KindOf(token string) Kind {
	var body string
	kind := KindUnknown
	switch {
	case strings.HasPrefix(token, accessPrefix):
		body, kind = token[len(accessPrefix):], KindAccess
	case strings.HasPrefix(token, refreshPrefix):
		body, kind = token[len(refreshPrefix):], KindRefresh
	default:
		return KindUnknown
	}

	if len(body) < 2*DefaultSize || len(body)%2 != 0 {
		return KindUnknown
	}
	if _, err := hex.DecodeString(body); err != nil {
		return KindUnknown
	}
	return kind
}
