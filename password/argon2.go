package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKiB  uint32 = 8 * 1024
	minSaltBytes  uint32 = 16
	minKeyBytes   uint32 = 16
	minPassLength        = 6
	phcID                = "argon2id"
)

var (
	// ErrTooShort rejects passwords below the minimum length.
	ErrTooShort = errors.New("password too short")
	// ErrMalformedHash is returned for strings that are not argon2id PHC hashes.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrIncompatibleVersion is returned for hashes from another argon2 revision.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

// Params are the Argon2id cost parameters.
type Params struct {
	MemoryKiB uint32
	Passes    uint32
	Lanes     uint8
	SaltBytes uint32
	KeyBytes  uint32
}

// DefaultParams follow the OWASP baseline for argon2id.
func DefaultParams() Params {
	return Params{
		MemoryKiB: 64 * 1024,
		Passes:    3,
		Lanes:     2,
		SaltBytes: 16,
		KeyBytes:  32,
	}
}

// Validate reports the first parameter below its floor.
func (p Params) Validate() error {
	switch {
	case p.MemoryKiB < minMemoryKiB:
		return fmt.Errorf("argon2 memory must be >= %d KiB", minMemoryKiB)
	case p.Passes < 1:
		return errors.New("argon2 passes must be >= 1")
	case p.Lanes < 1:
		return errors.New("argon2 lanes must be >= 1")
	case p.SaltBytes < minSaltBytes:
		return fmt.Errorf("argon2 salt must be >= %d bytes", minSaltBytes)
	case p.KeyBytes < minKeyBytes:
		return fmt.Errorf("argon2 key must be >= %d bytes", minKeyBytes)
	}
	return nil
}

// Hasher produces and checks PHC-encoded argon2id hashes. It is safe for
// concurrent use.
type Hasher struct {
	params Params
	rand   io.Reader
}

func NewHasher(p Params) (*Hasher, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Hasher{params: p, rand: rand.Reader}, nil
}

// Hash returns the PHC string for plain under a fresh random salt.
func (h *Hasher) Hash(plain string) (string, error) {
	if len(plain) < minPassLength {
		return "", fmt.Errorf("%w: need at least %d bytes", ErrTooShort, minPassLength)
	}

	salt := make([]byte, h.params.SaltBytes)
	if _, err := io.ReadFull(h.rand, salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(plain), salt, h.params.Passes, h.params.MemoryKiB, h.params.Lanes, h.params.KeyBytes)

	return encodePHC(h.params, salt, key), nil
}

// Verify reports whether plain matches encoded.
func (h *Hasher) Verify(plain, encoded string) (bool, error) {
	p, salt, want, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(plain), salt, p.Passes, p.MemoryKiB, p.Lanes, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// NeedsRehash reports whether encoded was produced with weaker parameters
// than the hasher's.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	p, _, key, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	weaker := p.MemoryKiB < h.params.MemoryKiB ||
		p.Passes < h.params.Passes ||
		p.Lanes < h.params.Lanes ||
		uint32(len(key)) != h.params.KeyBytes
	return weaker, nil
}

func encodePHC(p Params, salt, key []byte) string {
	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcID, argon2.Version, p.MemoryKiB, p.Passes, p.Lanes,
		b64.EncodeToString(salt), b64.EncodeToString(key))
}

func decodePHC(encoded string) (Params, []byte, []byte, error) {
	var p Params

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != phcID {
		return p, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	if version != argon2.Version {
		return p, nil, nil, ErrIncompatibleVersion
	}

	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Passes, &p.Lanes); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	if p.MemoryKiB < minMemoryKiB || p.Passes < 1 || p.Lanes < 1 {
		return p, nil, nil, ErrMalformedHash
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(fields[4])
	if err != nil || uint32(len(salt)) < minSaltBytes {
		return p, nil, nil, ErrMalformedHash
	}
	key, err := b64.DecodeString(fields[5])
	if err != nil || uint32(len(key)) < minKeyBytes {
		return p, nil, nil, ErrMalformedHash
	}
	p.SaltBytes = uint32(len(salt))
	p.KeyBytes = uint32(len(key))

	return p, salt, key, nil
}
