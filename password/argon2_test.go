package password

import (
	"errors"
	"strings"
	"testing"
)

func fastParams() Params {
	return Params{MemoryKiB: 8 * 1024, Passes: 1, Lanes: 1, SaltBytes: 16, KeyBytes: 32}
}

func TestHashAndVerify(t *testing.T) {
	h, err := NewHasher(fastParams())
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}

	encoded, err := h.Hash("admin123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", encoded)
	}

	ok, err := h.Verify("admin123", encoded)
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("admin124", encoded)
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	h, err := NewHasher(fastParams())
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	a, _ := h.Hash("viewer123")
	b, _ := h.Hash("viewer123")
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	h, _ := NewHasher(fastParams())
	if _, err := h.Hash("abc"); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	h, _ := NewHasher(fastParams())
	good, _ := h.Hash("operator123")
	parts := strings.Split(good, "$")

	cases := map[string]string{
		"empty":        "",
		"bcrypt":       "$2a$10$abcdefghijklmnopqrstuv",
		"weak memory":  strings.Replace(good, "m=8192", "m=64", 1),
		"bad params":   strings.Join([]string{"", parts[1], parts[2], "m=x", parts[4], parts[5]}, "$"),
		"short salt":   strings.Join([]string{"", parts[1], parts[2], parts[3], "AAAA", parts[5]}, "$"),
		"bad key b64":  strings.Join([]string{"", parts[1], parts[2], parts[3], parts[4], "!!!"}, "$"),
		"extra fields": good + "$x",
	}
	for name, encoded := range cases {
		if _, err := h.Verify("operator123", encoded); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("%s: expected ErrMalformedHash, got %v", name, err)
		}
	}

	other := strings.Replace(good, "v=19", "v=16", 1)
	if _, err := h.Verify("operator123", other); !errors.Is(err, ErrIncompatibleVersion) {
		t.Fatalf("expected ErrIncompatibleVersion, got %v", err)
	}
}

func TestNeedsRehash(t *testing.T) {
	weak, _ := NewHasher(fastParams())
	encoded, err := weak.Hash("admin123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	strong := fastParams()
	strong.Passes = 2
	h, _ := NewHasher(strong)

	needs, err := h.NeedsRehash(encoded)
	if err != nil || !needs {
		t.Fatalf("expected rehash, needs=%v err=%v", needs, err)
	}
	needs, err = weak.NeedsRehash(encoded)
	if err != nil || needs {
		t.Fatalf("expected no rehash, needs=%v err=%v", needs, err)
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}

	mutators := []func(*Params){
		func(p *Params) { p.MemoryKiB = 1024 },
		func(p *Params) { p.Passes = 0 },
		func(p *Params) { p.Lanes = 0 },
		func(p *Params) { p.SaltBytes = 8 },
		func(p *Params) { p.KeyBytes = 8 },
	}
	for i, mutate := range mutators {
		p := DefaultParams()
		mutate(&p)
		if _, err := NewHasher(p); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
