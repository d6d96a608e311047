package security_test

import (
	"strings"
	"testing"

	"github.com/petfinder-app/petfinder-backend/pkg/config"
	"github.com/petfinder-app/petfinder-backend/pkg/security"
)

var cheap = config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

func TestHashAndVerifyPassword(t *testing.T) {
	h := security.NewPasswordHasher(cheap)

	hash, err := h.Hash("collar-para-luna")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", hash)
	}

	ok, stale, err := h.Verify("collar-para-luna", hash)
	if err != nil || !ok || stale {
		t.Fatalf("expected fresh match, got ok=%v stale=%v err=%v", ok, stale, err)
	}

	ok, _, err = h.Verify("collar-para-toby", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch, got ok=%v err=%v", ok, err)
	}
}

func TestVerifyFlagsHashesFromOlderCost(t *testing.T) {
	old := security.NewPasswordHasher(cheap)
	hash, err := old.Hash("collar-para-luna")
	if err != nil {
		t.Fatal(err)
	}

	raised := cheap
	raised.ArgonTime = 2
	ok, stale, err := security.NewPasswordHasher(raised).Verify("collar-para-luna", hash)
	if err != nil || !ok {
		t.Fatalf("old hash must still verify, got ok=%v err=%v", ok, err)
	}
	if !stale {
		t.Fatal("expected hash made with the old cost to be flagged stale")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	h := security.NewPasswordHasher(cheap)
	for _, bad := range []string{
		"not-a-hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA",
	} {
		if _, _, err := h.Verify("irrelevant", bad); err != security.ErrInvalidHash {
			t.Fatalf("%q: expected ErrInvalidHash, got %v", bad, err)
		}
	}
}

func TestHashPasswordLengthBounds(t *testing.T) {
	h := security.NewPasswordHasher(cheap)
	if _, err := h.Hash("short"); err != security.ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}
	// eight accented characters are sixteen bytes but still eight characters
	if _, err := h.Hash("áéíóúñüç"); err != nil {
		t.Fatalf("expected eight runes to pass, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("a", security.MaxPasswordLength+1)); err != security.ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestBurnDoesNotPanic(t *testing.T) {
	security.NewPasswordHasher(cheap).Burn("whatever-password")
}
