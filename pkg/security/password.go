package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"

	"github.com/petfinder-app/petfinder-backend/pkg/config"
)

// Password length bounds, counted in characters. The upper bound keeps a
// single login from burning unbounded argon2 time.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

var (
	ErrInvalidHash      = errors.New("invalid argon2id hash")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must be at most %d characters", MaxPasswordLength)
)

const hashPrefix = "$argon2id$v=19$"

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	saltLen uint32
	keyLen  uint32
}

// PasswordHasher hashes account passwords with argon2id using the configured
// cost. Hashes record their own cost, so raising the config only affects new
// hashes until Verify flags old ones for an upgrade.
type PasswordHasher struct {
	params argonParams
	decoy  string
}

func NewPasswordHasher(cfg config.PasswordConfig) *PasswordHasher {
	h := &PasswordHasher{params: argonParams{
		memory:  uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		time:    uint32(clamp(cfg.ArgonTime, 1, 10)),
		threads: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		saltLen: uint32(clamp(cfg.ArgonSaltLen, 8, 64)),
		keyLen:  uint32(clamp(cfg.ArgonKeyLen, 16, 64)),
	}}
	h.decoy, _ = h.Hash("petfinder-decoy-password")
	return h
}

// Hash returns the encoded form $argon2id$v=19$m=..,t=..,p=..$salt$key.
func (h *PasswordHasher) Hash(password string) (string, error) {
	switch n := utf8.RuneCountInString(password); {
	case n < MinPasswordLength:
		return "", ErrPasswordTooShort
	case n > MaxPasswordLength:
		return "", ErrPasswordTooLong
	}
	salt := make([]byte, h.params.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	p := h.params
	key := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
	return fmt.Sprintf("%sm=%d,t=%d,p=%d$%s$%s", hashPrefix, p.memory, p.time, p.threads,
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(key)), nil
}

// Verify reports whether password matches encoded. stale is true on a match
// made with a cost other than the configured one, so the caller can store a
// fresh hash while it still has the plaintext.
func (h *PasswordHasher) Verify(password, encoded string) (ok, stale bool, err error) {
	p, salt, key, err := decode(encoded)
	if err != nil {
		return false, false, err
	}
	if utf8.RuneCountInString(password) > MaxPasswordLength {
		return false, false, nil
	}
	got := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
	if subtle.ConstantTimeCompare(key, got) != 1 {
		return false, false, nil
	}
	return true, p != h.params, nil
}

// Burn spends the same work as a real Verify. Login calls it for unknown
// emails so response time does not reveal which accounts exist.
func (h *PasswordHasher) Burn(password string) {
	_, _, _ = h.Verify(password, h.decoy)
}

func decode(encoded string) (argonParams, []byte, []byte, error) {
	rest, ok := strings.CutPrefix(encoded, hashPrefix)
	if !ok {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 3 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	var p argonParams
	if _, err := fmt.Sscanf(fields[0], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(fields[1])
	if err != nil || len(salt) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(fields[2])
	if err != nil || len(key) == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return argonParams{}, nil, nil, ErrInvalidHash
	}
	p.saltLen, p.keyLen = uint32(len(salt)), uint32(len(key))
	return p, salt, key, nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
