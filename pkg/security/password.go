package security

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

var ErrHashingFailed = errors.New("password hashing failed")

// Algorithm tags the hash function a credential was stored under. The tag is
// persisted per record so old hashes keep verifying after the deployment
// default changes; only a password change rehashes under the new algorithm.
type Algorithm string

const (
	// AlgorithmPBKDF2 is the legacy KDF: PBKDF2-SHA512 with an explicit,
	// separately stored salt.
	AlgorithmPBKDF2 Algorithm = "pbkdf2"
	// AlgorithmBcrypt embeds its salt in the encoded hash; the separate
	// salt field stays empty for records stored under it.
	AlgorithmBcrypt Algorithm = "bcrypt"
)

const (
	pbkdf2SaltBytes   = 16
	pbkdf2KeyBytes    = 64
	minIterations     = 10000
	defaultIterations = 27500
)

// algorithmHasher is one entry in the dispatch table. Adding an algorithm
// means adding a variant here, not touching call sites.
type algorithmHasher interface {
	hash(password, salt string) (string, error)
	verify(password, storedHash, salt string) bool
	generateSalt() (string, error)
}

// HasherConfig tunes the registered algorithms.
type HasherConfig struct {
	DefaultAlgorithm Algorithm
	BcryptCost       int
	PBKDF2Iterations int
}

// PasswordHasher dispatches hash and verify calls on the per-record
// algorithm tag.
type PasswordHasher struct {
	algorithms map[Algorithm]algorithmHasher
	defaultAlg Algorithm
}

// NewPasswordHasher builds the dispatch table for all supported algorithms.
func NewPasswordHasher(cfg HasherConfig) *PasswordHasher {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	iterations := cfg.PBKDF2Iterations
	if iterations == 0 {
		iterations = defaultIterations
	}
	if iterations < minIterations {
		iterations = minIterations
	}

	def := cfg.DefaultAlgorithm
	if def == "" {
		def = AlgorithmBcrypt
	}

	return &PasswordHasher{
		algorithms: map[Algorithm]algorithmHasher{
			AlgorithmPBKDF2: &pbkdf2Hasher{iterations: iterations},
			AlgorithmBcrypt: &bcryptHasher{cost: cost},
		},
		defaultAlg: def,
	}
}

// Default returns the algorithm new passwords are hashed under when the
// caller does not choose one explicitly.
func (h *PasswordHasher) Default() Algorithm {
	return h.defaultAlg
}

// Hash produces the stored form of password. An empty password is a no-op
// returning the input unchanged; callers treat an empty stored hash as "no
// password set".
func (h *PasswordHasher) Hash(password, salt string, alg Algorithm) (string, error) {
	if password == "" {
		return password, nil
	}

	impl, ok := h.algorithms[alg]
	if !ok {
		return "", fmt.Errorf("unsupported algorithm %q: %w", alg, ErrHashingFailed)
	}
	return impl.hash(password, salt)
}

// Verify reports whether password matches the stored hash under the tagged
// algorithm. Any missing input or unknown algorithm is a plain false.
func (h *PasswordHasher) Verify(password, storedHash, salt string, alg Algorithm) bool {
	if password == "" || storedHash == "" {
		return false
	}

	impl, ok := h.algorithms[alg]
	if !ok {
		return false
	}
	return impl.verify(password, storedHash, salt)
}

// GenerateSalt produces a fresh salt for alg. Algorithms that embed their
// salt in the hash return an empty string.
func (h *PasswordHasher) GenerateSalt(alg Algorithm) (string, error) {
	impl, ok := h.algorithms[alg]
	if !ok {
		return "", fmt.Errorf("unsupported algorithm %q: %w", alg, ErrHashingFailed)
	}
	return impl.generateSalt()
}

type pbkdf2Hasher struct {
	iterations int
}

func (p *pbkdf2Hasher) hash(password, salt string) (string, error) {
	if salt == "" {
		return password, nil
	}

	saltBytes, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return "", fmt.Errorf("invalid salt encoding: %w", err)
	}

	key := pbkdf2.Key([]byte(password), saltBytes, p.iterations, pbkdf2KeyBytes, sha512.New)
	return base64.StdEncoding.EncodeToString(key), nil
}

func (p *pbkdf2Hasher) verify(password, storedHash, salt string) bool {
	saltBytes, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return false
	}
	expected, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil {
		return false
	}

	// Full re-derivation plus constant-time compare; no short-circuit on
	// the first differing byte.
	derived := pbkdf2.Key([]byte(password), saltBytes, p.iterations, pbkdf2KeyBytes, sha512.New)
	return subtle.ConstantTimeCompare(derived, expected) == 1
}

func (p *pbkdf2Hasher) generateSalt() (string, error) {
	salt := make([]byte, pbkdf2SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt generation: %w", err)
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

type bcryptHasher struct {
	cost int
}

func (b *bcryptHasher) hash(password, _ string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", ErrHashingFailed
	}
	return string(bytes), nil
}

func (b *bcryptHasher) verify(password, storedHash, _ string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}

func (b *bcryptHasher) generateSalt() (string, error) {
	// bcrypt generates and embeds its own salt.
	return "", nil
}
