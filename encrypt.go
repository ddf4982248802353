package onestore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Encryption errors.
var (
	ErrInvalidKeySize  = errors.New("invalid key size")
	ErrCiphertextShort = errors.New("ciphertext too short")
)

// storageKeySalt is fixed rather than random: the derived key must be
// reproducible from secretForStorageKey alone across process restarts, with
// no separate salt file to lose. Argon2id with a fixed salt still resists
// brute force far better than using the secret directly as an AES key.
var storageKeySalt = []byte("onestore/secretForStorageKey/v1")

// DeriveStorageKey stretches secretForStorageKey into a 32-byte AES-256 key
// via Argon2id, the same KDF primitive used elsewhere in the ecosystem for
// password hashing, applied here to key derivation instead.
func DeriveStorageKey(secret []byte) []byte {
	return argon2.IDKey(secret, storageKeySalt, 1, 64*1024, 4, 32)
}

// Encryptor handles at-rest encryption/decryption of stored bytes.
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// aesEncryptor implements AES-GCM symmetric encryption with a deterministic,
// content-derived nonce: the store is content-addressed and relies on
// identical plaintext always sealing to identical ciphertext (adapter's
// WriteOnce compares raw stored bytes for its idempotent-rewrite check), so
// a randomized nonce per call is not an option here.
type aesEncryptor struct {
	key []byte
	gcm cipher.AEAD
}

// AES returns an AES-GCM encryptor. Key must be 16, 24, or 32 bytes.
func AES(key []byte) (Encryptor, error) {
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return nil, fmt.Errorf("%w: must be 16, 24, or 32 bytes, got %d", ErrInvalidKeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &aesEncryptor{key: key, gcm: gcm}, nil
}

// deriveNonce computes HMAC-SHA256(key, plaintext) truncated to the GCM
// nonce size. Keying the MAC (rather than hashing plaintext alone) keeps the
// nonce - and therefore any cross-ciphertext equality it leaks - bound to
// the storage key: two different plaintexts collide only via an HMAC-SHA256
// collision, which is the same margin a random 96-bit nonce would need to
// avoid reuse, so determinism does not weaken the scheme.
func (e *aesEncryptor) deriveNonce(plaintext []byte) []byte {
	mac := hmac.New(sha256.New, e.key)
	mac.Write(plaintext)
	return mac.Sum(nil)[:e.gcm.NonceSize()]
}

func (e *aesEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := e.deriveNonce(plaintext)
	return e.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (e *aesEncryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	nonceSize := e.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrCiphertextShort
	}

	nonce, rest := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, rest, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

// NewSecretEncryptor derives a storage key from secret and returns an
// Encryptor ready to wrap the four logical storage spaces.
func NewSecretEncryptor(secret []byte) (Encryptor, error) {
	return AES(DeriveStorageKey(secret))
}
