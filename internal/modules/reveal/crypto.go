package reveal

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// Sealed blobs are anonymous NaCl boxes: the sender's ephemeral key rides in
// the blob, so only the recipient key is needed to address one.

// DecodeKey parses a base64 (RawURL) curve25519 key.
func DecodeKey(encoded string) (*[32]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("decode key: want 32 bytes, got %d", len(raw))
	}
	key := new([32]byte)
	copy(key[:], raw)
	return key, nil
}

// EncodeKey renders a curve25519 key as base64 (RawURL).
func EncodeKey(key *[32]byte) string {
	return base64.RawURLEncoding.EncodeToString(key[:])
}

// Seal encrypts plaintext so that only the holder of the matching private
// key can open it.
func Seal(plaintext []byte, recipientPublicKey *[32]byte) ([]byte, error) {
	sealed, err := box.SealAnonymous(nil, plaintext, recipientPublicKey, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	return sealed, nil
}

// Open decrypts a sealed blob with the recipient's key pair.
func Open(sealed []byte, recipientPublicKey, recipientPrivateKey *[32]byte) ([]byte, error) {
	plaintext, ok := box.OpenAnonymous(nil, sealed, recipientPublicKey, recipientPrivateKey)
	if !ok {
		return nil, fmt.Errorf("open sealed blob: decryption failed")
	}
	return plaintext, nil
}

// PublicKeyFor derives the public half of a curve25519 private key.
func PublicKeyFor(privateKey *[32]byte) *[32]byte {
	publicKey := new([32]byte)
	curve25519.ScalarBaseMult(publicKey, privateKey)
	return publicKey
}

// GenerateKeyPair creates a fresh curve25519 key pair.
func GenerateKeyPair() (publicKey, privateKey *[32]byte, err error) {
	return box.GenerateKey(rand.Reader)
}
