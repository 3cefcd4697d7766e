// Package crypto implements the encryption gateway: the original text is
// sealed with AES-256-GCM under a PBKDF2-derived key so a masked document can
// be restored later from its side-channel payload.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/docshield/docshield/internal/errs"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltLength is the PBKDF2 salt size in bytes.
	SaltLength = 16
	// NonceLength is the GCM nonce size in bytes.
	NonceLength = 12
	// KeyLength is the derived AES key size in bytes.
	KeyLength = 32
	// Iterations is the PBKDF2-SHA256 iteration count.
	Iterations = 120000
	// PayloadVersion is written into every restore payload.
	PayloadVersion = "2.0"
)

// userFacingCryptoError is the single message surfaced for any decryption
// failure; it never distinguishes a wrong password from corruption.
const userFacingCryptoError = "restore file is corrupted or the password is wrong"

// RestorePayload is the persisted JSON side channel holding the encrypted
// original text and the metadata needed to decrypt it.
type RestorePayload struct {
	Salt           string   `json:"salt"`
	Nonce          string   `json:"nonce"`
	Data           string   `json:"data"`
	CreatedAt      string   `json:"created_at"`
	Version        string   `json:"version"`
	OriginalLength int      `json:"original_length"`
	MaskedKeywords []string `json:"masked_keywords"`
}

// DeriveKey derives the AES key from a password and salt via PBKDF2-SHA256.
func DeriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, Iterations, KeyLength, sha256.New)
}

// Encrypt seals the plaintext under a fresh salt and nonce. No associated
// data is used.
func Encrypt(plaintext, password string, keywords []string) (*RestorePayload, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	nonce := make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	aead, err := newAEAD(DeriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)

	if keywords == nil {
		keywords = []string{}
	}
	return &RestorePayload{
		Salt:           base64.StdEncoding.EncodeToString(salt),
		Nonce:          base64.StdEncoding.EncodeToString(nonce),
		Data:           base64.StdEncoding.EncodeToString(sealed),
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
		Version:        PayloadVersion,
		OriginalLength: utf8.RuneCountInString(plaintext),
		MaskedKeywords: keywords,
	}, nil
}

// Decrypt opens a restore payload. Any missing field, invalid base64 or
// failed authentication tag surfaces as one recoverable crypto error.
func Decrypt(payload *RestorePayload, password string) (string, error) {
	if payload == nil || payload.Salt == "" || payload.Nonce == "" || payload.Data == "" {
		return "", errs.Crypto(nil, userFacingCryptoError)
	}

	salt, err := base64.StdEncoding.DecodeString(payload.Salt)
	if err != nil {
		return "", errs.Crypto(err, userFacingCryptoError)
	}
	nonce, err := base64.StdEncoding.DecodeString(payload.Nonce)
	if err != nil {
		return "", errs.Crypto(err, userFacingCryptoError)
	}
	sealed, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		return "", errs.Crypto(err, userFacingCryptoError)
	}
	if len(nonce) != NonceLength {
		return "", errs.Crypto(nil, userFacingCryptoError)
	}

	aead, err := newAEAD(DeriveKey(password, salt))
	if err != nil {
		return "", err
	}
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errs.Crypto(err, userFacingCryptoError)
	}
	return string(plaintext), nil
}

// ParsePayload decodes restore payload JSON, rejecting malformed input as a
// format error before any key derivation happens.
func ParsePayload(data []byte) (*RestorePayload, error) {
	var payload RestorePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errs.Format(err, "restore payload is not valid JSON")
	}
	return &payload, nil
}

// Marshal renders the payload as indented JSON for the restore file.
func (p *RestorePayload) Marshal() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return aead, nil
}
