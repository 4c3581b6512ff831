package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-vault/core"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// CryptoVersion is the only envelope version this package seals and opens.
const CryptoVersion = "0.4"

// DefaultSharedSecret derives the fixed sender identity used by every
// envelope. The service wire format depends on it.
const DefaultSharedSecret = "vault.e2e.shared-secret"

const (
	keySize   = 32
	nonceSize = 24
)

// CryptoObject is the sealed payload exchanged with the vault service.
type CryptoObject struct {
	Value   string `json:"value"`
	Nonce   string `json:"nonce"`
	Version string `json:"version"`
}

// CipherObject carries the decrypting party's secret. Cipher is a raw
// passphrase unless IsHashed is set, in which case it is the lowercase hex
// SHA-256 digest of that passphrase.
type CipherObject struct {
	Cipher   string `json:"cipher"`
	IsHashed bool   `json:"isHashed,omitempty"`
}

// Envelope seals and opens CryptoObjects. The zero value uses
// DefaultSharedSecret and crypto/rand.
type Envelope struct {
	SharedSecret string
	Random       io.Reader
}

func NewEnvelope(sharedSecret string) Envelope {
	return Envelope{SharedSecret: strings.TrimSpace(sharedSecret)}
}

var defaultEnvelope = Envelope{}

// Encrypt seals text for recipientPublicKeyHex with the default envelope.
func Encrypt(text string, recipientPublicKeyHex string) (CryptoObject, error) {
	return defaultEnvelope.Encrypt(text, recipientPublicKeyHex)
}

// Decrypt opens obj with the default envelope.
func Decrypt(obj CryptoObject, cipher CipherObject) (string, error) {
	return defaultEnvelope.Decrypt(obj, cipher)
}

func (e Envelope) Encrypt(text string, recipientPublicKeyHex string) (CryptoObject, error) {
	recipient, err := decodeKey(recipientPublicKeyHex)
	if err != nil {
		return CryptoObject{}, fmt.Errorf("security: recipient public key: %w", err)
	}
	sender := hashSecret(e.sharedSecret())

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(e.random(), nonce[:]); err != nil {
		return CryptoObject{}, fmt.Errorf("security: nonce generation failed: %w", err)
	}

	sealed := box.Seal(nil, []byte(text), &nonce, &recipient, &sender)
	return CryptoObject{
		Value:   hex.EncodeToString(sealed),
		Nonce:   hex.EncodeToString(nonce[:]),
		Version: CryptoVersion,
	}, nil
}

func (e Envelope) Decrypt(obj CryptoObject, cipher CipherObject) (string, error) {
	if obj.Version != "" && obj.Version != CryptoVersion {
		return "", &core.VersionMismatchError{Got: obj.Version, Want: CryptoVersion}
	}

	private, err := cipherScalar(cipher)
	if err != nil {
		return "", &core.DecryptionError{Message: "invalid cipher", Cause: err}
	}
	public, err := derivePublic(private)
	if err != nil {
		return "", &core.DecryptionError{Message: "derive public key", Cause: err}
	}

	sealed, err := hex.DecodeString(obj.Value)
	if err != nil {
		return "", &core.DecryptionError{Message: "decode value", Cause: err}
	}
	rawNonce, err := hex.DecodeString(obj.Nonce)
	if err != nil {
		return "", &core.DecryptionError{Message: "decode nonce", Cause: err}
	}
	if len(rawNonce) != nonceSize {
		return "", &core.DecryptionError{Message: fmt.Sprintf("nonce must be %d bytes, got %d", nonceSize, len(rawNonce))}
	}
	var nonce [nonceSize]byte
	copy(nonce[:], rawNonce)

	opened, ok := box.Open(nil, sealed, &nonce, &public, &private)
	if !ok {
		return "", &core.DecryptionError{Message: "authentication failed"}
	}
	return string(opened), nil
}

// DerivePublicKey returns the lowercase hex public key matching secret.
func DerivePublicKey(secret string) (string, error) {
	public, err := derivePublic(hashSecret(secret))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(public[:]), nil
}

// HashCipher returns the digest form accepted by CipherObject.IsHashed.
func HashCipher(passphrase string) string {
	sum := hashSecret(passphrase)
	return hex.EncodeToString(sum[:])
}

// IsEncrypted reports whether item has the CryptoObject shape: value and
// nonce non-empty lowercase hex, version present. Version content is not
// checked here.
func IsEncrypted(item any) bool {
	switch typed := item.(type) {
	case CryptoObject:
		return isEncryptedFields(typed.Value, typed.Nonce, typed.Version)
	case *CryptoObject:
		if typed == nil {
			return false
		}
		return isEncryptedFields(typed.Value, typed.Nonce, typed.Version)
	case map[string]any:
		value, _ := typed["value"].(string)
		nonce, _ := typed["nonce"].(string)
		version, _ := typed["version"].(string)
		return isEncryptedFields(value, nonce, version)
	case map[string]string:
		return isEncryptedFields(typed["value"], typed["nonce"], typed["version"])
	case string:
		return isEncryptedJSON([]byte(typed))
	case []byte:
		return isEncryptedJSON(typed)
	default:
		return false
	}
}

// AsCryptoObject converts a decoded JSON value into a CryptoObject when it
// has the envelope shape.
func AsCryptoObject(item any) (CryptoObject, bool) {
	if !IsEncrypted(item) {
		return CryptoObject{}, false
	}
	switch typed := item.(type) {
	case CryptoObject:
		return typed, true
	case *CryptoObject:
		return *typed, true
	case map[string]any:
		return CryptoObject{
			Value:   typed["value"].(string),
			Nonce:   typed["nonce"].(string),
			Version: typed["version"].(string),
		}, true
	case map[string]string:
		return CryptoObject{Value: typed["value"], Nonce: typed["nonce"], Version: typed["version"]}, true
	case string:
		return decodeCryptoObject([]byte(typed))
	case []byte:
		return decodeCryptoObject(typed)
	}
	return CryptoObject{}, false
}

func isEncryptedJSON(raw []byte) bool {
	obj, ok := decodeCryptoObject(raw)
	if !ok {
		return false
	}
	return isEncryptedFields(obj.Value, obj.Nonce, obj.Version)
}

func decodeCryptoObject(raw []byte) (CryptoObject, bool) {
	obj := CryptoObject{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return CryptoObject{}, false
	}
	return obj, true
}

func isEncryptedFields(value string, nonce string, version string) bool {
	return isLowerHex(value) && isLowerHex(nonce) && version != ""
}

func isLowerHex(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

func (e Envelope) sharedSecret() string {
	if strings.TrimSpace(e.SharedSecret) == "" {
		return DefaultSharedSecret
	}
	return e.SharedSecret
}

func (e Envelope) random() io.Reader {
	if e.Random == nil {
		return rand.Reader
	}
	return e.Random
}

func cipherScalar(cipher CipherObject) ([keySize]byte, error) {
	if !cipher.IsHashed {
		return hashSecret(cipher.Cipher), nil
	}
	return decodeKey(cipher.Cipher)
}

func hashSecret(secret string) [keySize]byte {
	return sha256.Sum256([]byte(secret))
}

func derivePublic(private [keySize]byte) ([keySize]byte, error) {
	var public [keySize]byte
	derived, err := curve25519.X25519(private[:], curve25519.Basepoint)
	if err != nil {
		return public, err
	}
	copy(public[:], derived)
	return public, nil
}

func decodeKey(value string) ([keySize]byte, error) {
	var key [keySize]byte
	raw, err := hex.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return key, fmt.Errorf("decode hex key: %w", err)
	}
	if len(raw) != keySize {
		return key, fmt.Errorf("key must be %d bytes, got %d", keySize, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}
