// Package encryption provides the credential vault: AES-256-GCM encryption
// of stored database credentials under a process-wide master key.
//
// The master key is resolved once per process: an explicitly configured hex
// key wins, then a key persisted by a prior run, and finally a freshly
// generated key that is persisted for the next run. Persistence goes through
// the system keyring with a file keyring fallback.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/tvgelderen/dbbridge/pkg/keyring"
	"github.com/tvgelderen/dbbridge/pkg/logger"
)

const (
	// KeyringService is the keyring service name for vault secrets.
	KeyringService = "dbbridge-security"
	// MasterKeyName is the keyring entry holding the persisted master key.
	MasterKeyName = "credential-master-key"

	// AlgorithmAESGCM identifies the only supported secret algorithm.
	AlgorithmAESGCM = "aes-256-gcm"
	// SecretVersion is the current secret format version.
	SecretVersion = 1

	// MasterKeyEnv configures an explicit master key (64 hex characters).
	MasterKeyEnv = "DBBRIDGE_MASTER_KEY"

	keySize = 32
)

// EncryptedSecret is the storable form of an encrypted credential. The
// ciphertext is base64 of nonce || auth tag || ciphertext.
type EncryptedSecret struct {
	Ciphertext string `json:"ciphertext"`
	Algorithm  string `json:"algorithm"`
	Version    int    `json:"version"`
}

// KeyStore persists the master key between runs. Both the keyring manager
// and the file keyring satisfy it.
type KeyStore interface {
	Set(service, user, value string) error
	Get(service, user string) (string, error)
}

// Vault encrypts and decrypts credentials under a lazily resolved master key.
type Vault struct {
	store  KeyStore
	logger *logger.Logger
	hexKey string

	mu  sync.Mutex
	key []byte
}

// NewVault creates a vault backed by the given key store. The explicit key,
// if any, comes from the DBBRIDGE_MASTER_KEY environment variable.
func NewVault(store KeyStore, log *logger.Logger) *Vault {
	return NewVaultWithKey(store, log, os.Getenv(MasterKeyEnv))
}

// NewVaultWithKey creates a vault with an explicitly configured hex key,
// typically sourced from configuration. An empty key falls back to the
// environment variable.
func NewVaultWithKey(store KeyStore, log *logger.Logger, hexKey string) *Vault {
	if hexKey == "" {
		hexKey = os.Getenv(MasterKeyEnv)
	}
	return &Vault{
		store:  store,
		logger: log,
		hexKey: hexKey,
	}
}

var (
	defaultVault *Vault
	defaultOnce  sync.Once
)

// Default returns the process-wide vault, created on first use. It persists
// its master key through the system keyring, falling back to the file
// keyring on headless hosts.
func Default() *Vault {
	defaultOnce.Do(func() {
		km := keyring.NewManager(keyring.DefaultPath(), keyring.MasterPasswordFromEnv())
		defaultVault = NewVault(km, logger.New("encryption", "1.0"))
	})
	return defaultVault
}

// EncryptCredential encrypts a credential with the process-wide vault.
func EncryptCredential(plaintext string) (EncryptedSecret, error) {
	return Default().EncryptCredential(plaintext)
}

// DecryptCredential decrypts a credential with the process-wide vault.
func DecryptCredential(secret EncryptedSecret) (string, error) {
	return Default().DecryptCredential(secret)
}

// resolveKey resolves the master key once and caches it. Chain: explicitly
// configured hex key, then the persisted key from a prior run, then a fresh
// key persisted for the next run. A configured key of the wrong length is
// logged and treated as absent.
func (v *Vault) resolveKey() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.key != nil {
		return v.key, nil
	}

	if v.hexKey != "" {
		key, err := hex.DecodeString(strings.TrimSpace(v.hexKey))
		if err == nil && len(key) == keySize {
			v.key = key
			return v.key, nil
		}
		v.warnf("configured master key is not %d hex-encoded bytes, ignoring it", keySize)
	}

	if stored, err := v.store.Get(KeyringService, MasterKeyName); err == nil {
		key, err := hex.DecodeString(stored)
		if err == nil && len(key) == keySize {
			v.key = key
			return v.key, nil
		}
		v.warnf("persisted master key is malformed, generating a new one")
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	if err := v.store.Set(KeyringService, MasterKeyName, hex.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("failed to persist master key: %w", err)
	}

	v.key = key
	return v.key, nil
}

func (v *Vault) warnf(format string, args ...interface{}) {
	if v.logger != nil {
		v.logger.Warnf(format, args...)
	}
}

// EncryptCredential encrypts a plaintext credential with AES-256-GCM. A
// fresh random nonce is generated on every call.
func (v *Vault) EncryptCredential(plaintext string) (EncryptedSecret, error) {
	key, err := v.resolveKey()
	if err != nil {
		return EncryptedSecret{}, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return EncryptedSecret{}, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return EncryptedSecret{}, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return EncryptedSecret{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends the auth tag to the ciphertext; the stored layout is
	// nonce || tag || ciphertext.
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	tagStart := len(sealed) - gcm.Overhead()

	payload := make([]byte, 0, len(nonce)+len(sealed))
	payload = append(payload, nonce...)
	payload = append(payload, sealed[tagStart:]...)
	payload = append(payload, sealed[:tagStart]...)

	return EncryptedSecret{
		Ciphertext: base64.StdEncoding.EncodeToString(payload),
		Algorithm:  AlgorithmAESGCM,
		Version:    SecretVersion,
	}, nil
}

// DecryptCredential decrypts an encrypted credential. It fails closed: an
// unknown algorithm, an unknown version, or an authentication failure each
// produce an error and no plaintext.
func (v *Vault) DecryptCredential(secret EncryptedSecret) (string, error) {
	if secret.Algorithm != AlgorithmAESGCM {
		return "", fmt.Errorf("unsupported secret algorithm: %q", secret.Algorithm)
	}
	if secret.Version != SecretVersion {
		return "", fmt.Errorf("unsupported secret version: %d", secret.Version)
	}

	payload, err := base64.StdEncoding.DecodeString(secret.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("malformed ciphertext: %w", err)
	}

	key, err := v.resolveKey()
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	tagSize := gcm.Overhead()
	if len(payload) < nonceSize+tagSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce := payload[:nonceSize]
	tag := payload[nonceSize : nonceSize+tagSize]
	ciphertext := payload[nonceSize+tagSize:]

	// Open expects the tag appended to the ciphertext.
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("credential decryption failed: %w", err)
	}

	return string(plaintext), nil
}
