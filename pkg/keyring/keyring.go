package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/zalando/go-keyring"
)

// FileKeyring implements a file-based keyring for headless servers
// where no system keyring daemon is available.
type FileKeyring struct {
	path      string
	masterKey []byte
}

// Entry represents a stored keyring entry.
type Entry struct {
	Service string `json:"service"`
	User    string `json:"user"`
	Data    string `json:"data"` // encrypted data
}

// Manager provides a unified interface for keyring operations.
// It prefers the system keyring and falls back to a file keyring.
type Manager struct {
	fileKeyring *FileKeyring
	useFile     bool
}

// NewManager creates a keyring manager. The system keyring is probed with a
// short-lived test entry; if the probe fails or hangs the file keyring at
// keyringPath takes over.
func NewManager(keyringPath, masterPassword string) *Manager {
	const (
		probeService = "dbbridge-probe"
		probeUser    = "probe"
	)

	// Probe in a goroutine so a hung keyring daemon cannot block startup.
	done := make(chan error, 1)
	go func() {
		err := keyring.Set(probeService, probeUser, "ok")
		if err == nil {
			keyring.Delete(probeService, probeUser)
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			return &Manager{useFile: false}
		}
	case <-time.After(5 * time.Second):
	}

	return &Manager{
		fileKeyring: NewFileKeyring(keyringPath, masterPassword),
		useFile:     true,
	}
}

// NewFileKeyring creates a file-based keyring rooted at keyringPath.
// The encryption key is derived from the master password.
func NewFileKeyring(keyringPath, masterPassword string) *FileKeyring {
	os.MkdirAll(filepath.Dir(keyringPath), 0700)

	hash := sha256.Sum256([]byte(masterPassword))

	return &FileKeyring{
		path:      keyringPath,
		masterKey: hash[:],
	}
}

// Set stores a value in the keyring (system or file).
func (m *Manager) Set(service, user, value string) error {
	if !m.useFile {
		return keyring.Set(service, user, value)
	}
	return m.fileKeyring.Set(service, user, value)
}

// Get retrieves a value from the keyring (system or file).
func (m *Manager) Get(service, user string) (string, error) {
	if !m.useFile {
		return keyring.Get(service, user)
	}
	return m.fileKeyring.Get(service, user)
}

// Delete removes a value from the keyring (system or file).
func (m *Manager) Delete(service, user string) error {
	if !m.useFile {
		return keyring.Delete(service, user)
	}
	return m.fileKeyring.Delete(service, user)
}

// encrypt encrypts plaintext using AES-GCM under the derived master key.
func (fk *FileKeyring) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(fk.masterKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts ciphertext produced by encrypt.
func (fk *FileKeyring) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(fk.masterKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce := data[:nonceSize]
	plaintext, err := gcm.Open(nil, nonce, data[nonceSize:], nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

// load reads the entry map from disk. A missing file yields an empty map.
func (fk *FileKeyring) load() (map[string]Entry, error) {
	entries := make(map[string]Entry)

	data, err := os.ReadFile(fk.path)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// save writes the entry map to disk with restrictive permissions.
func (fk *FileKeyring) save(entries map[string]Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return os.WriteFile(fk.path, data, 0600)
}

// Set stores an entry in the file keyring.
func (fk *FileKeyring) Set(service, user, value string) error {
	entries, err := fk.load()
	if err != nil {
		return err
	}

	encrypted, err := fk.encrypt(value)
	if err != nil {
		return err
	}

	entries[entryKey(service, user)] = Entry{
		Service: service,
		User:    user,
		Data:    encrypted,
	}

	return fk.save(entries)
}

// Get retrieves an entry from the file keyring.
func (fk *FileKeyring) Get(service, user string) (string, error) {
	entries, err := fk.load()
	if err != nil {
		return "", err
	}

	entry, exists := entries[entryKey(service, user)]
	if !exists {
		return "", fmt.Errorf("keyring entry not found for %s:%s", service, user)
	}

	return fk.decrypt(entry.Data)
}

// Delete removes an entry from the file keyring. Deleting a missing entry
// is not an error.
func (fk *FileKeyring) Delete(service, user string) error {
	entries, err := fk.load()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	delete(entries, entryKey(service, user))
	return fk.save(entries)
}

func entryKey(service, user string) string {
	return fmt.Sprintf("%s:%s", service, user)
}

// MasterPasswordFromEnv returns the file-keyring master password from the
// environment, or a development default.
func MasterPasswordFromEnv() string {
	if password := os.Getenv("DBBRIDGE_KEYRING_PASSWORD"); password != "" {
		return password
	}
	// Default password for development (change this in production!)
	return "default-master-password-change-me"
}

// DefaultPath returns the default keyring file path. The
// DBBRIDGE_KEYRING_PATH environment variable overrides it.
func DefaultPath() string {
	if path := os.Getenv("DBBRIDGE_KEYRING_PATH"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/dbbridge-keyring.json"
	}
	return filepath.Join(homeDir, ".local", "share", "dbbridge", "keyring.json")
}
