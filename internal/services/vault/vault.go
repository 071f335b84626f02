// Package vault keeps upload snapshots on disk, optionally sealed with an
// age passphrase.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"filippo.io/age"
)

const (
	ageHeader = "age-encryption.org"

	sealedMarker = ".sealed"
	checkBlob    = ".seal-check"
	checkMagic   = `{"magic":"salonrecon-vault","version":1}`

	// MinPassphraseLength applies to Seal
	MinPassphraseLength = 8
)

var (
	ErrNotFound           = errors.New("blob not found")
	ErrLocked             = errors.New("vault is sealed and locked")
	ErrBadPassphrase      = errors.New("incorrect passphrase")
	ErrPassphraseTooShort = fmt.Errorf("passphrase must be at least %d characters", MinPassphraseLength)
	ErrInvalidKey         = errors.New("invalid blob key")
)

// Vault is a directory of blobs addressed by slash-separated keys
type Vault struct {
	dir       string
	sealed    bool
	identity  *age.ScryptIdentity
	recipient *age.ScryptRecipient
	mu        sync.RWMutex
}

// Open prepares the vault directory and detects whether it is sealed
func Open(dir string) (*Vault, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}

	v := &Vault{dir: dir}
	if _, err := os.Stat(filepath.Join(dir, sealedMarker)); err == nil {
		v.sealed = true
	}
	return v, nil
}

// Dir returns the vault directory
func (v *Vault) Dir() string {
	return v.dir
}

// IsSealed returns true when blobs are written encrypted
func (v *Vault) IsSealed() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.sealed
}

// IsUnlocked returns true when blobs can be read and written
func (v *Vault) IsUnlocked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return !v.sealed || v.identity != nil
}

// Unlock checks the passphrase against the seal check blob and keeps the key in memory
func (v *Vault) Unlock(passphrase string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.sealed {
		return nil
	}

	identity, recipient, err := v.verify(passphrase)
	if err != nil {
		return err
	}
	v.identity = identity
	v.recipient = recipient
	return nil
}

// Lock drops the key
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.identity = nil
	v.recipient = nil
}

// Put writes a blob, encrypting it when the vault is sealed
func (v *Vault) Put(key string, data []byte) error {
	path, err := v.path(key)
	if err != nil {
		return err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.sealed {
		if v.recipient == nil {
			return ErrLocked
		}
		data, err = seal(data, v.recipient)
		if err != nil {
			return fmt.Errorf("failed to encrypt %s: %w", key, err)
		}
	}
	return writeAtomic(path, data)
}

// Get reads a blob. Plaintext blobs are returned as-is even in a sealed vault.
func (v *Vault) Get(key string) ([]byte, error) {
	path, err := v.path(key)
	if err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}

	if !isSealed(data) {
		return data, nil
	}
	if v.identity == nil {
		return nil, ErrLocked
	}
	return open(data, v.identity)
}

// Delete removes a blob. Missing blobs are not an error.
func (v *Vault) Delete(key string) error {
	path, err := v.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the keys under prefix, sorted
func (v *Vault) List(prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(v.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || internalFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(v.dir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list vault: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (v *Vault) path(key string) (string, error) {
	clean := filepath.ToSlash(filepath.Clean(key))
	if key == "" || clean == "." || strings.HasPrefix(clean, "../") || clean == ".." ||
		filepath.IsAbs(key) || strings.HasPrefix(clean, "/") || internalFile(filepath.Base(clean)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(v.dir, filepath.FromSlash(clean)), nil
}

// internalFile reports marker files and in-flight temp files
func internalFile(name string) bool {
	return name == sealedMarker || name == checkBlob || strings.HasSuffix(name, ".tmp")
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
