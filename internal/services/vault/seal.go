package vault

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"filippo.io/age"
)

// Seal encrypts every existing blob with the passphrase and marks the vault
// sealed. The vault stays unlocked afterwards.
func (v *Vault) Seal(passphrase string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.sealed {
		return errors.New("vault is already sealed")
	}
	if len(passphrase) < MinPassphraseLength {
		return ErrPassphraseTooShort
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("failed to create recipient: %w", err)
	}
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}

	check, err := seal([]byte(checkMagic), recipient)
	if err != nil {
		return fmt.Errorf("failed to encrypt seal check: %w", err)
	}
	checkPath := filepath.Join(v.dir, checkBlob)
	if err := writeAtomic(checkPath, check); err != nil {
		return fmt.Errorf("failed to write seal check: %w", err)
	}

	paths, err := v.blobPaths()
	if err != nil {
		os.Remove(checkPath)
		return err
	}

	var done []string
	for _, p := range paths {
		if err := rewrite(p, func(data []byte) ([]byte, error) {
			if isSealed(data) {
				return nil, nil
			}
			return seal(data, recipient)
		}); err != nil {
			v.unwind(done, identity)
			os.Remove(checkPath)
			return fmt.Errorf("failed to encrypt %s: %w", filepath.Base(p), err)
		}
		done = append(done, p)
	}

	if err := os.WriteFile(filepath.Join(v.dir, sealedMarker), []byte("sealed"), 0600); err != nil {
		return fmt.Errorf("failed to write seal marker: %w", err)
	}

	v.sealed = true
	v.identity = identity
	v.recipient = recipient
	return nil
}

// Unseal decrypts every blob in place and removes the seal
func (v *Vault) Unseal(passphrase string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.sealed {
		return errors.New("vault is not sealed")
	}

	identity, _, err := v.verify(passphrase)
	if err != nil {
		return err
	}

	paths, err := v.blobPaths()
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := rewrite(p, func(data []byte) ([]byte, error) {
			if !isSealed(data) {
				return nil, nil
			}
			return open(data, identity)
		}); err != nil {
			return fmt.Errorf("failed to decrypt %s: %w", filepath.Base(p), err)
		}
	}

	os.Remove(filepath.Join(v.dir, sealedMarker))
	os.Remove(filepath.Join(v.dir, checkBlob))

	v.sealed = false
	v.identity = nil
	v.recipient = nil
	return nil
}

// verify must be called with mu held
func (v *Vault) verify(passphrase string) (*age.ScryptIdentity, *age.ScryptRecipient, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create identity: %w", err)
	}

	check, err := os.ReadFile(filepath.Join(v.dir, checkBlob))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read seal check: %w", err)
	}
	plain, err := open(check, identity)
	if err != nil || string(plain) != checkMagic {
		return nil, nil, ErrBadPassphrase
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create recipient: %w", err)
	}
	return identity, recipient, nil
}

func (v *Vault) blobPaths() ([]string, error) {
	keys, err := v.List("")
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(keys))
	for i, k := range keys {
		paths[i] = filepath.Join(v.dir, filepath.FromSlash(k))
	}
	return paths, nil
}

// unwind decrypts blobs sealed during a failed Seal
func (v *Vault) unwind(paths []string, identity *age.ScryptIdentity) {
	for _, p := range paths {
		err := rewrite(p, func(data []byte) ([]byte, error) {
			if !isSealed(data) {
				return nil, nil
			}
			return open(data, identity)
		})
		if err != nil {
			log.Printf("Warning: could not restore %s: %v", p, err)
		}
	}
}

// rewrite replaces a file with fn(contents). A nil result leaves it untouched.
func rewrite(path string, fn func([]byte) ([]byte, error)) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out, err := fn(data)
	if err != nil || out == nil {
		return err
	}
	return writeAtomic(path, out)
}

func isSealed(data []byte) bool {
	return bytes.HasPrefix(data, []byte(ageHeader))
}

func seal(data []byte, recipient *age.ScryptRecipient) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func open(data []byte, identity *age.ScryptIdentity) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
