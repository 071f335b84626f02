package vault

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestPutGetList(t *testing.T) {
	v, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open vault: %v", err)
	}

	if err := v.Put("snapshots/a.json", []byte(`{"id":"a"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := v.Put("snapshots/b.json", []byte(`{"id":"b"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := v.Put("other.txt", []byte("x")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	data, err := v.Get("snapshots/a.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(data) != `{"id":"a"}` {
		t.Errorf("Get = %s", data)
	}

	keys, err := v.List("snapshots/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"snapshots/a.json", "snapshots/b.json"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("List = %v, want %v", keys, want)
	}

	if err := v.Delete("snapshots/a.json"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := v.Get("snapshots/a.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := v.Delete("snapshots/a.json"); err != nil {
		t.Errorf("Deleting a missing blob should succeed, got %v", err)
	}
}

func TestInvalidKeys(t *testing.T) {
	v, _ := Open(t.TempDir())

	for _, key := range []string{"", ".", "../escape", "/etc/passwd", "a/../../b", sealedMarker, checkBlob} {
		if err := v.Put(key, []byte("x")); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q) = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestSealUnsealRoundtrip(t *testing.T) {
	dir := t.TempDir()
	v, _ := Open(dir)

	original := []byte("Date,Card Brand,Amount\n2024-01-01,Visa,100.00\n")
	if err := v.Put("snapshots/s1.json", original); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	passphrase := "salon-passphrase"
	if err := v.Seal(passphrase); err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if !v.IsSealed() {
		t.Error("Expected IsSealed() to return true")
	}

	raw, _ := os.ReadFile(filepath.Join(dir, "snapshots", "s1.json"))
	if !isSealed(raw) {
		t.Error("Blob should be encrypted on disk")
	}

	got, err := v.Get("snapshots/s1.json")
	if err != nil {
		t.Fatalf("Get after seal failed: %v", err)
	}
	if string(got) != string(original) {
		t.Errorf("Content mismatch after seal: got %q", got)
	}

	// A reopened vault starts locked
	reopened, _ := Open(dir)
	if reopened.IsUnlocked() {
		t.Error("Reopened sealed vault should be locked")
	}
	if _, err := reopened.Get("snapshots/s1.json"); !errors.Is(err, ErrLocked) {
		t.Errorf("Expected ErrLocked, got %v", err)
	}
	if err := reopened.Put("snapshots/s2.json", []byte("x")); !errors.Is(err, ErrLocked) {
		t.Errorf("Expected ErrLocked on write, got %v", err)
	}
	if err := reopened.Unlock(passphrase); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if got, _ := reopened.Get("snapshots/s1.json"); string(got) != string(original) {
		t.Errorf("Content mismatch after unlock")
	}

	if err := reopened.Unseal(passphrase); err != nil {
		t.Fatalf("Unseal failed: %v", err)
	}
	raw, _ = os.ReadFile(filepath.Join(dir, "snapshots", "s1.json"))
	if string(raw) != string(original) {
		t.Error("Blob should be plaintext on disk after unseal")
	}
}

func TestWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	v, _ := Open(dir)
	if err := v.Seal("correct-passphrase"); err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	v.Lock()

	if err := v.Unlock("wrong-passphrase"); !errors.Is(err, ErrBadPassphrase) {
		t.Errorf("Expected ErrBadPassphrase, got %v", err)
	}
	if err := v.Unseal("wrong-passphrase"); !errors.Is(err, ErrBadPassphrase) {
		t.Errorf("Expected ErrBadPassphrase from Unseal, got %v", err)
	}
}

func TestPassphraseTooShort(t *testing.T) {
	v, _ := Open(t.TempDir())
	if err := v.Seal("short"); !errors.Is(err, ErrPassphraseTooShort) {
		t.Errorf("Expected ErrPassphraseTooShort, got %v", err)
	}
}

func TestMixedBlobsReadableWhenUnlocked(t *testing.T) {
	dir := t.TempDir()
	v, _ := Open(dir)
	if err := v.Seal("testpassword123"); err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	// Plaintext dropped in after sealing
	os.MkdirAll(filepath.Join(dir, "snapshots"), 0700)
	os.WriteFile(filepath.Join(dir, "snapshots", "plain.json"), []byte("{}"), 0600)
	if err := v.Put("snapshots/sealed.json", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if got, err := v.Get("snapshots/plain.json"); err != nil || string(got) != "{}" {
		t.Errorf("Plain blob = %q, %v", got, err)
	}
	if got, err := v.Get("snapshots/sealed.json"); err != nil || string(got) != `{"a":1}` {
		t.Errorf("Sealed blob = %q, %v", got, err)
	}

	keys, _ := v.List("")
	for _, k := range keys {
		if k == sealedMarker || k == checkBlob {
			t.Errorf("List should hide %s", k)
		}
	}
}
