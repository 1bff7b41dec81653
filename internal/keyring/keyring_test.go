package keyring

import (
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestPasswordLifecycle(t *testing.T) {
	keyring.MockInit()

	archive := filepath.Join(t.TempDir(), "backup.tar.zst.enc")
	if HasPassword(archive) {
		t.Fatal("password present before save")
	}

	if err := SavePassword(archive, "s3cret"); err != nil {
		t.Fatalf("Failed to save password: %v", err)
	}
	got, err := GetPassword(archive)
	if err != nil || got != "s3cret" {
		t.Fatalf("GetPassword = %q, %v", got, err)
	}

	if err := DeletePassword(archive); err != nil {
		t.Fatalf("Failed to delete password: %v", err)
	}
	if HasPassword(archive) {
		t.Error("password still present after delete")
	}
}

func TestKeyIsAbsolute(t *testing.T) {
	if k := Key("rel/out.zip"); !filepath.IsAbs(k) {
		t.Errorf("Key = %q, want absolute path", k)
	}
}
