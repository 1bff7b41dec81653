package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Murchiz/Gpucompress/internal/accel"
	"github.com/Murchiz/Gpucompress/internal/archive"
	"github.com/Murchiz/Gpucompress/internal/config"
	"github.com/Murchiz/Gpucompress/internal/core"
	"github.com/Murchiz/Gpucompress/internal/crypto"
	"github.com/Murchiz/Gpucompress/internal/formats"
	"github.com/Murchiz/Gpucompress/internal/logging"
	"github.com/Murchiz/Gpucompress/internal/storage"
)

func TestPasswordErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		needs    bool
		rejected bool
	}{
		{"password required", core.ErrPasswordRequired, true, false},
		{"unrecognized", archive.ErrUnrecognized, true, true},
		{"unrecognized auth", fmt.Errorf("%w: %w", archive.ErrUnrecognized, crypto.ErrAuthFailed), true, true},
		{"accelerator hint", fmt.Errorf("%w: %w", archive.ErrUnrecognized, archive.ErrAcceleratorRequired), false, false},
		{"auth failed", crypto.ErrAuthFailed, false, true},
		{"output exists", core.ErrOutputExists, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := needsPassword(tt.err); got != tt.needs {
				t.Errorf("needsPassword() = %v, want %v", got, tt.needs)
			}
			if got := rejectedPassword(tt.err); got != tt.rejected {
				t.Errorf("rejectedPassword() = %v, want %v", got, tt.rejected)
			}
		})
	}
}

func TestWithPasswordFromEnv(t *testing.T) {
	t.Setenv(core.PasswordEnv, "from-env")
	env := &Env{Config: config.Default(), Log: logging.Logger{}}

	var got string
	err := env.WithPassword("x.tar.zst.enc", false, func(password []byte) error {
		if password == nil {
			return core.ErrPasswordRequired
		}
		got = string(password)
		return nil
	})
	if err != nil {
		t.Fatalf("WithPassword failed: %v", err)
	}
	if got != "from-env" {
		t.Errorf("Expected password from environment, got %q", got)
	}
}

func TestWithPasswordEnvKeepsPlainArchivesReadable(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(input, []byte("plain text"), 0644); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	log := logging.Logger{Out: io.Discard, Err: io.Discard}
	a := core.New(formats.NewRegistry(archive.Options{}), core.Options{Logger: log})
	ctx := context.Background()
	plain := filepath.Join(dir, "notes.tar.zst")
	if _, err := a.Compress(ctx, core.CompressRequest{Inputs: []string{input}, Output: plain}); err != nil {
		t.Fatalf("Failed to compress: %v", err)
	}
	sealed := filepath.Join(dir, "notes.tar.zst.enc")
	if _, err := a.Compress(ctx, core.CompressRequest{Inputs: []string{input}, Output: sealed, Password: []byte("from-env")}); err != nil {
		t.Fatalf("Failed to compress encrypted: %v", err)
	}

	t.Setenv(core.PasswordEnv, "from-env")
	env := &Env{Config: config.Default(), Log: log}
	env.Config.UseKeyring = false

	for _, path := range []string{plain, sealed} {
		var entries []core.EntryInfo
		err := env.WithPassword(path, false, func(password []byte) error {
			var err error
			_, entries, err = a.List(ctx, path, "", password)
			return err
		})
		if err != nil {
			t.Fatalf("Failed to list %s: %v", filepath.Base(path), err)
		}
		if len(entries) != 1 || entries[0].Name != "notes.txt" {
			t.Errorf("Unexpected entries for %s: %+v", filepath.Base(path), entries)
		}
	}
}

func TestWithPasswordPlainArchive(t *testing.T) {
	t.Setenv(core.PasswordEnv, "")
	env := &Env{Config: config.Default(), Log: logging.Logger{}}

	calls := 0
	err := env.WithPassword("x.tar.zst", false, func(password []byte) error {
		calls++
		if password != nil {
			t.Errorf("Expected no password, got %q", password)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithPassword failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected one call, got %d", calls)
	}
}

func TestWithPasswordKeepsOtherErrors(t *testing.T) {
	t.Setenv(core.PasswordEnv, "")
	env := &Env{Config: config.Default(), Log: logging.Logger{}}

	err := env.WithPassword("x.tar.zst", false, func([]byte) error {
		return core.ErrOutputExists
	})
	if !errors.Is(err, core.ErrOutputExists) {
		t.Errorf("Expected ErrOutputExists, got %v", err)
	}
}

func TestFormatStatus(t *testing.T) {
	none := formats.NewRegistry(archive.Options{})
	soft := formats.NewRegistry(archive.Options{Accelerator: accel.NewSoftware()})

	tests := []struct {
		reg    *archive.Registry
		format archive.Format
		want   string
	}{
		{none, archive.FormatZip, "read/write"},
		{none, archive.FormatTarZst, "read/write"},
		{none, archive.Format7z, "read-only"},
		{none, archive.FormatLat, "needs accelerator"},
		{none, archive.FormatPaqg, "needs accelerator"},
		{soft, archive.FormatLat, "read/write"},
		{soft, archive.FormatPaqg, "read/write"},
	}

	for _, tt := range tests {
		if got := formatStatus(tt.reg, tt.format); got != tt.want {
			t.Errorf("formatStatus(%s) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestResolveRecord(t *testing.T) {
	dir := t.TempDir()
	catalog, err := storage.Open(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("Failed to open catalog: %v", err)
	}
	defer catalog.Close()

	archivePath := filepath.Join(dir, "out.tar.zst")
	rec := &storage.Record{Path: archivePath, Format: "tar.zst"}
	if err := catalog.Put(rec); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}

	got, err := resolveRecord(catalog, rec.ID[:8])
	if err != nil {
		t.Fatalf("Failed to resolve by prefix: %v", err)
	}
	if got.ID != rec.ID {
		t.Errorf("Expected %s, got %s", rec.ID, got.ID)
	}

	t.Chdir(dir)

	got, err = resolveRecord(catalog, "out.tar.zst")
	if err != nil {
		t.Fatalf("Failed to resolve relative path: %v", err)
	}
	if got.ID != rec.ID {
		t.Errorf("Expected %s, got %s", rec.ID, got.ID)
	}

	if _, err := resolveRecord(catalog, "missing.zip"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRatio(t *testing.T) {
	if got := ratio(50, 200); got != "25.0%" {
		t.Errorf("ratio(50, 200) = %q", got)
	}
	if got := ratio(10, 0); got != "n/a" {
		t.Errorf("ratio(10, 0) = %q", got)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID() = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID() = %q", got)
	}
}
