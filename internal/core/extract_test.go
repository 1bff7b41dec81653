package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Murchiz/Gpucompress/internal/archive"
	"github.com/Murchiz/Gpucompress/internal/crypto"
)

// packFiles writes files under a fresh source dir and compresses that dir.
func packFiles(t *testing.T, a *Archiver, files map[string]string, password []byte) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "src")
	for name, content := range files {
		p := filepath.Join(src, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}

	out := filepath.Join(t.TempDir(), "out.tar.zst")
	if len(password) > 0 {
		out += archive.EncryptedSuffix
	}
	if _, err := a.Compress(context.Background(), CompressRequest{Inputs: []string{src}, Output: out, Password: password}); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	return out
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestExtract_NoConflicts(t *testing.T) {
	a := newTestArchiver(t)
	out := packFiles(t, a, map[string]string{"test1.txt": "content1", "test2.txt": "content2"}, nil)

	dest := t.TempDir()
	result, err := a.Extract(context.Background(), ExtractRequest{Archive: out, Dest: dest, Strategy: StrategyOverwrite})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if result.Format != archive.FormatTarZst {
		t.Errorf("Format = %s, want tar.zst", result.Format)
	}
	if len(result.Extracted) != 2 {
		t.Errorf("Expected 2 extracted files, got %d", len(result.Extracted))
	}
	if len(result.Skipped) != 0 || len(result.Errors) != 0 {
		t.Errorf("Expected no skips or errors, got %v / %v", result.Skipped, result.Errors)
	}
	if got := readFile(t, filepath.Join(dest, "src", "test1.txt")); got != "content1" {
		t.Errorf("File 1 content mismatch: got %s, want content1", got)
	}
}

func TestExtract_FilesIdentical(t *testing.T) {
	a := newTestArchiver(t)
	out := packFiles(t, a, map[string]string{"test1.txt": "content1", "test2.txt": "content2"}, nil)

	dest := t.TempDir()
	if _, err := a.Extract(context.Background(), ExtractRequest{Archive: out, Dest: dest, Strategy: StrategyOverwrite}); err != nil {
		t.Fatalf("First extract failed: %v", err)
	}

	result, err := a.Extract(context.Background(), ExtractRequest{Archive: out, Dest: dest, Strategy: StrategyAbort})
	if err != nil {
		t.Fatalf("Second extract failed: %v", err)
	}
	if len(result.Extracted) != 0 || len(result.Skipped) != 2 {
		t.Errorf("Expected 2 skipped files, got extracted=%v skipped=%v", result.Extracted, result.Skipped)
	}
}

func TestExtract_Strategies(t *testing.T) {
	tests := []struct {
		name          string
		strategy      MergeStrategy
		wantLocal     string
		wantCopy      bool
		wantExtracted int
	}{
		{"keep local", StrategyKeepLocal, "modified", false, 0},
		{"overwrite", StrategyOverwrite, "content1", false, 1},
		{"keep both", StrategyKeepBoth, "modified", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestArchiver(t)
			out := packFiles(t, a, map[string]string{"test1.txt": "content1"}, nil)

			dest := t.TempDir()
			local := filepath.Join(dest, "src", "test1.txt")
			if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
				t.Fatalf("Failed to create directory: %v", err)
			}
			if err := os.WriteFile(local, []byte("modified"), 0644); err != nil {
				t.Fatalf("Failed to modify test file: %v", err)
			}

			result, err := a.Extract(context.Background(), ExtractRequest{Archive: out, Dest: dest, Strategy: tt.strategy})
			if err != nil {
				t.Fatalf("Extract failed: %v", err)
			}
			if len(result.Extracted) != tt.wantExtracted {
				t.Errorf("Extracted = %v, want %d entries", result.Extracted, tt.wantExtracted)
			}
			if got := readFile(t, local); got != tt.wantLocal {
				t.Errorf("local content = %q, want %q", got, tt.wantLocal)
			}

			copyPath := local + ArchiveCopySuffix
			_, statErr := os.Stat(copyPath)
			if tt.wantCopy {
				if statErr != nil {
					t.Fatalf("archive copy not written: %v", statErr)
				}
				if got := readFile(t, copyPath); got != "content1" {
					t.Errorf("archive copy = %q, want content1", got)
				}
			} else if statErr == nil {
				t.Error("unexpected archive copy")
			}
		})
	}
}

func TestExtract_KeepBothNumbersCopies(t *testing.T) {
	a := newTestArchiver(t)
	out := packFiles(t, a, map[string]string{"f.txt": "archived"}, nil)

	dest := t.TempDir()
	local := filepath.Join(dest, "src", "f.txt")
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	for _, p := range []string{local, local + ArchiveCopySuffix} {
		if err := os.WriteFile(p, []byte("local"), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", p, err)
		}
	}

	result, err := a.Extract(context.Background(), ExtractRequest{Archive: out, Dest: dest, Strategy: StrategyKeepBoth})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	want := "src/f.txt" + ArchiveCopySuffix + ".1"
	if len(result.Extracted) != 1 || result.Extracted[0] != want {
		t.Errorf("Extracted = %v, want [%s]", result.Extracted, want)
	}
}

func TestExtract_StrategyAbort(t *testing.T) {
	a := newTestArchiver(t)
	out := packFiles(t, a, map[string]string{"test1.txt": "content1"}, nil)

	dest := t.TempDir()
	local := filepath.Join(dest, "src", "test1.txt")
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(local, []byte("modified"), 0644); err != nil {
		t.Fatalf("Failed to modify test file: %v", err)
	}

	_, err := a.Extract(context.Background(), ExtractRequest{Archive: out, Dest: dest, Strategy: StrategyAbort})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
	if got := readFile(t, local); got != "modified" {
		t.Errorf("local file changed on abort: %q", got)
	}
}

func TestExtract_MixedResults(t *testing.T) {
	a := newTestArchiver(t)
	out := packFiles(t, a, map[string]string{
		"file1.txt": "content1",
		"file2.txt": "content2",
		"file3.txt": "content3",
	}, nil)

	dest := t.TempDir()
	base := filepath.Join(dest, "src")
	if err := os.MkdirAll(base, 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	// file1 missing, file2 identical, file3 modified
	if err := os.WriteFile(filepath.Join(base, "file2.txt"), []byte("content2"), 0644); err != nil {
		t.Fatalf("Failed to write file2: %v", err)
	}
	if err := os.WriteFile(filepath.Join(base, "file3.txt"), []byte("modified3"), 0644); err != nil {
		t.Fatalf("Failed to write file3: %v", err)
	}

	result, err := a.Extract(context.Background(), ExtractRequest{Archive: out, Dest: dest, Strategy: StrategyOverwrite})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(result.Skipped) != 1 {
		t.Errorf("Expected 1 skipped file (file2), got %d: %v", len(result.Skipped), result.Skipped)
	}
	if len(result.Extracted) != 2 {
		t.Errorf("Expected 2 extracted files (file1, file3), got %d: %v", len(result.Extracted), result.Extracted)
	}
	if got := readFile(t, filepath.Join(base, "file3.txt")); got != "content3" {
		t.Errorf("File 3 should have archive content, got %s", got)
	}
}

func TestExtract_DirectoryCreation(t *testing.T) {
	a := newTestArchiver(t)
	out := packFiles(t, a, map[string]string{"dir1/dir2/file.txt": "nested content"}, nil)

	dest := filepath.Join(t.TempDir(), "fresh")
	result, err := a.Extract(context.Background(), ExtractRequest{Archive: out, Dest: dest, Strategy: StrategyOverwrite})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(result.Extracted) != 1 {
		t.Errorf("Expected 1 extracted file, got %d", len(result.Extracted))
	}
	if got := readFile(t, filepath.Join(dest, "src", "dir1", "dir2", "file.txt")); got != "nested content" {
		t.Errorf("File content mismatch: got %s", got)
	}
}

func TestExtract_Patterns(t *testing.T) {
	a := newTestArchiver(t)
	out := packFiles(t, a, map[string]string{
		"keep.txt":      "k",
		"skip.log":      "s",
		"sub/inner.txt": "i",
	}, nil)

	dest := t.TempDir()
	result, err := a.Extract(context.Background(), ExtractRequest{
		Archive:  out,
		Dest:     dest,
		Strategy: StrategyOverwrite,
		Patterns: []string{"src/*.txt", "src/sub"},
	})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(result.Extracted) != 2 {
		t.Errorf("Extracted = %v, want keep.txt and sub/inner.txt", result.Extracted)
	}
	if _, err := os.Stat(filepath.Join(dest, "src", "skip.log")); err == nil {
		t.Error("skip.log should not be extracted")
	}
}

func TestExtract_Encrypted(t *testing.T) {
	a := newTestArchiver(t)
	password := []byte("test123")
	out := packFiles(t, a, map[string]string{"secret.txt": "classified"}, password)

	// Envelope hides the container magic
	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read archive: %v", err)
	}
	if _, err := crypto.Decrypt(raw, password); err != nil {
		t.Fatalf("archive is not an envelope: %v", err)
	}

	dest := t.TempDir()
	if _, err := a.Extract(context.Background(), ExtractRequest{Archive: out, Dest: dest}); !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("no password error = %v, want ErrPasswordRequired", err)
	}
	if _, err := a.Extract(context.Background(), ExtractRequest{Archive: out, Dest: dest, Password: []byte("nope")}); !errors.Is(err, archive.ErrUnrecognized) {
		t.Errorf("wrong password error = %v, want ErrUnrecognized", err)
	}

	if _, err := a.Extract(context.Background(), ExtractRequest{Archive: out, Dest: dest, Password: password, Strategy: StrategyOverwrite}); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got := readFile(t, filepath.Join(dest, "src", "secret.txt")); got != "classified" {
		t.Errorf("content = %q", got)
	}
}

func TestExtract_RejectsEscapingNames(t *testing.T) {
	a := newTestArchiver(t)
	codec, err := a.registry.Lookup(archive.FormatTarZst)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	data, err := codec.Compress([]archive.Entry{
		{Name: "../escape.txt", Data: []byte("bad")},
		{Name: "ok.txt", Data: []byte("good")},
	}, nil)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	root := t.TempDir()
	out := filepath.Join(root, "evil.tar.zst")
	if err := os.WriteFile(out, data, 0644); err != nil {
		t.Fatalf("Failed to write archive: %v", err)
	}

	dest := filepath.Join(root, "dest")
	result, err := a.Extract(context.Background(), ExtractRequest{Archive: out, Dest: dest, Strategy: StrategyOverwrite})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(result.Errors) != 1 || len(result.Extracted) != 1 {
		t.Errorf("result = %+v, want one error and one extracted", result)
	}
	if _, err := os.Stat(filepath.Join(root, "escape.txt")); err == nil {
		t.Error("entry escaped the destination")
	}
}

func TestExtract_DuplicateNamesLastWins(t *testing.T) {
	a := newTestArchiver(t)
	codec, err := a.registry.Lookup(archive.FormatTarZst)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	data, err := codec.Compress([]archive.Entry{
		{Name: "dup.txt", Data: []byte("first")},
		{Name: "dup.txt", Data: []byte("second")},
	}, nil)
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	out := filepath.Join(t.TempDir(), "dup.tar.zst")
	if err := os.WriteFile(out, data, 0644); err != nil {
		t.Fatalf("Failed to write archive: %v", err)
	}

	dest := t.TempDir()
	result, err := a.Extract(context.Background(), ExtractRequest{Archive: out, Dest: dest, Strategy: StrategyAbort})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(result.Extracted) != 1 {
		t.Errorf("Extracted = %v, want one entry", result.Extracted)
	}
	if got := readFile(t, filepath.Join(dest, "dup.txt")); got != "second" {
		t.Errorf("dup.txt = %q, want second", got)
	}
}

func TestExtract_Cancelled(t *testing.T) {
	a := newTestArchiver(t)
	out := packFiles(t, a, map[string]string{"a.txt": "a"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Extract(ctx, ExtractRequest{Archive: out, Dest: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
