package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckExtractedOutsideRepo(t *testing.T) {
	dir := t.TempDir()
	status := CheckExtracted(dir, []string{"a.txt"})
	if status.IsRepo {
		t.Skip("temp dir is inside a git work tree")
	}
	if status.Exposed() || FormatStatus(status) != "" {
		t.Errorf("status outside repo = %+v", status)
	}
}

func TestCheckExtracted(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}
	run("init", "-q")

	for name, content := range map[string]string{
		"tracked.env": "x",
		"ignored.env": "x",
		"loose.env":   "x",
		".gitignore":  "ignored.env\n",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	run("add", "tracked.env")

	status := CheckExtracted(dir, []string{"tracked.env", "ignored.env", "loose.env"})
	if !status.IsRepo {
		t.Fatal("repository not detected")
	}
	if len(status.Tracked) != 1 || status.Tracked[0] != "tracked.env" {
		t.Errorf("Tracked = %v", status.Tracked)
	}
	if len(status.Unignored) != 1 || status.Unignored[0] != "loose.env" {
		t.Errorf("Unignored = %v", status.Unignored)
	}

	out := FormatStatus(status)
	if !strings.Contains(out, "git rm --cached tracked.env") || !strings.Contains(out, "loose.env not in .gitignore") {
		t.Errorf("FormatStatus = %q", out)
	}
}
