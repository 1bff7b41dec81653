package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// Status reports how extracted files relate to an enclosing git work tree.
type Status struct {
	IsRepo    bool
	Tracked   []string // Already tracked by git
	Unignored []string // Untracked and not covered by .gitignore
}

// Exposed reports whether any file could end up in a commit.
func (s *Status) Exposed() bool {
	return len(s.Tracked) > 0 || len(s.Unignored) > 0
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	err := cmd.Run()
	return err == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()

	if err != nil {
		return false
	}

	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	err := cmd.Run()

	// git check-ignore returns exit code 0 if file is ignored
	return err == nil
}

// CheckExtracted classifies files decrypted into workDir. Paths are
// relative to workDir. Outside a repository the status is empty.
func CheckExtracted(workDir string, files []string) *Status {
	status := &Status{}
	if !IsGitRepo(workDir) {
		return status
	}
	status.IsRepo = true

	for _, file := range files {
		switch {
		case IsTracked(workDir, file):
			status.Tracked = append(status.Tracked, file)
		case !IsIgnored(workDir, file):
			status.Unignored = append(status.Unignored, file)
		}
	}
	return status
}

// FormatStatus formats the warnings for display. Empty when nothing is exposed.
func FormatStatus(status *Status) string {
	if !status.IsRepo || !status.Exposed() {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit:\n")
	for _, file := range status.Tracked {
		result.WriteString(fmt.Sprintf("   error: %s is tracked by git (run: git rm --cached %s)\n", file, file))
	}
	for _, file := range status.Unignored {
		result.WriteString(fmt.Sprintf("   warning: %s not in .gitignore\n", file))
	}
	return result.String()
}
