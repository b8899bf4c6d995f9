package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status contains git integration status for a database directory
type Status struct {
	IsRepo          bool
	DatabaseTracked bool
	IgnoredFiles    []string // Backups and state kept out of git (good)
	UnignoredFiles  []string // Backups and state git would pick up (warning)
}

// IsGitRepo checks if the directory is inside a git repository
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

// Check inspects the directory holding database. The encrypted database
// may be committed; generated files such as backups and the sync journal
// should be ignored. Paths in generated may be relative to the database
// directory or absolute; paths outside it are skipped.
func Check(database string, generated []string) (*Status, error) {
	workDir := filepath.Dir(database)
	status := &Status{}

	if !IsGitRepo(workDir) {
		return status, nil
	}
	status.IsRepo = true
	status.DatabaseTracked = IsTracked(workDir, filepath.Base(database))

	for _, file := range generated {
		rel := file
		if filepath.IsAbs(file) {
			r, err := filepath.Rel(workDir, file)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve %s: %w", file, err)
			}
			rel = r
		}
		if strings.HasPrefix(rel, "..") {
			continue
		}

		if IsIgnored(workDir, rel) {
			status.IgnoredFiles = append(status.IgnoredFiles, rel)
		} else {
			status.UnignoredFiles = append(status.UnignoredFiles, rel)
		}
	}

	return status, nil
}

// FormatStatus formats git status for display
func FormatStatus(status *Status) string {
	if !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit Integration:\n")

	if status.DatabaseTracked {
		result.WriteString("   ok: encrypted database is tracked by git\n")
	} else {
		result.WriteString("   info: database directory is a git repository; the database is not tracked\n")
	}

	for _, file := range status.UnignoredFiles {
		result.WriteString(fmt.Sprintf("   warning: %s not in .gitignore\n", file))
	}
	if len(status.UnignoredFiles) == 0 && len(status.IgnoredFiles) > 0 {
		result.WriteString(fmt.Sprintf("   ok: %d generated file(s) in .gitignore\n", len(status.IgnoredFiles)))
	}

	return result.String()
}
