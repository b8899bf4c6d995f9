package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	for _, args := range [][]string{
		{"init", "-q"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "test"},
	} {
		gitCmd(t, dir, args...)
	}
	return dir
}

func gitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func TestCheckOutsideRepo(t *testing.T) {
	dir := t.TempDir()

	status, err := Check(filepath.Join(dir, "primary"), nil)
	require.NoError(t, err)
	if status.IsRepo {
		// TMPDIR itself may live inside a checkout.
		assert.True(t, IsGitRepo(dir))
		return
	}
	assert.Empty(t, FormatStatus(status))
}

func TestCheck(t *testing.T) {
	dir := initRepo(t)
	database := filepath.Join(dir, "primary")

	require.NoError(t, os.WriteFile(database, []byte("UPM"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.bak\n"), 0600))
	gitCmd(t, dir, "add", "primary")

	status, err := Check(database, []string{
		"primary.20240601100000.bak",
		filepath.Join(dir, "state.db"),
		filepath.Join(filepath.Dir(dir), "elsewhere.db"),
	})
	require.NoError(t, err)

	require.True(t, status.IsRepo)
	assert.True(t, status.DatabaseTracked)
	assert.Equal(t, []string{"primary.20240601100000.bak"}, status.IgnoredFiles)
	assert.Equal(t, []string{"state.db"}, status.UnignoredFiles)
	assert.Contains(t, FormatStatus(status), "warning: state.db not in .gitignore")
}
