package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCLIDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCLIDocs(dir))

	index, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "[`sync`](/cli/sync)")
	assert.Contains(t, string(index), "LAZYAPPWRITE_BACKEND__KEY")
	assert.Contains(t, string(index), "LAZYAPPWRITE_SYNC__POLL_ATTEMPTS")
	assert.Contains(t, string(index), "LAZYAPPWRITE_DATABASE__ID")
	assert.Contains(t, string(index), "## Sync Stages")
	assert.Less(t, strings.Index(string(index), "`columns`:"), strings.Index(string(index), "`indexes`:"))
	assert.Contains(t, string(index), "`json`")

	page, err := os.ReadFile(filepath.Join(dir, "sync.md"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "lazyappwrite sync [table...]")
	assert.Contains(t, string(page), "`--no-journal`")
}

func TestGenerateConfigDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateConfigDocs(dir))

	data, err := os.ReadFile(filepath.Join(dir, "configuration.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "`lazyappwrite.yaml`")
	assert.Contains(t, string(data), "`max_rejoins`")
	assert.Contains(t, string(data), "DO NOT EDIT")
}

func TestDedent(t *testing.T) {
	assert.Equal(t, "a\n  b", dedent("    a\n      b\n"))
	assert.Equal(t, "a\n\nb", dedent("\n\t  a\n\n\t  b\n"))
	assert.Equal(t, "x\ny", dedent("x\n  y"))
}

func TestEnvVar(t *testing.T) {
	assert.Equal(t, "LAZYAPPWRITE_STATE_PATH", envVar("state_path"))
	assert.Equal(t, "LAZYAPPWRITE_SYNC__MAX_REJOINS", envVar(ConfigField{Name: "max_rejoins", Category: "sync"}.Key()))
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "Show runs", cleanDescription("Show\n  runs."))
}
