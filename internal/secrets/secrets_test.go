// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  Set
	}{
		{
			name: "reads credential files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, DBServer, "  sql01,1433  \n")
				writeFile(t, dir, DBPassword, "hunter2")
				writeFile(t, dir, OpenFDAAPIKey, "key-123\n")
				return dir
			},
			want: Set{
				DBServer:      "sql01,1433",
				DBPassword:    "hunter2",
				OpenFDAAPIKey: "key-123",
			},
		},
		{
			name: "missing directory yields empty set",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: Set{},
		},
		{
			name: "skips blank files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, DBUser, "loader")
				writeFile(t, dir, DBName, "   \n\t  ")
				return dir
			},
			want: Set{DBUser: "loader"},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".db-password", "old")
				writeFile(t, dir, DBName, "pharma")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))
				return dir
			},
			want: Set{DBName: "pharma"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	dir := t.TempDir()
	writeFile(t, dir, DBUser, "loader")
	bad := filepath.Join(dir, DBPassword)
	require.NoError(t, os.WriteFile(bad, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(bad, 0o644) })

	core, logs := observer.New(zap.WarnLevel)
	got, err := Load(dir, zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, Set{DBUser: "loader"}, got)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, DBPassword, logs.All()[0].ContextMap()["name"])
}

func TestSetFill(t *testing.T) {
	s := Set{DBUser: "from-file"}

	empty := ""
	assert.True(t, s.Fill(&empty, DBUser))
	assert.Equal(t, "from-file", empty)

	set := "from-env"
	assert.False(t, s.Fill(&set, DBUser))
	assert.Equal(t, "from-env", set)

	missing := ""
	assert.False(t, s.Fill(&missing, DBPassword))
	assert.Empty(t, missing)
}

func TestSetKeys(t *testing.T) {
	s := Set{DBUser: "u", DBName: "n"}
	assert.ElementsMatch(t, []string{DBUser, DBName}, s.Keys())
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
