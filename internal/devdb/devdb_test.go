// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package devdb

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/fda-label-loader/pkg/types"
)

// mockExecutor records commands and answers from configured tables.
type mockExecutor struct {
	onPath  map[string]bool
	ok      map[string]bool   // "bin arg1 arg2" -> Run succeeds
	outputs map[string]string // "bin arg1 arg2" -> Output result
	ran     []string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.onPath[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) Run(name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	m.ran = append(m.ran, key)
	if m.ok[key] || (len(args) > 0 && args[0] != "info" && m.ok[name+" *"]) {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (m *mockExecutor) Output(name string, args ...string) (string, error) {
	return m.outputs[name+" "+strings.Join(args, " ")], nil
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		exec     *mockExecutor
		wantName string
		wantErr  bool
	}{
		{
			name:     "docker available",
			exec:     &mockExecutor{onPath: map[string]bool{"docker": true}, ok: map[string]bool{"docker info": true}},
			wantName: "docker",
		},
		{
			name:     "podman fallback",
			exec:     &mockExecutor{onPath: map[string]bool{"podman": true}, ok: map[string]bool{"podman info": true}},
			wantName: "podman",
		},
		{
			name:     "docker daemon down, podman works",
			exec:     &mockExecutor{onPath: map[string]bool{"docker": true, "podman": true}, ok: map[string]bool{"podman info": true}},
			wantName: "podman",
		},
		{
			name:    "neither available",
			exec:    &mockExecutor{},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(tt.exec)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "no container runtime available")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, rt.Name())
		})
	}
}

func TestForDatabase(t *testing.T) {
	sqlServer, err := ForDatabase(types.DatabaseConfig{Driver: types.DriverSQLServer, User: "sa", Password: "Str0ng!pw"})
	require.NoError(t, err)
	assert.Equal(t, SQLServerImage, sqlServer.Image)
	assert.Equal(t, "1433:1433", sqlServer.Port)
	assert.Equal(t, "Str0ng!pw", sqlServer.Env["MSSQL_SA_PASSWORD"])
	assert.Equal(t, "Y", sqlServer.Env["ACCEPT_EULA"])

	pg, err := ForDatabase(types.DatabaseConfig{Driver: types.DriverPostgres, Name: "pharma", User: "loader", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, PostgresImage, pg.Image)
	assert.Equal(t, "pharma", pg.Env["POSTGRES_DB"])
	assert.Equal(t, "loader", pg.Env["POSTGRES_USER"])

	_, err = ForDatabase(types.DatabaseConfig{Driver: types.DriverSQLite})
	assert.ErrorIs(t, err, ErrNoContainer)

	_, err = ForDatabase(types.DatabaseConfig{Driver: types.DriverSQLServer, User: "loader"})
	assert.Error(t, err)

	_, err = ForDatabase(types.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestStart(t *testing.T) {
	s := Server{Name: "db", Image: "postgres:16-alpine", Port: "5432:5432", Env: map[string]string{"POSTGRES_USER": "u", "POSTGRES_DB": "d"}}

	t.Run("runs detached with sorted env", func(t *testing.T) {
		m := &mockExecutor{ok: map[string]bool{"docker *": true}}
		rt := &runtime{bin: "docker", exec: m}
		require.NoError(t, rt.Start(s))
		require.Len(t, m.ran, 1)
		assert.Equal(t,
			"docker run -d --rm --name db -p 5432:5432 -e POSTGRES_DB=d -e POSTGRES_USER=u postgres:16-alpine",
			m.ran[0])
	})

	t.Run("already running is a no-op", func(t *testing.T) {
		m := &mockExecutor{outputs: map[string]string{"podman ps -q --filter name=^db$": "abc123"}}
		rt := &runtime{bin: "podman", exec: m}
		require.NoError(t, rt.Start(s))
		assert.Empty(t, m.ran)
	})

	t.Run("failure names the image", func(t *testing.T) {
		rt := &runtime{bin: "docker", exec: &mockExecutor{}}
		err := rt.Start(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "postgres:16-alpine")
	})
}

func TestStop(t *testing.T) {
	m := &mockExecutor{
		ok:      map[string]bool{"docker stop db": true},
		outputs: map[string]string{"docker ps -q --filter name=^db$": "abc123"},
	}
	rt := &runtime{bin: "docker", exec: m}
	require.NoError(t, rt.Stop("db"))
	assert.Equal(t, []string{"docker stop db"}, m.ran)

	idle := &mockExecutor{}
	require.NoError(t, (&runtime{bin: "docker", exec: idle}).Stop("db"))
	assert.Empty(t, idle.ran)
}
