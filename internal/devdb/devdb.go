// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package devdb starts and stops a throwaway database server in a local
// container so the loader can be run end to end against the real SQL Server
// or PostgreSQL dialect. Docker is tried first, then Podman.
package devdb

import (
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/pdiddy/fda-label-loader/pkg/types"
)

const (
	binDocker = "docker"
	binPodman = "podman"

	// DefaultName is the container name used by the dev targets.
	DefaultName = "fda-loader-db"

	SQLServerImage = "mcr.microsoft.com/mssql/server:2022-latest"
	PostgresImage  = "postgres:16-alpine"
)

// ErrNoContainer is returned for drivers that need no server, such as
// sqlite3.
var ErrNoContainer = errors.New("driver runs without a database server")

// Server describes a database container.
type Server struct {
	Name  string
	Image string
	Env   map[string]string

	// Port is published as host:container, e.g. "1433:1433".
	Port string
}

// ForDatabase returns the container that serves cfg. The container is
// seeded with cfg's credentials so the loader can connect unchanged.
func ForDatabase(cfg types.DatabaseConfig) (Server, error) {
	switch cfg.Driver {
	case types.DriverSQLServer, "":
		// SQL Server only accepts the sa login on first boot.
		if cfg.User != "" && cfg.User != "sa" {
			return Server{}, fmt.Errorf("sql server container supports only the sa login, got %q", cfg.User)
		}
		return Server{
			Name:  DefaultName,
			Image: SQLServerImage,
			Env: map[string]string{
				"ACCEPT_EULA":       "Y",
				"MSSQL_SA_PASSWORD": cfg.Password,
			},
			Port: "1433:1433",
		}, nil
	case types.DriverPostgres:
		return Server{
			Name:  DefaultName,
			Image: PostgresImage,
			Env: map[string]string{
				"POSTGRES_USER":     cfg.User,
				"POSTGRES_PASSWORD": cfg.Password,
				"POSTGRES_DB":       cfg.Name,
			},
			Port: "5432:5432",
		}, nil
	case types.DriverSQLite:
		return Server{}, ErrNoContainer
	default:
		return Server{}, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// runArgs builds the detached run command line. Env keys are sorted so the
// command is stable.
func (s Server) runArgs() []string {
	args := []string{"run", "-d", "--rm", "--name", s.Name, "-p", s.Port}
	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", k+"="+s.Env[k])
	}
	return append(args, s.Image)
}

// Runtime manages database containers.
type Runtime interface {
	Name() string
	Available() bool
	Start(s Server) error
	Stop(name string) error
	Running(name string) bool
}

type executor interface {
	LookPath(file string) (string, error)
	Run(name string, args ...string) error
	Output(name string, args ...string) (string, error)
}

type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) { return exec.LookPath(file) }

func (osExecutor) Run(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (osExecutor) Output(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	return strings.TrimSpace(string(out)), err
}

// runtime serves both docker and podman; their CLIs agree on every
// subcommand used here.
type runtime struct {
	bin  string
	exec executor
}

func (r *runtime) Name() string { return r.bin }

func (r *runtime) Available() bool {
	if _, err := r.exec.LookPath(r.bin); err != nil {
		return false
	}
	return r.exec.Run(r.bin, "info") == nil
}

// Start runs s detached. A container of the same name that is already
// running is left alone.
func (r *runtime) Start(s Server) error {
	if r.Running(s.Name) {
		return nil
	}
	if err := r.exec.Run(r.bin, s.runArgs()...); err != nil {
		return fmt.Errorf("starting %s container %s: %w", r.bin, s.Image, err)
	}
	return nil
}

func (r *runtime) Stop(name string) error {
	if !r.Running(name) {
		return nil
	}
	if err := r.exec.Run(r.bin, "stop", name); err != nil {
		return fmt.Errorf("stopping %s container %s: %w", r.bin, name, err)
	}
	return nil
}

func (r *runtime) Running(name string) bool {
	out, err := r.exec.Output(r.bin, "ps", "-q", "--filter", "name=^"+name+"$")
	return err == nil && out != ""
}

// DetectRuntime tries docker first, falls back to podman.
func DetectRuntime() (Runtime, error) {
	return detectRuntime(osExecutor{})
}

func detectRuntime(exec executor) (Runtime, error) {
	for _, bin := range []string{binDocker, binPodman} {
		rt := &runtime{bin: bin, exec: exec}
		if rt.Available() {
			return rt, nil
		}
	}
	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}
