//go:build mage

// Package main contains Mage build targets for fda-loader developer tooling.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories a loader run writes into.
var projectDirs = []string{
	"logs",
	"reports",
	"metrics",
	".secrets",
}

// Init creates the working directories and an empty secrets directory.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	if err := os.Chmod(".secrets", 0o700); err != nil {
		return fmt.Errorf("restricting .secrets: %w", err)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "fda-loader"
	cmdPkg  = "./cmd/fda-loader"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		version = "dev"
	}
	ldflags := "-X main.version=" + version
	if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", out, version)
	return nil
}

// Test runs the unit tests. The SQLite driver needs cgo.
func Test() error {
	return sh.RunWithV(map[string]string{"CGO_ENABLED": "1"}, "go", "test", "./...")
}

// Load builds the CLI and runs a full load with a report and metrics file.
func Load() error {
	mg.Deps(Init, Build)
	return sh.RunV(filepath.Join(binDir, binName), "load",
		"--report", filepath.Join("reports", "last-run.yaml"),
		"--metrics-file", filepath.Join("metrics", "fda_loader.prom"),
	)
}

// Ping builds the CLI and checks the database connection.
func Ping() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "ping")
}

// docFiles are the project documents Stats counts words in.
var docFiles = []string{"DESIGN.md", "SPEC_FULL.md"}

// Stats prints non-blank Go lines per package (production and test) and
// the word count of the design documents.
func Stats() error {
	pkgs, err := goLinesByPackage(".")
	if err != nil {
		return err
	}

	dirs := make([]string, 0, len(pkgs))
	for dir := range pkgs {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	var prod, test int
	for _, dir := range dirs {
		c := pkgs[dir]
		prod += c.prod
		test += c.test
		fmt.Printf("  %-28s %5d prod %5d test\n", dir, c.prod, c.test)
	}
	fmt.Printf("Packages:                 %d\n", len(dirs))
	fmt.Printf("Go lines (production):    %d\n", prod)
	fmt.Printf("Go lines (tests):         %d\n", test)

	for _, name := range docFiles {
		words, err := wordCount(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		fmt.Printf("Words (%s): %d\n", name, words)
	}
	return nil
}

type lineCount struct{ prod, test int }

// goLinesByPackage counts non-blank lines of every .go file under root,
// keyed by directory. Vendored reference trees, build output and hidden
// directories are skipped.
func goLinesByPackage(root string) (map[string]lineCount, error) {
	counts := make(map[string]lineCount)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (name == "bin" || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		n, err := nonBlankLines(path)
		if err != nil {
			return err
		}
		dir := filepath.Dir(path)
		c := counts[dir]
		if strings.HasSuffix(path, "_test.go") {
			c.test += n
		} else {
			c.prod += n
		}
		counts[dir] = c
		return nil
	})
	return counts, err
}

func nonBlankLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return n, nil
}

func wordCount(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return len(strings.Fields(string(data))), nil
}
