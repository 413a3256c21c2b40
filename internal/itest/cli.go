//go:build integration

package itest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	modulePath = "github.com/forPelevin/reelcut"
	cliTimeout = 2 * time.Minute
)

type cliRunResult struct {
	exitCode int
	output   string
}

var (
	buildOnce sync.Once
	binPath   string
	buildErr  error
)

// findRepoRoot walks up to the go.mod that declares this module.
func findRepoRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if declaresModule(filepath.Join(wd, "go.mod")) {
			return wd, nil
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			return "", fmt.Errorf("no go.mod declaring %s above the working directory", modulePath)
		}
		wd = parent
	}
}

func declaresModule(gomod string) bool {
	f, err := os.Open(gomod)
	if err != nil {
		return false
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); strings.HasPrefix(line, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "module ")) == modulePath
		}
	}
	return false
}

func mustRepoRoot(t *testing.T) string {
	t.Helper()
	repoRoot, err := findRepoRoot()
	if err != nil {
		t.Fatalf("repo root: %v", err)
	}
	return repoRoot
}

// cliBinary builds cmd/reelcut once per test process.
func cliBinary(t *testing.T, repoRoot string) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "reelcut-itest-")
		if err != nil {
			buildErr = err
			return
		}
		name := "reelcut"
		if runtime.GOOS == "windows" {
			name += ".exe"
		}
		binPath = filepath.Join(dir, name)
		cmd := exec.Command("go", "build", "-o", binPath, "./cmd/reelcut")
		cmd.Dir = repoRoot
		if b, err := cmd.CombinedOutput(); err != nil {
			buildErr = fmt.Errorf("go build: %w\n%s", err, b)
		}
	})
	if buildErr != nil {
		t.Fatal(buildErr)
	}
	return binPath
}

func runCLI(t *testing.T, repoRoot string, args []string, env map[string]string) cliRunResult {
	t.Helper()
	bin := cliBinary(t, repoRoot)

	ctx, cancel := context.WithTimeout(context.Background(), cliTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	// Relative outputs and .env lookups stay inside the test's own directory.
	cmd.Dir = t.TempDir()
	cmd.Env = mergeEnv(os.Environ(), map[string]string{"NO_COLOR": "1", "TERM": "dumb"}, env)

	out, err := cmd.CombinedOutput()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("command timed out after %s: reelcut %s", cliTimeout, strings.Join(args, " "))
	}

	res := cliRunResult{output: string(out)}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.exitCode = exitErr.ExitCode()
	default:
		t.Fatalf("run command: %v\noutput:\n%s", err, out)
	}
	return res
}

// mergeEnv applies overrides in order; later maps win. Empty values are
// kept so a test can blank a variable from the parent environment.
func mergeEnv(base []string, overrides ...map[string]string) []string {
	idx := make(map[string]int, len(base))
	out := make([]string, 0, len(base))
	for _, kv := range base {
		k, _, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		if i, seen := idx[k]; seen {
			out[i] = kv
			continue
		}
		idx[k] = len(out)
		out = append(out, kv)
	}
	for _, set := range overrides {
		for k, v := range set {
			kv := k + "=" + v
			if i, seen := idx[k]; seen {
				out[i] = kv
				continue
			}
			idx[k] = len(out)
			out = append(out, kv)
		}
	}
	return out
}
