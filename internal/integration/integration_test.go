//go:build integration

package integration

import (
	"context"
	"encoding/json"
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

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var (
	repoRoot         string
	integrationBin   string
	integrationCache string
)

func TestMain(m *testing.M) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		fmt.Fprintln(os.Stderr, "integration: resolve current file")
		os.Exit(1)
	}
	repoRoot = filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))

	tmpDir, err := os.MkdirTemp(repoRoot, ".integration-bin-")
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration: create temp dir: %v\n", err)
		os.Exit(1)
	}

	integrationCache = filepath.Join(tmpDir, "gocache")
	if err := os.MkdirAll(integrationCache, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "integration: create gocache: %v\n", err)
		_ = os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	integrationBin = filepath.Join(tmpDir, "dashkeep")
	buildCmd := exec.Command("go", "build", "-o", integrationBin, "./cmd/dashkeep")
	buildCmd.Dir = repoRoot
	buildCmd.Env = append(os.Environ(), "GOCACHE="+integrationCache)
	if output, err := buildCmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "integration: build cli: %v\n%s\n", err, string(output))
		_ = os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()
	_ = os.RemoveAll(tmpDir)
	os.Exit(code)
}

type cliHarness struct {
	home   string
	dbPath string
	config string
}

type cliResult struct {
	output   string
	exitCode int
	err      error
}

func newHarness(t *testing.T) *cliHarness {
	t.Helper()

	base := t.TempDir()
	return &cliHarness{
		home:   filepath.Join(base, "home"),
		dbPath: filepath.Join(base, "home", "dashboards.db"),
		config: filepath.Join(base, "home", "config.toml"),
	}
}

func (h *cliHarness) env() []string {
	return []string{
		"DASHKEEP_HOME=" + h.home,
		"DASHKEEP_STORE_PATH=" + h.dbPath,
		"DASHKEEP_CONFIG_PATH=" + h.config,
		"DASHKEEP_LOG_LEVEL=error",
	}
}

func (h *cliHarness) run(timeout time.Duration, args ...string) cliResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, integrationBin, args...)
	cmd.Dir = repoRoot
	cmd.Env = append(os.Environ(), h.env()...)
	output, err := cmd.CombinedOutput()

	res := cliResult{
		output: strings.TrimSpace(string(output)),
		err:    err,
	}
	if err == nil {
		res.exitCode = 0
		return res
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.exitCode = exitErr.ExitCode()
		return res
	}
	res.exitCode = -1
	if ctx.Err() != nil {
		res.output = strings.TrimSpace(string(output) + "\n" + ctx.Err().Error())
	}
	return res
}

func requireSuccess(t *testing.T, res cliResult, command ...string) string {
	t.Helper()
	require.NoError(t, res.err, "command failed: %s\noutput:\n%s", strings.Join(command, " "), res.output)
	require.Equal(t, 0, res.exitCode)
	return res.output
}

func requireExitCode(t *testing.T, res cliResult, code int, command ...string) string {
	t.Helper()
	require.Error(t, res.err, "command unexpectedly succeeded: %s\noutput:\n%s", strings.Join(command, " "), res.output)
	require.Equal(t, code, res.exitCode, "output:\n%s", res.output)
	return res.output
}

func (h *cliHarness) writeLayout(t *testing.T, name, payload string) string {
	t.Helper()
	path := filepath.Join(h.home, name)
	require.NoError(t, os.MkdirAll(h.home, 0o700))
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))
	return path
}

func TestIntegrationLifecycleCreateSaveExportDelete(t *testing.T) {
	h := newHarness(t)

	id := requireSuccess(t, h.run(10*time.Second, "-q", "dashboard", "create", "Ops"), "dashboard create Ops")
	layoutFile := h.writeLayout(t, "layout.json", `[{"i":"w1","x":0,"y":0,"w":2,"h":2}]`)
	requireSuccess(t, h.run(10*time.Second, "layout", "save", id, "root", "--file", layoutFile), "layout save")

	out := requireSuccess(t, h.run(10*time.Second, "layout", "get", id, "root"), "layout get")
	var cells []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &cells))
	require.Len(t, cells, 1)

	exportDir := filepath.Join(h.home, "exports")
	requireSuccess(t, h.run(10*time.Second, "export", id, "--output-dir", exportDir), "export")
	_, err := os.Stat(filepath.Join(exportDir, "Ops.json"))
	require.NoError(t, err)

	requireSuccess(t, h.run(10*time.Second, "dashboard", "rm", id), "dashboard rm")
	requireExitCode(t, h.run(10*time.Second, "layout", "get", id, "root"), 3, "layout get after rm")
	requireExitCode(t, h.run(10*time.Second, "dashboard", "show", id), 3, "dashboard show after rm")
}

func TestIntegrationConcurrentProcessesSaveOneLayout(t *testing.T) {
	h := newHarness(t)

	id := requireSuccess(t, h.run(10*time.Second, "-q", "dashboard", "create", "Ops"), "dashboard create Ops")

	var group errgroup.Group
	for i := 0; i < 6; i++ {
		layoutFile := h.writeLayout(t, fmt.Sprintf("layout-%d.json", i), fmt.Sprintf(`[{"i":"w1","x":%d,"y":0,"w":1,"h":1}]`, i))
		group.Go(func() error {
			res := h.run(20*time.Second, "layout", "save", id, "root", "--file", layoutFile)
			if res.err != nil {
				return fmt.Errorf("exit=%d output=%s", res.exitCode, res.output)
			}
			return nil
		})
	}
	require.NoError(t, group.Wait())

	out := requireSuccess(t, h.run(10*time.Second, "--json", "layout", "ls", id), "layout ls")
	var summaries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	require.Len(t, summaries, 1)
}

func TestIntegrationConcurrentDefaultInitCreatesOne(t *testing.T) {
	h := newHarness(t)
	requireSuccess(t, h.run(10*time.Second, "dashboard", "ls"), "dashboard ls")

	var wg sync.WaitGroup
	errCh := make(chan error, 5)
	ids := make(chan string, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := h.run(20*time.Second, "-q", "dashboard", "init")
			if res.err != nil {
				errCh <- fmt.Errorf("exit=%d output=%s", res.exitCode, res.output)
				return
			}
			ids <- res.output
		}()
	}
	wg.Wait()
	close(errCh)
	close(ids)
	for err := range errCh {
		require.NoError(t, err)
	}

	seen := map[string]struct{}{}
	for id := range ids {
		seen[id] = struct{}{}
	}
	require.Len(t, seen, 1)

	out := requireSuccess(t, h.run(10*time.Second, "--json", "dashboard", "ls"), "dashboard ls")
	var list []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
}
