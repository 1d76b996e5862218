package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songbench/internal/dummy"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SONGBENCH_HISTORY_PATH", filepath.Join(home, "history.db"))
	return home
}

func TestProbeCmd_UnreachableHost(t *testing.T) {
	isolate(t)

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/api/public/songs/get"
	srv.Close()

	out, err := execute(t, "probe", "--url", url, "--timeout", "2s")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "Error: "), lines[1])
}

func TestProbeCmd_Report(t *testing.T) {
	isolate(t)

	srv := httptest.NewServer(dummy.NewHandler(dummy.NewCatalog(5), 0))
	defer srv.Close()

	out, err := execute(t, "probe", "--url", srv.URL+"/api/public/songs/get")
	require.NoError(t, err)
	assert.Contains(t, out, "Status Code    : 200")
	assert.Contains(t, out, "Avg Download Speed:")
}

func TestLoadCmd_HeadlessWithReportsAndHistory(t *testing.T) {
	home := isolate(t)

	catalog := dummy.NewCatalog(1)
	srv := httptest.NewServer(dummy.NewHandler(catalog, 0))
	defer srv.Close()

	prefix := filepath.Join(home, "run")
	out, err := execute(t, "load",
		"--headless",
		"--host", srv.URL,
		"--rps", "3",
		"--duration", "300ms",
		"--poll-interval", "50ms",
		"--out", prefix,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "LOAD TEST RESULTS")
	assert.Contains(t, out, "Reports saved")
	assert.Positive(t, catalog.List()[0].PlayCount)

	for _, suffix := range []string{".csv", ".json", "_summary.json", "_timeline.json"} {
		_, err := os.Stat(prefix + suffix)
		assert.NoError(t, err, suffix)
	}

	out, err = execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "POST "+srv.URL+"/api/public/songs/play/1")
}

func TestHistoryCmd_Empty(t *testing.T) {
	isolate(t)

	out, err := execute(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded yet.")
}

func TestLoadCmd_InvalidConfig(t *testing.T) {
	isolate(t)

	_, err := execute(t, "load", "--headless", "--preset", "nope")
	assert.ErrorContains(t, err, "unknown preset")
}
