package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songbench/internal/runner"
	"songbench/internal/storage"
)

func sampleResults() []runner.ExperimentResult {
	t0 := time.Unix(1700000000, 0)
	return []runner.ExperimentResult{
		{TimeStamp: t0, ServiceTime: 12 * time.Millisecond, Task: "play", Status: 200, Success: true, UserID: "u1"},
		{TimeStamp: t0.Add(200 * time.Millisecond), ServiceTime: 30 * time.Millisecond, Task: "play", URL: "http://localhost:8080/api/public/songs/play/1", Status: 500, Error: "HTTP 500", UserID: "u2"},
		{TimeStamp: t0.Add(1500 * time.Millisecond), ServiceTime: 8 * time.Millisecond, Task: "play", Status: 200, Success: true, Bytes: 42, UserID: "u1"},
	}
}

func TestTimeline(t *testing.T) {
	got := Timeline(sampleResults())

	assert.Equal(t, []TimeBucket{
		{Timestamp: 1700000000, Requests: 2, Errors: 1},
		{Timestamp: 1700000001, Requests: 1, Errors: 0},
	}, got)
}

func TestExportAll(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "run")
	item := storage.HistoryItem{ID: "r1", Summary: storage.RunSummary{TotalRequests: 3, Success: 2, Fail: 1}}

	require.NoError(t, ExportAll(prefix, item, sampleResults()))

	f, err := os.Open(prefix + ".csv")
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "timeStamp", rows[0][0])
	assert.Equal(t, []string{"1700000000200", "30", "play", "500", "Internal Server Error", "User-u2", "text", "false", "HTTP 500", "0", "http://localhost:8080/api/public/songs/play/1", "30"}, rows[2])

	var results []runner.ExperimentResult
	data, err := os.ReadFile(prefix + ".json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &results))
	assert.Len(t, results, 3)

	var summary storage.HistoryItem
	data, err = os.ReadFile(prefix + "_summary.json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, uint64(3), summary.Summary.TotalRequests)

	assert.FileExists(t, prefix+"_timeline.json")
}
