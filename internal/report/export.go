package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"

	"songbench/internal/runner"
	"songbench/internal/storage"
)

// ExportCSV exports results to a JMeter-compatible CSV file.
func ExportCSV(results []runner.ExperimentResult, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{
		"timeStamp", "elapsed", "label", "responseCode", "responseMessage",
		"threadName", "dataType", "success", "failureMessage", "bytes", "URL", "Latency",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, res := range results {
		ms := strconv.FormatInt(res.ServiceTime.Milliseconds(), 10)

		record := []string{
			strconv.FormatInt(res.TimeStamp.UnixMilli(), 10),
			ms,
			res.Task,
			strconv.Itoa(res.Status),
			http.StatusText(res.Status),
			"User-" + res.UserID,
			"text",
			strconv.FormatBool(res.Success),
			res.Error,
			strconv.FormatInt(res.Bytes, 10),
			res.URL,
			ms,
		}

		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// ExportJSON exports results to a JSON file.
func ExportJSON(results []runner.ExperimentResult, filename string) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// ExportSummary writes the run summary next to the raw results.
func ExportSummary(item storage.HistoryItem, filename string) error {
	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

type TimeBucket struct {
	Timestamp int64 `json:"timestamp"`
	Requests  int   `json:"requests"`
	Errors    int   `json:"errors"`
}

// Timeline buckets results per second of wall clock.
func Timeline(results []runner.ExperimentResult) []TimeBucket {
	buckets := make(map[int64]*TimeBucket)

	for _, res := range results {
		ts := res.TimeStamp.Unix()
		b, ok := buckets[ts]
		if !ok {
			b = &TimeBucket{Timestamp: ts}
			buckets[ts] = b
		}
		b.Requests++
		if !res.Success {
			b.Errors++
		}
	}

	timeline := make([]TimeBucket, 0, len(buckets))
	for _, b := range buckets {
		timeline = append(timeline, *b)
	}

	sort.Slice(timeline, func(i, j int) bool {
		return timeline[i].Timestamp < timeline[j].Timestamp
	})

	return timeline
}

// ExportAll writes <prefix>.csv, <prefix>.json, <prefix>_summary.json and
// <prefix>_timeline.json.
func ExportAll(prefix string, item storage.HistoryItem, results []runner.ExperimentResult) error {
	if err := ExportCSV(results, prefix+".csv"); err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	if err := ExportJSON(results, prefix+".json"); err != nil {
		return fmt.Errorf("json: %w", err)
	}
	if err := ExportSummary(item, prefix+"_summary.json"); err != nil {
		return fmt.Errorf("summary: %w", err)
	}

	data, err := json.MarshalIndent(Timeline(results), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(prefix+"_timeline.json", data, 0644); err != nil {
		return fmt.Errorf("timeline: %w", err)
	}
	return nil
}
