package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"songbench/internal/runner"
)

// Start runs r headless, printing a progress line until the run ends and a
// summary afterwards.
func Start(ctx context.Context, r *runner.Runner, w io.Writer) error {
	printHeader(w, r.Cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()

	totalDuration := r.Cfg.TotalDuration()

	for snap := range r.Updates {
		elapsed := snap.RunTime
		rps := 0.0
		if elapsed.Seconds() > 0 {
			rps = float64(snap.Requests) / elapsed.Seconds()
		}

		pct := 1.0
		if totalDuration > 0 {
			pct = elapsed.Seconds() / totalDuration.Seconds()
		}
		if pct > 1.0 {
			pct = 1.0
		}

		fmt.Fprintf(w, "\r%s %3.0f%% | %s/%s | Users: %3d | RPS: %.1f | OK: %d | Err: %d",
			progressBar(pct, 20), pct*100,
			elapsed.Round(time.Second), totalDuration,
			snap.Users,
			rps,
			snap.Success,
			snap.Fail,
		)

		if snap.Finished {
			break
		}
	}

	err := <-errCh
	printSummary(w, r)
	return err
}

func printHeader(w io.Writer, cfg runner.Config) {
	fmt.Fprintf(w, "\n🚀 STARTING SONGBENCH LOAD TEST\n")
	fmt.Fprintf(w, "======================================================================\n")
	fmt.Fprintf(w, "Target     : %s %s\n", cfg.Behavior.Method, cfg.Behavior.URL())
	fmt.Fprintf(w, "Shape      : %s (%d users @ %d/s)\n", cfg.Shape, cfg.TargetRPS, cfg.TargetRPS)
	fmt.Fprintf(w, "Duration   : %s\n", cfg.Duration)
	fmt.Fprintf(w, "Think Time : %s\n", cfg.Behavior.WaitTime)
	fmt.Fprintf(w, "Timeout    : %s\n", cfg.Timeout)
	fmt.Fprintf(w, "======================================================================\n\n")
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

func printSummary(w io.Writer, r *runner.Runner) {
	stats := r.Stats
	totalTime := r.Elapsed()
	rps := 0.0
	if totalTime > 0 {
		rps = float64(stats.Requests) / totalTime.Seconds()
	}

	fmt.Fprintf(w, "\n\n📊 LOAD TEST RESULTS\n")
	fmt.Fprintf(w, "======================================================================\n")
	fmt.Fprintf(w, "Total Duration : %s\n", totalTime.Round(time.Millisecond))
	fmt.Fprintf(w, "Requests Sent  : %d\n", stats.Requests)
	fmt.Fprintf(w, "Success        : %d\n", stats.Success)
	fmt.Fprintf(w, "Failures       : %d\n", stats.Fail)
	fmt.Fprintf(w, "Actual RPS     : %.2f\n", rps)
	fmt.Fprintf(w, "\n⏱️  RESPONSE TIMES (ms) [Success Only]\n")
	fmt.Fprintf(w, "   P50 : %.2f\n", stats.GetP50Service())
	fmt.Fprintf(w, "   P90 : %.2f\n", stats.GetP90Service())
	fmt.Fprintf(w, "   P95 : %.2f\n", stats.GetP95Service())
	fmt.Fprintf(w, "   P99 : %.2f\n", stats.GetP99Service())
	fmt.Fprintf(w, "   Max : %d\n", stats.MaxServiceMs())

	errCounts := stats.GetErrorCounts()
	if len(errCounts) > 0 {
		fmt.Fprintf(w, "\n❌ FAILURE SUMMARY\n")

		msgs := make([]string, 0, len(errCounts))
		for msg := range errCounts {
			msgs = append(msgs, msg)
		}
		sort.Slice(msgs, func(i, j int) bool {
			return errCounts[msgs[i]] > errCounts[msgs[j]]
		})
		for _, msg := range msgs {
			fmt.Fprintf(w, "   %d x %s\n", errCounts[msg], msg)
		}
	}
	fmt.Fprintf(w, "======================================================================\n")
}
