package probe

import (
	"context"
	"fmt"
	"io"
	"strings"
)

var rule = strings.Repeat("-", 40)

// WriteReport prints the fixed-format diagnostic block.
func WriteReport(w io.Writer, r Result) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "DIAGNOSTIC RESULTS")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Status Code    : %d\n", r.StatusCode)
	fmt.Fprintf(w, "Content Size   : %.2f KB (%.2f MB)\n", r.SizeKB(), r.SizeMB())
	fmt.Fprintf(w, "Total Time     : %.4f s\n", r.TotalTime.Seconds())
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "[Phase 1] Server Processing + Network Latency (TTFB): %.4f s\n", r.TTFB.Seconds())
	fmt.Fprintf(w, "[Phase 2] Data Transfer (Download Time)             : %.4f s\n", r.DownloadTime().Seconds())
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Avg Download Speed: %.2f KB/s\n", r.Throughput())
}

// WriteError prints err as a single line.
func WriteError(w io.Writer, err error) {
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	fmt.Fprintf(w, "Error: %s\n", msg)
}

// Diagnose runs the probe against url and prints either the report or one
// error line. Failures never propagate to the caller.
func (p *Probe) Diagnose(ctx context.Context, w io.Writer, url string) {
	fmt.Fprintf(w, "Connecting to %s ...\n", url)

	res, err := p.Run(ctx, url)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteReport(w, res)
}
