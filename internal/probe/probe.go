package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultURL       = "https://beemusic.fun/api/public/songs/get"
	DefaultChunkSize = 8192
)

// Result holds the three milestones of one GET.
type Result struct {
	StatusCode int
	ByteCount  int
	TTFB       time.Duration
	TotalTime  time.Duration

	Timeline Timeline
}

// DownloadTime is the time spent reading the body after the headers arrived.
func (r Result) DownloadTime() time.Duration {
	return r.TotalTime - r.TTFB
}

func (r Result) SizeKB() float64 {
	return float64(r.ByteCount) / 1024
}

func (r Result) SizeMB() float64 {
	return r.SizeKB() / 1024
}

// Throughput is the average body transfer speed in KB/s, 0 when the
// download took no measurable time.
func (r Result) Throughput() float64 {
	dl := r.DownloadTime()
	if dl <= 0 {
		return 0
	}
	return r.SizeKB() / dl.Seconds()
}

// Timeline is the connection setup breakdown reported by httptrace. Zero
// values mean the phase did not happen, e.g. a reused connection.
type Timeline struct {
	DNS          time.Duration
	Connect      time.Duration
	TLSHandshake time.Duration
	FirstByte    time.Duration
}

type Probe struct {
	Client    *http.Client
	ChunkSize int
	Logger    *zap.Logger

	now func() time.Time
}

// New returns a probe with certificate validation on and the client's
// default timeouts unless timeout > 0.
func New(timeout time.Duration, logger *zap.Logger) *Probe {
	if logger == nil {
		logger = zap.NewNop()
	}

	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}

	return &Probe{
		Client:    &http.Client{Transport: t, Timeout: timeout},
		ChunkSize: DefaultChunkSize,
		Logger:    logger,
		now:       time.Now,
	}
}

// Run issues one streaming GET and times it.
func (p *Probe) Run(ctx context.Context, url string) (Result, error) {
	var res Result

	chunkSize := p.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	now := p.now
	if now == nil {
		now = time.Now
	}

	// 1. Start timer
	start := now()
	rec := newTimelineRecorder(start)
	ctx = httptrace.WithClientTrace(ctx, rec.trace())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return res, fmt.Errorf("building request: %w", err)
	}

	// 2. Headers only, the body is still on the wire
	resp, err := p.Client.Do(req)
	if err != nil {
		return res, err
	}
	defer resp.Body.Close()

	// 3. Time to first byte
	res.TTFB = now().Sub(start)
	res.StatusCode = resp.StatusCode

	// 4. Drain the body chunk by chunk
	var content bytes.Buffer
	chunk := make([]byte, chunkSize)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			content.Write(chunk[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("reading body: %w", err)
		}
	}

	// 5. End timer
	res.TotalTime = now().Sub(start)
	res.ByteCount = content.Len()
	res.Timeline = rec.Timeline()

	p.Logger.Debug("probe finished",
		zap.String("url", url),
		zap.Int("status", res.StatusCode),
		zap.Int("bytes", res.ByteCount),
		zap.Duration("dns", res.Timeline.DNS),
		zap.Duration("connect", res.Timeline.Connect),
		zap.Duration("tls", res.Timeline.TLSHandshake),
		zap.Duration("first_byte", res.Timeline.FirstByte),
		zap.Duration("ttfb", res.TTFB),
		zap.Duration("total", res.TotalTime),
	)

	return res, nil
}

// timelineRecorder collects httptrace callbacks. Racing dual-stack dials can
// call back concurrently and after Do returns; only the first successful
// dial is recorded.
type timelineRecorder struct {
	start time.Time

	mu        sync.Mutex
	dnsStart  time.Time
	tlsStart  time.Time
	connStart map[string]time.Time
	connected bool
	tl        Timeline
}

func newTimelineRecorder(start time.Time) *timelineRecorder {
	return &timelineRecorder{start: start, connStart: make(map[string]time.Time)}
}

func (r *timelineRecorder) Timeline() Timeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tl
}

func (r *timelineRecorder) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			r.mu.Lock()
			r.dnsStart = time.Now()
			r.mu.Unlock()
		},
		DNSDone: func(httptrace.DNSDoneInfo) {
			r.mu.Lock()
			r.tl.DNS = time.Since(r.dnsStart)
			r.mu.Unlock()
		},
		ConnectStart: func(network, addr string) {
			r.mu.Lock()
			r.connStart[network+"/"+addr] = time.Now()
			r.mu.Unlock()
		},
		ConnectDone: func(network, addr string, err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			started, ok := r.connStart[network+"/"+addr]
			if err != nil || !ok || r.connected {
				return
			}
			r.connected = true
			r.tl.Connect = time.Since(started)
		},
		TLSHandshakeStart: func() {
			r.mu.Lock()
			r.tlsStart = time.Now()
			r.mu.Unlock()
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, err error) {
			if err != nil {
				return
			}
			r.mu.Lock()
			r.tl.TLSHandshake = time.Since(r.tlsStart)
			r.mu.Unlock()
		},
		GotFirstResponseByte: func() {
			r.mu.Lock()
			r.tl.FirstByte = time.Since(r.start)
			r.mu.Unlock()
		},
	}
}
