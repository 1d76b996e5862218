package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultWaitTime is the constant think-time between two iterations.
const DefaultWaitTime = 10 * time.Millisecond

// Behavior is the fixed task a virtual user repeats.
type Behavior struct {
	Name     string
	Host     string
	Method   string
	Path     string
	WaitTime time.Duration
}

// URL joins host and path.
func (b Behavior) URL() string {
	return strings.TrimRight(b.Host, "/") + "/" + strings.TrimLeft(b.Path, "/")
}

func (b Behavior) Validate() error {
	if b.Host == "" {
		return errors.New("behavior host is required")
	}
	if b.Method == "" {
		return errors.New("behavior method is required")
	}
	if b.WaitTime < 0 {
		return errors.New("wait time cannot be negative")
	}
	return nil
}

var presets = map[string]Behavior{
	"play": {
		Name:     "play",
		Host:     "http://8.155.47.138:8081",
		Method:   http.MethodPost,
		Path:     "/api/public/songs/play/1",
		WaitTime: DefaultWaitTime,
	},
	"list": {
		Name:     "list",
		Host:     "https://beemusic.fun",
		Method:   http.MethodGet,
		Path:     "/api/public/songs/get",
		WaitTime: DefaultWaitTime,
	},
}

// Preset returns a copy of a named behavior.
func Preset(name string) (Behavior, error) {
	b, ok := presets[name]
	if !ok {
		return Behavior{}, fmt.Errorf("unknown preset %q (have: %s)", name, strings.Join(PresetNames(), ", "))
	}
	return b, nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Outcome is what a single iteration produced.
type Outcome struct {
	UserID      string
	Task        string
	URL         string
	Start       time.Time
	ServiceTime time.Duration
	Status      int
	Bytes       int64
	Err         error
}

// Success follows the scheduler's default: transport errors and non-2xx fail.
func (o Outcome) Success() bool {
	return o.Err == nil && o.Status >= 200 && o.Status < 300
}

// ErrorString is empty for successes.
func (o Outcome) ErrorString() string {
	switch {
	case o.Err != nil:
		return o.Err.Error()
	case !o.Success():
		return fmt.Sprintf("HTTP %d", o.Status)
	default:
		return ""
	}
}

// Recorder receives every finished iteration.
type Recorder func(Outcome)

type User struct {
	ID       string
	Behavior Behavior
	Client   *http.Client
	Record   Recorder
}

func New(b Behavior, client *http.Client, rec Recorder) *User {
	if client == nil {
		client = http.DefaultClient
	}
	if rec == nil {
		rec = func(Outcome) {}
	}

	return &User{
		ID:       uuid.NewString(),
		Behavior: b,
		Client:   client,
		Record:   rec,
	}
}

// Run issues one request, waits the think-time and repeats until ctx ends.
func (u *User) Run(ctx context.Context) {
	wait := time.NewTimer(0)
	defer wait.Stop()
	<-wait.C

	for {
		if ctx.Err() != nil {
			return
		}

		out := u.Iterate(ctx)
		if ctx.Err() != nil {
			// Interrupted by shutdown, not a real failure.
			return
		}
		u.Record(out)

		wait.Reset(u.Behavior.WaitTime)
		select {
		case <-ctx.Done():
			return
		case <-wait.C:
		}
	}
}

// Iterate performs exactly one call of the behavior.
func (u *User) Iterate(ctx context.Context) Outcome {
	out := Outcome{
		UserID: u.ID,
		Task:   u.Behavior.Name,
		URL:    u.Behavior.URL(),
		Start:  time.Now(),
	}

	req, err := http.NewRequestWithContext(ctx, u.Behavior.Method, u.Behavior.URL(), nil)
	if err != nil {
		out.Err = err
		return out
	}

	resp, err := u.Client.Do(req)
	if err != nil {
		out.ServiceTime = time.Since(out.Start)
		out.Err = err
		return out
	}
	defer resp.Body.Close()

	out.Status = resp.StatusCode
	out.Bytes, err = io.Copy(io.Discard, resp.Body)
	out.ServiceTime = time.Since(out.Start)
	if err != nil {
		out.Err = fmt.Errorf("reading body: %w", err)
	}

	return out
}
