package user

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresets(t *testing.T) {
	play, err := Preset("play")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, play.Method)
	assert.Equal(t, "http://8.155.47.138:8081/api/public/songs/play/1", play.URL())
	assert.Equal(t, 10*time.Millisecond, play.WaitTime)

	list, err := Preset("list")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, list.Method)
	assert.Equal(t, "https://beemusic.fun/api/public/songs/get", list.URL())

	_, err = Preset("delete")
	assert.ErrorContains(t, err, "unknown preset")
	assert.Equal(t, []string{"list", "play"}, PresetNames())
}

func TestUser_Iterate(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.Write([]byte("ok!"))
	}))
	defer srv.Close()

	b := Behavior{Name: "play", Host: srv.URL, Method: http.MethodPost, Path: "/api/public/songs/play/1"}
	out := New(b, srv.Client(), nil).Iterate(context.Background())

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/public/songs/play/1", gotPath)
	assert.True(t, out.Success())
	assert.Equal(t, int64(3), out.Bytes)
	assert.Equal(t, srv.URL+"/api/public/songs/play/1", out.URL)
	assert.Empty(t, out.ErrorString())
}

func TestUser_IterateFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	b := Behavior{Name: "list", Host: srv.URL, Method: http.MethodGet, Path: "/api/public/songs/get"}

	out := New(b, srv.Client(), nil).Iterate(context.Background())
	assert.False(t, out.Success())
	assert.Equal(t, "HTTP 503", out.ErrorString())

	srv.Close()

	out = New(b, nil, nil).Iterate(context.Background())
	assert.Error(t, out.Err)
	assert.False(t, out.Success())
}

func TestUser_RunOneCallPerIterationThenWait(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, time.Now())
		mu.Unlock()
	}))
	defer srv.Close()

	wait := 20 * time.Millisecond
	b := Behavior{Name: "list", Host: srv.URL, Method: http.MethodGet, Path: "/", WaitTime: wait}

	var recorded []Outcome
	u := New(b, srv.Client(), func(o Outcome) { recorded = append(recorded, o) })

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	u.Run(ctx)

	mu.Lock()
	defer mu.Unlock()

	require.GreaterOrEqual(t, len(calls), 2)
	// The last call may be cut off by the deadline.
	assert.InDelta(t, len(calls), len(recorded), 1)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].Sub(calls[i-1]), wait)
	}
}
