package tui

import (
	"context"
	"net/http"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songbench/internal/runner"
	"songbench/internal/user"
)

func newTestModel(t *testing.T) Model {
	t.Helper()

	r, err := runner.NewRunner(runner.Config{
		Behavior: user.Behavior{
			Name:     "list",
			Host:     "http://127.0.0.1:1",
			Method:   http.MethodGet,
			Path:     "/api/public/songs/get",
			WaitTime: 10 * time.Millisecond,
		},
		Shape:     "constant",
		TargetRPS: 50,
		Duration:  30 * time.Second,
	}, nil)
	require.NoError(t, err)

	return NewModel(context.Background(), r)
}

func TestModel_Snapshots(t *testing.T) {
	m := newTestModel(t)

	next, cmd := m.Update(statsMsg(runner.StatsSnapshot{Requests: 10, Fail: 1, Users: 50, RunTime: 15 * time.Second}))
	m = next.(Model)
	assert.NotNil(t, cmd)
	assert.False(t, m.Finished)
	assert.Equal(t, uint64(10), m.LastReqs)
	assert.InDelta(t, 0.5, m.percent(), 0.001)
	assert.Len(t, m.RpsLine.Data, 1)

	view := m.View()
	assert.Contains(t, view, "GET http://127.0.0.1:1/api/public/songs/get")
	assert.Contains(t, view, "USERS: 50")

	next, _ = m.Update(statsMsg(runner.StatsSnapshot{Requests: 12, Finished: true, RunTime: 30 * time.Second}))
	m = next.(Model)
	assert.True(t, m.Finished)
	assert.Equal(t, 1.0, m.percent())
	assert.Contains(t, m.View(), "Test Complete")
}

func TestModel_QuitStopsRunFirst(t *testing.T) {
	m := newTestModel(t)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.Error(t, m.ctx.Err(), "run context should be cancelled")

	m.Finished = true
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_WindowSize(t *testing.T) {
	m := newTestModel(t)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = next.(Model)
	assert.Equal(t, 96, m.Progress.Width)
	assert.Equal(t, 42, m.RpsLine.Width)
}
