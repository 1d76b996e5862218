package shape

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantRPS_Tick(t *testing.T) {
	s := ConstantRPS{TargetRPS: 50, Duration: 30 * time.Second}

	tests := []struct {
		name    string
		runTime time.Duration
		want    Target
		running bool
	}{
		{"start", 0, Target{Users: 50, SpawnRate: 50}, true},
		{"mid run", 12500 * time.Millisecond, Target{Users: 50, SpawnRate: 50}, true},
		{"exactly at deadline", 30 * time.Second, Target{Users: 50, SpawnRate: 50}, true},
		{"just past deadline", 30*time.Second + time.Nanosecond, Target{}, false},
		{"long after deadline", 5 * time.Minute, Target{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.Tick(tt.runTime)
			assert.Equal(t, tt.running, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConstantRPS_NeverVaries(t *testing.T) {
	s := ConstantRPS{TargetRPS: 50, Duration: 30 * time.Second}

	for ms := 0; ms <= 30000; ms += 250 {
		got, ok := s.Tick(time.Duration(ms) * time.Millisecond)
		require.True(t, ok, "t=%dms", ms)
		require.Equal(t, 50, got.Users)
		require.Equal(t, 50.0, got.SpawnRate)
	}
}

func TestStages_Tick(t *testing.T) {
	s := Stages{Peak: 100, RampUp: 10 * time.Second, Steady: 20 * time.Second, RampDown: 10 * time.Second}

	got, ok := s.Tick(5 * time.Second)
	require.True(t, ok)
	assert.Equal(t, 50, got.Users)

	got, ok = s.Tick(15 * time.Second)
	require.True(t, ok)
	assert.Equal(t, 100, got.Users)

	got, ok = s.Tick(35 * time.Second)
	require.True(t, ok)
	assert.Equal(t, 50, got.Users)

	got, ok = s.Tick(40 * time.Second)
	require.True(t, ok)
	assert.Equal(t, 0, got.Users)

	_, ok = s.Tick(40*time.Second + time.Millisecond)
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	s, err := New(KindConstant, 50, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, ConstantRPS{TargetRPS: 50, Duration: 30 * time.Second}, s)

	s, err = New(KindStages, 10, 50*time.Second)
	require.NoError(t, err)
	assert.Equal(t, Stages{Peak: 10, RampUp: 10 * time.Second, Steady: 30 * time.Second, RampDown: 10 * time.Second}, s)

	_, err = New("sine", 10, time.Second)
	assert.Error(t, err)
}
