package main

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/robodog/pkg/avoid"
	"github.com/gwillem/robodog/pkg/control"
	"github.com/gwillem/robodog/pkg/monitoring"
	"github.com/gwillem/robodog/pkg/robot"
	"github.com/gwillem/robodog/pkg/telemetry"
)

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

func TestLoadConfig_MissingFileIsSimulated(t *testing.T) {
	cfg, found, err := loadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, cfg.Actuator.Port)
	assert.Equal(t, 5, cfg.Gait.Speed)
}

func TestTimingFrom(t *testing.T) {
	tm, err := timingFrom(robot.GaitConfig{})
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, tm.Stagger)

	tm, err = timingFrom(robot.GaitConfig{Timing: "plain", TurnBaseMS: intp(250), StaggerMS: intp(5)})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, tm.Stagger)
	assert.Equal(t, 250*time.Millisecond, tm.TurnBase)
	assert.Equal(t, 200*time.Millisecond, tm.WalkBase)

	_, err = timingFrom(robot.GaitConfig{Timing: "gallop"})
	assert.ErrorContains(t, err, "plain, staggered")
}

func TestThresholdsFrom(t *testing.T) {
	tests := []struct {
		name    string
		cfg     robot.AvoidanceConfig
		want    avoid.Thresholds
		wantErr bool
	}{
		{"default preset", robot.AvoidanceConfig{}, avoid.Thresholds{Near: 12, Far: 25, DebounceLimit: 2}, false},
		{"standard", robot.AvoidanceConfig{Preset: "standard"}, avoid.Thresholds{Near: 15, Far: 30}, false},
		{"override", robot.AvoidanceConfig{Preset: "tight", Far: floatp(40), DebounceLimit: intp(0)},
			avoid.Thresholds{Near: 10, Far: 40}, false},
		{"unknown preset", robot.AvoidanceConfig{Preset: "loose"}, avoid.Thresholds{}, true},
		{"inverted bands", robot.AvoidanceConfig{Near: floatp(30), Far: floatp(20)}, avoid.Thresholds{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := thresholdsFrom(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("thresholds mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSchedulerConfig_Bindings(t *testing.T) {
	cfg := robot.DefaultConfig()
	cfg.Keys = nil
	sc, err := schedulerConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, control.DefaultBindings(), sc.Bindings)
	assert.Equal(t, 800*time.Millisecond, sc.LongPause)
	assert.Equal(t, 50*time.Millisecond, sc.RetryDelay)

	cfg.Keys = map[string]string{"a": "avoidance", "x": "fly"}
	_, err = schedulerConfig(cfg)
	assert.Error(t, err)
}

func quietLogs(t *testing.T) {
	prev := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(prev) })
}

func TestKernel_SimulatedTeleopSession(t *testing.T) {
	quietLogs(t)

	cfg := robot.DefaultConfig()
	cfg.Telemetry.Path = filepath.Join(t.TempDir(), "events.db")

	k, err := buildKernel(cfg, kernelOptions{Simulate: true, Hz: 50, Seed: 1})
	require.NoError(t, err)
	require.NotNil(t, k.pwm)
	require.NotNil(t, k.ranger)
	assert.Nil(t, k.hub, "no websocket address configured")

	assert.True(t, k.press("1"))
	k.sched.Tick()
	assert.Equal(t, control.Teleop, k.sched.Mode())

	assert.True(t, k.press("S"))
	assert.False(t, k.press("s"), "lowercase is not a command")
	k.sched.Tick()
	assert.Equal(t, uint64(1), k.sched.Snapshot().Commands)

	assert.True(t, k.press("4"))
	k.sched.Tick()
	assert.Equal(t, control.Idle, k.sched.Mode())

	runID := k.rec.RunID()
	require.NoError(t, k.Close())

	db, err := telemetry.Load(cfg.Telemetry.Path)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.Events(runID, "")
	require.NoError(t, err)
	var kinds []string
	for _, r := range rows {
		kinds = append(kinds, r.Kind)
	}
	assert.Equal(t, []string{"mode", "command", "mode", "cancel"}, kinds)
	assert.Equal(t, "Stand", rows[1].Detail)
	assert.Equal(t, "teleop", rows[3].Detail)
}

func TestKernel_ServeFinishesBeforeClose(t *testing.T) {
	quietLogs(t)

	cfg := robot.DefaultConfig()
	cfg.Telemetry.Path = filepath.Join(t.TempDir(), "events.db")

	k, err := buildKernel(cfg, kernelOptions{Simulate: true, Hz: 50, Seed: 1})
	require.NoError(t, err)
	k.press("2")

	ctx, cancel := context.WithCancel(context.Background())
	done := k.serve(ctx)
	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not stop")
	}
	require.NoError(t, k.Close())

	assert.NotPanics(t, func() {
		k.rec.Record(control.Event{Time: time.Now(), Kind: control.EventDecision, Mode: control.Avoidance})
	})
}

func TestStatusOf(t *testing.T) {
	snap := control.Snapshot{
		Time:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Mode:    control.Avoidance,
		Speed:   7,
		State:   avoid.Danger,
		Move:    avoid.MoveTurnLeft,
		Reading: avoid.Reading{Distance: 9.5, OK: true},
		Actions: 3,
	}

	data, err := json.Marshal(statusOf(snap))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "avoidance", got["mode"])
	assert.Equal(t, "TURN LEFT", got["move"])
	assert.Equal(t, 9.5, got["distance_cm"])
	assert.Equal(t, float64(3), got["actions"])

	snap.Reading = avoid.Reading{}
	data, err = json.Marshal(statusOf(snap))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"distance_cm":null`)
}
