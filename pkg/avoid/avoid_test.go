package avoid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/robodog/pkg/gait"
	"github.com/gwillem/robodog/pkg/waiter"
)

func ok(d float64) Reading { return Reading{Distance: d, OK: true} }

func TestClassifier_Hysteresis(t *testing.T) {
	c := NewClassifier(Thresholds{Near: 10, Far: 20, DebounceLimit: 2})

	var got []State
	for _, d := range []float64{8, 8, 8} {
		got = append(got, c.Classify(ok(d)))
	}
	assert.Equal(t, []State{Warning, Warning, Danger}, got)
	assert.Equal(t, 3, c.Count())

	assert.Equal(t, Clear, c.Classify(Reading{}))
	assert.Equal(t, 3, c.Count(), "failed reading must not touch the counter")
	assert.Equal(t, Danger, c.Classify(ok(5)))
}

func TestClassifier_Bands(t *testing.T) {
	tests := []struct {
		name  string
		th    Thresholds
		in    []Reading
		want  []State
		count int
	}{
		{
			name:  "no debounce",
			th:    Thresholds{Near: 15, Far: 30},
			in:    []Reading{ok(14.9)},
			want:  []State{Danger},
			count: 1,
		},
		{
			name:  "near band resets counter",
			th:    Thresholds{Near: 10, Far: 20, DebounceLimit: 2},
			in:    []Reading{ok(8), ok(8), ok(15), ok(8)},
			want:  []State{Warning, Warning, Warning, Warning},
			count: 1,
		},
		{
			name:  "far band resets counter",
			th:    Thresholds{Near: 10, Far: 20, DebounceLimit: 1},
			in:    []Reading{ok(8), ok(20), ok(8)},
			want:  []State{Warning, Clear, Warning},
			count: 1,
		},
		{
			name:  "boundaries",
			th:    Thresholds{Near: 12, Far: 25},
			in:    []Reading{ok(12), ok(25), ok(499)},
			want:  []State{Warning, Clear, Clear},
			count: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(tt.th)
			var got []State
			for _, r := range tt.in {
				got = append(got, c.Classify(r))
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.count, c.Count())
		})
	}
}

func TestClassifier_Reset(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	c.Classify(ok(5))
	c.Classify(ok(5))
	c.Reset()
	assert.Zero(t, c.Count())
	assert.Equal(t, Warning, c.Classify(ok(5)))
}

func TestPresets(t *testing.T) {
	assert.Equal(t, []string{"debounced", "standard", "tight"}, PresetNames())
	for _, name := range PresetNames() {
		th, found := Preset(name)
		require.True(t, found)
		assert.NoError(t, th.Validate(), name)
	}
	assert.Equal(t, Thresholds{Near: 12, Far: 25, DebounceLimit: 2}, DefaultThresholds())

	assert.Error(t, Thresholds{Near: 20, Far: 10}.Validate())
	assert.Error(t, Thresholds{Near: 5, Far: 10, DebounceLimit: -1}.Validate())
}

// scripted returns values in order, then repeats the last one.
type scripted struct {
	values []float64
	calls  int
}

func (s *scripted) RawMeasureDistance() float64 {
	i := s.calls
	if i >= len(s.values) {
		i = len(s.values) - 1
	}
	s.calls++
	return s.values[i]
}

func TestReader_ReadDistanceSafe(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		want    Reading
		calls   int
		elapsed time.Duration
	}{
		{"first valid", []float64{42}, ok(42), 1, 0},
		{"no echo then valid", []float64{-1, 30}, ok(30), 2, 50 * time.Millisecond},
		{"echo stuck twice", []float64{-2, -2, 12}, ok(12), 3, 100 * time.Millisecond},
		{"all invalid", []float64{-1, 0, 500}, Reading{}, 3, 100 * time.Millisecond},
		{"out of range", []float64{650}, Reading{}, 3, 100 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := waiter.NewFakeClock(time.Unix(0, 0))
			ranger := &scripted{values: tt.values}
			r := NewReader(ranger, waiter.New(clock, nil, 20*time.Millisecond), 0)

			got, res := r.ReadDistanceSafe()
			assert.Equal(t, waiter.Completed, res)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.calls, ranger.calls)
			assert.Equal(t, tt.elapsed, clock.Elapsed())
		})
	}
}

func TestReader_CancelledRetry(t *testing.T) {
	clock := waiter.NewFakeClock(time.Unix(0, 0))
	cancel := &waiter.CancelAt{Clock: clock, At: 20 * time.Millisecond}
	ranger := RangerFunc(func() float64 { return -1 })
	r := NewReader(ranger, waiter.New(clock, cancel, 20*time.Millisecond), 50*time.Millisecond)

	got, res := r.ReadDistanceSafe()
	assert.Equal(t, waiter.Cancelled, res)
	assert.False(t, got.OK)
	assert.Equal(t, 20*time.Millisecond, clock.Elapsed())
}

type fakeMover struct {
	calls []string
}

func (m *fakeMover) Stand() { m.calls = append(m.calls, "stand") }

func (m *fakeMover) Walk(dir gait.Direction, steps int) waiter.Result {
	m.calls = append(m.calls, "walk "+dir.String())
	return waiter.Completed
}

func (m *fakeMover) Turn(t gait.Turn, steps int) waiter.Result {
	m.calls = append(m.calls, "turn "+t.String())
	return waiter.Completed
}

type countAlerts int

func (c *countAlerts) Alert() { *c++ }

func TestPolicy_DangerAlternates(t *testing.T) {
	m := &fakeMover{}
	p := NewPolicy(m, nil, waiter.New(waiter.NewFakeClock(time.Unix(0, 0)), nil, 0), 0)

	d1, _ := p.Act(Danger)
	d2, _ := p.Act(Danger)
	d3, _ := p.Act(Danger)

	assert.Equal(t, []Move{MoveTurnLeft, MoveTurnRight, MoveTurnLeft}, []Move{d1.Move, d2.Move, d3.Move})
	assert.Equal(t, []string{"turn left", "turn right", "turn left"}, m.calls)
}

func TestPolicy_CounterAdvancesOnEveryState(t *testing.T) {
	m := &fakeMover{}
	p := NewPolicy(m, nil, waiter.New(waiter.NewFakeClock(time.Unix(0, 0)), nil, 0), 0)

	p.Act(Clear)
	d, _ := p.Act(Danger)
	assert.Equal(t, MoveTurnRight, d.Move)
	assert.Equal(t, uint(2), p.Actions())

	p.Reset()
	d, _ = p.Act(Danger)
	assert.Equal(t, MoveTurnLeft, d.Move)
}

func TestPolicy_WarningHoldsAndAlerts(t *testing.T) {
	clock := waiter.NewFakeClock(time.Unix(0, 0))
	m := &fakeMover{}
	var alerts countAlerts
	p := NewPolicy(m, &alerts, waiter.New(clock, nil, 20*time.Millisecond), 0)

	d, res := p.Act(Warning)
	assert.Equal(t, Decision{State: Warning, Move: MoveHold}, d)
	assert.Equal(t, waiter.Completed, res)
	assert.Equal(t, []string{"stand"}, m.calls)
	assert.Equal(t, countAlerts(1), alerts)
	assert.Equal(t, DefaultLongPause, clock.Elapsed())
}

func TestPolicy_ClearWalksForward(t *testing.T) {
	m := &fakeMover{}
	p := NewPolicy(m, nil, waiter.New(waiter.NewFakeClock(time.Unix(0, 0)), nil, 0), 0)

	d, _ := p.Act(Clear)
	assert.Equal(t, Decision{State: Clear, Move: MoveForward}, d)
	assert.Equal(t, []string{"walk forward"}, m.calls)
}
