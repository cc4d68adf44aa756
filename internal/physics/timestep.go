package physics

import (
	"fmt"
	"sort"
	"time"
)

const (
	// DefaultHysteresis scales the budget check for moving to a finer step.
	DefaultHysteresis = 1.5
	// DefaultIterLimit caps the steps taken per frame.
	DefaultIterLimit = 20

	costFalloff      = 0.33
	timestepEpsilon  = time.Nanosecond
	defaultTimeScale = 1.0
)

type Mode uint8

const (
	ModeFixed Mode = iota
	ModeSemiFixed
)

func (m Mode) String() string {
	if m == ModeFixed {
		return "fixed"
	}
	return "semi_fixed"
}

// Clock supplies wall-clock time for step-cost measurement and the
// running-slow / running-fast timers.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Qualifier selects what SwitchToStep does with the slow/fast timers.
type Qualifier uint8

const (
	// KeepQualifier leaves the timers untouched.
	KeepQualifier Qualifier = iota
	// NoPostponement clears both timers, as if no frame had run slow.
	NoPostponement
	// StartPostponementNow begins a new running-slow series at the current
	// time.
	StartPostponementNow
)

// HzToDuration converts a stepping rate to a timestep.
func HzToDuration(hz float64) time.Duration {
	return time.Duration(float64(time.Second) / hz)
}

// Timestep is the stepper's state: the target delta (fixed, or picked from
// a ladder), the accumulated simulated-time debt, and the moving average of
// measured step cost. Mutated only by the stepper.
type Timestep struct {
	mode  Mode
	fixed time.Duration

	ladder      []time.Duration
	index       int
	maxFraction float64
	minSlow     time.Duration
	minFast     time.Duration
	hysteresis  float64
	slowSince   time.Time
	fastSince   time.Time

	accumulator    time.Duration
	avgCost        float64 // seconds
	costSeeded     bool
	iterLimit      int
	frameTimeLimit time.Duration
	timeScale      float64
	clock          Clock

	frameSteps  int
	globalSteps uint64
}

func NewFixed(delta time.Duration) (*Timestep, error) {
	if delta <= 0 {
		return nil, fmt.Errorf("%w: fixed delta %v", ErrInvalidTimestep, delta)
	}
	return &Timestep{
		mode:       ModeFixed,
		fixed:      delta,
		hysteresis: DefaultHysteresis,
		iterLimit:  DefaultIterLimit,
		timeScale:  defaultTimeScale,
		clock:      SystemClock{},
	}, nil
}

// NewSemiFixed builds an adaptive timestep over ladder. The ladder is
// sorted ascending and deduplicated; it must be non-empty and strictly
// positive. Stepping starts at the finest delta.
func NewSemiFixed(ladder []time.Duration, maxFraction float64, minSlow, minFast time.Duration) (*Timestep, error) {
	if len(ladder) == 0 {
		return nil, fmt.Errorf("%w: empty ladder", ErrInvalidTimestep)
	}
	if maxFraction <= 0 {
		return nil, fmt.Errorf("%w: max physics time fraction %v", ErrInvalidTimestep, maxFraction)
	}
	steps := append([]time.Duration(nil), ladder...)
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })
	if steps[0] <= 0 {
		return nil, fmt.Errorf("%w: non-positive ladder step %v", ErrInvalidTimestep, steps[0])
	}
	uniq := steps[:1]
	for _, s := range steps[1:] {
		if s != uniq[len(uniq)-1] {
			uniq = append(uniq, s)
		}
	}
	return &Timestep{
		mode:        ModeSemiFixed,
		ladder:      uniq,
		maxFraction: maxFraction,
		minSlow:     minSlow,
		minFast:     minFast,
		hysteresis:  DefaultHysteresis,
		iterLimit:   DefaultIterLimit,
		timeScale:   defaultTimeScale,
		clock:       SystemClock{},
	}, nil
}

func (t *Timestep) WithClock(c Clock) *Timestep { t.clock = c; return t }

func (t *Timestep) WithIterLimit(n int) *Timestep { t.iterLimit = n; return t }

func (t *Timestep) WithHysteresis(h float64) *Timestep { t.hysteresis = h; return t }

func (t *Timestep) WithTimeScale(s float64) *Timestep { t.timeScale = s; return t }

// WithFrameTimeLimit postpones the remaining steps of a frame to the next
// one once stepping has taken longer than d. Zero disables the limit.
func (t *Timestep) WithFrameTimeLimit(d time.Duration) *Timestep { t.frameTimeLimit = d; return t }

func (t *Timestep) Mode() Mode { return t.mode }

// Target returns the delta each engine step advances the simulation by.
func (t *Timestep) Target() time.Duration {
	if t.mode == ModeFixed {
		return t.fixed
	}
	return t.ladder[t.index]
}

func (t *Timestep) Index() int { return t.index }

func (t *Timestep) Accumulator() time.Duration { return t.accumulator }

func (t *Timestep) AvgStepCost() time.Duration {
	return time.Duration(t.avgCost * float64(time.Second))
}

// Differs reports whether an engine timestep disagrees with the target.
func (t *Timestep) Differs(engineDelta time.Duration) bool {
	d := engineDelta - t.Target()
	if d < 0 {
		d = -d
	}
	return d > timestepEpsilon
}

// ResetCost forgets the measured step cost. Samples taken at different
// timesteps are not comparable. The next sample seeds the average.
func (t *Timestep) ResetCost() {
	t.avgCost = 0
	t.costSeeded = false
}

// SetRunningSlow starts the running-slow timer on the first true and
// clears it on false.
func (t *Timestep) SetRunningSlow(slow bool) {
	switch {
	case slow && t.slowSince.IsZero():
		t.slowSince = t.clock.Now()
	case !slow:
		t.slowSince = time.Time{}
	}
}

func (t *Timestep) SetRunningFast(fast bool) {
	switch {
	case fast && t.fastSince.IsZero():
		t.fastSince = t.clock.Now()
	case !fast:
		t.fastSince = time.Time{}
	}
}

func (t *Timestep) ShouldIncrease() bool {
	return !t.slowSince.IsZero() && t.clock.Now().Sub(t.slowSince) >= t.minSlow
}

func (t *Timestep) ShouldDecrease() bool {
	return !t.fastSince.IsZero() && t.clock.Now().Sub(t.fastSince) >= t.minFast
}

func (t *Timestep) resetTimers() {
	t.slowSince = time.Time{}
	t.fastSince = time.Time{}
}

// IncreaseTimestep moves to the next coarser delta.
func (t *Timestep) IncreaseTimestep() error {
	if t.mode != ModeSemiFixed {
		return ErrWrongStepType
	}
	if t.index >= len(t.ladder)-1 {
		// Start a new series so exhaustion is reported once per window.
		t.resetTimers()
		return &TimestepChangeError{Op: "increase", Index: t.index, Steps: len(t.ladder), Err: ErrMaximumTimestepReached}
	}
	t.index++
	t.resetTimers()
	return nil
}

// DecreaseTimestep moves to the next finer delta.
func (t *Timestep) DecreaseTimestep() error {
	if t.mode != ModeSemiFixed {
		return ErrWrongStepType
	}
	if t.index == 0 {
		t.resetTimers()
		return &TimestepChangeError{Op: "decrease", Index: t.index, Steps: len(t.ladder), Err: ErrMinimumTimestepReached}
	}
	t.index--
	t.resetTimers()
	return nil
}

// SwitchToStep selects a ladder entry directly and returns its delta.
func (t *Timestep) SwitchToStep(index int, q Qualifier) (time.Duration, error) {
	if t.mode != ModeSemiFixed {
		return 0, ErrWrongStepType
	}
	if index < 0 || index >= len(t.ladder) {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrStepOutOfBounds, index, len(t.ladder))
	}
	t.index = index
	switch q {
	case NoPostponement:
		t.resetTimers()
	case StartPostponementNow:
		t.slowSince = t.clock.Now()
		t.fastSince = time.Time{}
	}
	return t.ladder[index], nil
}

// Adapt re-evaluates the ladder position from the measured step cost.
// It returns true when the target changed. Ladder exhaustion is returned
// as an error and leaves the rate unchanged.
func (t *Timestep) Adapt() (bool, error) {
	if t.mode != ModeSemiFixed {
		return false, nil
	}
	// Nothing measured since the last reset.
	if !t.costSeeded {
		return false, nil
	}
	adjusted := t.avgCost * t.timeScale / t.maxFraction
	before := t.index

	if t.ladder[t.index].Seconds() < adjusted {
		t.SetRunningFast(false)
		t.SetRunningSlow(true)
		if t.ShouldIncrease() {
			if err := t.IncreaseTimestep(); err != nil {
				return false, err
			}
		}
		return t.index != before, nil
	}

	t.SetRunningSlow(false)
	if t.index > 0 && t.ladder[t.index-1].Seconds() > adjusted*t.hysteresis {
		t.SetRunningFast(true)
		if t.ShouldDecrease() {
			if err := t.DecreaseTimestep(); err != nil {
				return false, err
			}
		}
	} else {
		t.SetRunningFast(false)
	}
	return t.index != before, nil
}

// FrameReport summarizes one call to Advance.
type FrameReport struct {
	Steps int
	// Slow is set when the frame hit the iteration limit; the leftover
	// accumulator carries into the next frame.
	Slow bool
	// Postponed is set when the frame time limit cut stepping short.
	Postponed bool
}

// Advance adds frame to the accumulator and calls step while the
// accumulator covers the target, measuring each call's cost.
func (t *Timestep) Advance(frame time.Duration, step func()) FrameReport {
	target := t.Target()
	t.accumulator += frame
	t.frameSteps = 0

	var rep FrameReport
	start := t.clock.Now()
	for t.accumulator >= target && t.frameSteps <= t.iterLimit {
		if t.frameTimeLimit > 0 && t.frameSteps > 0 && t.clock.Now().Sub(start) >= t.frameTimeLimit {
			rep.Postponed = true
			break
		}
		s := t.clock.Now()
		step()
		t.sample(t.clock.Now().Sub(s))

		t.accumulator -= target
		t.frameSteps++
		t.globalSteps++
	}
	rep.Steps = t.frameSteps
	rep.Slow = t.frameSteps > t.iterLimit
	return rep
}

func (t *Timestep) sample(cost time.Duration) {
	if !t.costSeeded {
		t.avgCost = cost.Seconds()
		t.costSeeded = true
		return
	}
	t.avgCost += costFalloff * (cost.Seconds() - t.avgCost)
}

// TimestepSnapshot is a read-only copy of the stepper state for
// diagnostics.
type TimestepSnapshot struct {
	Mode        Mode
	Target      time.Duration
	Index       int
	Ladder      []time.Duration
	Accumulator time.Duration
	AvgStepCost time.Duration
	RunningSlow bool
	RunningFast bool
	FrameSteps  int
	GlobalSteps uint64
}

func (t *Timestep) Snapshot() TimestepSnapshot {
	return TimestepSnapshot{
		Mode:        t.mode,
		Target:      t.Target(),
		Index:       t.index,
		Ladder:      append([]time.Duration(nil), t.ladder...),
		Accumulator: t.accumulator,
		AvgStepCost: t.AvgStepCost(),
		RunningSlow: !t.slowSince.IsZero(),
		RunningFast: !t.fastSince.IsZero(),
		FrameSteps:  t.frameSteps,
		GlobalSteps: t.globalSteps,
	}
}
