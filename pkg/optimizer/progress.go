package optimizer

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// ProgressSnapshot is a point-in-time view of an optimization run.
type ProgressSnapshot struct {
	CurrentGoal    string
	CompletedGoals int
	TotalGoals     int
	Elapsed        time.Duration
	Done           bool
}

func (p ProgressSnapshot) String() string {
	if p.Done {
		return fmt.Sprintf("optimized %d/%d goals", p.CompletedGoals, p.TotalGoals)
	}
	return fmt.Sprintf(
		"optimizing %s (%d/%d goals)",
		p.CurrentGoal,
		p.CompletedGoals+1,
		p.TotalGoals,
	)
}

// OperationProgress tracks which goal an optimization run is working on. It's safe to read
// from other goroutines while the run is in progress. A nil *OperationProgress is valid and
// records nothing.
type OperationProgress struct {
	currentGoal    *atomic.String
	completedGoals *atomic.Int32
	totalGoals     *atomic.Int32
	started        *atomic.Time
	done           *atomic.Bool

	mutex     sync.Mutex
	listeners []func(ProgressSnapshot)
}

// NewOperationProgress returns an empty progress tracker.
func NewOperationProgress() *OperationProgress {
	return &OperationProgress{
		currentGoal:    atomic.NewString(""),
		completedGoals: atomic.NewInt32(0),
		totalGoals:     atomic.NewInt32(0),
		started:        atomic.NewTime(time.Time{}),
		done:           atomic.NewBool(false),
	}
}

// OnUpdate registers a function that's called after every progress change.
func (p *OperationProgress) OnUpdate(listener func(ProgressSnapshot)) {
	if p == nil {
		return
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.listeners = append(p.listeners, listener)
}

// Snapshot returns the current state of the run.
func (p *OperationProgress) Snapshot() ProgressSnapshot {
	if p == nil {
		return ProgressSnapshot{}
	}

	snapshot := ProgressSnapshot{
		CurrentGoal:    p.currentGoal.Load(),
		CompletedGoals: int(p.completedGoals.Load()),
		TotalGoals:     int(p.totalGoals.Load()),
		Done:           p.done.Load(),
	}
	if started := p.started.Load(); !started.IsZero() {
		snapshot.Elapsed = time.Since(started)
	}
	return snapshot
}

func (p *OperationProgress) start(totalGoals int) {
	if p == nil {
		return
	}
	p.currentGoal.Store("")
	p.completedGoals.Store(0)
	p.totalGoals.Store(int32(totalGoals))
	p.started.Store(time.Now())
	p.done.Store(false)
	p.notify()
}

func (p *OperationProgress) goalStarted(name string) {
	if p == nil {
		return
	}
	p.currentGoal.Store(name)
	p.notify()
}

func (p *OperationProgress) goalFinished() {
	if p == nil {
		return
	}
	p.completedGoals.Inc()
	p.notify()
}

func (p *OperationProgress) finish() {
	if p == nil {
		return
	}
	p.currentGoal.Store("")
	p.done.Store(true)
	p.notify()
}

func (p *OperationProgress) notify() {
	p.mutex.Lock()
	listeners := append([]func(ProgressSnapshot){}, p.listeners...)
	p.mutex.Unlock()

	snapshot := p.Snapshot()
	for _, listener := range listeners {
		listener(snapshot)
	}
}
