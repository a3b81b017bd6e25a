// Package app contains the protocol engine: the cooperatively suspending rule
// script and the game server that drives it, fans rules out to transports,
// aggregates responses and broadcasts settled batches.
package app

import (
	"errors"

	"cardtable/internal/domain"
	"cardtable/internal/protocol"
)

// State is the engine lifecycle. There is no transition out of Complete or
// Error; a new game requires a fresh script instance.
type State string

const (
	// StateReady means the engine is awaiting responses for the last rule.
	StateReady State = "ready"
	// StateComplete means the script returned normally.
	StateComplete State = "complete"
	// StateError means a fatal protocol error stopped the engine.
	StateError State = "error"
)

// ErrAborted is returned from Flow.Wait when the engine abandoned the script.
var ErrAborted = errors.New("script aborted")

// Script is the game's rule sequence: a single-threaded procedure that
// suspends at every Flow.Wait and resumes with the settled per-user results.
// Returning nil signals normal completion ("game over").
type Script func(*Flow, *domain.Board) error

// Flow is the script's suspension point. The engine owns the other ends of
// both channels and never resumes two steps concurrently.
type Flow struct {
	rules  chan *protocol.Rule
	resume chan protocol.Aggregate
	quit   chan struct{}
}

// Wait yields one rule and blocks until the engine resumes the script with
// the aggregated per-user results. Scripts must propagate the error: it is
// only non-nil when the engine has abandoned this script instance.
func (f *Flow) Wait(rule *protocol.Rule) (protocol.Aggregate, error) {
	select {
	case f.rules <- rule:
	case <-f.quit:
		return nil, ErrAborted
	}
	select {
	case agg := <-f.resume:
		return agg, nil
	case <-f.quit:
		return nil, ErrAborted
	}
}

// task is one running script instance. started flips on the first step: the
// script is only resumed on the steps after it.
type task struct {
	flow    *Flow
	done    chan error
	started bool
}

func startTask(script Script, board *domain.Board) *task {
	t := &task{
		flow: &Flow{
			rules:  make(chan *protocol.Rule),
			resume: make(chan protocol.Aggregate),
			quit:   make(chan struct{}),
		},
		done: make(chan error, 1),
	}
	go func() {
		t.done <- script(t.flow, board)
	}()
	return t
}

func (t *task) abort() {
	close(t.flow.quit)
}
