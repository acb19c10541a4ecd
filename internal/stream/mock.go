package stream

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ScriptedTransport is a deterministic Transport for testing. Each Stream
// call replays the next script in FIFO order and records the request.
type ScriptedTransport struct {
	mu      sync.Mutex
	scripts [][]Event
	Calls   []Request

	// Delay is slept before each event, so cancellation can land mid-stream.
	Delay time.Duration

	// OpenErr, when set, fails every Stream call before any event.
	OpenErr error
}

// NewScriptedTransport creates a transport with the given scripts.
func NewScriptedTransport(scripts ...[]Event) *ScriptedTransport {
	return &ScriptedTransport{scripts: scripts}
}

// AddScript appends one script to the queue.
func (t *ScriptedTransport) AddScript(events ...Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scripts = append(t.scripts, events)
}

// CallCount returns the number of Stream calls made.
func (t *ScriptedTransport) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Calls)
}

// Stream replays the next script. It returns an error when no script is
// queued, or OpenErr when set.
func (t *ScriptedTransport) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	t.mu.Lock()
	t.Calls = append(t.Calls, req)
	if t.OpenErr != nil {
		t.mu.Unlock()
		return nil, t.OpenErr
	}
	if len(t.scripts) == 0 {
		t.mu.Unlock()
		return nil, errors.New("no scripted stream queued")
	}
	script := t.scripts[0]
	t.scripts = t.scripts[1:]
	delay := t.Delay
	t.mu.Unlock()

	ch := make(chan Event)
	go func() {
		defer close(ch)
		for _, ev := range script {
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
