// Package stream manages streamed question-answer sessions. A Controller owns
// at most one active Session; transports deliver events on a channel and the
// host loop feeds them back through Apply, so all state changes happen on one
// goroutine.
package stream

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrEmptyQuestion is returned by Start for blank input. No session is
// created and any active session keeps running.
var ErrEmptyQuestion = errors.New("question is empty")

// Status is the lifecycle state of a session.
type Status int

const (
	StatusIdle Status = iota
	StatusThinking
	StatusStreaming
	StatusDone
	StatusError
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusThinking:
		return "thinking"
	case StatusStreaming:
		return "streaming"
	case StatusDone:
		return "done"
	case StatusError:
		return "error"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError || s == StatusAborted
}

// Request describes one question to stream.
type Request struct {
	Question       string `json:"question"`
	UseKGExpansion bool   `json:"use_kg_expansion"`
	TopK           int    `json:"top_k"`
	Subject        string `json:"subject,omitempty"`
}

// Response is the finalized form of one exchange: the accumulated answer
// folded together with the last received metadata.
type Response struct {
	Question         string   `json:"question"`
	Answer           string   `json:"answer"`
	Sources          []Source `json:"sources"`
	ExpandedConcepts []string `json:"expanded_concepts"`
	RetrievedCount   int      `json:"retrieved_count"`
	Model            string   `json:"model"`
	Attribution      string   `json:"attribution"`
}

// Transport opens a token stream for one question. The returned channel is
// closed after the terminal event; implementations stop sending promptly when
// ctx is cancelled.
type Transport interface {
	Stream(ctx context.Context, req Request) (<-chan Event, error)
}

// Session is the lifecycle of a single question. Fields are mutated only
// through Controller.Apply and Controller.Cancel, on the host loop.
type Session struct {
	id       string
	question string
	status   Status
	answer   strings.Builder
	metadata *Metadata
	err      error
	cancel   context.CancelFunc
}

// ID returns the session identifier carried by its event envelopes.
func (s *Session) ID() string { return s.id }

// Question returns the question as submitted (trimmed).
func (s *Session) Question() string { return s.question }

// Status returns the current lifecycle state.
func (s *Session) Status() Status { return s.status }

// Answer returns the tokens received so far, concatenated in arrival order.
func (s *Session) Answer() string { return s.answer.String() }

// Metadata returns the retrieval metadata, or nil before it arrives.
func (s *Session) Metadata() *Metadata { return s.metadata }

// Err returns the stream failure for StatusError sessions. Aborted sessions
// carry no error.
func (s *Session) Err() error { return s.err }

// Finalize folds the accumulated answer and metadata into a Response. For
// error and aborted sessions the partial answer is included as received.
func (s *Session) Finalize() *Response {
	resp := &Response{
		Question:         s.question,
		Answer:           s.answer.String(),
		Sources:          []Source{},
		ExpandedConcepts: []string{},
	}
	if md := s.metadata; md != nil {
		if md.Sources != nil {
			resp.Sources = md.Sources
		}
		if md.ExpandedConcepts != nil {
			resp.ExpandedConcepts = md.ExpandedConcepts
		}
		resp.RetrievedCount = md.RetrievedCount
		resp.Model = md.Model
		resp.Attribution = md.Attribution
	}
	return resp
}

// Envelope tags an event with the session it belongs to, so stale events from
// superseded or cancelled sessions can be dropped.
type Envelope struct {
	SessionID string
	Event     Event
}

// Controller runs question-answer sessions over a Transport.
//
// Controller is not safe for concurrent use: Start, Cancel and Apply must be
// called from the host loop. The transport goroutine it spawns only touches
// the outbox channel.
type Controller struct {
	transport Transport
	logger    *zap.Logger
	outbox    chan Envelope
	active    *Session
}

// NewController creates a controller. A nil logger disables logging.
func NewController(t Transport, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		transport: t,
		logger:    logger,
		outbox:    make(chan Envelope),
	}
}

// Events is the channel the host loop pumps. Each received envelope must be
// handed to Apply. The channel is never closed.
func (c *Controller) Events() <-chan Envelope { return c.outbox }

// Active returns the current session, which may be terminal, or nil if no
// question has been asked yet.
func (c *Controller) Active() *Session { return c.active }

// Status returns the active session's status, or StatusIdle without one.
func (c *Controller) Status() Status {
	if c.active == nil {
		return StatusIdle
	}
	return c.active.status
}

// Start begins a new session for req, cancelling any session still running.
// The returned session is in StatusThinking; events arrive on Events.
func (c *Controller) Start(req Request) (*Session, error) {
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return nil, ErrEmptyQuestion
	}
	c.Cancel()

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:       uuid.NewString(),
		question: req.Question,
		status:   StatusThinking,
		cancel:   cancel,
	}
	c.active = s
	c.logger.Debug("session started",
		zap.String("session_id", s.id),
		zap.String("question", s.question))

	go c.run(ctx, s.id, req)
	return s, nil
}

// Cancel aborts the active session, if any. Cancellation is not an error:
// the session lands in StatusAborted with no error recorded, its transport
// context is cancelled, and in-flight events for it are dropped by Apply.
// Cancelling an idle or finished controller is a no-op.
func (c *Controller) Cancel() {
	s := c.active
	if s == nil || s.status.Terminal() {
		return
	}
	s.cancel()
	s.status = StatusAborted
	c.logger.Debug("session cancelled", zap.String("session_id", s.id))
}

// Apply feeds one envelope into the active session and reports whether it was
// applied. Envelopes for any other session, or for a session already in a
// terminal state, are dropped.
func (c *Controller) Apply(env Envelope) bool {
	s := c.active
	if s == nil || env.SessionID != s.id || s.status.Terminal() {
		c.logger.Debug("stale event dropped", zap.String("session_id", env.SessionID))
		return false
	}
	switch ev := env.Event.(type) {
	case MetadataEvent:
		md := ev.Metadata
		s.metadata = &md
		s.status = StatusStreaming
	case TokenEvent:
		s.status = StatusStreaming
		s.answer.WriteString(ev.Text)
	case DoneEvent:
		s.status = StatusDone
	case ErrorEvent:
		s.status = StatusError
		s.err = ev.Err
	}
	return true
}

// run executes the transport for one session and forwards its events. It never
// touches Session state; the session context both stops the transport and
// unblocks pending forwards after a cancel.
func (c *Controller) run(ctx context.Context, sessionID string, req Request) {
	events, err := c.transport.Stream(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.forward(ctx, Envelope{SessionID: sessionID, Event: ErrorEvent{Err: err}})
		return
	}
	for ev := range events {
		if !c.forward(ctx, Envelope{SessionID: sessionID, Event: ev}) {
			return
		}
	}
}

func (c *Controller) forward(ctx context.Context, env Envelope) bool {
	select {
	case c.outbox <- env:
		return true
	case <-ctx.Done():
		return false
	}
}
