// Package chat is the question-answer screen: a prompt, the answer streaming
// in token by token, and the transcript of finished exchanges. The stream
// engine lives in internal/stream; this screen only reacts to the envelopes
// the app loop forwards after applying them.
package chat

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"go.uber.org/zap"

	"github.com/abhisek/studiz/internal/appstate"
	"github.com/abhisek/studiz/internal/config"
	"github.com/abhisek/studiz/internal/screen"
	"github.com/abhisek/studiz/internal/stream"
	"github.com/abhisek/studiz/internal/ui/components"
	"github.com/abhisek/studiz/internal/ui/layout"
)

// exchange is one finished question-answer pair shown in the transcript.
// rendered caches the glamour output for the width it was rendered at.
type exchange struct {
	question  string
	answer    string
	meta      *stream.Metadata
	aborted   bool
	errMsg    string
	rendered  string
	renderedW int
}

// ChatScreen drives the conversation against the stream controller.
type ChatScreen struct {
	controller *stream.Controller
	state      *appstate.Store
	cfg        config.Config
	logger     *zap.Logger

	input     components.TextInput
	exchanges []exchange
	scroll    int
	showMeta  bool

	mdRenderer markdownRenderer
}

var _ screen.Screen = (*ChatScreen)(nil)
var _ screen.KeyHintProvider = (*ChatScreen)(nil)
var _ screen.Closer = (*ChatScreen)(nil)

// New creates the chat screen over a shared controller.
func New(controller *stream.Controller, state *appstate.Store, cfg config.Config, logger *zap.Logger) *ChatScreen {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatScreen{
		controller: controller,
		state:      state,
		cfg:        cfg,
		logger:     logger,
		input:      components.NewTextInput("Ask about "+cfg.Subject+"...", false, 200),
	}
}

func (c *ChatScreen) Init() tea.Cmd {
	return c.input.Init()
}

func (c *ChatScreen) Title() string {
	return "Ask"
}

func (c *ChatScreen) KeyHints() []layout.KeyHint {
	if c.streamActive() {
		return []layout.KeyHint{
			{Key: "Ctrl+X", Description: "Stop"},
			{Key: "Enter", Description: "Ask next"},
			{Key: "Esc", Description: "Back"},
		}
	}
	return []layout.KeyHint{
		{Key: "Enter", Description: "Ask"},
		{Key: "↑↓", Description: "Scroll"},
		{Key: "Ctrl+S", Description: "Sources"},
		{Key: "Esc", Description: "Back"},
	}
}

// Close aborts any running stream when the screen leaves the stack. The
// partial answer is dropped with it; cancellation is silent.
func (c *ChatScreen) Close() {
	c.controller.Cancel()
}

func (c *ChatScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case stream.Envelope:
		return c.handleEnvelope(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			return c.submit()
		case "ctrl+x":
			return c.stopStream()
		case "ctrl+s":
			c.showMeta = !c.showMeta
			return c, nil
		case "up":
			c.scroll++
			return c, nil
		case "down":
			if c.scroll > 0 {
				c.scroll--
			}
			return c, nil
		case "pgup":
			c.scroll += 10
			return c, nil
		case "pgdown":
			c.scroll -= 10
			if c.scroll < 0 {
				c.scroll = 0
			}
			return c, nil
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd
}

// handleEnvelope reacts to one already-applied stream event. Tokens just
// snap the view back to the bottom; terminal events move the session into
// the transcript.
func (c *ChatScreen) handleEnvelope(env stream.Envelope) (screen.Screen, tea.Cmd) {
	s := c.controller.Active()
	if s == nil || env.SessionID != s.ID() {
		return c, nil
	}

	switch ev := env.Event.(type) {
	case stream.DoneEvent:
		c.append(exchange{
			question: s.Question(),
			answer:   s.Answer(),
			meta:     s.Metadata(),
		})
	case stream.ErrorEvent:
		c.append(exchange{
			question: s.Question(),
			answer:   s.Answer(),
			meta:     s.Metadata(),
			errMsg:   ev.Err.Error(),
		})
	default:
		c.scroll = 0
	}

	return c, nil
}

// submit starts a session for the typed question. Submitting while an answer
// is still streaming supersedes it; the partial answer stays in the
// transcript, marked stopped.
func (c *ChatScreen) submit() (screen.Screen, tea.Cmd) {
	question := strings.TrimSpace(c.input.Value())
	if question == "" {
		return c, nil
	}

	if s := c.controller.Active(); s != nil && !s.Status().Terminal() {
		c.append(exchange{
			question: s.Question(),
			answer:   s.Answer(),
			meta:     s.Metadata(),
			aborted:  true,
		})
	}

	req := stream.Request{
		Question:       question,
		UseKGExpansion: c.cfg.UseKGExpansion,
		TopK:           c.cfg.TopK,
		Subject:        c.state.Get().Subject,
	}
	if _, err := c.controller.Start(req); err != nil {
		c.logger.Debug("question rejected", zap.Error(err))
		return c, nil
	}

	c.state.SetLastQuery(question)
	c.input.Reset()
	c.scroll = 0
	c.showMeta = false
	return c, nil
}

// stopStream aborts the running answer and keeps what arrived so far.
func (c *ChatScreen) stopStream() (screen.Screen, tea.Cmd) {
	s := c.controller.Active()
	if s == nil || s.Status().Terminal() {
		return c, nil
	}
	c.controller.Cancel()
	c.append(exchange{
		question: s.Question(),
		answer:   s.Answer(),
		meta:     s.Metadata(),
		aborted:  true,
	})
	return c, nil
}

func (c *ChatScreen) append(ex exchange) {
	c.exchanges = append(c.exchanges, ex)
	c.scroll = 0
}

// streamActive reports whether an answer is currently being produced.
func (c *ChatScreen) streamActive() bool {
	s := c.controller.Active()
	return s != nil && !s.Status().Terminal()
}
