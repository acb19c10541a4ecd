package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/studiz/internal/stream"
)

// streamChunk is one server-sent event on the streaming ask endpoint.
// Metadata fields are inlined on the "metadata" event.
type streamChunk struct {
	Event   string `json:"event"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
	stream.Metadata
}

// Stream opens a token stream for one question. It implements
// stream.Transport. The returned channel closes after the terminal event;
// cancelling ctx tears the connection down without emitting an error.
func (c *Client) Stream(ctx context.Context, req stream.Request) (<-chan stream.Event, error) {
	const path = apiPrefix + "/ask/stream"
	op := http.MethodPost + " " + path

	buf, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("api: encode %s request: %w", op, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("api: build %s request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streaming.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.New(errorDetail(resp)),
		}
	}

	out := make(chan stream.Event)
	go c.consumeSSE(ctx, op, resp.Body, out)
	return out, nil
}

// consumeSSE reads "data: {json}" lines off the wire and forwards them as
// events. The body is closed from a watcher goroutine on cancellation so the
// scanner never blocks past ctx.
func (c *Client) consumeSSE(ctx context.Context, op string, body io.ReadCloser, out chan<- stream.Event) {
	defer close(out)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		body.Close()
	}()

	send := func(ev stream.Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			send(stream.DoneEvent{})
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.logger.Debug("skipping malformed stream chunk", zap.Error(err))
			continue
		}

		switch chunk.Event {
		case "metadata":
			if !send(stream.MetadataEvent{Metadata: chunk.Metadata}) {
				return
			}
		case "token":
			if !send(stream.TokenEvent{Text: chunk.Content}) {
				return
			}
		case "end":
			send(stream.DoneEvent{})
			return
		case "error":
			send(stream.ErrorEvent{Err: &TransportError{Op: op, Err: errors.New(chunk.Error)}})
			return
		}
	}

	// Cancellation closes the body mid-read; that is not an error.
	if ctx.Err() != nil {
		return
	}
	err := scanner.Err()
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	send(stream.ErrorEvent{Err: &TransportError{Op: op, Err: fmt.Errorf("stream interrupted: %w", err)}})
}
