// Package api is the HTTP client for the knowledge-graph tutor backend: the
// question-answer endpoints, the student mastery ledger, the concept graph,
// quizzes and subject catalog.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"
)

const apiPrefix = "/api/v1"

// MinServerVersion is the oldest backend release this client speaks to.
// Older servers predate the subject catalog and the streaming ask endpoint.
const MinServerVersion = "v0.2.0"

// DefaultTimeout bounds one REST exchange. Streaming requests are bounded by
// their context instead.
const DefaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	// BaseURL is the backend root, e.g. "http://localhost:8000".
	BaseURL string

	// StudentID scopes mastery state on the backend. Default: "default".
	StudentID string

	// Timeout bounds one REST exchange. Default: DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the underlying client, for tests.
	HTTPClient *http.Client

	// Logger enables request logging. Nil disables it.
	Logger *zap.Logger
}

// Client talks to one tutor backend. Methods are safe for concurrent use.
type Client struct {
	baseURL   string
	studentID string
	rest      *http.Client
	streaming *http.Client
	logger    *zap.Logger
}

// New validates opts and builds a client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("api: base URL is required")
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("api: invalid base URL %q: %w", opts.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: base URL %q must be http or https", opts.BaseURL)
	}

	if opts.StudentID == "" {
		opts.StudentID = "default"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	rest := opts.HTTPClient
	if rest == nil {
		rest = &http.Client{Timeout: opts.Timeout}
	}
	// Streams outlive the REST timeout; they share the transport and are
	// cancelled through their context.
	streaming := &http.Client{Transport: rest.Transport}

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		studentID: opts.StudentID,
		rest:      rest,
		streaming: streaming,
		logger:    opts.Logger,
	}, nil
}

// StudentID returns the student this client is scoped to.
func (c *Client) StudentID() string { return c.studentID }

// BaseURL returns the backend root this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// ServerInfo fetches the backend's identity and version.
func (c *Client) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	var info ServerInfo
	if err := c.do(ctx, http.MethodGet, "/", nil, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CheckServer fetches server info and verifies the version handshake: the
// backend must report a parseable version at or above MinServerVersion.
func (c *Client) CheckServer(ctx context.Context) (*ServerInfo, error) {
	info, err := c.ServerInfo(ctx)
	if err != nil {
		return nil, err
	}
	v := "v" + strings.TrimPrefix(info.Version, "v")
	if !semver.IsValid(v) {
		return info, fmt.Errorf("api: server reports unparseable version %q", info.Version)
	}
	if semver.Compare(v, MinServerVersion) < 0 {
		return info, fmt.Errorf("api: server version %s is older than supported %s", v, MinServerVersion)
	}
	return info, nil
}

// Health probes the backend health endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Ask requests a complete answer in one round trip.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	var resp AskResponse
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/ask", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateMastery reports one graded outcome and returns the authoritative
// mastery record.
func (c *Client) UpdateMastery(ctx context.Context, concept string, correct bool) (*MasteryUpdate, error) {
	body := struct {
		Concept string `json:"concept"`
		Correct bool   `json:"correct"`
	}{Concept: concept, Correct: correct}

	var upd MasteryUpdate
	err := c.do(ctx, http.MethodPost, apiPrefix+"/student/mastery", c.studentQuery(), body, &upd)
	if err != nil {
		return nil, err
	}
	return &upd, nil
}

// Profile fetches the authoritative proficiency snapshot.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var p Profile
	err := c.do(ctx, http.MethodGet, apiPrefix+"/student/profile", c.studentQuery(), nil, &p)
	if err != nil {
		return nil, &DataFetchError{Resource: "profile", Err: err}
	}
	return &p, nil
}

// ResetProfile wipes the backend's mastery state for this student and returns
// the fresh profile.
func (c *Client) ResetProfile(ctx context.Context) (*Profile, error) {
	var p Profile
	err := c.do(ctx, http.MethodPost, apiPrefix+"/student/reset", c.studentQuery(), nil, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GraphData fetches the top concepts and their relationships, flattened from
// the backend's Cytoscape envelopes.
func (c *Client) GraphData(ctx context.Context, limit int) (*GraphData, error) {
	type nodeEnvelope struct {
		Data GraphNode `json:"data"`
	}
	type edgeEnvelope struct {
		Data GraphEdge `json:"data"`
	}
	var payload struct {
		Nodes []nodeEnvelope `json:"nodes"`
		Edges []edgeEnvelope `json:"edges"`
	}

	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/graph/data", q, nil, &payload); err != nil {
		return nil, &DataFetchError{Resource: "graph", Err: err}
	}

	data := &GraphData{
		Nodes: make([]GraphNode, 0, len(payload.Nodes)),
		Edges: make([]GraphEdge, 0, len(payload.Edges)),
	}
	for _, n := range payload.Nodes {
		data.Nodes = append(data.Nodes, n.Data)
	}
	for _, e := range payload.Edges {
		data.Edges = append(data.Edges, e.Data)
	}
	return data, nil
}

// GraphStats fetches knowledge-graph counts.
func (c *Client) GraphStats(ctx context.Context) (*GraphStats, error) {
	var stats GraphStats
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/graph/stats", nil, nil, &stats); err != nil {
		return nil, &DataFetchError{Resource: "graph stats", Err: err}
	}
	return &stats, nil
}

// TopConcepts fetches the importance ranking.
func (c *Client) TopConcepts(ctx context.Context, limit int) ([]TopConcept, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []TopConcept
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/concepts/top", q, nil, &out); err != nil {
		return nil, &DataFetchError{Resource: "top concepts", Err: err}
	}
	return out, nil
}

// Subjects fetches the subject catalog.
func (c *Client) Subjects(ctx context.Context) (*SubjectList, error) {
	var list SubjectList
	if err := c.do(ctx, http.MethodGet, apiPrefix+"/subjects", nil, nil, &list); err != nil {
		return nil, &DataFetchError{Resource: "subjects", Err: err}
	}
	return &list, nil
}

// SubjectTheme fetches a subject's display colors.
func (c *Client) SubjectTheme(ctx context.Context, subjectID string) (*SubjectTheme, error) {
	var th SubjectTheme
	path := apiPrefix + "/subjects/" + url.PathEscape(subjectID) + "/theme"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &th); err != nil {
		return nil, &DataFetchError{Resource: "subject theme", Err: err}
	}
	return &th, nil
}

// GenerateQuiz requests a mixed-difficulty quiz for a topic.
func (c *Client) GenerateQuiz(ctx context.Context, topic string, numQuestions int, subject string) (*Quiz, error) {
	q := url.Values{"topic": {topic}}
	if numQuestions > 0 {
		q.Set("num_questions", strconv.Itoa(numQuestions))
	}
	if subject != "" {
		q.Set("subject", subject)
	}
	var quiz Quiz
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/quiz/generate", q, nil, &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

// AdaptiveQuiz requests a quiz whose difficulty is targeted from this
// student's mastery of the topic.
func (c *Client) AdaptiveQuiz(ctx context.Context, topic string, numQuestions int, subject string) (*AdaptiveQuiz, error) {
	q := url.Values{"topic": {topic}, "student_id": {c.studentID}}
	if numQuestions > 0 {
		q.Set("num_questions", strconv.Itoa(numQuestions))
	}
	if subject != "" {
		q.Set("subject", subject)
	}
	var quiz AdaptiveQuiz
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/quiz/generate-adaptive", q, nil, &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

// QuizRecommendations requests post-quiz remediation and advancement.
func (c *Client) QuizRecommendations(ctx context.Context, req RecommendationRequest) (*Recommendations, error) {
	if req.StudentID == "" {
		req.StudentID = c.studentID
	}
	var rec Recommendations
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/quiz/recommendations", nil, req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// LearningPath fetches the prerequisite chain for a concept.
func (c *Client) LearningPath(ctx context.Context, concept string, maxDepth int) (*LearningPath, error) {
	q := url.Values{}
	if maxDepth > 0 {
		q.Set("max_depth", strconv.Itoa(maxDepth))
	}
	path := apiPrefix + "/learning-path/" + url.PathEscape(concept)
	var lp LearningPath
	if err := c.do(ctx, http.MethodGet, path, q, nil, &lp); err != nil {
		return nil, &DataFetchError{Resource: "learning path", Err: err}
	}
	return &lp, nil
}

// SearchConcepts runs a fulltext concept search.
func (c *Client) SearchConcepts(ctx context.Context, query string, limit int) ([]ConceptSearchResult, error) {
	body := struct {
		Query string `json:"query"`
		Limit int    `json:"limit,omitempty"`
	}{Query: query, Limit: limit}

	var out []ConceptSearchResult
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/concepts/search", nil, body, &out); err != nil {
		return nil, &DataFetchError{Resource: "concept search", Err: err}
	}
	return out, nil
}

func (c *Client) studentQuery() url.Values {
	return url.Values{"student_id": {c.studentID}}
}

// do runs one REST exchange: encode body, send, check status, decode into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("api: build %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.rest.Do(req)
	if err != nil {
		c.logger.Debug("request failed", zap.String("op", op), zap.Error(err))
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("request done",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.New(errorDetail(resp)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// errorDetail extracts the backend's {"detail": "..."} error body, falling
// back to the raw body or the status text.
func errorDetail(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var e struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(b, &e) == nil && e.Detail != "" {
		return e.Detail
	}
	if s := strings.TrimSpace(string(b)); s != "" {
		return s
	}
	return http.StatusText(resp.StatusCode)
}
