package stubserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/abhisek/studiz/internal/api"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.ServerInfo{
		Name:    serverName,
		Version: Version,
		Status:  "ok",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.Health{
		Status:      "healthy",
		Attribution: Attribution,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req api.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "question must not be empty")
		return
	}
	s.writeJSON(w, http.StatusOK, s.buildAnswer(req))
}

// sseChunk is one streamed event. Metadata fields ride inline on the
// "metadata" chunk, matching the backend's framing.
type sseChunk struct {
	Event   string `json:"event"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`

	Sources          []api.Source `json:"sources,omitempty"`
	ExpandedConcepts []string     `json:"expanded_concepts,omitempty"`
	RetrievedCount   int          `json:"retrieved_count,omitempty"`
	Model            string       `json:"model,omitempty"`
	Attribution      string       `json:"attribution,omitempty"`
}

func (s *Server) handleAskStream(w http.ResponseWriter, r *http.Request) {
	var req api.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "question must not be empty")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeDetail(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	resp := s.buildAnswer(req)
	writeSSEHeaders(w)

	ctx := r.Context()
	s.writeChunk(w, flusher, sseChunk{
		Event:            "metadata",
		Sources:          resp.Sources,
		ExpandedConcepts: resp.ExpandedConcepts,
		RetrievedCount:   resp.RetrievedCount,
		Model:            resp.Model,
		Attribution:      resp.Attribution,
	})

	for _, tok := range answerTokens(resp.Answer) {
		if s.tokenDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.tokenDelay):
			}
		} else if ctx.Err() != nil {
			return
		}
		s.writeChunk(w, flusher, sseChunk{Event: "token", Content: tok})
	}

	s.writeChunk(w, flusher, sseChunk{Event: "end"})
	writeSSEDone(w, flusher)
}

func (s *Server) handleMasteryUpdate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Concept string `json:"concept"`
		Correct bool   `json:"correct"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Concept) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "concept must not be empty")
		return
	}

	studentID := studentOrDefault(r)
	prev, level, attempts := s.applyOutcome(studentID, body.Concept, body.Correct)
	s.logger.Debug("mastery updated",
		zap.String("student_id", studentID),
		zap.String("concept", body.Concept),
		zap.Bool("correct", body.Correct),
		zap.Float64("level", level))

	s.writeJSON(w, http.StatusOK, api.MasteryUpdate{
		Concept:          body.Concept,
		PreviousMastery:  prev,
		NewMastery:       level,
		TargetDifficulty: targetDifficulty(level),
		TotalAttempts:    attempts,
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.profilePayload(studentOrDefault(r)))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	studentID := studentOrDefault(r)
	s.resetStudent(studentID)
	s.writeJSON(w, http.StatusOK, s.profilePayload(studentID))
}

func (s *Server) profilePayload(studentID string) api.Profile {
	levels, overall := s.masteryLevels(studentID)
	return api.Profile{
		StudentID:      studentID,
		OverallAbility: overall,
		MasteryLevels:  levels,
		UpdatedAt:      time.Now().UTC(),
	}
}

func (s *Server) handleGraphData(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 50)
	nodes := s.data.topNodes(limit)

	kept := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		kept[n.ID] = true
	}

	type nodeEnvelope struct {
		Data api.GraphNode `json:"data"`
	}
	type edgeEnvelope struct {
		Data api.GraphEdge `json:"data"`
	}
	payload := struct {
		Nodes []nodeEnvelope `json:"nodes"`
		Edges []edgeEnvelope `json:"edges"`
	}{Nodes: []nodeEnvelope{}, Edges: []edgeEnvelope{}}

	for _, n := range nodes {
		payload.Nodes = append(payload.Nodes, nodeEnvelope{Data: n})
	}
	for _, e := range s.data.Edges {
		if kept[e.Source] && kept[e.Target] {
			payload.Edges = append(payload.Edges, edgeEnvelope{Data: e})
		}
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleGraphStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.GraphStats{
		ConceptCount:      len(s.data.Nodes),
		ModuleCount:       len(s.data.chapters()),
		RelationshipCount: len(s.data.Edges),
	})
}

func (s *Server) handleTopConcepts(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 10)
	out := []api.TopConcept{}
	for _, n := range s.data.topNodes(limit) {
		out = append(out, api.TopConcept{
			Name:      n.Label,
			Score:     n.Importance,
			IsKeyTerm: n.Importance >= 0.7,
			Frequency: s.data.degree(n.ID),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSearchConcepts(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	want := normalize(body.Query)
	if want == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "query must not be empty")
		return
	}
	limit := body.Limit
	if limit <= 0 {
		limit = 10
	}

	out := []api.ConceptSearchResult{}
	for _, n := range s.data.Nodes {
		label := normalize(n.Label)
		if !strings.Contains(label, want) {
			continue
		}
		score := n.Importance
		if label == want {
			score += 1
		}
		out = append(out, api.ConceptSearchResult{
			Name:            n.Label,
			ImportanceScore: n.Importance,
			KeyTerm:         n.Importance >= 0.7,
			Score:           score,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSubjects(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.SubjectList{
		Subjects:       s.data.Subjects,
		DefaultSubject: s.data.DefaultSubject,
	})
}

func (s *Server) handleSubjectTheme(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	theme, ok := s.data.Themes[subjectID]
	if !ok {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("unknown subject: %s", subjectID))
		return
	}
	s.writeJSON(w, http.StatusOK, theme)
}

func (s *Server) handleLearningPath(w http.ResponseWriter, r *http.Request) {
	// chi routes on the escaped path, so the param arrives encoded.
	concept := chi.URLParam(r, "concept")
	if unescaped, err := url.PathUnescape(concept); err == nil {
		concept = unescaped
	}
	node := s.data.findConcept(concept)
	if node == nil {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("concept not found: %s", concept))
		return
	}
	maxDepth := intQuery(r, "max_depth", 3)

	type queued struct {
		node  *api.GraphNode
		depth int
	}
	visited := map[string]bool{node.ID: true}
	var prereqs []api.PathConcept
	queue := []queued{{node: node, depth: 0}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, p := range s.data.prereqSources(cur.node.ID) {
			if visited[p.ID] {
				continue
			}
			visited[p.ID] = true
			prereqs = append(prereqs, api.PathConcept{
				ID:         p.ID,
				Name:       p.Label,
				Importance: p.Importance,
				Chapter:    p.Chapter,
				Depth:      cur.depth + 1,
			})
			queue = append(queue, queued{node: p, depth: cur.depth + 1})
		}
	}

	// Foundations first: the deepest prerequisites are studied earliest.
	sort.SliceStable(prereqs, func(i, j int) bool {
		if prereqs[i].Depth != prereqs[j].Depth {
			return prereqs[i].Depth > prereqs[j].Depth
		}
		return prereqs[i].Name < prereqs[j].Name
	})
	if prereqs == nil {
		prereqs = []api.PathConcept{}
	}

	s.writeJSON(w, http.StatusOK, api.LearningPath{
		TargetConcept: node.Label,
		Prerequisites: prereqs,
		TotalConcepts: len(prereqs) + 1,
	})
}

// studentOrDefault reads the student_id query parameter, defaulting like the
// backend does.
func studentOrDefault(r *http.Request) string {
	if id := r.URL.Query().Get("student_id"); id != "" {
		return id
	}
	return "default"
}

// intQuery reads an integer query parameter, keeping def when absent or
// unparsable.
func intQuery(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug("encode response failed", zap.Error(err))
	}
}

// writeDetail sends the backend's error shape, {"detail": "..."}.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func writeSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

func (s *Server) writeChunk(w http.ResponseWriter, flusher http.Flusher, chunk sseChunk) {
	data, err := json.Marshal(chunk)
	if err != nil {
		s.logger.Debug("encode sse chunk failed", zap.Error(err))
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func writeSSEDone(w http.ResponseWriter, flusher http.Flusher) {
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}
