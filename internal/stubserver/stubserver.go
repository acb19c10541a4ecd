// Package stubserver is an in-process tutor backend for demo mode and
// integration tests. It speaks the same wire protocol as the real server over
// a seeded dataset: deterministic retrieval instead of an LLM, and the same
// mastery arithmetic the backend applies.
package stubserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Version is the backend version the stub reports, kept ahead of the client's
// minimum so the startup handshake passes.
const Version = "0.3.0"

const serverName = "studiz-stub"

// Options configures a Server.
type Options struct {
	// Dataset seeds the knowledge graph and passages. Nil uses BiologyDataset.
	Dataset *Dataset

	// TokenDelay paces streamed tokens so demo mode reads like a live model.
	// Zero streams as fast as the connection allows.
	TokenDelay time.Duration

	// Logger enables request logging. Nil disables it.
	Logger *zap.Logger
}

// Server is one stub backend instance. Handlers are safe for concurrent use.
type Server struct {
	data       *Dataset
	tokenDelay time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	students map[string]*studentState

	httpSrv *http.Server
	done    chan struct{}
}

// New builds a server from opts.
func New(opts Options) *Server {
	if opts.Dataset == nil {
		opts.Dataset = BiologyDataset()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		data:       opts.Dataset,
		tokenDelay: opts.TokenDelay,
		logger:     opts.Logger,
		students:   make(map[string]*studentState),
	}
}

// Handler returns the stub's HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/ask", s.handleAsk)
		api.Post("/ask/stream", s.handleAskStream)

		api.Route("/student", func(st chi.Router) {
			st.Post("/mastery", s.handleMasteryUpdate)
			st.Get("/profile", s.handleProfile)
			st.Post("/reset", s.handleReset)
		})

		api.Route("/graph", func(g chi.Router) {
			g.Get("/data", s.handleGraphData)
			g.Get("/stats", s.handleGraphStats)
		})

		api.Route("/concepts", func(c chi.Router) {
			c.Get("/top", s.handleTopConcepts)
			c.Post("/search", s.handleSearchConcepts)
		})

		api.Route("/subjects", func(su chi.Router) {
			su.Get("/", s.handleSubjects)
			su.Get("/{subjectID}/theme", s.handleSubjectTheme)
		})

		api.Route("/quiz", func(q chi.Router) {
			q.Post("/generate", s.handleGenerateQuiz)
			q.Post("/generate-adaptive", s.handleAdaptiveQuiz)
			q.Post("/recommendations", s.handleRecommendations)
		})

		api.Get("/learning-path/{concept}", s.handleLearningPath)
	})

	return r
}

// Start serves the stub on addr in the background and returns its base URL.
// Port 0 picks a free port. Stop with Close.
func (s *Server) Start(addr string) (string, error) {
	if s.httpSrv != nil {
		return "", errors.New("stubserver: already started")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}

	s.httpSrv = &http.Server{Handler: s.Handler()}
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("stub server stopped", zap.Error(err))
		}
	}()

	base := "http://" + ln.Addr().String()
	s.logger.Info("stub server listening", zap.String("base_url", base))
	return base, nil
}

// Close shuts the server down and waits for in-flight requests.
func (s *Server) Close() error {
	if s.httpSrv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.httpSrv.Shutdown(ctx)
	<-s.done
	s.httpSrv = nil
	return err
}

// requestLogger logs one line per request to the server's logger. Demo mode
// shares the process with the TUI, so chi's stdout logger is not an option.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// Mastery arithmetic mirrored from the real backend: new students start at
// 0.3, a graded outcome moves the level by +0.15 or -0.10, and levels stay
// inside [0.1, 1.0].
const (
	defaultMastery = 0.3
	correctDelta   = 0.15
	incorrectDelta = 0.10
	floorMastery   = 0.1
	ceilMastery    = 1.0
)

// studentState is the per-student mastery ledger, keyed by concept label.
// Guarded by Server.mu.
type studentState struct {
	mastery map[string]*masteryEntry
}

type masteryEntry struct {
	level    float64
	attempts int
}

// lockedStudent returns the state for id, creating it on first use.
// Callers hold s.mu.
func (s *Server) lockedStudent(id string) *studentState {
	st, ok := s.students[id]
	if !ok {
		st = &studentState{mastery: make(map[string]*masteryEntry)}
		s.students[id] = st
	}
	return st
}

// applyOutcome grades one outcome and returns the previous level, the new
// level and the attempt count.
func (s *Server) applyOutcome(studentID, concept string, correct bool) (prev, level float64, attempts int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.lockedStudent(studentID)
	e, ok := st.mastery[concept]
	if !ok {
		e = &masteryEntry{level: defaultMastery}
		st.mastery[concept] = e
	}

	prev = e.level
	if correct {
		e.level += correctDelta
	} else {
		e.level -= incorrectDelta
	}
	e.level = clampMastery(e.level)
	e.attempts++
	return prev, e.level, e.attempts
}

// masteryOf returns the student's level for concept, defaulting to 0.3.
func (s *Server) masteryOf(studentID, concept string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.lockedStudent(studentID).mastery[concept]; ok {
		return e.level
	}
	return defaultMastery
}

// masteryLevels snapshots the student's ledger and its mean. An empty ledger
// reports the default as overall ability.
func (s *Server) masteryLevels(studentID string) (map[string]float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.lockedStudent(studentID)
	levels := make(map[string]float64, len(st.mastery))
	sum := 0.0
	for concept, e := range st.mastery {
		levels[concept] = e.level
		sum += e.level
	}
	overall := defaultMastery
	if len(levels) > 0 {
		overall = sum / float64(len(levels))
	}
	return levels, overall
}

// resetStudent wipes the student's ledger.
func (s *Server) resetStudent(studentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.students, studentID)
}

func clampMastery(v float64) float64 {
	if v < floorMastery {
		return floorMastery
	}
	if v > ceilMastery {
		return ceilMastery
	}
	return v
}

// targetDifficulty bands a mastery level the way the backend does.
func targetDifficulty(level float64) string {
	switch {
	case level < 0.4:
		return "easy"
	case level <= 0.7:
		return "medium"
	default:
		return "hard"
	}
}
