package stubserver

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/abhisek/studiz/internal/api"
)

// fallbackAnswer is returned when no passage matches the question.
const fallbackAnswer = "I could not find anything in the course material about that. " +
	"Try asking about one of the core concepts, such as DNA, photosynthesis or mitosis."

// scoredPassage pairs a passage with its retrieval score.
type scoredPassage struct {
	passage Passage
	score   int
}

// buildAnswer runs the stub's deterministic retrieval: score passages by
// keyword overlap with the question, take the top k, and stitch their text
// into an answer. The shape matches what the real RAG pipeline returns.
func (s *Server) buildAnswer(req api.AskRequest) *api.AskResponse {
	terms := queryTerms(req.Question)
	topK := req.TopK
	if topK <= 0 {
		topK = 5
	}

	var hits []scoredPassage
	for _, p := range s.data.Passages {
		score := 0
		concept := normalize(p.Concept)
		text := strings.ToLower(p.Text)
		for _, term := range terms {
			switch {
			case strings.Contains(concept, term):
				score += 2
			case strings.Contains(text, term):
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scoredPassage{passage: p, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > topK {
		hits = hits[:topK]
	}

	resp := &api.AskResponse{
		Question:    req.Question,
		Sources:     []api.Source{},
		Model:       Model,
		Attribution: Attribution,
	}
	if len(hits) == 0 {
		resp.Answer = fallbackAnswer
		return resp
	}

	maxScore := hits[0].score
	for _, h := range hits {
		resp.Sources = append(resp.Sources, api.Source{
			Text:        h.passage.Text,
			ModuleTitle: h.passage.ModuleTitle,
			Section:     h.passage.Section,
			Score:       float64(h.score) / float64(maxScore),
		})
	}
	resp.RetrievedCount = len(resp.Sources)

	var b strings.Builder
	b.WriteString(hits[0].passage.Text)
	if len(hits) > 1 && hits[1].passage.Concept != hits[0].passage.Concept {
		b.WriteString("\n\n")
		b.WriteString(hits[1].passage.Text)
	}

	if req.UseKGExpansion {
		if node := s.data.findConcept(hits[0].passage.Concept); node != nil {
			var labels []string
			for _, n := range s.data.neighbors(node.ID) {
				labels = append(labels, n.Label)
				if len(labels) == 5 {
					break
				}
			}
			if len(labels) > 0 {
				resp.ExpandedConcepts = labels
				fmt.Fprintf(&b, "\n\nRelated concepts worth reviewing: %s.", strings.Join(labels, ", "))
			}
		}
	}

	resp.Answer = b.String()
	return resp
}

// queryTerms extracts lowercase search terms from a question, dropping
// punctuation and words too short to discriminate.
func queryTerms(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var terms []string
	for _, f := range fields {
		if len(f) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}

// answerTokens splits an answer for streaming so that concatenating the
// tokens reproduces it exactly.
func answerTokens(answer string) []string {
	return strings.SplitAfter(answer, " ")
}
