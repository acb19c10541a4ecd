package stubserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/abhisek/studiz/internal/api"
)

// fillerConcepts pad answer options when the graph around a topic is too
// small to supply three distractors.
var fillerConcepts = []string{"Osmosis", "Diffusion", "Homeostasis", "Enzyme"}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if strings.TrimSpace(topic) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "topic is required")
		return
	}
	node := s.data.findConcept(topic)
	if node == nil {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("no concepts found for topic: %s", topic))
		return
	}
	quiz := s.buildQuiz(node, intQuery(r, "num_questions", 5), "")
	s.writeJSON(w, http.StatusOK, quiz)
}

func (s *Server) handleAdaptiveQuiz(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if strings.TrimSpace(topic) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "topic is required")
		return
	}
	node := s.data.findConcept(topic)
	if node == nil {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("no concepts found for topic: %s", topic))
		return
	}

	level := s.masteryOf(studentOrDefault(r), node.Label)
	band := targetDifficulty(level)
	quiz := s.buildQuiz(node, intQuery(r, "num_questions", 5), band)

	s.writeJSON(w, http.StatusOK, api.AdaptiveQuiz{
		Quiz:             *quiz,
		StudentMastery:   level,
		TargetDifficulty: band,
		Adapted:          true,
	})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req api.RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "topic is required")
		return
	}
	s.writeJSON(w, http.StatusOK, s.buildRecommendations(req))
}

// buildQuiz generates questions about node from the graph around it. Every
// question is answerable from the dataset, so grading stays deterministic.
// band, when set, only labels the quiz; the stub does not vary question
// difficulty.
func (s *Server) buildQuiz(node *api.GraphNode, numQuestions int, band string) *api.Quiz {
	if numQuestions <= 0 {
		numQuestions = 5
	}

	title := node.Label + " Review"
	if band != "" {
		title = fmt.Sprintf("%s Review (%s)", node.Label, band)
	}
	quiz := &api.Quiz{
		ID:        uuid.NewString(),
		Title:     title,
		Questions: []api.QuizQuestion{},
	}

	pool := s.distractorPool(node)
	for i, c := range s.questionCandidates(node, pool) {
		if len(quiz.Questions) == numQuestions {
			break
		}
		options, correctID := makeOptions(c.correct, c.distractors, i)
		quiz.Questions = append(quiz.Questions, api.QuizQuestion{
			ID:              fmt.Sprintf("q%d", i+1),
			Text:            c.text,
			Options:         options,
			CorrectOptionID: correctID,
			Explanation:     c.explanation,
			RelatedConcept:  node.Label,
		})
	}
	return quiz
}

// candidate is one buildable question: its text, the right answer and the
// wrong ones.
type candidate struct {
	text        string
	correct     string
	distractors []string
	explanation string
}

// questionCandidates derives questions from the edges around node: direct
// prerequisites, neighbors, the covering chapter, covered subtopics and
// concepts the node unlocks.
func (s *Server) questionCandidates(node *api.GraphNode, pool []string) []candidate {
	var out []candidate

	if ps := s.data.prereqSources(node.ID); len(ps) > 0 {
		out = append(out, candidate{
			text:        fmt.Sprintf("Which concept is a direct prerequisite of %s?", node.Label),
			correct:     ps[0].Label,
			distractors: pool,
			explanation: fmt.Sprintf("%s builds on %s in the concept graph.", node.Label, ps[0].Label),
		})
	}

	if ns := s.data.neighbors(node.ID); len(ns) > 0 {
		out = append(out, candidate{
			text:        fmt.Sprintf("Which concept is directly connected to %s?", node.Label),
			correct:     ns[len(ns)-1].Label,
			distractors: pool,
			explanation: fmt.Sprintf("%s and %s share an edge in the concept graph.", node.Label, ns[len(ns)-1].Label),
		})
	}

	if node.Chapter != "" {
		out = append(out, candidate{
			text:        fmt.Sprintf("Which chapter covers %s?", node.Label),
			correct:     node.Chapter,
			distractors: s.otherChapters(node.Chapter),
			explanation: fmt.Sprintf("%s appears in the %s chapter.", node.Label, node.Chapter),
		})
	}

	for _, e := range s.data.Edges {
		if e.Type != "COVERS" || e.Source != node.ID {
			continue
		}
		if sub := s.data.nodeByID(e.Target); sub != nil {
			out = append(out, candidate{
				text:        fmt.Sprintf("Which of these is a subtopic of %s?", node.Label),
				correct:     sub.Label,
				distractors: pool,
				explanation: fmt.Sprintf("%s covers %s.", node.Label, sub.Label),
			})
			break
		}
	}

	if ts := s.data.prereqTargets(node.ID); len(ts) > 0 {
		out = append(out, candidate{
			text:        fmt.Sprintf("Which concept builds directly on %s?", node.Label),
			correct:     ts[0].Label,
			distractors: pool,
			explanation: fmt.Sprintf("%s is a prerequisite of %s.", node.Label, ts[0].Label),
		})
	}

	return out
}

// distractorPool returns labels safe to use as wrong answers about node:
// concepts not adjacent to it, highest importance first.
func (s *Server) distractorPool(node *api.GraphNode) []string {
	adjacent := map[string]bool{node.ID: true}
	for _, n := range s.data.neighbors(node.ID) {
		adjacent[n.ID] = true
	}

	var nodes []api.GraphNode
	for _, n := range s.data.Nodes {
		if !adjacent[n.ID] {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Importance != nodes[j].Importance {
			return nodes[i].Importance > nodes[j].Importance
		}
		return nodes[i].Label < nodes[j].Label
	})

	pool := make([]string, 0, len(nodes)+len(fillerConcepts))
	for _, n := range nodes {
		pool = append(pool, n.Label)
	}
	for _, f := range fillerConcepts {
		pool = append(pool, f)
	}
	return pool
}

// otherChapters returns chapter names beside current, padded with fillers so
// a chapter question always has three wrong options.
func (s *Server) otherChapters(current string) []string {
	var out []string
	for _, ch := range s.data.chapters() {
		if ch != current {
			out = append(out, ch)
		}
	}
	for _, f := range []string{"Ecology", "Physiology", "Evolution"} {
		if f != current {
			out = append(out, f)
		}
	}
	return out
}

// makeOptions lays out four answer choices with the correct one at a
// position rotating by question index, and returns its option ID.
func makeOptions(correct string, distractors []string, questionIndex int) ([]api.QuizOption, string) {
	ids := []string{"a", "b", "c", "d"}
	correctAt := questionIndex % len(ids)

	options := make([]api.QuizOption, 0, len(ids))
	next := 0
	for i, id := range ids {
		text := ""
		if i == correctAt {
			text = correct
		} else {
			for next < len(distractors) && distractors[next] == correct {
				next++
			}
			if next < len(distractors) {
				text = distractors[next]
				next++
			}
		}
		options = append(options, api.QuizOption{ID: id, Text: text})
	}
	return options, ids[correctAt]
}

// buildRecommendations turns quiz results into remediation for missed
// concepts and advancement for aced ones. The headline path follows the
// score: below 60 percent is a remediation path.
func (s *Server) buildRecommendations(req api.RecommendationRequest) *api.Recommendations {
	studentID := req.StudentID
	if studentID == "" {
		studentID = "default"
	}

	total := len(req.QuestionResults)
	correct := 0
	var weak, strong []string
	seenWeak := make(map[string]bool)
	seenStrong := make(map[string]bool)
	for _, res := range req.QuestionResults {
		concept := res.RelatedConcept
		if concept == "" {
			concept = req.Topic
		}
		if res.Correct {
			correct++
			if !seenStrong[concept] {
				seenStrong[concept] = true
				strong = append(strong, concept)
			}
		} else if !seenWeak[concept] {
			seenWeak[concept] = true
			weak = append(weak, concept)
		}
	}

	scorePct := 0.0
	if total > 0 {
		scorePct = 100 * float64(correct) / float64(total)
	}
	pathType := "remediation"
	if total > 0 && scorePct >= 60 {
		pathType = "advancement"
	}
	if total == 0 && len(weak) == 0 {
		weak = []string{req.Topic}
	}

	rec := &api.Recommendations{
		PathType:    pathType,
		ScorePct:    scorePct,
		Remediation: []api.RemediationBlock{},
		Advancement: []api.AdvancementBlock{},
	}
	for _, c := range weak {
		rec.Remediation = append(rec.Remediation, s.remediationFor(studentID, c))
	}
	for _, c := range strong {
		rec.Advancement = append(rec.Advancement, s.advancementFor(c))
	}
	rec.Summary = recommendationSummary(req.Topic, pathType, scorePct, weak, strong)
	return rec
}

func (s *Server) remediationFor(studentID, concept string) api.RemediationBlock {
	block := api.RemediationBlock{
		Concept:          concept,
		Prerequisites:    []api.ConceptRecommendation{},
		ReadingMaterials: []api.ReadingMaterial{},
	}

	label := concept
	if node := s.data.findConcept(concept); node != nil {
		label = node.Label
		for _, p := range s.data.prereqSources(node.ID) {
			block.Prerequisites = append(block.Prerequisites, api.ConceptRecommendation{
				Name:             p.Label,
				Importance:       p.Importance,
				Mastery:          s.masteryOf(studentID, p.Label),
				RelationshipType: "PREREQ",
			})
		}
	}
	for i, p := range s.data.passagesFor(label) {
		block.ReadingMaterials = append(block.ReadingMaterials, api.ReadingMaterial{
			Text:           p.Text,
			Section:        p.Section,
			ModuleTitle:    p.ModuleTitle,
			RelevanceScore: 0.9 - 0.1*float64(i),
		})
	}
	return block
}

func (s *Server) advancementFor(concept string) api.AdvancementBlock {
	block := api.AdvancementBlock{
		Concept:        concept,
		AdvancedTopics: []api.ConceptRecommendation{},
	}
	node := s.data.findConcept(concept)
	if node == nil {
		return block
	}

	seen := make(map[string]bool)
	for _, t := range s.data.prereqTargets(node.ID) {
		if !seen[t.Label] {
			seen[t.Label] = true
			block.AdvancedTopics = append(block.AdvancedTopics, api.ConceptRecommendation{
				Name:             t.Label,
				Importance:       t.Importance,
				RelationshipType: "PREREQ",
			})
		}
	}
	for _, e := range s.data.Edges {
		if e.Type != "RELATED" {
			continue
		}
		var otherID string
		switch node.ID {
		case e.Source:
			otherID = e.Target
		case e.Target:
			otherID = e.Source
		default:
			continue
		}
		if other := s.data.nodeByID(otherID); other != nil && !seen[other.Label] {
			seen[other.Label] = true
			block.AdvancedTopics = append(block.AdvancedTopics, api.ConceptRecommendation{
				Name:             other.Label,
				Importance:       other.Importance,
				RelationshipType: "RELATED",
			})
		}
	}

	for _, t := range block.AdvancedTopics {
		if ps := s.data.passagesFor(t.Name); len(ps) > 0 {
			block.DeepDiveContent = ps[0].Text
			break
		}
	}
	if block.DeepDiveContent == "" {
		if ps := s.data.passagesFor(node.Label); len(ps) > 0 {
			block.DeepDiveContent = ps[0].Text
		}
	}
	return block
}

func recommendationSummary(topic, pathType string, scorePct float64, weak, strong []string) string {
	switch {
	case pathType == "remediation" && len(weak) > 0:
		return fmt.Sprintf("You scored %.0f%% on %s. Review %s before moving on.",
			scorePct, topic, strings.Join(weak, ", "))
	case len(strong) > 0:
		return fmt.Sprintf("You scored %.0f%% on %s. You are ready to build on %s.",
			scorePct, topic, strings.Join(strong, ", "))
	default:
		return fmt.Sprintf("You scored %.0f%% on %s.", scorePct, topic)
	}
}
