package stubserver

import (
	"sort"
	"strings"

	"github.com/abhisek/studiz/internal/api"
)

// Attribution is the content license line the stub attaches to answers, in
// the same form the real backend uses.
const Attribution = "Content derived from OpenStax Biology 2e, licensed under CC BY 4.0."

// Model is the model name reported in answer metadata.
const Model = "stub-retrieval-v1"

// Passage is one retrievable excerpt tied to a concept.
type Passage struct {
	Concept     string
	Text        string
	ModuleTitle string
	Section     string
}

// Dataset is the material a stub serves: the concept graph, the passages
// retrieval draws from, and the subject catalog. Reusing the client's wire
// types keeps the two ends of the protocol from drifting apart.
type Dataset struct {
	Subjects       []api.SubjectSummary
	DefaultSubject string
	Themes         map[string]api.SubjectTheme

	Nodes    []api.GraphNode
	Edges    []api.GraphEdge
	Passages []Passage
}

// nodeByID returns the node with the given id, or nil.
func (d *Dataset) nodeByID(id string) *api.GraphNode {
	for i := range d.Nodes {
		if d.Nodes[i].ID == id {
			return &d.Nodes[i]
		}
	}
	return nil
}

// findConcept resolves a concept reference by normalized label, falling back
// to containment so "photo" still finds Photosynthesis.
func (d *Dataset) findConcept(name string) *api.GraphNode {
	want := normalize(name)
	if want == "" {
		return nil
	}
	for i := range d.Nodes {
		if normalize(d.Nodes[i].Label) == want {
			return &d.Nodes[i]
		}
	}
	var best *api.GraphNode
	for i := range d.Nodes {
		if strings.Contains(normalize(d.Nodes[i].Label), want) {
			if best == nil || d.Nodes[i].Importance > best.Importance {
				best = &d.Nodes[i]
			}
		}
	}
	return best
}

// neighbors returns the nodes sharing an edge with id, in either direction.
func (d *Dataset) neighbors(id string) []*api.GraphNode {
	var out []*api.GraphNode
	seen := map[string]bool{id: true}
	for _, e := range d.Edges {
		other := ""
		switch id {
		case e.Source:
			other = e.Target
		case e.Target:
			other = e.Source
		default:
			continue
		}
		if seen[other] {
			continue
		}
		seen[other] = true
		if n := d.nodeByID(other); n != nil {
			out = append(out, n)
		}
	}
	return out
}

// prereqSources returns the direct prerequisites of id: sources of PREREQ
// edges pointing at it.
func (d *Dataset) prereqSources(id string) []*api.GraphNode {
	var out []*api.GraphNode
	for _, e := range d.Edges {
		if e.Type == "PREREQ" && e.Target == id {
			if n := d.nodeByID(e.Source); n != nil {
				out = append(out, n)
			}
		}
	}
	return out
}

// prereqTargets returns the concepts id unlocks: targets of PREREQ edges
// leaving it.
func (d *Dataset) prereqTargets(id string) []*api.GraphNode {
	var out []*api.GraphNode
	for _, e := range d.Edges {
		if e.Type == "PREREQ" && e.Source == id {
			if n := d.nodeByID(e.Target); n != nil {
				out = append(out, n)
			}
		}
	}
	return out
}

// passagesFor returns the passages tied to the concept label, most specific
// first.
func (d *Dataset) passagesFor(label string) []Passage {
	want := normalize(label)
	var out []Passage
	for _, p := range d.Passages {
		if normalize(p.Concept) == want {
			out = append(out, p)
		}
	}
	return out
}

// chapters returns the distinct chapter names, sorted.
func (d *Dataset) chapters() []string {
	seen := make(map[string]bool)
	for _, n := range d.Nodes {
		if n.Chapter != "" && !seen[n.Chapter] {
			seen[n.Chapter] = true
		}
	}
	out := make([]string, 0, len(seen))
	for ch := range seen {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// degree counts the edges touching id.
func (d *Dataset) degree(id string) int {
	n := 0
	for _, e := range d.Edges {
		if e.Source == id || e.Target == id {
			n++
		}
	}
	return n
}

// topNodes returns the limit highest-importance nodes, importance descending
// with label as tiebreaker. limit <= 0 returns all.
func (d *Dataset) topNodes(limit int) []api.GraphNode {
	out := make([]api.GraphNode, len(d.Nodes))
	copy(out, d.Nodes)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		return out[i].Label < out[j].Label
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// normalize lowercases and collapses whitespace for label comparison.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// BiologyDataset seeds a small slice of an introductory biology course:
// enough graph structure for learning paths and quizzes, and a passage or two
// per major concept for retrieval.
func BiologyDataset() *Dataset {
	return &Dataset{
		Subjects: []api.SubjectSummary{
			{
				ID:          "biology",
				Name:        "Biology",
				Description: "Cells, genetics, energy and the processes of life, after OpenStax Biology 2e.",
				IsDefault:   true,
			},
			{
				ID:          "chemistry",
				Name:        "Chemistry",
				Description: "Atoms, bonds and reactions, after OpenStax Chemistry 2e.",
			},
		},
		DefaultSubject: "biology",
		Themes: map[string]api.SubjectTheme{
			"biology": {
				SubjectID:      "biology",
				PrimaryColor:   "#10B981",
				SecondaryColor: "#065F46",
				AccentColor:    "#F59E0B",
				ChapterColors: map[string]string{
					"Cell Structure":       "#34D399",
					"Cell Division":        "#FBBF24",
					"Genetics":             "#A78BFA",
					"Energy and Metabolism": "#38BDF8",
				},
			},
			"chemistry": {
				SubjectID:      "chemistry",
				PrimaryColor:   "#0EA5E9",
				SecondaryColor: "#075985",
				AccentColor:    "#F472B6",
				ChapterColors:  map[string]string{},
			},
		},
		Nodes: []api.GraphNode{
			{ID: "bio-001", Label: "Cell", Importance: 0.95, Chapter: "Cell Structure"},
			{ID: "bio-002", Label: "Cell Membrane", Importance: 0.62, Chapter: "Cell Structure"},
			{ID: "bio-003", Label: "Nucleus", Importance: 0.68, Chapter: "Cell Structure"},
			{ID: "bio-004", Label: "Chloroplast", Importance: 0.58, Chapter: "Cell Structure"},
			{ID: "bio-005", Label: "Mitochondria", Importance: 0.72, Chapter: "Cell Structure"},
			{ID: "bio-006", Label: "Photosynthesis", Importance: 0.90, Chapter: "Energy and Metabolism"},
			{ID: "bio-007", Label: "Cellular Respiration", Importance: 0.85, Chapter: "Energy and Metabolism"},
			{ID: "bio-008", Label: "ATP", Importance: 0.66, Chapter: "Energy and Metabolism"},
			{ID: "bio-009", Label: "Light Reactions", Importance: 0.48, Chapter: "Energy and Metabolism"},
			{ID: "bio-010", Label: "Calvin Cycle", Importance: 0.47, Chapter: "Energy and Metabolism"},
			{ID: "bio-011", Label: "Mitosis", Importance: 0.78, Chapter: "Cell Division"},
			{ID: "bio-012", Label: "Meiosis", Importance: 0.74, Chapter: "Cell Division"},
			{ID: "bio-013", Label: "Cell Cycle", Importance: 0.70, Chapter: "Cell Division"},
			{ID: "bio-014", Label: "DNA", Importance: 0.92, Chapter: "Genetics"},
			{ID: "bio-015", Label: "RNA", Importance: 0.69, Chapter: "Genetics"},
			{ID: "bio-016", Label: "Protein Synthesis", Importance: 0.71, Chapter: "Genetics"},
			{ID: "bio-017", Label: "Chromosome", Importance: 0.63, Chapter: "Genetics"},
			{ID: "bio-018", Label: "Gene Expression", Importance: 0.60, Chapter: "Genetics"},
		},
		Edges: []api.GraphEdge{
			{ID: "rel-001", Source: "bio-002", Target: "bio-001", Type: "PART_OF"},
			{ID: "rel-002", Source: "bio-003", Target: "bio-001", Type: "PART_OF"},
			{ID: "rel-003", Source: "bio-005", Target: "bio-001", Type: "PART_OF"},
			{ID: "rel-004", Source: "bio-004", Target: "bio-001", Type: "PART_OF"},
			{ID: "rel-005", Source: "bio-001", Target: "bio-006", Type: "PREREQ"},
			{ID: "rel-006", Source: "bio-001", Target: "bio-011", Type: "PREREQ"},
			{ID: "rel-007", Source: "bio-013", Target: "bio-011", Type: "PREREQ"},
			{ID: "rel-008", Source: "bio-011", Target: "bio-012", Type: "RELATED"},
			{ID: "rel-009", Source: "bio-006", Target: "bio-009", Type: "COVERS"},
			{ID: "rel-010", Source: "bio-006", Target: "bio-010", Type: "COVERS"},
			{ID: "rel-011", Source: "bio-009", Target: "bio-010", Type: "PREREQ"},
			{ID: "rel-012", Source: "bio-006", Target: "bio-007", Type: "RELATED"},
			{ID: "rel-013", Source: "bio-007", Target: "bio-008", Type: "MENTIONS"},
			{ID: "rel-014", Source: "bio-014", Target: "bio-015", Type: "RELATED"},
			{ID: "rel-015", Source: "bio-014", Target: "bio-017", Type: "PART_OF"},
			{ID: "rel-016", Source: "bio-014", Target: "bio-016", Type: "PREREQ"},
			{ID: "rel-017", Source: "bio-015", Target: "bio-016", Type: "PREREQ"},
			{ID: "rel-018", Source: "bio-016", Target: "bio-018", Type: "PREREQ"},
			{ID: "rel-019", Source: "bio-003", Target: "bio-014", Type: "MENTIONS"},
		},
		Passages: []Passage{
			{
				Concept:     "DNA",
				Text:        "DNA is a molecule that carries the genetic instructions used in the growth, development and reproduction of all known organisms. Its two strands coil around each other to form a double helix.",
				ModuleTitle: "The Structure of DNA",
				Section:     "14.2",
			},
			{
				Concept:     "DNA",
				Text:        "Each strand of DNA is a chain of nucleotides, and the order of the bases along the chain encodes hereditary information.",
				ModuleTitle: "The Structure of DNA",
				Section:     "14.3",
			},
			{
				Concept:     "Photosynthesis",
				Text:        "Photosynthesis converts light energy into chemical energy stored in glucose. In plants it takes place in the chloroplast, across the light reactions and the Calvin cycle.",
				ModuleTitle: "Overview of Photosynthesis",
				Section:     "8.1",
			},
			{
				Concept:     "Light Reactions",
				Text:        "The light-dependent reactions capture photon energy in the thylakoid membrane and bank it as ATP and NADPH for the Calvin cycle.",
				ModuleTitle: "The Light-Dependent Reactions",
				Section:     "8.2",
			},
			{
				Concept:     "Mitosis",
				Text:        "Mitosis divides a cell's duplicated chromosomes into two identical nuclei. It proceeds through prophase, metaphase, anaphase and telophase.",
				ModuleTitle: "The Cell Cycle",
				Section:     "10.2",
			},
			{
				Concept:     "Meiosis",
				Text:        "Meiosis halves the chromosome number across two rounds of division, producing four genetically distinct haploid cells.",
				ModuleTitle: "Sexual Reproduction",
				Section:     "11.1",
			},
			{
				Concept:     "Cell",
				Text:        "The cell is the smallest unit of life. Eukaryotic cells enclose their DNA in a nucleus and compartmentalize work into organelles.",
				ModuleTitle: "Studying Cells",
				Section:     "4.1",
			},
			{
				Concept:     "Cellular Respiration",
				Text:        "Cellular respiration breaks glucose down to drive ATP synthesis, moving from glycolysis through the citric acid cycle to oxidative phosphorylation in the mitochondria.",
				ModuleTitle: "Cellular Respiration",
				Section:     "7.1",
			},
			{
				Concept:     "ATP",
				Text:        "ATP is the cell's energy currency. Hydrolysis of its terminal phosphate releases energy that powers most cellular work.",
				ModuleTitle: "Energy and Metabolism",
				Section:     "6.4",
			},
			{
				Concept:     "Protein Synthesis",
				Text:        "Protein synthesis reads genetic information in two stages: transcription copies a gene into messenger RNA, and translation assembles the encoded protein at the ribosome.",
				ModuleTitle: "Genes and Proteins",
				Section:     "15.1",
			},
			{
				Concept:     "Chromosome",
				Text:        "A chromosome packages a single DNA molecule with proteins into a compact, inheritable structure.",
				ModuleTitle: "Chromosomal Basis of Inheritance",
				Section:     "13.1",
			},
		},
	}
}
