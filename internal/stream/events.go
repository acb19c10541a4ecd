package stream

// Event is one item in a question-answer stream. A well-formed stream is
// metadata, then zero or more tokens, then exactly one terminal event
// (DoneEvent or ErrorEvent).
type Event interface {
	streamEvent()
}

// Source is a retrieved passage backing an answer.
type Source struct {
	Text        string  `json:"text"`
	ModuleTitle string  `json:"module_title,omitempty"`
	Section     string  `json:"section,omitempty"`
	Score       float64 `json:"score"`
}

// Metadata carries retrieval results for one stream. It usually precedes the
// tokens but may arrive between them; at most one is expected, and when more
// arrive the last one wins.
type Metadata struct {
	Sources          []Source `json:"sources,omitempty"`
	ExpandedConcepts []string `json:"expanded_concepts,omitempty"`
	RetrievedCount   int      `json:"retrieved_count,omitempty"`
	Model            string   `json:"model,omitempty"`
	Attribution      string   `json:"attribution,omitempty"`
}

// MetadataEvent carries retrieval results and the serving model.
type MetadataEvent struct {
	Metadata Metadata
}

// TokenEvent carries one answer fragment. Fragments concatenate in arrival
// order to form the full answer.
type TokenEvent struct {
	Text string
}

// DoneEvent marks successful completion.
type DoneEvent struct{}

// ErrorEvent marks failed completion.
type ErrorEvent struct {
	Err error
}

func (MetadataEvent) streamEvent() {}
func (TokenEvent) streamEvent()    {}
func (DoneEvent) streamEvent()     {}
func (ErrorEvent) streamEvent()    {}
