package graphview

import (
	"github.com/abhisek/studiz/internal/api"
	"github.com/abhisek/studiz/internal/conceptmap"
)

// graphLoadedMsg carries the fetched graph snapshot. Stats may be nil when
// only the stats call failed; Err is set when the snapshot itself could not
// be fetched.
type graphLoadedMsg struct {
	Graph *conceptmap.Graph
	Stats *api.GraphStats
	Err   error
}

// pathLoadedMsg carries the prerequisite chain for one concept.
type pathLoadedMsg struct {
	Concept string
	Path    *api.LearningPath
	Err     error
}
