package similarity

import "github.com/odinkg/odin/internal/models"

// Result is the response of a similarity computation.
type Result struct {
	Metadata   ResultMetadata `json:"metadata"`
	Similarity Stats          `json:"similarity"`
	Paths      []models.Path  `json:"paths"`
}

// ResultMetadata describes the computation.
type ResultMetadata struct {
	Method          string   `json:"method"`
	Datasets        []string `json:"datasets"`
	TotalPathCount  int      `json:"totalPathCount"`
	ResultPathCount int      `json:"resultPathCount"`
}

// Stats summarizes path lengths in nodes. It is empty when no path was
// selected.
type Stats struct {
	Min  int     `json:"min,omitempty"`
	Max  int     `json:"max,omitempty"`
	Mean float64 `json:"mean,omitempty"`
	Sum  int     `json:"sum,omitempty"`
}

// Summarize computes length statistics for paths.
func Summarize(paths []models.Path) Stats {
	if len(paths) == 0 {
		return Stats{}
	}

	s := Stats{Min: paths[0].Len(), Max: paths[0].Len()}

	for _, p := range paths {
		n := p.Len()
		s.Sum += n
		s.Min = min(s.Min, n)
		s.Max = max(s.Max, n)
	}

	s.Mean = float64(s.Sum) / float64(len(paths))

	return s
}
