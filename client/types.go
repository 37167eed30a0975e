package client

import "encoding/json"

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	Records       *int    `json:"records,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Selection methods accepted in Options.
const (
	MethodClosest  = "closest"
	MethodDistance = "distance"
)

// Options controls which of the found paths are returned.
type Options struct {
	Method   string `json:"method,omitempty"`
	Distance *int   `json:"distance,omitempty"`
}

// Path connects a left entity to a right entity through a shared ancestor.
type Path struct {
	Shared string   `json:"shared"`
	Nodes  []string `json:"nodes"`
}

// Stats summarizes the lengths of the returned paths. It is zero when no
// path was returned.
type Stats struct {
	Min  int     `json:"min,omitempty"`
	Max  int     `json:"max,omitempty"`
	Mean float64 `json:"mean,omitempty"`
	Sum  int     `json:"sum,omitempty"`
}

// ResultMetadata describes a similarity computation.
type ResultMetadata struct {
	Method          string   `json:"method"`
	Datasets        []string `json:"datasets"`
	TotalPathCount  int      `json:"totalPathCount"`
	ResultPathCount int      `json:"resultPathCount"`
}

// SimilarityResult is the response of a similarity computation.
type SimilarityResult struct {
	Metadata   ResultMetadata `json:"metadata"`
	Similarity Stats          `json:"similarity"`
	Paths      []Path         `json:"paths"`
}

// EntityRecords lists the records mapped to an entity.
type EntityRecords struct {
	Entity  string   `json:"entity"`
	Records []string `json:"records"`
}

// Record is an exported record document, kept raw so callers decode only
// what they need.
type Record = json.RawMessage
