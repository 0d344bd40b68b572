// Package facematch decides the identity of detected faces by comparing their
// embeddings against a gallery snapshot.
package facematch

// MatchStatus tells whether a face was identified
type MatchStatus string

const (
	StatusMatched MatchStatus = "matched" // Nearest gallery entry is within the threshold
	StatusUnknown MatchStatus = "unknown" // Empty gallery or nearest entry too far away
)

// MatchResult is the transient outcome of matching one embedding
type MatchResult struct {
	Status    MatchStatus `json:"status"`
	StudentID string      `json:"student_id,omitempty"`
	Name      string      `json:"name,omitempty"`
	Distance  float64     `json:"distance,omitempty"`
}

// Matched reports whether the result identifies an enrolled person.
func (r MatchResult) Matched() bool {
	return r.Status == StatusMatched
}

// Detection is one face found in a camera frame by the face-recognition
// collaborator. BBox is carried through untouched for display.
type Detection struct {
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox,omitempty"` // [x1, y1, x2, y2] in frame pixels
}

// FaceMatch pairs a detection with its match result
type FaceMatch struct {
	BBox   []float64   `json:"bbox,omitempty"`
	Result MatchResult `json:"result"`
}
