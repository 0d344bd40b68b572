package facematch

import (
	"math"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// Matcher identifies faces against a gallery snapshot. It holds no mutable
// state and is safe for concurrent use.
type Matcher struct {
	threshold float64
}

// NewMatcher creates a matcher. A negative threshold selects the default; zero
// accepts exact matches only.
func NewMatcher(threshold float64) *Matcher {
	if threshold < 0 {
		threshold = constants.DefaultMatchThreshold
	}
	return &Matcher{threshold: threshold}
}

// Threshold returns the maximum distance still treated as a match.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match returns the nearest enrolled person when their distance is within the
// threshold (inclusive), otherwise Unknown. On equal distances the earlier
// gallery entry wins.
func (m *Matcher) Match(embedding []float32, g *gallery.Gallery) MatchResult {
	best := -1
	bestDist := math.Inf(1)
	for i := range g.Len() {
		d := EuclideanDistance(embedding, g.At(i).Embedding)
		if d < bestDist {
			best, bestDist = i, d
		}
	}

	if best < 0 || bestDist > m.threshold {
		return MatchResult{Status: StatusUnknown}
	}

	p := g.At(best)
	return MatchResult{
		Status:    StatusMatched,
		StudentID: p.ID,
		Name:      p.Name,
		Distance:  bestDist,
	}
}

// MatchFrame matches every detection of a frame independently. The same
// person may be returned more than once.
func (m *Matcher) MatchFrame(detections []Detection, g *gallery.Gallery) []FaceMatch {
	out := make([]FaceMatch, len(detections))
	for i, det := range detections {
		out[i] = FaceMatch{
			BBox:   det.BBox,
			Result: m.Match(det.Embedding, g),
		}
	}
	return out
}
