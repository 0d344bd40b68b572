package database

import (
	"errors"
	"sort"
	"sync"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// DuplicatePair is two enrolled people whose embeddings are close enough to
// be matched as each other.
type DuplicatePair struct {
	First    gallery.EnrolledPerson `json:"first"`
	Second   gallery.EnrolledPerson `json:"second"`
	Distance float64                `json:"distance"`
}

// GalleryIndex wraps an HNSW graph over the embeddings of one gallery
// snapshot. Node keys are gallery positions.
type GalleryIndex struct {
	graph   *hnsw.Graph[int]
	gallery *gallery.Gallery
	mu      sync.RWMutex
}

// NewGalleryIndex creates an empty index.
func NewGalleryIndex() *GalleryIndex {
	return &GalleryIndex{}
}

// Build indexes every person of g, replacing any previous contents.
func (h *GalleryIndex) Build(g *gallery.Gallery) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.gallery = g
	if g.Len() == 0 {
		h.graph = nil
		return
	}

	graph := hnsw.NewGraph[int]()
	graph.M = HNSWMaxNeighbors
	graph.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	graph.EfSearch = HNSWEfSearch
	graph.Distance = hnsw.EuclideanDistance

	for i := range g.Len() {
		graph.Add(hnsw.MakeNode(i, g.At(i).Embedding))
	}
	h.graph = graph
}

// Count returns the number of indexed people.
func (h *GalleryIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.graph == nil {
		return 0
	}
	return h.graph.Len()
}

// Search finds up to k enrolled people nearest to query. Distances are exact
// Euclidean distances, not the graph's float32 approximation.
func (h *GalleryIndex) Search(query []float32, k int) ([]gallery.EnrolledPerson, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, nil, errors.New("index not initialized")
	}
	if len(query) != constants.EmbeddingDim {
		return nil, nil, gallery.ErrEmbeddingShape
	}

	neighbors := h.graph.Search(query, k)
	people := make([]gallery.EnrolledPerson, 0, len(neighbors))
	distances := make([]float64, 0, len(neighbors))
	for _, n := range neighbors {
		p := h.gallery.At(n.Key)
		people = append(people, p)
		distances = append(distances, facematch.EuclideanDistance(query, p.Embedding))
	}
	return people, distances, nil
}

// FindDuplicates returns pairs of distinct people within threshold of each
// other, closest pairs first. Each pair is reported once, ordered by gallery
// position.
func (h *GalleryIndex) FindDuplicates(threshold float64) []DuplicatePair {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil
	}

	k := min(HNSWNeighborsPerPerson+1, h.gallery.Len())
	seen := make(map[[2]int]bool)
	var pairs []DuplicatePair
	for i := range h.gallery.Len() {
		p := h.gallery.At(i)
		for _, n := range h.graph.Search(p.Embedding, k) {
			if n.Key == i {
				continue
			}
			a, b := min(i, n.Key), max(i, n.Key)
			if seen[[2]int{a, b}] {
				continue
			}
			seen[[2]int{a, b}] = true

			first, second := h.gallery.At(a), h.gallery.At(b)
			d := facematch.EuclideanDistance(first.Embedding, second.Embedding)
			if d > threshold {
				continue
			}
			pairs = append(pairs, DuplicatePair{First: first, Second: second, Distance: d})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Distance < pairs[j].Distance
	})
	return pairs
}

// FindDuplicates indexes g and reports its duplicate enrollments.
func FindDuplicates(g *gallery.Gallery, threshold float64) []DuplicatePair {
	idx := NewGalleryIndex()
	idx.Build(g)
	return idx.FindDuplicates(threshold)
}
