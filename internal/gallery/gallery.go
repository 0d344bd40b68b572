// Package gallery holds the set of enrolled people used as the comparison set
// for face matching. A Gallery is an immutable snapshot: enrollment changes
// produce a new Gallery which is swapped in through a Holder.
package gallery

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// EnrolledPerson is one entry of the gallery.
type EnrolledPerson struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	ClassTag  string    `yaml:"class" json:"class"`
	Embedding []float32 `yaml:"embedding" json:"-"`
}

var (
	ErrEmptyID        = errors.New("enrolled person has empty id")
	ErrDuplicateID    = errors.New("duplicate enrolled person id")
	ErrEmbeddingShape = errors.New("embedding has wrong dimension")
)

// Gallery is a read-only snapshot of enrolled people in enrollment order.
// A nil *Gallery behaves as an empty gallery.
type Gallery struct {
	people []EnrolledPerson
	byID   map[string]int
}

// New validates people and builds a snapshot. Slices are copied so later
// changes by the caller do not leak into the snapshot. A person without a
// class tag is placed in the Unknown class.
func New(people []EnrolledPerson) (*Gallery, error) {
	g := &Gallery{
		people: make([]EnrolledPerson, 0, len(people)),
		byID:   make(map[string]int, len(people)),
	}
	for _, p := range people {
		if p.ID == "" {
			return nil, ErrEmptyID
		}
		if _, ok := g.byID[p.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, p.ID)
		}
		if len(p.Embedding) != constants.EmbeddingDim {
			return nil, fmt.Errorf("%w: %s has %d, want %d", ErrEmbeddingShape, p.ID, len(p.Embedding), constants.EmbeddingDim)
		}
		if p.ClassTag == "" {
			p.ClassTag = constants.UnknownClass
		}
		p.Embedding = append([]float32(nil), p.Embedding...)
		g.byID[p.ID] = len(g.people)
		g.people = append(g.people, p)
	}
	return g, nil
}

// MustNew is like New but panics on invalid input. Intended for tests and fixtures.
func MustNew(people []EnrolledPerson) *Gallery {
	g, err := New(people)
	if err != nil {
		panic(err)
	}
	return g
}

// Len returns the number of enrolled people.
func (g *Gallery) Len() int {
	if g == nil {
		return 0
	}
	return len(g.people)
}

// At returns the i-th person in enrollment order. The returned embedding
// shares storage with the snapshot and must not be modified.
func (g *Gallery) At(i int) EnrolledPerson {
	return g.people[i]
}

// People returns a copy of all entries in enrollment order.
func (g *Gallery) People() []EnrolledPerson {
	if g == nil {
		return nil
	}
	return append([]EnrolledPerson(nil), g.people...)
}

// Lookup finds a person by id.
func (g *Gallery) Lookup(id string) (EnrolledPerson, bool) {
	if g == nil {
		return EnrolledPerson{}, false
	}
	i, ok := g.byID[id]
	if !ok {
		return EnrolledPerson{}, false
	}
	return g.people[i], true
}

// ClassOf returns the class tag for id, or Unknown when id is not enrolled.
func (g *Gallery) ClassOf(id string) string {
	if p, ok := g.Lookup(id); ok {
		return p.ClassTag
	}
	return constants.UnknownClass
}

// IsAllClasses reports whether class disables class filtering.
func IsAllClasses(class string) bool {
	return class == "" || strings.EqualFold(class, constants.AllClasses) || strings.EqualFold(class, "All Classes")
}

// Filter returns the people of a class in enrollment order. An empty class
// or "All" returns everyone.
func (g *Gallery) Filter(class string) []EnrolledPerson {
	if g == nil {
		return nil
	}
	if IsAllClasses(class) {
		return g.People()
	}
	var out []EnrolledPerson
	for _, p := range g.people {
		if p.ClassTag == class {
			out = append(out, p)
		}
	}
	return out
}

// Classes returns the distinct class tags, sorted.
func (g *Gallery) Classes() []string {
	if g == nil {
		return nil
	}
	seen := make(map[string]struct{})
	classes := make([]string, 0)
	for _, p := range g.people {
		if _, ok := seen[p.ClassTag]; ok {
			continue
		}
		seen[p.ClassTag] = struct{}{}
		classes = append(classes, p.ClassTag)
	}
	sort.Strings(classes)
	return classes
}

// SearchByName returns people whose normalized name contains the normalized query.
func (g *Gallery) SearchByName(query string) []EnrolledPerson {
	if g == nil {
		return nil
	}
	q := NormalizePersonName(strings.TrimSpace(query))
	if q == "" {
		return g.People()
	}
	var out []EnrolledPerson
	for _, p := range g.people {
		if strings.Contains(NormalizePersonName(p.Name), q) {
			out = append(out, p)
		}
	}
	return out
}
