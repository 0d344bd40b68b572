package gallery

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrNoSource = errors.New("gallery source not configured")

// fileDocument is the on-disk YAML layout written by the enrollment tool.
type fileDocument struct {
	People []EnrolledPerson `yaml:"people"`
}

// FileSource reads a gallery snapshot from a YAML file.
type FileSource struct {
	Path string
}

// NewFileSource creates a YAML gallery source.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// LoadGallery reads the file. A missing file yields an empty gallery, so a
// fresh installation matches every face as Unknown instead of failing.
func (s *FileSource) LoadGallery(ctx context.Context) (*Gallery, error) {
	data, err := os.ReadFile(s.Path) //nolint:gosec // path is from trusted config
	if errors.Is(err, os.ErrNotExist) {
		return New(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("reading gallery file: %w", err)
	}
	return Decode(data)
}

// Decode parses a YAML gallery document.
func Decode(data []byte) (*Gallery, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing gallery yaml: %w", err)
	}
	return New(doc.People)
}

// Encode renders a gallery as a YAML document readable by Decode.
func Encode(g *Gallery) ([]byte, error) {
	out, err := yaml.Marshal(fileDocument{People: g.People()})
	if err != nil {
		return nil, fmt.Errorf("encoding gallery yaml: %w", err)
	}
	return out, nil
}
