package mariadb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// GalleryRepository reads enrolled people from MariaDB. Embeddings are stored
// as a JSON list of floats in embedding_json.
type GalleryRepository struct {
	pool *Pool
}

// NewGalleryRepository creates a MariaDB gallery repository.
func NewGalleryRepository(pool *Pool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

// LoadGallery reads every enrolled person in enrollment order.
func (r *GalleryRepository) LoadGallery(ctx context.Context) (*gallery.Gallery, error) {
	rows, err := r.pool.db.QueryContext(ctx, `SELECT id, name, class_tag, embedding_json FROM enrolled_people ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query enrolled people: %w", err)
	}
	defer rows.Close()

	var people []gallery.EnrolledPerson
	for rows.Next() {
		var (
			p    gallery.EnrolledPerson
			data []byte
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.ClassTag, &data); err != nil {
			return nil, fmt.Errorf("scan enrolled person: %w", err)
		}
		if err := json.Unmarshal(data, &p.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding of %s: %w", p.ID, err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrolled people: %w", err)
	}

	g, err := gallery.New(people)
	if err != nil {
		return nil, fmt.Errorf("building gallery: %w", err)
	}
	return g, nil
}

// SaveGallery upserts every person of g and returns the number written.
func (r *GalleryRepository) SaveGallery(ctx context.Context, g *gallery.Gallery) (int, error) {
	tx, err := r.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO enrolled_people (id, name, class_tag, embedding_json) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), class_tag = VALUES(class_tag), embedding_json = VALUES(embedding_json)`

	written := 0
	for _, p := range g.People() {
		data, err := json.Marshal(p.Embedding)
		if err != nil {
			return 0, fmt.Errorf("marshal embedding: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, p.ID, p.Name, p.ClassTag, data); err != nil {
			return 0, fmt.Errorf("upsert person %s: %w", p.ID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit gallery: %w", err)
	}
	return written, nil
}

// Delete removes one enrolled person. Deleting an unknown id is not an error.
func (r *GalleryRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.db.ExecContext(ctx, `DELETE FROM enrolled_people WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete enrolled person: %w", err)
	}
	return nil
}
