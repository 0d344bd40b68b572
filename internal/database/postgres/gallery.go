package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/pgvector/pgvector-go"
)

// GalleryRepository stores enrolled people with pgvector embeddings.
type GalleryRepository struct {
	pool *Pool
}

// NewGalleryRepository creates a new PostgreSQL gallery repository.
func NewGalleryRepository(pool *Pool) *GalleryRepository {
	return &GalleryRepository{pool: pool}
}

// LoadGallery reads every enrolled person in enrollment order.
func (r *GalleryRepository) LoadGallery(ctx context.Context) (*gallery.Gallery, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, class_tag, embedding
		FROM enrolled_people
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query enrolled people: %w", err)
	}
	defer rows.Close()

	var people []gallery.EnrolledPerson
	for rows.Next() {
		var (
			p   gallery.EnrolledPerson
			vec pgvector.Vector
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.ClassTag, &vec); err != nil {
			return nil, fmt.Errorf("scan enrolled person: %w", err)
		}
		p.Embedding = vec.Slice()
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

// SaveGallery upserts every person of g, keeping the enrollment order of
// people already stored. It returns the number of rows written.
func (r *GalleryRepository) SaveGallery(ctx context.Context, g *gallery.Gallery) (int, error) {
	query := `
		INSERT INTO enrolled_people (id, name, class_tag, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			class_tag = EXCLUDED.class_tag,
			embedding = EXCLUDED.embedding,
			updated_at = NOW()
	`

	written := 0
	err := r.pool.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare upsert person: %w", err)
		}
		defer stmt.Close()

		for _, p := range g.People() {
			if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.ClassTag, pgvector.NewVector(p.Embedding)); err != nil {
				return fmt.Errorf("upsert person %s: %w", p.ID, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// Delete removes one enrolled person. Deleting an unknown id is not an error.
func (r *GalleryRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM enrolled_people WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete enrolled person: %w", err)
	}
	return nil
}

// Nearest returns the k enrolled people closest to embedding by Euclidean
// distance, computed by pgvector.
func (r *GalleryRepository) Nearest(ctx context.Context, embedding []float32, k int) ([]gallery.EnrolledPerson, []float64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, class_tag, embedding <-> $1 AS distance
		FROM enrolled_people
		ORDER BY distance, seq
		LIMIT $2
	`, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, nil, fmt.Errorf("query nearest people: %w", err)
	}
	defer rows.Close()

	var (
		people    []gallery.EnrolledPerson
		distances []float64
	)
	for rows.Next() {
		var (
			p gallery.EnrolledPerson
			d float64
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.ClassTag, &d); err != nil {
			return nil, nil, fmt.Errorf("scan nearest person: %w", err)
		}
		people = append(people, p)
		distances = append(distances, d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate nearest people: %w", err)
	}
	return people, distances, nil
}
