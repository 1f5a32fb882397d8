// Package index keeps the vector projection of memory record values. It is
// derived data: the record store stays the source of truth.
package index

import (
	"context"
)

type (
	// Hit is a nearest-neighbor match. Score is cosine similarity in [-1, 1].
	// Ref names the vector; a hit only describes its record while the record's
	// EmbeddingRef still equals Ref.
	Hit struct {
		Ref      string  `json:"ref"`
		RecordID string  `json:"record_id"`
		Score    float64 `json:"score"`
	}

	Index interface {
		// Upsert embeds text and stores it under ref for recordID, replacing
		// any previous vector with the same ref.
		Upsert(ctx context.Context, ref, recordID, userID, text string) error
		// Delete removes the vector stored under ref.
		Delete(ctx context.Context, ref string) error
		// Query returns at most k hits for userID, highest score first.
		Query(ctx context.Context, embedding []float32, userID string, k int) ([]Hit, error)
		Count(ctx context.Context, userID string) (int, error)
		Ping(ctx context.Context) error
		Close() error
	}
)
