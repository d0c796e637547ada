package store

import (
	"context"
	"fmt"

	"hintparty/internal/db"
)

// Seed loads the word pool and hint catalog. Rows already present are updated.
func Seed(ctx context.Context, s Store, words []db.Word, hintTypes []db.HintType) error {
	for i := range words {
		if err := s.UpsertWord(ctx, &words[i]); err != nil {
			return fmt.Errorf("upsert word %q: %w", words[i].WordEn, err)
		}
	}
	for i := range hintTypes {
		if err := s.UpsertHintType(ctx, &hintTypes[i]); err != nil {
			return fmt.Errorf("upsert hint type %q: %w", hintTypes[i].NameEn, err)
		}
	}
	return nil
}
