package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Seen reports whether an item was already relayed. The triple
// (kind, itemID, collection) identifies one upstream post.
func (s *Store) Seen(ctx context.Context, kind, itemID, collection string) (bool, error) {
	if s == nil || s.db == nil {
		return false, errors.New("store is not initialized")
	}

	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM processed
		WHERE source_kind = ? AND source_item_id = ? AND source_collection = ?
	`, kind, itemID, collection).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query processed: %w", err)
	}
	return true, nil
}

// Record marks an item as relayed. Recording an already-present key is a
// no-op, so concurrent and repeated calls are safe.
func (s *Store) Record(ctx context.Context, kind, itemID, collection string, threadID int64, contentHash string, at time.Time) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	if kind == "" || itemID == "" || collection == "" {
		return errors.New("kind, item id, and collection are required")
	}
	if at.IsZero() {
		at = time.Now()
	}

	var hashVal sql.NullString
	if contentHash != "" {
		hashVal = sql.NullString{String: contentHash, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processed (
			source_kind, source_item_id, source_collection,
			target_thread_id, content_hash, processed_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_kind, source_item_id, source_collection) DO NOTHING
	`, kind, itemID, collection, threadID, hashVal, formatTime(at))
	if err != nil {
		return fmt.Errorf("record processed: %w", err)
	}
	return nil
}

// LedgerStats aggregates relayed-item counts.
type LedgerStats struct {
	Total  int
	ByKind map[string]int
}

// LedgerStats returns how many items were relayed, total and per source kind.
func (s *Store) LedgerStats(ctx context.Context) (LedgerStats, error) {
	if s == nil || s.db == nil {
		return LedgerStats{}, errors.New("store is not initialized")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source_kind, COUNT(*) FROM processed GROUP BY source_kind
	`)
	if err != nil {
		return LedgerStats{}, fmt.Errorf("ledger stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := LedgerStats{ByKind: make(map[string]int)}
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return LedgerStats{}, fmt.Errorf("scan ledger stats: %w", err)
		}
		stats.ByKind[kind] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return LedgerStats{}, fmt.Errorf("iterate ledger stats: %w", err)
	}

	return stats, nil
}
