package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"postrelay/internal/classify"
)

// AddVKSource inserts a VK source. The group id must be unique.
func (s *Store) AddVKSource(ctx context.Context, src VKSource) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("store is not initialized")
	}
	if strings.TrimSpace(src.Name) == "" {
		return 0, errors.New("name is required")
	}
	if strings.TrimSpace(src.GroupID) == "" {
		return 0, errors.New("group_id is required")
	}
	if strings.TrimSpace(src.TargetTopic) == "" {
		return 0, errors.New("target_topic is required")
	}
	if src.Classifier == "" {
		src.Classifier = classify.StrategyNone
	}
	if !src.Classifier.Valid() {
		return 0, fmt.Errorf("unknown classifier %q", src.Classifier)
	}

	keywords, err := encodeKeywords(src.Keywords)
	if err != nil {
		return 0, err
	}
	exclude, err := encodeKeywords(src.ExcludeKeywords)
	if err != nil {
		return 0, err
	}

	createdAt := src.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO vk_sources (
			name, group_id, target_topic, all_posts, classifier,
			keywords, exclude_keywords, require_date_or_price, enabled, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		src.Name,
		src.GroupID,
		src.TargetTopic,
		boolToInt(src.AllPosts),
		string(src.Classifier),
		keywords,
		exclude,
		boolToInt(src.RequireDateOrPrice),
		boolToInt(src.Enabled),
		formatTime(createdAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert vk source: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("vk source id: %w", err)
	}
	return id, nil
}

// ListVKSources returns VK sources, optionally only enabled ones.
func (s *Store) ListVKSources(ctx context.Context, enabledOnly bool) ([]VKSource, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}

	query := `
		SELECT id, name, group_id, target_topic, all_posts, classifier,
			keywords, exclude_keywords, require_date_or_price, enabled, created_at
		FROM vk_sources`
	if enabledOnly {
		query += " WHERE enabled = 1"
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list vk sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sources []VKSource
	for rows.Next() {
		var (
			src                               VKSource
			allPosts, requireMarker, enabled  int
			classifier, keywords, excludeJSON string
			createdAt                         string
		)
		if err := rows.Scan(
			&src.ID, &src.Name, &src.GroupID, &src.TargetTopic, &allPosts,
			&classifier, &keywords, &excludeJSON, &requireMarker, &enabled, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan vk source: %w", err)
		}

		src.AllPosts = allPosts != 0
		src.RequireDateOrPrice = requireMarker != 0
		src.Enabled = enabled != 0
		src.Classifier = classify.Strategy(classifier)
		if src.Keywords, err = decodeKeywords(keywords); err != nil {
			return nil, fmt.Errorf("vk source %s keywords: %w", src.GroupID, err)
		}
		if src.ExcludeKeywords, err = decodeKeywords(excludeJSON); err != nil {
			return nil, fmt.Errorf("vk source %s exclude keywords: %w", src.GroupID, err)
		}
		if src.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("vk source %s created_at: %w", src.GroupID, err)
		}

		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vk sources: %w", err)
	}

	return sources, nil
}

// SetVKSourceEnabled flips a VK source's enabled flag by group id.
func (s *Store) SetVKSourceEnabled(ctx context.Context, groupID string, enabled bool) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE vk_sources SET enabled = ? WHERE group_id = ?",
		boolToInt(enabled), groupID,
	)
	if err != nil {
		return fmt.Errorf("update vk source: %w", err)
	}
	return requireRow(res, "vk source", groupID)
}

// RemoveVKSource deletes a VK source by group id.
func (s *Store) RemoveVKSource(ctx context.Context, groupID string) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM vk_sources WHERE group_id = ?", groupID)
	if err != nil {
		return fmt.Errorf("delete vk source: %w", err)
	}
	return requireRow(res, "vk source", groupID)
}

// AddTelegramSource inserts a Telegram source. (chat_id, thread_id) must be
// unique among sources with a thread id.
func (s *Store) AddTelegramSource(ctx context.Context, src TelegramSource) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("store is not initialized")
	}
	if strings.TrimSpace(src.Name) == "" {
		return 0, errors.New("name is required")
	}
	if src.ChatID == 0 {
		return 0, errors.New("chat_id is required")
	}
	if strings.TrimSpace(src.TargetTopic) == "" {
		return 0, errors.New("target_topic is required")
	}
	if src.Classifier == "" {
		src.Classifier = classify.StrategyBuySell
	}
	if !src.Classifier.Valid() {
		return 0, fmt.Errorf("unknown classifier %q", src.Classifier)
	}

	keywords, err := encodeKeywords(src.Keywords)
	if err != nil {
		return 0, err
	}
	exclude, err := encodeKeywords(src.ExcludeKeywords)
	if err != nil {
		return 0, err
	}

	var threadID sql.NullInt64
	if src.ThreadID != 0 {
		threadID = sql.NullInt64{Int64: src.ThreadID, Valid: true}
	}

	createdAt := src.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO telegram_sources (
			name, chat_id, thread_id, target_topic, all_posts, classifier,
			keywords, exclude_keywords, require_date_or_price,
			show_author, enabled, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		src.Name,
		src.ChatID,
		threadID,
		src.TargetTopic,
		boolToInt(src.AllPosts),
		string(src.Classifier),
		keywords,
		exclude,
		boolToInt(src.RequireDateOrPrice),
		boolToInt(src.ShowAuthor),
		boolToInt(src.Enabled),
		formatTime(createdAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert telegram source: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("telegram source id: %w", err)
	}
	return id, nil
}

// ListTelegramSources returns Telegram sources, optionally only enabled ones.
func (s *Store) ListTelegramSources(ctx context.Context, enabledOnly bool) ([]TelegramSource, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}

	query := `
		SELECT id, name, chat_id, thread_id, target_topic, all_posts, classifier,
			keywords, exclude_keywords, require_date_or_price,
			show_author, enabled, created_at
		FROM telegram_sources`
	if enabledOnly {
		query += " WHERE enabled = 1"
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list telegram sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sources []TelegramSource
	for rows.Next() {
		var (
			src                                          TelegramSource
			threadID                                     sql.NullInt64
			allPosts, requireMarker, showAuthor, enabled int
			classifier, keywords, excludeJSON, created   string
		)
		if err := rows.Scan(
			&src.ID, &src.Name, &src.ChatID, &threadID, &src.TargetTopic,
			&allPosts, &classifier, &keywords, &excludeJSON, &requireMarker,
			&showAuthor, &enabled, &created,
		); err != nil {
			return nil, fmt.Errorf("scan telegram source: %w", err)
		}

		if threadID.Valid {
			src.ThreadID = threadID.Int64
		}
		src.AllPosts = allPosts != 0
		src.RequireDateOrPrice = requireMarker != 0
		src.ShowAuthor = showAuthor != 0
		src.Enabled = enabled != 0
		src.Classifier = classify.Strategy(classifier)
		var err error
		if src.Keywords, err = decodeKeywords(keywords); err != nil {
			return nil, fmt.Errorf("telegram source %d keywords: %w", src.ChatID, err)
		}
		if src.ExcludeKeywords, err = decodeKeywords(excludeJSON); err != nil {
			return nil, fmt.Errorf("telegram source %d exclude keywords: %w", src.ChatID, err)
		}
		if src.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("telegram source %d created_at: %w", src.ChatID, err)
		}

		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate telegram sources: %w", err)
	}

	return sources, nil
}

// SetTelegramSourceEnabled flips a Telegram source's enabled flag by row id.
func (s *Store) SetTelegramSourceEnabled(ctx context.Context, id int64, enabled bool) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE telegram_sources SET enabled = ? WHERE id = ?",
		boolToInt(enabled), id,
	)
	if err != nil {
		return fmt.Errorf("update telegram source: %w", err)
	}
	return requireRow(res, "telegram source", fmt.Sprint(id))
}

// RemoveTelegramSource deletes a Telegram source by row id.
func (s *Store) RemoveTelegramSource(ctx context.Context, id int64) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM telegram_sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete telegram source: %w", err)
	}
	return requireRow(res, "telegram source", fmt.Sprint(id))
}

// AddTopic inserts or updates a destination topic.
func (s *Store) AddTopic(ctx context.Context, topic classify.Topic) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	if strings.TrimSpace(topic.ID) == "" {
		return errors.New("topic id is required")
	}
	if topic.ThreadID == 0 {
		return errors.New("thread id is required")
	}
	if strings.TrimSpace(topic.Name) == "" {
		return errors.New("topic name is required")
	}

	emoji := topic.Emoji
	if emoji == "" {
		emoji = "📌"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO topics (id, thread_id, name, emoji)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			thread_id = excluded.thread_id,
			name = excluded.name,
			emoji = excluded.emoji
	`, topic.ID, topic.ThreadID, topic.Name, emoji)
	if err != nil {
		return fmt.Errorf("upsert topic: %w", err)
	}
	return nil
}

// Topics returns the full topic catalog keyed by topic id.
func (s *Store) Topics(ctx context.Context) (classify.Catalog, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, thread_id, name, emoji FROM topics")
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	catalog := make(classify.Catalog)
	for rows.Next() {
		var t classify.Topic
		if err := rows.Scan(&t.ID, &t.ThreadID, &t.Name, &t.Emoji); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		catalog[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}

	return catalog, nil
}

// AddAdKeyword inserts a global stop word. Duplicates are a no-op.
func (s *Store) AddAdKeyword(ctx context.Context, keyword string) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return errors.New("keyword is required")
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO ad_keywords (keyword) VALUES (?)", keyword)
	if err != nil {
		return fmt.Errorf("insert ad keyword: %w", err)
	}
	return nil
}

// RemoveAdKeyword deletes a global stop word.
func (s *Store) RemoveAdKeyword(ctx context.Context, keyword string) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM ad_keywords WHERE keyword = ?", keyword)
	if err != nil {
		return fmt.Errorf("delete ad keyword: %w", err)
	}
	return requireRow(res, "ad keyword", keyword)
}

// AdKeywords returns all global stop words.
func (s *Store) AdKeywords(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}

	rows, err := s.db.QueryContext(ctx, "SELECT keyword FROM ad_keywords ORDER BY keyword")
	if err != nil {
		return nil, fmt.Errorf("list ad keywords: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keywords []string
	for rows.Next() {
		var kw string
		if err := rows.Scan(&kw); err != nil {
			return nil, fmt.Errorf("scan ad keyword: %w", err)
		}
		keywords = append(keywords, kw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ad keywords: %w", err)
	}

	return keywords, nil
}

func encodeKeywords(keywords []string) (string, error) {
	if keywords == nil {
		keywords = []string{}
	}
	data, err := json.Marshal(keywords)
	if err != nil {
		return "", fmt.Errorf("encode keywords: %w", err)
	}
	return string(data), nil
}

func decodeKeywords(value string) ([]string, error) {
	if value == "" {
		return nil, nil
	}
	var keywords []string
	if err := json.Unmarshal([]byte(value), &keywords); err != nil {
		return nil, fmt.Errorf("decode keywords: %w", err)
	}
	if len(keywords) == 0 {
		return nil, nil
	}
	return keywords, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s not found", kind, id)
	}
	return nil
}
