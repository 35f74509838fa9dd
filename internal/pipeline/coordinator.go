// Package pipeline routes fetched items through dedup, classification,
// and delivery.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"postrelay/internal/classify"
)

// Ledger is the durable record of already-relayed items.
type Ledger interface {
	Seen(ctx context.Context, kind, itemID, collection string) (bool, error)
	Record(ctx context.Context, kind, itemID, collection string, threadID int64, contentHash string, at time.Time) error
}

// Delivery is one accepted item handed to the sink.
type Delivery struct {
	Text       string
	Topic      classify.Topic
	SourceLink string
	AuthorLink string
}

// Sink publishes accepted items to the destination space.
type Sink interface {
	Deliver(ctx context.Context, d Delivery) error
}

// Snapshot is the per-cycle view of shared catalog data.
type Snapshot struct {
	Topics     classify.Catalog
	AdKeywords []string
}

// Outcome reports what happened to one item.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

// Coordinator runs one item through seen-check, classification, delivery,
// and ledger recording.
type Coordinator struct {
	ledger Ledger
	sink   Sink
	log    *slog.Logger
	now    func() time.Time
}

func NewCoordinator(ledger Ledger, sink Sink, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		ledger: ledger,
		sink:   sink,
		log:    log,
		now:    time.Now,
	}
}

// Process handles a single item. Failures are per-item: a ledger read
// error skips the item without recording it (fail closed), a delivery
// error leaves it unrecorded so the next fetch retries it, and a record
// error after delivery is surfaced but the delivery stands — a duplicate
// on retry is acceptable, silent loss is not.
func (c *Coordinator) Process(ctx context.Context, item Item, rules classify.Rules, snap Snapshot) (Outcome, error) {
	seen, err := c.ledger.Seen(ctx, item.Kind, item.ItemID, item.Collection)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("dedup check: %w", err)
	}
	if seen {
		return OutcomeDuplicate, nil
	}

	topicID, ok := c.decide(item, rules, snap.AdKeywords)
	if !ok {
		return OutcomeRejected, nil
	}

	topic, ok := snap.Topics[topicID]
	if !ok {
		c.log.Warn("target topic missing from catalog",
			"topic", topicID, "kind", item.Kind, "collection", item.Collection)
		return OutcomeRejected, nil
	}

	err = c.sink.Deliver(ctx, Delivery{
		Text:       item.Text,
		Topic:      topic,
		SourceLink: item.SourceLink,
		AuthorLink: item.AuthorLink,
	})
	if err != nil {
		return OutcomeFailed, fmt.Errorf("deliver: %w", err)
	}

	if err := c.ledger.Record(ctx, item.Kind, item.ItemID, item.Collection,
		topic.ThreadID, contentHash(item.Text), c.now()); err != nil {
		return OutcomeDelivered, fmt.Errorf("record delivered item: %w", err)
	}

	c.log.Info("relayed",
		"kind", item.Kind, "collection", item.Collection,
		"item", item.ItemID, "topic", topic.ID)
	return OutcomeDelivered, nil
}

// decide wraps the classifier so a defect in it rejects one item instead
// of taking down the lane.
func (c *Coordinator) decide(item Item, rules classify.Rules, adKeywords []string) (topicID string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("classifier panic",
				"panic", r, "kind", item.Kind, "item", item.ItemID)
			topicID, ok = "", false
		}
	}()
	return classify.Decide(item.Text, rules, adKeywords)
}

func contentHash(text string) string {
	if text == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
