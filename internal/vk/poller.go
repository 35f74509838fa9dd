package vk

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"postrelay/internal/classify"
	"postrelay/internal/pipeline"
	"postrelay/internal/ratelimit"
	"postrelay/internal/store"
)

// Catalog is the read side of the source configuration the poller needs.
type Catalog interface {
	ListVKSources(ctx context.Context, enabledOnly bool) ([]store.VKSource, error)
	Topics(ctx context.Context) (classify.Catalog, error)
	AdKeywords(ctx context.Context) ([]string, error)
}

// Processor runs one candidate item through the pipeline.
type Processor interface {
	Process(ctx context.Context, item pipeline.Item, rules classify.Rules, snap pipeline.Snapshot) (pipeline.Outcome, error)
}

// PollerConfig tunes the scan cadence.
type PollerConfig struct {
	Interval   time.Duration // time between scans
	GroupPause time.Duration // pause between groups within a scan
	FetchCount int           // wall posts fetched per group
}

// Poller scans configured VK communities on a fixed interval and feeds
// new posts into the pipeline.
type Poller struct {
	client  *Client
	catalog Catalog
	limiter *ratelimit.Limiter
	proc    Processor
	cfg     PollerConfig
	log     *slog.Logger
}

func NewPoller(client *Client, catalog Catalog, limiter *ratelimit.Limiter, proc Processor, cfg PollerConfig, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		client:  client,
		catalog: catalog,
		limiter: limiter,
		proc:    proc,
		cfg:     cfg,
		log:     log,
	}
}

// Run scans immediately and then once per interval until the context is
// canceled. Scans never overlap: a scan that outlives the interval simply
// delays the next tick.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		p.scan(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// scan processes all enabled sources sequentially. Failures are confined
// to the source (or the single post) they occur on.
func (p *Poller) scan(ctx context.Context) {
	sources, err := p.catalog.ListVKSources(ctx, true)
	if err != nil {
		p.log.Error("list vk sources", "error", err)
		return
	}
	if len(sources) == 0 {
		p.log.Debug("no enabled vk sources")
		return
	}

	topics, err := p.catalog.Topics(ctx)
	if err != nil {
		p.log.Error("load topics", "error", err)
		return
	}
	adKeywords, err := p.catalog.AdKeywords(ctx)
	if err != nil {
		p.log.Error("load ad keywords", "error", err)
		return
	}
	snap := pipeline.Snapshot{Topics: topics, AdKeywords: adKeywords}

	p.log.Debug("scanning vk sources", "count", len(sources))

	for i, src := range sources {
		if ctx.Err() != nil {
			return
		}

		if err := p.checkGroup(ctx, src, snap); err != nil {
			p.log.Error("check group", "group", src.GroupID, "error", err)
		}

		// Pause between groups only; the last one ends the scan.
		if i == len(sources)-1 {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.cfg.GroupPause):
		}
	}
}

func (p *Poller) checkGroup(ctx context.Context, src store.VKSource, snap pipeline.Snapshot) error {
	ownerID, ok := parseOwnerID(src.GroupID)
	if !ok {
		if err := p.limiter.Acquire(ctx, ratelimit.ProviderVK); err != nil {
			return err
		}
		var err error
		ownerID, err = p.client.ResolveGroupID(ctx, src.GroupID)
		if err != nil {
			return fmt.Errorf("resolve group id: %w", err)
		}
	}

	if err := p.limiter.Acquire(ctx, ratelimit.ProviderVK); err != nil {
		return err
	}
	posts, err := p.client.WallGet(ctx, ownerID, p.cfg.FetchCount)
	if err != nil {
		return fmt.Errorf("fetch wall: %w", err)
	}

	rules := src.Rules()
	for _, post := range posts {
		item := buildItem(post, src.GroupID, ownerID)
		if _, err := p.proc.Process(ctx, item, rules, snap); err != nil {
			p.log.Error("process post",
				"group", src.GroupID, "post", item.ItemID, "error", err)
		}
	}
	return nil
}

func buildItem(post Post, groupID string, ownerID int64) pipeline.Item {
	item := pipeline.Item{
		Kind:       pipeline.KindVK,
		ItemID:     strconv.FormatInt(post.ID, 10),
		Collection: groupID,
		Text:       post.Text,
		SourceLink: fmt.Sprintf("https://vk.com/wall%d_%d", ownerID, post.ID),
	}

	switch {
	case post.SignerID != 0:
		item.AuthorLink = fmt.Sprintf("https://vk.com/id%d", post.SignerID)
	case post.FromID > 0:
		item.AuthorLink = fmt.Sprintf("https://vk.com/id%d", post.FromID)
	}
	return item
}

// parseOwnerID interprets a configured group identifier. Numeric values,
// with or without a leading minus, are community ids and map to negative
// owner ids; anything else is a short name that needs an API lookup.
func parseOwnerID(groupID string) (int64, bool) {
	trimmed := strings.TrimPrefix(groupID, "-")
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || trimmed == "" {
		return 0, false
	}
	return -n, true
}
