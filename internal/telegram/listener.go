package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"postrelay/internal/classify"
	"postrelay/internal/pipeline"
	"postrelay/internal/store"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Catalog is the read side of the source configuration the listener needs.
type Catalog interface {
	ListTelegramSources(ctx context.Context, enabledOnly bool) ([]store.TelegramSource, error)
	Topics(ctx context.Context) (classify.Catalog, error)
	AdKeywords(ctx context.Context) ([]string, error)
}

// Processor runs one candidate item through the pipeline.
type Processor interface {
	Process(ctx context.Context, item pipeline.Item, rules classify.Rules, snap pipeline.Snapshot) (pipeline.Outcome, error)
}

// ListenerConfig tunes the long-poll loop.
type ListenerConfig struct {
	PollTimeoutSec int
}

// Listener subscribes to new messages across watched chats and feeds
// matching ones into the pipeline. Unlike the VK lane it is push-driven:
// one long-poll connection, one unit of work per inbound message.
type Listener struct {
	client  *Client
	catalog Catalog
	proc    Processor
	cfg     ListenerConfig
	log     *slog.Logger

	mu      sync.RWMutex
	sources []store.TelegramSource
}

func NewListener(client *Client, catalog Catalog, proc Processor, cfg ListenerConfig, log *slog.Logger) *Listener {
	if log == nil {
		log = slog.Default()
	}
	return &Listener{
		client:  client,
		catalog: catalog,
		proc:    proc,
		cfg:     cfg,
		log:     log,
	}
}

// Reload re-reads the source list from the catalog. Called at startup and
// on an explicit trigger; the stream itself keeps running.
func (l *Listener) Reload(ctx context.Context) error {
	sources, err := l.catalog.ListTelegramSources(ctx, true)
	if err != nil {
		return fmt.Errorf("list telegram sources: %w", err)
	}

	l.mu.Lock()
	l.sources = sources
	l.mu.Unlock()

	l.log.Info("telegram sources loaded", "count", len(sources))
	return nil
}

// Run long-polls for updates until the context is canceled. Connection
// failures reconnect with capped exponential backoff; messages arriving
// during an outage are lost, since the Bot API keeps no replay cursor
// beyond its short update queue.
func (l *Listener) Run(ctx context.Context) error {
	if err := l.Reload(ctx); err != nil {
		return err
	}

	backoff := initialBackoff
	var offset int64

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		updates, err := l.client.GetUpdates(ctx, offset, l.cfg.PollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.log.Warn("get updates", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = initialBackoff

		var wg sync.WaitGroup
		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			msg := update.Message
			if msg == nil {
				continue
			}

			wg.Add(1)
			go func(msg *Message) {
				defer wg.Done()
				l.handle(ctx, msg)
			}(msg)
		}
		wg.Wait()
	}
}

// handle processes a single inbound message. Failures stay confined to it.
func (l *Listener) handle(ctx context.Context, msg *Message) {
	l.mu.RLock()
	sources := l.sources
	l.mu.RUnlock()

	src, ok := matchSource(sources, msg.Chat.ID, msg.MessageThreadID)
	if !ok {
		return
	}

	topics, err := l.catalog.Topics(ctx)
	if err != nil {
		l.log.Error("load topics", "error", err)
		return
	}
	adKeywords, err := l.catalog.AdKeywords(ctx)
	if err != nil {
		l.log.Error("load ad keywords", "error", err)
		return
	}

	item := buildItem(msg, src)
	snap := pipeline.Snapshot{Topics: topics, AdKeywords: adKeywords}
	if _, err := l.proc.Process(ctx, item, src.Rules(), snap); err != nil {
		l.log.Error("process message",
			"chat", msg.Chat.ID, "message", msg.MessageID, "error", err)
	}
}

// matchSource finds the configured source for a chat/thread pair. A source
// pinned to a thread requires an exact thread match; an unpinned source
// matches any thread in its chat.
func matchSource(sources []store.TelegramSource, chatID, threadID int64) (store.TelegramSource, bool) {
	for _, src := range sources {
		if src.ChatID != chatID {
			continue
		}
		if src.ThreadID != 0 {
			if src.ThreadID == threadID {
				return src, true
			}
			continue
		}
		return src, true
	}
	return store.TelegramSource{}, false
}

func buildItem(msg *Message, src store.TelegramSource) pipeline.Item {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	item := pipeline.Item{
		Kind:       pipeline.KindTelegram,
		ItemID:     strconv.FormatInt(msg.MessageID, 10),
		Collection: strconv.FormatInt(msg.Chat.ID, 10),
		Text:       text,
		SourceLink: messageLink(msg),
	}

	if src.ShowAuthor && msg.From != nil {
		if msg.From.Username != "" {
			item.AuthorLink = "https://t.me/" + msg.From.Username
		} else {
			item.AuthorLink = fmt.Sprintf("tg://user?id=%d", msg.From.ID)
		}
	}
	return item
}

func messageLink(msg *Message) string {
	var base string
	if msg.Chat.Username != "" {
		base = "https://t.me/" + msg.Chat.Username
	} else {
		// Private supergroups link through t.me/c/ with the -100 prefix cut.
		id := strings.TrimPrefix(strconv.FormatInt(msg.Chat.ID, 10), "-100")
		base = "https://t.me/c/" + id
	}

	link := fmt.Sprintf("%s/%d", base, msg.MessageID)
	if msg.MessageThreadID != 0 {
		link += fmt.Sprintf("?thread=%d", msg.MessageThreadID)
	}
	return link
}
