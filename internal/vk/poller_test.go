package vk

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"postrelay/internal/classify"
	"postrelay/internal/pipeline"
	"postrelay/internal/ratelimit"
	"postrelay/internal/store"
)

type fakeCatalog struct {
	sources []store.VKSource
	topics  classify.Catalog
}

func (c *fakeCatalog) ListVKSources(context.Context, bool) ([]store.VKSource, error) {
	return c.sources, nil
}

func (c *fakeCatalog) Topics(context.Context) (classify.Catalog, error) {
	return c.topics, nil
}

func (c *fakeCatalog) AdKeywords(context.Context) ([]string, error) {
	return nil, nil
}

type recordingProcessor struct {
	items []pipeline.Item
}

func (p *recordingProcessor) Process(_ context.Context, item pipeline.Item, _ classify.Rules, _ pipeline.Snapshot) (pipeline.Outcome, error) {
	p.items = append(p.items, item)
	return pipeline.OutcomeDelivered, nil
}

func TestParseOwnerID(t *testing.T) {
	tests := []struct {
		groupID string
		want    int64
		wantOK  bool
	}{
		{"123", -123, true},
		{"-123", -123, true},
		{"baraholka_spb", 0, false},
		{"", 0, false},
		{"-", 0, false},
		{"12ab", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseOwnerID(tt.groupID)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("parseOwnerID(%q) = (%d, %v), want (%d, %v)",
				tt.groupID, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestBuildItem(t *testing.T) {
	post := Post{ID: 42, FromID: -123, Text: "текст"}
	item := buildItem(post, "mygroup", -123)

	if item.Kind != pipeline.KindVK {
		t.Errorf("kind = %q", item.Kind)
	}
	if item.ItemID != "42" {
		t.Errorf("item id = %q", item.ItemID)
	}
	if item.Collection != "mygroup" {
		t.Errorf("collection = %q", item.Collection)
	}
	if item.SourceLink != "https://vk.com/wall-123_42" {
		t.Errorf("source link = %q", item.SourceLink)
	}
	if item.AuthorLink != "" {
		t.Errorf("group-authored post should have no author link, got %q", item.AuthorLink)
	}

	signed := buildItem(Post{ID: 1, FromID: 55, SignerID: 99}, "g", -1)
	if signed.AuthorLink != "https://vk.com/id99" {
		t.Errorf("signer link = %q", signed.AuthorLink)
	}

	fromUser := buildItem(Post{ID: 2, FromID: 55}, "g", -1)
	if fromUser.AuthorLink != "https://vk.com/id55" {
		t.Errorf("from link = %q", fromUser.AuthorLink)
	}
}

func TestScan_EmitsCandidates(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/groups.getById":
			fmt.Fprint(w, `{"response":{"groups":[{"id":777}]}}`)
		case "/wall.get":
			fmt.Fprint(w, `{"response":{"items":[{"id":1,"text":"Продам стол"},{"id":2,"text":"Куплю стул"}]}}`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	})

	catalog := &fakeCatalog{
		sources: []store.VKSource{
			{Name: "ByName", GroupID: "short_name", TargetTopic: "news", AllPosts: true, Enabled: true},
			{Name: "ByID", GroupID: "-777", TargetTopic: "news", AllPosts: true, Enabled: true},
		},
		topics: classify.Catalog{"news": {ID: "news", ThreadID: 1, Name: "News"}},
	}
	proc := &recordingProcessor{}

	poller := NewPoller(client, catalog, ratelimit.New(), proc, PollerConfig{
		Interval:   time.Minute,
		GroupPause: time.Millisecond,
		FetchCount: 5,
	}, nil)

	poller.scan(context.Background())

	// Two groups, two posts each.
	if len(proc.items) != 4 {
		t.Fatalf("got %d items, want 4", len(proc.items))
	}
	if proc.items[0].Collection != "short_name" {
		t.Errorf("collection = %q, want configured identifier", proc.items[0].Collection)
	}
	if proc.items[0].SourceLink != "https://vk.com/wall-777_1" {
		t.Errorf("source link = %q", proc.items[0].SourceLink)
	}
	if proc.items[2].Collection != "-777" {
		t.Errorf("collection = %q", proc.items[2].Collection)
	}
}

func TestScan_BadGroupDoesNotAbort(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		owner := r.URL.Query().Get("owner_id")
		if owner == "-666" {
			fmt.Fprint(w, `{"error":{"error_code":15,"error_msg":"Access denied"}}`)
			return
		}
		fmt.Fprint(w, `{"response":{"items":[{"id":9,"text":"ok"}]}}`)
	})

	catalog := &fakeCatalog{
		sources: []store.VKSource{
			{Name: "Broken", GroupID: "666", TargetTopic: "news", AllPosts: true, Enabled: true},
			{Name: "Fine", GroupID: "777", TargetTopic: "news", AllPosts: true, Enabled: true},
		},
		topics: classify.Catalog{"news": {ID: "news", ThreadID: 1, Name: "News"}},
	}
	proc := &recordingProcessor{}

	poller := NewPoller(client, catalog, ratelimit.New(), proc, PollerConfig{
		Interval:   time.Minute,
		GroupPause: time.Millisecond,
		FetchCount: 5,
	}, nil)

	poller.scan(context.Background())

	if len(proc.items) != 1 {
		t.Fatalf("got %d items, want 1 from the healthy group", len(proc.items))
	}
	if proc.items[0].Collection != "777" {
		t.Errorf("collection = %q", proc.items[0].Collection)
	}
}

func TestScan_NoTrailingPause(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"response":{"items":[]}}`)
	})

	catalog := &fakeCatalog{
		sources: []store.VKSource{
			{Name: "Only", GroupID: "1", TargetTopic: "news", AllPosts: true, Enabled: true},
		},
		topics: classify.Catalog{"news": {ID: "news", ThreadID: 1, Name: "News"}},
	}

	poller := NewPoller(client, catalog, ratelimit.New(), &recordingProcessor{}, PollerConfig{
		Interval:   time.Minute,
		GroupPause: 2 * time.Second,
		FetchCount: 5,
	}, nil)

	start := time.Now()
	poller.scan(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("scan of a single group took %s, must not pause after the last group", elapsed)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"response":{"items":[]}}`)
	})

	poller := NewPoller(client, &fakeCatalog{}, ratelimit.New(), &recordingProcessor{}, PollerConfig{
		Interval:   10 * time.Millisecond,
		GroupPause: time.Millisecond,
		FetchCount: 5,
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := poller.Run(ctx); err != context.DeadlineExceeded {
		t.Errorf("run returned %v, want context deadline", err)
	}
}
