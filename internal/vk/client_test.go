package vk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Client{
		token:      "test-token",
		baseURL:    srv.URL + "/",
		httpClient: srv.Client(),
	}
}

func TestWallGet(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wall.get" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("owner_id") != "-123" {
			t.Errorf("owner_id = %q", q.Get("owner_id"))
		}
		if q.Get("count") != "5" {
			t.Errorf("count = %q", q.Get("count"))
		}
		if q.Get("extended") != "1" {
			t.Errorf("extended = %q", q.Get("extended"))
		}
		if q.Get("access_token") != "test-token" {
			t.Errorf("access_token = %q", q.Get("access_token"))
		}
		if q.Get("v") != apiVersion {
			t.Errorf("v = %q", q.Get("v"))
		}

		fmt.Fprint(w, `{"response":{"items":[
			{"id":10,"from_id":-123,"date":1700000000,"text":"первый пост"},
			{"id":11,"from_id":456,"signer_id":789,"date":1700000100,"text":"второй пост"}
		]}}`)
	})

	posts, err := client.WallGet(context.Background(), -123, 5)
	if err != nil {
		t.Fatalf("wall.get: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	if posts[0].ID != 10 || posts[0].Text != "первый пост" {
		t.Errorf("post[0] = %+v", posts[0])
	}
	if posts[1].SignerID != 789 {
		t.Errorf("post[1].SignerID = %d", posts[1].SignerID)
	}
}

func TestResolveGroupID(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/groups.getById" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("group_id"); got != "baraholka_spb" {
			t.Errorf("group_id = %q", got)
		}
		fmt.Fprint(w, `{"response":{"groups":[{"id":123456}]}}`)
	})

	ownerID, err := client.ResolveGroupID(context.Background(), "baraholka_spb")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ownerID != -123456 {
		t.Errorf("owner id = %d, want -123456", ownerID)
	}
}

func TestResolveGroupID_Empty(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"response":{"groups":[]}}`)
	})

	if _, err := client.ResolveGroupID(context.Background(), "ghost"); err == nil {
		t.Error("expected error for unknown group")
	}
}

func TestCall_APIError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"error":{"error_code":15,"error_msg":"Access denied"}}`)
	})

	_, err := client.WallGet(context.Background(), -1, 5)
	if err == nil {
		t.Fatal("expected api error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T", err)
	}
	if apiErr.Code != 15 {
		t.Errorf("code = %d", apiErr.Code)
	}
}

func TestCall_HTTPError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := client.WallGet(context.Background(), -1, 5); err == nil {
		t.Error("expected error on non-200 status")
	}
}
