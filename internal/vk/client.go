// Package vk fetches wall posts from VK communities.
package vk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	apiBase    = "https://api.vk.com/method/"
	apiVersion = "5.131"
)

// APIError is the error envelope the VK API returns inside a 200 response.
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vk api error %d: %s", e.Code, e.Message)
}

// Post is one wall post.
type Post struct {
	ID       int64  `json:"id"`
	FromID   int64  `json:"from_id"`
	SignerID int64  `json:"signer_id"`
	Date     int64  `json:"date"`
	Text     string `json:"text"`
}

// Client calls the VK API with a community token.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: apiBase,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ResolveGroupID looks up a community by short name and returns its signed
// owner id (communities are negative owner ids).
func (c *Client) ResolveGroupID(ctx context.Context, screenName string) (int64, error) {
	params := url.Values{}
	params.Set("group_id", screenName)

	var resp struct {
		Groups []struct {
			ID int64 `json:"id"`
		} `json:"groups"`
	}
	if err := c.call(ctx, "groups.getById", params, &resp); err != nil {
		return 0, err
	}
	if len(resp.Groups) == 0 {
		return 0, fmt.Errorf("group %q not found", screenName)
	}
	return -resp.Groups[0].ID, nil
}

// WallGet returns the most recent count posts on the given wall, with
// author metadata extended.
func (c *Client) WallGet(ctx context.Context, ownerID int64, count int) ([]Post, error) {
	params := url.Values{}
	params.Set("owner_id", fmt.Sprint(ownerID))
	params.Set("count", fmt.Sprint(count))
	params.Set("extended", "1")

	var resp struct {
		Items []Post `json:"items"`
	}
	if err := c.call(ctx, "wall.get", params, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	params.Set("access_token", c.token)
	params.Set("v", apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+method+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", method, resp.StatusCode)
	}

	var envelope struct {
		Error    *APIError       `json:"error"`
		Response json.RawMessage `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Response, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", method, err)
	}
	return nil
}
