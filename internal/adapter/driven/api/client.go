// Package api implements the PostWriter port against the posts REST service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ericfisherdev/postimport/internal/domain/port/driven"
)

// BaseURL is the fixed address of the local posts service.
const BaseURL = "http://localhost:5224"

// Compile-time interface satisfaction check.
var _ driven.PostWriter = (*Client)(nil)

// Client implements the driven.PostWriter port with plain JSON over HTTP.
type Client struct {
	http     *http.Client
	postsURL string
}

// createPostRequest is the JSON body sent to POST /posts.
type createPostRequest struct {
	Content string `json:"content"`
}

// NewClient creates a Client for BaseURL using http.DefaultClient, so no
// request timeout is applied beyond context cancellation.
func NewClient() *Client {
	return &Client{
		http:     http.DefaultClient,
		postsURL: BaseURL + "/posts",
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/posts"

	return &Client{
		http:     httpClient,
		postsURL: u.String(),
	}, nil
}

// CreatePost sends content to POST /posts authorized with token. Only 201
// Created counts as success; any other status yields a
// *driven.UnexpectedStatusError carrying the response body.
func (c *Client) CreatePost(ctx context.Context, token, content string) error {
	bodyBytes, err := json.Marshal(createPostRequest{Content: content})
	if err != nil {
		return fmt.Errorf("marshaling post: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.postsURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating post request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn("api: failed to read response body", "status", resp.StatusCode, "error", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return &driven.UnexpectedStatusError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	slog.Debug("api: post created", "status", resp.StatusCode, "bytes", len(bodyBytes))
	return nil
}
