// Package client talks to a running scorekeeper server over its REST API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"guandan-scorekeeper/internal/constants"
	"guandan-scorekeeper/internal/domain"

	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"
)

const fetchManyLimit = 4

type Client struct {
	baseURL string
	client  *fasthttp.Client
}

type GameResponse struct {
	OK    bool             `json:"ok"`
	ID    string           `json:"id"`
	State domain.GameState `json:"state"`
	// Created is true when the server answered 201.
	Created bool `json:"-"`
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s: %s", e.Status, e.Code, e.Message)
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         constants.ClientTimeout,
			WriteTimeout:        constants.ClientTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
	}
}

func (c *Client) Fetch(ctx context.Context, id string) (*GameResponse, error) {
	u := fmt.Sprintf("%s/api/games/%s", c.baseURL, url.PathEscape(id))
	return doRequest[GameResponse](ctx, c, fasthttp.MethodGet, u, nil)
}

// Save posts state for id. An empty or unknown id makes the server create a
// new game.
func (c *Client) Save(ctx context.Context, id string, state any) (*GameResponse, error) {
	u := c.baseURL + "/api/games"
	if id != "" {
		u += "?id=" + url.QueryEscape(id)
	}
	body, err := json.Marshal(map[string]any{"state": state})
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return doRequest[GameResponse](ctx, c, fasthttp.MethodPost, u, body)
}

// FetchMany fetches ids concurrently and returns the results in ids order.
// The first failure cancels the remaining requests.
func (c *Client) FetchMany(ctx context.Context, ids []string) ([]*GameResponse, error) {
	results := make([]*GameResponse, len(ids))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(fetchManyLimit)

	for i, id := range ids {
		g.Go(func() error {
			res, err := c.Fetch(gCtx, id)
			if err != nil {
				return fmt.Errorf("failed to fetch game %s: %w", id, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func doRequest[T any](ctx context.Context, client *Client, method, uri string, body []byte) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.DoTimeout(req, resp, constants.ClientTimeout); err != nil {
			return nil, err
		}
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		apiErr := &APIError{Status: status}
		if err := json.Unmarshal(resp.Body(), apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = "HTTP_ERROR"
			apiErr.Message = strings.TrimSpace(string(resp.Body()))
		}
		return nil, apiErr
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if gr, ok := any(&result).(*GameResponse); ok {
		gr.Created = status == fasthttp.StatusCreated
		gr.State.ID = gr.ID
	}
	return &result, nil
}
