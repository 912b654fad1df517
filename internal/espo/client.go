// Package espo is the HTTP client for the CRM/ERP REST API.
package espo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ariefcatur/go-warehouse-ops/internal/apperr"
	"github.com/ariefcatur/go-warehouse-ops/internal/logx"
	"go.uber.org/zap"
)

// API is the subset of the client the domain services depend on.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// List is the envelope of every list endpoint.
type List[T any] struct {
	Total int `json:"total"`
	List  []T `json:"list"`
}

type Client struct {
	baseURL string
	http    *http.Client
	creds   CredentialSource
	log     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, creds CredentialSource, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		creds:   creds,
		log:     logx.OrNop(log).Named("espo"),
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, out)
}

// VerifyCredentials calls /App/user with explicit credentials, bypassing the source.
func (c *Client) VerifyCredentials(ctx context.Context, creds Credentials, out any) error {
	if creds.empty() {
		return &apperr.TransportError{Method: http.MethodGet, Path: "/App/user", Err: apperr.ErrUnauthenticated}
	}
	return c.send(ctx, creds, http.MethodGet, "/App/user", nil, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		return &apperr.TransportError{Method: method, Path: path, Err: err}
	}
	return c.send(ctx, creds, method, path, query, body, out)
}

func (c *Client) send(ctx context.Context, creds Credentials, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return &apperr.TransportError{Method: method, Path: path, Err: err}
	}
	enc := creds.encoded()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+enc)
	req.Header.Set("Espo-Authorization", enc)

	log := logx.From(ctx, c.log).With(zap.String("method", method), zap.String("path", path))
	log.Debug("request issued", zap.String("query", query.Encode()))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err))
		return &apperr.TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apperr.TransportError{Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}
	log.Debug("response received", zap.Int("status", resp.StatusCode), zap.Duration("latency", time.Since(start)))

	if resp.StatusCode >= 400 {
		te := &apperr.TransportError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		if te.Unauthenticated() {
			te.Message = "access denied, check credentials"
		}
		log.Warn("request rejected", zap.Int("status", resp.StatusCode), zap.String("body", te.Message))
		return te
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &apperr.TransportError{Method: method, Path: path, StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}

// FetchAll pages through a list endpoint until offset >= total.
//
// total is taken from the first page and held for the rest of the walk. Records
// created while paging can therefore be missed or seen twice; the CRM offers no
// cursor to avoid that.
func FetchAll[T any](ctx context.Context, api API, path string, params url.Values, pageSize int, log *zap.Logger) ([]T, error) {
	if pageSize <= 0 {
		return nil, errors.New("fetch all: page size must be positive")
	}
	log = logx.From(ctx, log)

	var (
		all    []T
		offset int
		total  = -1
	)
	for total < 0 || offset < total {
		q := cloneValues(params)
		q.Set("maxSize", fmt.Sprint(pageSize))
		q.Set("offset", fmt.Sprint(offset))

		var page List[T]
		if err := api.Get(ctx, path, q, &page); err != nil {
			return nil, err
		}
		if total < 0 {
			total = page.Total
		}
		all = append(all, page.List...)
		log.Debug("page fetched", zap.String("path", path), zap.Int("offset", offset), zap.Int("fetched", len(all)), zap.Int("total", total))
		offset += pageSize
	}
	return all, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v)+2)
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
