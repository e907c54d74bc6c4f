// Package remote reads the entity collections from the back-office HTTP API.
package remote

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/singleflight"

	"portfolio-engine/internal/model"
)

const defaultTimeout = 5 * time.Second

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Path   string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.Path, e.Status)
}

// Client implements source.Source over HTTP. Identical requests issued
// concurrently share a single round trip.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
	group   singleflight.Group
}

type Option func(*Client)

// WithDial replaces the dialer, e.g. with an in-memory listener in tests.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                "portfolio-engine",
			MaxConnsPerHost:     64,
			MaxIdleConnDuration: 90 * time.Second,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListClients(ctx context.Context) ([]model.Client, error) {
	var wire []apiClient
	if err := c.get(ctx, "/clienti", &wire); err != nil {
		return nil, err
	}
	out := make([]model.Client, len(wire))
	for i, w := range wire {
		out[i] = w.toModel()
	}
	return out, nil
}

func (c *Client) ListPolicies(ctx context.Context) ([]model.Policy, error) {
	var wire []apiPolicy
	if err := c.get(ctx, "/polizze", &wire); err != nil {
		return nil, err
	}
	out := make([]model.Policy, len(wire))
	for i, w := range wire {
		out[i] = w.toModel()
	}
	return out, nil
}

func (c *Client) ListClaims(ctx context.Context) ([]model.Claim, error) {
	var wire []apiClaim
	if err := c.get(ctx, "/sinistri", &wire); err != nil {
		return nil, err
	}
	out := make([]model.Claim, len(wire))
	for i, w := range wire {
		out[i] = w.toModel()
	}
	return out, nil
}

func (c *Client) ListComplaints(ctx context.Context) ([]model.Complaint, error) {
	var wire []apiComplaint
	if err := c.get(ctx, "/reclami_info", &wire); err != nil {
		return nil, err
	}
	out := make([]model.Complaint, len(wire))
	for i, w := range wire {
		out[i] = w.toModel()
	}
	return out, nil
}

func (c *Client) ListNotes(ctx context.Context, clientCode int) ([]model.Note, error) {
	var wire []apiNote
	if err := c.get(ctx, "/clienti/"+strconv.Itoa(clientCode)+"/note", &wire); err != nil {
		return nil, err
	}
	out := make([]model.Note, len(wire))
	for i, w := range wire {
		out[i] = w.toModel()
	}
	return out, nil
}

// get waits for path on behalf of ctx. Concurrent callers share one request,
// which runs detached from any single caller and is bounded by the client
// timeout, so one caller giving up does not fail the others.
func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ch := c.group.DoChan(path, func() (any, error) {
		return c.fetch(path)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return res.Err
	}
	if err := json.Unmarshal(res.Val.([]byte), out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) fetch(path string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	if err := c.http.DoTimeout(req, resp, c.timeout); err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if status := resp.StatusCode(); status < 200 || status > 299 {
		return nil, &StatusError{Path: path, Status: status}
	}

	// resp is recycled on return, so the body must be copied out.
	return append([]byte(nil), resp.Body()...), nil
}
