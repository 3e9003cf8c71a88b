// Package client is a Go client for the biolink API. Besides the raw Client it
// provides stores that keep the last fetched state of each resource, the way
// the web dashboard does.
package client

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/zfogg/biolink/internal/telemetry"
)

// SessionCookie is the cookie the server keeps the session in
const SessionCookie = "biolink-session"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Options configures a Client
type Options struct {
	BaseURL   string
	Session   string // value of the session cookie, empty for anonymous use
	Timeout   time.Duration
	UserAgent string
	Logger    *log.Logger
}

// Client talks to the API over HTTP
type Client struct {
	http   *resty.Client
	logger *log.Logger
}

// New creates a client. Requests are traced and carry an X-Request-ID.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "biolink-client/1.0"
	}

	hc := telemetry.NewInstrumentedHTTPClient(telemetry.HTTPClientConfig{
		ServiceName: "biolink-api",
		Timeout:     opts.Timeout,
	})

	r := resty.NewWithClient(hc).
		SetBaseURL(opts.BaseURL).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	if opts.Session != "" {
		r.SetCookie(&http.Cookie{Name: SessionCookie, Value: opts.Session})
	}

	c := &Client{http: r, logger: opts.Logger}

	r.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		if req.Header.Get("X-Request-ID") == "" {
			req.SetHeader("X-Request-ID", uuid.NewString())
		}
		c.debug("HTTP request", "method", req.Method, "url", req.URL)
		return nil
	})
	r.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		c.debug("HTTP response", "status", resp.StatusCode(), "duration", resp.Time())
		return nil
	})

	return c
}

func (c *Client) debug(msg string, kv ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, kv...)
	}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx)
}

// do sends req and decodes a successful JSON body into out (which may be nil)
func (c *Client) do(req *resty.Request, method, path string, out interface{}) (*resty.Response, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return resp, parseError(resp)
	}
	if out != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return resp, err
		}
	}
	return resp, nil
}
