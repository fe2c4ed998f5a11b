// Package funifiersvc talks to the Funifier gamification backend: token auth, players and
// the generic document database.
package funifiersvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/edupilot/core"
)

type (
	// Client is a thin JSON client over the Funifier REST API.
	// Every request except the token exchange is sent with the configured Basic credentials.
	Client struct {
		baseURL   string
		apiKey    string
		basicAuth string
		http      *rest.Client
		logger    core.Logger
	}

	// StatusError is returned for any non 2xx answer.
	StatusError struct {
		Method     rest.Method
		Path       string
		StatusCode int
		Body       string
	}
)

func (e *StatusError) Error() string {
	return fmt.Sprintf("funifier %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, core.Truncate(e.Body, 200))
}

// IsStatus reports whether err is a StatusError with one of the given codes.
func IsStatus(err error, codes ...int) bool {
	var sErr *StatusError
	if !errors.As(err, &sErr) {
		return false
	}
	for _, code := range codes {
		if sErr.StatusCode == code {
			return true
		}
	}
	return false
}

func NewClient(conf *core.Config, logger core.Logger) *Client {
	basic := conf.Funifier.BasicAuth
	if basic != "" && !strings.HasPrefix(basic, "Basic ") {
		basic = "Basic " + basic
	}
	return &Client{
		baseURL:   conf.Funifier.BaseURL,
		apiKey:    conf.Funifier.APIKey,
		basicAuth: basic,
		http:      &rest.Client{HTTPClient: &http.Client{Timeout: conf.Funifier.Timeout}},
		logger:    logger,
	}
}

type request struct {
	method rest.Method
	path   string
	query  map[string]string
	body   interface{}
}

// do sends req and decodes a JSON answer into out (when not nil and the body is not empty).
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	r := rest.Request{
		Method:      req.method,
		BaseURL:     c.baseURL + req.path,
		Headers:     map[string]string{"Content-Type": "application/json", "Accept": "application/json"},
		QueryParams: req.query,
	}
	if c.basicAuth != "" {
		r.Headers["Authorization"] = c.basicAuth
	}
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return errors.Wrapf(err, "encoding %s %s body", req.method, req.path)
		}
		r.Body = b
	}

	res, err := c.http.SendWithContext(ctx, r)
	if err != nil {
		return errors.Wrapf(err, "funifier %s %s", req.method, req.path)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &StatusError{Method: req.method, Path: req.path, StatusCode: res.StatusCode, Body: res.Body}
	}

	if out == nil || isEmptyBody(res.Body) {
		return nil
	}
	if err = json.Unmarshal([]byte(res.Body), out); err != nil {
		return errors.Wrapf(err, "decoding funifier %s %s answer", req.method, req.path)
	}
	return nil
}

func isEmptyBody(body string) bool {
	body = strings.TrimSpace(body)
	return body == "" || body == "null"
}
