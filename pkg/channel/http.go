package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kart-io/doorbell/pkg/errors"
)

// maxErrorBody bounds how much of a rejected response body is kept for logs.
const maxErrorBody = 512

// UserAgent is sent with every HTTP request.
const UserAgent = "doorbell/1.0"

// StatusMatcher decides whether a response status means delivered.
type StatusMatcher func(status int) bool

// Status accepts exactly code.
func Status(code int) StatusMatcher {
	return func(status int) bool { return status == code }
}

// Any2xx accepts every 2xx status.
func Any2xx(status int) bool {
	return status >= 200 && status < 300
}

// StatusOr returns Status(override) when override is set, otherwise def.
func StatusOr(override int, def StatusMatcher) StatusMatcher {
	if override > 0 {
		return Status(override)
	}
	return def
}

// Request is one HTTP call made by a channel.
type Request struct {
	Method      string
	URL         string
	Body        io.Reader
	ContentType string
	Header      http.Header
	Username    string
	Password    string
}

// NewJSONRequest encodes payload as the request body.
func NewJSONRequest(channel, method, url string, payload interface{}) (*Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.NewEncodingError(channel, err)
	}
	return &Request{
		Method:      method,
		URL:         url,
		Body:        bytes.NewReader(data),
		ContentType: "application/json",
	}, nil
}

// NewFormRequest encodes form as an application/x-www-form-urlencoded body.
func NewFormRequest(method, url, form string) *Request {
	return &Request{
		Method:      method,
		URL:         url,
		Body:        strings.NewReader(form),
		ContentType: "application/x-www-form-urlencoded",
	}
}

// Do executes r and checks the response status. Transport failures map to
// DELIVERY_TRANSPORT_FAILURE and rejected statuses to DELIVERY_BAD_STATUS.
func Do(ctx context.Context, client HTTPDoer, channel string, r *Request, accept StatusMatcher) error {
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, r.Body)
	if err != nil {
		return errors.NewEncodingError(channel, stripURL(err))
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	if r.Username != "" || r.Password != "" {
		req.SetBasicAuth(r.Username, r.Password)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return errors.NewTransportError(channel, stripURL(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if accept(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return errors.NewBadStatusError(channel, resp.StatusCode, strings.TrimSpace(string(body)))
}

// stripURL drops the request URL from client errors; some services carry
// credentials in the path.
func stripURL(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
