package threadrun

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/threadrun-dev/threadrun/threadrun-go/threadrun/pkg/constants"
)

// apiRequest describes one HTTP call against the service. Immutable once
// handed to send/open.
type apiRequest struct {
	method  string
	path    string
	query   url.Values
	body    interface{}
	timeout time.Duration
	stream  bool
}

// send performs a buffered request: the full response body is read, non-2xx
// statuses are translated into *Error, and on success the body is decoded
// into out (when out is non-nil).
func (c *Client) send(ctx context.Context, req apiRequest, out interface{}) error {
	timeout := req.timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return translateTransportError(err, timeout)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return translateTransportError(err, timeout)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return translateHTTPError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return newNetworkError("failed to decode response body", err)
	}
	return nil
}

// open performs a streamed request and hands back the live response together
// with the cancel func owning its deadline. Ownership of the body transfers
// to the caller, which must guarantee Close on every exit path; on error
// nothing is left open.
func (c *Client) open(ctx context.Context, req apiRequest) (*http.Response, context.Context, context.CancelFunc, error) {
	timeout := req.timeout
	if timeout <= 0 {
		timeout = constants.DefaultRunTimeoutSeconds * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	req.stream = true
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		cancel()
		return nil, nil, nil, translateTransportError(err, timeout)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		cancel()
		return nil, nil, nil, translateHTTPError(resp.StatusCode, respBody)
	}

	return resp, ctx, cancel, nil
}

func (c *Client) buildRequest(ctx context.Context, req apiRequest) (*http.Request, error) {
	endpoint := c.baseRESTURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var bodyReader io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, newError(http.StatusBadRequest, "failed to serialize request body", withCause(err))
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, bodyReader)
	if err != nil {
		return nil, newError(http.StatusBadRequest, "failed to create request", withCause(err))
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("User-Agent", userAgent())
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}

	return httpReq, nil
}

// translateTransportError normalizes connection-level failures into the
// uniform error shape: deadline expiry becomes 408/TIMEOUT, everything else
// 500/NETWORK_ERROR.
func translateTransportError(err error, timeout time.Duration) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		timeoutErr := newTimeoutError(timeout.String(), err)
		timeoutErr.Details = map[string]interface{}{"timeout": timeout.String()}
		return timeoutErr
	}
	return newNetworkError("failed to reach threadrun service", err)
}

// translateHTTPError parses a structured error body, falling back to a
// synthesized message from the status line.
func translateHTTPError(status int, body []byte) *Error {
	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		message := firstNonEmpty(parsed.Message, parsed.Error)
		if message != "" {
			return newError(status, message, withCode(parsed.Code), withDetails(parsed.Details))
		}
	}
	return newError(status, fmt.Sprintf("server returned %s", http.StatusText(status)))
}
