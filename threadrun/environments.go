package threadrun

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// EnvironmentService manages execution environments.
type EnvironmentService struct {
	client *Client
}

// List returns all environments visible to the caller.
func (s *EnvironmentService) List(ctx context.Context) ([]Environment, error) {
	var envs []Environment
	if err := s.client.send(ctx, apiRequest{method: http.MethodGet, path: "/environments"}, &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

// Create provisions a new environment.
func (s *EnvironmentService) Create(ctx context.Context, req CreateEnvironmentRequest) (*Environment, error) {
	var env Environment
	err := s.client.send(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/environments",
		body:   req,
	}, &env)
	if err != nil {
		return nil, err
	}
	return &env, nil
}

// Get fetches an environment by id.
func (s *EnvironmentService) Get(ctx context.Context, id string) (*Environment, error) {
	var env Environment
	if err := s.client.send(ctx, apiRequest{method: http.MethodGet, path: "/environments/" + id}, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Delete tears down an environment.
func (s *EnvironmentService) Delete(ctx context.Context, id string) error {
	return s.client.send(ctx, apiRequest{method: http.MethodDelete, path: "/environments/" + id}, nil)
}

// Watch opens a live status feed for an environment over WebSocket. The
// returned watcher must be closed by the caller.
func (s *EnvironmentService) Watch(ctx context.Context, id string) (*EnvironmentWatcher, error) {
	endpoint := s.client.baseSocketURL + "/environments/" + id + "/watch"

	dialer := websocket.Dialer{
		HandshakeTimeout: 30 * time.Second,
	}
	headers := http.Header{
		"Authorization": []string{"Bearer " + s.client.apiKey},
		"User-Agent":    []string{userAgent()},
	}

	conn, _, err := dialer.DialContext(ctx, endpoint, headers)
	if err != nil {
		return nil, newNetworkError("failed to open environment watch", err)
	}

	return &EnvironmentWatcher{conn: conn}, nil
}

// EnvironmentWatcher is a blocking iterator over environment status updates.
type EnvironmentWatcher struct {
	conn   *websocket.Conn
	closed bool
}

// Next blocks until the next status update. The boolean reports whether the
// feed is still live; a normal server-side close ends it cleanly.
func (w *EnvironmentWatcher) Next(ctx context.Context) (*EnvironmentStatus, bool, error) {
	if w.closed {
		return nil, false, nil
	}

	select {
	case <-ctx.Done():
		w.Close()
		return nil, false, ctx.Err()
	default:
	}

	_, msg, err := w.conn.ReadMessage()
	if err != nil {
		w.Close()
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, false, nil
		}
		return nil, false, newNetworkError("failed to read watch message", err)
	}

	var status EnvironmentStatus
	if err := json.Unmarshal(msg, &status); err != nil {
		w.Close()
		return nil, false, newNetworkError("invalid watch message", err)
	}

	return &status, true, nil
}

// Close terminates the underlying WebSocket connection.
func (w *EnvironmentWatcher) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.conn.Close()
}
