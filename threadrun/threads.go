package threadrun

import (
	"context"
	"net/http"
	"time"

	"github.com/threadrun-dev/threadrun/threadrun-go/threadrun/pkg/constants"
)

// ThreadService manages conversation threads and message submission.
type ThreadService struct {
	client *Client
}

type createThreadRequest struct {
	EnvironmentID string `json:"environmentId"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// Create opens a new thread in the given environment.
func (s *ThreadService) Create(ctx context.Context, environmentID string) (*Thread, error) {
	var thread Thread
	err := s.client.send(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/threads",
		body:   createThreadRequest{EnvironmentID: environmentID},
	}, &thread)
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// Get fetches a thread by id.
func (s *ThreadService) Get(ctx context.Context, id string) (*Thread, error) {
	var thread Thread
	if err := s.client.send(ctx, apiRequest{method: http.MethodGet, path: "/threads/" + id}, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// List returns all threads visible to the caller.
func (s *ThreadService) List(ctx context.Context) ([]Thread, error) {
	var threads []Thread
	if err := s.client.send(ctx, apiRequest{method: http.MethodGet, path: "/threads"}, &threads); err != nil {
		return nil, err
	}
	return threads, nil
}

// Delete removes a thread.
func (s *ThreadService) Delete(ctx context.Context, id string) error {
	return s.client.send(ctx, apiRequest{method: http.MethodDelete, path: "/threads/" + id}, nil)
}

// StreamMessage submits content to a thread and returns the raw event
// stream for callers that want to pull events directly. The caller owns the
// stream and must Close it.
func (s *ThreadService) StreamMessage(ctx context.Context, threadID, content string, opts *MessageOptions) (*MessageStream, error) {
	timeout := messageTimeout(opts)

	resp, streamCtx, cancel, err := s.client.open(ctx, apiRequest{
		method:  http.MethodPost,
		path:    "/threads/" + threadID + "/messages",
		body:    sendMessageRequest{Content: content},
		timeout: timeout,
	})
	if err != nil {
		return nil, err
	}

	return newMessageStream(streamCtx, cancel, resp.Body, s.client.logger, timeout), nil
}

// SendMessage submits content to a thread and aggregates the resulting
// event stream into a RunResult. An OnEvent handler in opts observes every
// event in arrival order before the next one is requested.
func (s *ThreadService) SendMessage(ctx context.Context, threadID, content string, opts *MessageOptions) (*RunResult, error) {
	stream, err := s.StreamMessage(ctx, threadID, content, opts)
	if err != nil {
		return nil, err
	}

	var onEvent func(StreamEvent) error
	if opts != nil {
		onEvent = opts.OnEvent
	}
	return aggregate(ctx, stream, onEvent)
}

func messageTimeout(opts *MessageOptions) time.Duration {
	if opts != nil && opts.Timeout > 0 {
		return opts.Timeout
	}
	return constants.DefaultRunTimeoutSeconds * time.Second
}
