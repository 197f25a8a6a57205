package threadrun

import (
	"context"
	"net/http"
)

// GitService drives git operations inside an environment workspace.
type GitService struct {
	client *Client
}

func (s *GitService) Clone(ctx context.Context, environmentID string, req CloneRequest) error {
	return s.client.send(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/environments/" + environmentID + "/git/clone",
		body:   req,
	}, nil)
}

func (s *GitService) Pull(ctx context.Context, environmentID string) error {
	return s.client.send(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/environments/" + environmentID + "/git/pull",
	}, nil)
}

func (s *GitService) Status(ctx context.Context, environmentID string) (*GitStatus, error) {
	var status GitStatus
	err := s.client.send(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/environments/" + environmentID + "/git/status",
	}, &status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}
