package threadrun

import (
	"context"
	"net/http"
)

// AgentService manages agent definitions.
type AgentService struct {
	client *Client
}

func (s *AgentService) List(ctx context.Context) ([]Agent, error) {
	var agents []Agent
	if err := s.client.send(ctx, apiRequest{method: http.MethodGet, path: "/agents"}, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

func (s *AgentService) Get(ctx context.Context, id string) (*Agent, error) {
	var agent Agent
	if err := s.client.send(ctx, apiRequest{method: http.MethodGet, path: "/agents/" + id}, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (s *AgentService) Create(ctx context.Context, req CreateAgentRequest) (*Agent, error) {
	var agent Agent
	err := s.client.send(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/agents",
		body:   req,
	}, &agent)
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (s *AgentService) Delete(ctx context.Context, id string) error {
	return s.client.send(ctx, apiRequest{method: http.MethodDelete, path: "/agents/" + id}, nil)
}
