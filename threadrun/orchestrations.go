package threadrun

import (
	"context"
	"net/http"
)

// TriggerService manages event-driven task triggers.
type TriggerService struct {
	client *Client
}

func (s *TriggerService) List(ctx context.Context) ([]Trigger, error) {
	var triggers []Trigger
	if err := s.client.send(ctx, apiRequest{method: http.MethodGet, path: "/triggers"}, &triggers); err != nil {
		return nil, err
	}
	return triggers, nil
}

func (s *TriggerService) Create(ctx context.Context, trigger Trigger) (*Trigger, error) {
	var created Trigger
	err := s.client.send(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/triggers",
		body:   trigger,
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *TriggerService) Delete(ctx context.Context, id string) error {
	return s.client.send(ctx, apiRequest{method: http.MethodDelete, path: "/triggers/" + id}, nil)
}

// OrchestrationService manages multi-agent workflows.
type OrchestrationService struct {
	client *Client
}

func (s *OrchestrationService) List(ctx context.Context) ([]Orchestration, error) {
	var items []Orchestration
	if err := s.client.send(ctx, apiRequest{method: http.MethodGet, path: "/orchestrations"}, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *OrchestrationService) Create(ctx context.Context, name string) (*Orchestration, error) {
	var created Orchestration
	err := s.client.send(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/orchestrations",
		body:   map[string]string{"name": name},
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *OrchestrationService) Get(ctx context.Context, id string) (*Orchestration, error) {
	var item Orchestration
	if err := s.client.send(ctx, apiRequest{method: http.MethodGet, path: "/orchestrations/" + id}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *OrchestrationService) Start(ctx context.Context, id string) error {
	return s.client.send(ctx, apiRequest{method: http.MethodPost, path: "/orchestrations/" + id + "/start"}, nil)
}

func (s *OrchestrationService) Stop(ctx context.Context, id string) error {
	return s.client.send(ctx, apiRequest{method: http.MethodPost, path: "/orchestrations/" + id + "/stop"}, nil)
}

// BillingService reads account usage and balance.
type BillingService struct {
	client *Client
}

func (s *BillingService) Usage(ctx context.Context) (*UsageReport, error) {
	var report UsageReport
	if err := s.client.send(ctx, apiRequest{method: http.MethodGet, path: "/billing/usage"}, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *BillingService) Credits(ctx context.Context) (*Credits, error) {
	var credits Credits
	if err := s.client.send(ctx, apiRequest{method: http.MethodGet, path: "/billing/credits"}, &credits); err != nil {
		return nil, err
	}
	return &credits, nil
}
