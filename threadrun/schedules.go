package threadrun

import (
	"context"
	"fmt"
	"net/http"

	"github.com/robfig/cron/v3"
)

// ScheduleService manages cron-driven task schedules. Cron expressions are
// validated locally before any request goes out, so a typo fails fast
// instead of round-tripping to the service.
type ScheduleService struct {
	client *Client
}

func (s *ScheduleService) List(ctx context.Context) ([]Schedule, error) {
	var schedules []Schedule
	if err := s.client.send(ctx, apiRequest{method: http.MethodGet, path: "/schedules"}, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleRequest) (*Schedule, error) {
	if err := validateCron(req.Cron); err != nil {
		return nil, err
	}

	var schedule Schedule
	err := s.client.send(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/schedules",
		body:   req,
	}, &schedule)
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (s *ScheduleService) Get(ctx context.Context, id string) (*Schedule, error) {
	var schedule Schedule
	if err := s.client.send(ctx, apiRequest{method: http.MethodGet, path: "/schedules/" + id}, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (s *ScheduleService) Update(ctx context.Context, id string, req CreateScheduleRequest) (*Schedule, error) {
	if err := validateCron(req.Cron); err != nil {
		return nil, err
	}

	var schedule Schedule
	err := s.client.send(ctx, apiRequest{
		method: http.MethodPut,
		path:   "/schedules/" + id,
		body:   req,
	}, &schedule)
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	return s.client.send(ctx, apiRequest{method: http.MethodDelete, path: "/schedules/" + id}, nil)
}

func validateCron(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return newError(
			http.StatusBadRequest,
			fmt.Sprintf("invalid cron expression %q", expr),
			withCause(err),
		)
	}
	return nil
}
