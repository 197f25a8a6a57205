package threadrun

import (
	"context"

	"github.com/threadrun-dev/threadrun/threadrun-go/threadrun/pkg/constants"
)

// Run submits a task with zero prior setup: it resolves (or creates) a
// default environment, opens a thread unless one is supplied, streams the
// run, and returns the aggregated outcome together with the thread id for
// follow-up calls.
//
// Errors from the underlying layers propagate unchanged; there is no retry.
func (c *Client) Run(ctx context.Context, task string, opts *RunOptions) (*RunOutput, error) {
	if opts == nil {
		opts = &RunOptions{}
	}

	threadID := opts.ThreadID
	if threadID == "" {
		envID := opts.EnvironmentID
		if envID == "" {
			resolved, err := c.resolveDefaultEnvironment(ctx)
			if err != nil {
				return nil, err
			}
			envID = resolved
		}

		thread, err := c.Threads.Create(ctx, envID)
		if err != nil {
			return nil, err
		}
		threadID = thread.ID
	}

	result, err := c.Threads.SendMessage(ctx, threadID, task, &MessageOptions{
		Timeout: opts.Timeout,
		OnEvent: opts.OnEvent,
	})
	if err != nil {
		return nil, err
	}

	return &RunOutput{
		Content:  result.Content,
		ThreadID: threadID,
		Run:      result.Run,
	}, nil
}

// resolveDefaultEnvironment returns the cached default environment id,
// resolving it on first use: pick the environment flagged default, or create
// one. Concurrent first-time callers may each resolve; the cache keeps the
// last write. Worst case that creates a duplicate environment, which the
// service tolerates.
func (c *Client) resolveDefaultEnvironment(ctx context.Context) (string, error) {
	if cached := c.defaultEnvID.Load(); cached != nil {
		return *cached, nil
	}

	envs, err := c.Environments.List(ctx)
	if err != nil {
		return "", err
	}

	for _, env := range envs {
		if env.IsDefault {
			id := env.ID
			c.defaultEnvID.Store(&id)
			return id, nil
		}
	}

	created, err := c.Environments.Create(ctx, CreateEnvironmentRequest{
		Name:           constants.DefaultEnvironmentName,
		IsDefault:      true,
		InternetAccess: true,
	})
	if err != nil {
		return "", err
	}

	id := created.ID
	c.defaultEnvID.Store(&id)
	return id, nil
}
