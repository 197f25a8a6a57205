package threadrun

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadrun-dev/threadrun/threadrun-go/threadrun/pkg/devserver"
)

// fakeService is a hand-rolled handler for orchestration tests that need to
// count calls per endpoint.
type fakeService struct {
	listCalls   atomic.Int64
	createCalls atomic.Int64
	threadCalls atomic.Int64
	envs        []Environment
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/environments", func(w http.ResponseWriter, r *http.Request) {
		f.listCalls.Add(1)
		_ = json.NewEncoder(w).Encode(f.envs)
	})
	mux.HandleFunc("POST /api/v1/environments", func(w http.ResponseWriter, r *http.Request) {
		f.createCalls.Add(1)
		var req CreateEnvironmentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(Environment{
			ID:             "env-created",
			Name:           req.Name,
			IsDefault:      req.IsDefault,
			InternetAccess: req.InternetAccess,
		})
	})
	mux.HandleFunc("POST /api/v1/threads", func(w http.ResponseWriter, r *http.Request) {
		n := f.threadCalls.Add(1)
		var req struct {
			EnvironmentID string `json:"environmentId"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(Thread{
			ID:            fmt.Sprintf("thread-%d", n),
			EnvironmentID: req.EnvironmentID,
		})
	})
	mux.HandleFunc("POST /api/v1/threads/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"response.completed\",\"content\":\"done\"}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"stream.completed\",\"runId\":\"run-1\",\"status\":\"completed\"}\n\n")
	})
	return mux
}

func TestRunResolvesDefaultEnvironmentOnce(t *testing.T) {
	svc := &fakeService{envs: []Environment{
		{ID: "env-other", Name: "scratch"},
		{ID: "env-default", Name: "default", IsDefault: true},
	}}
	ts := httptest.NewServer(svc.handler())
	defer ts.Close()

	client := testClient(t, ts.URL)
	ctx := context.Background()

	first, err := client.Run(ctx, "task one", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ThreadID)
	assert.Equal(t, "done", first.Content)

	second, err := client.Run(ctx, "task two", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, second.ThreadID)
	assert.NotEqual(t, first.ThreadID, second.ThreadID)

	assert.Equal(t, int64(1), svc.listCalls.Load(), "default environment must be cached after first resolution")
	assert.Equal(t, int64(0), svc.createCalls.Load())
	assert.Equal(t, int64(2), svc.threadCalls.Load())
}

func TestRunCreatesDefaultEnvironmentWhenMissing(t *testing.T) {
	svc := &fakeService{}
	ts := httptest.NewServer(svc.handler())
	defer ts.Close()

	client := testClient(t, ts.URL)
	out, err := client.Run(context.Background(), "task", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, out.ThreadID)
	assert.Equal(t, int64(1), svc.createCalls.Load())
}

func TestRunReusesSuppliedThread(t *testing.T) {
	svc := &fakeService{}
	ts := httptest.NewServer(svc.handler())
	defer ts.Close()

	client := testClient(t, ts.URL)
	out, err := client.Run(context.Background(), "follow up", &RunOptions{ThreadID: "thread-given"})
	require.NoError(t, err)

	assert.Equal(t, "thread-given", out.ThreadID)
	assert.Equal(t, int64(0), svc.listCalls.Load(), "a supplied thread needs no environment resolution")
	assert.Equal(t, int64(0), svc.threadCalls.Load())
}

func TestRunForwardsObserver(t *testing.T) {
	svc := &fakeService{}
	ts := httptest.NewServer(svc.handler())
	defer ts.Close()

	client := testClient(t, ts.URL)
	var types []string
	out, err := client.Run(context.Background(), "task", &RunOptions{
		OnEvent: func(event StreamEvent) error {
			types = append(types, event.Type)
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{EventResponseCompleted, EventStreamCompleted}, types)
	require.NotNil(t, out.Run)
	assert.Equal(t, "run-1", out.Run.ID)
}

func TestSendMessageTimesOutMidStream(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/threads/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"response.started\"}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := testClient(t, ts.URL)
	var observed int
	_, err := client.Threads.SendMessage(context.Background(), "t1", "task", &MessageOptions{
		Timeout: 50 * time.Millisecond,
		OnEvent: func(StreamEvent) error {
			observed++
			return nil
		},
	})
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusRequestTimeout, apiErr.Status)
	assert.Equal(t, CodeTimeout, apiErr.Code)
	assert.Equal(t, 1, observed, "events before the deadline were still delivered")
}

func TestRunAgainstSimulator(t *testing.T) {
	server := devserver.New()
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	client := testClient(t, ts.URL)
	ctx := context.Background()

	out, err := client.Run(ctx, "say hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "done: say hello", out.Content)
	assert.NotEmpty(t, out.ThreadID)
	require.NotNil(t, out.Run)
	assert.Equal(t, "completed", out.Run.Status)

	// Continue the same thread.
	followUp, err := client.Run(ctx, "again", &RunOptions{ThreadID: out.ThreadID})
	require.NoError(t, err)
	assert.Equal(t, out.ThreadID, followUp.ThreadID)
	assert.Equal(t, "done: again", followUp.Content)
}

func TestStreamMessagePullAgainstSimulator(t *testing.T) {
	server := devserver.New()
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	client := testClient(t, ts.URL)
	ctx := context.Background()

	env, err := client.Environments.Create(ctx, CreateEnvironmentRequest{Name: "default", IsDefault: true})
	require.NoError(t, err)
	thread, err := client.Threads.Create(ctx, env.ID)
	require.NoError(t, err)

	stream, err := client.Threads.StreamMessage(ctx, thread.ID, "pull me", nil)
	require.NoError(t, err)
	defer stream.Close()

	var types []string
	for {
		event, more, err := stream.Next(ctx)
		require.NoError(t, err)
		if !more {
			break
		}
		types = append(types, event.Type)
	}
	assert.Equal(t, []string{
		EventResponseStarted,
		EventItemCompleted,
		EventResponseCompleted,
		EventStreamCompleted,
	}, types)
}
