package threadrun

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleCreateRejectsBadCronLocally(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("invalid cron expressions must not reach the service")
	}))
	defer ts.Close()

	client := testClient(t, ts.URL)
	_, err := client.Schedules.Create(context.Background(), CreateScheduleRequest{
		Name: "nightly",
		Cron: "not a cron",
		Task: "tidy up",
	})
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Message, "not a cron")
}

func TestScheduleCreateValidCron(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req CreateScheduleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "0 3 * * *", req.Cron)
		_ = json.NewEncoder(w).Encode(Schedule{ID: "sched-1", Name: req.Name, Cron: req.Cron, Task: req.Task})
	}))
	defer ts.Close()

	client := testClient(t, ts.URL)
	sched, err := client.Schedules.Create(context.Background(), CreateScheduleRequest{
		Name:    "nightly",
		Cron:    "0 3 * * *",
		Task:    "tidy up",
		Enabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "sched-1", sched.ID)
}
