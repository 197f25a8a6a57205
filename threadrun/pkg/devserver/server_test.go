package devserver

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthRejection(t *testing.T) {
	ts := httptest.NewServer(New(WithAPIKey("secret")).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/environments")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/environments", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestScheduleRejectsBadCron(t *testing.T) {
	ts := httptest.NewServer(New().Handler())
	defer ts.Close()

	body := bytes.NewBufferString(`{"name":"n","cron":"nope","task":"t"}`)
	resp, err := http.Post(ts.URL+"/api/v1/schedules", "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "INVALID_CRON", payload["code"])
}

func TestMessageStreamWireFormat(t *testing.T) {
	server := New()
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	envResp, err := http.Post(ts.URL+"/api/v1/environments", "application/json",
		bytes.NewBufferString(`{"name":"default"}`))
	require.NoError(t, err)
	var env struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(envResp.Body).Decode(&env))
	envResp.Body.Close()

	threadResp, err := http.Post(ts.URL+"/api/v1/threads", "application/json",
		bytes.NewBufferString(`{"environmentId":"`+env.ID+`"}`))
	require.NoError(t, err)
	var thread struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(threadResp.Body).Decode(&thread))
	threadResp.Body.Close()

	msgResp, err := http.Post(ts.URL+"/api/v1/threads/"+thread.ID+"/messages", "application/json",
		bytes.NewBufferString(`{"content":"hi"}`))
	require.NoError(t, err)
	defer msgResp.Body.Close()

	assert.Equal(t, "text/event-stream", msgResp.Header.Get("Content-Type"))

	var types []string
	scanner := bufio.NewScanner(msgResp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event Event
		require.NoError(t, json.Unmarshal([]byte(line[len("data: "):]), &event))
		types = append(types, event.Type)
	}
	assert.Equal(t, []string{
		"response.started",
		"response.item.completed",
		"response.completed",
		"stream.completed",
	}, types)
}
