package threadrun

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadrun-dev/threadrun/threadrun-go/threadrun/pkg/constants"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv(constants.EnvAPIKey, "")
	t.Setenv(constants.EnvAPIKeyAlt, "")

	_, err := NewClient(Config{})
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.Status)
}

func TestNewClientReadsEitherKeyVariable(t *testing.T) {
	t.Setenv(constants.EnvAPIKey, "")
	t.Setenv(constants.EnvAPIKeyAlt, "alt-key")

	client, err := NewClient(Config{})
	require.NoError(t, err)
	assert.Equal(t, "alt-key", client.apiKey)

	t.Setenv(constants.EnvAPIKey, "primary-key")
	client, err = NewClient(Config{})
	require.NoError(t, err)
	assert.Equal(t, "primary-key", client.apiKey, "primary variable wins when both are set")
}

func TestNormalizeBases(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantREST   string
		wantSocket string
	}{
		{
			name:       "https",
			raw:        "https://api.threadrun.ai",
			wantREST:   "https://api.threadrun.ai/api/v1",
			wantSocket: "wss://api.threadrun.ai/api/v1",
		},
		{
			name:       "http local",
			raw:        "http://127.0.0.1:8450",
			wantREST:   "http://127.0.0.1:8450/api/v1",
			wantSocket: "ws://127.0.0.1:8450/api/v1",
		},
		{
			name:       "bare host gets https",
			raw:        "api.threadrun.ai",
			wantREST:   "https://api.threadrun.ai/api/v1",
			wantSocket: "wss://api.threadrun.ai/api/v1",
		},
		{
			name:       "trailing slash trimmed",
			raw:        "https://api.threadrun.ai/",
			wantREST:   "https://api.threadrun.ai/api/v1",
			wantSocket: "wss://api.threadrun.ai/api/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rest, socket, err := normalizeBases(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantREST, rest)
			assert.Equal(t, tt.wantSocket, socket)
		})
	}
}

func TestConfigOverridesEnv(t *testing.T) {
	t.Setenv(constants.EnvAPIKey, "env-key")
	t.Setenv(constants.EnvBaseURL, "https://env.example.com")

	client, err := NewClient(Config{APIKey: "explicit-key", BaseURL: "https://explicit.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "explicit-key", client.apiKey)
	assert.Equal(t, "https://explicit.example.com/api/v1", client.baseRESTURL)
}
