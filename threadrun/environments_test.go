package threadrun

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadrun-dev/threadrun/threadrun-go/threadrun/pkg/devserver"
)

func TestEnvironmentCRUDAgainstSimulator(t *testing.T) {
	ts := httptest.NewServer(devserver.New().Handler())
	defer ts.Close()

	client := testClient(t, ts.URL)
	ctx := context.Background()

	created, err := client.Environments.Create(ctx, CreateEnvironmentRequest{
		Name:           "default",
		IsDefault:      true,
		InternetAccess: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsDefault)

	fetched, err := client.Environments.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)

	envs, err := client.Environments.List(ctx)
	require.NoError(t, err)
	require.Len(t, envs, 1)

	require.NoError(t, client.Environments.Delete(ctx, created.ID))

	_, err = client.Environments.Get(ctx, created.ID)
	require.Error(t, err)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
}

func TestEnvironmentWatch(t *testing.T) {
	ts := httptest.NewServer(devserver.New().Handler())
	defer ts.Close()

	client := testClient(t, ts.URL)
	ctx := context.Background()

	env, err := client.Environments.Create(ctx, CreateEnvironmentRequest{Name: "watched"})
	require.NoError(t, err)

	watcher, err := client.Environments.Watch(ctx, env.ID)
	require.NoError(t, err)
	defer watcher.Close()

	var statuses []string
	for {
		update, more, err := watcher.Next(ctx)
		require.NoError(t, err)
		if !more {
			break
		}
		assert.Equal(t, env.ID, update.ID)
		statuses = append(statuses, update.Status)
	}
	assert.Equal(t, []string{"provisioning", "ready"}, statuses)
}
