package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"gateway-dashboard/src/dockerlogs"
	"gateway-dashboard/src/gateway/gatewaytest"
	"gateway-dashboard/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestCallUsesEnvironmentOverrides(t *testing.T) {
	fake := gatewaytest.NewServer(func(method string, params json.RawMessage) (interface{}, *models.MRpcError) {
		return map[string]interface{}{"method": method, "ok": true}, nil
	})
	defer fake.Close()

	t.Setenv("DASHBOARD_GATEWAY_URL", fake.URL())
	t.Setenv("DASHBOARD_GATEWAY_TOKEN", "from-env")

	out, err := runCLI(t, "call", "health")
	require.NoError(t, err)
	assert.JSONEq(t, `{"method":"health","ok":true}`, out)

	connects := fake.Connects()
	require.Len(t, connects, 1)
	assert.Equal(t, "from-env", connects[0].Auth.Token)
}

func TestCallForwardsParamsAndRejectsBadJSON(t *testing.T) {
	fake := gatewaytest.NewServer(func(method string, params json.RawMessage) (interface{}, *models.MRpcError) {
		return map[string]interface{}{}, nil
	})
	defer fake.Close()

	t.Setenv("DASHBOARD_GATEWAY_URL", fake.URL())

	_, err := runCLI(t, "call", "cron.list", `{"includeDisabled":true}`)
	require.NoError(t, err)
	requests := fake.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "cron.list", requests[0].Method)
	assert.JSONEq(t, `{"includeDisabled":true}`, string(requests[0].Params))

	_, err = runCLI(t, "call", "cron.list", `{not json`)
	assert.Error(t, err)
	assert.Len(t, fake.Requests(), 1)
}

func TestCallReportsErrorKind(t *testing.T) {
	fake := gatewaytest.NewServer(nil)
	fake.RejectConnect = "invalid token"
	defer fake.Close()

	t.Setenv("DASHBOARD_GATEWAY_URL", fake.URL())

	_, err := runCLI(t, "call", "health")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication_failed")
}

func TestExplicitMissingConfigFails(t *testing.T) {
	_, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "call", "health")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigFileAndFlagOverride(t *testing.T) {
	fake := gatewaytest.NewServer(func(method string, params json.RawMessage) (interface{}, *models.MRpcError) {
		return true, nil
	})
	defer fake.Close()

	path := filepath.Join(t.TempDir(), "dash.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gateway:\n  url: ws://127.0.0.1:1\n  token: from-file\n"), 0600))

	out, err := runCLI(t, "--config", path, "--gateway-url", fake.URL(), "call", "health")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
	assert.Equal(t, "from-file", fake.Connects()[0].Auth.Token)
}

func TestLogsCommand(t *testing.T) {
	docker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/containers/gateway/logs", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("tail"))
		w.Write(dockerlogs.Frame(models.StreamStdout, "2024-05-01T12:00:00.000000000Z booted\n"))
		w.Write(dockerlogs.Frame(models.StreamStderr, "2024-05-01T12:00:01.000000000Z warn: slow\n"))
	}))
	defer docker.Close()

	t.Setenv("DASHBOARD_GATEWAY_URL", "ws://127.0.0.1:1")
	t.Setenv("DASHBOARD_DOCKER_HOST", docker.URL)

	out, err := runCLI(t, "logs", "gateway", "--tail", "5")
	require.NoError(t, err)
	assert.Equal(t, "booted\n[stderr] warn: slow\n", out)

	out, err = runCLI(t, "logs", "gateway", "--tail", "5", "-t")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-05-01T12:00:01.000000000Z [stderr] warn: slow\n")
}
