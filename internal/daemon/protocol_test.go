package daemon

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_JSON(t *testing.T) {
	req := Request{
		JSONRPC: "2.0",
		Method:  MethodStatus,
		Params:  nil,
		ID:      "req-1",
	}

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded Request
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, "2.0", decoded.JSONRPC)
	assert.Equal(t, MethodStatus, decoded.Method)
	assert.Equal(t, "req-1", decoded.ID)
}

func TestResponse_Success(t *testing.T) {
	status := StatusResult{Running: true, PID: 123, RoutesLoaded: 4}

	resp := NewSuccessResponse("req-1", status)

	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.Equal(t, "req-1", resp.ID)
	assert.NotNil(t, resp.Result)
	assert.Nil(t, resp.Error)
}

func TestResponse_Error(t *testing.T) {
	resp := NewErrorResponse("req-1", ErrCodeInvalidParams, "invalid openapi path")

	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.Equal(t, "req-1", resp.ID)
	assert.Nil(t, resp.Result)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalidParams, resp.Error.Code)
	assert.Equal(t, "invalid openapi path", resp.Error.Message)
}

func TestReloadParams_Validate(t *testing.T) {
	tests := []struct {
		name    string
		params  ReloadParams
		wantErr bool
	}{
		{name: "empty path reloads current", params: ReloadParams{}, wantErr: false},
		{name: "explicit path", params: ReloadParams{OpenAPIPath: "openapi.yaml"}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReloadResult_JSON(t *testing.T) {
	result := ReloadResult{RoutesLoaded: 12, Warnings: []string{"deprecated path /v1/ping"}}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded ReloadResult
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, result.RoutesLoaded, decoded.RoutesLoaded)
	assert.Equal(t, result.Warnings, decoded.Warnings)
}

func TestStatusResult_JSON(t *testing.T) {
	status := StatusResult{
		Running:         true,
		PID:             12345,
		Uptime:          "1h30m",
		OpenAPIPath:     "openapi.yaml",
		RoutesLoaded:    6,
		ActionsLoaded:   9,
		EventsProcessed: 42,
		LastReload:      "2026-07-31T10:00:00Z",
	}

	data, err := json.Marshal(status)
	require.NoError(t, err)

	var decoded StatusResult
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, status.Running, decoded.Running)
	assert.Equal(t, status.PID, decoded.PID)
	assert.Equal(t, status.Uptime, decoded.Uptime)
	assert.Equal(t, status.OpenAPIPath, decoded.OpenAPIPath)
	assert.Equal(t, status.RoutesLoaded, decoded.RoutesLoaded)
	assert.Equal(t, status.ActionsLoaded, decoded.ActionsLoaded)
	assert.Equal(t, status.EventsProcessed, decoded.EventsProcessed)
	assert.Equal(t, status.LastReload, decoded.LastReload)
}

func TestStopParams_JSON(t *testing.T) {
	params := StopParams{Force: true}

	data, err := json.Marshal(params)
	require.NoError(t, err)

	var decoded StopParams
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, params.Force, decoded.Force)
}

func TestMethodConstants(t *testing.T) {
	assert.Equal(t, "ping", MethodPing)
	assert.Equal(t, "status", MethodStatus)
	assert.Equal(t, "reload", MethodReload)
	assert.Equal(t, "stop", MethodStop)
}

func TestErrorCodes(t *testing.T) {
	assert.Equal(t, -32700, ErrCodeParseError)
	assert.Equal(t, -32600, ErrCodeInvalidRequest)
	assert.Equal(t, -32601, ErrCodeMethodNotFound)
	assert.Equal(t, -32602, ErrCodeInvalidParams)
	assert.Equal(t, -32603, ErrCodeInternalError)

	assert.Equal(t, -32001, ErrCodeNotServing)
	assert.Equal(t, -32002, ErrCodeReloadFailed)
}
