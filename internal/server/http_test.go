package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWhoAmIServer() *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	s.AddTool(mcp.NewTool("whoami"), func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		account, ok := AccountFromContext(ctx)
		if !ok {
			account = DefaultAccount
		}
		return mcp.NewToolResultText(account), nil
	})
	return s
}

func postRPC(t *testing.T, url, session, account, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	if session != "" {
		req.Header.Set("Mcp-Session-Id", session)
	}
	if account != "" {
		req.Header.Set(AccountHeader, account)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

const initializeRPC = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`

func TestHTTPServerPropagatesAccountHeader(t *testing.T) {
	sc := newTestServerContext(t)
	ts := httptest.NewServer(NewHTTPServer(newWhoAmIServer(), sc, nil).Handler())
	defer ts.Close()

	resp := postRPC(t, ts.URL+MCPEndpoint, "", "", initializeRPC)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := resp.Header.Get("Mcp-Session-Id")

	resp = postRPC(t, ts.URL+MCPEndpoint, session, "work",
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"whoami","arguments":{}}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rpc struct {
		Result struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpc))
	require.Len(t, rpc.Result.Content, 1)
	assert.Equal(t, "work", rpc.Result.Content[0].Text)
}

func TestHTTPServerRejectsInvalidAccount(t *testing.T) {
	sc := newTestServerContext(t)
	ts := httptest.NewServer(NewHTTPServer(newWhoAmIServer(), sc, nil).Handler())
	defer ts.Close()

	resp := postRPC(t, ts.URL+MCPEndpoint, "", "../etc", initializeRPC)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPServerServesHealth(t *testing.T) {
	sc := newTestServerContext(t)
	srv := NewHTTPServer(newWhoAmIServer(), sc, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Shutdown(context.Background()))
	resp, err = http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
