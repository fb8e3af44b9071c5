package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func echoTool() Tool {
	return Tool{
		Name:        "echo",
		Description: "echoes its input argument back",
		InputSchema: InputSchema{Type: "object"},
	}
}

func TestHandleMessageInitialize(t *testing.T) {
	s := NewServer("commitmux", "0.1.0")

	resp := s.handleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	if resp == nil {
		t.Fatal("expected a response to initialize")
	}
	result, ok := resp.Result.(InitializeResult)
	if !ok {
		t.Fatalf("Result = %T, want InitializeResult", resp.Result)
	}
	if result.ServerInfo.Name != "commitmux" || result.ServerInfo.Version != "0.1.0" {
		t.Errorf("ServerInfo = %+v, want name=commitmux version=0.1.0", result.ServerInfo)
	}
	if result.ProtocolVersion != ProtocolVersion {
		t.Errorf("ProtocolVersion = %q, want %q", result.ProtocolVersion, ProtocolVersion)
	}
}

func TestHandleMessageInitializedNotification(t *testing.T) {
	s := NewServer("commitmux", "0.1.0")
	resp := s.handleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"initialized"}`))
	if resp != nil {
		t.Errorf("expected no response for the initialized notification, got %+v", resp)
	}
}

func TestHandleMessageToolsList(t *testing.T) {
	s := NewServer("commitmux", "0.1.0")
	s.RegisterTool(echoTool(), func(ctx context.Context, args map[string]interface{}) (*ToolsCallResult, error) {
		return textResult("ok"), nil
	})

	resp := s.handleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	result, ok := resp.Result.(ToolsListResult)
	if !ok {
		t.Fatalf("Result = %T, want ToolsListResult", resp.Result)
	}
	if len(result.Tools) != 1 || result.Tools[0].Name != "echo" {
		t.Errorf("Tools = %+v, want exactly one tool named echo", result.Tools)
	}
}

func textResult(s string) *ToolsCallResult {
	return &ToolsCallResult{Content: []Content{{Type: "text", Text: s}}}
}

func TestHandleMessageToolsCallDispatchesAndPassesCtx(t *testing.T) {
	s := NewServer("commitmux", "0.1.0")
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "marker")

	var sawMarker bool
	s.RegisterTool(echoTool(), func(ctx context.Context, args map[string]interface{}) (*ToolsCallResult, error) {
		sawMarker = ctx.Value(ctxKey{}) == "marker"
		return textResult(fmt.Sprintf("%v", args["msg"])), nil
	})

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      3,
		"method":  "tools/call",
		"params":  map[string]any{"name": "echo", "arguments": map[string]any{"msg": "hi"}},
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	resp := s.handleMessage(ctx, data)
	if !sawMarker {
		t.Error("handler did not receive the caller's context")
	}
	result, ok := resp.Result.(*ToolsCallResult)
	if !ok {
		t.Fatalf("Result = %T, want *ToolsCallResult", resp.Result)
	}
	if result.IsError {
		t.Errorf("unexpected IsError result: %+v", result)
	}
	if len(result.Content) != 1 || result.Content[0].Text != "hi" {
		t.Errorf("Content = %+v, want echoed msg", result.Content)
	}
}

func TestHandleMessageToolsCallWrapsHandlerError(t *testing.T) {
	s := NewServer("commitmux", "0.1.0")
	s.RegisterTool(echoTool(), func(ctx context.Context, args map[string]interface{}) (*ToolsCallResult, error) {
		return nil, fmt.Errorf("boom")
	})

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      4,
		"method":  "tools/call",
		"params":  map[string]any{"name": "echo"},
	}
	data, _ := json.Marshal(req)

	resp := s.handleMessage(context.Background(), data)
	result, ok := resp.Result.(*ToolsCallResult)
	if !ok {
		t.Fatalf("Result = %T, want *ToolsCallResult", resp.Result)
	}
	if !result.IsError {
		t.Error("expected IsError for a handler error")
	}
	if len(result.Content) != 1 || result.Content[0].Text != "boom" {
		t.Errorf("Content = %+v, want the handler's error text", result.Content)
	}
}

func TestHandleMessageToolsCallUnknownTool(t *testing.T) {
	s := NewServer("commitmux", "0.1.0")

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      5,
		"method":  "tools/call",
		"params":  map[string]any{"name": "nope"},
	}
	data, _ := json.Marshal(req)

	resp := s.handleMessage(context.Background(), data)
	if resp.Error == nil || resp.Error.Code != MethodNotFound {
		t.Errorf("expected a MethodNotFound error, got %+v", resp.Error)
	}
}

func TestHandleMessageUnknownMethod(t *testing.T) {
	s := NewServer("commitmux", "0.1.0")
	resp := s.handleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":6,"method":"bogus"}`))
	if resp.Error == nil || resp.Error.Code != MethodNotFound {
		t.Errorf("expected a MethodNotFound error, got %+v", resp.Error)
	}
}

func TestHandleMessageParseError(t *testing.T) {
	s := NewServer("commitmux", "0.1.0")
	resp := s.handleMessage(context.Background(), []byte(`not json`))
	if resp.Error == nil || resp.Error.Code != ParseError {
		t.Errorf("expected a ParseError, got %+v", resp.Error)
	}
}

func TestRunReturnsOnCanceledContext(t *testing.T) {
	s := NewServer("commitmux", "0.1.0")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return promptly after context cancellation")
	}
}
