package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"codetect/internal/logging"
)

const ProtocolVersion = "2024-11-05"

// ToolHandler handles one tools/call invocation. ctx is the server's Run
// context: a handler blocked on a commit's embedding HTTP round trip
// (internal/tools' commitmux_search_semantic, via internal/embedding)
// observes cancellation the same way any other context-aware blocking
// call in commitmux does, instead of the request continuing after the
// host process has asked the server to shut down.
type ToolHandler func(ctx context.Context, args map[string]interface{}) (*ToolsCallResult, error)

// Server handles MCP JSON-RPC communication over stdio
type Server struct {
	name     string
	version  string
	tools    []Tool
	handlers map[string]ToolHandler
	logger   *slog.Logger
}

// NewServer creates a new MCP server
func NewServer(name, version string) *Server {
	return &Server{
		name:     name,
		version:  version,
		tools:    []Tool{},
		handlers: make(map[string]ToolHandler),
		logger:   logging.Default("mcp"),
	}
}

// RegisterTool adds a tool to the server
func (s *Server) RegisterTool(tool Tool, handler ToolHandler) {
	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = handler
}

// Run reads newline-delimited JSON-RPC requests from stdin until ctx is
// canceled or stdin reaches EOF, dispatching each one and writing its
// response to stdout. The stdin read itself runs on a separate goroutine:
// bufio.Reader has no context-aware cancellation, so ctx.Done() can only
// stop the server from starting the next request's work, not interrupt a
// read already blocked on the pipe. cmd/commitmux's serve command wires
// ctx to the process's SIGINT/SIGTERM handling.
func (s *Server) Run(ctx context.Context) error {
	lines := make(chan []byte, 1)
	readDone := make(chan error, 1)

	go func() {
		reader := bufio.NewReader(os.Stdin)
		for {
			line, err := reader.ReadBytes('\n')
			if len(line) > 0 {
				lines <- line
			}
			if err != nil {
				if err == io.EOF {
					readDone <- nil
				} else {
					readDone <- fmt.Errorf("reading stdin: %w", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line := <-lines:
			if len(line) == 0 || string(line) == "\n" {
				continue
			}
			response := s.handleMessage(ctx, line)
			if response != nil {
				if err := s.writeResponse(response); err != nil {
					s.logger.Error("error writing response", "error", err)
				}
			}
		case err := <-readDone:
			return err
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Error("parse error", "error", err)
		return &Response{
			JSONRPC: "2.0",
			Error: &Error{
				Code:    ParseError,
				Message: "Parse error",
				Data:    err.Error(),
			},
		}
	}

	s.logger.Debug("received request", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		return s.handleInitialize(&req)
	case "initialized":
		// Notification, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(&req)
	case "tools/call":
		return s.handleToolsCall(ctx, &req)
	case "ping":
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    MethodNotFound,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

func (s *Server) handleInitialize(req *Request) *Response {
	result := InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{
				ListChanged: false,
			},
		},
		ServerInfo: ServerInfo{
			Name:    s.name,
			Version: s.version,
		},
	}

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}
}

func (s *Server) handleToolsList(req *Request) *Response {
	result := ToolsListResult{
		Tools: s.tools,
	}

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	// Parse params
	paramsBytes, err := json.Marshal(req.Params)
	if err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    InvalidParams,
				Message: "Invalid params",
			},
		}
	}

	var params ToolsCallParams
	if err := json.Unmarshal(paramsBytes, &params); err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    InvalidParams,
				Message: "Invalid params",
			},
		}
	}

	handler, ok := s.handlers[params.Name]
	if !ok {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    MethodNotFound,
				Message: fmt.Sprintf("Tool not found: %s", params.Name),
			},
		}
	}

	result, err := handler(ctx, params.Arguments)
	if err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: &ToolsCallResult{
				Content: []Content{{Type: "text", Text: err.Error()}},
				IsError: true,
			},
		}
	}

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}
}

func (s *Server) writeResponse(resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stdout, "%s\n", data)
	return err
}
