package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const protocolVersion = "2024-11-05"

// Server is an MCP stdio server that delegates every tool to the memory
// HTTP API.
type Server struct {
	serverURL string
	client    *http.Client
	in        io.Reader
	out       io.Writer
}

func NewServer(serverURL string, in io.Reader, out io.Writer) *Server {
	return &Server{
		serverURL: strings.TrimRight(serverURL, "/"),
		client:    &http.Client{Timeout: 30 * time.Second},
		in:        in,
		out:       out,
	}
}

// Run serves newline-delimited JSON-RPC until the input closes or ctx ends.
func (s *Server) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.write(&Response{JSONRPC: "2.0", Error: &RPCError{Code: codeParseError, Message: "parse error: " + err.Error()}})
			continue
		}

		if resp := s.handle(ctx, &req); resp != nil {
			s.write(resp)
		}
	}
	return scanner.Err()
}

func (s *Server) handle(ctx context.Context, req *Request) *Response {
	switch req.Method {
	case "initialize":
		return s.result(req.ID, InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    ServerCapabilities{Tools: &ToolCapabilities{}},
			ServerInfo:      ServerInfo{Name: "narrative-memory", Version: "1.0.0"},
		})
	case "notifications/initialized", "initialized":
		return nil
	case "ping":
		return s.result(req.ID, map[string]string{})
	case "tools/list":
		return s.result(req.ID, ToolsListResult{Tools: ToolDefinitions()})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return s.fail(req.ID, codeMethodNotFound, "method not found: "+req.Method)
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req *Request) *Response {
	raw, err := json.Marshal(req.Params)
	if err != nil {
		return s.fail(req.ID, codeInvalidParams, "invalid params")
	}
	var params CallToolParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return s.fail(req.ID, codeInvalidParams, "invalid params: "+err.Error())
	}

	text, isError := s.dispatch(ctx, params.Name, params.Arguments)
	return s.result(req.ID, CallToolResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: isError,
	})
}

func (s *Server) dispatch(ctx context.Context, name string, args map[string]any) (string, bool) {
	switch name {
	case "memory_store":
		body := map[string]any{"text": args["text"]}
		if v, ok := args["summary"].(string); ok && v != "" {
			body["summary"] = v
		}
		if v, ok := args["importance"].(float64); ok {
			body["importanceScore"] = v
		}
		return s.call(ctx, http.MethodPost, "/memories", body)
	case "memory_search":
		return s.call(ctx, http.MethodPost, "/memories/search", map[string]any{
			"query": args["query"],
			"topK":  int(getFloat(args, "topK", 0)),
		})
	case "memory_get":
		id, _ := args["id"].(string)
		if id == "" {
			return "id is required", true
		}
		return s.call(ctx, http.MethodGet, "/memories/"+url.PathEscape(id), nil)
	case "memory_decay":
		return s.call(ctx, http.MethodPost, "/memories/decay", nil)
	default:
		return fmt.Sprintf("unknown tool: %s", name), true
	}
}

// call performs one API request and returns the body and whether it failed.
func (s *Server) call(ctx context.Context, method, path string, body any) (string, bool) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Sprintf("marshal error: %s", err), true
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.serverURL+path, rdr)
	if err != nil {
		return fmt.Sprintf("request error: %s", err), true
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Sprintf("HTTP error: %s", err), true
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("read error: %s", err), true
	}
	return string(data), resp.StatusCode >= 400
}

func (s *Server) write(resp *Response) {
	data, _ := json.Marshal(resp)
	fmt.Fprintf(s.out, "%s\n", data)
}

func (s *Server) result(id any, v any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: v}
}

func (s *Server) fail(id any, code int, msg string) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: msg}}
}

func getFloat(args map[string]any, key string, fallback float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}
