// Package jsonrpc implements a JSON-RPC 2.0 transport over the stdio pipe
// pair of a managed subprocess. One line carries one JSON value; requests
// are correlated to responses by id while notifications are pushed to a
// callback, so a single pipe pair can carry both message kinds interleaved
// and out of order. The transport knows nothing about AI semantics.
package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      int64           `json:"id"`
}

// Notification is a JSON-RPC 2.0 notification (no id, no response).
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	Error   *Error          `json:"error,omitempty"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	ID      int64           `json:"id"`
}

// Error is a structured JSON-RPC 2.0 error object. It is surfaced to the
// one caller whose request it rejects.
type Error struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// newRequest builds a request, marshaling params unless nil.
func newRequest(id int64, method string, params any) (*Request, error) {
	req := &Request{JSONRPC: "2.0", ID: id, Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		req.Params = data
	}
	return req, nil
}

// newNotification builds a notification, marshaling params unless nil.
func newNotification(method string, params any) (*Notification, error) {
	notif := &Notification{JSONRPC: "2.0", Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		notif.Params = data
	}
	return notif, nil
}
