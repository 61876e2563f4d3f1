package rpc

import (
	"bytes"
	"encoding/json"
)

// Version is the JSON-RPC protocol version sent with every request.
const Version = "2.0"

// Request is an outbound JSON-RPC body.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// NewRequest creates a request. Params is always encoded as an array.
func NewRequest(id uint64, method string, params ...any) Request {
	if params == nil {
		params = []any{}
	}
	return Request{JSONRPC: Version, ID: id, Method: method, Params: params}
}

// Marshal encodes the request.
func (r Request) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// ErrorObject is the error member of a failed response.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Response is an inbound JSON-RPC body.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ParseResponse decodes raw into a Response. The body must be a JSON object.
func ParseResponse(raw []byte) (*Response, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errNotObject
	}
	var resp Response
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// NumericID returns the id as an unsigned integer, if it is one.
func (r *Response) NumericID() (uint64, bool) {
	if len(r.ID) == 0 {
		return 0, false
	}
	var id uint64
	if err := json.Unmarshal(r.ID, &id); err != nil {
		return 0, false
	}
	return id, true
}
