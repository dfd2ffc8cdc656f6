package models

import "encoding/json"

// Frame types on the gateway socket.
const (
	FrameTypeRequest  = "req"
	FrameTypeResponse = "res"
	FrameTypeEvent    = "event"

	EventConnectChallenge = "connect.challenge"
	MethodConnect         = "connect"
)

// MRpcRequest is one outbound request envelope. Built once per call and never mutated.
type MRpcRequest struct {
	Type   string      `json:"type"`
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// MRpcError is the structured error a peer returns instead of a result.
type MRpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MGatewayFrame is any inbound frame: a response (id + result|error) or an event.
type MGatewayFrame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *MRpcError      `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
}

// ResultBody returns the success payload. Some gateway builds send it as "payload".
func (f *MGatewayFrame) ResultBody() json.RawMessage {
	if len(f.Result) > 0 {
		return f.Result
	}
	return f.Payload
}

// -----------------------------------------------------------------------------
// Connect handshake payload
// -----------------------------------------------------------------------------

type MConnectParams struct {
	MinProtocol int            `json:"minProtocol"`
	MaxProtocol int            `json:"maxProtocol"`
	Client      MConnectClient `json:"client"`
	Role        string         `json:"role"`
	Scopes      []string       `json:"scopes"`
	Auth        MConnectAuth   `json:"auth"`
}

type MConnectClient struct {
	ID       string `json:"id"`
	Version  string `json:"version"`
	Platform string `json:"platform"`
	Mode     string `json:"mode"`
}

type MConnectAuth struct {
	Token string `json:"token"`
}
