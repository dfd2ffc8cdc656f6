package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"gateway-dashboard/src/helpers"
	"gateway-dashboard/src/logger"
	"gateway-dashboard/src/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	maxFrameSize   = 4 * 1024 * 1024
	defaultTimeout = 10 * time.Second
)

// callState tracks one call's handshake. It lives on the stack of Call and is
// never shared between calls.
type callState int

const (
	stateConnecting callState = iota
	stateAuthenticating
	stateAuthenticated
	stateClosedSuccess
	stateClosedError
)

func (s callState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateAuthenticating:
		return "authenticating"
	case stateAuthenticated:
		return "authenticated"
	case stateClosedSuccess:
		return "closed-success"
	case stateClosedError:
		return "closed-error"
	}
	return "unknown"
}

// -----------------------------------------------------------------------------
// Bridge
// -----------------------------------------------------------------------------

// Bridge opens one websocket connection per call, authenticates with the
// capability token, sends a single request and closes. There is no pooling
// and no retry.
type Bridge struct {
	Config *models.MGatewayConfig
	Logger *logger.Logger
	Dialer *websocket.Dialer

	newID func() string
}

// -----------------------------------------------------------------------------

func NewBridge(cfg *models.MGatewayConfig, log *logger.Logger) *Bridge {
	return &Bridge{
		Config: cfg,
		Logger: log,
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultTimeout,
		},
		newID: uuid.NewString,
	}
}

// -----------------------------------------------------------------------------

// DefaultTimeout is the configured per-call timeout.
func (b *Bridge) DefaultTimeout() time.Duration {
	if b.Config.TimeoutMs > 0 {
		return time.Duration(b.Config.TimeoutMs) * time.Millisecond
	}
	return defaultTimeout
}

// -----------------------------------------------------------------------------

// Call runs connect -> challenge -> authenticate -> request -> response -> close.
// A timeout <= 0 uses the configured default.
func (b *Bridge) Call(ctx context.Context, method string, params interface{}, timeout time.Duration) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = b.DefaultTimeout()
	}

	// The timer is armed before dialing so the handshake counts against it.
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	state := stateConnecting
	fail := func(stage string, err error) (json.RawMessage, error) {
		b.Logger.Debug("%s: %s -> %s: %v", method, state, stateClosedError, err)
		state = stateClosedError
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, helpers.NewTimeout(method, timeout)
		}
		return nil, helpers.NewTransportError(stage, err)
	}

	conn, _, err := b.Dialer.DialContext(callCtx, b.Config.URL, nil)
	if err != nil {
		return fail("dialing", err)
	}
	defer conn.Close()

	// Force-close on deadline or caller cancellation; the blocked read then fails.
	stop := context.AfterFunc(callCtx, func() { conn.Close() })
	defer stop()

	conn.SetReadLimit(maxFrameSize)

	connectID := b.newID()
	request := models.MRpcRequest{
		Type:   models.FrameTypeRequest,
		ID:     b.newID(),
		Method: method,
		Params: params,
	}

	for {
		var frame models.MGatewayFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return fail("reading in state "+state.String(), err)
		}

		switch state {
		case stateConnecting:
			if frame.Type != models.FrameTypeEvent || frame.Event != models.EventConnectChallenge {
				continue
			}
			connect := models.MRpcRequest{
				Type:   models.FrameTypeRequest,
				ID:     connectID,
				Method: models.MethodConnect,
				Params: b.connectParams(),
			}
			if err := conn.WriteJSON(connect); err != nil {
				return fail("sending connect", err)
			}
			state = stateAuthenticating

		case stateAuthenticating:
			if frame.Type != models.FrameTypeResponse || frame.ID != connectID {
				continue
			}
			if frame.Error != nil {
				state = stateClosedError
				b.Logger.Warning("Gateway rejected connect for %s: %s", method, frame.Error.Message)
				return nil, helpers.NewAuthenticationFailed(frame.Error.Message)
			}
			if err := conn.WriteJSON(request); err != nil {
				return fail("sending request", err)
			}
			state = stateAuthenticated

		case stateAuthenticated:
			if frame.Type != models.FrameTypeResponse || frame.ID != request.ID {
				continue
			}
			b.closeGracefully(conn)
			if frame.Error != nil {
				state = stateClosedError
				return nil, helpers.NewRemoteError(method, frame.Error.Code, frame.Error.Message)
			}
			state = stateClosedSuccess
			return frame.ResultBody(), nil
		}
	}
}

// -----------------------------------------------------------------------------

func (b *Bridge) connectParams() models.MConnectParams {
	return models.MConnectParams{
		MinProtocol: b.Config.MinProtocol,
		MaxProtocol: b.Config.MaxProtocol,
		Client: models.MConnectClient{
			ID:       b.Config.ClientID,
			Version:  b.Config.ClientVersion,
			Platform: b.Config.Platform,
			Mode:     b.Config.Mode,
		},
		Role:   b.Config.Role,
		Scopes: b.Config.Scopes,
		Auth:   models.MConnectAuth{Token: b.Config.Token},
	}
}

// -----------------------------------------------------------------------------

func (b *Bridge) closeGracefully(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
