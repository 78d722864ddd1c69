package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/stemsi/exstem-adaptive/internal/response"
)

const (
	writeWait = 10 * time.Second
	// idleTimeout covers a test-taker thinking about one question; any frame,
	// including a control pong, extends it.
	idleTimeout = 10 * time.Minute
	// maxMessageBytes bounds one answer frame, hints_used included.
	maxMessageBytes = 16 << 10
)

// Prepare applies the read limit and idle deadline to a fresh session stream.
func Prepare(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})
}

// WriteTyped sends one event payload.
func WriteTyped(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends an error event carrying the API error code.
func WriteError(conn *websocket.Conn, code response.ErrCode) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Code:  code,
		Error: response.GetMessage(code),
	})
}

// ReadJSON decodes the next frame into v and pushes the idle deadline out.
func ReadJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))
	return conn.ReadJSON(v)
}
