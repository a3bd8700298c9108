package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v5"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the request message.
	readWait = 30 * time.Second

	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleStreamSamples upgrades to a WebSocket, reads one SamplesRequest and
// streams a step message per decoded character column followed by a done
// message. Failures are reported as a single error message before closing.
func (s *Server) handleStreamSamples(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "sample service not configured", "", "")
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return nil
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		s.log.Debug("websocket read failed", "error", err)
		return nil
	}
	var req SamplesRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.sendError(conn, ResponseError{Message: err.Error(), Type: "invalid_request_error"})
		return nil
	}

	resp, err := s.service.Generate(c.Request().Context(), &req, func(step int, chars []string) error {
		return s.send(conn, StreamMessage{Type: StreamTypeStep, Step: step, Chars: chars})
	})
	if err != nil {
		_, body := classify(err)
		s.sendError(conn, body)
		return nil
	}
	if err := s.send(conn, StreamMessage{Type: StreamTypeDone, Response: resp}); err != nil {
		s.log.Debug("websocket write failed", "error", err)
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return nil
}

func (s *Server) send(conn *websocket.Conn, msg StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) sendError(conn *websocket.Conn, body ResponseError) {
	if err := s.send(conn, StreamMessage{Type: StreamTypeError, Error: &body}); err != nil {
		s.log.Debug("websocket write failed", "error", err)
	}
}
