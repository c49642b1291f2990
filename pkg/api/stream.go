package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rubiojr/glimpse/pkg/metrics"
)

const (
	streamWriteTimeout = 10 * time.Second
	// streamIdleTimeout bounds how long a client may wait before asking for
	// the next page.
	streamIdleTimeout = 5 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleStream walks all items of a query over a websocket. The query comes
// in the URL parameters. After the init message the server sends one page
// per "next" message from the client, then a done message.
func (s *Server) HandleStream(w http.ResponseWriter, r *http.Request) {
	req, err := queryRequestFromValues(r.URL.Query())
	if err != nil {
		s.writeProviderError(w, err)
		metrics.ObserveAPI("stream", statusFor(err))
		return
	}
	q, err := req.Query()
	if err != nil {
		s.writeProviderError(w, err)
		metrics.ObserveAPI("stream", statusFor(err))
		return
	}
	provider, err := s.registry.ProviderFor(req.Platform)
	if err != nil {
		s.writeProviderError(w, err)
		metrics.ObserveAPI("stream", statusFor(err))
		return
	}
	walker, err := provider.AllItems(q)
	if err != nil {
		s.writeProviderError(w, err)
		metrics.ObserveAPI("stream", statusFor(err))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already answered the client
		s.logger.Warnf("websocket upgrade failed: %v", err)
		metrics.ObserveAPI("stream", http.StatusBadRequest)
		return
	}
	defer conn.Close()
	metrics.ObserveAPI("stream", http.StatusSwitchingProtocols)

	send := func(msg StreamMessage) error {
		if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
			return err
		}
		return conn.WriteJSON(msg)
	}

	if err := send(StreamMessage{Type: streamInit, Message: req.Platform}); err != nil {
		s.logger.Debugf("stream init: %v", err)
		return
	}

	ctx := r.Context()
	for {
		if err := conn.SetReadDeadline(time.Now().Add(streamIdleTimeout)); err != nil {
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			// client went away; the walker holds nothing to release
			s.logger.Debugf("stream closed after %d pages: %v", walker.Pages(), err)
			return
		}
		if !isNext(data) {
			_ = send(StreamMessage{Type: streamError, Message: "expected \"next\""})
			continue
		}

		if !walker.Next(ctx) {
			if err := walker.Err(); err != nil {
				_ = send(StreamMessage{Type: streamError, Message: err.Error()})
			} else {
				_ = send(StreamMessage{Type: streamDone, Page: walker.Pages()})
			}
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(streamWriteTimeout))
			return
		}
		if err := send(StreamMessage{Type: streamPage, Page: walker.Pages(), Rows: walker.Page()}); err != nil {
			s.logger.Debugf("stream write: %v", err)
			return
		}
	}
}

// isNext accepts both the bare word and {"type": "next"}.
func isNext(data []byte) bool {
	if strings.TrimSpace(string(data)) == streamNext {
		return true
	}
	var msg StreamMessage
	return json.Unmarshal(data, &msg) == nil && msg.Type == streamNext
}
