package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/KyleGal/live-translation-api/internal/session"
)

type wsUpgrader = websocket.Upgrader

func newWSUpgrader() wsUpgrader {
	return websocket.Upgrader{
		ReadBufferSize:  8192,
		WriteBufferSize: 8192,
		// Browser clients connect from arbitrary origins during development.
		CheckOrigin: func(r *http.Request) bool { return true },
	}
}

// handleWebSocket implements the WebSocket ingest endpoint. Binary messages
// carry raw PCM chunks; the server pushes session events back as JSON text
// messages. Closing the socket ends the session.
func (h *HTTPServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	overrides := session.Config{
		Language: r.URL.Query().Get("language"),
	}
	if sr := r.URL.Query().Get("sample_rate"); sr != "" {
		rate, err := strconv.Atoi(sr)
		if err != nil || rate <= 0 {
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid sample_rate"),
				time.Now().Add(time.Second))
			return
		}
		overrides.SampleRate = rate
	}

	sess, err := h.sessionMgr.CreateSession(r.Context(), overrides)
	if err != nil {
		h.logger.Error("Failed to create session", slog.String("error", err.Error()))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "session creation failed"),
			time.Now().Add(time.Second))
		return
	}

	h.logger.Info("WebSocket session opened",
		slog.String("session_id", sess.ID),
		slog.String("remote", r.RemoteAddr))

	// Writer: forward ordered session events as JSON text messages. Only
	// this goroutine writes to the connection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sess.Events() {
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}()

	// Reader: binary frames are PCM chunks for the ingest path.
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		if err := sess.Write(data); err != nil {
			h.logger.Warn("Chunk rejected",
				slog.String("session_id", sess.ID),
				slog.String("error", err.Error()))
		}
	}

	h.sessionMgr.RemoveSession(sess.ID)
	h.saveRecording(sess)
	<-done

	h.logger.Info("WebSocket session closed", slog.String("session_id", sess.ID))
}
