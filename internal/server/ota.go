package server

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/muurk/otastub/internal/logging"
	"github.com/muurk/otastub/internal/protocol"
)

// handleOTA answers a device check-in with the session URL and server time.
// The request body is ignored.
func (s *Server) handleOTA(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path)

	resp := protocol.NewOTAResponse(s.config.WebSocketURL(), s.now())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error("Failed to write OTA response",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	logging.Debug("OTA response sent",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("websocket_url", resp.WebSocket.URL),
		zap.Int64("timestamp", resp.ServerTime.Timestamp),
	)
}
