// internal/httpserver/ws.go
//
// Websocket play: each text frame from the client is one turn's content,
// each reply is the same JSON body POST /episodes/{id}/turns returns.
// The server closes the socket once the episode is done.

package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/connections/internal/game"
	"github.com/robalobadob/connections/internal/store"
)

const (
	wsWriteWait = 10 * time.Second
	wsReadLimit = 8 << 10
)

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == s.cfg.ClientOrigin
		},
	}
}

type wsError struct {
	Error string `json:"error"`
}

func (s *Server) handleEpisodeWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.deps.Store.Get(r.Context(), id); err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("episode", id).Msg("ws upgrade")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("episode", id).Msg("ws read")
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		res, err := s.playTurn(r.Context(), id, string(msg))
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		switch {
		case errors.Is(err, game.ErrEpisodeOver), errors.Is(err, store.ErrNotFound):
			_ = conn.WriteJSON(wsError{Error: "episode_over"})
			closeWS(conn)
			return
		case err != nil:
			log.Error().Err(err).Str("episode", id).Msg("ws turn")
			_ = conn.WriteJSON(wsError{Error: "turn_failed"})
			return
		}
		if err := conn.WriteJSON(res); err != nil {
			return
		}
		if res.Done {
			closeWS(conn)
			return
		}
	}
}

func closeWS(conn *websocket.Conn) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "episode over"),
		time.Now().Add(wsWriteWait))
}
