// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/vastplay/internal/log"
)

// Inbound message types.
const (
	MessageEvent = "event"
	MessageState = "state"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 << 10
)

// InMessage is sent from the player surface to the server. An event may
// carry the player state it was observed in.
type InMessage struct {
	Type  string       `json:"type"`
	Name  string       `json:"name,omitempty"`
	State *PlayerState `json:"state,omitempty"`
}

// handleBus upgrades to the websocket player bus of one session. Only one
// surface may be connected at a time.
func (s *Server) handleBus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, ok := s.bridge(id)
	if !ok {
		writeNotFound(w)
		return
	}
	if !b.connected.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, errors.New("player bus already connected"))
		return
	}
	defer b.connected.Store(false)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.logger.Warn().Err(err).Str(xglog.FieldSessionID, id).Msg("websocket upgrade failed")
		return
	}
	logger := s.logger.With().Str(xglog.FieldSessionID, id).Logger()
	logger.Info().Str(xglog.FieldEvent, "bus.connected").Msg("player bus connected")

	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump(conn, b, stop, logger)
	}()

	// Current state first, so a reconnecting surface can resync.
	st := s.describe(b).Status
	b.player.send(OutMessage{Type: MessageStatus, Status: &st})

	s.readPump(conn, b, logger)
	close(stop)
	<-writerDone
	_ = conn.Close()
	logger.Info().Str(xglog.FieldEvent, "bus.disconnected").Msg("player bus disconnected")
}

func (s *Server) readPump(conn *websocket.Conn, b *bridge, logger zerolog.Logger) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("player bus read failed")
			}
			return
		}

		var msg InMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			b.player.send(OutMessage{Type: MessageError, Error: "invalid message format"})
			continue
		}
		switch msg.Type {
		case MessageState:
			if msg.State != nil {
				b.player.update(*msg.State)
			}
		case MessageEvent:
			if err := s.applyEvent(b, EventRequest{Name: msg.Name, State: msg.State}); err != nil {
				b.player.send(OutMessage{Type: MessageError, Name: msg.Name, Error: err.Error()})
				continue
			}
			st := b.sess.Status()
			b.player.send(OutMessage{Type: MessageStatus, Name: msg.Name, Status: &st})
		default:
			b.player.send(OutMessage{Type: MessageError, Error: "unknown message type " + msg.Type})
		}
	}
}

// writePump is the only writer of conn.
func (s *Server) writePump(conn *websocket.Conn, b *bridge, stop <-chan struct{}, logger zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-b.player.done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
			_ = conn.Close()
			return
		case msg := <-b.player.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warn().Err(err).Msg("player bus write failed")
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, host)
}
