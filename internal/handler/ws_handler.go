/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting, validating
the meeting and the caller, upgrading the HTTP connection to WebSocket, and initiating the client lifecycle.
*/
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"policethief/internal/app/chat"
	"policethief/internal/pkg/errs"
	"policethief/internal/pkg/limiter"
	"policethief/internal/pkg/logx"
	"policethief/internal/pkg/resp"
)

// initialHistory is how many recent messages INIT_DATA carries.
const initialHistory = 50

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// Reading the meeting here also observes its expiry.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)
		if !rateLimiter.Allow(ip) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		payload := identity(r)
		if payload == nil {
			resp.RespondError(w, errs.NewError(errs.ErrUnauthorized))
			return
		}

		meetingID := chi.URLParam(r, "id")
		m, err := deps.Meetings.Get(r.Context(), meetingID)
		if err != nil {
			logx.Info("WebSocket connection rejected: meeting lookup failed.", "meeting_id", meetingID, "error", err.Error())
			resp.RespondError(w, errs.FromDomain(err))
			return
		}
		if !m.IsParticipant(payload.ID) {
			resp.RespondError(w, errs.NewError(errs.ErrNotParticipant))
			return
		}

		history, err := deps.Meetings.Messages(r.Context(), payload.ID, meetingID, time.Time{}, initialHistory)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}

		logx.Info("Attempting to upgrade connection", "meeting_id", meetingID, "user_id", payload.ID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		sess := chat.Session{UserID: payload.ID, Nickname: payload.Nickname}
		if payload.ExpiresAt > 0 {
			sess.TokenExpiry = time.Unix(payload.ExpiresAt, 0)
		}

		client := deps.Manager.Connect(conn, sess, m, history, deps.Meetings)

		go client.WritePump()

		logx.Info("WebSocket connection established and client registered", "client_id", payload.ID, "meeting_id", meetingID)

		client.ReadPump()
	}
}
