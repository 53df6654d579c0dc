/*
Package handler provides the HTTP handlers and routing setup for the Police and Thief server.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"policethief/internal/pkg/auth/jwt"
	"policethief/internal/pkg/limiter"
	"policethief/internal/pkg/logx"
	"policethief/internal/pkg/resp"
)

const (
	AuthRate     = 0.2
	AuthBurst    = 5
	CreateRate   = 0.05
	CreateBurst  = 2
	CheckInRate  = 0.5
	CheckInBurst = 5
	WSRate       = 0.2
	WSBurst      = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global and per-route middleware.
// The returned stop function releases the limiters' sweeping goroutines.
func Router(deps *AppDeps) (http.Handler, func()) {
	authLimiter := limiter.NewIPRateLimiter(rate.Limit(AuthRate), AuthBurst, 0)
	createLimiter := limiter.NewIPRateLimiter(rate.Limit(CreateRate), CreateBurst, 0)
	checkInLimiter := limiter.NewIPRateLimiter(rate.Limit(CheckInRate), CheckInBurst, 0)
	wsLimiter := limiter.NewIPRateLimiter(rate.Limit(WSRate), WSBurst, 0)

	stop := func() {
		authLimiter.Stop()
		createLimiter.Stop()
		checkInLimiter.Stop()
		wsLimiter.Stop()
	}

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, map[string]string{
			"status":  "ok",
			"service": "Police and Thief Server",
		})
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(g chi.Router) {
		g.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		g.Route("/api", func(api chi.Router) {
			api.Route("/auth", func(auth chi.Router) {
				auth.Use(authLimiter.Middleware)
				auth.Post("/register", HandleRegister(deps))
				auth.Post("/login", HandleLogin(deps))
			})

			api.Group(func(authed chi.Router) {
				authed.Use(jwt.RequireIdentity)

				authed.Route("/user", func(u chi.Router) {
					u.Get("/profile", HandleGetUserProfile(deps))
					u.Post("/outfit", HandleUpdateOutfit(deps))
					u.Get("/avatars", HandleListAvatars(deps))
					u.Get("/history", HandleUserHistory(deps))
					u.Get("/notifications", HandleListNotifications(deps))
					u.Get("/notifications/settings", HandleGetNotificationSettings(deps))
					u.Post("/notifications/settings", HandleUpdateNotificationSettings(deps))
				})

				authed.Route("/meetings", func(m chi.Router) {
					m.With(createLimiter.Middleware).Post("/", HandleCreateMeeting(deps))
					m.Get("/", HandleListMeetings(deps))
					m.Get("/mine", HandleMyMeetings(deps))

					m.Route("/{id}", func(one chi.Router) {
						one.Get("/", HandleGetMeeting(deps))
						one.Post("/join", HandleJoinMeeting(deps))
						one.Get("/qr", HandleAttendanceQR(deps))
						one.With(checkInLimiter.Middleware).Post("/check-in", HandleCheckIn(deps))
						one.Post("/settings", HandleUpdateSettings(deps))
						one.Post("/rounds", HandleStartRound(deps))
						one.Get("/rounds", HandleMeetingHistory(deps))
						one.Post("/rounds/finish", HandleFinishRound(deps))
						one.Post("/end", HandleEndMeeting(deps))
						one.Get("/messages", HandleListMessages(deps))
						one.Post("/messages", HandlePostMessage(deps))
					})
				})

				authed.Route("/inquiries", func(in chi.Router) {
					in.Post("/", HandleSubmitInquiry(deps))
					in.Get("/", HandleListInquiries(deps))
					in.Post("/attachments/presign", HandlePresignAttachment(deps))
				})
			})
		})

		g.Get("/ws/{id}", HandleWebSocket(deps, wsUpgrader, wsLimiter))
	})

	return r, stop
}
