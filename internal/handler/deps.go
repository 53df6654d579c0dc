package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"policethief/internal/app/chat"
	"policethief/internal/app/inquiry"
	"policethief/internal/app/meeting"
	"policethief/internal/app/reminder"
	"policethief/internal/app/storage"
	"policethief/internal/app/user"
	"policethief/internal/configs"
	"policethief/internal/pkg/auth/jwt"
)

// AppDeps is everything the handlers reach into.
type AppDeps struct {
	Config *configs.AppConfig

	Meetings  *meeting.Service
	Users     user.Store
	Inquiries *inquiry.Service
	Reminders reminder.Store

	// StorageService is nil when S3 is not configured.
	StorageService storage.StorageService

	Manager *chat.Manager

	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// identity returns the caller's token payload. Routes behind jwt.RequireIdentity always have one.
func identity(r *http.Request) *jwt.Payload {
	return jwt.GetPayloadFromContext(r)
}

// orEmpty keeps list responses from encoding as null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
