/*
Package handler provides HTTP handler functions for user authentication and management.
*/
package handler

import (
	"net/http"
	"time"

	"policethief/internal/app/reminder"
	"policethief/internal/app/user"
	"policethief/internal/pkg/errs"
	"policethief/internal/pkg/logx"
	"policethief/internal/pkg/req"
	"policethief/internal/pkg/resp"
)

// loginTouchInterval throttles last_login_at writes from profile reads.
const loginTouchInterval = 30 * time.Minute

const notificationPageSize = 50

// HandleGetUserProfile returns the caller's profile and refreshes last_login_at when it is stale.
func HandleGetUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := identity(r).ID

		profile, err := deps.Users.GetUserByID(r.Context(), uid)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}

		if now := time.Now(); profile.LastLoginAt.IsZero() || now.Sub(profile.LastLoginAt) > loginTouchInterval {
			if err := deps.Users.TouchLogin(r.Context(), uid, now); err != nil {
				logx.Error(err, "get_user_profile: failed to update last_login_at", "user_id", uid)
			}
		}

		resp.RespondSuccess(w, map[string]any{"user": newProfileResponse(profile)})
	}
}

type UpdateOutfitInput struct {
	AvatarID     string   `json:"avatarId"`
	AccessoryIDs []string `json:"accessoryIds"`
}

// HandleUpdateOutfit changes the caller's avatar and accessories.
func HandleUpdateOutfit(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := identity(r).ID

		var input UpdateOutfitInput
		if err := req.BindJSON(w, r, &input); err != nil {
			resp.RespondError(w, err)
			return
		}

		profile, err := deps.Users.GetUserByID(r.Context(), uid)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}

		ordered, err := user.ValidateOutfit(profile.Level, input.AvatarID, input.AccessoryIDs)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}

		updated, err := deps.Users.UpdateOutfit(r.Context(), uid, input.AvatarID, ordered)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}

		resp.RespondSuccess(w, map[string]any{"user": newProfileResponse(updated)})
	}
}

// HandleListAvatars returns the item catalog with the caller's lock state.
func HandleListAvatars(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := deps.Users.GetUserByID(r.Context(), identity(r).ID)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}

		resp.RespondSuccess(w, map[string]any{
			"level": profile.Level,
			"items": user.CatalogFor(profile.Level),
		})
	}
}

// HandleUserHistory lists every round the caller played.
func HandleUserHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := deps.Meetings.UserHistory(r.Context(), identity(r).ID)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}
		resp.RespondSuccess(w, orEmpty(records))
	}
}

// HandleGetNotificationSettings returns every toggle, defaulting to on.
func HandleGetNotificationSettings(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set, err := deps.Reminders.GetSettings(r.Context(), identity(r).ID)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}
		resp.RespondSuccess(w, set.Merge())
	}
}

// HandleUpdateNotificationSettings stores the toggles present in the body.
func HandleUpdateNotificationSettings(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := identity(r).ID

		var input map[string]bool
		if err := req.BindJSON(w, r, &input); err != nil {
			resp.RespondError(w, err)
			return
		}

		set := make(reminder.Settings, len(input))
		for k, on := range input {
			t, err := reminder.ParseAlarmType(k)
			if err != nil {
				resp.RespondError(w, errs.FromDomain(err))
				return
			}
			set[t] = on
		}

		if err := deps.Reminders.SaveSettings(r.Context(), uid, set); err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}

		saved, err := deps.Reminders.GetSettings(r.Context(), uid)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}
		resp.RespondSuccess(w, saved.Merge())
	}
}

// HandleListNotifications returns the caller's newest delivered reminders.
func HandleListNotifications(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns, err := deps.Reminders.ListNotifications(r.Context(), identity(r).ID, notificationPageSize)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}
		resp.RespondSuccess(w, orEmpty(ns))
	}
}
