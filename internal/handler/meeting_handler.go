/*
Package handler provides HTTP handler functions for meetings: discovery, joining, attendance,
the round lifecycle and the chat feed.
*/
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"policethief/internal/app/game"
	"policethief/internal/app/meeting"
	"policethief/internal/pkg/errs"
	"policethief/internal/pkg/logx"
	"policethief/internal/pkg/req"
	"policethief/internal/pkg/resp"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

func views(ms []*meeting.Meeting, viewerID string) []meeting.View {
	out := make([]meeting.View, len(ms))
	for i, m := range ms {
		out[i] = m.ViewFor(viewerID)
	}
	return out
}

// respondMeeting writes m as the caller sees it, or the translated error.
func respondMeeting(w http.ResponseWriter, r *http.Request, m *meeting.Meeting, err error) {
	if err != nil {
		resp.RespondError(w, errs.FromDomain(err))
		return
	}
	resp.RespondSuccess(w, m.ViewFor(identity(r).ID))
}

// HandleCreateMeeting opens a meeting hosted by the caller.
func HandleCreateMeeting(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var draft meeting.Draft
		if err := req.BindJSON(w, r, &draft); err != nil {
			resp.RespondError(w, err)
			return
		}

		m, err := deps.Meetings.Create(r.Context(), identity(r).ID, draft)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}
		resp.RespondCreated(w, m.ViewFor(identity(r).ID))
	}
}

// HandleListMeetings lists open meetings with the discovery filters.
func HandleListMeetings(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		afterParty, cerr := req.QueryBool(r, "afterParty")
		if cerr != nil {
			resp.RespondError(w, cerr)
			return
		}
		minCutoff, cerr := req.QueryFloat(r, "minCutoff", 0)
		if cerr != nil {
			resp.RespondError(w, cerr)
			return
		}
		limit, cerr := req.QueryInt(r, "limit", defaultListLimit)
		if cerr != nil || limit <= 0 || limit > maxListLimit {
			resp.RespondError(w, errs.NewError(errs.ErrInvalidParams))
			return
		}

		ms, err := deps.Meetings.List(r.Context(), meeting.ListQuery{
			Region:         r.URL.Query().Get("region"),
			AfterPartyOnly: afterParty,
			MinCutoff:      minCutoff,
			Sort:           meeting.ParseSortOrder(r.URL.Query().Get("sort")),
			Limit:          limit,
		})
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}
		resp.RespondSuccess(w, views(ms, identity(r).ID))
	}
}

// HandleMyMeetings lists meetings the caller hosts (role=host) or joined (role=participant).
func HandleMyMeetings(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := r.URL.Query().Get("role")
		switch role {
		case "":
			role = meeting.MineJoined
		case meeting.MineHosted, meeting.MineJoined:
		default:
			resp.RespondError(w, errs.NewError(errs.ErrInvalidParams))
			return
		}

		uid := identity(r).ID
		ms, err := deps.Meetings.Mine(r.Context(), uid, role)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}
		resp.RespondSuccess(w, views(ms, uid))
	}
}

func HandleGetMeeting(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := deps.Meetings.Get(r.Context(), chi.URLParam(r, "id"))
		respondMeeting(w, r, m, err)
	}
}

func HandleJoinMeeting(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := deps.Meetings.Join(r.Context(), identity(r).ID, chi.URLParam(r, "id"))
		respondMeeting(w, r, m, err)
	}
}

// HandleAttendanceQR renders the PNG code participants scan to check in.
func HandleAttendanceQR(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := deps.Meetings.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}
		if !m.IsParticipant(identity(r).ID) {
			resp.RespondError(w, errs.NewError(errs.ErrNotParticipant))
			return
		}

		png, err := meeting.AttendanceQR(m.ID)
		if err != nil {
			resp.RespondError(w, errs.NewError(errs.ErrUnknown, err))
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "private, max-age=3600")
		if _, err := w.Write(png); err != nil {
			logx.Warn("failed to write QR code", "meeting_id", m.ID, "error", err.Error())
		}
	}
}

type CheckInInput struct {
	Code string `json:"code"`
}

// HandleCheckIn admits the caller with a scanned attendance code.
func HandleCheckIn(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input CheckInInput
		if err := req.BindJSON(w, r, &input); err != nil {
			resp.RespondError(w, err)
			return
		}

		uid := identity(r).ID
		res, err := deps.Meetings.CheckIn(r.Context(), uid, chi.URLParam(r, "id"), input.Code)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}

		resp.RespondSuccess(w, map[string]any{
			"meeting":   res.Meeting.ViewFor(uid),
			"user":      newProfileResponse(res.Profile),
			"leveledUp": res.LeveledUp,
		})
	}
}

func HandleUpdateSettings(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var set meeting.Settings
		if err := req.BindJSON(w, r, &set); err != nil {
			resp.RespondError(w, err)
			return
		}

		m, err := deps.Meetings.UpdateSettings(r.Context(), identity(r).ID, chi.URLParam(r, "id"), set)
		respondMeeting(w, r, m, err)
	}
}

func HandleStartRound(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := deps.Meetings.StartRound(r.Context(), identity(r).ID, chi.URLParam(r, "id"))
		respondMeeting(w, r, m, err)
	}
}

type FinishRoundInput struct {
	Winner string `json:"winner"`
}

// HandleFinishRound settles the playing round with the winner the host declares.
func HandleFinishRound(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input FinishRoundInput
		if err := req.BindJSON(w, r, &input); err != nil {
			resp.RespondError(w, err)
			return
		}

		uid := identity(r).ID
		res, err := deps.Meetings.FinishRound(r.Context(), uid, chi.URLParam(r, "id"), game.Role(input.Winner))
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}

		resp.RespondSuccess(w, map[string]any{
			"meeting": res.Meeting.ViewFor(uid),
			"record":  res.Record,
			"awards":  orEmpty(res.Awards),
		})
	}
}

func HandleMeetingHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := deps.Meetings.History(r.Context(), identity(r).ID, chi.URLParam(r, "id"))
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}
		resp.RespondSuccess(w, orEmpty(records))
	}
}

func HandleEndMeeting(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := deps.Meetings.EndMeeting(r.Context(), identity(r).ID, chi.URLParam(r, "id"))
		respondMeeting(w, r, m, err)
	}
}

// HandleListMessages pages backwards through the chat; before is a unix millisecond cursor.
func HandleListMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		beforeMs, cerr := req.QueryInt(r, "before", 0)
		if cerr != nil {
			resp.RespondError(w, cerr)
			return
		}
		limit, cerr := req.QueryInt(r, "limit", defaultListLimit)
		if cerr != nil {
			resp.RespondError(w, cerr)
			return
		}

		var before time.Time
		if beforeMs > 0 {
			before = time.UnixMilli(int64(beforeMs))
		}

		msgs, err := deps.Meetings.Messages(r.Context(), identity(r).ID, chi.URLParam(r, "id"), before, limit)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}
		resp.RespondSuccess(w, orEmpty(msgs))
	}
}

type PostMessageInput struct {
	Content string `json:"content"`
}

// HandlePostMessage appends a TALK message; live rooms receive it through the chat bus.
func HandlePostMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input PostMessageInput
		if err := req.BindJSON(w, r, &input); err != nil {
			resp.RespondError(w, err)
			return
		}

		id := identity(r)
		msg, err := deps.Meetings.PostMessage(r.Context(), chi.URLParam(r, "id"), meeting.Sender{ID: id.ID, Nickname: id.Nickname}, input.Content)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}
		resp.RespondCreated(w, msg)
	}
}
