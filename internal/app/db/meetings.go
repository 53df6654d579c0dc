package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"policethief/internal/app/game"
	"policethief/internal/app/meeting"
)

const meetingColumns = `id, title, place_name, latitude, longitude, scheduled_at, host_id, participant_ids,
	checked_in_ids, capacity, min_age, max_age, reputation_cutoff, has_after_party, police_count,
	round_minutes, total_rounds, status, game_status, roles, round_started_at, winner, created_at, updated_at`

func scanMeeting(row pgx.Row) (*meeting.Meeting, error) {
	var (
		m       meeting.Meeting
		started *time.Time
	)
	err := row.Scan(&m.ID, &m.Title, &m.PlaceName, &m.Latitude, &m.Longitude, &m.ScheduledAt, &m.HostID,
		&m.ParticipantIDs, &m.CheckedInIDs, &m.Capacity, &m.MinAge, &m.MaxAge, &m.ReputationCutoff,
		&m.HasAfterParty, &m.PoliceCount, &m.RoundMinutes, &m.TotalRounds, &m.Status, &m.GameStatus,
		&m.Roles, &started, &m.Winner, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, meeting.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan meeting: %w", err)
	}
	if started != nil {
		m.RoundStartedAt = *started
	}
	if len(m.Roles) == 0 {
		m.Roles = nil
	}
	return &m, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func rolesParam(a game.Assignment) game.Assignment {
	if a == nil {
		return game.Assignment{}
	}
	return a
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func (s *Store) CreateMeeting(ctx context.Context, m *meeting.Meeting) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO meetings (`+meetingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		m.ID, m.Title, m.PlaceName, m.Latitude, m.Longitude, m.ScheduledAt, m.HostID, orEmpty(m.ParticipantIDs),
		orEmpty(m.CheckedInIDs), m.Capacity, m.MinAge, m.MaxAge, m.ReputationCutoff, m.HasAfterParty, m.PoliceCount,
		m.RoundMinutes, m.TotalRounds, m.Status, m.GameStatus, rolesParam(m.Roles), nullTime(m.RoundStartedAt),
		m.Winner, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert meeting: %w", err)
	}
	return nil
}

// saveMeeting writes every mutable column of m.
func saveMeeting(ctx context.Context, tx pgx.Tx, m *meeting.Meeting) error {
	_, err := tx.Exec(ctx, `
		UPDATE meetings SET
			title = $2, place_name = $3, latitude = $4, longitude = $5, scheduled_at = $6,
			participant_ids = $7, checked_in_ids = $8, capacity = $9, min_age = $10, max_age = $11,
			reputation_cutoff = $12, has_after_party = $13, police_count = $14, round_minutes = $15,
			total_rounds = $16, status = $17, game_status = $18, roles = $19, round_started_at = $20,
			winner = $21, updated_at = $22
		WHERE id = $1`,
		m.ID, m.Title, m.PlaceName, m.Latitude, m.Longitude, m.ScheduledAt,
		orEmpty(m.ParticipantIDs), orEmpty(m.CheckedInIDs), m.Capacity, m.MinAge, m.MaxAge,
		m.ReputationCutoff, m.HasAfterParty, m.PoliceCount, m.RoundMinutes,
		m.TotalRounds, m.Status, m.GameStatus, rolesParam(m.Roles), nullTime(m.RoundStartedAt),
		m.Winner, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update meeting: %w", err)
	}
	return nil
}

func lockMeeting(ctx context.Context, tx pgx.Tx, id string) (*meeting.Meeting, error) {
	return scanMeeting(tx.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1 FOR UPDATE`, id))
}

func (s *Store) GetMeeting(ctx context.Context, id string) (*meeting.Meeting, error) {
	return scanMeeting(s.pool.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id))
}

func (s *Store) ListMeetings(ctx context.Context) ([]*meeting.Meeting, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+meetingColumns+` FROM meetings
		WHERE status <> $1
		ORDER BY scheduled_at, id`, game.StatusEnded)
	if err != nil {
		return nil, fmt.Errorf("query meetings: %w", err)
	}
	return collect(rows, scanMeeting)
}

func (s *Store) ListUserMeetings(ctx context.Context, userID, role string) ([]*meeting.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE host_id = $1 ORDER BY scheduled_at, id`
	if role != meeting.MineHosted {
		query = `SELECT ` + meetingColumns + ` FROM meetings
			WHERE $1 = ANY(participant_ids) AND host_id <> $1 ORDER BY scheduled_at, id`
	}

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query user meetings: %w", err)
	}
	return collect(rows, scanMeeting)
}

func (s *Store) UpdateMeeting(ctx context.Context, id string, fn func(*meeting.Meeting) error) (*meeting.Meeting, error) {
	var out *meeting.Meeting
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		m, err := lockMeeting(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
		if err := saveMeeting(ctx, tx, m); err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}

func (s *Store) SettleRound(ctx context.Context, id string, fn func(*meeting.Meeting, int) (meeting.HistoryRecord, meeting.Message, error)) (*meeting.Meeting, error) {
	var out *meeting.Meeting
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		m, err := lockMeeting(ctx, tx, id)
		if err != nil {
			return err
		}

		var prior int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM round_history WHERE meeting_id = $1`, id).Scan(&prior); err != nil {
			return fmt.Errorf("count rounds: %w", err)
		}

		rec, msg, err := fn(m, prior)
		if err != nil {
			return err
		}

		if err := saveMeeting(ctx, tx, m); err != nil {
			return err
		}
		if err := insertHistory(ctx, tx, rec); err != nil {
			return err
		}
		if err := insertMessage(ctx, tx, msg); err != nil {
			return err
		}
		out = m
		return nil
	})
	return out, err
}

func (s *Store) CloseMeeting(ctx context.Context, id string, fn func(*meeting.Meeting) (map[string]float64, error)) (*meeting.Meeting, error) {
	var out *meeting.Meeting
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		m, err := lockMeeting(ctx, tx, id)
		if err != nil {
			return err
		}

		deltas, err := fn(m)
		if err != nil {
			return err
		}
		if err := saveMeeting(ctx, tx, m); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for uid, d := range deltas {
			batch.Queue(`UPDATE users SET reputation = reputation + $2 WHERE id = $1`, uid, d)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("apply reputation: %w", err)
		}

		out = m
		return nil
	})
	return out, err
}

const historyColumns = `id, meeting_id, meeting_title, round, winner, roles, played_at, actual_minutes`

func scanHistory(row pgx.Row) (meeting.HistoryRecord, error) {
	var r meeting.HistoryRecord
	if err := row.Scan(&r.ID, &r.MeetingID, &r.MeetingTitle, &r.Round, &r.Winner, &r.Roles, &r.PlayedAt, &r.ActualMinutes); err != nil {
		return meeting.HistoryRecord{}, fmt.Errorf("scan history: %w", err)
	}
	return r, nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, r meeting.HistoryRecord) error {
	_, err := tx.Exec(ctx, `INSERT INTO round_history (`+historyColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.MeetingID, r.MeetingTitle, r.Round, r.Winner, rolesParam(r.Roles), r.PlayedAt, r.ActualMinutes)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, meetingID string) ([]meeting.HistoryRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+historyColumns+` FROM round_history WHERE meeting_id = $1 ORDER BY round`, meetingID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return collect(rows, scanHistory)
}

// ListUserHistory returns the rounds userID held a role in, newest first.
func (s *Store) ListUserHistory(ctx context.Context, userID string) ([]meeting.HistoryRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+historyColumns+` FROM round_history WHERE roles ? $1 ORDER BY played_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user history: %w", err)
	}
	return collect(rows, scanHistory)
}

const messageColumns = `id, meeting_id, kind, sender_id, sender_nickname, content, winner, roles, round, created_at`

func scanMessage(row pgx.Row) (meeting.Message, error) {
	var m meeting.Message
	err := row.Scan(&m.ID, &m.MeetingID, &m.Kind, &m.SenderID, &m.SenderNickname, &m.Content, &m.Winner, &m.Roles, &m.Round, &m.CreatedAt)
	if err != nil {
		return meeting.Message{}, fmt.Errorf("scan message: %w", err)
	}
	if len(m.Roles) == 0 {
		m.Roles = nil
	}
	return m, nil
}

func insertMessage(ctx context.Context, q execer, m meeting.Message) error {
	_, err := q.Exec(ctx, `INSERT INTO messages (`+messageColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.MeetingID, m.Kind, m.SenderID, m.SenderNickname, m.Content, m.Winner, rolesParam(m.Roles), m.Round, m.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return meeting.ErrNotFound
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, msg meeting.Message) error {
	return insertMessage(ctx, s.pool, msg)
}

// ListMessages pages backwards from before and returns the page oldest first.
func (s *Store) ListMessages(ctx context.Context, meetingID string, before time.Time, limit int) ([]meeting.Message, error) {
	if before.IsZero() {
		before = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+` FROM messages
			WHERE meeting_id = $1 AND created_at < $2
			ORDER BY created_at DESC, id DESC
			LIMIT $3
		) page
		ORDER BY created_at, id`, meetingID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return collect(rows, scanMessage)
}
