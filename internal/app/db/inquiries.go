package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"policethief/internal/app/inquiry"
)

func (s *Store) CreateInquiry(ctx context.Context, in inquiry.Inquiry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO inquiries (id, user_id, reason, content, attachment_keys, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		in.ID, in.UserID, in.Reason, in.Content, orEmpty(in.AttachmentKeys), in.Status, in.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert inquiry: %w", err)
	}
	return nil
}

func scanInquiry(row pgx.Row) (inquiry.Inquiry, error) {
	var in inquiry.Inquiry
	if err := row.Scan(&in.ID, &in.UserID, &in.Reason, &in.Content, &in.AttachmentKeys, &in.Status, &in.CreatedAt); err != nil {
		return inquiry.Inquiry{}, fmt.Errorf("scan inquiry: %w", err)
	}
	return in, nil
}

// ListInquiries returns userID's inquiries, newest first.
func (s *Store) ListInquiries(ctx context.Context, userID string) ([]inquiry.Inquiry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, reason, content, attachment_keys, status, created_at FROM inquiries
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query inquiries: %w", err)
	}
	return collect(rows, scanInquiry)
}
