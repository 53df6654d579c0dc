/*
Package inquiry handles customer-service inquiries: bug reports, feature requests, reports
about other players. An inquiry may carry a few screenshots uploaded beforehand through a
presigned URL.
*/
package inquiry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"policethief/internal/app/storage"
	"policethief/internal/pkg/randx"
)

// Reason categorises an inquiry.
type Reason string

const (
	ReasonFeatureRequest Reason = "FEATURE_REQUEST"
	ReasonBugReport      Reason = "BUG_REPORT"
	ReasonUserReport     Reason = "USER_REPORT"
	ReasonPraise         Reason = "PRAISE"
	ReasonOther          Reason = "OTHER"
)

// StatusOpen is the state of every new inquiry.
const StatusOpen = "open"

const (
	MaxContentLength = 2000
	MaxAttachments   = 3

	// MaxAttachmentSizeMB is the largest screenshot accepted, in megabytes.
	MaxAttachmentSizeMB = 5
	MaxAttachmentSize   = MaxAttachmentSizeMB * 1024 * 1024

	// PresignedURLDuration is how long an upload URL stays valid.
	PresignedURLDuration = 5 * time.Minute

	// KeyPrefix roots every attachment object key.
	KeyPrefix = "inquiries"
)

var (
	ErrInvalidReason      = errors.New("inquiry: unknown reason")
	ErrInvalidContent     = errors.New("inquiry: content is empty or too long")
	ErrTooManyAttachments = errors.New("inquiry: too many attachments")
	ErrInvalidAttachment  = errors.New("inquiry: attachment key does not belong to the caller")
	ErrFileTooLarge       = errors.New("inquiry: file is too large")
	ErrInvalidFileType    = errors.New("inquiry: file type is not allowed")
)

// AllowedMIMETypes are the image types accepted as screenshots.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// ExtToMIME maps a file extension to the MIME type it must be uploaded with.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ParseReason validates a reason name.
func ParseReason(s string) (Reason, error) {
	switch r := Reason(s); r {
	case ReasonFeatureRequest, ReasonBugReport, ReasonUserReport, ReasonPraise, ReasonOther:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidReason, s)
	}
}

// Inquiry is one submitted request.
type Inquiry struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Reason         Reason    `json:"reason"`
	Content        string    `json:"content"`
	AttachmentKeys []string  `json:"attachmentKeys"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Store persists inquiries.
type Store interface {
	CreateInquiry(ctx context.Context, in Inquiry) error
	ListInquiries(ctx context.Context, userID string) ([]Inquiry, error)
}

// ValidateFileSize checks an upload's declared size.
func ValidateFileSize(size int64) error {
	if size <= 0 || size > MaxAttachmentSize {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}
	return nil
}

// ValidateFileType checks that the extension and MIME type agree and are allowed.
func ValidateFileType(fileName, mimeType string) error {
	mimeType = strings.ToLower(mimeType)
	if _, ok := AllowedMIMETypes[mimeType]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidFileType, mimeType)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if expected, ok := ExtToMIME[ext]; !ok || expected != mimeType {
		return fmt.Errorf("%w: %q as %s", ErrInvalidFileType, fileName, mimeType)
	}
	return nil
}

// AttachmentKey builds the object key for a caller's screenshot.
func AttachmentKey(userID, fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return fmt.Sprintf("%s/%s/%s%s", KeyPrefix, userID, randx.ID(), ext)
}

func ownsKey(userID, key string) bool {
	prefix := fmt.Sprintf("%s/%s/", KeyPrefix, userID)
	rest, ok := strings.CutPrefix(key, prefix)
	return ok && rest != "" && !strings.Contains(rest, "/") && !strings.Contains(rest, "..")
}

// ObjectStat looks up uploaded attachments.
type ObjectStat interface {
	Stat(ctx context.Context, key string) (storage.ObjectInfo, error)
}

// Service accepts inquiries.
type Service struct {
	store   Store
	objects ObjectStat
	now     func() time.Time
}

// NewService returns a Service over store. When objects is non-nil every attachment must
// already be uploaded with an allowed type and size.
func NewService(store Store, objects ObjectStat) *Service {
	return &Service{store: store, objects: objects, now: time.Now}
}

func (s *Service) verifyUploaded(ctx context.Context, key string) error {
	if s.objects == nil {
		return nil
	}

	info, err := s.objects.Stat(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %q was never uploaded", ErrInvalidAttachment, key)
	case err != nil:
		return fmt.Errorf("stat attachment: %w", err)
	}

	if err := ValidateFileSize(info.Size); err != nil {
		return err
	}
	if err := ValidateFileType(key, info.ContentType); err != nil {
		return err
	}
	return nil
}

// Submission is the caller's input.
type Submission struct {
	Reason         string   `json:"reason"`
	Content        string   `json:"content"`
	AttachmentKeys []string `json:"attachmentKeys"`
}

// Submit validates and stores an inquiry.
func (s *Service) Submit(ctx context.Context, userID string, sub Submission) (Inquiry, error) {
	reason, err := ParseReason(sub.Reason)
	if err != nil {
		return Inquiry{}, err
	}

	content := strings.TrimSpace(sub.Content)
	if content == "" || utf8.RuneCountInString(content) > MaxContentLength {
		return Inquiry{}, ErrInvalidContent
	}

	if len(sub.AttachmentKeys) > MaxAttachments {
		return Inquiry{}, ErrTooManyAttachments
	}
	keys := make([]string, 0, len(sub.AttachmentKeys))
	for _, k := range sub.AttachmentKeys {
		if !ownsKey(userID, k) {
			return Inquiry{}, fmt.Errorf("%w: %q", ErrInvalidAttachment, k)
		}
		if err := s.verifyUploaded(ctx, k); err != nil {
			return Inquiry{}, err
		}
		keys = append(keys, k)
	}

	in := Inquiry{
		ID:             randx.ID(),
		UserID:         userID,
		Reason:         reason,
		Content:        content,
		AttachmentKeys: keys,
		Status:         StatusOpen,
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateInquiry(ctx, in); err != nil {
		return Inquiry{}, fmt.Errorf("create inquiry: %w", err)
	}
	return in, nil
}

// Mine lists the caller's inquiries, newest first.
func (s *Service) Mine(ctx context.Context, userID string) ([]Inquiry, error) {
	return s.store.ListInquiries(ctx, userID)
}
