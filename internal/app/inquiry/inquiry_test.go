package inquiry_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policethief/internal/app/inquiry"
	"policethief/internal/app/memstore"
	"policethief/internal/app/storage"
)

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := inquiry.NewService(store, nil)

	key := inquiry.AttachmentKey("u1", "Screen.PNG")
	assert.True(t, strings.HasPrefix(key, "inquiries/u1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	in, err := svc.Submit(ctx, "u1", inquiry.Submission{
		Reason:         "BUG_REPORT",
		Content:        "  the timer froze  ",
		AttachmentKeys: []string{key},
	})
	require.NoError(t, err)
	assert.Equal(t, "the timer froze", in.Content)
	assert.Equal(t, inquiry.StatusOpen, in.Status)

	mine, err := svc.Mine(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, in.ID, mine[0].ID)
}

func TestSubmitValidation(t *testing.T) {
	svc := inquiry.NewService(memstore.New(), nil)
	own := inquiry.AttachmentKey("u1", "a.jpg")

	tests := []struct {
		name string
		sub  inquiry.Submission
		err  error
	}{
		{name: "reason", sub: inquiry.Submission{Reason: "SPAM", Content: "x"}, err: inquiry.ErrInvalidReason},
		{name: "empty", sub: inquiry.Submission{Reason: "OTHER", Content: "  "}, err: inquiry.ErrInvalidContent},
		{name: "too long", sub: inquiry.Submission{Reason: "OTHER", Content: strings.Repeat("a", inquiry.MaxContentLength+1)}, err: inquiry.ErrInvalidContent},
		{name: "too many", sub: inquiry.Submission{Reason: "OTHER", Content: "x", AttachmentKeys: []string{own, own, own, own}}, err: inquiry.ErrTooManyAttachments},
		{name: "foreign key", sub: inquiry.Submission{Reason: "OTHER", Content: "x", AttachmentKeys: []string{inquiry.AttachmentKey("u2", "a.jpg")}}, err: inquiry.ErrInvalidAttachment},
		{name: "traversal", sub: inquiry.Submission{Reason: "OTHER", Content: "x", AttachmentKeys: []string{"inquiries/u1/../u2/a.jpg"}}, err: inquiry.ErrInvalidAttachment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), "u1", tt.sub)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestValidateFile(t *testing.T) {
	assert.NoError(t, inquiry.ValidateFileType("shot.jpeg", "image/jpeg"))
	assert.NoError(t, inquiry.ValidateFileType("shot.PNG", "IMAGE/PNG"))
	assert.ErrorIs(t, inquiry.ValidateFileType("shot.png", "image/jpeg"), inquiry.ErrInvalidFileType)
	assert.ErrorIs(t, inquiry.ValidateFileType("shot.gif", "image/gif"), inquiry.ErrInvalidFileType)
	assert.ErrorIs(t, inquiry.ValidateFileType("noext", "image/png"), inquiry.ErrInvalidFileType)

	assert.NoError(t, inquiry.ValidateFileSize(1024))
	assert.ErrorIs(t, inquiry.ValidateFileSize(0), inquiry.ErrFileTooLarge)
	assert.ErrorIs(t, inquiry.ValidateFileSize(inquiry.MaxAttachmentSize+1), inquiry.ErrFileTooLarge)
}

type bucket map[string]storage.ObjectInfo

func (b bucket) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	if key == "inquiries/u1/broken.png" {
		return storage.ObjectInfo{}, errors.New("connection reset")
	}
	info, ok := b[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrNotFound
	}
	return info, nil
}

func TestSubmitVerifiesUploads(t *testing.T) {
	ok := inquiry.AttachmentKey("u1", "a.png")
	huge := inquiry.AttachmentKey("u1", "b.png")
	mislabeled := inquiry.AttachmentKey("u1", "c.png")
	missing := inquiry.AttachmentKey("u1", "d.png")

	svc := inquiry.NewService(memstore.New(), bucket{
		ok:         {ContentType: "image/png", Size: 2048},
		huge:       {ContentType: "image/png", Size: inquiry.MaxAttachmentSize + 1},
		mislabeled: {ContentType: "image/jpeg", Size: 2048},
	})

	submit := func(key string) error {
		_, err := svc.Submit(context.Background(), "u1", inquiry.Submission{Reason: "OTHER", Content: "x", AttachmentKeys: []string{key}})
		return err
	}

	assert.NoError(t, submit(ok))
	assert.ErrorIs(t, submit(huge), inquiry.ErrFileTooLarge)
	assert.ErrorIs(t, submit(mislabeled), inquiry.ErrInvalidFileType)
	assert.ErrorIs(t, submit(missing), inquiry.ErrInvalidAttachment)

	err := submit("inquiries/u1/broken.png")
	require.Error(t, err)
	assert.NotErrorIs(t, err, inquiry.ErrInvalidAttachment)
}
