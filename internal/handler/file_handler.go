package handler

import (
	"net/http"
	"strings"

	"policethief/internal/app/inquiry"
	"policethief/internal/pkg/errs"
	"policethief/internal/pkg/logx"
	"policethief/internal/pkg/req"
	"policethief/internal/pkg/resp"
)

// PresignUploadInput defines the JSON input structure for generating upload URL.
type PresignUploadInput struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignAttachment issues a time-limited PUT URL for one inquiry screenshot, keyed
// under the caller's prefix.
func HandlePresignAttachment(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.StorageService == nil {
			resp.RespondError(w, errs.NewError(errs.ErrStorageUnavailable))
			return
		}

		var input PresignUploadInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, customErr)
			return
		}

		if err := inquiry.ValidateFileSize(input.FileSize); err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}
		mimeType := strings.ToLower(input.MimeType)
		if err := inquiry.ValidateFileType(input.FileName, mimeType); err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}

		fileKey := inquiry.AttachmentKey(identity(r).ID, input.FileName)

		url, err := deps.StorageService.PresignUpload(r.Context(), fileKey, mimeType, input.FileSize, inquiry.PresignedURLDuration)
		if err != nil {
			logx.Error(err, "presign upload failed", "key", fileKey)
			resp.RespondError(w, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		resp.RespondSuccess(w, map[string]any{
			"presignedUrl": url,
			"fileKey":      fileKey,
			"fileName":     input.FileName,
		})
	}
}

// inquiryResponse carries short-lived download URLs for the attachments.
type inquiryResponse struct {
	inquiry.Inquiry
	AttachmentURLs []string `json:"attachmentUrls"`
}

func (deps *AppDeps) withDownloadURLs(r *http.Request, in inquiry.Inquiry) inquiryResponse {
	out := inquiryResponse{Inquiry: in, AttachmentURLs: []string{}}
	if deps.StorageService == nil {
		return out
	}

	for _, key := range in.AttachmentKeys {
		url, err := deps.StorageService.PresignDownload(r.Context(), key, inquiry.PresignedURLDuration)
		if err != nil {
			logx.Warn("presign download failed", "key", key, "error", err.Error())
			continue
		}
		out.AttachmentURLs = append(out.AttachmentURLs, url)
	}
	return out
}

// HandleSubmitInquiry stores a customer-service inquiry.
func HandleSubmitInquiry(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input inquiry.Submission
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, customErr)
			return
		}

		in, err := deps.Inquiries.Submit(r.Context(), identity(r).ID, input)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}
		resp.RespondCreated(w, deps.withDownloadURLs(r, in))
	}
}

// HandleListInquiries returns the caller's inquiries, newest first.
func HandleListInquiries(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ins, err := deps.Inquiries.Mine(r.Context(), identity(r).ID)
		if err != nil {
			resp.RespondError(w, errs.FromDomain(err))
			return
		}

		out := make([]inquiryResponse, len(ins))
		for i, in := range ins {
			out[i] = deps.withDownloadURLs(r, in)
		}
		resp.RespondSuccess(w, out)
	}
}
