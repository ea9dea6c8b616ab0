// Attachment HTTP handlers.
//
// This file exposes the multipart submission endpoint and blob retrieval:
//   - POST /api/message-with-files  (submission with one or more attachments)
//   - GET  /uploads/:key            (stable retrieval by storage key)
//   - GET  /uploads/thumb/:key      (JPEG preview for image attachments)
//
// Every uploaded file becomes an Attachment with a server-generated storage
// key; the attachment metadata travels with the queued message or published
// response, the payload stays in the blob directory.
package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-relay-backend/internal/domain"
	"github.com/tbourn/go-relay-backend/internal/http/middleware"
	"github.com/tbourn/go-relay-backend/internal/services"
	"github.com/tbourn/go-relay-backend/internal/texts"
)

// PostMessageWithFiles accepts a multipart submission: the same fields as
// PostMessage plus any number of file parts (the browser client names them
// file_0, file_1, ...; any field name is accepted). An empty message with
// at least one file is a valid submission.
func (h *Handlers) PostMessageWithFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadLarge, "request body too large")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart form required")
		return
	}

	get := func(k string) string {
		if vs := form.Value[k]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	files := collectFiles(form)
	atts := make([]domain.Attachment, 0, len(files))
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeUploadFailed, "unreadable file part")
			return
		}
		att, err := h.uploadSvc.Save(fh.Filename, src)
		src.Close()
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, err.Error())
			return
		}
		atts = append(atts, att)
	}

	res, err := h.relaySvc.Submit(c.Request.Context(), services.Submission{
		UserID:       get("userId"),
		Username:     get("username"),
		Text:         sanitizeText(get("message")),
		Attachments:  atts,
		TargetUserID: get("targetUserId"),
		ClaimedAdmin: strings.EqualFold(get("isAdmin"), "true"),
	})
	if err != nil {
		submitErr(c, err)
		return
	}

	lg := middleware.LoggerFrom(c)
	lg.Info().
		Int("files", len(atts)).
		Bool("admin", res.Admin).
		Msg("submission with files")

	if res.Admin {
		ok(c, http.StatusOK, SubmitResponse{
			Status:    "admin response with files sent",
			Message:   "Admin response with files processed",
			FileCount: intPtr(len(atts)),
		})
		return
	}

	p := texts.Printer(c.GetHeader("Accept-Language"))
	ok(c, http.StatusOK, SubmitResponse{
		Status:    "received with files",
		Message:   p.Sprintf(texts.WaitingFiles, len(atts)),
		FileCount: intPtr(len(atts)),
		IsAdmin:   boolPtr(false),
	})
}

// ServeUpload streams a stored attachment payload by its storage key.
func (h *Handlers) ServeUpload(c *gin.Context) {
	path, err := h.uploadSvc.Path(c.Param("key"))
	if err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "attachment not found")
		return
	}
	c.File(path)
}

// ServeThumbnail renders an image attachment as a bounded JPEG preview.
// Non-image attachments yield 404 so <img> fallbacks degrade quietly.
func (h *Handlers) ServeThumbnail(c *gin.Context) {
	thumb, err := h.uploadSvc.Thumbnail(c.Param("key"))
	if err != nil {
		switch err {
		case services.ErrUnknownAttachment, services.ErrNotImage:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no preview for this attachment")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	c.Data(http.StatusOK, "image/jpeg", thumb)
}

// collectFiles flattens every file part of the form, in deterministic field
// order so attachment order matches what the client attached. Field names
// with numeric suffixes (file_0, file_1, ... file_10) sort by suffix value,
// not lexically.
func collectFiles(form *multipart.Form) []*multipart.FileHeader {
	keys := make([]string, 0, len(form.File))
	for k := range form.File {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return fieldNameLess(keys[i], keys[j]) })

	var out []*multipart.FileHeader
	for _, k := range keys {
		out = append(out, form.File[k]...)
	}
	return out
}

func fieldNameLess(a, b string) bool {
	ap, an, aok := splitNumSuffix(a)
	bp, bn, bok := splitNumSuffix(b)
	if aok && bok && ap == bp {
		return an < bn
	}
	return a < b
}

// splitNumSuffix splits "file_10" into ("file_", 10, true); names without a
// trailing number report ok=false.
func splitNumSuffix(s string) (prefix string, n int, ok bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return s, 0, false
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil {
		return s, 0, false
	}
	return s[:i], n, true
}
