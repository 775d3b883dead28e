package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/darisni/darisni-backend/internal/http/response"
	errs "github.com/darisni/darisni-backend/internal/pkg/errors"
	"github.com/darisni/darisni-backend/internal/platform/dbctx"
	"github.com/darisni/darisni-backend/internal/platform/logger"
	"github.com/darisni/darisni-backend/internal/services"
)

type VideoHandler struct {
	log     *logger.Logger
	catalog services.CatalogService
}

func NewVideoHandler(log *logger.Logger, catalog services.CatalogService) *VideoHandler {
	return &VideoHandler{
		log:     log.With("handler", "VideoHandler"),
		catalog: catalog,
	}
}

// POST /api/videos/upload
func (h *VideoHandler) Upload(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	// Sniff the first bytes; a declared type that disagrees with the
	// content is not trusted.
	sniffFile, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "could_not_read_file", err)
		return
	}
	buf := make([]byte, 512)
	n, _ := sniffFile.Read(buf)
	_ = sniffFile.Close()
	sniffType := http.DetectContentType(buf[:n])
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = sniffType
	}

	file, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "could_not_read_file", err)
		return
	}
	defer file.Close()

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	asset, err := h.catalog.Upload(dbc, services.VideoUpload{
		Title:       strings.TrimSpace(c.PostForm("title")),
		Description: strings.TrimSpace(c.PostForm("description")),
		Subject:     strings.TrimSpace(c.PostForm("subject")),
		LessonRef:   strings.TrimSpace(c.PostForm("lessonRef")),
		UploadedBy:  strings.TrimSpace(c.PostForm("uploadedBy")),
		MimeType:    mimeType,
		SizeBytes:   fh.Size,
	}, file)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidArgument) {
			response.RespondError(c, http.StatusBadRequest, "invalid_upload", err)
			return
		}
		h.log.Error("video upload failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "upload_failed", err)
		return
	}

	response.RespondOK(c, gin.H{"video": asset})
}

// GET /api/videos
func (h *VideoHandler) List(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	rows, err := h.catalog.List(dbc, c.Query("subject"))
	if err != nil {
		h.log.Error("video list failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"videos": rows})
}

// GET /api/videos/:id
func (h *VideoHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_video_id", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	asset, err := h.catalog.Get(dbc, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "video_not_found", nil)
			return
		}
		h.log.Error("video load failed", "error", err, "video_id", id)
		response.RespondError(c, http.StatusInternalServerError, "load_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"video": asset})
}

// DELETE /api/videos/:id
func (h *VideoHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil || id == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_video_id", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.catalog.Delete(dbc, id); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "video_not_found", nil)
			return
		}
		h.log.Error("video delete failed", "error", err, "video_id", id)
		response.RespondError(c, http.StatusInternalServerError, "delete_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
