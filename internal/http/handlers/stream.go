package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/darisni/darisni-backend/internal/http/response"
	errs "github.com/darisni/darisni-backend/internal/pkg/errors"
	"github.com/darisni/darisni-backend/internal/platform/dbctx"
	"github.com/darisni/darisni-backend/internal/platform/logger"
	"github.com/darisni/darisni-backend/internal/platform/media"
	"github.com/darisni/darisni-backend/internal/services"
)

// streamBufferSize is the read/write granularity of the copy loop. Each
// chunk is flushed so playback starts before the whole range is read.
const streamBufferSize = 64 << 10

type StreamHandler struct {
	log     *logger.Logger
	catalog services.CatalogService
	store   media.Store
}

func NewStreamHandler(log *logger.Logger, catalog services.CatalogService, store media.Store) *StreamHandler {
	return &StreamHandler{
		log:     log.With("handler", "StreamHandler"),
		catalog: catalog,
		store:   store,
	}
}

type byteRange struct {
	start int64
	end   int64
}

func parseByteRangeHeader(rangeHeader string, size int64) (byteRange, bool, error) {
	rh := strings.TrimSpace(rangeHeader)
	if rh == "" {
		return byteRange{}, false, nil
	}
	if size <= 0 {
		return byteRange{}, false, fmt.Errorf("unknown object size")
	}
	if !strings.HasPrefix(rh, "bytes=") {
		return byteRange{}, false, fmt.Errorf("unsupported range unit")
	}
	parts := strings.Split(strings.TrimPrefix(rh, "bytes="), ",")
	if len(parts) != 1 {
		return byteRange{}, false, fmt.Errorf("multiple ranges not supported")
	}
	part := strings.TrimSpace(parts[0])
	if part == "" {
		return byteRange{}, false, fmt.Errorf("empty range")
	}

	bounds := strings.Split(part, "-")
	if len(bounds) != 2 {
		return byteRange{}, false, fmt.Errorf("invalid range format")
	}

	// An empty start reads from the beginning of the file, so "bytes=-N"
	// serves the head rather than an RFC 7233 suffix.
	var start int64
	var err error
	if bounds[0] != "" {
		start, err = strconv.ParseInt(bounds[0], 10, 64)
		if err != nil || start < 0 {
			return byteRange{}, false, fmt.Errorf("invalid range start")
		}
	}

	end := size - 1
	if bounds[1] != "" {
		end, err = strconv.ParseInt(bounds[1], 10, 64)
		if err != nil || end < 0 {
			return byteRange{}, false, fmt.Errorf("invalid range end")
		}
	}

	if start >= size || end < start {
		return byteRange{}, false, fmt.Errorf("range out of bounds")
	}
	if end >= size {
		end = size - 1
	}
	return byteRange{start: start, end: end}, true, nil
}

// GET /api/stream?videoId=<id>
func (h *StreamHandler) Stream(c *gin.Context) {
	videoID, err := uuid.Parse(strings.TrimSpace(c.Query("videoId")))
	if err != nil || videoID == uuid.Nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_video_id", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	resolved, err := h.catalog.ResolvePath(dbc, videoID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "video_not_found", nil)
			return
		}
		h.log.Error("ResolvePath failed", "error", err, "video_id", videoID)
		response.RespondError(c, http.StatusInternalServerError, "stream_failed", err)
		return
	}

	size := resolved.Attrs.Size
	contentType := resolved.Asset.MimeType
	if contentType == "" {
		contentType = resolved.Attrs.ContentType
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	rangeHeader := c.GetHeader("Range")
	rng, hasRange, rErr := parseByteRangeHeader(rangeHeader, size)
	if rErr != nil {
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", size))
		response.RespondError(c, http.StatusRequestedRangeNotSatisfiable, "invalid_range", rErr)
		return
	}

	// A request with no Range header, or one starting at byte zero, is a
	// new playback; a mid-file range is a seek inside one already counted.
	if !hasRange || rng.start == 0 {
		h.catalog.RecordView(videoID)
	}

	ctx := c.Request.Context()
	if hasRange {
		length := rng.end - rng.start + 1
		reader, err := h.store.OpenRange(ctx, resolved.Asset.StorageKey, rng.start, length)
		if err != nil {
			h.log.Error("OpenRange failed", "error", err, "video_id", videoID, "storage_key", resolved.Asset.StorageKey)
			response.RespondError(c, http.StatusInternalServerError, "stream_failed", err)
			return
		}
		defer reader.Close()

		c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", rng.start, rng.end, size))
		c.Header("Accept-Ranges", "bytes")
		c.Header("Content-Type", contentType)
		c.Header("Content-Length", strconv.FormatInt(length, 10))
		c.Status(http.StatusPartialContent)
		h.copyChunks(c, reader)
		return
	}

	reader, err := h.store.Open(ctx, resolved.Asset.StorageKey)
	if err != nil {
		h.log.Error("Open failed", "error", err, "video_id", videoID, "storage_key", resolved.Asset.StorageKey)
		response.RespondError(c, http.StatusInternalServerError, "stream_failed", err)
		return
	}
	defer reader.Close()

	c.Header("Accept-Ranges", "bytes")
	c.Header("Content-Type", contentType)
	c.Header("Content-Length", strconv.FormatInt(size, 10))
	c.Status(http.StatusOK)
	h.copyChunks(c, reader)
}

func (h *StreamHandler) copyChunks(c *gin.Context, reader io.Reader) {
	flusher, _ := c.Writer.(http.Flusher)
	buf := make([]byte, streamBufferSize)
	for {
		n, rErr := reader.Read(buf)
		if n > 0 {
			if _, wErr := c.Writer.Write(buf[:n]); wErr != nil {
				// Client went away mid-stream; nothing to report.
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if rErr == io.EOF {
			return
		}
		if rErr != nil {
			h.log.Error("read failed mid-stream", "error", rErr)
			return
		}
	}
}
