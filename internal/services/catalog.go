package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/darisni/darisni-backend/internal/data/repos/videos"
	types "github.com/darisni/darisni-backend/internal/domain"
	errs "github.com/darisni/darisni-backend/internal/pkg/errors"
	"github.com/darisni/darisni-backend/internal/platform/dbctx"
	"github.com/darisni/darisni-backend/internal/platform/logger"
	"github.com/darisni/darisni-backend/internal/platform/media"
	"github.com/darisni/darisni-backend/internal/utils"
)

// allowedVideoMimeTypes maps accepted upload MIME types to the extension
// used for the stored file.
var allowedVideoMimeTypes = map[string]string{
	"video/mp4":        ".mp4",
	"video/webm":       ".webm",
	"video/quicktime":  ".mov",
	"video/x-matroska": ".mkv",
	"video/mpeg":       ".mpg",
}

type VideoUpload struct {
	Title       string
	Description string
	Subject     string
	LessonRef   string
	UploadedBy  string
	MimeType    string
	SizeBytes   int64
}

// ResolvedVideo pairs a catalog row with the on-disk attributes of its
// backing file, ready to be streamed.
type ResolvedVideo struct {
	Asset *types.VideoAsset
	Attrs *media.ObjectAttrs
}

type CatalogService interface {
	Upload(dbc dbctx.Context, upload VideoUpload, file io.Reader) (*types.VideoAsset, error)
	// ResolvePath loads the asset and stats its backing file. ErrNotFound
	// covers both a missing row and a missing file.
	ResolvePath(dbc dbctx.Context, id uuid.UUID) (*ResolvedVideo, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.VideoAsset, error)
	List(dbc dbctx.Context, subject string) ([]*types.VideoAsset, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
	// RecordView counts one playback start. Fire-and-forget.
	RecordView(videoID uuid.UUID)
}

type catalogService struct {
	log           *logger.Logger
	store         media.Store
	videoRepo     videos.VideoAssetRepo
	viewCounter   ViewCounter
	maxUploadSize int64
}

func NewCatalogService(
	baseLog *logger.Logger,
	store media.Store,
	videoRepo videos.VideoAssetRepo,
	viewCounter ViewCounter,
) CatalogService {
	serviceLog := baseLog.With("service", "CatalogService")
	maxUploadMB := utils.GetEnvAsInt64("VIDEO_MAX_UPLOAD_MB", 2048, serviceLog)
	return &catalogService{
		log:           serviceLog,
		store:         store,
		videoRepo:     videoRepo,
		viewCounter:   viewCounter,
		maxUploadSize: maxUploadMB * 1024 * 1024,
	}
}

func (s *catalogService) Upload(dbc dbctx.Context, upload VideoUpload, file io.Reader) (*types.VideoAsset, error) {
	mimeType := strings.ToLower(strings.TrimSpace(upload.MimeType))
	ext, ok := allowedVideoMimeTypes[mimeType]
	if !ok {
		return nil, fmt.Errorf("unsupported video type %q: %w", upload.MimeType, errs.ErrInvalidArgument)
	}
	if upload.SizeBytes > s.maxUploadSize {
		return nil, fmt.Errorf("upload of %d bytes exceeds limit: %w", upload.SizeBytes, errs.ErrInvalidArgument)
	}
	subject := strings.ToLower(strings.TrimSpace(upload.Subject))
	if subject == "" {
		return nil, fmt.Errorf("subject required: %w", errs.ErrInvalidArgument)
	}

	id := uuid.New()
	key := fmt.Sprintf("videos/%s/%s%s", subject, id.String(), ext)

	// Reject oversize bodies even when the declared size lied.
	written, err := s.store.Save(dbc.Ctx, key, io.LimitReader(file, s.maxUploadSize+1))
	if err != nil {
		s.log.Error("video write failed", "error", err, "storage_key", key)
		return nil, fmt.Errorf("store video: %w", errs.ErrStorage)
	}
	if written > s.maxUploadSize {
		_ = s.store.Delete(dbc.Ctx, key)
		return nil, fmt.Errorf("upload exceeds limit of %d bytes: %w", s.maxUploadSize, errs.ErrInvalidArgument)
	}

	asset := &types.VideoAsset{
		ID:          id,
		Title:       strings.TrimSpace(upload.Title),
		Description: strings.TrimSpace(upload.Description),
		StorageKey:  key,
		MimeType:    mimeType,
		SizeBytes:   written,
		UploadedBy:  strings.TrimSpace(upload.UploadedBy),
		Subject:     subject,
		LessonRef:   strings.TrimSpace(upload.LessonRef),
		Status:      types.VideoStatusCompleted,
	}
	if _, err := s.videoRepo.Create(dbc, []*types.VideoAsset{asset}); err != nil {
		// Row and file live or die together.
		if dErr := s.store.Delete(dbc.Ctx, key); dErr != nil {
			s.log.Error("orphaned video file after failed insert", "error", dErr, "storage_key", key)
		}
		s.log.Error("video insert failed", "error", err, "storage_key", key)
		return nil, fmt.Errorf("register video: %w", errs.ErrStorage)
	}

	s.log.Info("video uploaded",
		"video_id", asset.ID,
		"storage_key", key,
		"size_bytes", written,
		"mime_type", mimeType,
	)
	return asset, nil
}

func (s *catalogService) ResolvePath(dbc dbctx.Context, id uuid.UUID) (*ResolvedVideo, error) {
	asset, err := s.videoRepo.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("load video: %w", errs.ErrStorage)
	}
	if asset == nil {
		return nil, errs.ErrNotFound
	}

	attrs, err := s.store.Attrs(dbc.Ctx, asset.StorageKey)
	if err != nil {
		// A row whose file vanished is unplayable: treat it as missing but
		// log loudly, this means disk and catalog disagree.
		s.log.Error("video file missing for catalog row", "error", err, "video_id", id, "storage_key", asset.StorageKey)
		return nil, errs.ErrNotFound
	}
	return &ResolvedVideo{Asset: asset, Attrs: attrs}, nil
}

func (s *catalogService) Get(dbc dbctx.Context, id uuid.UUID) (*types.VideoAsset, error) {
	asset, err := s.videoRepo.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("load video: %w", errs.ErrStorage)
	}
	if asset == nil {
		return nil, errs.ErrNotFound
	}
	return asset, nil
}

func (s *catalogService) List(dbc dbctx.Context, subject string) ([]*types.VideoAsset, error) {
	rows, err := s.videoRepo.List(dbc, strings.ToLower(strings.TrimSpace(subject)))
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", errs.ErrStorage)
	}
	return rows, nil
}

func (s *catalogService) Delete(dbc dbctx.Context, id uuid.UUID) error {
	asset, err := s.videoRepo.GetByID(dbc, id)
	if err != nil {
		return fmt.Errorf("load video: %w", errs.ErrStorage)
	}
	if asset == nil {
		return errs.ErrNotFound
	}

	if err := s.videoRepo.FullDeleteByID(dbc, id); err != nil {
		return fmt.Errorf("delete video row: %w", errs.ErrStorage)
	}
	if err := s.store.Delete(dbc.Ctx, asset.StorageKey); err != nil {
		s.log.Error("orphaned video file after row delete", "error", err, "video_id", id, "storage_key", asset.StorageKey)
	}
	return nil
}

func (s *catalogService) RecordView(videoID uuid.UUID) {
	s.viewCounter.Record(videoID)
}

// ExtensionForMime returns the stored-file extension for an accepted MIME
// type, or false for anything outside the allow-list.
func ExtensionForMime(mimeType string) (string, bool) {
	ext, ok := allowedVideoMimeTypes[strings.ToLower(strings.TrimSpace(mimeType))]
	return ext, ok
}
