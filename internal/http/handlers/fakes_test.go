package handlers

import (
	"io"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/darisni/darisni-backend/internal/domain"
	errs "github.com/darisni/darisni-backend/internal/pkg/errors"
	"github.com/darisni/darisni-backend/internal/platform/dbctx"
	"github.com/darisni/darisni-backend/internal/platform/logger"
	"github.com/darisni/darisni-backend/internal/services"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

// fakeCatalog serves a fixed set of assets and records which views were
// counted.
type fakeCatalog struct {
	assets map[uuid.UUID]*services.ResolvedVideo
	views  []uuid.UUID

	uploaded  []*types.VideoAsset
	uploadErr error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{assets: map[uuid.UUID]*services.ResolvedVideo{}}
}

func (f *fakeCatalog) Upload(dbc dbctx.Context, upload services.VideoUpload, file io.Reader) (*types.VideoAsset, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	asset := &types.VideoAsset{
		ID:        uuid.New(),
		Title:     upload.Title,
		Subject:   upload.Subject,
		MimeType:  upload.MimeType,
		SizeBytes: int64(len(data)),
		Status:    types.VideoStatusCompleted,
	}
	f.uploaded = append(f.uploaded, asset)
	return asset, nil
}

func (f *fakeCatalog) ResolvePath(dbc dbctx.Context, id uuid.UUID) (*services.ResolvedVideo, error) {
	rv, ok := f.assets[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return rv, nil
}

func (f *fakeCatalog) Get(dbc dbctx.Context, id uuid.UUID) (*types.VideoAsset, error) {
	rv, ok := f.assets[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return rv.Asset, nil
}

func (f *fakeCatalog) List(dbc dbctx.Context, subject string) ([]*types.VideoAsset, error) {
	out := []*types.VideoAsset{}
	for _, rv := range f.assets {
		if subject == "" || rv.Asset.Subject == subject {
			out = append(out, rv.Asset)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if _, ok := f.assets[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.assets, id)
	return nil
}

func (f *fakeCatalog) RecordView(videoID uuid.UUID) {
	f.views = append(f.views, videoID)
}

var _ services.CatalogService = (*fakeCatalog)(nil)

// fakeEntitlement returns canned results.
type fakeEntitlement struct {
	decision   *services.AccessDecision
	purchase   *services.PurchaseResult
	attendance *services.AttendanceResult
	err        error
}

func (f *fakeEntitlement) CheckAccess(dbc dbctx.Context, rawPhone, subject, grade string, sessionNumber int) (*services.AccessDecision, error) {
	return f.decision, f.err
}

func (f *fakeEntitlement) Purchase(dbc dbctx.Context, rawPhone, subject, grade string, sessionNumber int) (*services.PurchaseResult, error) {
	return f.purchase, f.err
}

func (f *fakeEntitlement) MarkAttended(dbc dbctx.Context, rawPhone, subject, grade string, sessionNumber int) (*services.AttendanceResult, error) {
	return f.attendance, f.err
}

var _ services.EntitlementService = (*fakeEntitlement)(nil)
