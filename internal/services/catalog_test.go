package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	types "github.com/darisni/darisni-backend/internal/domain"
	errs "github.com/darisni/darisni-backend/internal/pkg/errors"
	"github.com/darisni/darisni-backend/internal/platform/dbctx"
	"github.com/darisni/darisni-backend/internal/platform/media"
)

type memVideoRepo struct {
	rows       map[uuid.UUID]*types.VideoAsset
	failCreate error
}

func newMemVideoRepo() *memVideoRepo {
	return &memVideoRepo{rows: map[uuid.UUID]*types.VideoAsset{}}
}

func (r *memVideoRepo) Create(dbc dbctx.Context, assets []*types.VideoAsset) ([]*types.VideoAsset, error) {
	if r.failCreate != nil {
		return nil, r.failCreate
	}
	for _, a := range assets {
		r.rows[a.ID] = a
	}
	return assets, nil
}

func (r *memVideoRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.VideoAsset, error) {
	a, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	return a, nil
}

func (r *memVideoRepo) List(dbc dbctx.Context, subject string) ([]*types.VideoAsset, error) {
	out := []*types.VideoAsset{}
	for _, a := range r.rows {
		if subject == "" || a.Subject == subject {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memVideoRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string) error {
	if a, ok := r.rows[id]; ok {
		a.Status = status
	}
	return nil
}

func (r *memVideoRepo) IncrementViewCount(dbc dbctx.Context, id uuid.UUID, delta int64) error {
	if a, ok := r.rows[id]; ok {
		a.ViewCount += delta
	}
	return nil
}

func (r *memVideoRepo) FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	delete(r.rows, id)
	return nil
}

type recordingViewCounter struct {
	recorded []uuid.UUID
}

func (c *recordingViewCounter) Record(videoID uuid.UUID) {
	c.recorded = append(c.recorded, videoID)
}
func (c *recordingViewCounter) Flush(ctx context.Context) error { return nil }
func (c *recordingViewCounter) Close()                          {}

func newCatalogFixture(t *testing.T) (CatalogService, *memVideoRepo, media.Store, *recordingViewCounter) {
	t.Helper()
	log := testLogger(t)
	store, err := media.NewDiskStore(log, t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	repo := newMemVideoRepo()
	counter := &recordingViewCounter{}
	return NewCatalogService(log, store, repo, counter), repo, store, counter
}

func TestCatalogUpload(t *testing.T) {
	svc, repo, store, _ := newCatalogFixture(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	payload := bytes.Repeat([]byte("x"), 4096)
	asset, err := svc.Upload(dbc, VideoUpload{
		Title:     "Quadratic equations, part 1",
		Subject:   "Mathematics",
		LessonRef: "session-1",
		MimeType:  "video/mp4",
		SizeBytes: int64(len(payload)),
	}, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if asset.Status != types.VideoStatusCompleted {
		t.Fatalf("status = %q", asset.Status)
	}
	if asset.Subject != "mathematics" {
		t.Fatalf("subject not normalized: %q", asset.Subject)
	}
	if asset.SizeBytes != 4096 {
		t.Fatalf("size = %d", asset.SizeBytes)
	}

	attrs, err := store.Attrs(dbc.Ctx, asset.StorageKey)
	if err != nil {
		t.Fatalf("backing file missing: %v", err)
	}
	if attrs.Size != 4096 {
		t.Fatalf("backing file size = %d", attrs.Size)
	}
	if _, ok := repo.rows[asset.ID]; !ok {
		t.Fatalf("row not registered")
	}
}

func TestCatalogUploadRejectsMimeType(t *testing.T) {
	svc, repo, _, _ := newCatalogFixture(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	for _, mt := range []string{"application/pdf", "text/html", "image/png", ""} {
		_, err := svc.Upload(dbc, VideoUpload{Subject: "mathematics", MimeType: mt, SizeBytes: 10}, bytes.NewReader([]byte("0123456789")))
		if !errors.Is(err, errs.ErrInvalidArgument) {
			t.Fatalf("Upload(%q): want ErrInvalidArgument, got %v", mt, err)
		}
	}
	if len(repo.rows) != 0 {
		t.Fatalf("rejected upload registered a row")
	}
}

func TestCatalogUploadCleansUpOnInsertFailure(t *testing.T) {
	log := testLogger(t)
	root := t.TempDir()
	store, err := media.NewDiskStore(log, root)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	repo := newMemVideoRepo()
	repo.failCreate = errors.New("insert failed")
	svc := NewCatalogService(log, store, repo, &recordingViewCounter{})
	dbc := dbctx.Context{Ctx: context.Background()}

	_, err = svc.Upload(dbc, VideoUpload{Subject: "physics", MimeType: "video/webm", SizeBytes: 3}, bytes.NewReader([]byte("abc")))
	if !errors.Is(err, errs.ErrStorage) {
		t.Fatalf("want ErrStorage, got %v", err)
	}

	// No orphan file may survive the failed insert.
	entries, err := os.ReadDir(filepath.Join(root, "videos", "physics"))
	if err == nil && len(entries) != 0 {
		t.Fatalf("orphan files left behind: %v", entries)
	}
}

func TestCatalogResolvePath(t *testing.T) {
	svc, repo, store, _ := newCatalogFixture(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	asset, err := svc.Upload(dbc, VideoUpload{Subject: "chemistry", MimeType: "video/mp4", SizeBytes: 5}, bytes.NewReader([]byte("hello")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	resolved, err := svc.ResolvePath(dbc, asset.ID)
	if err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	if resolved.Attrs.Size != 5 {
		t.Fatalf("attrs size = %d", resolved.Attrs.Size)
	}
	if resolved.Asset.StorageKey != asset.StorageKey {
		t.Fatalf("storage key mismatch")
	}

	if _, err := svc.ResolvePath(dbc, uuid.New()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("missing row: want ErrNotFound, got %v", err)
	}

	// Row present but file gone.
	if err := store.Delete(dbc.Ctx, asset.StorageKey); err != nil {
		t.Fatalf("Delete backing file: %v", err)
	}
	if _, err := svc.ResolvePath(dbc, asset.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("missing file: want ErrNotFound, got %v", err)
	}
	_ = repo
}

func TestCatalogDelete(t *testing.T) {
	svc, repo, store, _ := newCatalogFixture(t)
	dbc := dbctx.Context{Ctx: context.Background()}

	asset, err := svc.Upload(dbc, VideoUpload{Subject: "mathematics", MimeType: "video/mp4", SizeBytes: 3}, bytes.NewReader([]byte("abc")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := svc.Delete(dbc, asset.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := repo.rows[asset.ID]; ok {
		t.Fatalf("row survived delete")
	}
	if _, err := store.Attrs(dbc.Ctx, asset.StorageKey); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("file survived delete: %v", err)
	}

	if err := svc.Delete(dbc, asset.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("double delete: want ErrNotFound, got %v", err)
	}
}

func TestCatalogRecordView(t *testing.T) {
	svc, _, _, counter := newCatalogFixture(t)

	id := uuid.New()
	svc.RecordView(id)
	if len(counter.recorded) != 1 || counter.recorded[0] != id {
		t.Fatalf("view not forwarded to counter: %v", counter.recorded)
	}
}
