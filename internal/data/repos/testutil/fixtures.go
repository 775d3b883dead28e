package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/darisni/darisni-backend/internal/domain"
)

func SeedStudent(tb testing.TB, ctx context.Context, tx *gorm.DB, ref types.CollectionRef, phone string, balance, cost int64) *types.StudentRecord {
	tb.Helper()
	rec := &types.StudentRecord{
		Phone:          phone,
		StudentID:      "S-" + phone,
		Name:           "Test Student",
		Subject:        ref.Subject,
		Grade:          ref.Grade,
		Balance:        balance,
		PerSessionCost: cost,
		SessionEntries: types.SessionEntryMap{},
	}
	if err := tx.WithContext(ctx).Table(ref.Table()).Create(rec).Error; err != nil {
		tb.Fatalf("seed student: %v", err)
	}
	return rec
}

func SeedStudentWithEntry(tb testing.TB, ctx context.Context, tx *gorm.DB, ref types.CollectionRef, phone string, balance, cost int64, sessionKey string, entry types.SessionEntry) *types.StudentRecord {
	tb.Helper()
	rec := &types.StudentRecord{
		Phone:          phone,
		StudentID:      "S-" + phone,
		Name:           "Test Student",
		Subject:        ref.Subject,
		Grade:          ref.Grade,
		Balance:        balance,
		PerSessionCost: cost,
		SessionEntries: types.SessionEntryMap{sessionKey: entry},
	}
	if err := tx.WithContext(ctx).Table(ref.Table()).Create(rec).Error; err != nil {
		tb.Fatalf("seed student with entry: %v", err)
	}
	return rec
}

func SeedSessionContent(tb testing.TB, ctx context.Context, tx *gorm.DB, subject, grade string, sessionNumber int, accessControl string) *types.SessionContent {
	tb.Helper()
	sc := &types.SessionContent{
		ID:            uuid.New(),
		Subject:       subject,
		Grade:         grade,
		SessionNumber: sessionNumber,
		AccessControl: accessControl,
		Videos:        types.SessionVideoList{},
		IsPublished:   true,
	}
	if err := tx.WithContext(ctx).Create(sc).Error; err != nil {
		tb.Fatalf("seed session content: %v", err)
	}
	return sc
}

func SeedVideoAsset(tb testing.TB, ctx context.Context, tx *gorm.DB, storageKey string, sizeBytes int64) *types.VideoAsset {
	tb.Helper()
	va := &types.VideoAsset{
		ID:         uuid.New(),
		Title:      "lecture",
		StorageKey: storageKey,
		MimeType:   "video/mp4",
		SizeBytes:  sizeBytes,
		Status:     types.VideoStatusCompleted,
	}
	if err := tx.WithContext(ctx).Create(va).Error; err != nil {
		tb.Fatalf("seed video asset: %v", err)
	}
	return va
}

func PtrTime(v time.Time) *time.Time { return &v }
