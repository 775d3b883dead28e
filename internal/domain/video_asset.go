package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	VideoStatusCompleted  = "completed"
	VideoStatusProcessing = "processing"
)

// VideoAsset is the catalog row for one uploaded video file. StorageKey is
// relative to the configured video root; the row is never hard-deleted
// without also removing the backing file.
type VideoAsset struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	Title       string `gorm:"type:text;not null;default:''" json:"title"`
	Description string `gorm:"type:text;not null;default:''" json:"description"`

	StorageKey      string `gorm:"column:storage_key;type:text;not null;index" json:"storage_key"`
	MimeType        string `gorm:"type:text;not null;default:''" json:"mime_type"`
	SizeBytes       int64  `gorm:"type:bigint;not null;default:0" json:"size_bytes"`
	DurationSeconds int    `gorm:"not null;default:0" json:"duration_seconds"`
	ViewCount       int64  `gorm:"type:bigint;not null;default:0" json:"view_count"`

	UploadedBy string         `gorm:"type:text;not null;default:''" json:"uploaded_by"`
	Subject    string         `gorm:"type:text;not null;default:'';index" json:"subject"`
	LessonRef  string         `gorm:"type:text;not null;default:'';index" json:"lesson_ref"`
	Status     string         `gorm:"type:text;not null;default:'processing';index" json:"status"`
	Metadata   datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (VideoAsset) TableName() string { return "video_asset" }
