package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AccessControlFree       = "free"
	AccessControlRestricted = "restricted"
)

// SessionContent describes one numbered session of a (subject, grade)
// course. It is written by the admin back office and read-only here.
type SessionContent struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	Subject       string `gorm:"type:text;not null;index:idx_session_content_key,unique,priority:1" json:"subject"`
	Grade         string `gorm:"type:text;not null;index:idx_session_content_key,unique,priority:2" json:"grade"`
	SessionNumber int    `gorm:"not null;index:idx_session_content_key,unique,priority:3" json:"session_number"`

	AccessControl string           `gorm:"type:text;not null;default:'restricted'" json:"access_control"`
	Videos        SessionVideoList `gorm:"type:jsonb;not null;default:'[]'" json:"videos"`

	IsPublished bool       `gorm:"not null;default:false;index" json:"is_published"`
	PublishDate *time.Time `gorm:"index" json:"publish_date,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	MaxViews    int        `gorm:"not null;default:0" json:"max_views"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (SessionContent) TableName() string { return "session_content" }

// SessionVideo is one ordered item of a session's playlist: either a
// catalog asset (VideoID) or an external URL.
type SessionVideo struct {
	VideoID     *uuid.UUID `json:"video_id,omitempty"`
	ExternalURL string     `json:"external_url,omitempty"`
	Title       string     `json:"title"`
	Type        string     `json:"type"`
}

type SessionVideoList []SessionVideo

func (l SessionVideoList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (l *SessionVideoList) Scan(src interface{}) error {
	if src == nil {
		*l = SessionVideoList{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into SessionVideoList", src)
	}
	if len(raw) == 0 {
		*l = SessionVideoList{}
		return nil
	}
	return json.Unmarshal(raw, l)
}
