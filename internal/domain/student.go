package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StudentRecord is one row of a per-(grade,subject) student collection.
// There is no single canonical student table: a phone number enrolled in
// two subjects has two independent records, one per collection. The struct
// carries no TableName; repos bind it to a collection table at query time.
type StudentRecord struct {
	Phone          string          `gorm:"type:text;primaryKey" json:"phone"`
	StudentID      string          `gorm:"type:text;not null;default:'';index" json:"student_id"`
	Name           string          `gorm:"type:text;not null;default:''" json:"name"`
	Subject        string          `gorm:"type:text;not null;default:''" json:"subject"`
	Grade          string          `gorm:"type:text;not null;default:''" json:"grade"`
	Balance        int64           `gorm:"type:bigint;not null;default:0" json:"balance"`
	PerSessionCost int64           `gorm:"type:bigint;not null;default:0" json:"per_session_cost"`
	SessionEntries SessionEntryMap `gorm:"type:jsonb;not null;default:'{}'" json:"session_entries"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

// SessionEntry is the per-session payment/attendance state embedded in a
// StudentRecord, keyed by session number.
//
// Invariant: OnlineAttendanceCompleted may only become true while
// OnlineSessionGranted is already true.
type SessionEntry struct {
	OnlineSessionGranted      bool      `json:"online_session_granted"`
	OnlineAttendanceCompleted bool      `json:"online_attendance_completed"`
	Date                      time.Time `json:"date"`
	PaymentAmount             int64     `json:"payment_amount"`
}

// SessionEntryMap maps a session number (as a string key, matching the
// jsonb representation) to its entry.
type SessionEntryMap map[string]SessionEntry

func (m SessionEntryMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (m *SessionEntryMap) Scan(src interface{}) error {
	if src == nil {
		*m = SessionEntryMap{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into SessionEntryMap", src)
	}
	if len(raw) == 0 {
		*m = SessionEntryMap{}
		return nil
	}
	return json.Unmarshal(raw, m)
}
