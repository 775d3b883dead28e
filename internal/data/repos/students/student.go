package students

import (
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	types "github.com/darisni/darisni-backend/internal/domain"
	"github.com/darisni/darisni-backend/internal/platform/dbctx"
	"github.com/darisni/darisni-backend/internal/platform/logger"
)

// StudentRepo wraps exactly one student collection table. Purchase and
// attendance are single conditional UPDATEs so that two devices racing on
// the same student/session can never both pass the guard; the boolean
// result reports whether this call won the row.
type StudentRepo interface {
	Ref() types.CollectionRef
	Create(dbc dbctx.Context, records []*types.StudentRecord) ([]*types.StudentRecord, error)
	GetByPhoneVariants(dbc dbctx.Context, variants []string) (*types.StudentRecord, error)
	// PurchaseSession decrements balance by per_session_cost and writes the
	// grant entry, guarded on "not yet granted AND balance covers cost" in
	// the same statement. Returns false when no row matched the guard.
	PurchaseSession(dbc dbctx.Context, variants []string, sessionNumber int, now time.Time) (bool, error)
	// MarkAttendance flips online_attendance_completed, guarded on the
	// grant flag being set and attendance not yet recorded.
	MarkAttendance(dbc dbctx.Context, variants []string, sessionNumber int) (bool, error)
}

type studentRepo struct {
	db    *gorm.DB
	log   *logger.Logger
	ref   types.CollectionRef
	table string
}

func NewStudentRepo(db *gorm.DB, baseLog *logger.Logger, ref types.CollectionRef) StudentRepo {
	repoLog := baseLog.With("repo", "StudentRepo", "collection", ref.String())
	return &studentRepo{db: db, log: repoLog, ref: ref, table: ref.Table()}
}

func (r *studentRepo) Ref() types.CollectionRef { return r.ref }

func (r *studentRepo) Create(dbc dbctx.Context, records []*types.StudentRecord) ([]*types.StudentRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(records) == 0 {
		return []*types.StudentRecord{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Table(r.table).Create(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *studentRepo) GetByPhoneVariants(dbc dbctx.Context, variants []string) (*types.StudentRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(variants) == 0 {
		return nil, nil
	}

	var result types.StudentRecord
	if err := transaction.WithContext(dbc.Ctx).
		Table(r.table).
		Where("phone IN ?", variants).
		Take(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *studentRepo) PurchaseSession(dbc dbctx.Context, variants []string, sessionNumber int, now time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(variants) == 0 {
		return false, nil
	}

	key := strconv.Itoa(sessionNumber)
	entry := gorm.Expr(
		`jsonb_set(
			coalesce(session_entries, '{}'::jsonb),
			?::text[],
			jsonb_build_object(
				'online_session_granted', true,
				'online_attendance_completed', false,
				'date', to_jsonb(?::timestamptz),
				'payment_amount', per_session_cost
			),
			true
		)`,
		"{"+key+"}", now.UTC(),
	)

	res := transaction.WithContext(dbc.Ctx).
		Table(r.table).
		Where("phone IN ?", variants).
		Where("balance >= per_session_cost").
		Where("coalesce(session_entries -> ? ->> 'online_session_granted', 'false') <> 'true'", key).
		Updates(map[string]interface{}{
			"balance":         gorm.Expr("balance - per_session_cost"),
			"session_entries": entry,
			"updated_at":      now.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *studentRepo) MarkAttendance(dbc dbctx.Context, variants []string, sessionNumber int) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(variants) == 0 {
		return false, nil
	}

	key := strconv.Itoa(sessionNumber)
	entry := gorm.Expr(
		`jsonb_set(
			session_entries,
			?::text[],
			(session_entries -> ?) || jsonb_build_object('online_attendance_completed', true),
			false
		)`,
		"{"+key+"}", key,
	)

	res := transaction.WithContext(dbc.Ctx).
		Table(r.table).
		Where("phone IN ?", variants).
		Where("session_entries -> ? ->> 'online_session_granted' = 'true'", key).
		Where("coalesce(session_entries -> ? ->> 'online_attendance_completed', 'false') <> 'true'", key).
		Updates(map[string]interface{}{
			"session_entries": entry,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
