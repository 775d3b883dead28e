package services

import (
	"strconv"
	"testing"
	"time"

	"github.com/darisni/darisni-backend/internal/data/repos/students"
	types "github.com/darisni/darisni-backend/internal/domain"
	"github.com/darisni/darisni-backend/internal/platform/dbctx"
	"github.com/darisni/darisni-backend/internal/platform/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

// memStudentRepo mirrors the guard semantics of the real repo against an
// in-memory map, keyed by the phone form the record was stored under.
type memStudentRepo struct {
	ref     types.CollectionRef
	records map[string]*types.StudentRecord
	failure error
}

func newMemStudentRepo(subject, grade string) *memStudentRepo {
	return &memStudentRepo{
		ref:     types.CollectionRef{Subject: subject, Grade: grade},
		records: map[string]*types.StudentRecord{},
	}
}

func (r *memStudentRepo) add(rec *types.StudentRecord) {
	if rec.SessionEntries == nil {
		rec.SessionEntries = types.SessionEntryMap{}
	}
	rec.Subject = r.ref.Subject
	rec.Grade = r.ref.Grade
	r.records[rec.Phone] = rec
}

func (r *memStudentRepo) Ref() types.CollectionRef { return r.ref }

func (r *memStudentRepo) Create(dbc dbctx.Context, recs []*types.StudentRecord) ([]*types.StudentRecord, error) {
	for _, rec := range recs {
		r.add(rec)
	}
	return recs, nil
}

func (r *memStudentRepo) find(variants []string) *types.StudentRecord {
	for _, v := range variants {
		if rec, ok := r.records[v]; ok {
			return rec
		}
	}
	return nil
}

func (r *memStudentRepo) GetByPhoneVariants(dbc dbctx.Context, variants []string) (*types.StudentRecord, error) {
	if r.failure != nil {
		return nil, r.failure
	}
	rec := r.find(variants)
	if rec == nil {
		return nil, nil
	}
	clone := *rec
	clone.SessionEntries = types.SessionEntryMap{}
	for k, v := range rec.SessionEntries {
		clone.SessionEntries[k] = v
	}
	return &clone, nil
}

func (r *memStudentRepo) PurchaseSession(dbc dbctx.Context, variants []string, sessionNumber int, now time.Time) (bool, error) {
	if r.failure != nil {
		return false, r.failure
	}
	rec := r.find(variants)
	if rec == nil {
		return false, nil
	}
	key := strconv.Itoa(sessionNumber)
	if entry, ok := rec.SessionEntries[key]; ok && entry.OnlineSessionGranted {
		return false, nil
	}
	if rec.Balance < rec.PerSessionCost {
		return false, nil
	}
	rec.Balance -= rec.PerSessionCost
	rec.SessionEntries[key] = types.SessionEntry{
		OnlineSessionGranted: true,
		Date:                 now.UTC(),
		PaymentAmount:        rec.PerSessionCost,
	}
	return true, nil
}

func (r *memStudentRepo) MarkAttendance(dbc dbctx.Context, variants []string, sessionNumber int) (bool, error) {
	if r.failure != nil {
		return false, r.failure
	}
	rec := r.find(variants)
	if rec == nil {
		return false, nil
	}
	key := strconv.Itoa(sessionNumber)
	entry, ok := rec.SessionEntries[key]
	if !ok || !entry.OnlineSessionGranted || entry.OnlineAttendanceCompleted {
		return false, nil
	}
	entry.OnlineAttendanceCompleted = true
	rec.SessionEntries[key] = entry
	return true, nil
}

var _ students.StudentRepo = (*memStudentRepo)(nil)

type memStore struct {
	entries []students.StudentRepo
}

func (s *memStore) Ordered() []students.StudentRepo { return s.entries }

func (s *memStore) ForSubject(subject string) []students.StudentRepo {
	if subject == "" {
		return s.entries
	}
	out := []students.StudentRepo{}
	for _, e := range s.entries {
		if e.Ref().Subject == subject {
			out = append(out, e)
		}
	}
	return out
}

func (s *memStore) Lookup(subject, grade string) (students.StudentRepo, bool) {
	for _, e := range s.entries {
		ref := e.Ref()
		if ref.Subject == subject && ref.Grade == grade {
			return e, true
		}
	}
	return nil, false
}

var _ students.Store = (*memStore)(nil)

// memSessionContentRepo serves a fixed session catalog.
type memSessionContentRepo struct {
	contents []*types.SessionContent
}

func (r *memSessionContentRepo) GetBySessionNumber(dbc dbctx.Context, subject, grade string, sessionNumber int) (*types.SessionContent, error) {
	for _, sc := range r.contents {
		if sc.Subject == subject && sc.Grade == grade && sc.SessionNumber == sessionNumber {
			return sc, nil
		}
	}
	return nil, nil
}

func (r *memSessionContentRepo) ListBySubjectGrade(dbc dbctx.Context, subject, grade string) ([]*types.SessionContent, error) {
	out := []*types.SessionContent{}
	for _, sc := range r.contents {
		if sc.Subject == subject && sc.Grade == grade {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (r *memSessionContentRepo) Create(dbc dbctx.Context, contents []*types.SessionContent) ([]*types.SessionContent, error) {
	r.contents = append(r.contents, contents...)
	return contents, nil
}
