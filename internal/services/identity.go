package services

import (
	"fmt"

	"github.com/darisni/darisni-backend/internal/data/repos/students"
	types "github.com/darisni/darisni-backend/internal/domain"
	errs "github.com/darisni/darisni-backend/internal/pkg/errors"
	"github.com/darisni/darisni-backend/internal/pkg/phone"
	"github.com/darisni/darisni-backend/internal/platform/dbctx"
	"github.com/darisni/darisni-backend/internal/platform/logger"
)

// ResolvedStudent is the outcome of an identity probe: the matched record,
// the collection it lives in, and the phone variants used to find it. The
// variants are reused by follow-up conditional updates so that the update
// targets the same row no matter which phone form it was stored under.
type ResolvedStudent struct {
	Record     *types.StudentRecord
	Collection types.CollectionRef
	Variants   []string
}

type IdentityService interface {
	// Resolve probes every collection for the subject (all collections when
	// subject is empty) in configured order and returns the first match.
	Resolve(dbc dbctx.Context, rawPhone, subject string) (*ResolvedStudent, error)
	// ResolveIn probes exactly one (subject, grade) collection.
	ResolveIn(dbc dbctx.Context, rawPhone, subject, grade string) (*ResolvedStudent, error)
}

type identityService struct {
	log   *logger.Logger
	store students.Store
}

func NewIdentityService(baseLog *logger.Logger, store students.Store) IdentityService {
	serviceLog := baseLog.With("service", "IdentityService")
	return &identityService{log: serviceLog, store: store}
}

func (s *identityService) Resolve(dbc dbctx.Context, rawPhone, subject string) (*ResolvedStudent, error) {
	variants, err := phone.Variants(rawPhone)
	if err != nil {
		return nil, err
	}

	for _, repo := range s.store.ForSubject(subject) {
		rec, err := repo.GetByPhoneVariants(dbc, variants)
		if err != nil {
			// A storage failure must not fall through to "not found":
			// the student may well exist in this collection.
			s.log.Error("student lookup failed", "error", err, "collection", repo.Ref().String())
			return nil, fmt.Errorf("lookup in %s: %w", repo.Ref().String(), errs.ErrStorage)
		}
		if rec != nil {
			return &ResolvedStudent{
				Record:     rec,
				Collection: repo.Ref(),
				Variants:   variants,
			}, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (s *identityService) ResolveIn(dbc dbctx.Context, rawPhone, subject, grade string) (*ResolvedStudent, error) {
	variants, err := phone.Variants(rawPhone)
	if err != nil {
		return nil, err
	}

	repo, ok := s.store.Lookup(subject, grade)
	if !ok {
		return nil, fmt.Errorf("unknown collection %s_%s: %w", grade, subject, errs.ErrInvalidArgument)
	}

	rec, err := repo.GetByPhoneVariants(dbc, variants)
	if err != nil {
		s.log.Error("student lookup failed", "error", err, "collection", repo.Ref().String())
		return nil, fmt.Errorf("lookup in %s: %w", repo.Ref().String(), errs.ErrStorage)
	}
	if rec == nil {
		return nil, errs.ErrNotFound
	}
	return &ResolvedStudent{
		Record:     rec,
		Collection: repo.Ref(),
		Variants:   variants,
	}, nil
}
