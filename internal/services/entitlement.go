package services

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/darisni/darisni-backend/internal/data/repos/sessions"
	"github.com/darisni/darisni-backend/internal/data/repos/students"
	types "github.com/darisni/darisni-backend/internal/domain"
	errs "github.com/darisni/darisni-backend/internal/pkg/errors"
	"github.com/darisni/darisni-backend/internal/platform/dbctx"
	"github.com/darisni/darisni-backend/internal/platform/logger"
	"github.com/darisni/darisni-backend/internal/utils"
)

const (
	AccessReasonGranted        = "granted"
	AccessReasonFreeSession    = "free_session"
	AccessReasonNotPurchased   = "not_purchased"
	AccessReasonExpired        = "expired"
	AccessReasonUnknownStudent = "unknown_student"

	PurchaseReasonPurchased           = "purchased"
	PurchaseReasonAlreadyGranted      = "already_granted"
	PurchaseReasonInsufficientBalance = "insufficient_balance"

	AttendanceReasonRecorded        = "recorded"
	AttendanceReasonAlreadyRecorded = "already_recorded"
	AttendanceReasonNotGranted      = "not_granted"
)

// AccessDecision always carries the student snapshot when one was found,
// even on a deny, so callers can show balance and cost alongside the reason.
type AccessDecision struct {
	HasAccess bool
	Reason    string
	Student   *ResolvedStudent
}

type PurchaseResult struct {
	Purchased bool
	Reason    string
	Student   *ResolvedStudent
}

type AttendanceResult struct {
	Recorded bool
	Reason   string
	Student  *ResolvedStudent
}

type EntitlementService interface {
	CheckAccess(dbc dbctx.Context, rawPhone, subject, grade string, sessionNumber int) (*AccessDecision, error)
	Purchase(dbc dbctx.Context, rawPhone, subject, grade string, sessionNumber int) (*PurchaseResult, error)
	MarkAttended(dbc dbctx.Context, rawPhone, subject, grade string, sessionNumber int) (*AttendanceResult, error)
}

type entitlementService struct {
	log          *logger.Logger
	identity     IdentityService
	store        students.Store
	sessionRepo  sessions.SessionContentRepo
	accessWindow time.Duration
}

func NewEntitlementService(
	baseLog *logger.Logger,
	identity IdentityService,
	store students.Store,
	sessionRepo sessions.SessionContentRepo,
) EntitlementService {
	serviceLog := baseLog.With("service", "EntitlementService")
	windowDays := utils.GetEnvAsInt("ACCESS_WINDOW_DAYS", 30, serviceLog)
	return &entitlementService{
		log:          serviceLog,
		identity:     identity,
		store:        store,
		sessionRepo:  sessionRepo,
		accessWindow: time.Duration(windowDays) * 24 * time.Hour,
	}
}

func (s *entitlementService) CheckAccess(dbc dbctx.Context, rawPhone, subject, grade string, sessionNumber int) (*AccessDecision, error) {
	content, err := s.sessionRepo.GetBySessionNumber(dbc, subject, grade, sessionNumber)
	if err != nil {
		return nil, fmt.Errorf("load session content: %w", err)
	}
	if content == nil {
		return nil, fmt.Errorf("session %d for %s/%s: %w", sessionNumber, subject, grade, errs.ErrNotFound)
	}

	resolved, err := s.identity.ResolveIn(dbc, rawPhone, subject, grade)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return &AccessDecision{HasAccess: false, Reason: AccessReasonUnknownStudent}, nil
		}
		return nil, err
	}

	if content.AccessControl == types.AccessControlFree {
		return &AccessDecision{HasAccess: true, Reason: AccessReasonFreeSession, Student: resolved}, nil
	}

	entry, found := resolved.Record.SessionEntries[strconv.Itoa(sessionNumber)]
	if !found || !entry.OnlineSessionGranted {
		return &AccessDecision{HasAccess: false, Reason: AccessReasonNotPurchased, Student: resolved}, nil
	}
	if time.Since(entry.Date) > s.accessWindow {
		return &AccessDecision{HasAccess: false, Reason: AccessReasonExpired, Student: resolved}, nil
	}
	return &AccessDecision{HasAccess: true, Reason: AccessReasonGranted, Student: resolved}, nil
}

func (s *entitlementService) Purchase(dbc dbctx.Context, rawPhone, subject, grade string, sessionNumber int) (*PurchaseResult, error) {
	content, err := s.sessionRepo.GetBySessionNumber(dbc, subject, grade, sessionNumber)
	if err != nil {
		return nil, fmt.Errorf("load session content: %w", err)
	}
	if content == nil {
		return nil, fmt.Errorf("session %d for %s/%s: %w", sessionNumber, subject, grade, errs.ErrNotFound)
	}

	resolved, err := s.identity.ResolveIn(dbc, rawPhone, subject, grade)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return &PurchaseResult{Purchased: false, Reason: AccessReasonUnknownStudent}, nil
		}
		return nil, err
	}

	// Free sessions have nothing to buy.
	if content.AccessControl == types.AccessControlFree {
		return &PurchaseResult{Purchased: false, Reason: PurchaseReasonAlreadyGranted, Student: resolved}, nil
	}

	repo, ok := s.store.Lookup(resolved.Collection.Subject, resolved.Collection.Grade)
	if !ok {
		return nil, fmt.Errorf("collection %s vanished from registry: %w", resolved.Collection.String(), errs.ErrStorage)
	}

	won, err := repo.PurchaseSession(dbc, resolved.Variants, sessionNumber, time.Now())
	if err != nil {
		s.log.Error("purchase update failed", "error", err, "collection", resolved.Collection.String(), "session_number", sessionNumber)
		return nil, fmt.Errorf("purchase session: %w", errs.ErrStorage)
	}

	// The guarded update either charged the student or matched nothing.
	// Re-read once to tell the two deny cases apart and to get the fresh
	// balance for the response.
	fresh, err := repo.GetByPhoneVariants(dbc, resolved.Variants)
	if err != nil {
		return nil, fmt.Errorf("reload after purchase: %w", errs.ErrStorage)
	}
	if fresh == nil {
		return nil, fmt.Errorf("student disappeared during purchase: %w", errs.ErrStorage)
	}
	resolved.Record = fresh

	if won {
		s.log.Info("session purchased",
			"phone", fresh.Phone,
			"collection", resolved.Collection.String(),
			"session_number", sessionNumber,
		)
		return &PurchaseResult{Purchased: true, Reason: PurchaseReasonPurchased, Student: resolved}, nil
	}

	key := strconv.Itoa(sessionNumber)
	if entry, found := fresh.SessionEntries[key]; found && entry.OnlineSessionGranted {
		return &PurchaseResult{Purchased: false, Reason: PurchaseReasonAlreadyGranted, Student: resolved}, nil
	}
	return &PurchaseResult{Purchased: false, Reason: PurchaseReasonInsufficientBalance, Student: resolved}, nil
}

func (s *entitlementService) MarkAttended(dbc dbctx.Context, rawPhone, subject, grade string, sessionNumber int) (*AttendanceResult, error) {
	resolved, err := s.identity.ResolveIn(dbc, rawPhone, subject, grade)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return &AttendanceResult{Recorded: false, Reason: AccessReasonUnknownStudent}, nil
		}
		return nil, err
	}

	repo, ok := s.store.Lookup(resolved.Collection.Subject, resolved.Collection.Grade)
	if !ok {
		return nil, fmt.Errorf("collection %s vanished from registry: %w", resolved.Collection.String(), errs.ErrStorage)
	}

	won, err := repo.MarkAttendance(dbc, resolved.Variants, sessionNumber)
	if err != nil {
		s.log.Error("attendance update failed", "error", err, "collection", resolved.Collection.String(), "session_number", sessionNumber)
		return nil, fmt.Errorf("mark attendance: %w", errs.ErrStorage)
	}
	if won {
		return &AttendanceResult{Recorded: true, Reason: AttendanceReasonRecorded, Student: resolved}, nil
	}

	entry, found := resolved.Record.SessionEntries[strconv.Itoa(sessionNumber)]
	if found && entry.OnlineSessionGranted && entry.OnlineAttendanceCompleted {
		return &AttendanceResult{Recorded: false, Reason: AttendanceReasonAlreadyRecorded, Student: resolved}, nil
	}
	return &AttendanceResult{Recorded: false, Reason: AttendanceReasonNotGranted, Student: resolved}, nil
}
