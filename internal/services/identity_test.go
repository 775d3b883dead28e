package services

import (
	"context"
	"errors"
	"testing"

	"github.com/darisni/darisni-backend/internal/data/repos/students"
	types "github.com/darisni/darisni-backend/internal/domain"
	errs "github.com/darisni/darisni-backend/internal/pkg/errors"
	"github.com/darisni/darisni-backend/internal/platform/dbctx"
)

func TestIdentityResolveAcrossVariants(t *testing.T) {
	mathS2 := newMemStudentRepo("mathematics", "senior2")
	mathS3 := newMemStudentRepo("mathematics", "senior3")
	physS2 := newMemStudentRepo("physics", "senior2")

	// Stored under the international form; lookups must still hit it from
	// any accepted form.
	mathS3.add(&types.StudentRecord{Phone: "+201000733148", Name: "Nour", Balance: 600, PerSessionCost: 80})

	store := &memStore{entries: []students.StudentRepo{mathS2, mathS3, physS2}}
	svc := NewIdentityService(testLogger(t), store)
	dbc := dbctx.Context{Ctx: context.Background()}

	for _, input := range []string{"01000733148", "+201000733148", "201000733148", "0100 073 3148"} {
		resolved, err := svc.Resolve(dbc, input, "mathematics")
		if err != nil {
			t.Fatalf("Resolve(%q): %v", input, err)
		}
		if resolved.Record.Name != "Nour" {
			t.Fatalf("Resolve(%q) matched %q", input, resolved.Record.Name)
		}
		if resolved.Collection.Grade != "senior3" {
			t.Fatalf("Resolve(%q) collection = %s", input, resolved.Collection.String())
		}
		if len(resolved.Variants) != 3 {
			t.Fatalf("Resolve(%q) variants = %v", input, resolved.Variants)
		}
	}
}

func TestIdentityResolveProbeOrder(t *testing.T) {
	first := newMemStudentRepo("mathematics", "senior2")
	second := newMemStudentRepo("mathematics", "senior3")

	// Same phone in both collections: the first configured collection wins.
	first.add(&types.StudentRecord{Phone: "01222333444", Name: "InSenior2"})
	second.add(&types.StudentRecord{Phone: "01222333444", Name: "InSenior3"})

	store := &memStore{entries: []students.StudentRepo{first, second}}
	svc := NewIdentityService(testLogger(t), store)
	dbc := dbctx.Context{Ctx: context.Background()}

	resolved, err := svc.Resolve(dbc, "01222333444", "mathematics")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Record.Name != "InSenior2" {
		t.Fatalf("probe order violated, matched %q", resolved.Record.Name)
	}
}

func TestIdentityResolveUnknownAndMalformed(t *testing.T) {
	store := &memStore{entries: []students.StudentRepo{newMemStudentRepo("mathematics", "senior2")}}
	svc := NewIdentityService(testLogger(t), store)
	dbc := dbctx.Context{Ctx: context.Background()}

	if _, err := svc.Resolve(dbc, "01999888777", ""); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown phone: want ErrNotFound, got %v", err)
	}
	if _, err := svc.Resolve(dbc, "12345", ""); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("malformed phone: want ErrInvalidArgument, got %v", err)
	}
}

func TestIdentityResolveStorageFailureIsNotNotFound(t *testing.T) {
	broken := newMemStudentRepo("mathematics", "senior2")
	broken.failure = errors.New("connection reset")
	store := &memStore{entries: []students.StudentRepo{broken}}
	svc := NewIdentityService(testLogger(t), store)
	dbc := dbctx.Context{Ctx: context.Background()}

	_, err := svc.Resolve(dbc, "01000733148", "mathematics")
	if !errors.Is(err, errs.ErrStorage) {
		t.Fatalf("want ErrStorage, got %v", err)
	}
	if errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("storage failure must not read as not-found")
	}
}

func TestIdentityResolveIn(t *testing.T) {
	repo := newMemStudentRepo("physics", "senior3")
	repo.add(&types.StudentRecord{Phone: "01000733148", Name: "Aya", Balance: 100, PerSessionCost: 50})
	store := &memStore{entries: []students.StudentRepo{repo}}
	svc := NewIdentityService(testLogger(t), store)
	dbc := dbctx.Context{Ctx: context.Background()}

	resolved, err := svc.ResolveIn(dbc, "201000733148", "physics", "senior3")
	if err != nil {
		t.Fatalf("ResolveIn: %v", err)
	}
	if resolved.Record.Name != "Aya" {
		t.Fatalf("ResolveIn matched %q", resolved.Record.Name)
	}

	if _, err := svc.ResolveIn(dbc, "01000733148", "physics", "senior1"); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("unknown collection: want ErrInvalidArgument, got %v", err)
	}
	if _, err := svc.ResolveIn(dbc, "01999888777", "physics", "senior3"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("unknown student: want ErrNotFound, got %v", err)
	}
}
