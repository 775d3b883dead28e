package students

import (
	"gorm.io/gorm"

	types "github.com/darisni/darisni-backend/internal/domain"
	"github.com/darisni/darisni-backend/internal/platform/logger"
)

// Store is the slice of a Registry the resolver services depend on; tests
// substitute it with an in-memory implementation.
type Store interface {
	Ordered() []StudentRepo
	ForSubject(subject string) []StudentRepo
	Lookup(subject, grade string) (StudentRepo, bool)
}

// Registry holds one StudentRepo per configured collection, preserving the
// configured probe order.
type Registry struct {
	entries []StudentRepo
}

func NewRegistry(db *gorm.DB, baseLog *logger.Logger, refs []types.CollectionRef) *Registry {
	entries := make([]StudentRepo, 0, len(refs))
	for _, ref := range refs {
		entries = append(entries, NewStudentRepo(db, baseLog, ref))
	}
	return &Registry{entries: entries}
}

func (r *Registry) Ordered() []StudentRepo {
	return r.entries
}

func (r *Registry) ForSubject(subject string) []StudentRepo {
	if subject == "" {
		return r.entries
	}
	out := make([]StudentRepo, 0, len(r.entries))
	for _, e := range r.entries {
		if e.Ref().Subject == subject {
			out = append(out, e)
		}
	}
	return out
}

func (r *Registry) Lookup(subject, grade string) (StudentRepo, bool) {
	for _, e := range r.entries {
		ref := e.Ref()
		if ref.Subject == subject && ref.Grade == grade {
			return e, true
		}
	}
	return nil, false
}

var _ Store = (*Registry)(nil)
