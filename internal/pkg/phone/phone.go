package phone

import (
	"strings"

	errs "github.com/darisni/darisni-backend/internal/pkg/errors"
)

// Accepted textual forms of the same Egyptian mobile number:
//
//	01XXXXXXXXX
//	+201XXXXXXXXX
//	201XXXXXXXXX
//
// Normalize returns the canonical local form (leading 0). Variants returns
// every accepted form so storage lookups tolerate whichever format the
// record was saved under.

const localLen = 11 // 01XXXXXXXXX

// Normalize strips whitespace and separators and reduces raw to the
// canonical 01XXXXXXXXX form. It returns ErrInvalidArgument for anything
// that is not an Egyptian mobile number.
func Normalize(raw string) (string, error) {
	s := clean(raw)
	switch {
	case strings.HasPrefix(s, "+20"):
		s = "0" + strings.TrimPrefix(s, "+20")
	case strings.HasPrefix(s, "20") && len(s) == localLen+1:
		s = "0" + strings.TrimPrefix(s, "20")
	}
	if len(s) != localLen || !strings.HasPrefix(s, "01") {
		return "", errs.ErrInvalidArgument
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", errs.ErrInvalidArgument
		}
	}
	return s, nil
}

// Variants returns the deduplicated set of accepted spellings of raw, local
// form first. The order is stable so query plans stay predictable.
func Variants(raw string) ([]string, error) {
	local, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	bare := strings.TrimPrefix(local, "0") // 1XXXXXXXXX
	candidates := []string{
		local,
		"+20" + bare,
		"20" + bare,
	}
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

func clean(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch r {
		case ' ', '-', '(', ')':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
