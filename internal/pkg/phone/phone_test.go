package phone

import (
	"errors"
	"testing"

	errs "github.com/darisni/darisni-backend/internal/pkg/errors"
)

func TestNormalizeAcceptedForms(t *testing.T) {
	cases := []string{
		"01000733148",
		"+201000733148",
		"201000733148",
		" 0100 073-3148 ",
	}
	for _, in := range cases {
		got, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q): %v", in, err)
		}
		if got != "01000733148" {
			t.Fatalf("Normalize(%q) = %q, want 01000733148", in, got)
		}
	}
}

func TestNormalizeRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"12345",
		"02000733148",
		"+101000733148",
		"0100073314",
		"010007331488",
		"01000x33148",
	}
	for _, in := range cases {
		if _, err := Normalize(in); !errors.Is(err, errs.ErrInvalidArgument) {
			t.Fatalf("Normalize(%q): want ErrInvalidArgument, got %v", in, err)
		}
	}
}

func TestVariantsStableAndEquivalent(t *testing.T) {
	want := []string{"01000733148", "+201000733148", "201000733148"}
	for _, in := range []string{"01000733148", "+201000733148", "201000733148"} {
		got, err := Variants(in)
		if err != nil {
			t.Fatalf("Variants(%q): %v", in, err)
		}
		if len(got) != len(want) {
			t.Fatalf("Variants(%q) = %v, want %v", in, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("Variants(%q)[%d] = %q, want %q", in, i, got[i], want[i])
			}
		}
	}
}
