package votes

import (
	"errors"
	"testing"

	"github.com/maaaruch/memory-tribunal/internal/domain"
)

func TestDecodeTally(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want domain.Tally
		ok   bool
	}{
		{"valid", `{"yes":3,"no":9}`, domain.Tally{Yes: 3, No: 9}, true},
		{"zeros", `{"yes":0,"no":0}`, domain.Tally{}, true},
		{"extra_fields", `{"yes":1,"no":2,"maybe":5}`, domain.Tally{Yes: 1, No: 2}, true},
		{"exponent", `{"yes":1e3,"no":2.0}`, domain.Tally{Yes: 1000, No: 2}, true},
		{"empty", ``, domain.Tally{}, false},
		{"not_json", `yes=1;no=2`, domain.Tally{}, false},
		{"null", `null`, domain.Tally{}, false},
		{"array", `[1,2]`, domain.Tally{}, false},
		{"missing_no", `{"yes":1}`, domain.Tally{}, false},
		{"string_field", `{"yes":"1","no":2}`, domain.Tally{}, false},
		{"null_field", `{"yes":1,"no":null}`, domain.Tally{}, false},
		{"bool_field", `{"yes":true,"no":2}`, domain.Tally{}, false},
		{"negative", `{"yes":-1,"no":2}`, domain.Tally{}, false},
		{"fraction", `{"yes":1.5,"no":2}`, domain.Tally{}, false},
		{"huge", `{"yes":1e300,"no":2}`, domain.Tally{}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeTally(tt.raw)
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Fatalf("got %+v want %+v", got, tt.want)
				}
				return
			}
			if !errors.Is(err, errMalformed) {
				t.Fatalf("expected errMalformed, got %v (tally %+v)", err, got)
			}
		})
	}
}

func TestEncodeTally(t *testing.T) {
	t.Parallel()

	got, err := encodeTally(domain.Tally{Yes: 1, No: 0})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got != `{"yes":1,"no":0}` {
		t.Fatalf("got %s", got)
	}
}

func FuzzDecodeTally(f *testing.F) {
	seeds := []string{
		`{"yes":1,"no":2}`,
		`{"yes":"1","no":2}`,
		`{"yes":-0,"no":0}`,
		`{}`,
		`null`,
		`{"yes":1e20,"no":1}`,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		got, err := decodeTally(raw)
		if err != nil {
			if got != (domain.Tally{}) {
				t.Fatalf("non-zero tally with error: %+v", got)
			}
			return
		}
		if got.Yes < 0 || got.No < 0 {
			t.Fatalf("negative count from %q: %+v", raw, got)
		}

		// anything accepted re-encodes to something accepted with the same value
		enc, err := encodeTally(got)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		again, err := decodeTally(enc)
		if err != nil || again != got {
			t.Fatalf("re-decode %q: %+v, %v", enc, again, err)
		}
	})
}
