package profile

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "John Smith", "john smith"},
		{"collapse whitespace", "  John   Smith ", "john smith"},
		{"strip digits and punctuation", "John Smith Jr. 3rd", "john smith jr rd"},
		{"hyphen splits tokens", "Mary-Jane Watson", "mary jane watson"},
		{"apostrophe joins", "Conan O'Brien", "conan obrien"},
		{"diacritics folded", "José Núñez", "jose nunez"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.in); got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeState(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"IL", "IL"},
		{"il", "IL"},
		{"Illinois", "IL"},
		{"new york", "NY"},
		{"  Texas ", "TX"},
		{"Bavaria", "bavaria"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeState(tt.in); got != tt.want {
			t.Errorf("NormalizeState(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPhoneDigits(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"312-555-1234", "3125551234"},
		{"+1 (312) 555-1234", "3125551234"},
		{"555-1234", "5551234"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := PhoneDigits(tt.in); got != tt.want {
			t.Errorf("PhoneDigits(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAgeYears(t *testing.T) {
	tests := []struct {
		name   string
		age    Age
		want   int
		wantOK bool
	}{
		{"numeric", AgeOf(44), 44, true},
		{"text", AgeText("Age 44"), 44, true},
		{"decade", AgeText("40s"), 40, true},
		{"first integer wins", AgeText("between 41 and 45"), 41, true},
		{"no digits", AgeText("unknown"), 0, false},
		{"zero value", Age{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.age.Years()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Years() = %d, %v; want %d, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAgeJSON(t *testing.T) {
	var rec Extracted
	if err := json.Unmarshal([]byte(`{"name":"John Smith","age":44}`), &rec); err != nil {
		t.Fatalf("unmarshal numeric age: %v", err)
	}
	if n, ok := rec.Age.Years(); !ok || n != 44 {
		t.Errorf("numeric age = %d, %v; want 44", n, ok)
	}

	if err := json.Unmarshal([]byte(`{"age":"Age 52"}`), &rec); err != nil {
		t.Fatalf("unmarshal text age: %v", err)
	}
	if rec.Age.String() != "Age 52" {
		t.Errorf("text age = %q, want %q", rec.Age.String(), "Age 52")
	}

	if err := json.Unmarshal([]byte(`{"age":true}`), &rec); !errors.Is(err, ErrInvalidAge) {
		t.Errorf("bool age error = %v, want ErrInvalidAge", err)
	}

	b, err := json.Marshal(Extracted{Name: "A B", Age: AgeOf(30)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if diff := cmp.Diff(`{"name":"A B","age":30}`, string(b)); diff != "" {
		t.Errorf("marshal mismatch (-want +got):\n%s", diff)
	}
}

func TestAgeOn(t *testing.T) {
	dob := time.Date(1980, time.June, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"day before birthday", time.Date(2024, time.June, 14, 0, 0, 0, 0, time.UTC), 43},
		{"on birthday", time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), 44},
		{"earlier month", time.Date(2024, time.March, 30, 0, 0, 0, 0, time.UTC), 43},
		{"later month", time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC), 44},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AgeOn(dob, tt.now); got != tt.want {
				t.Errorf("AgeOn() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReferenceCheck(t *testing.T) {
	var nilRef *Reference
	if err := nilRef.Check(); !errors.Is(err, ErrNoName) {
		t.Errorf("nil reference: got %v, want ErrNoName", err)
	}
	if err := (&Reference{FullName: "  "}).Check(); !errors.Is(err, ErrNoName) {
		t.Errorf("blank name: got %v, want ErrNoName", err)
	}
	if err := (&Reference{FullName: "Jane Doe"}).Check(); err != nil {
		t.Errorf("valid reference: got %v", err)
	}
}

func TestReferenceHasAddress(t *testing.T) {
	tests := []struct {
		name string
		ref  *Reference
		want bool
	}{
		{"nil", nil, false},
		{"none", &Reference{FullName: "Jane Doe"}, false},
		{"blank", &Reference{Addresses: []Address{{City: " ", Zip: ""}}}, false},
		{"city and state", &Reference{Addresses: []Address{{City: "Denver", State: "CO"}}}, true},
		{"street and zip", &Reference{Addresses: []Address{{Street: "1 Main", Zip: "80202"}}}, true},
		{"zip only", &Reference{Addresses: []Address{{}, {Zip: "80202"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ref.HasAddress(); got != tt.want {
				t.Errorf("HasAddress() = %v, want %v", got, tt.want)
			}
		})
	}
}
