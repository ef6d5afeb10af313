// Package profile defines the identity records compared during an exposure scan.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Common errors returned when checking records.
var (
	ErrNoName     = errors.New("reference profile has no name")
	ErrInvalidAge = errors.New("invalid age value")
)

// Address is one postal address of the reference subject.
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country,omitempty"`
}

// Reference describes the person whose exposure is being checked.
// It is supplied already normalized by the profile owner and must not be
// modified while a scan is running.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Reference struct {
	FullName    string     `json:"full_name"`
	Aliases     []string   `json:"aliases,omitempty"`
	Addresses   []Address  `json:"addresses,omitempty"` // Most recent first
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Phones      []string   `json:"phones,omitempty"`
	Emails      []string   `json:"emails,omitempty"`
	Usernames   []string   `json:"usernames,omitempty"`
}

// Check reports whether the reference carries the minimum needed to score against.
func (r *Reference) Check() error {
	if r == nil || strings.TrimSpace(r.FullName) == "" {
		return ErrNoName
	}
	return nil
}

// HasAddress returns true if at least one address has any field set.
func (r *Reference) HasAddress() bool {
	if r == nil {
		return false
	}
	for _, a := range r.Addresses {
		if !a.IsZero() {
			return true
		}
	}
	return false
}

// IsZero reports whether every field of the address is blank.
func (a Address) IsZero() bool {
	for _, f := range []string{a.Street, a.City, a.State, a.Zip, a.Country} {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Extracted is the partial record a collaborator observed at one catalog.
// Every field is optional.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Extracted struct {
	Name      string   `json:"name,omitempty"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	Age       Age      `json:"age,omitzero"`
	Phones    []string `json:"phones,omitempty"`
	Emails    []string `json:"emails,omitempty"`
}

var firstInt = regexp.MustCompile(`\d+`)

// Age is an age as listed by a catalog: either a number or free text such as
// "Age 44" or "40s". The zero value means no age was listed.
type Age struct {
	raw string
}

// AgeOf returns an Age holding n years.
func AgeOf(n int) Age {
	return Age{raw: strconv.Itoa(n)}
}

// AgeText returns an Age holding free text.
func AgeText(s string) Age {
	return Age{raw: strings.TrimSpace(s)}
}

// IsZero reports whether no age was listed.
func (a Age) IsZero() bool { return a.raw == "" }

// String returns the age as listed.
func (a Age) String() string { return a.raw }

// Years returns the first integer found in the listed age.
func (a Age) Years() (int, bool) {
	m := firstInt.FindString(a.raw)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// MarshalJSON encodes the age as a number when it is purely numeric.
func (a Age) MarshalJSON() ([]byte, error) {
	if n, err := strconv.Atoi(a.raw); err == nil {
		return json.Marshal(n)
	}
	return json.Marshal(a.raw)
}

// UnmarshalJSON accepts a JSON number, a JSON string, or null.
func (a *Age) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		*a = Age{}
		return nil
	case strings.HasPrefix(s, `"`):
		var text string
		if err := json.Unmarshal(b, &text); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidAge, err)
		}
		*a = AgeText(text)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidAge, s)
		}
		f, err := n.Float64()
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidAge, s)
		}
		*a = AgeOf(int(f))
		return nil
	}
}

// AgeOn returns the age in whole years of someone born on dob, as of now.
// The year is not counted until the birthday month and day are reached.
func AgeOn(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}
