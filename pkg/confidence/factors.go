package confidence

import (
	"fmt"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"github.com/codeGROOVE-dev/exposure/pkg/profile"
)

// minFuzzyLen is the shortest registry entry or source string that may match by containment.
const minFuzzyLen = 4

// scoreName compares the extracted name with the reference name and aliases.
// The first matching rule wins.
func scoreName(ref *profile.Reference, rec *profile.Extracted) (int, string) {
	full := profile.NormalizeName(ref.FullName)
	if full == "" {
		return 0, "name: reference has no name"
	}
	rf, rl := firstLast(full)

	if got := profile.NormalizeName(rec.Name); got != "" {
		for _, a := range ref.Aliases {
			if n := profile.NormalizeName(a); n != "" && n == got {
				return 25, fmt.Sprintf("name: %q matches alias %q (+25)", rec.Name, a)
			}
		}
		if got == full {
			return 30, fmt.Sprintf("name: exact match %q (+30)", got)
		}

		ef, el := firstLast(got)
		if strings.Contains(got, " ") && ef == rf && el == rl {
			return 28, fmt.Sprintf("name: first and last name match %q (+28)", got)
		}
		if strings.Contains(full, got) || strings.Contains(got, full) {
			return 20, fmt.Sprintf("name: %q and %q overlap (+20)", got, full)
		}
		if el == rl && len(rl) > 2 {
			return 15, fmt.Sprintf("name: last name %q matches (+15)", rl)
		}
		if ef == rf && len(rf) > 2 {
			return 10, fmt.Sprintf("name: first name %q matches (+10)", rf)
		}
		if d := levenshtein.ComputeDistance(got, full); d <= 2 {
			return 10, fmt.Sprintf("name: %q is %d edit(s) from %q (+10)", got, d, full)
		}
	}

	first := profile.NormalizeName(rec.FirstName)
	last := profile.NormalizeName(rec.LastName)
	if first == "" && last == "" {
		if rec.Name == "" {
			return 0, "name: record lists no name"
		}
		return 0, fmt.Sprintf("name: %q does not match %q", rec.Name, ref.FullName)
	}
	switch {
	case first != "" && last != "" && first == rf && last == rl:
		return 28, fmt.Sprintf("name: first and last name fields match %q %q (+28)", first, last)
	case last == rl && len(rl) > 2:
		return 15, fmt.Sprintf("name: last name field %q matches (+15)", last)
	case first == rf && len(rf) > 2:
		return 10, fmt.Sprintf("name: first name field %q matches (+10)", first)
	default:
		return 0, fmt.Sprintf("name: %q %q does not match %q", rec.FirstName, rec.LastName, ref.FullName)
	}
}

// firstLast returns the first and last tokens of a normalized name.
func firstLast(name string) (first, last string) {
	f := strings.Fields(name)
	if len(f) == 0 {
		return "", ""
	}
	return f[0], f[len(f)-1]
}

// scoreLocation compares the extracted city and state with every reference
// address and keeps the best match.
func scoreLocation(ref *profile.Reference, rec *profile.Extracted) (int, string) {
	if len(ref.Addresses) == 0 {
		return 0, "location: reference has no address"
	}
	city := profile.NormalizeCity(rec.City)
	state := profile.NormalizeState(rec.State)
	if city == "" && state == "" {
		return 0, "location: record lists no city or state"
	}

	best, why := 0, fmt.Sprintf("location: %s does not match any address", place(rec.City, rec.State))
	for _, a := range ref.Addresses {
		cityOK := city != "" && profile.NormalizeCity(a.City) == city
		stateOK := state != "" && profile.NormalizeState(a.State) == state
		switch {
		case cityOK && stateOK:
			return 25, fmt.Sprintf("location: city and state match %s (+25)", place(a.City, a.State))
		case stateOK && best < 15:
			best, why = 15, fmt.Sprintf("location: state %s matches (+15)", state)
		case cityOK && best < 8:
			best, why = 8, fmt.Sprintf("location: city %q matches (+8)", city)
		}
	}
	return best, why
}

func place(city, state string) string {
	switch {
	case city == "":
		return state
	case state == "":
		return city
	default:
		return city + ", " + state
	}
}

// scoreAge compares the extracted age with the age implied by the reference
// date of birth as of now.
func scoreAge(ref *profile.Reference, rec *profile.Extracted, now time.Time) (int, string) {
	if ref.DateOfBirth == nil {
		return 0, "age: reference has no date of birth"
	}
	if rec.Age.IsZero() {
		return 0, "age: record lists no age"
	}
	got, ok := rec.Age.Years()
	if !ok {
		return 0, fmt.Sprintf("age: could not read an age from %q", rec.Age.String())
	}

	want := profile.AgeOn(*ref.DateOfBirth, now)
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	var pts int
	switch {
	case diff == 0:
		pts = 20
	case diff <= 2:
		pts = 15
	case diff <= 5:
		pts = 10
	case diff <= 10:
		pts = 5
	default:
		return 0, fmt.Sprintf("age: %d is %d years from expected %d", got, diff, want)
	}
	return pts, fmt.Sprintf("age: %d vs expected %d, off by %d (+%d)", got, want, diff, pts)
}

// scoreData looks for shared phone numbers and email addresses.
func scoreData(ref *profile.Reference, rec *profile.Extracted) (int, string) {
	var pts int
	var hits []string

	if p, ok := sharedPhone(ref.Phones, rec.Phones); ok {
		pts += 5
		hits = append(hits, "phone ..."+last4(p))
	}
	if e, ok := sharedEmail(ref.Emails, rec.Emails); ok {
		pts += 5
		hits = append(hits, "email "+e)
	}
	if pts == 0 {
		return 0, "data: no shared phone or email"
	}
	if pts >= 10 {
		pts = min(pts+5, MaxDataCorrelation)
		hits = append(hits, "bonus")
	}
	return pts, fmt.Sprintf("data: %s (+%d)", strings.Join(hits, ", "), pts)
}

func sharedPhone(want, got []string) (string, bool) {
	seen := make(map[string]bool, len(want))
	for _, p := range want {
		if d := profile.PhoneDigits(p); d != "" {
			seen[d] = true
		}
	}
	for _, p := range got {
		if d := profile.PhoneDigits(p); d != "" && seen[d] {
			return d, true
		}
	}
	return "", false
}

func sharedEmail(want, got []string) (string, bool) {
	seen := make(map[string]bool, len(want))
	for _, e := range want {
		if n := profile.NormalizeEmail(e); n != "" {
			seen[n] = true
		}
	}
	for _, e := range got {
		if n := profile.NormalizeEmail(e); n != "" && seen[n] {
			return n, true
		}
	}
	return "", false
}

func last4(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}

// scoreSource rates trust in the catalog a record came from.
func (v *Validator) scoreSource(src string) (int, string) {
	s := strings.ToLower(strings.TrimSpace(src))
	if s == "" {
		return 7, "source: none given (+7)"
	}
	if v.known[s] {
		return 10, fmt.Sprintf("source: %q is a known catalog (+10)", src)
	}
	for _, k := range v.knownList {
		if len(k) < minFuzzyLen || len(s) < minFuzzyLen {
			continue
		}
		if strings.Contains(s, k) || strings.Contains(k, s) {
			return 9, fmt.Sprintf("source: %q resembles known catalog %q (+9)", src, k)
		}
	}
	return 7, fmt.Sprintf("source: %q is not a known catalog (+7)", src)
}
