// Package source describes the catalogs personal data may appear on and how
// they are related: which categories resell from which, and who owns whom.
//
// A Graph is built once from a Directory and is read-only afterwards, so a
// single Graph may be shared by any number of concurrent scans.
package source

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Common errors returned when building or querying a Graph.
var (
	ErrInvalidDirectory = errors.New("invalid source directory")
	ErrUnknownSource    = errors.New("unknown source")
)

// Removal holds how a listing is taken down. The scoring core only looks at
// whether a contact method exists.
type Removal struct {
	Method       string `yaml:"method,omitempty" json:"method,omitempty"`   // "form", "email", "manual"
	Contact      string `yaml:"contact,omitempty" json:"contact,omitempty"` // URL or address
	NonRemovable bool   `yaml:"non_removable,omitempty" json:"non_removable,omitempty"`
}

// Source is one catalog.
//
//nolint:govet // fieldalignment: intentional layout for readability
type Source struct {
	Key         string   `yaml:"key" json:"key"`
	Name        string   `yaml:"name" json:"name"`
	Category    Category `yaml:"category" json:"category"`
	Parent      string   `yaml:"parent,omitempty" json:"parent,omitempty"` // Owning company's source key
	Removal     Removal  `yaml:"removal,omitempty" json:"removal,omitzero"`
	Placeholder bool     `yaml:"placeholder,omitempty" json:"placeholder,omitempty"` // Listed for coverage only
}

// Rule says that a listing in one category implies a listing in another with the given weight.
type Rule struct {
	From   Category `yaml:"from" json:"from"`
	To     Category `yaml:"to" json:"to"`
	Weight float64  `yaml:"weight" json:"weight"`
}

// SchemaVersion is bumped whenever the Directory layout changes incompatibly.
const SchemaVersion = 1

// Directory is the serialized form of a Graph.
type Directory struct {
	Sources      []Source `yaml:"sources"`
	Rules        []Rule   `yaml:"rules"`
	Excluded     []string `yaml:"excluded,omitempty"`
	HighSeverity []string `yaml:"high_severity,omitempty"`
}

// Graph is an indexed, immutable Directory.
type Graph struct {
	byKey    map[string]*Source
	keys     []string
	byCat    map[Category][]string
	rules    map[Category][]Rule
	children map[string][]string
	excluded map[string]bool
	high     map[string]bool
}

// New validates a directory and indexes it.
//
//nolint:gocognit // validation walks every table once
func New(d Directory) (*Graph, error) {
	g := &Graph{
		byKey:    make(map[string]*Source, len(d.Sources)),
		byCat:    make(map[Category][]string),
		rules:    make(map[Category][]Rule),
		children: make(map[string][]string),
		excluded: make(map[string]bool, len(d.Excluded)),
		high:     make(map[string]bool, len(d.HighSeverity)),
	}

	for i := range d.Sources {
		s := d.Sources[i]
		s.Key = strings.ToLower(strings.TrimSpace(s.Key))
		s.Parent = strings.ToLower(strings.TrimSpace(s.Parent))
		if s.Key == "" {
			return nil, fmt.Errorf("%w: source #%d has no key", ErrInvalidDirectory, i)
		}
		if !s.Category.Valid() {
			return nil, fmt.Errorf("%w: source %q has unknown category %q", ErrInvalidDirectory, s.Key, s.Category)
		}
		if _, dup := g.byKey[s.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate source %q", ErrInvalidDirectory, s.Key)
		}
		if s.Parent == s.Key {
			return nil, fmt.Errorf("%w: source %q is its own parent", ErrInvalidDirectory, s.Key)
		}
		if s.Name == "" {
			s.Name = s.Key
		}
		g.byKey[s.Key] = &s
		g.keys = append(g.keys, s.Key)
	}

	for _, k := range g.keys {
		s := g.byKey[k]
		if s.Parent == "" {
			continue
		}
		if _, ok := g.byKey[s.Parent]; !ok {
			return nil, fmt.Errorf("%w: source %q has unknown parent %q", ErrInvalidDirectory, s.Key, s.Parent)
		}
		g.children[s.Parent] = append(g.children[s.Parent], s.Key)
	}

	for _, r := range d.Rules {
		if !r.From.Valid() || !r.To.Valid() {
			return nil, fmt.Errorf("%w: rule %s -> %s uses an unknown category", ErrInvalidDirectory, r.From, r.To)
		}
		if r.Weight <= 0 || r.Weight > 1 {
			return nil, fmt.Errorf("%w: rule %s -> %s has weight %v outside (0,1]", ErrInvalidDirectory, r.From, r.To, r.Weight)
		}
		g.rules[r.From] = append(g.rules[r.From], r)
	}

	for _, k := range d.Excluded {
		g.excluded[strings.ToLower(strings.TrimSpace(k))] = true
	}
	for _, k := range d.HighSeverity {
		g.high[strings.ToLower(strings.TrimSpace(k))] = true
	}

	sort.Strings(g.keys)
	for _, k := range g.keys {
		c := g.byKey[k].Category
		g.byCat[c] = append(g.byCat[c], k)
	}
	for p := range g.children {
		sort.Strings(g.children[p])
	}
	return g, nil
}

// Parse decodes a YAML directory.
func Parse(data []byte) (Directory, error) {
	var d Directory
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return Directory{}, fmt.Errorf("%w: %w", ErrInvalidDirectory, err)
	}
	return d, nil
}

// Load reads a YAML directory and builds a Graph from it.
func Load(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return New(d)
}

//go:embed directory.yaml
var defaultDirectory []byte

var defaultGraph = sync.OnceValues(func() (*Graph, error) {
	return Load(bytes.NewReader(defaultDirectory))
})

// Default returns the Graph for the built-in directory.
// It panics if the embedded directory is invalid, which tests guard against.
func Default() *Graph {
	g, err := defaultGraph()
	if err != nil {
		panic("embedded source directory: " + err.Error())
	}
	return g
}

// Lookup returns the source with the given key.
func (g *Graph) Lookup(key string) (Source, bool) {
	s, ok := g.byKey[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Source{}, false
	}
	return *s, true
}

// CategoryOf returns the category of a source key.
func (g *Graph) CategoryOf(key string) (Category, bool) {
	s, ok := g.Lookup(key)
	return s.Category, ok
}

// Sources returns every source sorted by key.
func (g *Graph) Sources() []Source {
	out := make([]Source, 0, len(g.keys))
	for _, k := range g.keys {
		out = append(out, *g.byKey[k])
	}
	return out
}

// InCategory returns the keys of every source in category c, sorted.
func (g *Graph) InCategory(c Category) []string {
	return slices.Clone(g.byCat[c])
}

// Len returns the number of sources.
func (g *Graph) Len() int { return len(g.keys) }

// Rules returns the projection rules starting from category c.
func (g *Graph) Rules(c Category) []Rule {
	return slices.Clone(g.rules[c])
}

// Parent returns the key of the company owning key, if any.
func (g *Graph) Parent(key string) (string, bool) {
	s, ok := g.Lookup(key)
	if !ok || s.Parent == "" {
		return "", false
	}
	return s.Parent, true
}

// Children returns the keys of sources owned by key, sorted.
func (g *Graph) Children(key string) []string {
	return slices.Clone(g.children[strings.ToLower(strings.TrimSpace(key))])
}

// Siblings returns the other sources sharing key's parent, sorted.
func (g *Graph) Siblings(key string) []string {
	parent, ok := g.Parent(key)
	if !ok {
		return nil
	}
	self := strings.ToLower(strings.TrimSpace(key))
	var out []string
	for _, c := range g.children[parent] {
		if c != self {
			out = append(out, c)
		}
	}
	return out
}

// Excluded reports whether key must never be a projection target, and why.
// Keys that are not in the directory are excluded.
func (g *Graph) Excluded(key string) (reason string, excluded bool) {
	s, ok := g.Lookup(key)
	switch {
	case !ok:
		return "not in directory", true
	case g.excluded[s.Key]:
		return "on exclusion list", true
	case s.Placeholder:
		return "coverage placeholder", true
	case s.Removal.NonRemovable && s.Removal.Contact == "":
		return "non-removable with no contact method", true
	}
	if why, bad := excludedCategories[s.Category]; bad {
		return why, true
	}
	return "", false
}

// Severity ranks a listing at key.
func (g *Graph) Severity(key string) Severity {
	s, ok := g.Lookup(key)
	if !ok {
		return SeverityLow
	}
	if g.high[s.Key] {
		return SeverityHigh
	}
	switch s.Category {
	case CategoryProfessional, CategoryMarketing:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Known returns every key and display name, lowercased, for reliability lookups.
func (g *Graph) Known() []string {
	out := make([]string, 0, 2*len(g.keys))
	for _, k := range g.keys {
		out = append(out, k)
		if n := strings.ToLower(g.byKey[k].Name); n != k {
			out = append(out, n)
		}
	}
	return out
}
