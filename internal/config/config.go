// Package config implements the layered INI-style configuration format
// described in spec.md §6: init, bootstrap, connect, a per-project
// .project file, and a per-namespace .tables file are merged in order,
// with later files overriding earlier ones key-by-key. Section headers
// name typed records ("cloud", "database", "datapool", "project",
// "schedule", "table"); {%key%} tokens are expanded against keys loaded
// from earlier files.
package config

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// Section is a single [kind:name] block's raw key/value pairs, after
// template expansion.
type Section struct {
	Kind string
	Name string
	Keys map[string]string
}

// Layers holds the merged configuration produced by loading one or more
// files in order. Sections are keyed by "kind:name" (lower-cased).
type Layers struct {
	sections map[string]*Section
	order    []string
}

// New returns an empty, ready-to-load Layers.
func New() *Layers {
	return &Layers{sections: make(map[string]*Section)}
}

var tokenPattern = regexp.MustCompile(`\{%([A-Za-z0-9_.]+)%\}`)

// Load reads an INI file and merges its sections into l. Section header
// names are split on the first ':' into (kind, name); a header with no
// ':' is treated as kind=header, name=<header>. Keys already present
// from a previously loaded file are overridden; new keys are added.
// Every value is template-expanded against keys from this and all
// previously loaded files before being stored, so later files can
// reference {%key%} tokens defined earlier.
func (l *Layers) Load(path string) error {
	f, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true}, path)
	if err != nil {
		return errors.Wrapf(err, "loading config file %s", path)
	}

	for _, sec := range f.Sections() {
		kind, name := splitHeader(sec.Name())
		key := strings.ToLower(kind + ":" + name)
		dest, ok := l.sections[key]
		if !ok {
			dest = &Section{Kind: kind, Name: name, Keys: make(map[string]string)}
			l.sections[key] = dest
			l.order = append(l.order, key)
		}
		for _, k := range sec.Keys() {
			dest.Keys[k.Name()] = l.expand(k.Value())
		}
	}
	return nil
}

func splitHeader(header string) (kind, name string) {
	if header == ini.DefaultSection {
		return "default", "default"
	}
	if idx := strings.IndexByte(header, ':'); idx >= 0 {
		return header[:idx], header[idx+1:]
	}
	return "header", header
}

// expand replaces {%key%} tokens with the value of a key already loaded
// into l, looked up by its bare name: first in the default section, then
// in any other loaded section (in no defined order when several sections
// hold the key). A qualified "kind.name.key" token is not split into
// section and key; it only matches a key literally named that way.
// Unresolved tokens are left intact.
func (l *Layers) expand(value string) string {
	return tokenPattern.ReplaceAllStringFunc(value, func(tok string) string {
		key := tokenPattern.FindStringSubmatch(tok)[1]
		if v, ok := l.lookup(key); ok {
			return v
		}
		return tok
	})
}

func (l *Layers) lookup(key string) (string, bool) {
	if sec, ok := l.sections["default:default"]; ok {
		if v, ok := sec.Keys[key]; ok {
			return v, true
		}
	}
	for _, sec := range l.sections {
		if v, ok := sec.Keys[key]; ok {
			return v, true
		}
	}
	return "", false
}

// Section returns a loaded section by kind and name, if present.
func (l *Layers) Section(kind, name string) (*Section, bool) {
	sec, ok := l.sections[strings.ToLower(kind+":"+name)]
	return sec, ok
}

// SectionsOfKind returns every loaded section whose kind matches,
// in load order.
func (l *Layers) SectionsOfKind(kind string) []*Section {
	var out []*Section
	kind = strings.ToLower(kind)
	for _, key := range l.order {
		if sec := l.sections[key]; strings.ToLower(sec.Kind) == kind {
			out = append(out, sec)
		}
	}
	return out
}

// Get returns a single key's value from a section, or "" if absent.
func (s *Section) Get(key string) string {
	if s == nil {
		return ""
	}
	return s.Keys[key]
}

// GetDefault returns a key's value, or def if the key is absent or
// empty.
func (s *Section) GetDefault(key, def string) string {
	if v := s.Get(key); v != "" {
		return v
	}
	return def
}

// MustGet returns a key's value or an error naming the missing key and
// section.
func (s *Section) MustGet(key string) (string, error) {
	v := s.Get(key)
	if v == "" {
		return "", errors.Errorf("config: required key %q missing from [%s:%s]", key, s.Kind, s.Name)
	}
	return v, nil
}
