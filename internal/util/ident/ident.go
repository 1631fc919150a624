// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package ident quotes the SQL identifiers that flow through CDC-select
// generation, schema materialization, and the MERGE builder. It also
// offers Validate, which those builders do not call.
package ident

import (
	"strings"

	"github.com/pkg/errors"
)

// validChars is the strict character class that source identifiers
// must satisfy before they may be quoted and embedded into generated
// SQL: letters, digits, '_', '$', space, '-' and '.'. Anything else
// (embedded quotes, semicolons, tabs, other punctuation) is rejected
// rather than escaped.
func validChars(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
	case r >= 'A' && r <= 'Z':
	case r >= '0' && r <= '9':
	case r == '_' || r == '$' || r == ' ' || r == '-' || r == '.':
	default:
		return false
	}
	return true
}

// Validate returns an error if name contains characters outside the
// identifier character class.
func Validate(name string) error {
	if name == "" {
		return errors.New("empty identifier")
	}
	for _, r := range name {
		if !validChars(r) {
			return errors.Errorf("identifier %q contains disallowed character %q", name, r)
		}
	}
	return nil
}

// Quote double-quotes name for use as an ANSI SQL identifier. A name
// that is already quoted is returned unchanged, matching cdc_select.py's
// q() helper: "don't double double-quote items that are already
// double-quoted".
func Quote(name string) string {
	if strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteAll quotes every element of names.
func QuoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = Quote(n)
	}
	return out
}

// Table is a schema-qualified, identifier-quoted table reference.
type Table struct {
	Schema string
	Name   string
}

// NewTable constructs a Table reference.
func NewTable(schema, name string) Table {
	return Table{Schema: schema, Name: name}
}

// String renders "schema"."table".
func (t Table) String() string {
	return Quote(t.Schema) + "." + Quote(t.Name)
}

// Raw renders schema.table without quoting, for use as a map key or in
// log messages where case-insensitive comparisons are appropriate.
func (t Table) Raw() string {
	return strings.ToLower(t.Schema) + "." + strings.ToLower(t.Name)
}

// Column is a table-aliased, identifier-quoted column reference.
type Column struct {
	Alias string
	Name  string
}

// String renders "alias"."column". If Alias is empty, only "column" is
// rendered.
func (c Column) String() string {
	if c.Alias == "" {
		return Quote(c.Name)
	}
	return Quote(c.Alias) + "." + Quote(c.Name)
}

// AddAlias parses a possibly alias-qualified column name (e.g.
// `s.updated_at` or an already-quoted `"updated_at"`) and returns a
// Column bound to defaultAlias when the input carries none, matching
// cdc_select.py's add_alias().
func AddAlias(columnName, defaultAlias string) Column {
	columnName = strings.ReplaceAll(columnName, `"`, "")
	alias := defaultAlias
	if idx := strings.IndexByte(columnName, '.'); idx >= 0 {
		alias, columnName = columnName[:idx], columnName[idx+1:]
	}
	return Column{Alias: alias, Name: columnName}
}

// AddAliases applies AddAlias across a list of column names.
func AddAliases(columnNames []string, defaultAlias string) []Column {
	out := make([]Column, len(columnNames))
	for i, name := range columnNames {
		out[i] = AddAlias(name, defaultAlias)
	}
	return out
}
