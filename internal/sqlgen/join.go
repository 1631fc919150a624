package sqlgen

import (
	"strings"

	"github.com/nymics/udpcdc/internal/util/ident"
)

// joinKeywords mirrors cdc_select.py's clean_sql/format_join: tokens
// that must pass through untouched rather than being treated as
// identifiers.
var joinKeywords = map[string]bool{
	"full": true, "left": true, "right": true, "inner": true, "outer": true,
	"cross": true, "join": true, "on": true, "and": true, "or": true, "not": true,
}

// cleanSQL strips line comments, removes SQL-Server square-bracket
// quoting (re-applied later as ANSI double quotes), drops
// "WITH (NOLOCK)" hints, and normalizes whitespace — the Go analogue of
// cdc_select.py's clean_sql().
func cleanSQL(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		lines = append(lines, line)
	}
	text = strings.Join(lines, " ")
	text = strings.ToLower(text)

	text = strings.ReplaceAll(text, "[", "")
	text = strings.ReplaceAll(text, "]", "")
	text = strings.ReplaceAll(text, "=", " = ")
	text = strings.ReplaceAll(text, "(", " ( ")
	text = strings.ReplaceAll(text, ")", " ) ")

	text = strings.Join(strings.Fields(text), " ")
	text = strings.ReplaceAll(text, "with ( nolock )", "")
	return text
}

// NormalizeJoin rewrites a user-supplied join clause into ANSI-quoted
// SQL: square brackets are dropped in favor of double quotes,
// NOLOCK hints are stripped, "database..table" is rewritten to "table",
// and unqualified table names following a JOIN keyword are qualified
// with schemaName. Embedded sub-selects and NATURAL/USING joins are not
// supported, per spec.md §4.2.2.
func NormalizeJoin(joinText, schemaName string) string {
	joinText = strings.TrimSpace(joinText)
	if joinText == "" {
		return ""
	}
	text := cleanSQL(joinText)

	var out []string
	lastWasJoin := false
	for _, token := range strings.Fields(text) {
		switch {
		case joinKeywords[token]:
			out = append(out, token)
			lastWasJoin = strings.HasSuffix(token, "join")
			continue
		case token == "" || !startsAlpha(token):
			out = append(out, token)
			lastWasJoin = false
			continue
		}

		var rendered string
		switch {
		case strings.Contains(token, ".."):
			parts := strings.SplitN(token, "..", 2)
			rendered = ident.Quote(parts[1])
		case strings.Contains(token, "."):
			alias, name, _ := strings.Cut(token, ".")
			rendered = ident.Quote(alias) + "." + ident.Quote(name)
		default:
			rendered = ident.Quote(token)
		}

		if lastWasJoin && !strings.Contains(rendered, ".") {
			rendered = ident.Quote(schemaName) + "." + rendered
		}

		out = append(out, rendered)
		lastWasJoin = false
	}

	return "  " + strings.Join(out, " ")
}

func startsAlpha(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
