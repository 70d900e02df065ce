package outbox

import (
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

var identPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ParseIdentifier turns "table" or "schema.table" into a pgx.Identifier.
// Parts are restricted to [a-zA-Z0-9_] because the relay interpolates
// the sanitized identifier into SQL.
func ParseIdentifier(s string) (pgx.Identifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, invalidConfig("identifier is empty")
	}

	first, rest, qualified := strings.Cut(s, ".")
	if strings.Contains(rest, ".") {
		return nil, invalidConfig("invalid identifier %q (expected table or schema.table)", s)
	}

	part, err := identPart(first, s)
	if err != nil {
		return nil, err
	}
	if !qualified {
		return pgx.Identifier{part}, nil
	}

	table, err := identPart(rest, s)
	if err != nil {
		return nil, err
	}
	return pgx.Identifier{part, table}, nil
}

// identPart validates one dot-separated segment of the identifier whole.
func identPart(raw, whole string) (string, error) {
	p := strings.TrimSpace(raw)
	if p == "" {
		return "", invalidConfig("invalid identifier %q (empty part)", whole)
	}
	if !identPattern.MatchString(p) {
		return "", invalidConfig("invalid identifier %q (bad part %q)", whole, p)
	}
	return p, nil
}

// ParseIdentifierList splits a comma-separated identifier list, skipping
// blank entries so trailing commas in config are harmless.
func ParseIdentifierList(s string) ([]pgx.Identifier, error) {
	var out []pgx.Identifier
	for _, item := range strings.Split(s, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		ident, err := ParseIdentifier(item)
		if err != nil {
			return nil, err
		}
		out = append(out, ident)
	}
	return out, nil
}
