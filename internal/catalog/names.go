package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NameCandidate is one reading of a free-text author name.
type NameCandidate struct {
	LastName  string
	FirstName string
}

// Candidates returns the two readings of name: last name first (A) and last
// name last (B). Tokens are whitespace separated and title-cased; a single
// token yields an empty first name in both readings. ok is false when name
// holds no tokens.
func Candidates(name string) (a, b NameCandidate, ok bool) {
	tokens := strings.Fields(name)
	if len(tokens) == 0 {
		return NameCandidate{}, NameCandidate{}, false
	}
	caser := cases.Title(language.Und)
	for i, tok := range tokens {
		tokens[i] = caser.String(tok)
	}
	a = NameCandidate{LastName: tokens[0], FirstName: strings.Join(tokens[1:], " ")}
	b = NameCandidate{LastName: tokens[len(tokens)-1], FirstName: strings.Join(tokens[:len(tokens)-1], " ")}
	return a, b, true
}

// fold returns the case-insensitive comparison key of s.
func fold(s string) string {
	return cases.Fold().String(s)
}

// sameName compares names ignoring case.
func sameName(x, y string) bool {
	return fold(x) == fold(y)
}

// SplitAuthorList splits a comma separated author field into trimmed names,
// dropping empty entries.
func SplitAuthorList(field string) []string {
	parts := strings.Split(field, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
