package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var searchFolder = cases.Fold()

// NormalizeSearchTerm folds case and normalizes unicode so that
// name searches match regardless of the input method used to enter the
// original record (registry data mixes Latin and Perso-Arabic script).
func NormalizeSearchTerm(term string) string {
	term = strings.TrimSpace(term)
	if term == "" {
		return ""
	}
	return searchFolder.String(norm.NFC.String(term))
}

// TitleCase renders a stored name for display contexts such as digest
// emails.
func TitleCase(s string) string {
	return cases.Title(language.Und).String(s)
}
