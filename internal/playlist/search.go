/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import "strings"

var likeEscaper = strings.NewReplacer(
	`\`, `\\`,
	`%`, `\%`,
	`_`, `\_`,
)

// NormalizeSearchTerm trims surrounding whitespace. An empty result
// means no search is active.
func NormalizeSearchTerm(term string) string {
	return strings.TrimSpace(term)
}

// EscapeLike escapes LIKE metacharacters so the term matches literally.
// The replacement runs in a single pass, so backslashes introduced for
// % and _ are not themselves re-escaped. Queries using the result must
// carry ESCAPE '\'.
func EscapeLike(term string) string {
	return likeEscaper.Replace(term)
}

// containsFold reports whether s contains substr, case-insensitively.
// It is the in-memory counterpart of the escaped LIKE match used for
// manual playlist rows.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
