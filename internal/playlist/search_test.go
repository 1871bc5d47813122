/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import "testing"

func TestEscapeLike(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"100%", `100\%`},
		{"a_b", `a\_b`},
		{`back\slash`, `back\\slash`},
		{`%_\`, `\%\_\\`},
		{`already\%escaped`, `already\\\%escaped`},
		{"", ""},
	}
	for _, tc := range cases {
		if got := EscapeLike(tc.in); got != tc.want {
			t.Errorf("EscapeLike(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeSearchTerm(t *testing.T) {
	if got := NormalizeSearchTerm("  hello world \n"); got != "hello world" {
		t.Errorf("got %q", got)
	}
	if got := NormalizeSearchTerm("   "); got != "" {
		t.Errorf("whitespace-only term normalized to %q, want empty", got)
	}
}

func TestContainsFold(t *testing.T) {
	if !containsFold("The Daily Show", "daily") {
		t.Error("case-insensitive match failed")
	}
	if containsFold("The Daily Show", "weekly") {
		t.Error("unexpected match")
	}
	if !containsFold("100% Invisible", "100%") {
		t.Error("literal percent match failed")
	}
}
