/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package version

import "testing"

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"0.9.3", "0.9.3", 0},
		{"0.9.3", "0.10.0", -1},
		{"1.0.0", "0.99.99", 1},
		{"v1.2.3", "1.2.3", 0},
		{"1.2", "1.2.0", 0},
	}
	for _, tc := range cases {
		if got := compareVersions(tc.a, tc.b); got != tc.want {
			t.Errorf("compareVersions(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestTruncateNotes(t *testing.T) {
	if got := truncateNotes("first line\nsecond line", 200); got != "first line" {
		t.Errorf("truncateNotes kept %q", got)
	}
	long := truncateNotes("aaaaaaaaaaaaaaaaaaaa", 10)
	if len(long) != 10 || long[7:] != "..." {
		t.Errorf("truncated = %q", long)
	}
}
