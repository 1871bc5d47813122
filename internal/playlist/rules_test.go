/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"reflect"
	"testing"
	"time"

	"github.com/friendsincode/skald_podcasts/internal/models"
)

func TestRulesRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		rules SmartRules
	}{
		{"default", DefaultRules()},
		{
			"everything set",
			SmartRules{
				EpisodeStatus:  EpisodeStatusRule{Unplayed: true, InProgress: true},
				DownloadStatus: DownloadDownloaded,
				MediaType:      MediaTypeVideo,
				ReleaseDate:    ReleaseLastWeek,
				Starred:        StarredOnly,
				Podcasts:       SelectedPodcasts("pod-1", "pod-2"),
				Duration:       EpisodeDurationRule{Constrained: true, LongerThan: 15, ShorterThan: 90},
			},
		},
		{
			"not downloaded audio",
			SmartRules{
				EpisodeStatus:  EpisodeStatusRule{Completed: true},
				DownloadStatus: DownloadNotDownloaded,
				MediaType:      MediaTypeAudio,
				ReleaseDate:    ReleaseLast24Hours,
				Podcasts:       AllPodcasts(),
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p models.Playlist
			tc.rules.Apply(&p)
			got := RulesFromPlaylist(p)
			if !reflect.DeepEqual(got, tc.rules) {
				t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, tc.rules)
			}
		})
	}
}

func TestRulesApplyDownloadAnyPersistsBothFlags(t *testing.T) {
	var p models.Playlist
	SmartRules{DownloadStatus: DownloadAny, Podcasts: AllPodcasts()}.Apply(&p)
	if !p.Downloaded || !p.NotDownloaded {
		t.Errorf("DownloadAny persisted downloaded=%v notDownloaded=%v, want both true", p.Downloaded, p.NotDownloaded)
	}
}

func TestRulesApplyUnconstrainedDurationKeepsDefaults(t *testing.T) {
	var p models.Playlist
	DefaultRules().Apply(&p)
	if p.FilterDuration {
		t.Fatal("unconstrained duration persisted filterDuration=true")
	}
	if p.LongerThan != 20 || p.ShorterThan != 40 {
		t.Errorf("duration defaults = %d/%d, want 20/40", p.LongerThan, p.ShorterThan)
	}

	// The stored defaults must not resurrect a duration filter.
	if got := RulesFromPlaylist(p).Duration; got.Constrained {
		t.Errorf("defaults round-tripped into a constrained rule: %+v", got)
	}
}

func TestEpisodeStatusRuleConstraining(t *testing.T) {
	cases := []struct {
		name string
		rule EpisodeStatusRule
		want bool
	}{
		{"none selected", EpisodeStatusRule{}, false},
		{"all selected", EpisodeStatusRule{Unplayed: true, InProgress: true, Completed: true}, false},
		{"unplayed only", EpisodeStatusRule{Unplayed: true}, true},
		{"two selected", EpisodeStatusRule{InProgress: true, Completed: true}, true},
	}
	for _, tc := range cases {
		if got := tc.rule.IsConstraining(); got != tc.want {
			t.Errorf("%s: IsConstraining() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestReleaseWindowStart(t *testing.T) {
	rules := SmartRules{ReleaseDate: ReleaseLast24Hours}
	start := rules.ReleaseWindowStart(testNow)
	if want := testNow.Add(-24 * time.Hour); !start.Equal(want) {
		t.Errorf("window start = %v, want %v", start, want)
	}

	if !(SmartRules{}).ReleaseWindowStart(testNow).IsZero() {
		t.Error("anytime rule produced a bound")
	}
}

func TestRulesFromPlaylistEmptySelectionFallsBackToAll(t *testing.T) {
	p := models.Playlist{AllPodcasts: false, PodcastUUIDs: ""}
	if got := RulesFromPlaylist(p).Podcasts; !got.All {
		t.Errorf("empty selection derived %+v, want All", got)
	}
}
