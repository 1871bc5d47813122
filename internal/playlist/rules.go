/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playlist implements the playlist engine: smart rule
// compilation, episode views, previews, manual membership management,
// and auto-download selection.
package playlist

import (
	"strings"
	"time"

	"github.com/friendsincode/skald_podcasts/internal/models"
)

// Default duration bounds persisted when no duration filter is active.
// The stored range is fixed for storage-format compatibility with the
// sync protocol and contributes no filter.
const (
	defaultLongerThanMinutes  = 20
	defaultShorterThanMinutes = 40
)

// EpisodeStatusRule selects episodes by playback progress. The three
// flags combine with OR. All false behaves the same as all true: no
// status constraint.
type EpisodeStatusRule struct {
	Unplayed   bool
	InProgress bool
	Completed  bool
}

// IsConstraining reports whether the rule filters anything.
func (r EpisodeStatusRule) IsConstraining() bool {
	any := r.Unplayed || r.InProgress || r.Completed
	all := r.Unplayed && r.InProgress && r.Completed
	return any && !all
}

// DownloadStatusRule selects episodes by download state.
type DownloadStatusRule int

const (
	DownloadAny DownloadStatusRule = iota
	DownloadDownloaded
	DownloadNotDownloaded
)

// MediaTypeRule selects episodes by media type.
type MediaTypeRule int

const (
	MediaTypeAny MediaTypeRule = iota
	MediaTypeAudio
	MediaTypeVideo
)

// ReleaseDateRule bounds episodes to a trailing release window.
type ReleaseDateRule int

const (
	ReleaseAnyTime ReleaseDateRule = iota
	ReleaseLast24Hours
	ReleaseLast3Days
	ReleaseLastWeek
	ReleaseLast2Weeks
	ReleaseLastMonth
)

// FilterHours returns the persisted window size in hours.
func (r ReleaseDateRule) FilterHours() int {
	switch r {
	case ReleaseLast24Hours:
		return models.FilterLast24H
	case ReleaseLast3Days:
		return models.FilterLast3Days
	case ReleaseLastWeek:
		return models.FilterLastWeek
	case ReleaseLast2Weeks:
		return models.FilterLast2Weeks
	case ReleaseLastMonth:
		return models.FilterLastMonth
	default:
		return models.FilterAnytime
	}
}

func releaseDateFromHours(hours int) ReleaseDateRule {
	switch hours {
	case models.FilterLast24H:
		return ReleaseLast24Hours
	case models.FilterLast3Days:
		return ReleaseLast3Days
	case models.FilterLastWeek:
		return ReleaseLastWeek
	case models.FilterLast2Weeks:
		return ReleaseLast2Weeks
	case models.FilterLastMonth:
		return ReleaseLastMonth
	default:
		return ReleaseAnyTime
	}
}

// StarredRule optionally restricts to starred episodes.
type StarredRule int

const (
	StarredAny StarredRule = iota
	StarredOnly
)

// PodcastsRule scopes episodes to a podcast set. The zero value (All)
// scopes to every subscribed podcast.
type PodcastsRule struct {
	All   bool
	UUIDs []string
}

// AllPodcasts matches episodes of any subscribed podcast.
func AllPodcasts() PodcastsRule {
	return PodcastsRule{All: true}
}

// SelectedPodcasts matches episodes of the given podcasts only.
func SelectedPodcasts(uuids ...string) PodcastsRule {
	return PodcastsRule{UUIDs: uuids}
}

// EpisodeDurationRule optionally bounds episode duration. Bounds are
// whole minutes.
type EpisodeDurationRule struct {
	Constrained bool
	LongerThan  int
	ShorterThan int
}

// SmartRules is the immutable rule bundle of a smart playlist. Two
// equal values compile to the same predicate and persist to the same
// columns.
type SmartRules struct {
	EpisodeStatus  EpisodeStatusRule
	DownloadStatus DownloadStatusRule
	MediaType      MediaTypeRule
	ReleaseDate    ReleaseDateRule
	Starred        StarredRule
	Podcasts       PodcastsRule
	Duration       EpisodeDurationRule
}

// DefaultRules matches every episode of every subscribed podcast.
func DefaultRules() SmartRules {
	return SmartRules{
		EpisodeStatus: EpisodeStatusRule{Unplayed: true, InProgress: true, Completed: true},
		Podcasts:      AllPodcasts(),
	}
}

// Apply writes the rule bundle into the playlist's persisted columns.
func (r SmartRules) Apply(p *models.Playlist) {
	p.Unplayed = r.EpisodeStatus.Unplayed
	p.PartiallyPlayed = r.EpisodeStatus.InProgress
	p.Finished = r.EpisodeStatus.Completed

	p.Downloaded = r.DownloadStatus == DownloadDownloaded || r.DownloadStatus == DownloadAny
	p.NotDownloaded = r.DownloadStatus == DownloadNotDownloaded || r.DownloadStatus == DownloadAny

	switch r.MediaType {
	case MediaTypeAudio:
		p.AudioVideo = models.AudioVideoFilterAudioOnly
	case MediaTypeVideo:
		p.AudioVideo = models.AudioVideoFilterVideoOnly
	default:
		p.AudioVideo = models.AudioVideoFilterAll
	}

	p.FilterHours = r.ReleaseDate.FilterHours()
	p.Starred = r.Starred == StarredOnly

	if r.Podcasts.All || len(r.Podcasts.UUIDs) == 0 {
		p.AllPodcasts = true
		p.PodcastUUIDs = ""
	} else {
		p.AllPodcasts = false
		p.PodcastUUIDs = strings.Join(r.Podcasts.UUIDs, ",")
	}

	if r.Duration.Constrained {
		p.FilterDuration = true
		p.LongerThan = r.Duration.LongerThan
		p.ShorterThan = r.Duration.ShorterThan
	} else {
		p.FilterDuration = false
		p.LongerThan = defaultLongerThanMinutes
		p.ShorterThan = defaultShorterThanMinutes
	}
}

// RulesFromPlaylist re-derives the rule bundle from persisted columns.
func RulesFromPlaylist(p models.Playlist) SmartRules {
	var download DownloadStatusRule
	switch {
	case p.Downloaded && p.NotDownloaded:
		download = DownloadAny
	case p.Downloaded:
		download = DownloadDownloaded
	case p.NotDownloaded:
		download = DownloadNotDownloaded
	default:
		download = DownloadAny
	}

	var media MediaTypeRule
	switch p.AudioVideo {
	case models.AudioVideoFilterAudioOnly:
		media = MediaTypeAudio
	case models.AudioVideoFilterVideoOnly:
		media = MediaTypeVideo
	default:
		media = MediaTypeAny
	}

	var starred StarredRule
	if p.Starred {
		starred = StarredOnly
	}

	podcasts := AllPodcasts()
	if !p.AllPodcasts {
		if uuids := p.PodcastUUIDList(); len(uuids) > 0 {
			podcasts = SelectedPodcasts(uuids...)
		}
	}

	duration := EpisodeDurationRule{}
	if p.FilterDuration {
		duration = EpisodeDurationRule{
			Constrained: true,
			LongerThan:  p.LongerThan,
			ShorterThan: p.ShorterThan,
		}
	}

	return SmartRules{
		EpisodeStatus: EpisodeStatusRule{
			Unplayed:   p.Unplayed,
			InProgress: p.PartiallyPlayed,
			Completed:  p.Finished,
		},
		DownloadStatus: download,
		MediaType:      media,
		ReleaseDate:    releaseDateFromHours(p.FilterHours),
		Starred:        starred,
		Podcasts:       podcasts,
		Duration:       duration,
	}
}

// ReleaseWindowStart resolves the inclusive lower publish bound against
// the supplied clock. The zero time means no bound.
func (r SmartRules) ReleaseWindowStart(now time.Time) time.Time {
	hours := r.ReleaseDate.FilterHours()
	if hours == 0 {
		return time.Time{}
	}
	return now.Add(-time.Duration(hours) * time.Hour)
}
