/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"time"

	"github.com/friendsincode/skald_podcasts/internal/models"
)

// maxArtworkPodcasts caps the artwork strip on playlist previews.
const maxArtworkPodcasts = 4

// EpisodeEntry is one row of a playlist view. A row is either Available
// (resolved against the episode table) or Unavailable (a manual
// membership whose episode is gone; the snapshot columns still render).
type EpisodeEntry interface {
	EpisodeUUID() string
	EpisodePodcastUUID() string
	isEpisodeEntry()
}

// Available wraps a resolved episode.
type Available struct {
	Episode models.Episode
}

func (a Available) EpisodeUUID() string        { return a.Episode.UUID }
func (a Available) EpisodePodcastUUID() string { return a.Episode.PodcastUUID }
func (Available) isEpisodeEntry()              {}

// Unavailable wraps a manual membership row with no resolvable episode.
type Unavailable struct {
	Membership models.PlaylistEpisode
}

func (u Unavailable) EpisodeUUID() string        { return u.Membership.EpisodeUUID }
func (u Unavailable) EpisodePodcastUUID() string { return u.Membership.PodcastUUID }
func (Unavailable) isEpisodeEntry()              {}

// Settings carries the per-playlist behavior knobs shown alongside a
// preview or detail.
type Settings struct {
	SortType          models.EpisodeSortType `json:"sortType"`
	ShowArchived      bool                   `json:"showArchived"`
	AutoDownload      bool                   `json:"autoDownload"`
	AutoDownloadLimit int                    `json:"autoDownloadLimit"`
}

func settingsOf(p models.Playlist) Settings {
	return Settings{
		SortType:          p.SortType,
		ShowArchived:      p.ShowArchived,
		AutoDownload:      p.AutoDownload,
		AutoDownloadLimit: p.AutoDownloadLimit,
	}
}

// Preview is the playlist list-screen projection: identity, settings,
// a total episode count, and up to four distinct artwork podcast ids in
// view order.
type Preview struct {
	UUID                string   `json:"uuid"`
	Title               string   `json:"title"`
	IconID              int      `json:"iconId"`
	Manual              bool     `json:"manual"`
	EpisodeCount        int      `json:"episodeCount"`
	ArtworkPodcastUUIDs []string `json:"artworkPodcastUuids"`
	Settings            Settings `json:"settings"`
}

// EpisodePreview is a preview extended with membership facts about one
// episode, for the add-to-playlist sheet.
type EpisodePreview struct {
	Preview
	HasEpisode   bool `json:"hasEpisode"`
	EpisodeLimit int  `json:"episodeLimit"`
}

// Metadata aggregates counts and remaining playback time for one
// playlist. Displayed counts respect the archived policy and the view
// cap; total and archived counts do not.
type Metadata struct {
	TotalEpisodeCount     int           `json:"totalEpisodeCount"`
	ArchivedEpisodeCount  int           `json:"archivedEpisodeCount"`
	DisplayedEpisodeCount int           `json:"displayedEpisodeCount"`
	DisplayedAvailable    int           `json:"displayedAvailableCount"`
	PlaybackDurationLeft  time.Duration `json:"playbackDurationLeft"`
	ShowingArchived       bool          `json:"showingArchived"`
}

// Detail is the full playlist screen projection.
type Detail struct {
	UUID     string         `json:"uuid"`
	Title    string         `json:"title"`
	IconID   int            `json:"iconId"`
	Manual   bool           `json:"manual"`
	Rules    *SmartRules    `json:"rules,omitempty"`
	Episodes []EpisodeEntry `json:"episodes"`
	Settings Settings       `json:"settings"`
	Metadata Metadata       `json:"metadata"`
}

// SmartDraft describes a smart playlist to create.
type SmartDraft struct {
	Title  string
	IconID int
	Rules  SmartRules
}

// ManualDraft describes a manual playlist to create.
type ManualDraft struct {
	Title  string
	IconID int
}

// EpisodeSource is an entry on the add-episodes picker: either a
// subscribed podcast or a folder of subscribed podcasts.
type EpisodeSource interface {
	isEpisodeSource()
}

// PodcastSource is a subscribed podcast to pick episodes from.
type PodcastSource struct {
	Podcast models.Podcast
}

func (PodcastSource) isEpisodeSource() {}

// FolderSource is a folder holding at least one subscribed podcast.
type FolderSource struct {
	Folder       models.Folder
	PodcastUUIDs []string
}

func (FolderSource) isEpisodeSource() {}
