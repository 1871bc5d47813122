package models

import (
	"strings"
	"time"
)

// SyncStatus marks whether a record has been reconciled with the sync server.
type SyncStatus int

const (
	SyncStatusNotSynced SyncStatus = 0
	SyncStatusSynced    SyncStatus = 1
)

// PlayingStatus tracks playback progress of an episode.
type PlayingStatus int

const (
	PlayingStatusNotPlayed  PlayingStatus = 0
	PlayingStatusInProgress PlayingStatus = 1
	PlayingStatusCompleted  PlayingStatus = 2
)

// DownloadStatus tracks the download state machine of an episode. The
// engine only reads these values; transitions are owned by the download
// manager.
type DownloadStatus int

const (
	DownloadStatusNotDownloaded   DownloadStatus = 0
	DownloadStatusQueued          DownloadStatus = 1
	DownloadStatusDownloading     DownloadStatus = 2
	DownloadStatusWaitingForWifi  DownloadStatus = 3
	DownloadStatusWaitingForPower DownloadStatus = 4
	DownloadStatusDownloaded      DownloadStatus = 5
	DownloadStatusFailed          DownloadStatus = 6
)

// Audio/video filter values persisted on playlists.
const (
	AudioVideoFilterAll       = 0
	AudioVideoFilterAudioOnly = 1
	AudioVideoFilterVideoOnly = 2
)

// Release-window filter values persisted on playlists, in hours.
const (
	FilterAnytime    = 0
	FilterLast24H    = 24
	FilterLast3Days  = 72
	FilterLastWeek   = 168
	FilterLast2Weeks = 336
	FilterLastMonth  = 744
)

// EpisodeSortType enumerates playlist episode orderings.
type EpisodeSortType int

const (
	SortNewestToOldest      EpisodeSortType = 0
	SortOldestToNewest      EpisodeSortType = 1
	SortShortestToLongest   EpisodeSortType = 2
	SortLongestToShortest   EpisodeSortType = 3
	SortLastDownloadAttempt EpisodeSortType = 4
	SortDragAndDrop         EpisodeSortType = 5
)

// Podcast is a subscribed or known show.
type Podcast struct {
	UUID       string `gorm:"type:uuid;primaryKey"`
	Title      string `gorm:"index"`
	Author     string
	Slug       string
	FolderUUID string `gorm:"type:uuid;index"`
	Subscribed bool   `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Folder groups podcasts for display.
type Folder struct {
	UUID      string `gorm:"type:uuid;primaryKey"`
	Name      string `gorm:"index"`
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Episode is a single podcast episode row. Durations and playback
// positions are stored in whole seconds.
type Episode struct {
	UUID                    string `gorm:"type:uuid;primaryKey"`
	PodcastUUID             string `gorm:"type:uuid;index"`
	Title                   string `gorm:"index"`
	Slug                    string
	DownloadURL             string
	FileType                string `gorm:"type:varchar(64)"`
	Duration                int64
	PlayedUpTo              int64
	PlayingStatus           PlayingStatus  `gorm:"index"`
	EpisodeStatus           DownloadStatus `gorm:"index"`
	LastDownloadAttemptDate *time.Time
	PublishedDate           time.Time `gorm:"index"`
	AddedDate               time.Time
	Starred                 bool
	Archived                bool
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// IsVideo reports whether the episode carries a video media type.
func (e Episode) IsVideo() bool {
	return strings.HasPrefix(e.FileType, "video/")
}

// Playlist is the aggregate for both smart and manual playlists. Smart
// rule state is flattened into columns so a rules value round-trips
// through the row without a serialization format.
type Playlist struct {
	UUID              string `gorm:"type:uuid;primaryKey"`
	Title             string `gorm:"index"`
	IconID            int
	SortPosition      int `gorm:"index"`
	SortType          EpisodeSortType
	Manual            bool
	Draft             bool
	Deleted           bool
	SyncStatus        SyncStatus
	AutoDownload      bool
	AutoDownloadLimit int
	ShowArchived      bool

	// Smart rule columns.
	Unplayed        bool
	PartiallyPlayed bool
	Finished        bool
	Downloaded      bool
	NotDownloaded   bool
	AudioVideo      int
	FilterHours     int
	Starred         bool
	AllPodcasts     bool
	PodcastUUIDs    string `gorm:"type:text"`
	FilterDuration  bool
	LongerThan      int
	ShorterThan     int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PodcastUUIDList splits the persisted comma-joined podcast scope.
func (p Playlist) PodcastUUIDList() []string {
	if p.PodcastUUIDs == "" {
		return nil
	}
	return strings.Split(p.PodcastUUIDs, ",")
}

// PlaylistEpisode is a manual playlist membership row. The snapshot
// columns keep enough data to display and sort an entry whose episode
// is not resolvable in the episode table.
type PlaylistEpisode struct {
	PlaylistUUID string `gorm:"type:uuid;primaryKey"`
	EpisodeUUID  string `gorm:"type:uuid;primaryKey"`
	PodcastUUID  string `gorm:"type:uuid;index"`
	Title        string
	DownloadURL  string
	EpisodeSlug  string
	PodcastSlug  string
	AddedAt      time.Time
	PublishedAt  time.Time
	SortPosition int `gorm:"index"`
	Synced       bool
}
