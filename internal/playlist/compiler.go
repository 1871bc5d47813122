/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/skald_podcasts/internal/models"
)

// shorterThanAllowanceSeconds widens the upper duration bound so an
// episode of exactly N minutes still matches a "shorter than N minutes"
// rule when its duration carries leftover seconds.
const shorterThanAllowanceSeconds = 59

// smartEpisodeScope compiles a rule bundle into a query over the
// episode table. Rules combine with AND across categories and OR within
// a category. The scope never includes episodes of unsubscribed
// podcasts and never filters on archived; callers layer archived policy
// on top.
func smartEpisodeScope(rules SmartRules, now time.Time) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		q := tx.Model(&models.Episode{})

		if rules.EpisodeStatus.IsConstraining() {
			var statuses []models.PlayingStatus
			if rules.EpisodeStatus.Unplayed {
				statuses = append(statuses, models.PlayingStatusNotPlayed)
			}
			if rules.EpisodeStatus.InProgress {
				statuses = append(statuses, models.PlayingStatusInProgress)
			}
			if rules.EpisodeStatus.Completed {
				statuses = append(statuses, models.PlayingStatusCompleted)
			}
			q = q.Where("playing_status IN ?", statuses)
		}

		switch rules.DownloadStatus {
		case DownloadDownloaded:
			q = q.Where("episode_status = ?", models.DownloadStatusDownloaded)
		case DownloadNotDownloaded:
			// In-flight and failed downloads count as not downloaded.
			q = q.Where("episode_status IN ?", []models.DownloadStatus{
				models.DownloadStatusNotDownloaded,
				models.DownloadStatusQueued,
				models.DownloadStatusDownloading,
				models.DownloadStatusWaitingForWifi,
				models.DownloadStatusWaitingForPower,
				models.DownloadStatusFailed,
			})
		}

		switch rules.MediaType {
		case MediaTypeAudio:
			q = q.Where("file_type LIKE ?", "audio/%")
		case MediaTypeVideo:
			q = q.Where("file_type LIKE ?", "video/%")
		}

		if start := rules.ReleaseWindowStart(now); !start.IsZero() {
			q = q.Where("published_date > ?", start)
		}

		if rules.Starred == StarredOnly {
			q = q.Where("starred = ?", true)
		}

		q = q.Where("podcast_uuid IN (?)",
			tx.Session(&gorm.Session{NewDB: true}).
				Model(&models.Podcast{}).
				Select("uuid").
				Where("subscribed = ?", true))
		if !rules.Podcasts.All && len(rules.Podcasts.UUIDs) > 0 {
			q = q.Where("podcast_uuid IN ?", rules.Podcasts.UUIDs)
		}

		if rules.Duration.Constrained {
			q = q.Where("duration >= ? AND duration <= ?",
				int64(rules.Duration.LongerThan)*60,
				int64(rules.Duration.ShorterThan)*60+shorterThanAllowanceSeconds)
		}

		return q
	}
}

// downloadsScope matches everything the downloads screen shows: stored
// episodes, downloads in flight, and recent failures.
func downloadsScope(now time.Time) func(*gorm.DB) *gorm.DB {
	failedSince := now.Add(-7 * 24 * time.Hour)
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Model(&models.Episode{}).
			Where("episode_status IN ? OR (episode_status = ? AND last_download_attempt_date > ?)",
				[]models.DownloadStatus{
					models.DownloadStatusDownloaded,
					models.DownloadStatusQueued,
					models.DownloadStatusDownloading,
					models.DownloadStatusWaitingForWifi,
					models.DownloadStatusWaitingForPower,
				},
				models.DownloadStatusFailed, failedSince)
	}
}

// searchScope restricts episodes to those whose title, or whose
// podcast's title, contains the term literally.
func searchScope(term string) func(*gorm.DB) *gorm.DB {
	pattern := "%" + EscapeLike(term) + "%"
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(`title LIKE ? ESCAPE '\' OR podcast_uuid IN (?)`,
			pattern,
			tx.Session(&gorm.Session{NewDB: true}).
				Model(&models.Podcast{}).
				Select("uuid").
				Where(`title LIKE ? ESCAPE '\'`, pattern))
	}
}

// orderScope translates a sort type into an ORDER BY clause. Episodes
// with no download attempt sort last under SortLastDownloadAttempt; the
// CASE keeps that portable across sqlite, postgres, and mysql.
func orderScope(sortType models.EpisodeSortType) func(*gorm.DB) *gorm.DB {
	var clause string
	switch sortType {
	case models.SortOldestToNewest:
		clause = "published_date ASC, added_date ASC"
	case models.SortShortestToLongest:
		clause = "duration ASC, added_date DESC"
	case models.SortLongestToShortest:
		clause = "duration DESC, added_date DESC"
	case models.SortLastDownloadAttempt:
		clause = "CASE WHEN last_download_attempt_date IS NULL THEN 1 ELSE 0 END, " +
			"last_download_attempt_date DESC, published_date DESC"
	default:
		clause = "published_date DESC, added_date DESC"
	}
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Order(clause)
	}
}

// archivedScope applies the per-playlist archived visibility policy.
func archivedScope(showArchived bool) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if showArchived {
			return tx
		}
		return tx.Where("archived = ?", false)
	}
}

// playbackLeftExpr sums remaining playback seconds. Episodes with an
// unknown duration, or already played past their duration, contribute
// zero.
const playbackLeftExpr = "COALESCE(SUM(CASE WHEN duration > played_up_to THEN duration - played_up_to ELSE 0 END), 0)"

func validateSortType(s models.EpisodeSortType, manual bool) error {
	switch s {
	case models.SortNewestToOldest, models.SortOldestToNewest,
		models.SortShortestToLongest, models.SortLongestToShortest,
		models.SortLastDownloadAttempt:
		return nil
	case models.SortDragAndDrop:
		if manual {
			return nil
		}
		return fmt.Errorf("sort type %d requires a manual playlist", s)
	default:
		return fmt.Errorf("unknown sort type %d", s)
	}
}
