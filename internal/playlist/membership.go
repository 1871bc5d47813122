/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/friendsincode/skald_podcasts/internal/events"
	"github.com/friendsincode/skald_podcasts/internal/models"
)

// ErrNotManual is returned when a membership operation targets a smart
// playlist.
var ErrNotManual = errors.New("playlist is not manual")

// AddEpisode adds an episode to a manual playlist. It reports whether
// the episode is in the playlist afterwards: true when inserted or
// already present, false when the playlist is full or the episode does
// not resolve. Concurrent adds to the same playlist serialize, so the
// capacity check holds under parallel callers.
func (m *Manager) AddEpisode(ctx context.Context, playlistUUID, episodeUUID string) (bool, error) {
	lock := m.playlistLock(playlistUUID)
	lock.Lock()
	defer lock.Unlock()

	p, err := m.find(ctx, playlistUUID)
	if err != nil {
		return false, err
	}
	if !p.Manual {
		return false, ErrNotManual
	}

	added := false
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.PlaylistEpisode{}).
			Where("playlist_uuid = ? AND episode_uuid = ?", playlistUUID, episodeUUID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			added = true
			return nil
		}

		var total int64
		if err := tx.Model(&models.PlaylistEpisode{}).
			Where("playlist_uuid = ?", playlistUUID).
			Count(&total).Error; err != nil {
			return err
		}
		if int(total) >= m.limits.manual() {
			return nil
		}

		var episode models.Episode
		err := tx.Where("uuid = ?", episodeUUID).First(&episode).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var podcastSlug string
		var podcast models.Podcast
		err = tx.Where("uuid = ?", episode.PodcastUUID).First(&podcast).Error
		if err == nil {
			podcastSlug = podcast.Slug
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var maxPos *int
		if err := tx.Model(&models.PlaylistEpisode{}).
			Where("playlist_uuid = ?", playlistUUID).
			Select("MAX(sort_position)").
			Scan(&maxPos).Error; err != nil {
			return err
		}
		pos := 0
		if maxPos != nil {
			pos = *maxPos + 1
		}

		entry := models.PlaylistEpisode{
			PlaylistUUID: playlistUUID,
			EpisodeUUID:  episode.UUID,
			PodcastUUID:  episode.PodcastUUID,
			Title:        episode.Title,
			DownloadURL:  episode.DownloadURL,
			EpisodeSlug:  episode.Slug,
			PodcastSlug:  podcastSlug,
			AddedAt:      m.now(),
			PublishedAt:  episode.PublishedDate,
			SortPosition: pos,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Playlist{}).
			Where("uuid = ?", playlistUUID).
			Update("sync_status", models.SyncStatusNotSynced).Error; err != nil {
			return err
		}
		added = true
		return nil
	})
	m.recordMutation("add_episode", err)
	if err != nil {
		return false, fmt.Errorf("add episode: %w", err)
	}

	if added {
		m.publish(events.EventMembershipChanged, playlistUUID)
		m.publish(events.EventSyncRequired, playlistUUID)
	}
	return added, nil
}

// DeleteEpisodes removes episodes from a manual playlist. Unknown
// episode ids are ignored; remaining sort positions keep their values,
// so later additions still sort after everything removed.
func (m *Manager) DeleteEpisodes(ctx context.Context, playlistUUID string, episodeUUIDs []string) error {
	if len(episodeUUIDs) == 0 {
		return nil
	}

	lock := m.playlistLock(playlistUUID)
	lock.Lock()
	defer lock.Unlock()

	p, err := m.find(ctx, playlistUUID)
	if err != nil {
		return err
	}
	if !p.Manual {
		return ErrNotManual
	}

	removed := false
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("playlist_uuid = ? AND episode_uuid IN ?", playlistUUID, episodeUUIDs).
			Delete(&models.PlaylistEpisode{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		removed = true
		return tx.Model(&models.Playlist{}).
			Where("uuid = ?", playlistUUID).
			Update("sync_status", models.SyncStatusNotSynced).Error
	})
	m.recordMutation("delete_episodes", err)
	if err != nil {
		return fmt.Errorf("delete episodes: %w", err)
	}

	if removed {
		m.publish(events.EventMembershipChanged, playlistUUID)
		m.publish(events.EventSyncRequired, playlistUUID)
	}
	return nil
}

// SortEpisodes reorders a manual playlist. Named episodes take the head
// positions in the given order; members not named keep their relative
// order and follow after. The playlist switches to drag-and-drop sort
// so the new order is what the screen shows.
func (m *Manager) SortEpisodes(ctx context.Context, playlistUUID string, orderedUUIDs []string) error {
	lock := m.playlistLock(playlistUUID)
	lock.Lock()
	defer lock.Unlock()

	p, err := m.find(ctx, playlistUUID)
	if err != nil {
		return err
	}
	if !p.Manual {
		return ErrNotManual
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var members []models.PlaylistEpisode
		if err := tx.Where("playlist_uuid = ?", playlistUUID).
			Order("sort_position ASC").
			Find(&members).Error; err != nil {
			return err
		}

		position := make(map[string]int, len(members))
		for i, u := range orderedUUIDs {
			position[u] = i
		}
		next := len(orderedUUIDs)
		for i := range members {
			if _, named := position[members[i].EpisodeUUID]; !named {
				position[members[i].EpisodeUUID] = next
				next++
			}
		}

		for i := range members {
			want, ok := position[members[i].EpisodeUUID]
			if !ok || members[i].SortPosition == want {
				continue
			}
			if err := tx.Model(&models.PlaylistEpisode{}).
				Where("playlist_uuid = ? AND episode_uuid = ?", playlistUUID, members[i].EpisodeUUID).
				Update("sort_position", want).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.Playlist{}).
			Where("uuid = ?", playlistUUID).
			Updates(map[string]any{
				"sort_type":   models.SortDragAndDrop,
				"sync_status": models.SyncStatusNotSynced,
			}).Error
	})
	m.recordMutation("sort_episodes", err)
	if err != nil {
		return fmt.Errorf("sort episodes: %w", err)
	}

	m.publish(events.EventMembershipChanged, playlistUUID)
	m.publish(events.EventSyncRequired, playlistUUID)
	return nil
}

// NotAddedEpisodes lists a podcast's episodes that are not yet in the
// playlist, newest first, for the add-episodes picker.
func (m *Manager) NotAddedEpisodes(ctx context.Context, playlistUUID, podcastUUID, search string) ([]models.Episode, error) {
	search = NormalizeSearchTerm(search)

	q := m.db.WithContext(ctx).Model(&models.Episode{}).
		Where("podcast_uuid = ?", podcastUUID).
		Where("uuid NOT IN (?)",
			m.db.Model(&models.PlaylistEpisode{}).
				Select("episode_uuid").
				Where("playlist_uuid = ?", playlistUUID)).
		Order("published_date DESC, added_date DESC")
	if search != "" {
		q = q.Where(`title LIKE ? ESCAPE '\'`, "%"+EscapeLike(search)+"%")
	}

	var episodes []models.Episode
	if err := q.Find(&episodes).Error; err != nil {
		return nil, fmt.Errorf("load not-added episodes: %w", err)
	}
	return episodes, nil
}

// EpisodeSources lists what the add-episodes picker can drill into:
// subscribed podcasts, grouped into folders when useFolders is set.
// The search term matches the displayed label, folder name or podcast
// title.
func (m *Manager) EpisodeSources(ctx context.Context, useFolders bool, search string) ([]EpisodeSource, error) {
	search = NormalizeSearchTerm(search)

	var podcasts []models.Podcast
	if err := m.db.WithContext(ctx).
		Where("subscribed = ?", true).
		Order("title ASC").
		Find(&podcasts).Error; err != nil {
		return nil, fmt.Errorf("load subscribed podcasts: %w", err)
	}

	if !useFolders {
		sources := make([]EpisodeSource, 0, len(podcasts))
		for _, p := range podcasts {
			if search != "" && !containsFold(p.Title, search) {
				continue
			}
			sources = append(sources, PodcastSource{Podcast: p})
		}
		return sources, nil
	}

	var folders []models.Folder
	if err := m.db.WithContext(ctx).
		Where("deleted = ?", false).
		Order("name ASC").
		Find(&folders).Error; err != nil {
		return nil, fmt.Errorf("load folders: %w", err)
	}

	byFolder := make(map[string][]string)
	var loose []models.Podcast
	known := make(map[string]struct{}, len(folders))
	for _, f := range folders {
		known[f.UUID] = struct{}{}
	}
	for _, p := range podcasts {
		if p.FolderUUID != "" {
			if _, ok := known[p.FolderUUID]; ok {
				byFolder[p.FolderUUID] = append(byFolder[p.FolderUUID], p.UUID)
				continue
			}
		}
		loose = append(loose, p)
	}

	var sources []EpisodeSource
	for _, f := range folders {
		uuids := byFolder[f.UUID]
		if len(uuids) == 0 {
			continue
		}
		if search != "" && !containsFold(f.Name, search) {
			continue
		}
		sources = append(sources, FolderSource{Folder: f, PodcastUUIDs: uuids})
	}
	for _, p := range loose {
		if search != "" && !containsFold(p.Title, search) {
			continue
		}
		sources = append(sources, PodcastSource{Podcast: p})
	}
	return sources, nil
}

// FolderSources lists the subscribed podcasts inside one folder.
func (m *Manager) FolderSources(ctx context.Context, folderUUID, search string) ([]PodcastSource, error) {
	search = NormalizeSearchTerm(search)

	var podcasts []models.Podcast
	if err := m.db.WithContext(ctx).
		Where("subscribed = ? AND folder_uuid = ?", true, folderUUID).
		Order("title ASC").
		Find(&podcasts).Error; err != nil {
		return nil, fmt.Errorf("load folder podcasts: %w", err)
	}

	sources := make([]PodcastSource, 0, len(podcasts))
	for _, p := range podcasts {
		if search != "" && !containsFold(p.Title, search) {
			continue
		}
		sources = append(sources, PodcastSource{Podcast: p})
	}
	return sources, nil
}
