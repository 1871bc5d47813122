/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"context"
	"fmt"
	"time"

	"github.com/friendsincode/skald_podcasts/internal/models"
	"github.com/friendsincode/skald_podcasts/internal/telemetry"
)

// Previews returns the playlist list-screen rows in display order. A
// search term matches playlist titles only.
func (m *Manager) Previews(ctx context.Context, search string) ([]Preview, error) {
	start := time.Now()
	defer func() {
		telemetry.PlaylistQueryDuration.WithLabelValues("previews").Observe(time.Since(start).Seconds())
	}()

	search = NormalizeSearchTerm(search)
	q := m.db.WithContext(ctx).Scopes(visible).
		Order("sort_position ASC, created_at ASC")
	if search != "" {
		q = q.Where(`title LIKE ? ESCAPE '\'`, "%"+EscapeLike(search)+"%")
	}

	var playlists []models.Playlist
	if err := q.Find(&playlists).Error; err != nil {
		return nil, fmt.Errorf("load playlists: %w", err)
	}

	previews := make([]Preview, 0, len(playlists))
	for _, p := range playlists {
		preview, err := m.buildPreview(ctx, p)
		if err != nil {
			return nil, err
		}
		previews = append(previews, preview)
	}
	return previews, nil
}

func (m *Manager) buildPreview(ctx context.Context, p models.Playlist) (Preview, error) {
	count, artwork, err := m.previewAggregates(ctx, p)
	if err != nil {
		return Preview{}, err
	}
	return Preview{
		UUID:                p.UUID,
		Title:               p.Title,
		IconID:              p.IconID,
		Manual:              p.Manual,
		EpisodeCount:        count,
		ArtworkPodcastUUIDs: artwork,
		Settings:            settingsOf(p),
	}, nil
}

// previewAggregates computes the total episode count and the artwork
// strip: the first distinct podcast ids in view order, capped at four.
func (m *Manager) previewAggregates(ctx context.Context, p models.Playlist) (int, []string, error) {
	if p.Manual {
		rows, err := m.loadManualRows(ctx, p.UUID)
		if err != nil {
			return 0, nil, err
		}
		// Same archived visibility policy as the episode view.
		shown := rows[:0:0]
		for _, r := range rows {
			if !p.ShowArchived && r.episode != nil && r.episode.Archived {
				continue
			}
			shown = append(shown, r)
		}
		sortManualRows(shown, p.SortType)
		artwork := make([]string, 0, maxArtworkPodcasts)
		seen := make(map[string]struct{}, maxArtworkPodcasts)
		for _, r := range shown {
			if len(artwork) == maxArtworkPodcasts {
				break
			}
			id := r.membership.PodcastUUID
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			artwork = append(artwork, id)
		}
		return len(rows), artwork, nil
	}

	rules := RulesFromPlaylist(p)
	base := m.db.WithContext(ctx).Scopes(smartEpisodeScope(rules, m.now()))

	var total int64
	if err := base.Session(sessionClone()).Count(&total).Error; err != nil {
		return 0, nil, fmt.Errorf("count smart episodes: %w", err)
	}

	// Uncapped: the episode list limit does not apply to the strip.
	var podcastUUIDs []string
	err := base.Session(sessionClone()).
		Scopes(archivedScope(p.ShowArchived), orderScope(p.SortType)).
		Pluck("podcast_uuid", &podcastUUIDs).Error
	if err != nil {
		return 0, nil, fmt.Errorf("load artwork podcasts: %w", err)
	}

	artwork := make([]string, 0, maxArtworkPodcasts)
	seen := make(map[string]struct{}, maxArtworkPodcasts)
	for _, id := range podcastUUIDs {
		if len(artwork) == maxArtworkPodcasts {
			break
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		artwork = append(artwork, id)
	}
	return int(total), artwork, nil
}

// PreviewsForEpisode returns manual playlist previews annotated with
// whether the given episode is already a member, for the
// add-to-playlist sheet. A search term matches playlist titles.
func (m *Manager) PreviewsForEpisode(ctx context.Context, episodeUUID, search string) ([]EpisodePreview, error) {
	start := time.Now()
	defer func() {
		telemetry.PlaylistQueryDuration.WithLabelValues("episode_previews").Observe(time.Since(start).Seconds())
	}()

	search = NormalizeSearchTerm(search)
	q := m.db.WithContext(ctx).Scopes(visible).
		Where("manual = ?", true).
		Order("sort_position ASC, created_at ASC")
	if search != "" {
		q = q.Where(`title LIKE ? ESCAPE '\'`, "%"+EscapeLike(search)+"%")
	}

	var playlists []models.Playlist
	if err := q.Find(&playlists).Error; err != nil {
		return nil, fmt.Errorf("load manual playlists: %w", err)
	}

	var memberships []models.PlaylistEpisode
	if err := m.db.WithContext(ctx).
		Where("episode_uuid = ?", episodeUUID).
		Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("load episode memberships: %w", err)
	}
	member := make(map[string]struct{}, len(memberships))
	for _, mem := range memberships {
		member[mem.PlaylistUUID] = struct{}{}
	}

	previews := make([]EpisodePreview, 0, len(playlists))
	for _, p := range playlists {
		preview, err := m.buildPreview(ctx, p)
		if err != nil {
			return nil, err
		}
		_, has := member[p.UUID]
		previews = append(previews, EpisodePreview{
			Preview:      preview,
			HasEpisode:   has,
			EpisodeLimit: m.limits.manual(),
		})
	}
	return previews, nil
}
