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

// defaultAutoDownloadLimit is the per-playlist episode budget when none
// is configured.
const defaultAutoDownloadLimit = 10

// AutoDownloadEpisodes selects the episodes the download manager should
// fetch: for every playlist with auto-download enabled, the top entries
// of its current view up to the playlist's limit, unioned across
// playlists. An episode appearing in several playlists is returned
// once, at its first occurrence, and never counts against a later
// playlist's budget twice. Unavailable manual entries are skipped; the
// downloader needs a resolvable episode row.
func (m *Manager) AutoDownloadEpisodes(ctx context.Context) ([]models.Episode, error) {
	start := time.Now()
	defer func() {
		telemetry.PlaylistQueryDuration.WithLabelValues("autodownload").Observe(time.Since(start).Seconds())
	}()

	var playlists []models.Playlist
	err := m.db.WithContext(ctx).Scopes(visible).
		Where("auto_download = ?", true).
		Order("sort_position ASC, created_at ASC").
		Find(&playlists).Error
	if err != nil {
		return nil, fmt.Errorf("load auto-download playlists: %w", err)
	}

	var selected []models.Episode
	seen := make(map[string]struct{})
	for _, p := range playlists {
		limit := p.AutoDownloadLimit
		if limit <= 0 {
			limit = defaultAutoDownloadLimit
		}

		episodes, err := m.topEpisodes(ctx, p, limit)
		if err != nil {
			return nil, err
		}
		for _, e := range episodes {
			if _, ok := seen[e.UUID]; ok {
				continue
			}
			seen[e.UUID] = struct{}{}
			selected = append(selected, e)
		}
	}

	telemetry.AutoDownloadSelectedEpisodes.Set(float64(len(selected)))
	return selected, nil
}

// topEpisodes returns the first limit resolvable episodes of a
// playlist's view.
func (m *Manager) topEpisodes(ctx context.Context, p models.Playlist, limit int) ([]models.Episode, error) {
	if !p.Manual {
		rules := RulesFromPlaylist(p)
		var episodes []models.Episode
		err := m.db.WithContext(ctx).
			Scopes(smartEpisodeScope(rules, m.now()), archivedScope(p.ShowArchived), orderScope(p.SortType)).
			Limit(limit).
			Find(&episodes).Error
		if err != nil {
			return nil, fmt.Errorf("load smart episodes for %s: %w", p.UUID, err)
		}
		return episodes, nil
	}

	rows, err := m.loadManualRows(ctx, p.UUID)
	if err != nil {
		return nil, err
	}
	shown := rows[:0:0]
	for _, r := range rows {
		if r.episode == nil {
			continue
		}
		if !p.ShowArchived && r.episode.Archived {
			continue
		}
		shown = append(shown, r)
	}
	sortManualRows(shown, p.SortType)

	if len(shown) > limit {
		shown = shown[:limit]
	}
	episodes := make([]models.Episode, 0, len(shown))
	for _, r := range shown {
		episodes = append(episodes, *r.episode)
	}
	return episodes, nil
}
