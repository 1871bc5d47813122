/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/skald_podcasts/internal/models"
	"github.com/friendsincode/skald_podcasts/internal/telemetry"
)

// Episodes returns the displayed entries of a playlist: filtered,
// sorted, and capped. A non-empty search term lifts the cap and
// restricts rows to literal title matches on episode or podcast.
func (m *Manager) Episodes(ctx context.Context, playlistUUID, search string) ([]EpisodeEntry, error) {
	detail, err := m.Detail(ctx, playlistUUID, search)
	if err != nil {
		return nil, err
	}
	return detail.Episodes, nil
}

// Detail builds the full playlist screen projection.
func (m *Manager) Detail(ctx context.Context, playlistUUID, search string) (Detail, error) {
	start := time.Now()
	defer func() {
		telemetry.PlaylistQueryDuration.WithLabelValues("detail").Observe(time.Since(start).Seconds())
	}()

	p, err := m.find(ctx, playlistUUID)
	if err != nil {
		return Detail{}, err
	}
	search = NormalizeSearchTerm(search)

	detail := Detail{
		UUID:     p.UUID,
		Title:    p.Title,
		IconID:   p.IconID,
		Manual:   p.Manual,
		Settings: settingsOf(p),
	}

	if p.Manual {
		detail.Episodes, detail.Metadata, err = m.manualView(ctx, p, search)
	} else {
		rules := RulesFromPlaylist(p)
		detail.Rules = &rules
		detail.Episodes, detail.Metadata, err = m.smartView(ctx, p, rules, search)
	}
	if err != nil {
		return Detail{}, err
	}
	return detail, nil
}

func (m *Manager) smartView(ctx context.Context, p models.Playlist, rules SmartRules, search string) ([]EpisodeEntry, Metadata, error) {
	now := m.now()
	base := m.db.WithContext(ctx).Scopes(smartEpisodeScope(rules, now))

	meta := Metadata{ShowingArchived: p.ShowArchived}

	var total, archived int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, Metadata{}, fmt.Errorf("count smart episodes: %w", err)
	}
	if err := base.Session(&gorm.Session{}).Where("archived = ?", true).Count(&archived).Error; err != nil {
		return nil, Metadata{}, fmt.Errorf("count archived episodes: %w", err)
	}
	meta.TotalEpisodeCount = int(total)
	meta.ArchivedEpisodeCount = int(archived)

	displayed := base.Session(&gorm.Session{}).Scopes(archivedScope(p.ShowArchived))
	if search != "" {
		displayed = displayed.Scopes(searchScope(search))
	}

	var leftSeconds int64
	if err := displayed.Session(&gorm.Session{}).Select(playbackLeftExpr).Scan(&leftSeconds).Error; err != nil {
		return nil, Metadata{}, fmt.Errorf("sum playback left: %w", err)
	}
	meta.PlaybackDurationLeft = time.Duration(leftSeconds) * time.Second

	listQuery := displayed.Scopes(orderScope(p.SortType))
	if search == "" {
		listQuery = listQuery.Limit(m.limits.smart())
	}
	var episodes []models.Episode
	if err := listQuery.Find(&episodes).Error; err != nil {
		return nil, Metadata{}, fmt.Errorf("load smart episodes: %w", err)
	}

	entries := make([]EpisodeEntry, 0, len(episodes))
	for _, e := range episodes {
		entries = append(entries, Available{Episode: e})
	}
	meta.DisplayedEpisodeCount = len(entries)
	meta.DisplayedAvailable = len(entries)
	return entries, meta, nil
}

// manualRow pairs a membership with its resolved episode, when one
// exists, so sorting can read either side.
type manualRow struct {
	membership models.PlaylistEpisode
	episode    *models.Episode
}

func (r manualRow) published() time.Time {
	if r.episode != nil {
		return r.episode.PublishedDate
	}
	return r.membership.PublishedAt
}

func (r manualRow) entry() EpisodeEntry {
	if r.episode != nil {
		return Available{Episode: *r.episode}
	}
	return Unavailable{Membership: r.membership}
}

func (m *Manager) manualView(ctx context.Context, p models.Playlist, search string) ([]EpisodeEntry, Metadata, error) {
	rows, err := m.loadManualRows(ctx, p.UUID)
	if err != nil {
		return nil, Metadata{}, err
	}

	meta := Metadata{
		TotalEpisodeCount: len(rows),
		ShowingArchived:   p.ShowArchived,
	}
	for _, r := range rows {
		if r.episode != nil && r.episode.Archived {
			meta.ArchivedEpisodeCount++
		}
	}

	shown := rows[:0:0]
	for _, r := range rows {
		if !p.ShowArchived && r.episode != nil && r.episode.Archived {
			continue
		}
		shown = append(shown, r)
	}

	if search != "" {
		titles, err := m.podcastTitles(ctx, shown)
		if err != nil {
			return nil, Metadata{}, err
		}
		matched := shown[:0:0]
		for _, r := range shown {
			title := r.membership.Title
			if r.episode != nil {
				title = r.episode.Title
			}
			if containsFold(title, search) || containsFold(titles[r.membership.PodcastUUID], search) {
				matched = append(matched, r)
			}
		}
		shown = matched
	}

	sortManualRows(shown, p.SortType)

	for _, r := range shown {
		if r.episode != nil {
			meta.PlaybackDurationLeft += playbackLeft(*r.episode)
		}
	}

	if search == "" && len(shown) > m.limits.manual() {
		shown = shown[:m.limits.manual()]
	}

	entries := make([]EpisodeEntry, 0, len(shown))
	for _, r := range shown {
		entries = append(entries, r.entry())
		if r.episode != nil {
			meta.DisplayedAvailable++
		}
	}
	meta.DisplayedEpisodeCount = len(entries)
	return entries, meta, nil
}

func (m *Manager) loadManualRows(ctx context.Context, playlistUUID string) ([]manualRow, error) {
	var memberships []models.PlaylistEpisode
	err := m.db.WithContext(ctx).
		Where("playlist_uuid = ?", playlistUUID).
		Order("sort_position ASC").
		Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("load memberships: %w", err)
	}
	if len(memberships) == 0 {
		return nil, nil
	}

	uuids := make([]string, len(memberships))
	for i, mem := range memberships {
		uuids[i] = mem.EpisodeUUID
	}
	var episodes []models.Episode
	if err := m.db.WithContext(ctx).Where("uuid IN ?", uuids).Find(&episodes).Error; err != nil {
		return nil, fmt.Errorf("resolve episodes: %w", err)
	}
	byUUID := make(map[string]*models.Episode, len(episodes))
	for i := range episodes {
		byUUID[episodes[i].UUID] = &episodes[i]
	}

	rows := make([]manualRow, len(memberships))
	for i, mem := range memberships {
		rows[i] = manualRow{membership: mem, episode: byUUID[mem.EpisodeUUID]}
	}
	return rows, nil
}

func (m *Manager) podcastTitles(ctx context.Context, rows []manualRow) (map[string]string, error) {
	seen := make(map[string]struct{}, len(rows))
	uuids := make([]string, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.membership.PodcastUUID]; ok {
			continue
		}
		seen[r.membership.PodcastUUID] = struct{}{}
		uuids = append(uuids, r.membership.PodcastUUID)
	}
	if len(uuids) == 0 {
		return nil, nil
	}

	var podcasts []models.Podcast
	if err := m.db.WithContext(ctx).Where("uuid IN ?", uuids).Find(&podcasts).Error; err != nil {
		return nil, fmt.Errorf("load podcast titles: %w", err)
	}
	titles := make(map[string]string, len(podcasts))
	for _, p := range podcasts {
		titles[p.UUID] = p.Title
	}
	return titles, nil
}

// sortManualRows orders rows in place. Duration sorts push unavailable
// rows behind available ones, keeping their relative playlist order,
// because a snapshot has no duration to compare.
func sortManualRows(rows []manualRow, sortType models.EpisodeSortType) {
	switch sortType {
	case models.SortDragAndDrop:
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].membership.SortPosition < rows[j].membership.SortPosition
		})
	case models.SortOldestToNewest:
		sort.SliceStable(rows, func(i, j int) bool {
			pi, pj := rows[i].published(), rows[j].published()
			if !pi.Equal(pj) {
				return pi.Before(pj)
			}
			return rows[i].membership.AddedAt.Before(rows[j].membership.AddedAt)
		})
	case models.SortShortestToLongest:
		sortManualByDuration(rows, false)
	case models.SortLongestToShortest:
		sortManualByDuration(rows, true)
	case models.SortLastDownloadAttempt:
		sort.SliceStable(rows, func(i, j int) bool {
			ti, tj := lastAttempt(rows[i]), lastAttempt(rows[j])
			if ti == nil && tj == nil {
				return rows[i].published().After(rows[j].published())
			}
			if ti == nil || tj == nil {
				return tj == nil
			}
			if !ti.Equal(*tj) {
				return ti.After(*tj)
			}
			return rows[i].published().After(rows[j].published())
		})
	default: // SortNewestToOldest
		sort.SliceStable(rows, func(i, j int) bool {
			pi, pj := rows[i].published(), rows[j].published()
			if !pi.Equal(pj) {
				return pi.After(pj)
			}
			return rows[i].membership.AddedAt.After(rows[j].membership.AddedAt)
		})
	}
}

func sortManualByDuration(rows []manualRow, longestFirst bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		ei, ej := rows[i].episode, rows[j].episode
		if ei == nil || ej == nil {
			// Unavailable rows sort last, keeping playlist order.
			if ei == nil && ej == nil {
				return rows[i].membership.SortPosition < rows[j].membership.SortPosition
			}
			return ej == nil
		}
		if ei.Duration != ej.Duration {
			if longestFirst {
				return ei.Duration > ej.Duration
			}
			return ei.Duration < ej.Duration
		}
		return rows[i].membership.AddedAt.After(rows[j].membership.AddedAt)
	})
}

func lastAttempt(r manualRow) *time.Time {
	if r.episode == nil {
		return nil
	}
	return r.episode.LastDownloadAttemptDate
}

// playbackLeft is the remaining listen time of one episode. Unknown
// durations and overplayed positions clamp to zero.
func playbackLeft(e models.Episode) time.Duration {
	left := e.Duration - e.PlayedUpTo
	if e.Duration <= 0 || left <= 0 {
		return 0
	}
	return time.Duration(left) * time.Second
}

// DownloadsEpisodes returns the system downloads view: downloaded and
// in-flight episodes plus failures from the last week, most recent
// attempt first.
func (m *Manager) DownloadsEpisodes(ctx context.Context) ([]models.Episode, error) {
	start := time.Now()
	defer func() {
		telemetry.PlaylistQueryDuration.WithLabelValues("downloads").Observe(time.Since(start).Seconds())
	}()

	var episodes []models.Episode
	err := m.db.WithContext(ctx).
		Scopes(downloadsScope(m.now()), orderScope(models.SortLastDownloadAttempt)).
		Find(&episodes).Error
	if err != nil {
		return nil, fmt.Errorf("load downloads: %w", err)
	}
	return episodes, nil
}
