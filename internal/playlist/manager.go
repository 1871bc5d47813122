/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/skald_podcasts/internal/events"
	"github.com/friendsincode/skald_podcasts/internal/models"
	"github.com/friendsincode/skald_podcasts/internal/telemetry"
)

// Fixed identities for the default playlists so they reconcile instead
// of duplicating across devices.
const (
	NewReleasesUUID = "2797dcf8-1c93-4999-b52a-d1849736fa2c"
	InProgressUUID  = "d89a925c-5ce1-41a4-a879-2751838ce5ce"

	newReleasesIconID = 10
	inProgressIconID  = 43
)

// ErrNotFound is returned when a playlist uuid resolves to nothing
// visible (missing, deleted, or draft).
var ErrNotFound = errors.New("playlist not found")

// Limits caps view sizes. Zero values fall back to the defaults.
type Limits struct {
	SmartEpisodes  int
	ManualEpisodes int
}

const (
	defaultSmartEpisodeLimit  = 500
	defaultManualEpisodeLimit = 100
)

func (l Limits) smart() int {
	if l.SmartEpisodes > 0 {
		return l.SmartEpisodes
	}
	return defaultSmartEpisodeLimit
}

func (l Limits) manual() int {
	if l.ManualEpisodes > 0 {
		return l.ManualEpisodes
	}
	return defaultManualEpisodeLimit
}

// Manager owns playlist state: creation, rules, membership, views, and
// previews. All methods are safe for concurrent use; membership
// mutations additionally serialize per playlist.
type Manager struct {
	db     *gorm.DB
	bus    *events.Bus
	logger zerolog.Logger
	limits Limits
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the clock used to resolve release windows and
// timestamps. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLimits overrides the view caps.
func WithLimits(l Limits) Option {
	return func(m *Manager) { m.limits = l }
}

// NewManager wires a Manager onto the given database and event bus.
func NewManager(db *gorm.DB, bus *events.Bus, logger zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		db:     db,
		bus:    bus,
		logger: logger.With().Str("component", "playlist").Logger(),
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) playlistLock(playlistUUID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[playlistUUID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[playlistUUID] = lock
	}
	return lock
}

func (m *Manager) publish(event events.EventType, playlistUUID string) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(event, events.Payload{"playlist_uuid": playlistUUID})
}

func (m *Manager) recordMutation(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	telemetry.PlaylistMutationsTotal.WithLabelValues(op, outcome).Inc()
}

// visible scopes queries to playlists that exist for callers.
func visible(tx *gorm.DB) *gorm.DB {
	return tx.Where("deleted = ? AND draft = ?", false, false)
}

// sessionClone forks a query so an execution does not pollute the
// builder it came from.
func sessionClone() *gorm.Session {
	return &gorm.Session{}
}

func (m *Manager) find(ctx context.Context, playlistUUID string) (models.Playlist, error) {
	var p models.Playlist
	err := m.db.WithContext(ctx).Scopes(visible).
		Where("uuid = ?", playlistUUID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Playlist{}, ErrNotFound
	}
	return p, err
}

func (m *Manager) nextSortPosition(tx *gorm.DB) (int, error) {
	var maxPos *int
	err := tx.Model(&models.Playlist{}).
		Where("deleted = ?", false).
		Select("MAX(sort_position)").
		Scan(&maxPos).Error
	if err != nil {
		return 0, err
	}
	if maxPos == nil {
		return 0, nil
	}
	return *maxPos + 1, nil
}

// CreateSmart persists a smart playlist from a draft and returns it.
// New playlists sort after all existing ones and start unsynced.
func (m *Manager) CreateSmart(ctx context.Context, draft SmartDraft) (models.Playlist, error) {
	p := models.Playlist{
		UUID:              uuid.NewString(),
		Title:             strings.TrimSpace(draft.Title),
		IconID:            draft.IconID,
		SortType:          models.SortNewestToOldest,
		SyncStatus:        models.SyncStatusNotSynced,
		AutoDownloadLimit: defaultAutoDownloadLimit,
	}
	draft.Rules.Apply(&p)

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pos, err := m.nextSortPosition(tx)
		if err != nil {
			return err
		}
		p.SortPosition = pos
		return tx.Create(&p).Error
	})
	m.recordMutation("create_smart", err)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("create smart playlist: %w", err)
	}

	m.logger.Info().Str("playlist_uuid", p.UUID).Str("title", p.Title).Msg("smart playlist created")
	m.publish(events.EventPlaylistCreated, p.UUID)
	m.publish(events.EventSyncRequired, p.UUID)
	return p, nil
}

// CreateManual persists a manual playlist from a draft and returns it.
func (m *Manager) CreateManual(ctx context.Context, draft ManualDraft) (models.Playlist, error) {
	p := models.Playlist{
		UUID:              uuid.NewString(),
		Title:             strings.TrimSpace(draft.Title),
		IconID:            draft.IconID,
		Manual:            true,
		SortType:          models.SortDragAndDrop,
		SyncStatus:        models.SyncStatusNotSynced,
		AutoDownloadLimit: defaultAutoDownloadLimit,
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pos, err := m.nextSortPosition(tx)
		if err != nil {
			return err
		}
		p.SortPosition = pos
		return tx.Create(&p).Error
	})
	m.recordMutation("create_manual", err)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("create manual playlist: %w", err)
	}

	m.logger.Info().Str("playlist_uuid", p.UUID).Str("title", p.Title).Msg("manual playlist created")
	m.publish(events.EventPlaylistCreated, p.UUID)
	m.publish(events.EventSyncRequired, p.UUID)
	return p, nil
}

// EnsureDefaultPlaylists creates the New Releases and In Progress
// playlists when they are missing. Existing rows, including ones the
// user edited or deleted, are left alone. Defaults are born synced so
// a fresh install does not immediately push them.
func (m *Manager) EnsureDefaultPlaylists(ctx context.Context) error {
	defaults := []models.Playlist{
		{
			UUID:         NewReleasesUUID,
			Title:        "New Releases",
			IconID:       newReleasesIconID,
			SortPosition: 0,
		},
		{
			UUID:         InProgressUUID,
			Title:        "In Progress",
			IconID:       inProgressIconID,
			SortPosition: 1,
		},
	}
	rules := []SmartRules{
		{
			EpisodeStatus: EpisodeStatusRule{Unplayed: true, InProgress: true},
			ReleaseDate:   ReleaseLast2Weeks,
			Podcasts:      AllPodcasts(),
		},
		{
			EpisodeStatus: EpisodeStatusRule{InProgress: true},
			ReleaseDate:   ReleaseLastMonth,
			Podcasts:      AllPodcasts(),
		},
	}

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range defaults {
			p := defaults[i]
			var count int64
			if err := tx.Model(&models.Playlist{}).Where("uuid = ?", p.UUID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}
			p.SortType = models.SortNewestToOldest
			p.SyncStatus = models.SyncStatusSynced
			p.AutoDownloadLimit = defaultAutoDownloadLimit
			rules[i].Apply(&p)
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			m.logger.Info().Str("playlist_uuid", p.UUID).Str("title", p.Title).Msg("default playlist created")
		}
		return nil
	})
}

// Get returns a visible playlist by uuid.
func (m *Manager) Get(ctx context.Context, playlistUUID string) (models.Playlist, error) {
	return m.find(ctx, playlistUUID)
}

// List returns all visible playlists in display order.
func (m *Manager) List(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	err := m.db.WithContext(ctx).Scopes(visible).
		Order("sort_position ASC, created_at ASC").
		Find(&playlists).Error
	return playlists, err
}

// UpdateRules replaces a smart playlist's rule bundle.
func (m *Manager) UpdateRules(ctx context.Context, playlistUUID string, rules SmartRules) (models.Playlist, error) {
	p, err := m.find(ctx, playlistUUID)
	if err != nil {
		return models.Playlist{}, err
	}
	if p.Manual {
		return models.Playlist{}, fmt.Errorf("playlist %s is manual and has no rules", playlistUUID)
	}

	rules.Apply(&p)
	p.SyncStatus = models.SyncStatusNotSynced
	err = m.db.WithContext(ctx).Save(&p).Error
	m.recordMutation("update_rules", err)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("update rules: %w", err)
	}

	m.publish(events.EventPlaylistUpdated, p.UUID)
	m.publish(events.EventSyncRequired, p.UUID)
	return p, nil
}

// SettingsUpdate carries the mutable per-playlist settings. Nil fields
// keep their current value.
type SettingsUpdate struct {
	Title             *string
	IconID            *int
	SortType          *models.EpisodeSortType
	ShowArchived      *bool
	AutoDownload      *bool
	AutoDownloadLimit *int
}

// UpdateSettings applies a partial settings update.
func (m *Manager) UpdateSettings(ctx context.Context, playlistUUID string, update SettingsUpdate) (models.Playlist, error) {
	p, err := m.find(ctx, playlistUUID)
	if err != nil {
		return models.Playlist{}, err
	}

	if update.Title != nil {
		p.Title = strings.TrimSpace(*update.Title)
	}
	if update.IconID != nil {
		p.IconID = *update.IconID
	}
	if update.SortType != nil {
		if err := validateSortType(*update.SortType, p.Manual); err != nil {
			return models.Playlist{}, err
		}
		p.SortType = *update.SortType
	}
	if update.ShowArchived != nil {
		p.ShowArchived = *update.ShowArchived
	}
	if update.AutoDownload != nil {
		p.AutoDownload = *update.AutoDownload
	}
	if update.AutoDownloadLimit != nil {
		if *update.AutoDownloadLimit < 1 {
			return models.Playlist{}, fmt.Errorf("auto download limit must be positive, got %d", *update.AutoDownloadLimit)
		}
		p.AutoDownloadLimit = *update.AutoDownloadLimit
	}

	p.SyncStatus = models.SyncStatusNotSynced
	err = m.db.WithContext(ctx).Save(&p).Error
	m.recordMutation("update_settings", err)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("update settings: %w", err)
	}

	m.publish(events.EventPlaylistUpdated, p.UUID)
	m.publish(events.EventSyncRequired, p.UUID)
	return p, nil
}

// Delete tombstones a playlist so the deletion can replicate through
// sync. The row stays until the sync layer confirms and purges it.
func (m *Manager) Delete(ctx context.Context, playlistUUID string) error {
	err := m.db.WithContext(ctx).Model(&models.Playlist{}).
		Where("uuid = ?", playlistUUID).
		Updates(map[string]any{
			"deleted":     true,
			"sync_status": models.SyncStatusNotSynced,
		}).Error
	m.recordMutation("delete", err)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}

	m.logger.Info().Str("playlist_uuid", playlistUUID).Msg("playlist deleted")
	m.publish(events.EventPlaylistDeleted, playlistUUID)
	m.publish(events.EventSyncRequired, playlistUUID)
	return nil
}

// SortPlaylists reorders the playlist list. Named playlists take the
// head positions in the given order; playlists not named keep their
// relative order and follow after. Only rows whose position actually
// changes are touched and marked for sync.
func (m *Manager) SortPlaylists(ctx context.Context, orderedUUIDs []string) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var playlists []models.Playlist
		if err := tx.Where("deleted = ?", false).
			Order("sort_position ASC, created_at ASC").
			Find(&playlists).Error; err != nil {
			return err
		}

		position := make(map[string]int, len(playlists))
		for i, u := range orderedUUIDs {
			position[u] = i
		}
		next := len(orderedUUIDs)
		for i := range playlists {
			if _, named := position[playlists[i].UUID]; !named {
				position[playlists[i].UUID] = next
				next++
			}
		}

		for i := range playlists {
			want := position[playlists[i].UUID]
			if playlists[i].SortPosition == want {
				continue
			}
			if err := tx.Model(&models.Playlist{}).
				Where("uuid = ?", playlists[i].UUID).
				Updates(map[string]any{
					"sort_position": want,
					"sync_status":   models.SyncStatusNotSynced,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	m.recordMutation("sort_playlists", err)
	if err != nil {
		return fmt.Errorf("sort playlists: %w", err)
	}

	m.publish(events.EventPlaylistUpdated, "")
	m.publish(events.EventSyncRequired, "")
	return nil
}

// MarkAllSynced flags every playlist as reconciled. Called by the sync
// layer after a successful push.
func (m *Manager) MarkAllSynced(ctx context.Context) error {
	err := m.db.WithContext(ctx).Model(&models.Playlist{}).
		Where("sync_status = ?", models.SyncStatusNotSynced).
		Update("sync_status", models.SyncStatusSynced).Error
	if err != nil {
		return fmt.Errorf("mark playlists synced: %w", err)
	}
	return nil
}

// Unsynced returns playlists awaiting a sync push, deleted ones
// included.
func (m *Manager) Unsynced(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	err := m.db.WithContext(ctx).
		Where("sync_status = ? AND draft = ?", models.SyncStatusNotSynced, false).
		Order("sort_position ASC").
		Find(&playlists).Error
	return playlists, err
}
