/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"context"
	"errors"
	"testing"

	"github.com/friendsincode/skald_podcasts/internal/models"
)

func TestCreateAssignsTrailingSortPositions(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	first := mustCreateSmart(t, m, "First", DefaultRules())
	second := mustCreateManual(t, m, "Second")
	third := mustCreateSmart(t, m, "Third", DefaultRules())

	if first.SortPosition != 0 || second.SortPosition != 1 || third.SortPosition != 2 {
		t.Errorf("sort positions = %d, %d, %d, want 0, 1, 2",
			first.SortPosition, second.SortPosition, third.SortPosition)
	}

	playlists, err := m.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(playlists) != 3 || playlists[0].UUID != first.UUID || playlists[2].UUID != third.UUID {
		t.Errorf("unexpected list order: %+v", playlists)
	}
}

func TestCreateStartsUnsynced(t *testing.T) {
	m, _, _ := newTestManager(t)

	p := mustCreateSmart(t, m, "Fresh", DefaultRules())
	if p.SyncStatus != models.SyncStatusNotSynced {
		t.Errorf("sync status = %d, want not synced", p.SyncStatus)
	}

	unsynced, err := m.Unsynced(context.Background())
	if err != nil {
		t.Fatalf("unsynced: %v", err)
	}
	if len(unsynced) != 1 || unsynced[0].UUID != p.UUID {
		t.Errorf("unsynced = %+v, want just %s", unsynced, p.UUID)
	}
}

func TestEnsureDefaultPlaylists(t *testing.T) {
	m, database, _ := newTestManager(t)
	ctx := context.Background()

	if err := m.EnsureDefaultPlaylists(ctx); err != nil {
		t.Fatalf("ensure defaults: %v", err)
	}

	newReleases, err := m.Get(ctx, NewReleasesUUID)
	if err != nil {
		t.Fatalf("get new releases: %v", err)
	}
	if newReleases.IconID != newReleasesIconID || newReleases.FilterHours != models.FilterLast2Weeks {
		t.Errorf("new releases = icon %d filter %dh", newReleases.IconID, newReleases.FilterHours)
	}
	if newReleases.SyncStatus != models.SyncStatusSynced {
		t.Error("default playlist born unsynced")
	}

	inProgress, err := m.Get(ctx, InProgressUUID)
	if err != nil {
		t.Fatalf("get in progress: %v", err)
	}
	rules := RulesFromPlaylist(inProgress)
	want := EpisodeStatusRule{InProgress: true}
	if rules.EpisodeStatus != want || rules.ReleaseDate != ReleaseLastMonth {
		t.Errorf("in progress rules = %+v", rules)
	}

	// A second run must not duplicate or reset user edits.
	if err := m.Delete(ctx, InProgressUUID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.EnsureDefaultPlaylists(ctx); err != nil {
		t.Fatalf("ensure defaults again: %v", err)
	}
	if _, err := m.Get(ctx, InProgressUUID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted default resurrected: err = %v", err)
	}

	var count int64
	database.Model(&models.Playlist{}).Count(&count)
	if count != 2 {
		t.Errorf("playlist rows = %d, want 2", count)
	}
}

func TestUpdateRulesRejectsManualPlaylist(t *testing.T) {
	m, _, _ := newTestManager(t)

	p := mustCreateManual(t, m, "Queue")
	if _, err := m.UpdateRules(context.Background(), p.UUID, DefaultRules()); err == nil {
		t.Fatal("expected error updating rules of a manual playlist")
	}
}

func TestUpdateRulesMarksUnsynced(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	p := mustCreateSmart(t, m, "Stars", DefaultRules())
	if err := m.MarkAllSynced(ctx); err != nil {
		t.Fatalf("mark synced: %v", err)
	}

	rules := DefaultRules()
	rules.Starred = StarredOnly
	updated, err := m.UpdateRules(ctx, p.UUID, rules)
	if err != nil {
		t.Fatalf("update rules: %v", err)
	}
	if updated.SyncStatus != models.SyncStatusNotSynced {
		t.Error("rule change did not mark playlist unsynced")
	}
	if !updated.Starred {
		t.Error("starred rule not persisted")
	}
}

func TestUpdateSettings(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	p := mustCreateSmart(t, m, "Settings", DefaultRules())

	title := "Renamed"
	sortType := models.SortLongestToShortest
	autoDownload := true
	limit := 5
	updated, err := m.UpdateSettings(ctx, p.UUID, SettingsUpdate{
		Title:             &title,
		SortType:          &sortType,
		AutoDownload:      &autoDownload,
		AutoDownloadLimit: &limit,
	})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if updated.Title != "Renamed" || updated.SortType != models.SortLongestToShortest {
		t.Errorf("settings not applied: %+v", updated)
	}
	if !updated.AutoDownload || updated.AutoDownloadLimit != 5 {
		t.Errorf("auto download settings not applied: %+v", updated)
	}

	dragAndDrop := models.SortDragAndDrop
	if _, err := m.UpdateSettings(ctx, p.UUID, SettingsUpdate{SortType: &dragAndDrop}); err == nil {
		t.Error("drag and drop sort accepted on a smart playlist")
	}

	badLimit := 0
	if _, err := m.UpdateSettings(ctx, p.UUID, SettingsUpdate{AutoDownloadLimit: &badLimit}); err == nil {
		t.Error("zero auto download limit accepted")
	}
}

func TestDeleteTombstones(t *testing.T) {
	m, database, _ := newTestManager(t)
	ctx := context.Background()

	p := mustCreateSmart(t, m, "Doomed", DefaultRules())
	if err := m.Delete(ctx, p.UUID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := m.Get(ctx, p.UUID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted playlist still visible: err = %v", err)
	}

	// The row must survive as a tombstone for the sync layer.
	var row models.Playlist
	if err := database.Where("uuid = ?", p.UUID).First(&row).Error; err != nil {
		t.Fatalf("tombstone row gone: %v", err)
	}
	if !row.Deleted || row.SyncStatus != models.SyncStatusNotSynced {
		t.Errorf("tombstone = deleted %v, sync %d", row.Deleted, row.SyncStatus)
	}
}

func TestSortPlaylistsNamedFirst(t *testing.T) {
	m, database, _ := newTestManager(t)
	ctx := context.Background()

	a := mustCreateSmart(t, m, "A", DefaultRules())
	b := mustCreateSmart(t, m, "B", DefaultRules())
	c := mustCreateSmart(t, m, "C", DefaultRules())
	d := mustCreateSmart(t, m, "D", DefaultRules())
	if err := m.MarkAllSynced(ctx); err != nil {
		t.Fatalf("mark synced: %v", err)
	}

	if err := m.SortPlaylists(ctx, []string{c.UUID, a.UUID}); err != nil {
		t.Fatalf("sort playlists: %v", err)
	}

	playlists, err := m.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := []string{playlists[0].UUID, playlists[1].UUID, playlists[2].UUID, playlists[3].UUID}
	want := []string{c.UUID, a.UUID, b.UUID, d.UUID}
	if !equalStrings(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}

	// D kept position 3 and must still read as synced.
	var row models.Playlist
	if err := database.Where("uuid = ?", d.UUID).First(&row).Error; err != nil {
		t.Fatalf("load d: %v", err)
	}
	if row.SyncStatus != models.SyncStatusSynced {
		t.Error("untouched playlist marked unsynced by reorder")
	}
}

func TestMarkAllSynced(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	mustCreateSmart(t, m, "One", DefaultRules())
	mustCreateManual(t, m, "Two")

	if err := m.MarkAllSynced(ctx); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	unsynced, err := m.Unsynced(ctx)
	if err != nil {
		t.Fatalf("unsynced: %v", err)
	}
	if len(unsynced) != 0 {
		t.Errorf("unsynced after mark = %d rows", len(unsynced))
	}
}
