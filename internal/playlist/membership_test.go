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

func membershipPositions(t *testing.T, m *Manager, playlistUUID string) map[string]int {
	t.Helper()
	var members []models.PlaylistEpisode
	if err := m.db.Where("playlist_uuid = ?", playlistUUID).Find(&members).Error; err != nil {
		t.Fatalf("load memberships: %v", err)
	}
	positions := make(map[string]int, len(members))
	for _, mem := range members {
		positions[mem.EpisodeUUID] = mem.SortPosition
	}
	return positions
}

func TestAddEpisodeIsIdempotent(t *testing.T) {
	m, database, _ := newTestManager(t)
	ctx := context.Background()
	episodes := seedLibrary(t, database, "pod", 2)

	p := mustCreateManual(t, m, "Queue")
	mustAdd(t, m, p.UUID, episodes[0].UUID)
	mustAdd(t, m, p.UUID, episodes[1].UUID)

	before := membershipPositions(t, m, p.UUID)

	ok, err := m.AddEpisode(ctx, p.UUID, episodes[0].UUID)
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if !ok {
		t.Error("re-adding a member reported failure")
	}

	after := membershipPositions(t, m, p.UUID)
	if len(after) != 2 {
		t.Fatalf("membership count = %d after re-add, want 2", len(after))
	}
	for uuid, pos := range before {
		if after[uuid] != pos {
			t.Errorf("re-add moved %s from %d to %d", uuid, pos, after[uuid])
		}
	}
}

func TestAddEpisodeCapacity(t *testing.T) {
	m, database, _ := newTestManager(t, WithLimits(Limits{ManualEpisodes: 2}))
	ctx := context.Background()
	episodes := seedLibrary(t, database, "pod", 3)

	p := mustCreateManual(t, m, "Full")
	mustAdd(t, m, p.UUID, episodes[0].UUID)
	mustAdd(t, m, p.UUID, episodes[1].UUID)

	ok, err := m.AddEpisode(ctx, p.UUID, episodes[2].UUID)
	if err != nil {
		t.Fatalf("add over capacity: %v", err)
	}
	if ok {
		t.Error("add over capacity reported success")
	}

	// Re-adding an existing member still succeeds at capacity.
	ok, err = m.AddEpisode(ctx, p.UUID, episodes[0].UUID)
	if err != nil {
		t.Fatalf("re-add at capacity: %v", err)
	}
	if !ok {
		t.Error("re-add at capacity reported failure")
	}
}

func TestAddEpisodeUnresolvable(t *testing.T) {
	m, _, _ := newTestManager(t)

	p := mustCreateManual(t, m, "Ghosts")
	ok, err := m.AddEpisode(context.Background(), p.UUID, "no-such-episode")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if ok {
		t.Error("unresolvable episode reported as added")
	}
}

func TestAddEpisodeRejectsSmartPlaylist(t *testing.T) {
	m, database, _ := newTestManager(t)
	episodes := seedLibrary(t, database, "pod", 1)

	p := mustCreateSmart(t, m, "Rules", DefaultRules())
	if _, err := m.AddEpisode(context.Background(), p.UUID, episodes[0].UUID); !errors.Is(err, ErrNotManual) {
		t.Errorf("err = %v, want ErrNotManual", err)
	}
}

func TestSortPositionsStayMonotonic(t *testing.T) {
	m, database, _ := newTestManager(t)
	ctx := context.Background()
	episodes := seedLibrary(t, database, "pod", 3)

	p := mustCreateManual(t, m, "Positions")
	mustAdd(t, m, p.UUID, episodes[0].UUID)
	mustAdd(t, m, p.UUID, episodes[1].UUID)

	if err := m.DeleteEpisodes(ctx, p.UUID, []string{episodes[0].UUID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	mustAdd(t, m, p.UUID, episodes[2].UUID)

	positions := membershipPositions(t, m, p.UUID)
	// episodes[1] kept position 1; the new member sorts after it even
	// though position 0 is free.
	if positions[episodes[2].UUID] <= positions[episodes[1].UUID] {
		t.Errorf("new member at %d did not sort after survivor at %d",
			positions[episodes[2].UUID], positions[episodes[1].UUID])
	}
}

func TestDeleteEpisodesIgnoresUnknown(t *testing.T) {
	m, database, _ := newTestManager(t)
	ctx := context.Background()
	episodes := seedLibrary(t, database, "pod", 1)

	p := mustCreateManual(t, m, "Sparse")
	mustAdd(t, m, p.UUID, episodes[0].UUID)
	if err := m.MarkAllSynced(ctx); err != nil {
		t.Fatalf("mark synced: %v", err)
	}

	if err := m.DeleteEpisodes(ctx, p.UUID, []string{"unknown-a", "unknown-b"}); err != nil {
		t.Fatalf("delete unknown: %v", err)
	}
	if got := membershipPositions(t, m, p.UUID); len(got) != 1 {
		t.Errorf("membership count = %d, want 1", len(got))
	}

	// A no-op delete must not mark the playlist for sync.
	playlist, err := m.Get(ctx, p.UUID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if playlist.SyncStatus != models.SyncStatusSynced {
		t.Error("no-op delete marked playlist unsynced")
	}
}

func TestSortEpisodesNamedFirstForcesDragAndDrop(t *testing.T) {
	m, database, _ := newTestManager(t)
	ctx := context.Background()
	episodes := seedLibrary(t, database, "pod", 4)

	p := mustCreateManual(t, m, "Reorder")
	for _, e := range episodes {
		mustAdd(t, m, p.UUID, e.UUID)
	}
	sortType := models.SortNewestToOldest
	if _, err := m.UpdateSettings(ctx, p.UUID, SettingsUpdate{SortType: &sortType}); err != nil {
		t.Fatalf("set sort: %v", err)
	}

	if err := m.SortEpisodes(ctx, p.UUID, []string{episodes[2].UUID, episodes[0].UUID}); err != nil {
		t.Fatalf("sort episodes: %v", err)
	}

	entries, err := m.Episodes(ctx, p.UUID, "")
	if err != nil {
		t.Fatalf("episodes: %v", err)
	}
	want := []string{episodes[2].UUID, episodes[0].UUID, episodes[1].UUID, episodes[3].UUID}
	if got := entryUUIDs(entries); !equalStrings(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}

	playlist, err := m.Get(ctx, p.UUID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if playlist.SortType != models.SortDragAndDrop {
		t.Errorf("sort type = %d, want drag and drop", playlist.SortType)
	}
	if playlist.SyncStatus != models.SyncStatusNotSynced {
		t.Error("reorder did not mark playlist unsynced")
	}
}

func TestNotAddedEpisodes(t *testing.T) {
	m, database, _ := newTestManager(t)
	ctx := context.Background()
	episodes := seedLibrary(t, database, "pod", 3)

	p := mustCreateManual(t, m, "Picker")
	mustAdd(t, m, p.UUID, episodes[1].UUID)

	got, err := m.NotAddedEpisodes(ctx, p.UUID, "pod", "")
	if err != nil {
		t.Fatalf("not added: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("not-added count = %d, want 2", len(got))
	}
	// Newest first, member excluded.
	if got[0].UUID != episodes[0].UUID || got[1].UUID != episodes[2].UUID {
		t.Errorf("order = %s, %s", got[0].UUID, got[1].UUID)
	}

	filtered, err := m.NotAddedEpisodes(ctx, p.UUID, "pod", "002")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(filtered) != 1 || filtered[0].UUID != episodes[2].UUID {
		t.Errorf("search matched %+v", filtered)
	}
}

func TestEpisodeSourcesFlat(t *testing.T) {
	m, database, _ := newTestManager(t)
	ctx := context.Background()
	seedPodcast(t, database, "a", "Alpha", true)
	seedPodcast(t, database, "b", "Beta", true)
	seedPodcast(t, database, "c", "Gamma", false)

	sources, err := m.EpisodeSources(ctx, false, "")
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("source count = %d, want subscribed podcasts only", len(sources))
	}

	filtered, err := m.EpisodeSources(ctx, false, "bet")
	if err != nil {
		t.Fatalf("search sources: %v", err)
	}
	if len(filtered) != 1 {
		t.Fatalf("filtered count = %d, want 1", len(filtered))
	}
	if ps, ok := filtered[0].(PodcastSource); !ok || ps.Podcast.UUID != "b" {
		t.Errorf("filtered source = %+v", filtered[0])
	}
}

func TestEpisodeSourcesWithFolders(t *testing.T) {
	m, database, _ := newTestManager(t)
	ctx := context.Background()

	if err := database.Create(&models.Folder{UUID: "news", Name: "News"}).Error; err != nil {
		t.Fatalf("seed folder: %v", err)
	}
	if err := database.Create(&models.Folder{UUID: "empty", Name: "Empty"}).Error; err != nil {
		t.Fatalf("seed folder: %v", err)
	}
	inFolder := models.Podcast{UUID: "daily", Title: "Daily", Subscribed: true, FolderUUID: "news"}
	if err := database.Create(&inFolder).Error; err != nil {
		t.Fatalf("seed podcast: %v", err)
	}
	seedPodcast(t, database, "loose", "Loose Show", true)

	sources, err := m.EpisodeSources(ctx, true, "")
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("source count = %d, want one folder and one podcast", len(sources))
	}
	folder, ok := sources[0].(FolderSource)
	if !ok {
		t.Fatalf("first source = %T, want FolderSource", sources[0])
	}
	if folder.Folder.UUID != "news" || len(folder.PodcastUUIDs) != 1 || folder.PodcastUUIDs[0] != "daily" {
		t.Errorf("folder source = %+v", folder)
	}
	if _, ok := sources[1].(PodcastSource); !ok {
		t.Errorf("second source = %T, want PodcastSource", sources[1])
	}

	inside, err := m.FolderSources(ctx, "news", "")
	if err != nil {
		t.Fatalf("folder sources: %v", err)
	}
	if len(inside) != 1 || inside[0].Podcast.UUID != "daily" {
		t.Errorf("folder contents = %+v", inside)
	}
}
