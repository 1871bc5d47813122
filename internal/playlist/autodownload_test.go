/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"context"
	"testing"

	"github.com/friendsincode/skald_podcasts/internal/models"
)

func enableAutoDownload(t *testing.T, m *Manager, playlistUUID string, limit int) {
	t.Helper()
	enabled := true
	if _, err := m.UpdateSettings(context.Background(), playlistUUID, SettingsUpdate{
		AutoDownload:      &enabled,
		AutoDownloadLimit: &limit,
	}); err != nil {
		t.Fatalf("enable auto download: %v", err)
	}
}

func TestAutoDownloadRespectsPerPlaylistLimit(t *testing.T) {
	m, database, _ := newTestManager(t)
	ctx := context.Background()
	seedLibrary(t, database, "pod", 5)

	p := mustCreateSmart(t, m, "Top", DefaultRules())
	enableAutoDownload(t, m, p.UUID, 2)

	selected, err := m.AutoDownloadEpisodes(ctx)
	if err != nil {
		t.Fatalf("auto download: %v", err)
	}
	if len(selected) != 2 {
		t.Fatalf("selected %d episodes, want 2", len(selected))
	}
	// Newest first under the default sort.
	if selected[0].UUID != "pod-ep-000" || selected[1].UUID != "pod-ep-001" {
		t.Errorf("selected %s, %s", selected[0].UUID, selected[1].UUID)
	}
}

func TestAutoDownloadUnionDedup(t *testing.T) {
	m, database, _ := newTestManager(t)
	ctx := context.Background()
	episodes := seedLibrary(t, database, "pod", 3)

	smart := mustCreateSmart(t, m, "Smart", DefaultRules())
	manual := mustCreateManual(t, m, "Manual")
	mustAdd(t, m, manual.UUID, episodes[0].UUID)
	mustAdd(t, m, manual.UUID, episodes[2].UUID)

	enableAutoDownload(t, m, smart.UUID, 2)
	enableAutoDownload(t, m, manual.UUID, 2)

	selected, err := m.AutoDownloadEpisodes(ctx)
	if err != nil {
		t.Fatalf("auto download: %v", err)
	}

	// Smart contributes episodes 0 and 1; manual contributes 0 and 2,
	// but 0 is already selected and appears once.
	if len(selected) != 3 {
		t.Fatalf("selected %d episodes, want 3", len(selected))
	}
	seen := make(map[string]int)
	for _, e := range selected {
		seen[e.UUID]++
	}
	for uuid, n := range seen {
		if n > 1 {
			t.Errorf("episode %s selected %d times", uuid, n)
		}
	}
}

func TestAutoDownloadSkipsDisabledAndDeleted(t *testing.T) {
	m, database, _ := newTestManager(t)
	ctx := context.Background()
	seedLibrary(t, database, "pod", 2)

	enabled := mustCreateSmart(t, m, "On", DefaultRules())
	mustCreateSmart(t, m, "Off", DefaultRules())
	doomed := mustCreateSmart(t, m, "Gone", DefaultRules())

	enableAutoDownload(t, m, enabled.UUID, 1)
	enableAutoDownload(t, m, doomed.UUID, 1)
	if err := m.Delete(ctx, doomed.UUID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	selected, err := m.AutoDownloadEpisodes(ctx)
	if err != nil {
		t.Fatalf("auto download: %v", err)
	}
	if len(selected) != 1 {
		t.Errorf("selected %d episodes, want 1 from the enabled playlist", len(selected))
	}
}

func TestAutoDownloadSkipsUnavailableManualEntries(t *testing.T) {
	m, database, _ := newTestManager(t)
	ctx := context.Background()
	episodes := seedLibrary(t, database, "pod", 2)

	manual := mustCreateManual(t, m, "Holey")
	mustAdd(t, m, manual.UUID, episodes[0].UUID)
	mustAdd(t, m, manual.UUID, episodes[1].UUID)
	if err := database.Delete(&models.Episode{}, "uuid = ?", episodes[0].UUID).Error; err != nil {
		t.Fatalf("delete episode: %v", err)
	}
	enableAutoDownload(t, m, manual.UUID, 5)

	selected, err := m.AutoDownloadEpisodes(ctx)
	if err != nil {
		t.Fatalf("auto download: %v", err)
	}
	if len(selected) != 1 || selected[0].UUID != episodes[1].UUID {
		t.Errorf("selected %+v, want only the resolvable episode", selected)
	}
}
