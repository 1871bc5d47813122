/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/friendsincode/skald_podcasts/internal/models"
)

func TestPreviewArtworkDedupedAndCapped(t *testing.T) {
	m, database, _ := newTestManager(t)
	ctx := context.Background()

	// Six podcasts, two episodes each, interleaved by publish date so
	// the newest-first view alternates podcasts.
	for i := 0; i < 6; i++ {
		uuid := fmt.Sprintf("pod-%d", i)
		seedPodcast(t, database, uuid, "Podcast "+uuid, true)
		for j := 0; j < 2; j++ {
			seedEpisode(t, database, models.Episode{
				UUID:          fmt.Sprintf("%s-ep-%d", uuid, j),
				PodcastUUID:   uuid,
				PublishedDate: testNow.Add(-time.Duration(j*6+i) * time.Hour),
			})
		}
	}

	mustCreateSmart(t, m, "Everything", DefaultRules())
	previews, err := m.Previews(ctx, "")
	if err != nil {
		t.Fatalf("previews: %v", err)
	}
	if len(previews) != 1 {
		t.Fatalf("preview count = %d", len(previews))
	}

	preview := previews[0]
	if preview.EpisodeCount != 12 {
		t.Errorf("episode count = %d, want 12", preview.EpisodeCount)
	}
	want := []string{"pod-0", "pod-1", "pod-2", "pod-3"}
	if !equalStrings(preview.ArtworkPodcastUUIDs, want) {
		t.Errorf("artwork = %v, want %v", preview.ArtworkPodcastUUIDs, want)
	}
}

func TestPreviewArtworkManualFollowsViewOrder(t *testing.T) {
	m, database, _ := newTestManager(t)
	ctx := context.Background()

	seedPodcast(t, database, "x", "X", true)
	seedPodcast(t, database, "y", "Y", true)
	ex := seedEpisode(t, database, models.Episode{UUID: "ep-x", PodcastUUID: "x"})
	ey := seedEpisode(t, database, models.Episode{UUID: "ep-y", PodcastUUID: "y"})
	ex2 := seedEpisode(t, database, models.Episode{UUID: "ep-x2", PodcastUUID: "x"})

	p := mustCreateManual(t, m, "Mine")
	mustAdd(t, m, p.UUID, ey.UUID)
	mustAdd(t, m, p.UUID, ex.UUID)
	mustAdd(t, m, p.UUID, ex2.UUID)

	previews, err := m.Previews(ctx, "")
	if err != nil {
		t.Fatalf("previews: %v", err)
	}
	want := []string{"y", "x"}
	if !equalStrings(previews[0].ArtworkPodcastUUIDs, want) {
		t.Errorf("artwork = %v, want %v", previews[0].ArtworkPodcastUUIDs, want)
	}
	if previews[0].EpisodeCount != 3 {
		t.Errorf("episode count = %d, want 3", previews[0].EpisodeCount)
	}
}

func TestPreviewArtworkManualSkipsHiddenArchived(t *testing.T) {
	m, database, _ := newTestManager(t)
	ctx := context.Background()

	seedPodcast(t, database, "pod-archived", "Archived Pod", true)
	seedPodcast(t, database, "pod-live", "Live Pod", true)
	archived := seedEpisode(t, database, models.Episode{
		UUID:          "ep-archived",
		PodcastUUID:   "pod-archived",
		Archived:      true,
		PublishedDate: testNow.Add(-time.Hour),
	})
	live := seedEpisode(t, database, models.Episode{
		UUID:          "ep-live",
		PodcastUUID:   "pod-live",
		PublishedDate: testNow.Add(-2 * time.Hour),
	})

	p := mustCreateManual(t, m, "Mixed")
	mustAdd(t, m, p.UUID, archived.UUID)
	mustAdd(t, m, p.UUID, live.UUID)

	previews, err := m.Previews(ctx, "")
	if err != nil {
		t.Fatalf("previews: %v", err)
	}
	// The playlist hides archived episodes, so its artwork must not
	// show the archived episode's podcast.
	if want := []string{"pod-live"}; !equalStrings(previews[0].ArtworkPodcastUUIDs, want) {
		t.Errorf("artwork = %v, want %v", previews[0].ArtworkPodcastUUIDs, want)
	}
	if previews[0].EpisodeCount != 2 {
		t.Errorf("episode count = %d, want 2", previews[0].EpisodeCount)
	}

	show := true
	if _, err := m.UpdateSettings(ctx, p.UUID, SettingsUpdate{ShowArchived: &show}); err != nil {
		t.Fatalf("show archived: %v", err)
	}
	previews, err = m.Previews(ctx, "")
	if err != nil {
		t.Fatalf("previews: %v", err)
	}
	if want := []string{"pod-archived", "pod-live"}; !equalStrings(previews[0].ArtworkPodcastUUIDs, want) {
		t.Errorf("artwork with archived shown = %v, want %v", previews[0].ArtworkPodcastUUIDs, want)
	}
}

func TestPreviewArtworkUnaffectedByEpisodeListCap(t *testing.T) {
	m, database, _ := newTestManager(t, WithLimits(Limits{SmartEpisodes: 2}))
	ctx := context.Background()

	// The two newest episodes belong to one podcast; three more
	// podcasts follow further down the view.
	seedLibrary(t, database, "pod-a", 2)
	for i, uuid := range []string{"pod-b", "pod-c", "pod-d"} {
		seedPodcast(t, database, uuid, "Podcast "+uuid, true)
		seedEpisode(t, database, models.Episode{
			UUID:          uuid + "-ep",
			PodcastUUID:   uuid,
			PublishedDate: testNow.Add(-time.Duration(i+12) * time.Hour),
		})
	}

	mustCreateSmart(t, m, "Everything", DefaultRules())
	previews, err := m.Previews(ctx, "")
	if err != nil {
		t.Fatalf("previews: %v", err)
	}

	want := []string{"pod-a", "pod-b", "pod-c", "pod-d"}
	if !equalStrings(previews[0].ArtworkPodcastUUIDs, want) {
		t.Errorf("artwork = %v, want %v", previews[0].ArtworkPodcastUUIDs, want)
	}
}

func TestPreviewsSearchMatchesTitleOnly(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	mustCreateSmart(t, m, "Morning News", DefaultRules())
	mustCreateManual(t, m, "Evening Queue")

	previews, err := m.Previews(ctx, "news")
	if err != nil {
		t.Fatalf("previews: %v", err)
	}
	if len(previews) != 1 || previews[0].Title != "Morning News" {
		t.Errorf("search matched %+v", previews)
	}
}

func TestPreviewsOrderedBySortPosition(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	a := mustCreateSmart(t, m, "A", DefaultRules())
	b := mustCreateManual(t, m, "B")
	if err := m.SortPlaylists(ctx, []string{b.UUID, a.UUID}); err != nil {
		t.Fatalf("sort: %v", err)
	}

	previews, err := m.Previews(ctx, "")
	if err != nil {
		t.Fatalf("previews: %v", err)
	}
	if previews[0].UUID != b.UUID || previews[1].UUID != a.UUID {
		t.Errorf("preview order = %s, %s", previews[0].UUID, previews[1].UUID)
	}
}

func TestPreviewsForEpisode(t *testing.T) {
	m, database, _ := newTestManager(t, WithLimits(Limits{ManualEpisodes: 50}))
	ctx := context.Background()
	episodes := seedLibrary(t, database, "pod", 1)

	with := mustCreateManual(t, m, "Has It")
	without := mustCreateManual(t, m, "Does Not")
	mustCreateSmart(t, m, "Smart", DefaultRules())
	mustAdd(t, m, with.UUID, episodes[0].UUID)

	previews, err := m.PreviewsForEpisode(ctx, episodes[0].UUID, "")
	if err != nil {
		t.Fatalf("previews for episode: %v", err)
	}
	if len(previews) != 2 {
		t.Fatalf("preview count = %d, want manual playlists only", len(previews))
	}

	byUUID := make(map[string]EpisodePreview, len(previews))
	for _, p := range previews {
		byUUID[p.UUID] = p
	}
	if !byUUID[with.UUID].HasEpisode {
		t.Error("membership not reported")
	}
	if byUUID[without.UUID].HasEpisode {
		t.Error("phantom membership reported")
	}
	if byUUID[with.UUID].EpisodeLimit != 50 {
		t.Errorf("episode limit = %d, want 50", byUUID[with.UUID].EpisodeLimit)
	}
}
