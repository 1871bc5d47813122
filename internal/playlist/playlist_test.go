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

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/friendsincode/skald_podcasts/internal/db"
	"github.com/friendsincode/skald_podcasts/internal/events"
	"github.com/friendsincode/skald_podcasts/internal/models"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, opts ...Option) (*Manager, *gorm.DB, *events.Bus) {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	bus := events.NewBus()
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	m := NewManager(database, bus, zerolog.Nop(), opts...)
	return m, database, bus
}

func seedPodcast(t *testing.T, database *gorm.DB, uuid, title string, subscribed bool) models.Podcast {
	t.Helper()
	p := models.Podcast{UUID: uuid, Title: title, Slug: uuid + "-slug", Subscribed: subscribed}
	if err := database.Create(&p).Error; err != nil {
		t.Fatalf("seed podcast %s: %v", uuid, err)
	}
	return p
}

func seedEpisode(t *testing.T, database *gorm.DB, e models.Episode) models.Episode {
	t.Helper()
	if e.FileType == "" {
		e.FileType = "audio/mpeg"
	}
	if e.PublishedDate.IsZero() {
		e.PublishedDate = testNow.Add(-time.Hour)
	}
	if e.AddedDate.IsZero() {
		e.AddedDate = e.PublishedDate
	}
	if e.Duration == 0 {
		e.Duration = 1800
	}
	if err := database.Create(&e).Error; err != nil {
		t.Fatalf("seed episode %s: %v", e.UUID, err)
	}
	return e
}

// seedLibrary creates one subscribed podcast with n plain episodes,
// published an hour apart, newest having index 0.
func seedLibrary(t *testing.T, database *gorm.DB, podcastUUID string, n int) []models.Episode {
	t.Helper()
	seedPodcast(t, database, podcastUUID, "Podcast "+podcastUUID, true)
	episodes := make([]models.Episode, n)
	for i := 0; i < n; i++ {
		episodes[i] = seedEpisode(t, database, models.Episode{
			UUID:          fmt.Sprintf("%s-ep-%03d", podcastUUID, i),
			PodcastUUID:   podcastUUID,
			Title:         fmt.Sprintf("Episode %03d", i),
			PublishedDate: testNow.Add(-time.Duration(i+1) * time.Hour),
		})
	}
	return episodes
}

func mustCreateSmart(t *testing.T, m *Manager, title string, rules SmartRules) models.Playlist {
	t.Helper()
	p, err := m.CreateSmart(context.Background(), SmartDraft{Title: title, Rules: rules})
	if err != nil {
		t.Fatalf("create smart playlist: %v", err)
	}
	return p
}

func mustCreateManual(t *testing.T, m *Manager, title string) models.Playlist {
	t.Helper()
	p, err := m.CreateManual(context.Background(), ManualDraft{Title: title})
	if err != nil {
		t.Fatalf("create manual playlist: %v", err)
	}
	return p
}

func mustAdd(t *testing.T, m *Manager, playlistUUID, episodeUUID string) {
	t.Helper()
	ok, err := m.AddEpisode(context.Background(), playlistUUID, episodeUUID)
	if err != nil {
		t.Fatalf("add episode %s: %v", episodeUUID, err)
	}
	if !ok {
		t.Fatalf("add episode %s: not added", episodeUUID)
	}
}

func entryUUIDs(entries []EpisodeEntry) []string {
	uuids := make([]string, len(entries))
	for i, e := range entries {
		uuids[i] = e.EpisodeUUID()
	}
	return uuids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
