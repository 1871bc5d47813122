/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the playlist engine over HTTP for the desktop
// and web clients.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/skald_podcasts/internal/cache"
	"github.com/friendsincode/skald_podcasts/internal/config"
	"github.com/friendsincode/skald_podcasts/internal/events"
	"github.com/friendsincode/skald_podcasts/internal/models"
	"github.com/friendsincode/skald_podcasts/internal/playlist"
	"github.com/friendsincode/skald_podcasts/internal/version"
)

// API exposes HTTP handlers.
type API struct {
	db      *gorm.DB
	manager *playlist.Manager
	cache   *cache.Cache
	bus     *events.Bus
	cfg     *config.Config
	logger  zerolog.Logger
}

// New creates the API router wrapper.
func New(db *gorm.DB, manager *playlist.Manager, cacheSvc *cache.Cache, bus *events.Bus, cfg *config.Config, logger zerolog.Logger) *API {
	return &API{
		db:      db,
		manager: manager,
		cache:   cacheSvc,
		bus:     bus,
		cfg:     cfg,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts all API routes on the router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Route("/playlists", func(r chi.Router) {
			r.Get("/", a.handlePlaylistsList)
			r.Post("/", a.handlePlaylistCreate)
			r.Post("/sort", a.handlePlaylistsSort)

			r.Get("/system/downloads", a.handleDownloads)
			r.Get("/auto-download", a.handleAutoDownloadSelection)
			r.Get("/for-episode/{episodeUUID}", a.handlePreviewsForEpisode)
			r.Get("/sources", a.handleEpisodeSources)
			r.Get("/sources/{folderUUID}", a.handleFolderSources)

			r.Route("/{playlistUUID}", func(r chi.Router) {
				r.Get("/", a.handlePlaylistDetail)
				r.Patch("/", a.handlePlaylistUpdateSettings)
				r.Delete("/", a.handlePlaylistDelete)
				r.Put("/rules", a.handlePlaylistUpdateRules)

				r.Get("/episodes", a.handlePlaylistEpisodes)
				r.Post("/episodes", a.handleEpisodeAdd)
				r.Post("/episodes/delete", a.handleEpisodesDelete)
				r.Post("/episodes/sort", a.handleEpisodesSort)
				r.Get("/episodes/not-added", a.handleNotAddedEpisodes)
			})
		})
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.db.DB()
	if err != nil || sqlDB.PingContext(r.Context()) != nil {
		writeError(w, http.StatusServiceUnavailable, "database_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// Playlist wire types. The engine's rule bundle and view rows are
// flattened here so the HTTP shape can evolve independently.

type rulesRequest struct {
	Unplayed           bool     `json:"unplayed"`
	InProgress         bool     `json:"inProgress"`
	Completed          bool     `json:"completed"`
	DownloadStatus     string   `json:"downloadStatus"` // any | downloaded | notDownloaded
	MediaType          string   `json:"mediaType"`      // any | audio | video
	ReleaseWindowHours int      `json:"releaseWindowHours"`
	StarredOnly        bool     `json:"starredOnly"`
	AllPodcasts        bool     `json:"allPodcasts"`
	PodcastUUIDs       []string `json:"podcastUuids"`
	FilterDuration     bool     `json:"filterDuration"`
	LongerThanMinutes  int      `json:"longerThanMinutes"`
	ShorterThanMinutes int      `json:"shorterThanMinutes"`
}

func (req rulesRequest) toRules() (playlist.SmartRules, error) {
	rules := playlist.SmartRules{
		EpisodeStatus: playlist.EpisodeStatusRule{
			Unplayed:   req.Unplayed,
			InProgress: req.InProgress,
			Completed:  req.Completed,
		},
	}

	switch req.DownloadStatus {
	case "", "any":
		rules.DownloadStatus = playlist.DownloadAny
	case "downloaded":
		rules.DownloadStatus = playlist.DownloadDownloaded
	case "notDownloaded":
		rules.DownloadStatus = playlist.DownloadNotDownloaded
	default:
		return playlist.SmartRules{}, errors.New("invalid download status")
	}

	switch req.MediaType {
	case "", "any":
		rules.MediaType = playlist.MediaTypeAny
	case "audio":
		rules.MediaType = playlist.MediaTypeAudio
	case "video":
		rules.MediaType = playlist.MediaTypeVideo
	default:
		return playlist.SmartRules{}, errors.New("invalid media type")
	}

	switch req.ReleaseWindowHours {
	case models.FilterAnytime:
		rules.ReleaseDate = playlist.ReleaseAnyTime
	case models.FilterLast24H:
		rules.ReleaseDate = playlist.ReleaseLast24Hours
	case models.FilterLast3Days:
		rules.ReleaseDate = playlist.ReleaseLast3Days
	case models.FilterLastWeek:
		rules.ReleaseDate = playlist.ReleaseLastWeek
	case models.FilterLast2Weeks:
		rules.ReleaseDate = playlist.ReleaseLast2Weeks
	case models.FilterLastMonth:
		rules.ReleaseDate = playlist.ReleaseLastMonth
	default:
		return playlist.SmartRules{}, errors.New("invalid release window")
	}

	if req.StarredOnly {
		rules.Starred = playlist.StarredOnly
	}

	if req.AllPodcasts || len(req.PodcastUUIDs) == 0 {
		rules.Podcasts = playlist.AllPodcasts()
	} else {
		rules.Podcasts = playlist.SelectedPodcasts(req.PodcastUUIDs...)
	}

	if req.FilterDuration {
		if req.LongerThanMinutes < 0 || req.ShorterThanMinutes <= req.LongerThanMinutes {
			return playlist.SmartRules{}, errors.New("invalid duration bounds")
		}
		rules.Duration = playlist.EpisodeDurationRule{
			Constrained: true,
			LongerThan:  req.LongerThanMinutes,
			ShorterThan: req.ShorterThanMinutes,
		}
	}

	return rules, nil
}

func rulesResponse(rules playlist.SmartRules) rulesRequest {
	resp := rulesRequest{
		Unplayed:           rules.EpisodeStatus.Unplayed,
		InProgress:         rules.EpisodeStatus.InProgress,
		Completed:          rules.EpisodeStatus.Completed,
		ReleaseWindowHours: rules.ReleaseDate.FilterHours(),
		StarredOnly:        rules.Starred == playlist.StarredOnly,
		AllPodcasts:        rules.Podcasts.All,
		PodcastUUIDs:       rules.Podcasts.UUIDs,
		FilterDuration:     rules.Duration.Constrained,
	}

	switch rules.DownloadStatus {
	case playlist.DownloadDownloaded:
		resp.DownloadStatus = "downloaded"
	case playlist.DownloadNotDownloaded:
		resp.DownloadStatus = "notDownloaded"
	default:
		resp.DownloadStatus = "any"
	}

	switch rules.MediaType {
	case playlist.MediaTypeAudio:
		resp.MediaType = "audio"
	case playlist.MediaTypeVideo:
		resp.MediaType = "video"
	default:
		resp.MediaType = "any"
	}

	if rules.Duration.Constrained {
		resp.LongerThanMinutes = rules.Duration.LongerThan
		resp.ShorterThanMinutes = rules.Duration.ShorterThan
	}

	return resp
}

type createPlaylistRequest struct {
	Title  string        `json:"title"`
	IconID int           `json:"iconId"`
	Manual bool          `json:"manual"`
	Rules  *rulesRequest `json:"rules,omitempty"`
}

type updateSettingsRequest struct {
	Title             *string `json:"title,omitempty"`
	IconID            *int    `json:"iconId,omitempty"`
	SortType          *int    `json:"sortType,omitempty"`
	ShowArchived      *bool   `json:"showArchived,omitempty"`
	AutoDownload      *bool   `json:"autoDownload,omitempty"`
	AutoDownloadLimit *int    `json:"autoDownloadLimit,omitempty"`
}

type sortRequest struct {
	UUIDs []string `json:"uuids"`
}

type addEpisodeRequest struct {
	EpisodeUUID string `json:"episodeUuid"`
}

type deleteEpisodesRequest struct {
	EpisodeUUIDs []string `json:"episodeUuids"`
}

type episodeEntryResponse struct {
	UUID          string    `json:"uuid"`
	PodcastUUID   string    `json:"podcastUuid"`
	Title         string    `json:"title"`
	Duration      int64     `json:"durationSeconds"`
	PlayedUpTo    int64     `json:"playedUpToSeconds"`
	PublishedDate time.Time `json:"publishedDate"`
	Starred       bool      `json:"starred"`
	Archived      bool      `json:"archived"`
	Available     bool      `json:"available"`
}

func episodeEntryResponses(entries []playlist.EpisodeEntry) []episodeEntryResponse {
	out := make([]episodeEntryResponse, 0, len(entries))
	for _, entry := range entries {
		switch e := entry.(type) {
		case playlist.Available:
			out = append(out, episodeEntryResponse{
				UUID:          e.Episode.UUID,
				PodcastUUID:   e.Episode.PodcastUUID,
				Title:         e.Episode.Title,
				Duration:      e.Episode.Duration,
				PlayedUpTo:    e.Episode.PlayedUpTo,
				PublishedDate: e.Episode.PublishedDate,
				Starred:       e.Episode.Starred,
				Archived:      e.Episode.Archived,
				Available:     true,
			})
		case playlist.Unavailable:
			out = append(out, episodeEntryResponse{
				UUID:          e.Membership.EpisodeUUID,
				PodcastUUID:   e.Membership.PodcastUUID,
				Title:         e.Membership.Title,
				PublishedDate: e.Membership.PublishedAt,
			})
		}
	}
	return out
}

type detailResponse struct {
	UUID     string                 `json:"uuid"`
	Title    string                 `json:"title"`
	IconID   int                    `json:"iconId"`
	Manual   bool                   `json:"manual"`
	Rules    *rulesRequest          `json:"rules,omitempty"`
	Episodes []episodeEntryResponse `json:"episodes"`
	Settings playlist.Settings      `json:"settings"`
	Metadata playlist.Metadata      `json:"metadata"`
}

func toDetailResponse(d playlist.Detail) detailResponse {
	resp := detailResponse{
		UUID:     d.UUID,
		Title:    d.Title,
		IconID:   d.IconID,
		Manual:   d.Manual,
		Episodes: episodeEntryResponses(d.Episodes),
		Settings: d.Settings,
		Metadata: d.Metadata,
	}
	if d.Rules != nil {
		rules := rulesResponse(*d.Rules)
		resp.Rules = &rules
	}
	return resp
}

func (a *API) handlePlaylistsList(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")

	if search == "" && a.cache != nil {
		var cached []playlist.Preview
		if a.cache.GetPreviews(r.Context(), &cached) {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	previews, err := a.manager.Previews(r.Context(), search)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to list playlists")
		writeError(w, http.StatusInternalServerError, "playlists_list_failed")
		return
	}

	if search == "" && a.cache != nil {
		_ = a.cache.SetPreviews(r.Context(), previews)
	}

	writeJSON(w, http.StatusOK, previews)
}

func (a *API) handlePlaylistCreate(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title_required")
		return
	}

	var (
		created models.Playlist
		err     error
	)
	if req.Manual {
		created, err = a.manager.CreateManual(r.Context(), playlist.ManualDraft{
			Title:  req.Title,
			IconID: req.IconID,
		})
	} else {
		rules := playlist.DefaultRules()
		if req.Rules != nil {
			rules, err = req.Rules.toRules()
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_rules")
				return
			}
		}
		created, err = a.manager.CreateSmart(r.Context(), playlist.SmartDraft{
			Title:  req.Title,
			IconID: req.IconID,
			Rules:  rules,
		})
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to create playlist")
		writeError(w, http.StatusInternalServerError, "playlist_create_failed")
		return
	}

	detail, err := a.manager.Detail(r.Context(), created.UUID, "")
	if err != nil {
		a.logger.Error().Err(err).Str("playlist_uuid", created.UUID).Msg("failed to load created playlist")
		writeError(w, http.StatusInternalServerError, "playlist_create_failed")
		return
	}
	writeJSON(w, http.StatusCreated, toDetailResponse(detail))
}

func (a *API) handlePlaylistsSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}
	if err := a.manager.SortPlaylists(r.Context(), req.UUIDs); err != nil {
		a.logger.Error().Err(err).Msg("failed to sort playlists")
		writeError(w, http.StatusInternalServerError, "playlists_sort_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handlePlaylistDetail(w http.ResponseWriter, r *http.Request) {
	playlistUUID := chi.URLParam(r, "playlistUUID")
	search := r.URL.Query().Get("search")

	if search == "" && a.cache != nil {
		var cached detailResponse
		if a.cache.GetDetail(r.Context(), playlistUUID, &cached) {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	detail, err := a.manager.Detail(r.Context(), playlistUUID, search)
	if errors.Is(err, playlist.ErrNotFound) {
		writeError(w, http.StatusNotFound, "playlist_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("playlist_uuid", playlistUUID).Msg("failed to load playlist")
		writeError(w, http.StatusInternalServerError, "playlist_detail_failed")
		return
	}

	resp := toDetailResponse(detail)
	if search == "" && a.cache != nil {
		_ = a.cache.SetDetail(r.Context(), playlistUUID, resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handlePlaylistUpdateSettings(w http.ResponseWriter, r *http.Request) {
	playlistUUID := chi.URLParam(r, "playlistUUID")

	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	update := playlist.SettingsUpdate{
		Title:             req.Title,
		IconID:            req.IconID,
		ShowArchived:      req.ShowArchived,
		AutoDownload:      req.AutoDownload,
		AutoDownloadLimit: req.AutoDownloadLimit,
	}
	if req.SortType != nil {
		sortType := models.EpisodeSortType(*req.SortType)
		update.SortType = &sortType
	}

	updated, err := a.manager.UpdateSettings(r.Context(), playlistUUID, update)
	if errors.Is(err, playlist.ErrNotFound) {
		writeError(w, http.StatusNotFound, "playlist_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_settings")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handlePlaylistDelete(w http.ResponseWriter, r *http.Request) {
	playlistUUID := chi.URLParam(r, "playlistUUID")

	err := a.manager.Delete(r.Context(), playlistUUID)
	if errors.Is(err, playlist.ErrNotFound) {
		writeError(w, http.StatusNotFound, "playlist_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("playlist_uuid", playlistUUID).Msg("failed to delete playlist")
		writeError(w, http.StatusInternalServerError, "playlist_delete_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handlePlaylistUpdateRules(w http.ResponseWriter, r *http.Request) {
	playlistUUID := chi.URLParam(r, "playlistUUID")

	var req rulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}
	rules, err := req.toRules()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_rules")
		return
	}

	updated, err := a.manager.UpdateRules(r.Context(), playlistUUID, rules)
	if errors.Is(err, playlist.ErrNotFound) {
		writeError(w, http.StatusNotFound, "playlist_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusConflict, "rules_update_rejected")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handlePlaylistEpisodes(w http.ResponseWriter, r *http.Request) {
	playlistUUID := chi.URLParam(r, "playlistUUID")
	search := r.URL.Query().Get("search")

	entries, err := a.manager.Episodes(r.Context(), playlistUUID, search)
	if errors.Is(err, playlist.ErrNotFound) {
		writeError(w, http.StatusNotFound, "playlist_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("playlist_uuid", playlistUUID).Msg("failed to load playlist episodes")
		writeError(w, http.StatusInternalServerError, "playlist_episodes_failed")
		return
	}
	writeJSON(w, http.StatusOK, episodeEntryResponses(entries))
}

func (a *API) handleEpisodeAdd(w http.ResponseWriter, r *http.Request) {
	playlistUUID := chi.URLParam(r, "playlistUUID")

	var req addEpisodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EpisodeUUID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	added, err := a.manager.AddEpisode(r.Context(), playlistUUID, req.EpisodeUUID)
	if errors.Is(err, playlist.ErrNotFound) {
		writeError(w, http.StatusNotFound, "playlist_not_found")
		return
	}
	if errors.Is(err, playlist.ErrNotManual) {
		writeError(w, http.StatusConflict, "not_manual_playlist")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("playlist_uuid", playlistUUID).Msg("failed to add episode")
		writeError(w, http.StatusInternalServerError, "episode_add_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"added": added})
}

func (a *API) handleEpisodesDelete(w http.ResponseWriter, r *http.Request) {
	playlistUUID := chi.URLParam(r, "playlistUUID")

	var req deleteEpisodesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	err := a.manager.DeleteEpisodes(r.Context(), playlistUUID, req.EpisodeUUIDs)
	if errors.Is(err, playlist.ErrNotFound) {
		writeError(w, http.StatusNotFound, "playlist_not_found")
		return
	}
	if errors.Is(err, playlist.ErrNotManual) {
		writeError(w, http.StatusConflict, "not_manual_playlist")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("playlist_uuid", playlistUUID).Msg("failed to delete episodes")
		writeError(w, http.StatusInternalServerError, "episodes_delete_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleEpisodesSort(w http.ResponseWriter, r *http.Request) {
	playlistUUID := chi.URLParam(r, "playlistUUID")

	var req sortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body")
		return
	}

	err := a.manager.SortEpisodes(r.Context(), playlistUUID, req.UUIDs)
	if errors.Is(err, playlist.ErrNotFound) {
		writeError(w, http.StatusNotFound, "playlist_not_found")
		return
	}
	if errors.Is(err, playlist.ErrNotManual) {
		writeError(w, http.StatusConflict, "not_manual_playlist")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("playlist_uuid", playlistUUID).Msg("failed to sort episodes")
		writeError(w, http.StatusInternalServerError, "episodes_sort_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleNotAddedEpisodes(w http.ResponseWriter, r *http.Request) {
	playlistUUID := chi.URLParam(r, "playlistUUID")
	podcastUUID := r.URL.Query().Get("podcast")
	search := r.URL.Query().Get("search")
	if podcastUUID == "" {
		writeError(w, http.StatusBadRequest, "podcast_required")
		return
	}

	episodes, err := a.manager.NotAddedEpisodes(r.Context(), playlistUUID, podcastUUID, search)
	if errors.Is(err, playlist.ErrNotFound) {
		writeError(w, http.StatusNotFound, "playlist_not_found")
		return
	}
	if errors.Is(err, playlist.ErrNotManual) {
		writeError(w, http.StatusConflict, "not_manual_playlist")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("playlist_uuid", playlistUUID).Msg("failed to load not-added episodes")
		writeError(w, http.StatusInternalServerError, "not_added_failed")
		return
	}
	writeJSON(w, http.StatusOK, episodes)
}

func (a *API) handlePreviewsForEpisode(w http.ResponseWriter, r *http.Request) {
	episodeUUID := chi.URLParam(r, "episodeUUID")
	search := r.URL.Query().Get("search")

	previews, err := a.manager.PreviewsForEpisode(r.Context(), episodeUUID, search)
	if err != nil {
		a.logger.Error().Err(err).Str("episode_uuid", episodeUUID).Msg("failed to load previews for episode")
		writeError(w, http.StatusInternalServerError, "previews_for_episode_failed")
		return
	}
	writeJSON(w, http.StatusOK, previews)
}

type sourceResponse struct {
	Type         string          `json:"type"` // podcast | folder
	Podcast      *models.Podcast `json:"podcast,omitempty"`
	Folder       *models.Folder  `json:"folder,omitempty"`
	PodcastUUIDs []string        `json:"podcastUuids,omitempty"`
}

func sourceResponses(sources []playlist.EpisodeSource) []sourceResponse {
	out := make([]sourceResponse, 0, len(sources))
	for _, source := range sources {
		switch s := source.(type) {
		case playlist.PodcastSource:
			podcast := s.Podcast
			out = append(out, sourceResponse{Type: "podcast", Podcast: &podcast})
		case playlist.FolderSource:
			folder := s.Folder
			out = append(out, sourceResponse{Type: "folder", Folder: &folder, PodcastUUIDs: s.PodcastUUIDs})
		}
	}
	return out
}

func (a *API) handleEpisodeSources(w http.ResponseWriter, r *http.Request) {
	// Folder grouping needs both the deployment entitlement and the
	// client asking for it; otherwise the picker stays flat.
	useFolders := a.cfg.FoldersEnabled && r.URL.Query().Get("folders") == "true"
	search := r.URL.Query().Get("search")

	sources, err := a.manager.EpisodeSources(r.Context(), useFolders, search)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to load episode sources")
		writeError(w, http.StatusInternalServerError, "sources_failed")
		return
	}
	writeJSON(w, http.StatusOK, sourceResponses(sources))
}

func (a *API) handleFolderSources(w http.ResponseWriter, r *http.Request) {
	folderUUID := chi.URLParam(r, "folderUUID")
	search := r.URL.Query().Get("search")

	sources, err := a.manager.FolderSources(r.Context(), folderUUID, search)
	if err != nil {
		a.logger.Error().Err(err).Str("folder_uuid", folderUUID).Msg("failed to load folder sources")
		writeError(w, http.StatusInternalServerError, "sources_failed")
		return
	}

	wrapped := make([]playlist.EpisodeSource, 0, len(sources))
	for _, s := range sources {
		wrapped = append(wrapped, s)
	}
	writeJSON(w, http.StatusOK, sourceResponses(wrapped))
}

func (a *API) handleDownloads(w http.ResponseWriter, r *http.Request) {
	episodes, err := a.manager.DownloadsEpisodes(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to load downloads playlist")
		writeError(w, http.StatusInternalServerError, "downloads_failed")
		return
	}
	writeJSON(w, http.StatusOK, episodes)
}

func (a *API) handleAutoDownloadSelection(w http.ResponseWriter, r *http.Request) {
	episodes, err := a.manager.AutoDownloadEpisodes(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to compute auto-download selection")
		writeError(w, http.StatusInternalServerError, "auto_download_failed")
		return
	}
	writeJSON(w, http.StatusOK, episodes)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
