package services

import (
	"encoding/json"
	"hash/fnv"
	"log"
	"strings"
	"time"

	"github.com/ewilliams-labs/tuner/internal/core/domain"
	"github.com/ewilliams-labs/tuner/internal/core/ports"
)

const (
	playedTracksKey  = "playedTracks"
	skippedTracksKey = "skippedTracks"

	// playedCap is the number of recently played entries kept per station.
	playedCap = 4
)

// History tracks recently played items and skip events per station, backed
// by the settings store.
type History struct {
	settings ports.Settings
	now      func() time.Time

	played  map[string][]domain.HistoryEntry
	skipped map[string][]domain.SkipEntry
}

// NewHistory constructs the tracker and loads persisted state.
func NewHistory(settings ports.Settings) *History {
	h := &History{
		settings: settings,
		now:      time.Now,
		played:   make(map[string][]domain.HistoryEntry),
		skipped:  make(map[string][]domain.SkipEntry),
	}
	h.load()
	return h
}

func (h *History) load() {
	if raw, ok := h.settings.Get(playedTracksKey); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &h.played); err != nil {
			log.Printf("WARN history: discarding unreadable played history: %v", err)
			h.played = make(map[string][]domain.HistoryEntry)
		}
	}
	if raw, ok := h.settings.Get(skippedTracksKey); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &h.skipped); err != nil {
			log.Printf("WARN history: discarding unreadable skip history: %v", err)
			h.skipped = make(map[string][]domain.SkipEntry)
		}
	}
}

// identity hashes the fields that make two plays "the same item". Ads use
// the sponsor name in place of the artist.
func identity(track domain.NormalizedTrack) uint64 {
	artist := track.Artist
	if track.IsAd {
		artist = track.Company
	}
	hash := fnv.New64a()
	hash.Write([]byte(strings.ToLower(strings.TrimSpace(track.Title))))
	hash.Write([]byte{0})
	hash.Write([]byte(strings.ToLower(strings.TrimSpace(artist))))
	hash.Write([]byte{0})
	hash.Write([]byte(track.ArtURL))
	return hash.Sum64()
}

// RecordPlayed prepends track to the station's played list unless an entry
// with the same identity is already present. The list is capped; the oldest
// entry falls off. Returns whether a new entry was added.
func (h *History) RecordPlayed(stationToken string, track domain.NormalizedTrack) bool {
	id := identity(track)
	entries := h.played[stationToken]
	for _, e := range entries {
		if e.ID == id {
			return false
		}
	}

	artist := track.Artist
	if track.IsAd {
		artist = track.Company
	}
	entry := domain.HistoryEntry{
		ID:        id,
		Title:     track.Title,
		Artist:    artist,
		ArtURL:    track.ArtURL,
		Rating:    track.Rating,
		IsAd:      track.IsAd,
		Timestamp: h.now().UnixMilli(),
	}

	entries = append([]domain.HistoryEntry{entry}, entries...)
	if len(entries) > playedCap {
		entries = entries[:playedCap]
	}
	h.played[stationToken] = entries
	h.persist()
	return true
}

// Played returns the station's recently played entries, newest first.
func (h *History) Played(stationToken string) []domain.HistoryEntry {
	return h.played[stationToken]
}

// SetRating updates the rating on the most recent played entry matching the
// track's identity.
func (h *History) SetRating(stationToken string, track domain.NormalizedTrack, rating int) {
	id := identity(track)
	entries := h.played[stationToken]
	for i := range entries {
		if entries[i].ID == id {
			entries[i].Rating = rating
			h.persist()
			return
		}
	}
}

// RecordSkipped appends a skip event for the station. A second skip of the
// same track token is ignored, so re-skipping a failed skip costs nothing.
// Returns whether a new event was recorded.
func (h *History) RecordSkipped(stationToken, trackToken string) bool {
	for _, e := range h.skipped[stationToken] {
		if e.Token == trackToken {
			return false
		}
	}
	h.skipped[stationToken] = append(h.skipped[stationToken], domain.SkipEntry{
		Token:     trackToken,
		Timestamp: h.now().UnixMilli(),
	})
	h.persist()
	return true
}

// PruneExpiredSkips drops skip events older than window. Persisted only when
// something actually expired.
func (h *History) PruneExpiredSkips(stationToken string, window time.Duration) {
	entries := h.skipped[stationToken]
	cutoff := h.now().Add(-window).UnixMilli()

	kept := entries[:0]
	for _, e := range entries {
		if e.Timestamp > cutoff {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return
	}
	h.skipped[stationToken] = kept
	h.persist()
}

// SkipCount returns the number of unexpired skip events for the station.
func (h *History) SkipCount(stationToken string, window time.Duration) int {
	cutoff := h.now().Add(-window).UnixMilli()
	count := 0
	for _, e := range h.skipped[stationToken] {
		if e.Timestamp > cutoff {
			count++
		}
	}
	return count
}

// ResetAll wipes both histories, in memory and in the store.
func (h *History) ResetAll() {
	h.played = make(map[string][]domain.HistoryEntry)
	h.skipped = make(map[string][]domain.SkipEntry)
	h.persist()
}

func (h *History) persist() {
	played, err := json.Marshal(h.played)
	if err != nil {
		log.Printf("WARN history: could not encode played history: %v", err)
		return
	}
	skipped, err := json.Marshal(h.skipped)
	if err != nil {
		log.Printf("WARN history: could not encode skip history: %v", err)
		return
	}
	h.settings.Set(playedTracksKey, string(played))
	h.settings.Set(skippedTracksKey, string(skipped))
	if err := h.settings.Save(); err != nil {
		log.Printf("WARN history: could not save history: %v", err)
	}
}
