package domain

// ItemKind discriminates the queue item union.
type ItemKind int

const (
	ItemUnknown ItemKind = iota
	ItemTrack
	ItemAd
)

// QueueItem is one pending entry from a playlist fetch: either a full track
// or an ad token whose metadata is resolved just before playback.
type QueueItem struct {
	Kind    ItemKind
	Track   PendingTrack // valid when Kind == ItemTrack
	AdToken string       // valid when Kind == ItemAd
}

// PendingTrack is the track payload as delivered by a playlist fetch.
type PendingTrack struct {
	TrackToken    string
	Title         string
	Artist        string
	Album         string
	ArtURL        string
	MediaURL      string
	Rating        int
	AllowFeedback bool
}

// NormalizedTrack is the playable unit handed to the media player. It exists
// only for the duration of one playback.
type NormalizedTrack struct {
	IsAd          bool
	Title         string
	Artist        string
	Album         string
	Company       string // ad sponsor, stands in for Artist on ads
	ArtURL        string
	MediaURL      string
	TrackToken    string
	AdToken       string
	StationToken  string
	IsShared      bool
	Rating        int
	AllowFeedback bool
}

// Normalize converts a pending track into its playable form.
func (p PendingTrack) Normalize(stationToken string, shared bool) NormalizedTrack {
	return NormalizedTrack{
		Title:         p.Title,
		Artist:        p.Artist,
		Album:         p.Album,
		ArtURL:        p.ArtURL,
		MediaURL:      p.MediaURL,
		TrackToken:    p.TrackToken,
		StationToken:  stationToken,
		IsShared:      shared,
		Rating:        p.Rating,
		AllowFeedback: p.AllowFeedback,
	}
}
