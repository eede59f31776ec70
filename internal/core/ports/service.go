package ports

import "github.com/ewilliams-labs/tuner/internal/core/domain"

// LoginResult is the useful subset of a login response. Account limits are
// applied to the session by the gateway; stations ride along for the caller
// to absorb into its collection.
type LoginResult struct {
	Username        string
	SkipLimit       int
	MaxStations     int
	CanListen       bool
	AutoCompleteURL string
	Stations        []domain.Station
	HasStations     bool
}

// SearchResult is one row of a music search or autocomplete lookup.
type SearchResult struct {
	Token        string
	Kind         string // "Artists", "Tracks" or "Suggestions"
	Label        string
	AutoComplete bool
}

// RadioService is the typed surface of the remote service. Every method is
// asynchronous: it returns immediately and invokes done on the dispatch loop.
// Errors passed to done carry the service code when one exists (see
// ErrorCode).
type RadioService interface {
	// ActivationCode requests a device activation code for account linking.
	ActivationCode(done func(code string, err error))

	// Login authenticates by device id. blocker marks the silent re-login
	// issued by the gateway's own recovery cycle.
	Login(blocker bool, done func(res *LoginResult, err error))

	// Associate links the device to the logged-in account.
	Associate(done func(err error))

	// Disassociate removes the device/account link.
	Disassociate(done func(err error))

	// StationList fetches the authoritative station collection.
	StationList(done func(stations []domain.Station, err error))

	// Playlist fetches the next set of pending items for a station.
	Playlist(stationToken string, done func(items []domain.QueueItem, err error))

	// AdMetadata resolves an ad token into a playable item.
	AdMetadata(adToken string, done func(track domain.NormalizedTrack, err error))

	// Feedback submits a thumbs rating for a track.
	Feedback(trackToken string, positive bool, done func(err error))

	CreateStationFromTrack(trackToken, musicType string, done func(st domain.Station, err error))
	CreateStationFromMusic(musicToken string, done func(st domain.Station, err error))
	RenameStation(token, name string, done func(st domain.Station, err error))
	DeleteStation(token string, done func(err error))

	// Bookmark records an artist ("artist") or song (any other kind)
	// bookmark for a track.
	Bookmark(kind, trackToken string, done func(err error))

	// ExplainTrack fetches the focus traits behind the current track choice.
	ExplainTrack(trackToken string, done func(traits []string, err error))

	// Search runs a music search, merging artist and song matches.
	Search(query string, done func(results []SearchResult, err error))
}
