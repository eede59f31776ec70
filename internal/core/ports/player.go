package ports

// MediaItem describes one playable stream for the media player.
type MediaItem struct {
	URL     string
	Title   string
	IconURL string
}

// PlayerEvents are the player's asynchronous notifications. Handlers are
// invoked on the dispatch loop. Nil handlers are skipped.
type PlayerEvents struct {
	// OnOpenChanged fires when the player finishes (or abandons) opening a
	// stream and when the stream closes.
	OnOpenChanged func(open bool)
	// OnPauseChanged fires on pause/resume with the new playing state.
	OnPauseChanged func(playing bool)
	// OnError fires when the stream cannot be decoded or played.
	OnError func()
	// OnEndOfMedia fires when playback reaches the end of the stream.
	OnEndOfMedia func()
}

// Player is the external media player control surface.
type Player interface {
	Open(item MediaItem) error
	Stop()
	TogglePause()
	IsOpen() bool
	IsPlaying() bool
	Subscribe(ev PlayerEvents)
}
