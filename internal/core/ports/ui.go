package ports

import "github.com/ewilliams-labs/tuner/internal/core/domain"

// Dialogs is the modal dialog presenter. Completion callbacks run on the
// dispatch loop after dismissal; nil callbacks are allowed.
type Dialogs interface {
	OK(message string, done func())
	Confirm(title, message string, yes, no func())
	Keyboard(message, initial string, submit func(text string), cancel func())
}

// UI receives display update commands as side effects of session activity.
// Implementations must be cheap and non-blocking.
type UI interface {
	PopulateStations(stations []domain.Station, currentToken string)
	NowPlaying(track *domain.NormalizedTrack, stationName string)
	History(entries []domain.HistoryEntry)
	Loading(visible bool)
}
