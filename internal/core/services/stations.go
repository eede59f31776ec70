package services

import (
	"fmt"
	"log"
	"math/rand"

	"github.com/ewilliams-labs/tuner/internal/core/domain"
	"github.com/ewilliams-labs/tuner/internal/core/ports"
)

const lastStationKey = "lastStationToken"

// Stations owns the station collection and the current selection. Mutations
// are optimistic where possible; the server list is re-fetched afterwards to
// reconverge.
type Stations struct {
	svc      ports.RadioService
	session  *domain.Session
	settings ports.Settings
	queue    *Queue
	ui       ports.UI
	dialogs  ports.Dialogs

	stations []domain.Station
	current  string

	randIntn func(int) int

	// stopPlayback is invoked before the currently playing station is
	// deleted out from under the player.
	stopPlayback func()
	// onCurrentRenamed lets the controller refresh the now-playing display
	// when the current station changes name.
	onCurrentRenamed func(name string)
}

// NewStations constructs the station collection manager.
func NewStations(svc ports.RadioService, session *domain.Session, settings ports.Settings, queue *Queue, ui ports.UI, dialogs ports.Dialogs) *Stations {
	return &Stations{
		svc:              svc,
		session:          session,
		settings:         settings,
		queue:            queue,
		ui:               ui,
		dialogs:          dialogs,
		randIntn:         rand.Intn,
		stopPlayback:     func() {},
		onCurrentRenamed: func(string) {},
	}
}

// SetStopPlaybackHook registers the callback run before deleting the station
// that is currently playing.
func (s *Stations) SetStopPlaybackHook(fn func()) {
	if fn != nil {
		s.stopPlayback = fn
	}
}

// SetRenameHook registers the callback run when the current station is
// renamed.
func (s *Stations) SetRenameHook(fn func(name string)) {
	if fn != nil {
		s.onCurrentRenamed = fn
	}
}

// SetAll replaces the collection. A current selection that no longer
// resolves is cleared along with its pending queue.
func (s *Stations) SetAll(stations []domain.Station) {
	s.stations = stations
	if s.current != "" {
		if _, ok := s.ByToken(s.current); !ok {
			log.Printf("WARN stations: current station disappeared from list")
			s.current = ""
			s.queue.Clear()
		}
	}
	if s.ui != nil {
		s.ui.PopulateStations(s.stations, s.current)
	}
}

// All returns the station collection in server order.
func (s *Stations) All() []domain.Station {
	return s.stations
}

// ByToken resolves a token against the collection.
func (s *Stations) ByToken(token string) (domain.Station, bool) {
	for _, st := range s.stations {
		if st.Token == token {
			return st, true
		}
	}
	return domain.Station{}, false
}

// HasStations reports whether the user has any usable station. A collection
// holding only the QuickMix counts as empty; QuickMix needs real stations
// behind it.
func (s *Stations) HasStations() bool {
	for _, st := range s.stations {
		if !st.IsQuickMix {
			return true
		}
	}
	return false
}

// CurrentToken returns the selected station token, or "".
func (s *Stations) CurrentToken() string {
	return s.current
}

// Current returns the selected station.
func (s *Stations) Current() (domain.Station, bool) {
	return s.ByToken(s.current)
}

// SetCurrentByToken selects a station. The pending queue is cleared; items
// from the old station must never play on the new one.
func (s *Stations) SetCurrentByToken(token string) error {
	if _, ok := s.ByToken(token); !ok {
		return domain.ErrUnknownStation
	}
	s.current = token
	s.queue.Clear()
	s.settings.Set(lastStationKey, token)
	if err := s.settings.Save(); err != nil {
		log.Printf("WARN stations: could not persist station selection: %v", err)
	}
	if s.ui != nil {
		s.ui.PopulateStations(s.stations, s.current)
	}
	return nil
}

// SetRandom selects a random station.
func (s *Stations) SetRandom() error {
	if len(s.stations) == 0 {
		return domain.ErrNoStations
	}
	pick := s.stations[s.randIntn(len(s.stations))]
	return s.SetCurrentByToken(pick.Token)
}

// RestoreSelection re-selects the persisted last station if it still exists.
func (s *Stations) RestoreSelection() bool {
	token, ok := s.settings.Get(lastStationKey)
	if !ok || token == "" {
		return false
	}
	return s.SetCurrentByToken(token) == nil
}

// CreateFromTrack creates a station seeded from a track, by artist or song.
func (s *Stations) CreateFromTrack(trackToken, musicType string, done func(st domain.Station, err error)) {
	if done == nil {
		done = func(domain.Station, error) {}
	}
	if !s.canMutate() {
		done(domain.Station{}, fmt.Errorf("stations: cannot create station while %s", s.session.Status))
		return
	}
	s.svc.CreateStationFromTrack(trackToken, musicType, func(st domain.Station, err error) {
		s.absorbCreated(st, err, done)
	})
}

// CreateFromMusic creates a station from a search result token. Creating
// from the token of the station already playing is a no-op answered locally.
func (s *Stations) CreateFromMusic(musicToken string, done func(st domain.Station, err error)) {
	if done == nil {
		done = func(domain.Station, error) {}
	}
	if !s.canMutate() {
		done(domain.Station{}, fmt.Errorf("stations: cannot create station while %s", s.session.Status))
		return
	}
	if s.current != "" && musicToken == s.current {
		log.Printf("already listening to that station")
		cur, _ := s.Current()
		done(cur, domain.ErrSameStation)
		return
	}
	s.svc.CreateStationFromMusic(musicToken, func(st domain.Station, err error) {
		s.absorbCreated(st, err, done)
	})
}

func (s *Stations) absorbCreated(st domain.Station, err error, done func(domain.Station, error)) {
	if err != nil {
		log.Printf("ERROR %d, %s", ports.ErrorCode(err), err)
		done(domain.Station{}, err)
		return
	}
	if st.Token == s.current {
		done(st, domain.ErrSameStation)
		return
	}
	if existing, ok := s.ByToken(st.Token); ok {
		// already in the collection, just hand it back for selection
		done(existing, nil)
		return
	}
	s.stations = append([]domain.Station{st}, s.stations...)
	if s.ui != nil {
		s.ui.PopulateStations(s.stations, s.current)
	}
	// reconverge with the server's ordering in the background
	s.RefreshList(nil)
	done(st, nil)
}

// Rename changes a station's name, updating the collection in place.
func (s *Stations) Rename(token, name string, done func(err error)) {
	if done == nil {
		done = func(error) {}
	}
	if _, ok := s.ByToken(token); !ok {
		done(domain.ErrUnknownStation)
		return
	}
	s.svc.RenameStation(token, name, func(st domain.Station, err error) {
		if err != nil {
			log.Printf("ERROR %d, %s", ports.ErrorCode(err), err)
			done(err)
			return
		}
		for i := range s.stations {
			if s.stations[i].Token == st.Token {
				s.stations[i].Name = st.Name
				break
			}
		}
		if s.ui != nil {
			s.ui.PopulateStations(s.stations, s.current)
		}
		if st.Token == s.current {
			s.onCurrentRenamed(st.Name)
		}
		done(nil)
	})
}

// Delete removes a station. Local removal happens before the server call;
// the list is re-fetched afterwards to reconverge either way. Deleting the
// playing station stops playback first.
func (s *Stations) Delete(token string, done func(err error)) {
	if done == nil {
		done = func(error) {}
	}
	if _, ok := s.ByToken(token); !ok {
		done(domain.ErrUnknownStation)
		return
	}

	if token == s.current {
		s.stopPlayback()
		s.current = ""
		s.queue.Clear()
	}

	kept := s.stations[:0]
	for _, st := range s.stations {
		if st.Token != token {
			kept = append(kept, st)
		}
	}
	s.stations = kept
	if s.ui != nil {
		s.ui.PopulateStations(s.stations, s.current)
	}

	s.svc.DeleteStation(token, func(err error) {
		if err != nil && ports.ErrorCode(err) != 1006 {
			// 1006 means the server already lost the station; anything
			// else is surfaced, then the list reconverges
			log.Printf("ERROR %d, %s", ports.ErrorCode(err), err)
			s.dialogs.OK(err.Error(), nil)
			s.RefreshList(nil)
			done(err)
			return
		}
		s.RefreshList(nil)
		done(nil)
	})
}

// RefreshList replaces the collection with the server's list. On failure the
// local collection is left untouched.
func (s *Stations) RefreshList(done func(err error)) {
	if done == nil {
		done = func(error) {}
	}
	s.svc.StationList(func(stations []domain.Station, err error) {
		if err != nil {
			log.Printf("WARN stations: station list refresh failed: %v", err)
			done(err)
			return
		}
		s.SetAll(stations)
		done(nil)
	})
}

func (s *Stations) canMutate() bool {
	switch s.session.Status {
	case domain.StatusLoggedIn, domain.StatusPlaying:
		return true
	default:
		return false
	}
}
