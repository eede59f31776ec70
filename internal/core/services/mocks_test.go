package services

import (
	"errors"

	"github.com/ewilliams-labs/tuner/internal/core/domain"
	"github.com/ewilliams-labs/tuner/internal/core/ports"
)

// --- Mocks ---

// memSettings is an in-memory settings store.
type memSettings struct {
	values map[string]string
	saves  int
}

func newMemSettings() *memSettings {
	return &memSettings{values: make(map[string]string)}
}

func (m *memSettings) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *memSettings) Set(key, value string) { m.values[key] = value }

func (m *memSettings) Save() error {
	m.saves++
	return nil
}

func (m *memSettings) Reset() error {
	m.values = make(map[string]string)
	return nil
}

type feedbackCall struct {
	token    string
	positive bool
}

// mockService is a scripted stand-in for the remote service. Callbacks fire
// synchronously.
type mockService struct {
	loginResult *ports.LoginResult
	loginErr    error

	playlists     [][]domain.QueueItem
	playlistErr   error
	playlistCalls int

	ads   map[string]domain.NormalizedTrack
	adErr error

	feedbackErr   error
	feedbackCalls []feedbackCall

	stations         []domain.Station
	stationListErr   error
	stationListCalls int

	created     domain.Station
	createErr   error
	createCalls int

	renamed   domain.Station
	renameErr error

	deleteErr   error
	deleteCalls int
}

var _ ports.RadioService = (*mockService)(nil)

func (m *mockService) ActivationCode(done func(string, error)) {
	done("CODE", nil)
}

func (m *mockService) Login(blocker bool, done func(*ports.LoginResult, error)) {
	done(m.loginResult, m.loginErr)
}

func (m *mockService) Associate(done func(error))    { done(nil) }
func (m *mockService) Disassociate(done func(error)) { done(nil) }

func (m *mockService) StationList(done func([]domain.Station, error)) {
	m.stationListCalls++
	if m.stationListErr != nil {
		done(nil, m.stationListErr)
		return
	}
	done(m.stations, nil)
}

func (m *mockService) Playlist(stationToken string, done func([]domain.QueueItem, error)) {
	m.playlistCalls++
	if m.playlistErr != nil {
		// one-shot, so recovery paths can re-fetch successfully
		err := m.playlistErr
		m.playlistErr = nil
		done(nil, err)
		return
	}
	if len(m.playlists) == 0 {
		done(nil, nil)
		return
	}
	next := m.playlists[0]
	m.playlists = m.playlists[1:]
	done(next, nil)
}

func (m *mockService) AdMetadata(adToken string, done func(domain.NormalizedTrack, error)) {
	if m.adErr != nil {
		done(domain.NormalizedTrack{}, m.adErr)
		return
	}
	ad, ok := m.ads[adToken]
	if !ok {
		done(domain.NormalizedTrack{}, errors.New("unknown ad token"))
		return
	}
	done(ad, nil)
}

func (m *mockService) Feedback(trackToken string, positive bool, done func(error)) {
	m.feedbackCalls = append(m.feedbackCalls, feedbackCall{token: trackToken, positive: positive})
	done(m.feedbackErr)
}

func (m *mockService) CreateStationFromTrack(trackToken, musicType string, done func(domain.Station, error)) {
	m.createCalls++
	done(m.created, m.createErr)
}

func (m *mockService) CreateStationFromMusic(musicToken string, done func(domain.Station, error)) {
	m.createCalls++
	done(m.created, m.createErr)
}

func (m *mockService) RenameStation(token, name string, done func(domain.Station, error)) {
	if m.renameErr != nil {
		done(domain.Station{}, m.renameErr)
		return
	}
	st := m.renamed
	if st.Token == "" {
		st = domain.Station{Token: token, Name: name}
	}
	done(st, nil)
}

func (m *mockService) DeleteStation(token string, done func(error)) {
	m.deleteCalls++
	done(m.deleteErr)
}

func (m *mockService) Bookmark(kind, trackToken string, done func(error)) { done(nil) }

func (m *mockService) ExplainTrack(trackToken string, done func([]string, error)) {
	done([]string{"trait one", "trait two"}, nil)
}

func (m *mockService) Search(query string, done func([]ports.SearchResult, error)) {
	done(nil, nil)
}

// mockPlayer simulates the media player. A successful Open immediately
// reports the stream as open; openErrs fails that many Opens first.
type mockPlayer struct {
	events  ports.PlayerEvents
	open    bool
	playing bool

	openErrs int
	opened   []ports.MediaItem
	stops    int
}

var _ ports.Player = (*mockPlayer)(nil)

func (p *mockPlayer) Subscribe(ev ports.PlayerEvents) { p.events = ev }

func (p *mockPlayer) Open(item ports.MediaItem) error {
	p.opened = append(p.opened, item)
	if p.openErrs > 0 {
		p.openErrs--
		return errors.New("open failed")
	}
	p.open = true
	p.playing = true
	if p.events.OnOpenChanged != nil {
		p.events.OnOpenChanged(true)
	}
	return nil
}

func (p *mockPlayer) Stop() {
	p.stops++
	if !p.open {
		return
	}
	p.open = false
	p.playing = false
	if p.events.OnOpenChanged != nil {
		p.events.OnOpenChanged(false)
	}
}

func (p *mockPlayer) TogglePause() {
	if !p.open {
		return
	}
	p.playing = !p.playing
	if p.events.OnPauseChanged != nil {
		p.events.OnPauseChanged(p.playing)
	}
}

func (p *mockPlayer) IsOpen() bool    { return p.open }
func (p *mockPlayer) IsPlaying() bool { return p.playing }

// endOfMedia simulates the stream running out.
func (p *mockPlayer) endOfMedia() {
	p.open = false
	p.playing = false
	if p.events.OnEndOfMedia != nil {
		p.events.OnEndOfMedia()
	}
}

// mockDialogs records every dialog and immediately confirms it.
type mockDialogs struct {
	messages []string
}

var _ ports.Dialogs = (*mockDialogs)(nil)

func (d *mockDialogs) OK(message string, done func()) {
	d.messages = append(d.messages, message)
	if done != nil {
		done()
	}
}

func (d *mockDialogs) Confirm(title, message string, yes, no func()) {
	d.messages = append(d.messages, message)
	if yes != nil {
		yes()
	}
}

func (d *mockDialogs) Keyboard(message, initial string, submit func(string), cancel func()) {
	if submit != nil {
		submit(initial)
	}
}

// mockUI records display updates.
type mockUI struct {
	nowPlaying      []*domain.NormalizedTrack
	stationUpdates  int
	historyUpdates  int
	loadingVisible  bool
	loadingSwitches int
}

var _ ports.UI = (*mockUI)(nil)

func (u *mockUI) PopulateStations(stations []domain.Station, currentToken string) {
	u.stationUpdates++
}

func (u *mockUI) NowPlaying(track *domain.NormalizedTrack, stationName string) {
	u.nowPlaying = append(u.nowPlaying, track)
}

func (u *mockUI) History(entries []domain.HistoryEntry) { u.historyUpdates++ }

func (u *mockUI) Loading(visible bool) {
	u.loadingVisible = visible
	u.loadingSwitches++
}
