package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ewilliams-labs/tuner/internal/core/domain"
	"github.com/ewilliams-labs/tuner/internal/core/ports"
)

const (
	deviceIDKey     = "deviceId"
	isAssociatedKey = "isAssociated"
)

// Controller drives the playback session: advancing through the pending
// queue, counting failures, enforcing the skip limit and reacting to player
// events. All methods run on the dispatch loop.
type Controller struct {
	session  *domain.Session
	svc      ports.RadioService
	stations *Stations
	queue    *Queue
	history  *History
	player   ports.Player
	dialogs  ports.Dialogs
	ui       ports.UI
	settings ports.Settings

	now    func() time.Time
	qaMode bool

	current          *domain.NormalizedTrack
	lastTrackFailed  bool
	dontAddNextTrack bool

	searchCanceled  bool
	explainCanceled bool
}

// NewController wires the controller into the station manager and the
// player's event stream.
func NewController(session *domain.Session, svc ports.RadioService, stations *Stations, queue *Queue, history *History, player ports.Player, dialogs ports.Dialogs, ui ports.UI, settings ports.Settings) *Controller {
	c := &Controller{
		session:  session,
		svc:      svc,
		stations: stations,
		queue:    queue,
		history:  history,
		player:   player,
		dialogs:  dialogs,
		ui:       ui,
		settings: settings,
		now:      time.Now,
	}

	stations.SetStopPlaybackHook(c.StopPlayback)
	stations.SetRenameHook(func(name string) {
		if c.current != nil {
			c.ui.NowPlaying(c.current, name)
		}
	})
	player.Subscribe(ports.PlayerEvents{
		OnOpenChanged:  c.onOpenChanged,
		OnPauseChanged: c.onPauseChanged,
		OnError:        c.onPlayerError,
		OnEndOfMedia:   c.onEndOfMedia,
	})

	return c
}

// SetQAMode disables the skip limit for test builds.
func (c *Controller) SetQAMode(enabled bool) {
	c.qaMode = enabled
}

// CurrentTrack returns the track being played, or nil.
func (c *Controller) CurrentTrack() *domain.NormalizedTrack {
	return c.current
}

// --- session lifecycle ---

// Login authenticates and absorbs the account's station list. On failure the
// session drops to offline.
func (c *Controller) Login(done func(err error)) {
	if done == nil {
		done = func(error) {}
	}
	c.svc.Login(false, func(res *ports.LoginResult, err error) {
		if err != nil {
			c.session.Status = domain.StatusOffline
			done(err)
			return
		}
		c.stations.SetAll(res.Stations)
		c.stations.RestoreSelection()
		done(nil)
	})
}

// Activate requests a device activation code for account linking.
func (c *Controller) Activate(done func(code string, err error)) {
	c.svc.ActivationCode(done)
}

// Associate links the device to the account and persists the association.
func (c *Controller) Associate(done func(err error)) {
	if done == nil {
		done = func(error) {}
	}
	c.svc.Associate(func(err error) {
		if err == nil {
			c.settings.Set(isAssociatedKey, "true")
			if serr := c.settings.Save(); serr != nil {
				log.Printf("WARN session: could not persist association: %v", serr)
			}
		}
		done(err)
	})
}

// Disassociate unlinks the device. On success every trace of the account is
// wiped: session, histories and stored settings.
func (c *Controller) Disassociate(done func(err error)) {
	if done == nil {
		done = func(error) {}
	}
	c.svc.Disassociate(func(err error) {
		if err != nil {
			done(err)
			return
		}
		c.StopPlayback()
		c.queue.Clear()
		c.history.ResetAll()
		c.session.ResetDevice()
		if rerr := c.settings.Reset(); rerr != nil {
			log.Printf("WARN session: could not reset settings: %v", rerr)
		}
		// the device id outlives the account link
		c.settings.Set(deviceIDKey, c.session.DeviceID)
		if serr := c.settings.Save(); serr != nil {
			log.Printf("WARN session: could not persist device id: %v", serr)
		}
		done(nil)
	})
}

// Logout ends the user session, keeping the device association.
func (c *Controller) Logout() {
	c.StopPlayback()
	c.queue.Clear()
	c.session.Reset()
	log.Printf("logged out")
}

// RecordActivity marks the user as present now.
func (c *Controller) RecordActivity() {
	c.session.LastActivity = c.now()
}

func (c *Controller) activityAllowed() bool {
	return c.now().Sub(c.session.LastActivity) < c.session.ActivityTimeout
}

// --- playback ---

// StartPlayback begins (or resumes) playing the current station. When no
// station is selected, the last used one is restored, falling back to a
// random pick. Returns false when the session cannot play.
func (c *Controller) StartPlayback() bool {
	switch c.session.Status {
	case domain.StatusPlaying:
		return true
	case domain.StatusLoggedIn:
	default:
		log.Printf("cannot start playback while %s", c.session.Status)
		return false
	}

	if c.stations.CurrentToken() == "" {
		if !c.stations.RestoreSelection() {
			if err := c.stations.SetRandom(); err != nil {
				log.Printf("ERROR %v", err)
				return false
			}
		}
	}
	c.ui.History(c.history.Played(c.stations.CurrentToken()))

	if c.queue.Len() == 0 {
		c.fetchPlaylist(func(ok bool) {
			if ok {
				c.StartPlayback()
			}
		})
		return true
	}
	return c.PlayNextTrack()
}

// PlayNextTrack advances to the next queued item, fetching more when the
// queue runs dry. Returns false when the session cannot play.
func (c *Controller) PlayNextTrack() bool {
	switch c.session.Status {
	case domain.StatusLoggedIn, domain.StatusPlaying:
	default:
		log.Printf("cannot advance while %s", c.session.Status)
		return false
	}

	if c.queue.Len() == 0 {
		c.fetchPlaylist(func(ok bool) {
			if ok {
				c.PlayNextTrack()
			}
		})
		return true
	}

	item, err := c.queue.Dequeue()
	if err != nil {
		return false
	}

	station, _ := c.stations.Current()
	switch item.Kind {
	case domain.ItemTrack:
		if item.Track.TrackToken == "" || item.Track.MediaURL == "" {
			log.Printf("WARN session: dropping malformed playlist entry")
			return c.PlayNextTrack()
		}
		c.advance(item.Track.Normalize(station.Token, station.IsShared))
	case domain.ItemAd:
		c.svc.AdMetadata(item.AdToken, func(ad domain.NormalizedTrack, err error) {
			if err != nil {
				// ad problems never count against the failure limit
				log.Printf("WARN session: ad metadata failed, moving on: %v", err)
				c.PlayNextTrack()
				return
			}
			ad.StationToken = station.Token
			c.advance(ad)
		})
	default:
		log.Printf("WARN session: dropping unrecognized playlist entry")
		return c.PlayNextTrack()
	}
	return true
}

// advance records the finished track in history, swaps in the next one and
// starts it.
func (c *Controller) advance(track domain.NormalizedTrack) {
	if prev := c.current; prev != nil && !prev.IsAd && !c.lastTrackFailed && !c.dontAddNextTrack {
		if c.history.RecordPlayed(prev.StationToken, *prev) {
			c.ui.History(c.history.Played(c.stations.CurrentToken()))
		}
	}
	c.dontAddNextTrack = false
	c.current = &track

	if err := c.play(track); err != nil {
		log.Printf("ERROR %v", err)
		c.trackFailed()
	}
}

func (c *Controller) play(track domain.NormalizedTrack) error {
	c.player.Stop()

	if track.MediaURL == "" {
		if track.IsAd {
			log.Printf("ad has no playable audio, moving on")
			c.PlayNextTrack()
			return nil
		}
		return errors.New("track has no playable audio")
	}

	if err := c.player.Open(ports.MediaItem{
		URL:     track.MediaURL,
		Title:   track.Title,
		IconURL: track.ArtURL,
	}); err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	return nil
}

// trackFailed counts one failed track and either advances or, at the limit,
// stops playback after telling the user. Ads fail silently and never count.
func (c *Controller) trackFailed() {
	c.lastTrackFailed = true
	c.dontAddNextTrack = true

	if c.current != nil && c.current.IsAd {
		log.Printf("WARN session: ad playback failed, moving on")
		c.player.Stop()
		c.PlayNextTrack()
		return
	}

	c.session.FailedTrackCount++
	if c.session.FailedTrackCount >= c.session.FailedTrackLimit {
		c.session.FailedTrackCount = 0
		c.dialogs.OK("Too many failed tracks! Stopping playback.", c.FailedPlayback)
		return
	}
	c.player.Stop()
	c.PlayNextTrack()
}

// FailedPlayback tears playback down after an unrecoverable failure. The
// gateway also routes retry-budget exhaustion here.
func (c *Controller) FailedPlayback() {
	log.Printf("stopping playback")
	c.player.Stop()
	c.session.RetryBudget = c.session.RetryBudgetMax
	c.lastTrackFailed = false
	c.current = nil
	if c.session.Status == domain.StatusPlaying {
		c.session.Status = domain.StatusLoggedIn
	}
	c.ui.NowPlaying(nil, "")
}

// StopPlayback stops the player and clears the now-playing display.
func (c *Controller) StopPlayback() {
	c.player.Stop()
	c.current = nil
	if c.session.Status == domain.StatusPlaying {
		c.session.Status = domain.StatusLoggedIn
	}
	c.ui.NowPlaying(nil, "")
}

// TogglePause pauses or resumes the current stream. Status is unaffected;
// a paused session is still a playing session.
func (c *Controller) TogglePause() {
	c.RecordActivity()
	c.player.TogglePause()
}

// ChangeStation switches playback to another station.
func (c *Controller) ChangeStation(token string) error {
	if token == c.stations.CurrentToken() {
		return domain.ErrSameStation
	}
	if err := c.stations.SetCurrentByToken(token); err != nil {
		return err
	}
	c.RecordActivity()
	c.ui.History(c.history.Played(token))
	c.dontAddNextTrack = true
	c.fetchPlaylist(func(ok bool) {
		if ok {
			c.PlayNextTrack()
		}
	})
	return nil
}

// fetchPlaylist replaces the pending queue with fresh items for the current
// station. done(false) never re-triggers playback; that is what keeps a
// failing station from fetching in a loop.
func (c *Controller) fetchPlaylist(done func(ok bool)) {
	if done == nil {
		done = func(bool) {}
	}
	token := c.stations.CurrentToken()
	if token == "" {
		done(false)
		return
	}
	c.svc.Playlist(token, func(items []domain.QueueItem, err error) {
		if err != nil {
			if ports.ErrorCode(err) == 1006 {
				// the station evaporated server-side; resync and move on
				c.refreshAndPlayRandom()
			} else {
				log.Printf("ERROR %d, %s", ports.ErrorCode(err), err)
				c.FailedPlayback()
			}
			done(false)
			return
		}
		c.queue.Replace(items)
		if c.queue.Len() == 0 {
			log.Printf("WARN session: station returned an empty playlist")
			done(false)
			return
		}
		done(true)
	})
}

func (c *Controller) refreshAndPlayRandom() {
	c.queue.Clear()
	c.stations.RefreshList(func(err error) {
		if err != nil {
			c.FailedPlayback()
			return
		}
		if err := c.stations.SetRandom(); err != nil {
			log.Printf("ERROR %v", err)
			c.FailedPlayback()
			return
		}
		c.ui.History(c.history.Played(c.stations.CurrentToken()))
		c.StartPlayback()
	})
}

// --- skips and feedback ---

// IsSkipAllowed reports whether a skip may happen right now. QA mode
// bypasses the limit entirely; ads can never be skipped.
func (c *Controller) IsSkipAllowed() bool {
	if c.qaMode {
		return true
	}
	if c.current == nil {
		return false
	}
	if c.current.IsAd {
		return false
	}
	token := c.stations.CurrentToken()
	c.history.PruneExpiredSkips(token, c.session.SkipWindow)
	return c.history.SkipCount(token, c.session.SkipWindow) < c.session.SkipLimit
}

// SkipSong skips the current track, charging one skip against the station's
// hourly allowance. Returns whether the skip happened.
func (c *Controller) SkipSong() bool {
	c.RecordActivity()
	if !c.IsSkipAllowed() {
		c.dialogs.OK(fmt.Sprintf("Unable to skip more than %d songs per hour.", c.session.SkipLimit), nil)
		return false
	}
	if c.current != nil && !c.current.IsAd && c.stations.CurrentToken() != "" {
		c.history.RecordSkipped(c.stations.CurrentToken(), c.current.TrackToken)
	}
	c.PlayNextTrack()
	return true
}

// AddFeedback submits a thumbs rating (1 or -1) for the current track. Once
// the service accepts a negative rating, the queue is flushed and the track
// skipped; the service should not keep playing a song the user just banned.
// A rejected submission changes nothing and tells the user.
func (c *Controller) AddFeedback(rating int) bool {
	c.RecordActivity()
	if c.session.Status != domain.StatusPlaying {
		log.Printf("feedback ignored, nothing is playing")
		return false
	}
	station, ok := c.stations.Current()
	if !ok || c.current == nil {
		return false
	}
	if !c.current.AllowFeedback {
		c.dialogs.OK("Feedback is not allowed for this track.", nil)
		return false
	}
	if c.current.Rating == rating {
		log.Printf("track already rated %d", rating)
		return false
	}

	track := c.current
	c.svc.Feedback(track.TrackToken, rating > 0, func(err error) {
		if err != nil {
			log.Printf("ERROR %d, %s", ports.ErrorCode(err), err)
			c.dialogs.OK("Unable to submit feedback. Please try again later.", nil)
			return
		}
		track.Rating = rating
		c.history.SetRating(station.Token, *track, rating)
		c.ui.History(c.history.Played(station.Token))
		if c.current == track {
			c.ui.NowPlaying(c.current, station.Name)
		}
		if rating < 0 {
			c.queue.Clear()
			c.dontAddNextTrack = true
			c.SkipSong()
		}
	})
	return true
}

// Bookmark bookmarks the current track's artist ("artist") or song.
func (c *Controller) Bookmark(kind string, done func(err error)) {
	if done == nil {
		done = func(error) {}
	}
	if c.current == nil || c.current.IsAd {
		done(errors.New("session: nothing to bookmark"))
		return
	}
	c.svc.Bookmark(kind, c.current.TrackToken, done)
}

// --- search and explanations ---

// Search runs a music search. A later CancelSearch suppresses the result.
func (c *Controller) Search(query string, done func(results []ports.SearchResult, err error)) {
	if done == nil {
		done = func([]ports.SearchResult, error) {}
	}
	c.searchCanceled = false
	c.svc.Search(query, func(results []ports.SearchResult, err error) {
		if c.searchCanceled {
			return
		}
		done(results, err)
	})
}

// CancelSearch discards the outcome of any in-flight search.
func (c *Controller) CancelSearch() {
	c.searchCanceled = true
}

// ExplainTrack fetches why the current track was chosen. A later
// CancelExplain suppresses the result.
func (c *Controller) ExplainTrack(done func(traits []string, err error)) {
	if done == nil {
		done = func([]string, error) {}
	}
	if c.current == nil || c.current.IsAd {
		done(nil, errors.New("session: nothing to explain"))
		return
	}
	c.explainCanceled = false
	c.svc.ExplainTrack(c.current.TrackToken, func(traits []string, err error) {
		if c.explainCanceled {
			return
		}
		done(traits, err)
	})
}

// CancelExplain discards the outcome of any in-flight explanation.
func (c *Controller) CancelExplain() {
	c.explainCanceled = true
}

// --- player events ---

func (c *Controller) onOpenChanged(open bool) {
	if !open {
		if c.session.Status == domain.StatusPlaying {
			c.session.Status = domain.StatusLoggedIn
		}
		return
	}

	if c.current != nil {
		if c.history.RecordPlayed(c.current.StationToken, *c.current) {
			c.ui.History(c.history.Played(c.stations.CurrentToken()))
		}
	}
	c.session.FailedTrackCount = 0
	c.lastTrackFailed = false
	c.session.Status = domain.StatusPlaying
	station, _ := c.stations.Current()
	c.ui.NowPlaying(c.current, station.Name)
}

func (c *Controller) onPauseChanged(playing bool) {
	if playing {
		log.Printf("resumed")
	} else {
		log.Printf("paused")
	}
}

func (c *Controller) onPlayerError() {
	c.trackFailed()
}

// onEndOfMedia advances to the next track, unless the listener has been
// inactive past the timeout; then playback waits for them to confirm they
// are still listening.
func (c *Controller) onEndOfMedia() {
	if c.activityAllowed() {
		if !c.player.IsOpen() || !c.player.IsPlaying() {
			c.PlayNextTrack()
		}
		return
	}
	c.dialogs.OK("Are you still there?", func() {
		c.RecordActivity()
		c.PlayNextTrack()
	})
}
