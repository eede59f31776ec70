// Package radio is the HTTP adapter for the remote streaming service. It
// implements the request gateway (retry budget, silent re-login, transient
// retries) and the typed service surface consumed by the core services.
package radio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ewilliams-labs/tuner/internal/core/domain"
	"github.com/ewilliams-labs/tuner/internal/core/ports"
)

const defaultAppPath = "/apps/radio2/"

// quietMethods skip the loading indicator; they fire too often for a dialog
// to do anything but flicker.
var quietMethods = map[string]struct{}{
	"track.explainTrack": {},
	"music.search":       {},
}

// Client issues authenticated calls against the service and classifies
// responses. Completion callbacks are delivered through exec, which must
// serialize them onto the dispatch loop.
type Client struct {
	httpClient *http.Client
	baseURL    string
	appPath    string

	session *domain.Session
	probe   ports.ConnectivityProbe
	ui      ports.UI
	dialogs ports.Dialogs
	exec    func(func())

	// onFatal runs after the "can no longer communicate" dialog when the
	// retry budget is exhausted; the controller points it at its
	// failed-playback handler.
	onFatal func()
}

// compile-time interface assertions
var (
	_ ports.Gateway      = (*Client)(nil)
	_ ports.RadioService = (*Client)(nil)
)

// NewClient constructs the service client.
func NewClient(httpClient *http.Client, baseURL, appPath string, session *domain.Session, probe ports.ConnectivityProbe, ui ports.UI, dialogs ports.Dialogs, exec func(func())) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if appPath == "" {
		appPath = defaultAppPath
	}
	if exec == nil {
		exec = func(fn func()) { fn() }
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		appPath:    appPath,
		session:    session,
		probe:      probe,
		ui:         ui,
		dialogs:    dialogs,
		exec:       exec,
		onFatal:    func() {},
	}
}

// SetFatalHandler registers the callback invoked when retries are exhausted
// and playback has to stop.
func (c *Client) SetFatalHandler(fn func()) {
	if fn != nil {
		c.onFatal = fn
	}
}

// Do issues the call without blocking. The response is classified on the
// dispatch loop; retry-eligible failures re-issue the original descriptor.
func (c *Client) Do(call ports.Call) {
	if c.probe != nil && !c.probe.Online() {
		code := CodeNetworkDown
		c.exec(func() {
			c.handle(call, wireResponse{Stat: "fail", Code: &code, Message: "Network is down"})
		})
		return
	}

	_, quiet := quietMethods[call.Method]
	if !quiet && c.ui != nil {
		c.ui.Loading(true)
	}

	go func() {
		resp := c.post(call.Method, call.Payload)
		c.exec(func() {
			if !quiet && c.ui != nil {
				c.ui.Loading(false)
			}
			c.handle(call, resp)
		})
	}()
}

func (c *Client) post(method string, payload map[string]any) wireResponse {
	if payload == nil {
		payload = map[string]any{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error. could not encode request for %s: %v", method, err)
		return wireResponse{}
	}

	target := c.baseURL + c.appPath + "?method=" + url.QueryEscape(method)
	if c.session.AuthToken != "" {
		target += "&auth_token=" + url.QueryEscape(c.session.AuthToken)
	}

	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		log.Printf("Error. could not build request for %s: %v", method, err)
		return wireResponse{}
	}
	// the service expects a plain content type on its JSON bodies
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("WARN radio: request %s failed: %v", method, err)
		code := CodeNetworkDown
		return wireResponse{Stat: "fail", Code: &code, Message: "Network is down"}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("WARN radio: reading %s response failed: %v", method, err)
		return wireResponse{}
	}

	var decoded wireResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		log.Printf("Error. undecodable response for %s: %v", method, err)
		return wireResponse{}
	}
	return decoded
}

// handle classifies one response and runs the retry bookkeeping of the
// gateway contract. Runs on the dispatch loop.
func (c *Client) handle(call ports.Call, resp wireResponse) {
	if !resp.valid() {
		// protocol-level problem, not a service error: terminal, no retry
		log.Printf("Error. no status in response (%s)", call.Method)
		c.fail(call, CodeProtocol, genericErrorMessage)
		return
	}

	if resp.ok() {
		c.session.RetryBudget = c.session.RetryBudgetMax
		if call.OnSuccess != nil {
			call.OnSuccess(resp.Result)
		}
		return
	}

	code := resp.failCode()
	switch {
	case Classify(code) == ClassRetryAuth && !call.Blocker:
		c.retryAfterLogin(call)
	case Classify(code) == ClassRetryTransient && !call.Blocker:
		c.retryTransient(call, code)
	default:
		c.fail(call, code, resp.failMessage())
	}
}

func (c *Client) fail(call ports.Call, code int, message string) {
	if call.OnFailure != nil {
		call.OnFailure(code, message)
	}
}

func (c *Client) retryAfterLogin(call ports.Call) {
	c.session.RetryBudget--
	if c.session.RetryBudget > 0 {
		log.Printf("Error. invalid auth token, refreshing... (retries left: %d)", c.session.RetryBudget)
		// re-issue the original call once the silent re-login settles,
		// whatever its outcome; the budget bounds the cycle
		c.Login(true, func(*ports.LoginResult, error) {
			c.Do(call)
		})
		return
	}

	c.session.RetryBudget = c.session.RetryBudgetMax
	msg := "Too many attempts to refresh your account. Can no longer communicate with the service. Please log in again or contact support for additional help."
	c.dialogs.OK(msg, c.onFatal)
	c.fail(call, CodeInvalidAuthToken, msg)
}

func (c *Client) retryTransient(call ports.Call, code int) {
	c.session.RetryBudget--
	if c.session.RetryBudget > 0 {
		log.Printf("Error. %s, retrying... (retries left: %d)", Describe(code), c.session.RetryBudget)
		c.Do(call)
		return
	}

	c.session.RetryBudget = c.session.RetryBudgetMax
	if c.ui != nil {
		c.ui.Loading(false)
	}
	c.dialogs.OK(Describe(code), c.onFatal)
	c.fail(call, code, Describe(code))
}

// --- typed service surface ---

// ActivationCode requests a device activation code for account linking.
func (c *Client) ActivationCode(done func(code string, err error)) {
	if done == nil {
		done = func(string, error) {}
	}
	log.Printf("requesting device link token...")
	c.Do(ports.Call{
		Method:  "device.generateDeviceActivationCode",
		Payload: map[string]any{"deviceId": c.session.DeviceID},
		OnSuccess: func(result json.RawMessage) {
			var w wireActivation
			if err := json.Unmarshal(result, &w); err != nil {
				done("", fmt.Errorf("radio: decode activation code: %w", err))
				return
			}
			done(w.ActivationCode, nil)
		},
		OnFailure: func(code int, message string) {
			log.Printf("Error. was unable to get a valid device authorization token.")
			c.session.Status = domain.StatusOffline
			done("", &ports.ServiceError{Code: code, Message: message})
		},
	})
}

// Login authenticates by device id and absorbs account limits into the
// session. blocker marks the gateway's own silent re-login.
func (c *Client) Login(blocker bool, done func(res *ports.LoginResult, err error)) {
	if done == nil {
		done = func(*ports.LoginResult, error) {}
	}
	log.Printf("logging in via device id (%s)", c.session.DeviceID)
	c.Do(ports.Call{
		Method:  "auth.userLogin",
		Payload: map[string]any{"deviceId": c.session.DeviceID},
		Blocker: blocker,
		OnSuccess: func(result json.RawMessage) {
			var w wireLogin
			if err := json.Unmarshal(result, &w); err != nil {
				done(nil, fmt.Errorf("radio: decode login: %w", err))
				return
			}
			log.Printf("login was successful. this device is associated to your account.")
			done(c.applyLogin(w), nil)
		},
		OnFailure: func(code int, message string) {
			log.Printf("ERROR %d, %s", code, message)
			done(nil, &ports.ServiceError{Code: code, Message: message})
		},
	})
}

func (c *Client) applyLogin(w wireLogin) *ports.LoginResult {
	s := c.session
	s.Username = w.Username
	s.AuthToken = w.UserAuthToken
	if w.StationSkipLimit > 0 {
		s.SkipLimit = w.StationSkipLimit
	}
	s.MaxStations = w.MaxStations
	s.CanListen = w.CanListen
	s.AutoCompleteURL = w.URLs.AutoComplete
	if s.Status != domain.StatusPlaying {
		s.Status = domain.StatusLoggedIn
	}
	return &ports.LoginResult{
		Username:        w.Username,
		SkipLimit:       s.SkipLimit,
		MaxStations:     w.MaxStations,
		CanListen:       w.CanListen,
		AutoCompleteURL: w.URLs.AutoComplete,
		Stations:        mapStations(w.Stations),
		HasStations:     len(w.Stations) > 0,
	}
}

// Associate links the device to the account. It bypasses retry handling;
// association failures are resolved by the caller, not by refresh cycles.
func (c *Client) Associate(done func(err error)) {
	if done == nil {
		done = func(error) {}
	}
	if c.session.AuthToken == "" || c.session.DeviceID == "" {
		log.Printf("auth token/device id missing or invalid.")
		done(fmt.Errorf("radio: cannot associate without auth token and device id"))
		return
	}
	log.Printf("attempting to link device via device id (%s)", c.session.DeviceID)
	c.Do(ports.Call{
		Method: "user.associateDevice",
		Payload: map[string]any{
			"deviceId":      c.session.DeviceID,
			"userAuthToken": c.session.AuthToken,
		},
		Blocker: true,
		OnSuccess: func(json.RawMessage) {
			log.Printf("device link successful.")
			c.session.IsAssociated = true
			done(nil)
		},
		OnFailure: func(code int, message string) {
			log.Printf("Error. server returned error (%d)", code)
			c.session.IsAssociated = false
			c.session.Status = domain.StatusOffline
			done(&ports.ServiceError{Code: code, Message: message})
		},
	})
}

// Disassociate removes the device/account link.
func (c *Client) Disassociate(done func(err error)) {
	if done == nil {
		done = func(error) {}
	}
	log.Printf("disassociating device")
	c.Do(ports.Call{
		Method:  "device.disassociateDevice",
		Payload: map[string]any{"deviceId": c.session.DeviceID},
		OnSuccess: func(json.RawMessage) {
			done(nil)
		},
		OnFailure: func(code int, message string) {
			log.Printf("ERROR %d, %s", code, message)
			done(&ports.ServiceError{Code: code, Message: message})
		},
	})
}

// StationList fetches the authoritative station collection.
func (c *Client) StationList(done func(stations []domain.Station, err error)) {
	if done == nil {
		done = func([]domain.Station, error) {}
	}
	log.Printf("refreshing user station list")
	c.Do(ports.Call{
		Method:  "user.getStationList",
		Payload: map[string]any{"userAuthToken": c.session.AuthToken},
		OnSuccess: func(result json.RawMessage) {
			var w wireStationList
			if err := json.Unmarshal(result, &w); err != nil {
				done(nil, fmt.Errorf("radio: decode station list: %w", err))
				return
			}
			done(mapStations(w.Stations), nil)
		},
		OnFailure: func(code int, message string) {
			log.Printf("ERROR %d, %s", code, message)
			done(nil, &ports.ServiceError{Code: code, Message: message})
		},
	})
}

// Playlist fetches the next pending items for a station.
func (c *Client) Playlist(stationToken string, done func(items []domain.QueueItem, err error)) {
	if done == nil {
		done = func([]domain.QueueItem, error) {}
	}
	c.Do(ports.Call{
		Method: "station.getPlaylist",
		Payload: map[string]any{
			"stationToken":  stationToken,
			"userAuthToken": c.session.AuthToken,
		},
		OnSuccess: func(result json.RawMessage) {
			items, err := parsePlaylistItems(result)
			if err != nil {
				done(nil, fmt.Errorf("radio: decode playlist: %w", err))
				return
			}
			done(items, nil)
		},
		OnFailure: func(code int, message string) {
			done(nil, &ports.ServiceError{Code: code, Message: message})
		},
	})
}

// AdMetadata resolves an ad token into a playable item.
func (c *Client) AdMetadata(adToken string, done func(track domain.NormalizedTrack, err error)) {
	if done == nil {
		done = func(domain.NormalizedTrack, error) {}
	}
	c.Do(ports.Call{
		Method: "ad.getAdMetadata",
		Payload: map[string]any{
			"adToken":       adToken,
			"userAuthToken": c.session.AuthToken,
		},
		OnSuccess: func(result json.RawMessage) {
			var w wireAdMetadata
			if err := json.Unmarshal(result, &w); err != nil {
				done(domain.NormalizedTrack{}, fmt.Errorf("radio: decode ad metadata: %w", err))
				return
			}
			done(mapAd(w, adToken), nil)
		},
		OnFailure: func(code int, message string) {
			log.Printf("Error. server returned error (%d, %s)", code, message)
			done(domain.NormalizedTrack{}, &ports.ServiceError{Code: code, Message: message})
		},
	})
}

// Feedback submits a thumbs rating for a track.
func (c *Client) Feedback(trackToken string, positive bool, done func(err error)) {
	if done == nil {
		done = func(error) {}
	}
	c.Do(ports.Call{
		Method: "station.addFeedback",
		Payload: map[string]any{
			"isPositive":    positive,
			"trackToken":    trackToken,
			"userAuthToken": c.session.AuthToken,
		},
		OnSuccess: func(json.RawMessage) { done(nil) },
		OnFailure: func(code int, message string) {
			done(&ports.ServiceError{Code: code, Message: message})
		},
	})
}

func (c *Client) createStation(payload map[string]any, done func(st domain.Station, err error)) {
	if done == nil {
		done = func(domain.Station, error) {}
	}
	c.Do(ports.Call{
		Method:  "station.createStation",
		Payload: payload,
		OnSuccess: func(result json.RawMessage) {
			var w wireStation
			if err := json.Unmarshal(result, &w); err != nil {
				done(domain.Station{}, fmt.Errorf("radio: decode station: %w", err))
				return
			}
			done(mapStation(w), nil)
		},
		OnFailure: func(code int, message string) {
			done(domain.Station{}, &ports.ServiceError{Code: code, Message: message})
		},
	})
}

// CreateStationFromTrack creates a station seeded by a track's artist or
// song.
func (c *Client) CreateStationFromTrack(trackToken, musicType string, done func(st domain.Station, err error)) {
	c.createStation(map[string]any{
		"trackToken": trackToken,
		"musicType":  musicType,
	}, done)
}

// CreateStationFromMusic creates a station from a search result token.
func (c *Client) CreateStationFromMusic(musicToken string, done func(st domain.Station, err error)) {
	c.createStation(map[string]any{"musicToken": musicToken}, done)
}

// RenameStation changes a station's display name.
func (c *Client) RenameStation(token, name string, done func(st domain.Station, err error)) {
	if done == nil {
		done = func(domain.Station, error) {}
	}
	c.Do(ports.Call{
		Method: "station.renameStation",
		Payload: map[string]any{
			"stationToken":  token,
			"stationName":   name,
			"userAuthToken": c.session.AuthToken,
		},
		OnSuccess: func(result json.RawMessage) {
			var w wireStation
			if err := json.Unmarshal(result, &w); err != nil {
				done(domain.Station{}, fmt.Errorf("radio: decode station: %w", err))
				return
			}
			done(mapStation(w), nil)
		},
		OnFailure: func(code int, message string) {
			done(domain.Station{}, &ports.ServiceError{Code: code, Message: message})
		},
	})
}

// DeleteStation removes a station server-side.
func (c *Client) DeleteStation(token string, done func(err error)) {
	if done == nil {
		done = func(error) {}
	}
	c.Do(ports.Call{
		Method: "station.deleteStation",
		Payload: map[string]any{
			"stationToken":  token,
			"userAuthToken": c.session.AuthToken,
		},
		OnSuccess: func(json.RawMessage) { done(nil) },
		OnFailure: func(code int, message string) {
			done(&ports.ServiceError{Code: code, Message: message})
		},
	})
}

// Bookmark records an artist or song bookmark for a track.
func (c *Client) Bookmark(kind, trackToken string, done func(err error)) {
	if done == nil {
		done = func(error) {}
	}
	api := "bookmark.addSongBookmark"
	if kind == "artist" {
		api = "bookmark.addArtistBookmark"
	}
	c.Do(ports.Call{
		Method: api,
		Payload: map[string]any{
			"trackToken":    trackToken,
			"userAuthToken": c.session.AuthToken,
		},
		OnSuccess: func(json.RawMessage) { done(nil) },
		OnFailure: func(code int, message string) {
			done(&ports.ServiceError{Code: code, Message: message})
		},
	})
}

// ExplainTrack fetches the focus traits behind the current track choice.
func (c *Client) ExplainTrack(trackToken string, done func(traits []string, err error)) {
	if done == nil {
		done = func([]string, error) {}
	}
	c.Do(ports.Call{
		Method:  "track.explainTrack",
		Payload: map[string]any{"trackToken": trackToken},
		OnSuccess: func(result json.RawMessage) {
			var w wireExplanations
			if err := json.Unmarshal(result, &w); err != nil {
				done(nil, fmt.Errorf("radio: decode explanations: %w", err))
				return
			}
			done(mapExplanations(w), nil)
		},
		OnFailure: func(code int, message string) {
			done(nil, &ports.ServiceError{Code: code, Message: message})
		},
	})
}

// Search runs a music search, merging artist and song matches.
func (c *Client) Search(query string, done func(results []ports.SearchResult, err error)) {
	if done == nil {
		done = func([]ports.SearchResult, error) {}
	}
	if strings.TrimSpace(query) == "" {
		done(nil, nil)
		return
	}
	c.Do(ports.Call{
		Method: "music.search",
		Payload: map[string]any{
			"userAuthToken":      c.session.AuthToken,
			"includeNearMatches": true,
			"searchText":         query,
		},
		OnSuccess: func(result json.RawMessage) {
			var w wireSearch
			if err := json.Unmarshal(result, &w); err != nil {
				done(nil, fmt.Errorf("radio: decode search: %w", err))
				return
			}
			done(mapSearch(w), nil)
		},
		OnFailure: func(code int, message string) {
			done(nil, &ports.ServiceError{Code: code, Message: message})
		},
	})
}
