package radio

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/tuner/internal/core/domain"
	"github.com/ewilliams-labs/tuner/internal/core/ports"
)

type stubProbe struct{ online bool }

func (s stubProbe) Online() bool { return s.online }

type stubUI struct {
	loadingOn  int
	loadingOff int
}

func (u *stubUI) PopulateStations([]domain.Station, string)  {}
func (u *stubUI) NowPlaying(*domain.NormalizedTrack, string) {}
func (u *stubUI) History([]domain.HistoryEntry)              {}

func (u *stubUI) Loading(visible bool) {
	if visible {
		u.loadingOn++
	} else {
		u.loadingOff++
	}
}

type stubDialogs struct{ messages []string }

func (d *stubDialogs) OK(message string, done func()) {
	d.messages = append(d.messages, message)
	if done != nil {
		done()
	}
}
func (d *stubDialogs) Confirm(title, message string, yes, no func()) {}
func (d *stubDialogs) Keyboard(message, initial string, submit func(string), cancel func()) {
}

func newTestClient(serverURL string, session *domain.Session, online bool) (*Client, *stubUI, *stubDialogs) {
	ui := &stubUI{}
	dialogs := &stubDialogs{}
	c := NewClient(&http.Client{Timeout: 5 * time.Second}, serverURL, "/svc/", session, stubProbe{online: online}, ui, dialogs, func(fn func()) { fn() })
	return c, ui, dialogs
}

type listResult struct {
	stations []domain.Station
	err      error
}

func waitList(t *testing.T, ch chan listResult) listResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion")
		return listResult{}
	}
}

// TestClient_SilentReloginOnExpiredToken verifies that an expired-token
// failure triggers exactly one re-login and then re-issues the original call
// with the fresh token, all without surfacing anything to the caller.
func TestClient_SilentReloginOnExpiredToken(t *testing.T) {
	var listCalls, loginCalls int32
	var retriedToken atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("method") {
		case "user.getStationList":
			if atomic.AddInt32(&listCalls, 1) == 1 {
				fmt.Fprint(w, `{"stat":"fail","code":1001,"message":"Invalid auth token"}`)
				return
			}
			retriedToken.Store(r.URL.Query().Get("auth_token"))
			fmt.Fprint(w, `{"stat":"ok","result":{"stations":[{"stationToken":"st1","stationName":"One"}]}}`)
		case "auth.userLogin":
			atomic.AddInt32(&loginCalls, 1)
			fmt.Fprint(w, `{"stat":"ok","result":{"username":"u","userAuthToken":"tok-2","stations":[]}}`)
		default:
			t.Errorf("unexpected method %s", r.URL.Query().Get("method"))
		}
	}))
	defer server.Close()

	session := domain.NewSession("dev-1")
	session.AuthToken = "tok-1"
	client, _, dialogs := newTestClient(server.URL, session, true)

	ch := make(chan listResult, 1)
	client.StationList(func(stations []domain.Station, err error) {
		ch <- listResult{stations: stations, err: err}
	})

	res := waitList(t, ch)
	require.NoError(t, res.err)
	require.Len(t, res.stations, 1)
	require.Equal(t, "st1", res.stations[0].Token)

	require.EqualValues(t, 1, atomic.LoadInt32(&loginCalls), "exactly one silent re-login")
	require.EqualValues(t, 2, atomic.LoadInt32(&listCalls), "original call re-issued once")
	require.Equal(t, "tok-2", session.AuthToken)
	require.Equal(t, "tok-2", retriedToken.Load(), "retry carried the fresh token")
	require.Empty(t, dialogs.messages, "recovery must be silent")
	require.Equal(t, domain.DefaultRetryBudget, session.RetryBudget)
}

// TestClient_OfflineSynthesizesNetworkDown verifies that with no
// connectivity the gateway fails locally without touching the network.
func TestClient_OfflineSynthesizesNetworkDown(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	session := domain.NewSession("dev-1")
	client, _, dialogs := newTestClient(server.URL, session, false)

	fatal := 0
	client.SetFatalHandler(func() { fatal++ })

	ch := make(chan listResult, 1)
	client.StationList(func(stations []domain.Station, err error) {
		ch <- listResult{stations: stations, err: err}
	})

	res := waitList(t, ch)
	require.Error(t, res.err)
	require.Equal(t, CodeNetworkDown, ports.ErrorCode(res.err))
	require.EqualValues(t, 0, atomic.LoadInt32(&hits), "offline calls must not hit the network")
	require.Len(t, dialogs.messages, 1)
	require.Equal(t, 1, fatal)
	require.Equal(t, domain.DefaultRetryBudget, session.RetryBudget, "budget resets after exhaustion")
}

// TestClient_TransientRetriesWithinBudget verifies a flaky call is retried
// and a success restores the full budget.
func TestClient_TransientRetriesWithinBudget(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			fmt.Fprint(w, `{"stat":"fail","code":0,"message":"Internal error"}`)
			return
		}
		fmt.Fprint(w, `{"stat":"ok","result":{"stations":[]}}`)
	}))
	defer server.Close()

	session := domain.NewSession("dev-1")
	client, _, dialogs := newTestClient(server.URL, session, true)

	ch := make(chan listResult, 1)
	client.StationList(func(stations []domain.Station, err error) {
		ch <- listResult{stations: stations, err: err}
	})

	res := waitList(t, ch)
	require.NoError(t, res.err)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
	require.Empty(t, dialogs.messages)
	require.Equal(t, domain.DefaultRetryBudget, session.RetryBudget)
}

// TestClient_BudgetExhaustionSurfacesFailure verifies a persistently failing
// call gives up after the budget, tells the user once and resets the budget.
func TestClient_BudgetExhaustionSurfacesFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"stat":"fail","code":0,"message":"Internal error"}`)
	}))
	defer server.Close()

	session := domain.NewSession("dev-1")
	client, _, dialogs := newTestClient(server.URL, session, true)

	fatal := 0
	client.SetFatalHandler(func() { fatal++ })

	ch := make(chan listResult, 1)
	client.StationList(func(stations []domain.Station, err error) {
		ch <- listResult{stations: stations, err: err}
	})

	res := waitList(t, ch)
	require.Error(t, res.err)
	require.Equal(t, CodeServerError, ports.ErrorCode(res.err))
	require.EqualValues(t, domain.DefaultRetryBudget, atomic.LoadInt32(&calls))
	require.Len(t, dialogs.messages, 1)
	require.Equal(t, 1, fatal)
	require.Equal(t, domain.DefaultRetryBudget, session.RetryBudget)
}

// TestClient_ConfiguredBudgetSurvivesResets verifies a budget raised or
// lowered in configuration governs the retry cycle and is what the budget
// resets to afterwards, not the built-in default.
func TestClient_ConfiguredBudgetSurvivesResets(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `{"stat":"fail","code":0,"message":"Internal error"}`)
	}))
	defer server.Close()

	session := domain.NewSession("dev-1")
	session.RetryBudget = 2
	session.RetryBudgetMax = 2
	client, _, _ := newTestClient(server.URL, session, true)

	ch := make(chan listResult, 1)
	client.StationList(func(stations []domain.Station, err error) {
		ch <- listResult{stations: stations, err: err}
	})

	res := waitList(t, ch)
	require.Error(t, res.err)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls), "configured budget bounds the retries")
	require.Equal(t, 2, session.RetryBudget, "reset restores the configured budget")
}

// TestClient_MalformedResponseIsTerminal verifies an undecodable body fails
// immediately, with no retry cycle.
func TestClient_MalformedResponseIsTerminal(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `<html>definitely not the service</html>`)
	}))
	defer server.Close()

	session := domain.NewSession("dev-1")
	client, _, dialogs := newTestClient(server.URL, session, true)

	ch := make(chan listResult, 1)
	client.StationList(func(stations []domain.Station, err error) {
		ch <- listResult{stations: stations, err: err}
	})

	res := waitList(t, ch)
	require.Error(t, res.err)
	require.Equal(t, CodeProtocol, ports.ErrorCode(res.err))
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
	require.Empty(t, dialogs.messages)
}

// TestClient_BlockerCallsAreNeverRetried verifies recovery-cycle calls fail
// straight through even on retryable codes.
func TestClient_BlockerCallsAreNeverRetried(t *testing.T) {
	var associateCalls, loginCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("method") {
		case "user.associateDevice":
			atomic.AddInt32(&associateCalls, 1)
			fmt.Fprint(w, `{"stat":"fail","code":1001,"message":"Invalid auth token"}`)
		case "auth.userLogin":
			atomic.AddInt32(&loginCalls, 1)
			fmt.Fprint(w, `{"stat":"ok","result":{}}`)
		}
	}))
	defer server.Close()

	session := domain.NewSession("dev-1")
	session.AuthToken = "tok-1"
	client, _, _ := newTestClient(server.URL, session, true)

	ch := make(chan error, 1)
	client.Associate(func(err error) { ch <- err })

	select {
	case err := <-ch:
		require.Error(t, err)
		require.Equal(t, CodeInvalidAuthToken, ports.ErrorCode(err))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion")
	}

	require.EqualValues(t, 1, atomic.LoadInt32(&associateCalls))
	require.EqualValues(t, 0, atomic.LoadInt32(&loginCalls), "blocker calls must not trigger recovery")
}

// TestClient_LoadingIndicator verifies the indicator wraps ordinary calls
// but stays hidden for the chatty lookup methods.
func TestClient_LoadingIndicator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"stat":"ok","result":{"stations":[],"artists":[],"songs":[]}}`)
	}))
	defer server.Close()

	session := domain.NewSession("dev-1")
	client, ui, _ := newTestClient(server.URL, session, true)

	ch := make(chan listResult, 1)
	client.StationList(func(stations []domain.Station, err error) {
		ch <- listResult{stations: stations, err: err}
	})
	waitList(t, ch)
	require.Equal(t, 1, ui.loadingOn)
	require.Equal(t, 1, ui.loadingOff)

	done := make(chan struct{})
	client.Search("test", func(results []ports.SearchResult, err error) { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for search")
	}
	require.Equal(t, 1, ui.loadingOn, "quiet methods must not toggle the indicator")
}

// TestClient_LoginAppliesAccountLimits verifies the session absorbs the
// account's limits, keeping the default skip limit when the service omits it.
func TestClient_LoginAppliesAccountLimits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"stat":"ok","result":{
			"username":"listener",
			"userAuthToken":"tok-9",
			"stationSkipLimit":12,
			"maxStationsAllowed":250,
			"canListen":true,
			"stations":[{"stationToken":"st1","stationName":"One"}],
			"urls":{"autoComplete":"http://ac.example.com/lookup"}
		}}`)
	}))
	defer server.Close()

	session := domain.NewSession("dev-1")
	client, _, _ := newTestClient(server.URL, session, true)

	type loginRes struct {
		res *ports.LoginResult
		err error
	}
	ch := make(chan loginRes, 1)
	client.Login(false, func(res *ports.LoginResult, err error) {
		ch <- loginRes{res: res, err: err}
	})

	select {
	case got := <-ch:
		require.NoError(t, got.err)
		require.Equal(t, "listener", got.res.Username)
		require.True(t, got.res.HasStations)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for login")
	}

	require.Equal(t, "tok-9", session.AuthToken)
	require.Equal(t, 12, session.SkipLimit)
	require.Equal(t, 250, session.MaxStations)
	require.True(t, session.CanListen)
	require.Equal(t, "http://ac.example.com/lookup", session.AutoCompleteURL)
	require.Equal(t, domain.StatusLoggedIn, session.Status)
}
