package domain

import "time"

// Status is the lifecycle state of the listening session.
type Status int

const (
	StatusUnknown Status = iota
	StatusOffline
	StatusLoggedIn
	StatusPlaying
	StatusLoggedOut
)

func (s Status) String() string {
	switch s {
	case StatusOffline:
		return "offline"
	case StatusLoggedIn:
		return "logged-in"
	case StatusPlaying:
		return "playing"
	case StatusLoggedOut:
		return "logged-out"
	default:
		return "unknown"
	}
}

// Service-imposed defaults. SkipLimit may be overridden per account by the
// login response.
const (
	DefaultRetryBudget      = 3
	DefaultSkipLimit        = 6
	DefaultFailedTrackLimit = 4
	DefaultSkipWindow       = time.Hour
	DefaultActivityTimeout  = 8 * time.Hour
)

// Session is the process-wide mutable session state. It is owned by the
// dispatch loop; nothing outside a loop-posted function may touch it.
type Session struct {
	DeviceID     string
	AuthToken    string
	Username     string
	IsAssociated bool
	Status       Status

	RetryBudget int
	// RetryBudgetMax is what RetryBudget resets to after a success or an
	// exhausted cycle; configuration may raise or lower it.
	RetryBudgetMax   int
	FailedTrackCount int
	LastActivity     time.Time

	SkipLimit        int
	FailedTrackLimit int
	SkipWindow       time.Duration
	ActivityTimeout  time.Duration

	MaxStations     int
	CanListen       bool
	AutoCompleteURL string
}

// NewSession returns a session in the Unknown state with service defaults.
func NewSession(deviceID string) *Session {
	return &Session{
		DeviceID:         deviceID,
		Status:           StatusUnknown,
		RetryBudget:      DefaultRetryBudget,
		RetryBudgetMax:   DefaultRetryBudget,
		SkipLimit:        DefaultSkipLimit,
		FailedTrackLimit: DefaultFailedTrackLimit,
		SkipWindow:       DefaultSkipWindow,
		ActivityTimeout:  DefaultActivityTimeout,
		LastActivity:     time.Now(),
	}
}

// Reset ends the user session but keeps the device identity and association.
func (s *Session) Reset() {
	s.RetryBudget = s.RetryBudgetMax
	s.FailedTrackCount = 0
	s.Status = StatusLoggedOut
}

// ResetDevice wipes the session back to a factory state, including the
// user/device association. The device id is kept; it identifies hardware,
// not an account.
func (s *Session) ResetDevice() {
	s.AuthToken = ""
	s.Username = ""
	s.IsAssociated = false
	s.RetryBudget = DefaultRetryBudget
	s.RetryBudgetMax = DefaultRetryBudget
	s.FailedTrackCount = 0
	s.SkipLimit = DefaultSkipLimit
	s.FailedTrackLimit = DefaultFailedTrackLimit
	s.SkipWindow = DefaultSkipWindow
	s.ActivityTimeout = DefaultActivityTimeout
	s.MaxStations = 0
	s.CanListen = false
	s.AutoCompleteURL = ""
	s.LastActivity = time.Now()
	s.Status = StatusOffline
}
