package radio

import (
	"encoding/json"

	"github.com/ewilliams-labs/tuner/internal/core/domain"
	"github.com/ewilliams-labs/tuner/internal/core/ports"
)

// wireResponse is the envelope every service response arrives in.
type wireResponse struct {
	Stat    string          `json:"stat"`
	Code    *int            `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// valid reports whether the envelope carries a recognized status field.
func (r wireResponse) valid() bool {
	return r.Stat != ""
}

// ok treats any recognized status other than "fail" as success.
func (r wireResponse) ok() bool {
	return r.valid() && r.Stat != "fail"
}

func (r wireResponse) failCode() int {
	if r.Code != nil {
		return *r.Code
	}
	return CodeProtocol
}

func (r wireResponse) failMessage() string {
	if r.Code != nil {
		return Describe(*r.Code)
	}
	if r.Message != "" {
		return r.Message
	}
	return genericErrorMessage
}

type wireStation struct {
	StationToken string `json:"stationToken"`
	StationName  string `json:"stationName"`
	IsShared     bool   `json:"isShared"`
	IsQuickMix   bool   `json:"isQuickMix"`
	ArtURL       string `json:"artUrl"`

	extra map[string]any
}

func (w *wireStation) UnmarshalJSON(data []byte) error {
	type plain wireStation
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*w = wireStation(p)
	// keep unrecognized attributes around untouched
	_ = json.Unmarshal(data, &w.extra)
	return nil
}

func mapStation(w wireStation) domain.Station {
	return domain.Station{
		Token:      w.StationToken,
		Name:       w.StationName,
		IsShared:   w.IsShared,
		IsQuickMix: w.IsQuickMix,
		ArtURL:     w.ArtURL,
		Attributes: w.extra,
	}
}

func mapStations(ws []wireStation) []domain.Station {
	out := make([]domain.Station, 0, len(ws))
	for _, w := range ws {
		out = append(out, mapStation(w))
	}
	return out
}

type wireLogin struct {
	Username         string        `json:"username"`
	UserAuthToken    string        `json:"userAuthToken"`
	StationSkipLimit int           `json:"stationSkipLimit"`
	StationSkipUnit  string        `json:"stationSkipUnit"`
	HasAudioAds      bool          `json:"hasAudioAds"`
	MaxStations      int           `json:"maxStationsAllowed"`
	CanListen        bool          `json:"canListen"`
	Stations         []wireStation `json:"stations"`
	URLs             struct {
		AutoComplete string `json:"autoComplete"`
	} `json:"urls"`
}

type wireStationList struct {
	Stations []wireStation `json:"stations"`
}

// wireItem is the raw playlist entry. The presence of trackToken or adToken
// discriminates the union; anything else is dropped at this boundary.
type wireItem struct {
	TrackToken    string `json:"trackToken"`
	AdToken       string `json:"adToken"`
	SongName      string `json:"songName"`
	ArtistName    string `json:"artistName"`
	AlbumName     string `json:"albumName"`
	AlbumArtURL   string `json:"albumArtUrl"`
	AudioURL      string `json:"audioUrl"`
	SongRating    int    `json:"songRating"`
	AllowFeedback bool   `json:"allowFeedback"`
}

type wirePlaylist struct {
	Items []wireItem `json:"items"`
}

func parsePlaylistItems(result json.RawMessage) ([]domain.QueueItem, error) {
	var pl wirePlaylist
	if err := json.Unmarshal(result, &pl); err != nil {
		return nil, err
	}
	items := make([]domain.QueueItem, 0, len(pl.Items))
	for _, it := range pl.Items {
		switch {
		case it.TrackToken != "":
			items = append(items, domain.QueueItem{
				Kind: domain.ItemTrack,
				Track: domain.PendingTrack{
					TrackToken:    it.TrackToken,
					Title:         it.SongName,
					Artist:        it.ArtistName,
					Album:         it.AlbumName,
					ArtURL:        it.AlbumArtURL,
					MediaURL:      it.AudioURL,
					Rating:        it.SongRating,
					AllowFeedback: it.AllowFeedback,
				},
			})
		case it.AdToken != "":
			items = append(items, domain.QueueItem{Kind: domain.ItemAd, AdToken: it.AdToken})
		}
		// unrecognized shapes are silently ignored
	}
	return items, nil
}

type wireAdMetadata struct {
	Title       string `json:"title"`
	CompanyName string `json:"companyName"`
	ImageURL    string `json:"imageUrl"`
	AudioURL    string `json:"audioUrl"`
}

func mapAd(w wireAdMetadata, adToken string) domain.NormalizedTrack {
	return domain.NormalizedTrack{
		IsAd:     true,
		Title:    w.Title,
		Company:  w.CompanyName,
		ArtURL:   w.ImageURL,
		MediaURL: w.AudioURL,
		AdToken:  adToken,
	}
}

type wireSearch struct {
	Artists []struct {
		ArtistName string `json:"artistName"`
		MusicToken string `json:"musicToken"`
	} `json:"artists"`
	Songs []struct {
		SongName   string `json:"songName"`
		ArtistName string `json:"artistName"`
		MusicToken string `json:"musicToken"`
	} `json:"songs"`
}

func mapSearch(w wireSearch) []ports.SearchResult {
	results := make([]ports.SearchResult, 0, len(w.Artists)+len(w.Songs))
	for _, a := range w.Artists {
		if a.ArtistName == "" {
			continue
		}
		results = append(results, ports.SearchResult{
			Token: a.MusicToken,
			Kind:  "Artists",
			Label: a.ArtistName,
		})
	}
	for _, s := range w.Songs {
		if s.SongName == "" || s.ArtistName == "" {
			continue
		}
		results = append(results, ports.SearchResult{
			Token: s.MusicToken,
			Kind:  "Tracks",
			Label: s.SongName + " by " + s.ArtistName,
		})
	}
	return results
}

type wireExplanations struct {
	Explanations []struct {
		FocusTraitName string `json:"focusTraitName"`
	} `json:"explanations"`
}

// mapExplanations drops the service's trailing filler entry and returns the
// focus trait names.
func mapExplanations(w wireExplanations) []string {
	ex := w.Explanations
	if len(ex) > 0 {
		ex = ex[:len(ex)-1]
	}
	traits := make([]string, 0, len(ex))
	for _, e := range ex {
		traits = append(traits, e.FocusTraitName)
	}
	return traits
}

type wireActivation struct {
	ActivationCode string `json:"activationCode"`
}
