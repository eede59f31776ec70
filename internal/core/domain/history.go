package domain

// HistoryEntry is a trimmed record of a played item, kept per station.
// ID is an identity hash over the normalized title, artist (or sponsor for
// ads) and artwork reference, used for dedup.
type HistoryEntry struct {
	ID        uint64 `json:"id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	ArtURL    string `json:"artUrl"`
	Rating    int    `json:"rating"`
	IsAd      bool   `json:"isAd"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// SkipEntry records one user skip on a station. Entries expire once older
// than the skip window and are pruned lazily.
type SkipEntry struct {
	Token     string `json:"token"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}
