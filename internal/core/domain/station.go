package domain

// Station is a named recommendation channel in the user's collection.
// The collection keeps insertion order for display; order carries no other
// meaning.
type Station struct {
	Token      string
	Name       string
	IsShared   bool
	IsQuickMix bool
	ArtURL     string

	// Attributes carries any further service-provided fields untouched.
	Attributes map[string]any
}
