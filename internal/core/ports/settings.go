package ports

// Settings is the persistent key-value settings store. Set stages a value;
// Save flushes staged values to storage. Values are opaque serialized blobs.
type Settings interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Save() error
	Reset() error
}

// ConnectivityProbe reports whether the host currently has network access.
type ConnectivityProbe interface {
	Online() bool
}
