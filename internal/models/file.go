package models

// FileContent is the result of reading a stored file.
type FileContent struct {
	Name string
	Data []byte
	Size int64
	// Digest is the hex blake3 hash of Data.
	Digest string
}

// Status is a point-in-time view of the store.
type Status struct {
	CapacityBytes  int64
	UsedBytes      int64
	AvailableBytes int64
	UserCount      int
	FileCount      int
}
