package types

// Provenance tracks where an input item came from.
type Provenance interface {
	Kind() string
	// Path returns displayable path (if applicable)
	Path() string
}

// FileProvenance for items read from a file.
type FileProvenance struct {
	FilePath string
	// Index is the item's position within the file (0-based).
	Index int
}

// Kind returns "file".
func (f FileProvenance) Kind() string {
	return "file"
}

// Path returns the file path.
func (f FileProvenance) Path() string {
	return f.FilePath
}

// StdinProvenance for items read from standard input.
type StdinProvenance struct {
	Index int
}

// Kind returns "stdin".
func (s StdinProvenance) Kind() string {
	return "stdin"
}

// Path returns "-", the conventional name for standard input.
func (s StdinProvenance) Path() string {
	return "-"
}

// RequestProvenance for items submitted to the streaming server.
type RequestProvenance struct {
	Source string // caller-chosen label
	Index  int
}

// Kind returns "request".
func (r RequestProvenance) Kind() string {
	return "request"
}

// Path returns the caller-chosen source label.
func (r RequestProvenance) Path() string {
	return r.Source
}
