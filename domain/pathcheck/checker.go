package pathcheck

import "errors"

const (
	// MessageExists is reported through the error channel when the path is taken
	MessageExists = "the file already exists."

	// MessageAbsent is reported through the success channel when the path is free
	MessageAbsent = "the file does not exist."
)

// ErrFileExists is returned when an entry is already present at the checked path.
// Its text is shown to the user as-is.
var ErrFileExists = errors.New(MessageExists)

// State is the three-way result of probing a path
type State int

const (
	// Absent means no entry was found at the path
	Absent State = iota
	// Present means a file or directory exists at the path
	Present
	// Unknown means the filesystem query failed for a reason other than non-existence
	Unknown
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Present:
		return "present"
	default:
		return "unknown"
	}
}

// FileChecker defines the interface for path existence queries
type FileChecker interface {
	// Exists returns true if a file or directory exists at path
	Exists(path string) bool

	// Probe reports the path state, returning the underlying error when the state is Unknown
	Probe(path string) (State, error)
}
