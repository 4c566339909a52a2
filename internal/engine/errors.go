package engine

import "fmt"

// IOError is a failure to read a release or write an output file.
// It is fatal for the release file it occurs in.
type IOError struct {
	Path string
	// Op is "read" or "write".
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
