package tui

// Stream identifies which child output pipe a line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

// LineMsg carries one line of child output.
type LineMsg struct {
	Stream Stream
	Text   string
}

// DoneMsg signals that the child exited. Err is set when it could not be
// waited on at all.
type DoneMsg struct {
	ExitCode int
	Err      error
}
