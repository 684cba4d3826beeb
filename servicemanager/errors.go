package servicemanager

// SetupError is returned for problems found before the run loop starts: bad
// arguments, incomplete service information, unknown users or a service
// that is already running. The process exits with code 1 on a SetupError.
type SetupError struct {
	Msg string
	Err error
}

func (e *SetupError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *SetupError) Unwrap() error { return e.Err }
