package handlers

// ValidationError reports an unusable flag combination before any cluster
// call is made.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}
