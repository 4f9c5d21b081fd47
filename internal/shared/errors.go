package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Identity errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")

	// Remote collaborator errors
	ErrRemoteUnavailable = fmt.Errorf("remote unavailable")
	ErrRemoteRejected    = fmt.Errorf("remote rejected request")
	ErrTimeout           = fmt.Errorf("operation timed out")

	// Entity errors
	ErrEntityNotFound   = fmt.Errorf("entity not found")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrInvalidPatch     = fmt.Errorf("invalid patch")

	// External payload errors
	ErrMalformedResponse = fmt.Errorf("malformed response")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
