package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrMissingAPIKey = fmt.Errorf("missing API key")

	// Catalog errors
	ErrSongNotFound     = fmt.Errorf("song not found")
	ErrImportNotFound   = fmt.Errorf("import not found")
	ErrSequenceConflict = fmt.Errorf("sequence already in use")

	// Pipeline errors
	ErrEmptyInput        = fmt.Errorf("empty input")
	ErrResequenceAborted = fmt.Errorf("resequence aborted")

	// Feed errors
	ErrFeedRequest     = fmt.Errorf("feed request failed")
	ErrFeedRateLimited = fmt.Errorf("feed rate limited")
	ErrFeedExhausted   = fmt.Errorf("feed retries exhausted")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
