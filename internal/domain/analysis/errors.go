package analysis

import "errors"

var (
	// ErrUnauthorized the caller has no verified identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBadRequest the upload carried no usable file.
	ErrBadRequest = errors.New("bad request")
	// ErrCSVParse the file is not well-formed CSV.
	ErrCSVParse = errors.New("csv parse error")
	// ErrEnrichment the text-completion collaborator failed.
	ErrEnrichment = errors.New("enrichment error")
	// ErrStorage persistence or query failed.
	ErrStorage = errors.New("storage error")
)

// Stage names used in StageError.
const (
	StageAuth     = "auth"
	StageValidate = "validate"
	StageParse    = "parse"
	StageEnrich   = "enrich"
	StagePersist  = "persist"
	StageHistory  = "history"
)

// StageError ties a pipeline failure to the stage it happened in.
// Error() is safe to show to clients; the wrapped cause is for logs only.
type StageError struct {
	Stage   string
	Kind    error
	Message string
	Err     error
}

func (e *StageError) Error() string { return e.Message }

func (e *StageError) Unwrap() []error { return []error{e.Kind, e.Err} }

// Cause returns the underlying error, for logging.
func (e *StageError) Cause() error { return e.Err }

// NewStageError builds a StageError.
func NewStageError(stage string, kind error, msg string, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Message: msg, Err: err}
}
