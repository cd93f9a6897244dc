package core

import (
	"errors"
	"fmt"
)

// Error classes. Every stage failure unwraps to exactly one of these.
var (
	ErrFetch       = errors.New("fetch failed")
	ErrExtraction  = errors.New("extraction failed")
	ErrDownload    = errors.New("download failed")
	ErrEnhancement = errors.New("enhancement failed")
	ErrTranslation = errors.New("translation failed")
	ErrGeneration  = errors.New("generation failed")
	ErrPersist     = errors.New("persist failed")

	ErrNoAdapter     = errors.New("no source adapter")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// StageError is returned by the pipeline when a critical stage fails.
type StageError struct {
	Stage    string
	Critical bool
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ErrorType names the class of err for logs and summaries.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFetch):
		return "FetchError"
	case errors.Is(err, ErrExtraction), errors.Is(err, ErrNoAdapter):
		return "ExtractionError"
	case errors.Is(err, ErrDownload):
		return "DownloadError"
	case errors.Is(err, ErrEnhancement):
		return "EnhancementError"
	case errors.Is(err, ErrTranslation):
		return "TranslationError"
	case errors.Is(err, ErrGeneration):
		return "GenerationError"
	case errors.Is(err, ErrPersist):
		return "PersistError"
	default:
		return fmt.Sprintf("%T", err)
	}
}
