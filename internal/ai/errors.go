package ai

import "errors"

var (
	ErrNoContent       = errors.New("no content generated")
	ErrNoImage         = errors.New("no image generated")
	ErrNoAudio         = errors.New("no audio generated")
	ErrInvalidQuestion = errors.New("invalid question payload")
)

// ProviderError reports a failed or unusable content generation. Callers
// surface it as a retry prompt.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// SpeechError reports a failed speech synthesis. It is logged, never shown.
type SpeechError struct {
	Err error
}

func (e *SpeechError) Error() string {
	return "speech: " + e.Err.Error()
}

func (e *SpeechError) Unwrap() error {
	return e.Err
}
