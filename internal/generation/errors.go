package generation

import (
	"errors"
	"fmt"

	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/platform/openai"
)

type ErrorKind string

const (
	KindQuotaExceeded ErrorKind = "quota_exceeded"
	KindUpstream      ErrorKind = "upstream_error"
	KindInvalidTopic  ErrorKind = "invalid_topic"
)

var ErrInvalidTopic = errors.New("generation: topic is empty")

// GenerationError is the typed failure every generator reports.
type GenerationError struct {
	Kind ErrorKind
	Type feed.ContentType
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s generator: %s", e.Type, e.Kind)
	}
	return fmt.Sprintf("%s generator: %s: %v", e.Type, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func quotaExceeded(t feed.ContentType, err error) error {
	return &GenerationError{Kind: KindQuotaExceeded, Type: t, Err: err}
}

func upstream(t feed.ContentType, err error) error {
	return &GenerationError{Kind: KindUpstream, Type: t, Err: err}
}

func invalidTopic(t feed.ContentType) error {
	return &GenerationError{Kind: KindInvalidTopic, Type: t, Err: ErrInvalidTopic}
}

// KindOf classifies err. Untyped errors count as upstream failures.
func KindOf(err error) ErrorKind {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUpstream
}

// fromLLM maps an OpenAI client error onto the generation taxonomy. Requests the
// API rejected outright (4xx other than rate limiting) are not retried.
func fromLLM(t feed.ContentType, err error) error {
	switch {
	case openai.IsQuotaError(err):
		return quotaExceeded(t, err)
	case !openai.IsRetryable(err):
		return &GenerationError{Kind: KindInvalidTopic, Type: t, Err: err}
	default:
		return upstream(t, err)
	}
}
