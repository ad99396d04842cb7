package pipeline

import (
	"errors"
	"fmt"

	"github.com/emandor/bookcover_service/internal/img"
	"github.com/emandor/bookcover_service/internal/rectify"
)

// Kind classifies a pipeline failure. A detection miss is not a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindInput
	KindGeometry
	KindEncoding
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindGeometry:
		return "geometry"
	case KindEncoding:
		return "encoding"
	}
	return "internal"
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf reports the Kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// classify maps stage errors onto the taxonomy.
func classify(op string, err error) *Error {
	k := KindInternal
	switch {
	case errors.Is(err, img.ErrDecode), errors.Is(err, img.ErrEmptyImage), errors.Is(err, rectify.ErrEmptySource):
		k = KindInput
	case errors.Is(err, rectify.ErrDegenerateGeometry), errors.Is(err, rectify.ErrSingularTransform):
		k = KindGeometry
	case errors.Is(err, img.ErrEncode):
		k = KindEncoding
	}
	return &Error{Kind: k, Op: op, Err: err}
}
