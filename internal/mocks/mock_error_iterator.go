package mocks

import (
	"context"
	"fmt"

	"github.com/openfga/consentsync/pkg/registry"
)

// errorIterator is a mock iterator that returns error when calling next on the second Next call
type errorIterator[T any] struct {
	items          []T
	originalLength int
}

func (s *errorIterator[T]) Next(ctx context.Context) (T, error) {
	var val T

	if ctx.Err() != nil {
		return val, ctx.Err()
	}

	// we want to simulate returning error after the first read
	if len(s.items) != s.originalLength {
		return val, fmt.Errorf("simulated errors")
	}

	if len(s.items) == 0 {
		return val, registry.ErrIteratorDone
	}

	next, rest := s.items[0], s.items[1:]
	s.items = rest

	return next, nil
}

func (s *errorIterator[T]) Stop() {}

// NewErrorIterator mocks a registry document that breaks after the first sample.
func NewErrorIterator(tuples []registry.ConsentTuple) registry.TupleIterator {
	iter := &errorIterator[registry.ConsentTuple]{
		items:          tuples,
		originalLength: len(tuples),
	}

	return iter
}
