package registry

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"sync"
)

var ErrIteratorDone = errors.New("iterator done")

// Iterator is a lazy, single-pass sequence.
type Iterator[T any] interface {
	// Next returns the next item, or ErrIteratorDone once the sequence is exhausted or stopped.
	Next(ctx context.Context) (T, error)
	// Stop releases the underlying document. Next returns ErrIteratorDone afterwards.
	Stop()
}

// TupleIterator yields the consent tuples of one registry document. Reading it again
// requires a fresh fetch.
type TupleIterator = Iterator[ConsentTuple]

// sampleNode is the typed view of a <Sample> element.
type sampleNode struct {
	SubmittedSampleID string `xml:"submitted_sample_id,attr"`
	ConsentCode       string `xml:"consent_code,attr"`
	ConsentShortName  string `xml:"consent_short_name,attr"`
}

type sampleIterator struct {
	mu      sync.Mutex
	decoder *xml.Decoder
	closer  io.Closer
	done    bool
}

var _ TupleIterator = (*sampleIterator)(nil)

func newSampleIterator(decoder *xml.Decoder, closer io.Closer) *sampleIterator {
	return &sampleIterator{decoder: decoder, closer: closer}
}

func (s *sampleIterator) Next(ctx context.Context) (ConsentTuple, error) {
	if ctx.Err() != nil {
		return ConsentTuple{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return ConsentTuple{}, ErrIteratorDone
	}

	for {
		token, err := s.decoder.Token()
		if errors.Is(err, io.EOF) {
			s.stop()
			return ConsentTuple{}, ErrIteratorDone
		}
		if err != nil {
			s.stop()
			return ConsentTuple{}, fmt.Errorf("read registry document: %w", err)
		}

		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "Sample" {
			continue
		}

		var node sampleNode
		if err := s.decoder.DecodeElement(&node, &start); err != nil {
			s.stop()
			return ConsentTuple{}, fmt.Errorf("decode registry sample: %w", err)
		}

		return ConsentTuple{
			ConsentCode:      node.ConsentCode,
			SampleID:         node.SubmittedSampleID,
			ConsentShortName: node.ConsentShortName,
		}, nil
	}
}

func (s *sampleIterator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
}

func (s *sampleIterator) stop() {
	if s.done {
		return
	}
	s.done = true
	if s.closer != nil {
		_ = s.closer.Close()
	}
}

type staticIterator struct {
	mu     sync.Mutex
	tuples []ConsentTuple
}

// NewStaticIterator returns a TupleIterator over tuples. It is used to feed tuples that
// did not come from a registry document, e.g. in tests.
func NewStaticIterator(tuples ...ConsentTuple) TupleIterator {
	return &staticIterator{tuples: tuples}
}

func (s *staticIterator) Next(ctx context.Context) (ConsentTuple, error) {
	if ctx.Err() != nil {
		return ConsentTuple{}, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tuples) == 0 {
		return ConsentTuple{}, ErrIteratorDone
	}

	next := s.tuples[0]
	s.tuples = s.tuples[1:]
	return next, nil
}

func (s *staticIterator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tuples = nil
}

// Collect drains iter and stops it.
func Collect(ctx context.Context, iter TupleIterator) ([]ConsentTuple, error) {
	defer iter.Stop()

	var out []ConsentTuple
	for {
		t, err := iter.Next(ctx)
		if errors.Is(err, ErrIteratorDone) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
}
