package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type statusError struct {
	code int
}

var _ error = (*statusError)(nil)

func (s *statusError) Error() string {
	return fmt.Sprintf("status %d", s.code)
}

func TestWith(t *testing.T) {
	cause := &statusError{code: 503}
	require.NotErrorIs(t, cause, ErrUpstreamTimeout)

	classified := With(cause, ErrUpstreamTimeout)
	require.ErrorIs(t, classified, ErrUpstreamTimeout)

	var target *statusError
	require.ErrorAs(t, classified, &target)
	require.Equal(t, 503, target.code)

	wrapped := fmt.Errorf("get biospecimens: %w", classified)
	require.ErrorIs(t, wrapped, ErrUpstreamTimeout)
	require.ErrorAs(t, wrapped, &target)
}

func TestWithWrappedTop(t *testing.T) {
	cause := &statusError{code: 504}
	classified := With(cause, fmt.Errorf("list genomic files: %w", ErrUpstreamTimeout))
	require.ErrorIs(t, classified, ErrUpstreamTimeout)
	require.Equal(t, ClassTransient, Classify(classified))

	require.EqualError(t, classified, "status 504")

	var target *statusError
	require.ErrorAs(t, classified, &target)
	require.Equal(t, 504, target.code)
}

func TestWithNil(t *testing.T) {
	require.NoError(t, With(nil, nil))
	require.Equal(t, ErrNotFound, With(nil, ErrNotFound))

	cause := errors.New("boom")
	require.Equal(t, cause, With(cause, nil))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Class
	}{
		{name: "nil", err: nil, expected: ClassUnknown},
		{name: "not_found", err: NotFound("biospecimen", "A1"), expected: ClassSkip},
		{name: "ambiguous", err: Ambiguous("study", "phs001168", 2), expected: ClassSkip},
		{name: "timeout", err: With(&statusError{code: 500}, ErrUpstreamTimeout), expected: ClassTransient},
		{name: "registry", err: fmt.Errorf("fetch: %w", ErrRegistryUnavailable), expected: ClassFatal},
		{name: "not_released", err: NotReleased("phs001228.v1.p1", "completed_by_gpa"), expected: ClassFatal},
		{name: "unexpected_status", err: With(&statusError{code: 400}, ErrUnexpectedStatus), expected: ClassUnknown},
		{name: "other", err: errors.New("connection reset"), expected: ClassUnknown},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.expected, Classify(test.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	require.EqualError(t, NotFound("study", "NOTFOUND"), "no study found for NOTFOUND: not found")
	require.EqualError(t, Ambiguous("study", "phs001228", 3), "more than one study found for phs001228 (3 matches): ambiguous match")
	require.Contains(t, NotReleased("phs001228", "completed_by_gpa").Error(), "registration_status: completed_by_gpa")
}

func ExampleWith() {
	cause := &statusError{code: 502}
	if !errors.Is(cause, ErrUpstreamTimeout) {
		fmt.Println("1")
	}

	classified := With(cause, ErrUpstreamTimeout)
	if errors.Is(classified, ErrUpstreamTimeout) {
		fmt.Println("2")
	}

	// Output: 1
	// 2
}
