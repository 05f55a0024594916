// Package id mints the sortable identifiers given to sync runs and checkpoints.
package id

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mutex   sync.Mutex
	entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// ID is a ULID. Identifiers minted later sort after earlier ones, including within the
// same millisecond.
type ID struct {
	value ulid.ULID
}

func NewFromTime(t time.Time) (*ID, error) {
	mutex.Lock()
	defer mutex.Unlock()

	v, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return nil, err
	}

	return &ID{v}, nil
}

func NewStringFromTime(t time.Time) (string, error) {
	v, err := NewFromTime(t)
	if err != nil {
		return "", err
	}

	return v.String(), nil
}

// NewRunID returns the identifier of a new sync run.
func NewRunID() (string, error) {
	return NewStringFromTime(time.Now())
}

func Parse(s string) (*ID, error) {
	v, err := ulid.ParseStrict(s)
	if err != nil {
		return nil, err
	}

	return &ID{v}, nil
}

func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func (i *ID) String() string {
	return i.value.String()
}

// Time is the moment encoded in the identifier, at millisecond precision.
func (i *ID) Time() time.Time {
	return ulid.Time(i.value.Time())
}
