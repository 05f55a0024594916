//go:generate mockgen -source continuation.go -destination ../../internal/mocks/mock_continuation.go -package mocks Sink

// Package continuation hands unfinished work of a run to a later invocation.
package continuation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openfga/consentsync/pkg/types"
)

// ErrNoCheckpoint is returned by a Source with nothing left to resume.
var ErrNoCheckpoint = errors.New("no checkpoint available")

// Stage is a pipeline stage.
type Stage string

const (
	StageRecords      Stage = "records"
	StageBiospecimens Stage = "biospecimens"
	StageGenomicFiles Stage = "genomic_files"
)

// Checkpoint is the remaining work of a run, one queue per stage. Resuming a checkpoint
// starts at Stage and never revisits an item that is not in one of the queues.
type Checkpoint struct {
	// ID is assigned by the sink the checkpoint is handed to.
	ID    string         `json:"id,omitempty"`
	RunID string         `json:"run_id"`
	Study types.StudyRef `json:"study"`
	Stage Stage          `json:"stage"`

	Records      []types.SampleRecord    `json:"records"`
	Biospecimens []types.BiospecimenItem `json:"biospecimens"`
	GenomicFiles []*types.Accumulator    `json:"genomic_files"`

	// DeadLetteredSamples lists the samples of the run dropped before they contributed to
	// the genomic file accumulators. While it is not empty no consent code is granted.
	DeadLetteredSamples []string `json:"dead_lettered_samples,omitempty"`

	// Invocation numbers the invocation that resumes the checkpoint. The first invocation
	// of a run is 1.
	Invocation int       `json:"invocation"`
	CreatedAt  time.Time `json:"created_at"`
}

// Len returns the number of items left across every queue.
func (c *Checkpoint) Len() int {
	return len(c.Records) + len(c.Biospecimens) + len(c.GenomicFiles)
}

func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal decodes a checkpoint produced by Marshal.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}

	switch c.Stage {
	case StageRecords, StageBiospecimens, StageGenomicFiles:
	default:
		return nil, fmt.Errorf("decode checkpoint: unknown stage %q", c.Stage)
	}

	return &c, nil
}

// Sink accepts a checkpoint for a later invocation. It does not wait for that invocation.
type Sink interface {
	Continue(ctx context.Context, checkpoint *Checkpoint) error
}

// Source returns checkpoints handed to a sink, oldest first. It returns ErrNoCheckpoint
// when none is pending.
type Source interface {
	Next(ctx context.Context) (*Checkpoint, error)
}

// SinkSource is a sink that can be drained.
type SinkSource interface {
	Sink
	Source
}

type discardSink struct{}

// Discard returns a Sink that drops every checkpoint.
func Discard() Sink {
	return discardSink{}
}

func (discardSink) Continue(context.Context, *Checkpoint) error {
	return nil
}
