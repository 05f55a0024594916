package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/openfga/consentsync/internal/build"
)

const (
	outcomeProcessed    = "processed"
	outcomeSkipped      = "skipped"
	outcomeRequeued     = "requeued"
	outcomeDeadLettered = "dead_lettered"
)

var (
	itemsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "pipeline_items_total",
		Help:      "The total number of items popped by the pipeline controller, by stage and outcome.",
	}, []string{"stage", "outcome"})

	writesCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "pipeline_writes_total",
		Help:      "The total number of record store writes issued by the pipeline controller.",
	}, []string{"record"})

	continuationsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: build.ProjectName,
		Name:      "pipeline_continuations_total",
		Help:      "The total number of checkpoints handed to the continuation sink.",
	})

	itemDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:                       build.ProjectName,
		Name:                            "pipeline_item_duration_ms",
		Help:                            "The time (in ms) spent on one item of a pipeline stage.",
		Buckets:                         []float64{10, 50, 100, 250, 500, 1000, 5000, 30000},
		NativeHistogramBucketFactor:     1.1,
		NativeHistogramMaxBucketNumber:  100,
		NativeHistogramMinResetDuration: time.Hour,
	}, []string{"stage"})
)
