package dalloc

import (
	"time"

	gometrics "github.com/hashicorp/go-metrics"
)

// Metrics records allocation, read, write, and free activity for a
// cluster via hashicorp/go-metrics, backed by an InmemSink so the numbers
// can be queried through the standard go-metrics interfaces.
type Metrics struct {
	sink   *gometrics.InmemSink
	sunk   *gometrics.Metrics
	labels []gometrics.Label
}

// NewMetrics builds a Metrics recorder that keeps in-memory samples in
// 10-second intervals, retained for one minute.
func NewMetrics(clusterName string) *Metrics {
	sink := gometrics.NewInmemSink(10*time.Second, time.Minute)
	cfg := gometrics.DefaultConfig("dalloc")
	cfg.EnableHostname = false
	sunk, _ := gometrics.New(cfg, sink)
	return &Metrics{
		sink:   sink,
		sunk:   sunk,
		labels: []gometrics.Label{{Name: "cluster", Value: clusterName}},
	}
}

// RecordAllocate increments the allocate counter and, on success,
// accumulates the number of cells granted.
func (m *Metrics) RecordAllocate(size int, ok bool) {
	m.sunk.IncrCounterWithLabels([]string{"dalloc", "allocate", "count"}, 1, m.labels)
	if ok {
		m.sunk.IncrCounterWithLabels([]string{"dalloc", "allocate", "cells"}, float32(size), m.labels)
	} else {
		m.sunk.IncrCounterWithLabels([]string{"dalloc", "allocate", "exhausted"}, 1, m.labels)
	}
}

// RecordRead increments the read counter.
func (m *Metrics) RecordRead() {
	m.sunk.IncrCounterWithLabels([]string{"dalloc", "read", "count"}, 1, m.labels)
}

// RecordWrite increments the write counter, separating accepted writes
// from ones rejected by the last-writer-wins clock check.
func (m *Metrics) RecordWrite(accepted bool) {
	m.sunk.IncrCounterWithLabels([]string{"dalloc", "write", "count"}, 1, m.labels)
	if !accepted {
		m.sunk.IncrCounterWithLabels([]string{"dalloc", "write", "rejected"}, 1, m.labels)
	}
}

// RecordFree increments the free counter.
func (m *Metrics) RecordFree(freed bool) {
	m.sunk.IncrCounterWithLabels([]string{"dalloc", "free", "count"}, 1, m.labels)
	if !freed {
		m.sunk.IncrCounterWithLabels([]string{"dalloc", "free", "failed"}, 1, m.labels)
	}
}

// Snapshot returns the latest in-memory interval of gathered samples, for
// tests and the CLI's summary output.
func (m *Metrics) Snapshot() gometrics.IntervalMetrics {
	data := m.sink.Data()
	if len(data) == 0 {
		return gometrics.IntervalMetrics{}
	}
	return *data[len(data)-1]
}
