package shmlock

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	acquisitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shmlock_acquisitions_total",
		Help: "Lock acquisitions that committed, by kind.",
	}, []string{"kind"})

	releases = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shmlock_releases_total",
		Help: "Lock releases that committed, by kind.",
	}, []string{"kind"})

	refusals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shmlock_refusals_total",
		Help: "Lock operations refused, by kind and cause.",
	}, []string{"kind", "cause"})

	spinExhaustions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmlock_spin_exhaustions_total",
		Help: "Spin waits abandoned with an exhausted try counter.",
	})

	readAcquired  = acquisitions.WithLabelValues("read")
	writeAcquired = acquisitions.WithLabelValues("write")
	readReleased  = releases.WithLabelValues("read")
	writeReleased = releases.WithLabelValues("write")
)

// RegisterMetrics registers the package's lock-operation collectors with r.
// The collectors count globally across every lock instance in the process;
// they are not registered anywhere by default.
func RegisterMetrics(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{acquisitions, releases, refusals, spinExhaustions} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// refuse counts a refused operation under its cause and hands the sentinel
// back to the caller.
func refuse(kind string, err error) error {
	refusals.WithLabelValues(kind, causeOf(err)).Inc()
	return err
}

func causeOf(err error) string {
	switch {
	case errors.Is(err, ErrUninitialized):
		return "uninitialized"
	case errors.Is(err, ErrWriteLocked):
		return "writelocked"
	case errors.Is(err, ErrReadLocked):
		return "readlocked"
	case errors.Is(err, ErrMaxReaders):
		return "maxreaders"
	case errors.Is(err, ErrGeneralFailure):
		return "generalfailure"
	default:
		return "other"
	}
}
