// Copyright (C) 2026 Michael J. Fromberger. All Rights Reserved.

package gen

import "expvar"

// emitMetrics record artifact emission counters.
type emitMetrics struct {
	written expvar.Int // number of artifacts rendered and written
	skipped expvar.Int // number of paths matching no artifact
	failed  expvar.Int // number of artifacts whose write failed

	emap *expvar.Map
}

var rootMetrics = newEmitMetrics()

func newEmitMetrics() *emitMetrics {
	em := &emitMetrics{emap: new(expvar.Map)}
	em.emap.Set("artifacts_written", &em.written)
	em.emap.Set("artifacts_skipped", &em.skipped)
	em.emap.Set("artifacts_failed", &em.failed)
	return em
}

// Metrics returns a map of the emission metrics maintained by this
// package. The metrics are shared by all calls to [Emit]. It is safe for
// the caller to add, update, and remove entries in the map.
func Metrics() *expvar.Map { return rootMetrics.emap }
