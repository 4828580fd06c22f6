package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordTick("PREMARKET", 2*time.Second)
	r.RecordTick("PREMARKET", time.Second)
	r.RecordTickError("data_fetch")
	r.RecordStage("liquidity", 7)
	r.RecordDrops("liquidity", map[string]int{"price_floor": 3, "share_floor": 1})
	r.RecordDrops("liquidity", map[string]int{"price_floor": 2})
	r.RecordHeartbeat(true)
	r.RecordHeartbeat(false)
	r.RecordHeartbeat(false)
	r.RecordFinalPick("PICKED_NORMAL")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.ticks.WithLabelValues("PREMARKET")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tickErrors.WithLabelValues("data_fetch")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.stageSize.WithLabelValues("liquidity")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.dropped.WithLabelValues("liquidity", "price_floor")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.heartbeat.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.finalPicks.WithLabelValues("PICKED_NORMAL")))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordTick("REGULAR", time.Second)
		r.RecordTickError("x")
		r.RecordStage("x", 1)
		r.RecordDrops("x", map[string]int{"y": 1})
		r.RecordHeartbeat(true)
		r.RecordFinalPick("PICKED_LATE")
	})
}
