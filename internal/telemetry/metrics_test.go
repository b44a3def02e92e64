package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSetProducerState_OneHot(t *testing.T) {
	SetProducerState("test-src", "RUNNING")
	assert.Equal(t, 1.0, testutil.ToFloat64(ProducerUp.WithLabelValues("test-src", "RUNNING")))
	assert.Equal(t, 0.0, testutil.ToFloat64(ProducerUp.WithLabelValues("test-src", "ERROR")))

	SetProducerState("test-src", "STOPPED")
	assert.Equal(t, 0.0, testutil.ToFloat64(ProducerUp.WithLabelValues("test-src", "RUNNING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ProducerUp.WithLabelValues("test-src", "STOPPED")))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(DuplicatesDropped.WithLabelValues("dup-src"))
	Duplicate("dup-src")
	assert.Equal(t, before+1, testutil.ToFloat64(DuplicatesDropped.WithLabelValues("dup-src")))

	Produced("prod-src", 0)
	Produced("prod-src", 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(MessagesProduced.WithLabelValues("prod-src")))

	Decision("greeting", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(Decisions.WithLabelValues("greeting", "true")))
}
