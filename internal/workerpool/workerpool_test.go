package workerpool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ecohealth/airflow/internal/queue"
)

func TestDispatchUnknownJobType(t *testing.T) {
	p := &Pool{}
	err := p.dispatch(context.Background(), queue.Job{Type: "not_a_real_job"})
	assert.Error(t, err, "expected an error for an unknown job type")
}

func TestDispatchMalformedPayload(t *testing.T) {
	p := &Pool{}
	err := p.dispatch(context.Background(), queue.Job{Type: TypeCalculateFlowsForAirport, Payload: []byte("not json")})
	assert.Error(t, err, "expected a decode error for malformed payload")
}
