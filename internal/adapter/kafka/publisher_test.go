package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityflow/traffic-insight-service/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	ts := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	record := domain.PredictionRecord{
		Location:    "mg road",
		StreetName:  "brigade road",
		Description: "heavy jam near market",
		Status:      domain.StatusHeavy,
		Timestamp:   ts,
	}

	msg, err := serializeToMessage(record)
	require.NoError(t, err)

	assert.Equal(t, []byte("mg road"), msg.Key)
	assert.Contains(t, string(msg.Value), `"status":"heavy"`)
	assert.Contains(t, string(msg.Value), `"street_name":"brigade road"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "status", msg.Headers[0].Key)
	assert.Equal(t, []byte("heavy"), msg.Headers[0].Value)
	assert.Equal(t, "created_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(ts.Format(time.RFC3339)), msg.Headers[1].Value)
}
