package redis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colosseo/arenabook/internal/domain"
)

func TestSummaryKeySchema(t *testing.T) {
	assert.Equal(t, "pool:summary:p1", summaryKey("p1"))
	assert.Equal(t, "ratelimit:api:1.2.3.4", rateLimitKey("api:1.2.3.4"))
}

func TestPoolSummaryRoundTripsID(t *testing.T) {
	// The cache keys summaries by PoolSummary.ID; the encoded form has to
	// carry it so GetSummary returns a self-identifying record.
	in := domain.PoolSummary{ID: "pool-9", Status: domain.PoolStatusActive}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out domain.PoolSummary
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "pool-9", out.ID)
}
