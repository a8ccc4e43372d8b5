package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDisabledCollectorsAreUsableButUnregistered(t *testing.T) {
	r := New(false)
	require.NotNil(t, r.PoolSize)

	// Safe to call even though no registry backs it.
	r.PoolSize.Set(3)
	r.AdmissionTotal.WithLabelValues("accepted").Inc()

	require.Nil(t, r.Handler())
}

func TestNewEnabledExposesCollectorsOverHTTP(t *testing.T) {
	r := New(true)
	r.PoolSize.Set(7)
	r.BlockHeight.Set(42)

	handler := r.Handler()
	require.NotNil(t, handler)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "fuelnode_txpool_size 7")
	require.Contains(t, body, "fuelnode_chain_height 42")
}
