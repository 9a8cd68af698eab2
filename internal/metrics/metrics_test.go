package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionFailuresCounter(t *testing.T) {
	before := testutil.ToFloat64(SelectionFailuresTotal.WithLabelValues("country"))
	SelectionFailuresTotal.WithLabelValues("country").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(SelectionFailuresTotal.WithLabelValues("country")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	DatasetSize.WithLabelValues("registry").Set(3)

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tsomap_dataset_rows{table="registry"} 3`)
}
