// Copyright (c) 2025 The Strata developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratapool/strata/test/datagen"
)

func TestNoopMetrics(t *testing.T) {
	metrics = defaultNoopMetrics()

	// the noop implementation swallows everything and exposes no handler
	Counter("noop_count").Add(1)
	CounterVec("noop_count_vec", []string{"k"}).AddWithLabel(1, map[string]string{"k": "v"})
	Gauge("noop_gauge").Set(5)
	GaugeVec("noop_gauge_vec", []string{"k"}).SetWithLabel(5, map[string]string{"k": "v"})
	Histogram("noop_hist", BucketHTTPReqs).Observe(10)
	HistogramVec("noop_hist_vec", []string{"k"}, BucketHTTPReqs).ObserveWithLabels(10, map[string]string{"k": "v"})

	assert.Nil(t, HTTPHandler())
}

func scrape(t *testing.T) map[string]*dto.MetricFamily {
	handler := HTTPHandler()
	require.NotNil(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	parser := expfmt.TextParser{}
	families, err := parser.TextToMetricFamilies(rec.Body)
	require.NoError(t, err)
	return families
}

func TestPrometheusMetrics(t *testing.T) {
	InitializePrometheusMetrics()

	count := datagen.RandIntN(100) + 1
	Counter("api_request_count").Add(int64(count))
	for range 2 {
		CounterVec("api_request_count_vec", []string{"path"}).
			AddWithLabel(1, map[string]string{"path": "/pool"})
	}
	Gauge("node_count").Set(3)
	GaugeVec("asset_price", []string{"asset"}).
		SetWithLabel(7, map[string]string{"asset": "a"})
	Histogram("request_duration_ms", BucketHTTPReqs).Observe(30)
	HistogramVec("request_duration_ms_vec", []string{"method"}, BucketHTTPReqs).
		ObserveWithLabels(30, map[string]string{"method": "GET"})

	families := scrape(t)

	counter := families["strata_metrics_api_request_count"]
	require.NotNil(t, counter)
	assert.Equal(t, float64(count), counter.GetMetric()[0].GetCounter().GetValue())

	counterVec := families["strata_metrics_api_request_count_vec"]
	require.NotNil(t, counterVec)
	assert.Equal(t, float64(2), counterVec.GetMetric()[0].GetCounter().GetValue())

	gauge := families["strata_metrics_node_count"]
	require.NotNil(t, gauge)
	assert.Equal(t, float64(3), gauge.GetMetric()[0].GetGauge().GetValue())

	hist := families["strata_metrics_request_duration_ms"]
	require.NotNil(t, hist)
	assert.Equal(t, uint64(1), hist.GetMetric()[0].GetHistogram().GetSampleCount())

	histVec := families["strata_metrics_request_duration_ms_vec"]
	require.NotNil(t, histVec)
	assert.Equal(t, uint64(1), histVec.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestGetOrCreateReturnsSameMeter(t *testing.T) {
	InitializePrometheusMetrics()

	a := Counter("dedup_count")
	b := Counter("dedup_count")
	assert.Same(t, a, b)
}

func TestLazyLoad(t *testing.T) {
	calls := 0
	load := LazyLoad(func() int {
		calls++
		return 42
	})
	assert.Equal(t, 42, load())
	assert.Equal(t, 42, load())
	assert.Equal(t, 1, calls)
}
