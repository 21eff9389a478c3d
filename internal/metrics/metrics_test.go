package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily はレジストリから指定名のメトリクスファミリーを取得する。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordHTTPStatus_IncrementsCounterWithLabel はHTTPステータスカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	mf := findMetricFamily(t, reg, "recipebook_http_requests_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		label := m.GetLabel()[0].GetValue()
		val := m.GetCounter().GetValue()
		switch label {
		case "200":
			if val != 2 {
				t.Errorf("http_requests_total{status_code=200} = %v, want 2", val)
			}
		case "404":
			if val != 1 {
				t.Errorf("http_requests_total{status_code=404} = %v, want 1", val)
			}
		default:
			t.Errorf("unexpected label value: %s", label)
		}
	}
}

// TestRecordHTTPLatency_ObservesHistogram はリクエスト処理時間のヒストグラムに値が記録されることを検証する。
func TestRecordHTTPLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPLatency(100 * time.Millisecond)
	c.RecordHTTPLatency(2 * time.Second)

	h := findMetricFamily(t, reg, "recipebook_http_request_duration_seconds").GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
	}
	// 合計は0.1 + 2.0 = 2.1秒
	if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
		t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
	}
}

// TestRecordFavoriteCounters はお気に入り関連のカウンタがそれぞれ独立に増加することを検証する。
func TestRecordFavoriteCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFavoriteAdded()
	c.RecordFavoriteAdded()
	c.RecordFavoriteAdded()
	c.RecordFavoriteRemoved()
	c.RecordFavoriteConflict()
	c.RecordFavoriteConflict()

	tests := []struct {
		name string
		want float64
	}{
		{"recipebook_favorites_added_total", 3},
		{"recipebook_favorites_removed_total", 1},
		{"recipebook_favorites_conflicts_total", 2},
	}
	for _, tt := range tests {
		val := findMetricFamily(t, reg, tt.name).GetMetric()[0].GetCounter().GetValue()
		if val != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, val, tt.want)
		}
	}
}

// TestRecordUpstreamRequest_LabelsAndLatency はレシピAPIのリクエスト結果が操作・結果別に記録されることを検証する。
func TestRecordUpstreamRequest_LabelsAndLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpstreamRequest("search", UpstreamResultSuccess, 200*time.Millisecond)
	c.RecordUpstreamRequest("search", UpstreamResultError, 10*time.Millisecond)
	c.RecordUpstreamRequest("lookup", UpstreamResultNotFound, 50*time.Millisecond)

	requests := findMetricFamily(t, reg, "recipebook_upstream_requests_total")
	if len(requests.GetMetric()) != 3 {
		t.Fatalf("expected 3 label combinations, got %d", len(requests.GetMetric()))
	}
	for _, m := range requests.GetMetric() {
		if v := m.GetCounter().GetValue(); v != 1 {
			t.Errorf("upstream_requests_total%v = %v, want 1", m.GetLabel(), v)
		}
	}

	latency := findMetricFamily(t, reg, "recipebook_upstream_latency_seconds")
	if len(latency.GetMetric()) != 2 {
		t.Fatalf("expected 2 operation labels, got %d", len(latency.GetMetric()))
	}
	for _, m := range latency.GetMetric() {
		op := m.GetLabel()[0].GetValue()
		count := m.GetHistogram().GetSampleCount()
		switch op {
		case "search":
			if count != 2 {
				t.Errorf("search sample_count = %d, want 2", count)
			}
		case "lookup":
			if count != 1 {
				t.Errorf("lookup sample_count = %d, want 1", count)
			}
		default:
			t.Errorf("unexpected operation label: %s", op)
		}
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorがMetricsCollectorインターフェースを実装することを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ MetricsCollector = NewCollector(reg)
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordFavoriteAdded()
	c2.RecordFavoriteAdded()
	c2.RecordFavoriteAdded()

	val1 := findMetricFamily(t, reg1, "recipebook_favorites_added_total").GetMetric()[0].GetCounter().GetValue()
	val2 := findMetricFamily(t, reg2, "recipebook_favorites_added_total").GetMetric()[0].GetCounter().GetValue()

	if val1 != 1 {
		t.Errorf("reg1 favorites_added = %v, want 1", val1)
	}
	if val2 != 2 {
		t.Errorf("reg2 favorites_added = %v, want 2", val2)
	}
}
