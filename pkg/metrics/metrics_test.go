package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

// withManager swaps the global manager for the duration of fn.
func withManager(m *Manager, fn func()) {
	prev := globalManager
	globalManager = m
	defer func() { globalManager = prev }()
	fn()
}

// sample returns the summed counter/gauge value of a gathered family,
// restricted to series carrying every label in match.
func sample(reg *prometheus.Registry, name string, match map[string]string) float64 {
	families, err := reg.Gather()
	So(err, ShouldBeNil)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			for k, v := range match {
				if labels[k] != v {
					continue series
				}
			}
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}

func TestManagerCreation(t *testing.T) {
	Convey("Given manager options", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(
			WithNamespace("ns"),
			WithSubsystem("sub"),
			WithMetricPrefix("x_"),
			WithHistogramBuckets([]float64{1, 10, 100}),
			WithRefreshInterval(3*time.Second),
			WithCustomLabels(map[string]string{"env": "test"}),
			WithPrometheusRegistry(reg),
		)

		Convey("Then they shape the registered metrics", func() {
			So(m.RefreshInterval(), ShouldEqual, 3*time.Second)
			So(m.Enabled(), ShouldBeTrue)

			withManager(m, func() {
				RecordFileProcessed(12)
			})
			So(sample(reg, "ns_sub_x_files_processed_total", map[string]string{"env": "test"}), ShouldEqual, 1)
			So(sample(reg, "ns_sub_x_records_loaded_total", nil), ShouldEqual, 12)
		})

		Convey("Then empty options keep defaults", func() {
			d := NewManager(WithNamespace(""), WithSubsystem(""), WithRefreshInterval(0), WithPrometheusRegistry(prometheus.NewRegistry()))
			So(d.namespace, ShouldEqual, "tags")
			So(d.subsystem, ShouldEqual, "matching")
			So(d.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		})
	})
}

func TestRecording(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(reg))

		withManager(m, func() {
			RecordAnalysis(OutcomeSuccess, 42)
			RecordAnalysis(OutcomeSuccess, 7)
			RecordAnalysis(OutcomeCancelled, 1)
			RecordCorrelations("entry", 5)
			RecordCorrelations("exit", 0)
			UpdateLatestResults("complete", 3)
			RecordFileFailure()
			UpdateQueueSize(4)
			UpdateQueueCapacity(8)
			UpdateQueueUtilization(0.5)
			RecordQueueEnqueue()
			RecordQueueDequeue()
			RecordQueueEnqueueError()
			RecordQueueProcessingLatency(1)
			UpdateWorkerActiveCount(2)
			UpdateWorkerTasksPerSecond(1.5)
			RecordWorkerProcessingLatency(3)
			RecordWorkerError()
			RecordHTTPRequest("/analyses", "POST", "200")
			RecordHTTPRequestDuration("/analyses", "POST", "200", 12)
			RecordErrorByComponent("queue", "closed")
			RecordErrorByEndpoint("/results", "GET", "not_found")
			UpdateSystemMemoryUsage(1024)
			UpdateSystemGoroutineCount(9)
			RecordSystemGCPauseTime(0.2)
		})

		Convey("Then analysis metrics are labelled by outcome and category", func() {
			So(sample(reg, "tags_matching_analyses_total", map[string]string{"outcome": "success"}), ShouldEqual, 2)
			So(sample(reg, "tags_matching_analyses_total", map[string]string{"outcome": "cancelled"}), ShouldEqual, 1)
			So(sample(reg, "tags_matching_analysis_duration_milliseconds", nil), ShouldEqual, 3)
			So(sample(reg, "tags_matching_correlations_total", map[string]string{"category": "entry"}), ShouldEqual, 5)
			So(sample(reg, "tags_matching_correlations_total", map[string]string{"category": "exit"}), ShouldEqual, 0)
			So(sample(reg, "tags_matching_latest_results", map[string]string{"category": "complete"}), ShouldEqual, 3)
			So(sample(reg, "tags_matching_file_failures_total", nil), ShouldEqual, 1)
		})

		Convey("Then queue and worker gauges hold the last value", func() {
			So(sample(reg, "tags_matching_queue_size", nil), ShouldEqual, 4)
			So(sample(reg, "tags_matching_queue_capacity", nil), ShouldEqual, 8)
			So(sample(reg, "tags_matching_worker_active_count", nil), ShouldEqual, 2)
			So(sample(reg, "tags_matching_worker_errors_total", nil), ShouldEqual, 1)
		})

		Convey("Then HTTP and error series are recorded", func() {
			So(sample(reg, "tags_matching_http_requests_total", map[string]string{"endpoint": "/analyses"}), ShouldEqual, 1)
			So(sample(reg, "tags_matching_errors_by_component_total", map[string]string{"component": "queue"}), ShouldEqual, 1)
			So(sample(reg, "tags_matching_errors_by_endpoint_total", map[string]string{"error_type": "not_found"}), ShouldEqual, 1)
			So(sample(reg, "tags_matching_system_goroutine_count", nil), ShouldEqual, 9)
		})
	})

	Convey("Given a disabled manager", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(reg), WithMetricsEnabled(false))

		withManager(m, func() {
			RecordAnalysis(OutcomeFailed, 1)
			RecordFileFailure()
		})

		Convey("Then nothing is recorded", func() {
			So(sample(reg, "tags_matching_analyses_total", nil), ShouldEqual, 0)
			So(sample(reg, "tags_matching_file_failures_total", nil), ShouldEqual, 0)
		})
	})
}

func TestGlobalRegistry(t *testing.T) {
	Convey("Given the process-wide manager", t, func() {
		So(GetRegistry(), ShouldNotBeNil)
		So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
		So(func() { RecordQueueEnqueue() }, ShouldNotPanic)
	})
}
