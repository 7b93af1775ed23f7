package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should register its collectors there", func() {
				So(manager, ShouldNotBeNil)
				manager.rowsIngested.Add(2)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metric names should use the namespace and subsystem", func() {
				manager.recordsStored.Set(4)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_records_stored" {
						found = true
						So(f.GetMetric()[0].GetGauge().GetValue(), ShouldEqual, 4)
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording ingestion metrics", func() {
			before := testutil.ToFloat64(globalManager.rowsIngested)
			RecordRowsIngested(3)
			RecordRowsDropped(1)
			RecordIngestBatch("ok")
			RecordIngestLatency(12)

			Convey("Then counters should advance", func() {
				So(testutil.ToFloat64(globalManager.rowsIngested)-before, ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.batches.WithLabelValues("ok")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording store, report and advisor metrics", func() {
			So(func() {
				UpdateRecordsStored(10)
				RecordStoreLatency("load_all", 1.5)
				RecordStoreError("append_batch")
				RecordRecordsDeleted(2)
				RecordReport("summary")
				RecordAdvisorCall("ask", "ok", 250)
				RecordHTTPRequest("records", "GET", "200")
				RecordHTTPRequestDuration("records", "GET", "200", 3)
				RecordErrorByEndpoint("records", "DELETE", "not_found")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
			}, ShouldNotPanic)

			Convey("Then the stored gauge should reflect the last update", func() {
				So(testutil.ToFloat64(globalManager.recordsStored), ShouldEqual, 10)
			})
		})

		Convey("When exposing the registry", func() {
			RecordReport("pivot")
			Convey("Then it should gather the service metrics", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "formacao_dashboard_reports_total")
			})
		})
	})
}
