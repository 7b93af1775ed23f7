package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/formacao/internal/config"
	"github.com/okian/formacao/pkg/logger"
	"github.com/okian/formacao/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.DBPath = filepath.Join(t.TempDir(), "main.db")
	cfg.MaxUploadMB = 2
	return cfg
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			t.Setenv("FORMACAO_ADDR", ":8080")
			t.Setenv("FORMACAO_MAX_UPLOAD_MB", "7")

			convey.Convey("Then it should be loadable", func() {
				cfg, err := config.Load()
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(maxUploadBytes(cfg), convey.ShouldEqual, int64(7)<<20)
			})
		})

		convey.Convey("When the configuration is invalid", func() {
			t.Setenv("FORMACAO_ADDR", " ")

			convey.Convey("Then loading should fail", func() {
				cfg, err := config.Load()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then a manager with its own registry should be creatable", func() {
				manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given a fully wired handler", t, func() {
		ctx := context.Background()
		svc := newService(testConfig(t))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newHandler(ctx, svc, 2<<20))
		defer srv.Close()

		get := func(path string) (int, string) {
			resp, err := http.Get(srv.URL + path)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()
			body, _ := io.ReadAll(resp.Body)
			return resp.StatusCode, string(body)
		}

		convey.Convey("Then the dashboard, docs and API are all mounted", func() {
			status, body := get("/")
			convey.So(status, convey.ShouldEqual, http.StatusOK)
			convey.So(body, convey.ShouldContainSubstring, "Formação Continuada")

			status, body = get("/openapi.yaml")
			convey.So(status, convey.ShouldEqual, http.StatusOK)
			convey.So(body, convey.ShouldContainSubstring, "/reports/summary")

			status, body = get("/reports/summary")
			convey.So(status, convey.ShouldEqual, http.StatusOK)
			convey.So(body, convey.ShouldContainSubstring, `"records":0`)

			status, _ = get("/healthz")
			convey.So(status, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then every response carries a request id", func() {
			resp, err := http.Get(srv.URL + "/stats")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.Header.Get("X-Request-ID"), convey.ShouldNotBeEmpty)
		})

		convey.Convey("Then the stats report the store as started", func() {
			stats := svc.GetStats()
			convey.So(stats["started"], convey.ShouldEqual, true)
			convey.So(stats["records"], convey.ShouldEqual, 0)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the background metrics updaters", t, func() {
		convey.Convey("When the system metrics update runs", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("When the updaters are canceled", func() {
			svc := newService(testConfig(t))
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				startServiceMetricsUpdater(ctx, svc)
				close(done)
			}()

			convey.Convey("Then both return", func() {
				stopped := false
				select {
				case <-done:
					stopped = true
				case <-time.After(2 * time.Second):
				}
				convey.So(stopped, convey.ShouldBeTrue)
			})
		})
	})
}
