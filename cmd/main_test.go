package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	app "github.com/okian/markscard/internal/app"
	"github.com/okian/markscard/internal/config"
	"github.com/okian/markscard/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the system metrics updater runs until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startSystemMetricsUpdater(ctx)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When the service metrics updater runs until its context ends", func() {
			svc := app.New()
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startServiceMetricsUpdater(ctx, svc)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When system metrics are updated directly", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the wired application", t, func() {
		_ = os.Setenv("MARKS_IDENTITY_HEADER", "X-Verified-Caller")
		defer func() { _ = os.Unsetenv("MARKS_IDENTITY_HEADER") }()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)

		svc := app.New(app.WithShardCount(cfg.ShardCount))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newMux(ctx, cfg, svc, logger.Get()))
		defer srv.Close()

		convey.Convey("When a caller stores and reads a report through the configured header", func() {
			req, _ := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/reports",
				strings.NewReader(`{"studentName":"Bob","totalMarks":270,"numSubjects":3}`))
			req.Header.Set("X-Verified-Caller", "alice")
			resp, err := http.DefaultClient.Do(req)
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusCreated)

			req, _ = http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/reports/mine", nil)
			req.Header.Set("X-Verified-Caller", "alice")
			resp, err = http.DefaultClient.Do(req)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			convey.Convey("Then the report comes back", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(resp.Header.Get("X-Request-ID"), convey.ShouldNotBeEmpty)
			})
		})

		convey.Convey("When the docs are requested", func() {
			resp, err := http.Get(srv.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
		})
	})
}
