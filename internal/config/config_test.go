package config_test

import (
	"testing"

	"github.com/okian/markscard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.ShardCount, convey.ShouldEqual, 8)
			convey.So(cfg.IdentityHeader, convey.ShouldEqual, "X-Caller-Principal")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
