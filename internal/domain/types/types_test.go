package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/winprob/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestHealth(t *testing.T) {
	Convey("Given a Health report", t, func() {
		Convey("When the status is healthy", func() {
			h := types.Health{Status: types.StatusHealthy, ModelLoaded: true}

			Convey("Then it should report healthy", func() {
				So(h.Healthy(), ShouldBeTrue)
			})

			Convey("Then it should encode with snake case keys", func() {
				b, err := json.Marshal(h)
				So(err, ShouldBeNil)
				So(string(b), ShouldEqual, `{"status":"healthy","model_loaded":true}`)
			})
		})

		Convey("When the status is degraded", func() {
			h := types.Health{Status: types.StatusDegraded}

			Convey("Then it should not report healthy", func() {
				So(h.Healthy(), ShouldBeFalse)
			})
		})

		Convey("When the report is the zero value", func() {
			Convey("Then it should not report healthy", func() {
				So(types.Health{}.Healthy(), ShouldBeFalse)
			})
		})
	})
}
