package model_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/formacao/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNullDate(t *testing.T) {
	Convey("Given a valid date", t, func() {
		d := model.NewDate(2024, time.March, 1)

		Convey("Then it should format as ISO", func() {
			So(d.String(), ShouldEqual, "2024-03-01")
		})

		Convey("And it should encode as a JSON string", func() {
			b, err := json.Marshal(d)
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `"2024-03-01"`)
		})
	})

	Convey("Given a null date", t, func() {
		var d model.NullDate

		Convey("Then it should encode as JSON null", func() {
			b, err := json.Marshal(d)
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, "null")
			So(d.String(), ShouldEqual, "")
		})
	})

	Convey("Given JSON date input", t, func() {
		Convey("When decoding an ISO string", func() {
			var d model.NullDate
			err := json.Unmarshal([]byte(`"2023-12-31"`), &d)
			So(err, ShouldBeNil)
			So(d.Valid, ShouldBeTrue)
			So(d.Time.Year(), ShouldEqual, 2023)
		})

		Convey("When decoding null or empty", func() {
			d := model.NewDate(2024, time.January, 1)
			So(json.Unmarshal([]byte(`null`), &d), ShouldBeNil)
			So(d.Valid, ShouldBeFalse)
			d = model.NewDate(2024, time.January, 1)
			So(json.Unmarshal([]byte(`""`), &d), ShouldBeNil)
			So(d.Valid, ShouldBeFalse)
		})

		Convey("When decoding garbage", func() {
			var d model.NullDate
			So(json.Unmarshal([]byte(`"yesterday"`), &d), ShouldNotBeNil)
		})
	})

	Convey("Given a timestamp with a clock component", t, func() {
		ts := time.Date(2024, time.May, 2, 18, 30, 0, 0, time.UTC)
		Convey("Then DateOf keeps only the calendar date", func() {
			So(model.DateOf(ts).Time.Equal(time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
		})
	})
}

func TestTrainingRecordJSON(t *testing.T) {
	Convey("Given a training record", t, func() {
		rec := model.TrainingRecord{
			ID:           7,
			PersonName:   "Ana",
			Organization: "Escola A",
			EventName:    "Curso X",
			Hours:        5,
			EventDate:    model.NewDate(2024, time.March, 1),
		}

		Convey("Then it should use snake_case keys", func() {
			b, err := json.Marshal(rec)
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"person_name":"Ana"`)
			So(string(b), ShouldContainSubstring, `"event_date":"2024-03-01"`)
			So(string(b), ShouldNotContainSubstring, `batch_id`)
		})
	})
}
