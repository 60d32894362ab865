package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/okian/tofo/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func rows() []types.EventRow {
	tokyo := time.FixedZone("JST", 9*3600)
	mid := time.Date(2025, 1, 10, 20, 0, 0, 0, time.UTC)
	early := types.EventRow{
		Target: "Early b", Kind: "primary",
		Ingress: mid.Add(-time.Hour), Mid: mid, Egress: mid.Add(time.Hour),
		LocalMid: mid.In(tokyo), DurationHours: 2, Score: 0.75, Rank: 1,
		Frame: "barycentric", Source: "exoclock",
	}
	late := early
	late.Target = "Late b"
	late.Ingress = early.Ingress.Add(3 * time.Hour)
	late.Mid = early.Mid.Add(3 * time.Hour)
	late.Egress = early.Egress.Add(3 * time.Hour)
	late.LocalMid = late.Mid.In(tokyo)
	tie := early
	tie.Target = "Alpha b"
	return []types.EventRow{late, early, tie}
}

func TestWriteCSV(t *testing.T) {
	Convey("Given unordered rows", t, func() {
		var buf bytes.Buffer
		So(WriteCSV(&buf, rows()), ShouldBeNil)

		recs, err := csv.NewReader(&buf).ReadAll()
		So(err, ShouldBeNil)

		Convey("Then the header comes first and rows are sorted by ingress then name", func() {
			So(len(recs), ShouldEqual, 4)
			So(recs[0], ShouldResemble, Header)
			So(recs[1][0], ShouldEqual, "Alpha b")
			So(recs[2][0], ShouldEqual, "Early b")
			So(recs[3][0], ShouldEqual, "Late b")
		})

		Convey("Then UTC columns end in Z and the local mid keeps its offset", func() {
			So(recs[2][2], ShouldEqual, "2025-01-10T19:00:00Z")
			So(recs[2][3], ShouldEqual, "2025-01-10T20:00:00Z")
			So(recs[2][5], ShouldEqual, "2025-01-11T05:00:00+09:00")
			So(recs[2][6], ShouldEqual, "2.0000")
			So(recs[2][9], ShouldEqual, "barycentric")
		})
	})
}

func TestWriteJSON(t *testing.T) {
	Convey("Given rows", t, func() {
		var buf bytes.Buffer
		So(WriteJSON(&buf, rows()), ShouldBeNil)

		var got []map[string]any
		So(json.Unmarshal(buf.Bytes(), &got), ShouldBeNil)
		So(len(got), ShouldEqual, 3)
		So(got[0]["target_name"], ShouldEqual, "Alpha b")
		So(got[2]["local_mid_time"], ShouldEqual, "2025-01-11T08:00:00+09:00")
	})

	Convey("Given no rows", t, func() {
		var buf bytes.Buffer
		So(WriteJSON(&buf, nil), ShouldBeNil)
		So(bytes.TrimSpace(buf.Bytes()), ShouldResemble, []byte("[]"))
	})
}

func TestParseFormat(t *testing.T) {
	Convey("Given format names", t, func() {
		f, err := ParseFormat(" CSV ")
		So(err, ShouldBeNil)
		So(f, ShouldEqual, CSV)
		So(f.ContentType(), ShouldStartWith, "text/csv")

		f, err = ParseFormat("json")
		So(err, ShouldBeNil)
		So(f.ContentType(), ShouldEqual, "application/json")

		_, err = ParseFormat("xml")
		So(errors.Is(err, ErrUnknownFormat), ShouldBeTrue)

		So(errors.Is(Write(&bytes.Buffer{}, Format("xml"), nil), ErrUnknownFormat), ShouldBeTrue)
	})
}
