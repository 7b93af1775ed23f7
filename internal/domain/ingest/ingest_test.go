package ingest_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"

	"github.com/okian/formacao/internal/domain/ingest"
	"github.com/okian/formacao/internal/domain/model"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	for r, row := range rows {
		for c, v := range row {
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue("Sheet1", name, v); err != nil {
				t.Fatalf("set cell %s: %v", name, err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestReadTable(t *testing.T) {
	Convey("Given an xlsx workbook", t, func() {
		buf := workbook(t, [][]any{
			{"Nome", "Escola", "Curso", "CH", "Data"},
			{"Ana", "E1", "Curso A", 8, 45352},
			{"Bruno", "E2", "Curso B", 1.5},
		})

		Convey("The first sheet is read with raw values", func() {
			tbl, err := ingest.ReadTable(buf, "lista.XLSX")
			So(err, ShouldBeNil)
			So(tbl.Headers, ShouldResemble, []string{"Nome", "Escola", "Curso", "CH", "Data"})
			So(len(tbl.Rows), ShouldEqual, 2)
			So(tbl.Rows[0][4], ShouldEqual, "45352")
			So(tbl.Rows[1][3], ShouldEqual, "1.5")
		})
	})

	Convey("Given a semicolon CSV with a BOM", t, func() {
		data := "\xEF\xBB\xBFNome;Escola;Nome;\n\"Ana\";E1;x;y\n;;;\nBia;E2;z\n"
		tbl, err := ingest.ReadTable(strings.NewReader(data), "lista.csv")

		Convey("Headers are cleaned and blank rows skipped", func() {
			So(err, ShouldBeNil)
			So(tbl.Headers, ShouldResemble, []string{"Nome", "Escola", "Nome_2", "column_4"})
			So(len(tbl.Rows), ShouldEqual, 2)
			So(tbl.Rows[0][0], ShouldEqual, "Ana")
			So(tbl.ColumnIndex(" Escola "), ShouldEqual, 1)
			So(tbl.ColumnIndex("missing"), ShouldEqual, -1)
		})

		Convey("Head limits the preview", func() {
			So(len(tbl.Head(1).Rows), ShouldEqual, 1)
			So(len(tbl.Head(10).Rows), ShouldEqual, 2)
		})
	})

	Convey("Given a comma CSV", t, func() {
		tbl, err := ingest.ReadTable(strings.NewReader("a,b\n1,2\n"), "x.csv")
		So(err, ShouldBeNil)
		So(tbl.Headers, ShouldResemble, []string{"a", "b"})
	})

	Convey("Given unreadable inputs", t, func() {
		_, err := ingest.ReadTable(strings.NewReader("a,b"), "old.xls")
		So(errors.Is(err, ingest.ErrUnsupportedFormat), ShouldBeTrue)

		_, err = ingest.ReadTable(strings.NewReader("not a zip"), "broken.xlsx")
		So(errors.Is(err, ingest.ErrNotTabular), ShouldBeTrue)

		_, err = ingest.ReadTable(strings.NewReader("  \n"), "empty.csv")
		So(errors.Is(err, ingest.ErrNotTabular), ShouldBeTrue)
		So(ingest.IsNotTabular(err), ShouldBeTrue)
	})
}

func TestParseHours(t *testing.T) {
	Convey("ParseHours coerces workload cells", t, func() {
		cases := map[string]float64{
			"8":     8,
			" 1.5 ": 1.5,
			"2,5":   2.5,
			"4h":    4,
			"6 hs":  6,
			"abc":   0,
			"":      0,
			"NaN":   0,
			"-3":    0,
			"inf":   0,
			"n/a":   0,
		}
		for in, want := range cases {
			So(ingest.ParseHours(in), ShouldEqual, want)
		}
	})
}

func TestParseDate(t *testing.T) {
	Convey("ParseDate understands common spreadsheet dates", t, func() {
		want := model.NewDate(2024, time.March, 1)
		for _, in := range []string{
			"2024-03-01",
			"2024-03-01 00:00:00",
			"2024-03-01T10:30:00",
			"2024-03-01T10:30:00-03:00",
			"01/03/2024",
			"1/3/2024",
			"01-03-2024",
			"01.03.2024",
			"01/03/24",
			"45352",
		} {
			got := ingest.ParseDate(in)
			So(got.Valid, ShouldBeTrue)
			So(got.String(), ShouldEqual, want.String())
		}

		Convey("Unparseable values are null", func() {
			for _, in := range []string{"", "NaT", "amanhã", "31/02/2024", "0"} {
				So(ingest.ParseDate(in).Valid, ShouldBeFalse)
			}
		})
	})
}

func TestNormalize(t *testing.T) {
	tbl := ingest.Table{
		Headers: []string{"Nome", "Escola", "Curso", "CH", "Data", "Área"},
		Rows: [][]string{
			{"Ana", "E1", "Curso A", "8", "2024-03-01", "Gestão"},
			{"", "E1", "Curso A", "4", "2024-03-02"},
			{"  Bruno  Lima ", "E2", "Curso B", "abc", "sem data"},
			{"Carla", "nan", "Curso B", "2"},
			{"Davi", "E3", "-", "2"},
		},
	}

	Convey("Given a mapping with a date column", t, func() {
		m := ingest.Mapping{
			Person: "Nome", Organization: "Escola", Event: "Curso",
			Hours: "CH", DateColumn: "Data", Category: "Área",
		}
		res, err := ingest.Normalize(tbl, m, "Outros")

		Convey("Incomplete rows are dropped and the rest kept", func() {
			So(err, ShouldBeNil)
			So(res.Dropped, ShouldEqual, 3)
			So(len(res.Records), ShouldEqual, 2)

			ana := res.Records[0]
			So(ana.PersonName, ShouldEqual, "Ana")
			So(ana.Organization, ShouldEqual, "E1")
			So(ana.EventName, ShouldEqual, "Curso A")
			So(ana.Hours, ShouldEqual, 8)
			So(ana.Category, ShouldEqual, "Gestão")
			So(ana.EventDate.String(), ShouldEqual, "2024-03-01")

			bruno := res.Records[1]
			So(bruno.PersonName, ShouldEqual, "Bruno Lima")
			So(bruno.Hours, ShouldEqual, 0)
			So(bruno.EventDate.Valid, ShouldBeFalse)
			So(bruno.Category, ShouldEqual, "Outros")
		})
	})

	Convey("Given a manual date", t, func() {
		m := ingest.Mapping{
			Person: "Nome", Organization: "Escola", Event: "Curso",
			Hours: "CH", ManualDate: model.NewDate(2024, time.May, 10),
		}
		res, err := ingest.Normalize(tbl, m, "Outros")
		So(err, ShouldBeNil)
		for _, r := range res.Records {
			So(r.EventDate.String(), ShouldEqual, "2024-05-10")
		}
	})

	Convey("Names are NFC normalized", t, func() {
		decomposed := "Joa\u0303o"
		res, err := ingest.Normalize(ingest.Table{
			Headers: []string{"p", "o", "e", "h"},
			Rows:    [][]string{{decomposed, "E", "C", "1"}},
		}, ingest.Mapping{Person: "p", Organization: "o", Event: "e", Hours: "h", ManualDate: model.NewDate(2024, 1, 1)}, "Outros")
		So(err, ShouldBeNil)
		So(res.Records[0].PersonName, ShouldEqual, "João")
	})

	Convey("Invalid mappings are rejected", t, func() {
		base := ingest.Mapping{Person: "Nome", Organization: "Escola", Event: "Curso", Hours: "CH"}

		_, err := ingest.Normalize(tbl, base, "Outros")
		So(errors.Is(err, ingest.ErrDateSource), ShouldBeTrue)

		both := base
		both.DateColumn = "Data"
		both.ManualDate = model.NewDate(2024, 1, 1)
		_, err = ingest.Normalize(tbl, both, "Outros")
		So(errors.Is(err, ingest.ErrDateSource), ShouldBeTrue)

		unknown := base
		unknown.DateColumn = "Quando"
		_, err = ingest.Normalize(tbl, unknown, "Outros")
		So(errors.Is(err, ingest.ErrUnknownColumn), ShouldBeTrue)

		partial := base
		partial.Hours = ""
		partial.DateColumn = "Data"
		_, err = ingest.Normalize(tbl, partial, "Outros")
		So(errors.Is(err, ingest.ErrIncompleteMapping), ShouldBeTrue)
	})
}
