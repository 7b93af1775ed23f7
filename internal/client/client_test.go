package client_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/formacao/internal/adapters/advisor"
	"github.com/okian/formacao/internal/adapters/http/api"
	service "github.com/okian/formacao/internal/app"
	"github.com/okian/formacao/internal/client"
	"github.com/okian/formacao/internal/domain/ingest"
	"github.com/okian/formacao/internal/domain/model"
	"github.com/okian/formacao/internal/domain/report"
	"github.com/okian/formacao/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type echoAssistant struct{ key string }

func (e *echoAssistant) Ask(_ context.Context, apiKey, _, question string) advisor.Result {
	e.key = apiKey
	return advisor.Result{Text: "eco: " + question, Outcome: advisor.OutcomeOK}
}

func (e *echoAssistant) Classify(_ context.Context, apiKey, _ string) advisor.Result {
	e.key = apiKey
	return advisor.Result{Text: "Alfabetização", Outcome: advisor.OutcomeOK}
}

const sheet = "Nome;Escola;Curso;CH\n" +
	"Ana;E1;Curso A;8\n" +
	"Bia;E2;Curso B;2,5\n" +
	"Ana;E1;Curso B;1\n"

func newClient(t *testing.T) (*client.Client, *echoAssistant) {
	t.Helper()
	stub := &echoAssistant{}
	svc := service.New(
		service.WithDBPath(filepath.Join(t.TempDir(), "client.db")),
		service.WithAssistant(stub),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, svc, 1<<20).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return client.New(srv.URL+"/", client.WithAPIKey("k-1")), stub
}

func TestClientRoundTrip(t *testing.T) {
	Convey("Given a client bound to a running server", t, func() {
		c, stub := newClient(t)
		ctx := context.Background()

		Convey("Preview returns headers", func() {
			p, err := c.Preview(ctx, "p.csv", strings.NewReader(sheet))
			So(err, ShouldBeNil)
			So(p.Headers, ShouldResemble, []string{"Nome", "Escola", "Curso", "CH"})
			So(p.TotalRows, ShouldEqual, 3)
		})

		Convey("Ingest then reports reflect the upload", func() {
			m := ingest.Mapping{
				Person: "Nome", Organization: "Escola", Event: "Curso", Hours: "CH",
				ManualDate: model.NewDate(2024, 5, 10),
			}
			rep, err := c.Ingest(ctx, "p.csv", strings.NewReader(sheet), m, true)
			So(err, ShouldBeNil)
			So(rep.Inserted, ShouldEqual, 3)
			So(rep.Classified, ShouldEqual, 2)
			So(stub.key, ShouldEqual, "k-1")

			recs, err := c.Records(ctx)
			So(err, ShouldBeNil)
			So(recs, ShouldHaveLength, 3)
			So(recs[0].EventDate.String(), ShouldEqual, "2024-05-10")
			So(recs[0].Category, ShouldEqual, "Alfabetização")

			sum, err := c.Summary(ctx)
			So(err, ShouldBeNil)
			So(sum.TotalHours, ShouldEqual, 11.5)

			top, err := c.Top(ctx, report.ByOrganization, report.MeasureHours, 1)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 1)
			So(top[0].Group, ShouldEqual, "E1")

			all, err := c.Top(ctx, report.ByEvent, report.MeasureCount, 0)
			So(err, ShouldBeNil)
			So(all, ShouldHaveLength, 2)

			d, err := c.Detail(ctx, report.ByPerson, "Ana")
			So(err, ShouldBeNil)
			So(d.TotalHours, ShouldEqual, 9)

			var buf bytes.Buffer
			So(c.ExportCSV(ctx, &buf, report.ByOrganization), ShouldBeNil)
			So(buf.String(), ShouldEqual, "organization,total_hours\nE1,9\nE2,2.5\n")

			ans, err := c.Ask(ctx, "quem lidera?")
			So(err, ShouldBeNil)
			So(ans.Text, ShouldEqual, "eco: quem lidera?")
			So(ans.Outcome, ShouldEqual, "ok")

			So(c.DeleteRecord(ctx, recs[0].ID), ShouldBeNil)
			n, err := c.ClearRecords(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
		})

		Convey("Server errors decode into APIError", func() {
			err := c.DeleteRecord(ctx, 999)
			var apiErr *client.APIError
			So(errors.As(err, &apiErr), ShouldBeTrue)
			So(apiErr.Status, ShouldEqual, http.StatusNotFound)
			So(apiErr.Code, ShouldEqual, "not_found")

			_, err = c.Ask(ctx, "alguma coisa")
			So(errors.As(err, &apiErr), ShouldBeTrue)
			So(apiErr.Status, ShouldEqual, http.StatusConflict)
		})

		Convey("Uploads need a file name", func() {
			_, err := c.Preview(ctx, " ", strings.NewReader(sheet))
			So(errors.Is(err, client.ErrMissingFile), ShouldBeTrue)
		})
	})
}
