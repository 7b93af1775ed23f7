package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/formacao/internal/adapters/advisor"
	"github.com/okian/formacao/internal/adapters/http/api"
	service "github.com/okian/formacao/internal/app"
	"github.com/okian/formacao/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type cannedAssistant struct{}

func (cannedAssistant) Ask(_ context.Context, apiKey, _, _ string) advisor.Result {
	if apiKey == "" {
		return advisor.Result{Text: advisor.NoCredentialText, Outcome: advisor.OutcomeNoCredential, Err: advisor.ErrNoCredential}
	}
	return advisor.Result{Text: "E1 lidera.", Outcome: advisor.OutcomeOK}
}

func (cannedAssistant) Classify(_ context.Context, _, _ string) advisor.Result {
	return advisor.Result{Text: "Gestão Escolar", Outcome: advisor.OutcomeOK}
}

const sheet = "Professor,Escola,Formação,Carga\n" +
	"Ana,E1,Gestão,8\n" +
	"Bia,E2,Gestão,2\n"

func startServer(t *testing.T) string {
	t.Helper()
	svc := service.New(
		service.WithDBPath(filepath.Join(t.TempDir(), "ctl.db")),
		service.WithAssistant(cannedAssistant{}),
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
	return srv.URL
}

func execute(url string, args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--url", url, "--api-key", "k"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	Convey("Given a running server and a spreadsheet on disk", t, func() {
		url := startServer(t)
		file := filepath.Join(t.TempDir(), "presenca.csv")
		So(os.WriteFile(file, []byte(sheet), 0o600), ShouldBeNil)

		importArgs := []string{"import", file,
			"--person", "Professor", "--organization", "Escola",
			"--event", "Formação", "--hours", "Carga", "--date", "01/03/2024", "--classify"}

		Convey("preview lists the columns", func() {
			out, err := execute(url, "preview", file)
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "presenca.csv: 2 rows")
			So(out, ShouldContainSubstring, "Professor")
		})

		Convey("import stores the rows and reports the batch", func() {
			out, err := execute(url, importArgs...)
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "2 inserted, 0 dropped, 1 classified")

			out, err = execute(url, "records")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "Gestão Escolar")
			So(out, ShouldContainSubstring, "2024-03-01")

			out, err = execute(url, "summary")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "Horas")
			So(out, ShouldContainSubstring, "10")

			out, err = execute(url, "top", "--by", "escola", "-n", "1")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "E1")
			So(out, ShouldNotContainSubstring, "E2")

			out, err = execute(url, "detail", "Bia")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "Bia: 2 horas em 1 registros")

			out, err = execute(url, "export", "--by", "organization")
			So(err, ShouldBeNil)
			So(out, ShouldEqual, "organization,total_hours\nE1,8\nE2,2\n")

			out, err = execute(url, "ask", "quem", "lidera?")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "E1 lidera.")

			_, err = execute(url, "clear")
			So(err, ShouldEqual, errNeedConfirm)

			out, err = execute(url, "clear", "--yes")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "2 records deleted")
		})

		Convey("export can write to a file", func() {
			_, err := execute(url, importArgs...)
			So(err, ShouldBeNil)
			target := filepath.Join(t.TempDir(), "out.csv")
			_, err = execute(url, "export", "--by", "event", "-o", target)
			So(err, ShouldBeNil)
			data, err := os.ReadFile(target)
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "event,total_hours\nGestão,10\n")
		})

		Convey("import rejects both date sources", func() {
			_, err := execute(url, append(importArgs, "--date-column", "Carga")...)
			So(err, ShouldNotBeNil)
		})

		Convey("delete of a missing record fails", func() {
			_, err := execute(url, "delete", "42")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "404")
		})

		Convey("classify prints the suggested label", func() {
			out, err := execute(url, "classify", "Oficina", "de", "gestão")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "Gestão Escolar")
		})
	})
}

func TestParseDateFlag(t *testing.T) {
	Convey("Dates accept ISO and day-first forms", t, func() {
		d, err := parseDateFlag("2024-03-01")
		So(err, ShouldBeNil)
		So(d.String(), ShouldEqual, "2024-03-01")

		d, err = parseDateFlag("01/03/2024")
		So(err, ShouldBeNil)
		So(d.String(), ShouldEqual, "2024-03-01")

		_, err = parseDateFlag("ontem")
		So(err, ShouldNotBeNil)
	})
}
