package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/adapters/http/api"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/adapters/ingest"
	service "github.com/ShahinHasanov90/TAGS-Matching/internal/app"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/filter"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/network"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/stats"
	"github.com/ShahinHasanov90/TAGS-Matching/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const analysisBody = `{
  "max_minutes": 30,
  "primary": {"name": "a.csv", "records": [
    {"person_id": "A", "timestamp": "01.01.2024 10:00", "direction": "Giriş", "checkpoint": "X"},
    {"person_id": "A", "timestamp": "02.01.2024 18:00", "direction": "Çıxış", "checkpoint": "X"}
  ]},
  "comparisons": [
    {"name": "b.csv", "records": [
      {"person_id": "B", "timestamp": "2024-01-01T10:20:00Z", "direction": "entry", "checkpoint": "X"},
      {"person_id": "B", "timestamp": "02.01.2024 18:05", "direction": "exit", "checkpoint": "X"}
    ]},
    {"name": "bad.csv", "records": [
      {"person_id": "C", "timestamp": "yesterday", "direction": "entry", "checkpoint": "X"}
    ]}
  ]
}`

type analysisResponse struct {
	Results struct {
		RunID    string            `json:"run_id"`
		Entry    []json.RawMessage `json:"entry"`
		Exit     []json.RawMessage `json:"exit"`
		Complete []json.RawMessage `json:"complete"`
	} `json:"results"`
	Failures []model.PerFileFailure `json:"failures"`
}

type resultsBody struct {
	RunID    string           `json:"run_id"`
	Category string           `json:"category"`
	Count    int              `json:"count"`
	Matches  []map[string]any `json:"matches"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newMux(deps api.Dependencies) *http.ServeMux {
	server := api.NewServer(deps,
		api.WithReader(ingest.NewReader(ingest.WithLocation(time.UTC))),
		api.WithClock(func() time.Time { return time.Date(2024, 1, 2, 20, 0, 0, 0, time.UTC) }),
		api.WithMaxBodyBytes(4096),
		api.WithLogger(logger.Discard()),
	)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Analyses(t *testing.T) {
	Convey("Given an API server over a fresh service", t, func() {
		svc := service.New(service.WithLogger(logger.Discard()))
		mux := newMux(svc)

		Convey("When nothing has been analysed", func() {
			w := serve(mux, http.MethodGet, "/results/entry", "")

			Convey("Then results are not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				var body errorBody
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Code, ShouldEqual, "not_found")
				So(serve(mux, http.MethodGet, "/summary", "").Code, ShouldEqual, http.StatusNotFound)
				So(serve(mux, http.MethodGet, "/network", "").Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When an analysis is posted", func() {
			w := serve(mux, http.MethodPost, "/analyses", analysisBody)

			Convey("Then the snapshot is returned with the bad dataset as a failure", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body analysisResponse
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Results.RunID, ShouldNotBeEmpty)
				So(body.Results.Entry, ShouldHaveLength, 1)
				So(body.Results.Exit, ShouldHaveLength, 1)
				So(body.Results.Complete, ShouldHaveLength, 1)
				So(body.Failures, ShouldHaveLength, 1)
				So(body.Failures[0].File, ShouldEqual, "bad.csv")
				So(body.Failures[0].Reason, ShouldContainSubstring, "record 0")
			})

			Convey("Then the entry bucket can be queried", func() {
				r := serve(mux, http.MethodGet, "/results/entry?band=15%2B&checkpoint=X", "")
				So(r.Code, ShouldEqual, http.StatusOK)
				var body resultsBody
				So(json.Unmarshal(r.Body.Bytes(), &body), ShouldBeNil)
				So(body.Category, ShouldEqual, "entry")
				So(body.Count, ShouldEqual, 1)
				So(body.Matches[0]["person_a"], ShouldEqual, "A")
				So(body.Matches[0]["minutes_apart"], ShouldEqual, float64(20))
			})

			Convey("Then filters can exclude everything", func() {
				r := serve(mux, http.MethodGet, "/results/complete?recency=today", "")
				So(r.Code, ShouldEqual, http.StatusOK)
				var body resultsBody
				So(json.Unmarshal(r.Body.Bytes(), &body), ShouldBeNil)
				So(body.Count, ShouldEqual, 0)
				So(body.Matches, ShouldBeEmpty)
			})

			Convey("Then bad queries are rejected", func() {
				So(serve(mux, http.MethodGet, "/results/transit", "").Code, ShouldEqual, http.StatusBadRequest)
				So(serve(mux, http.MethodGet, "/results/entry?band=1-2", "").Code, ShouldEqual, http.StatusBadRequest)
				So(serve(mux, http.MethodGet, "/results/entry?recency=month", "").Code, ShouldEqual, http.StatusBadRequest)
				So(serve(mux, http.MethodGet, "/results/", "").Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then summary, network and stats are served", func() {
				s := serve(mux, http.MethodGet, "/summary", "")
				So(s.Code, ShouldEqual, http.StatusOK)
				var sum stats.Summary
				So(json.Unmarshal(s.Body.Bytes(), &sum), ShouldBeNil)
				So(sum.Counts.Total, ShouldEqual, 3)

				n := serve(mux, http.MethodGet, "/network", "")
				So(n.Code, ShouldEqual, http.StatusOK)
				var net network.Network
				So(json.Unmarshal(n.Body.Bytes(), &net), ShouldBeNil)
				So(net.Edges, ShouldHaveLength, 1)
				So(net.Edges[0].Weight, ShouldEqual, 3)

				st := serve(mux, http.MethodGet, "/stats", "")
				So(st.Code, ShouldEqual, http.StatusOK)
				So(st.Body.String(), ShouldContainSubstring, `"has_results":true`)
			})
		})

		Convey("When the request is invalid", func() {
			So(serve(mux, http.MethodPost, "/analyses", `{`).Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodPost, "/analyses", `{"primary":{"records":[]}}`).Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodPost, "/analyses", strings.Replace(analysisBody, `"max_minutes": 30`, `"max_minutes": 61`, 1)).Code,
				ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodPost, "/analyses", strings.Replace(analysisBody, `"01.01.2024 10:00"`, `"soon"`, 1)).Code,
				ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodPost, "/analyses", `{"pad":"`+strings.Repeat("x", 5000)+`"}`).Code,
				ShouldEqual, http.StatusRequestEntityTooLarge)
			So(serve(mux, http.MethodGet, "/analyses", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When health and metrics are requested", func() {
			h := serve(mux, http.MethodGet, "/healthz", "")
			So(h.Code, ShouldEqual, http.StatusOK)
			So(h.Body.String(), ShouldContainSubstring, `"status":"ok"`)

			m := serve(mux, http.MethodGet, "/metrics", "")
			So(m.Code, ShouldEqual, http.StatusOK)
			So(m.Body.String(), ShouldContainSubstring, "tags_matching_http_requests_total")
		})
	})
}

type failingDeps struct {
	*service.Service
	runErr error
	getErr error
}

func (f failingDeps) Run(context.Context, []model.EventRecord, []model.Source, int) (service.Snapshot, error) {
	return service.Snapshot{}, f.runErr
}

func (f failingDeps) Latest() (service.Snapshot, error) { return service.Snapshot{}, f.getErr }

func (f failingDeps) Query(model.Category, filter.Query) ([]model.Match, error) {
	return nil, f.getErr
}

func TestServer_RunErrors(t *testing.T) {
	Convey("Given a service that reports run errors", t, func() {
		base := service.New(service.WithLogger(logger.Discard()))
		cases := []struct {
			name   string
			err    error
			status int
			code   string
		}{
			{"superseded", service.ErrSuperseded, http.StatusConflict, "superseded"},
			{"cancelled", context.Canceled, http.StatusServiceUnavailable, "cancelled"},
			{"internal", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
		}
		for _, tc := range cases {
			mux := newMux(failingDeps{Service: base, runErr: tc.err, getErr: tc.err})
			w := serve(mux, http.MethodPost, "/analyses", analysisBody)

			Convey("Then a "+tc.name+" run maps to its status", func() {
				So(w.Code, ShouldEqual, tc.status)
				var body errorBody
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Code, ShouldEqual, tc.code)
			})
		}

		Convey("Then read failures other than missing results are internal errors", func() {
			mux := newMux(failingDeps{Service: base, getErr: errors.New("boom")})
			So(serve(mux, http.MethodGet, "/results/exit", "").Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestServer_RegisterNilMux(t *testing.T) {
	Convey("Given a server", t, func() {
		server := api.NewServer(service.New())
		So(func() { server.Register(context.Background(), nil) }, ShouldPanic)
	})
}
