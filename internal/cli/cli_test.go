package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ShahinHasanov90/TAGS-Matching/internal/adapters/ingest"
	service "github.com/ShahinHasanov90/TAGS-Matching/internal/app"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/config"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v3"
)

var day = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(d, hh, mm int) time.Time {
	return day.AddDate(0, 0, d).Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

func rec(person string, ts time.Time, dir model.Direction, cp string) model.EventRecord {
	return model.EventRecord{PersonID: person, Timestamp: ts, Direction: dir, Checkpoint: cp}
}

// writeLogs writes A's trip as primary.csv, B (both ways) as b.csv and
// C (entry only) as c.csv.
func writeLogs(t *testing.T) (dir string) {
	dir = t.TempDir()
	r := ingest.NewReader(ingest.WithLocation(time.UTC))
	logs := map[string][]model.EventRecord{
		"primary.csv": {
			rec("A", at(0, 10, 0), model.Entry, "X"),
			rec("A", at(1, 18, 0), model.Exit, "X"),
		},
		"b.csv": {
			rec("B", at(0, 10, 20), model.Entry, "X"),
			rec("B", at(1, 18, 5), model.Exit, "X"),
		},
		"c.csv": {
			rec("C", at(0, 9, 58), model.Entry, "X"),
		},
	}
	for name, recs := range logs {
		var buf bytes.Buffer
		if err := r.WriteCSV(&buf, recs); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Setenv("TAGS_TIME_ZONE", "UTC")
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

type analyzeOutput struct {
	RunID      string `json:"run_id"`
	MaxMinutes int    `json:"max_minutes"`
	Results    *struct {
		Entry    []map[string]any `json:"entry"`
		Exit     []map[string]any `json:"exit"`
		Complete []map[string]any `json:"complete"`
	} `json:"results"`
	Category     string                 `json:"category"`
	Matches      []map[string]any       `json:"matches"`
	Failures     []model.PerFileFailure `json:"failures"`
	Verification []FileCheck            `json:"verification"`
}

func TestRootCommand(t *testing.T) {
	Convey("Given the root command", t, func() {
		cmd := NewRootCommand()

		Convey("Then every subcommand is registered", func() {
			names := []string{}
			for _, c := range cmd.Commands() {
				names = append(names, c.Name())
			}
			So(names, ShouldContain, "serve")
			So(names, ShouldContain, "analyze")
			So(names, ShouldContain, "generate")
		})

		Convey("Then the global flags exist", func() {
			So(cmd.PersistentFlags().Lookup("format"), ShouldNotBeNil)
			So(cmd.PersistentFlags().Lookup("verbose"), ShouldNotBeNil)
		})

		Convey("Then the analyze flags exist", func() {
			analyze, _, err := cmd.Find([]string{"analyze"})
			So(err, ShouldBeNil)
			for _, f := range []string{"primary", "compare", "max-minutes", "category", "query", "band", "checkpoint", "recency", "verify", "workers"} {
				So(analyze.Flags().Lookup(f), ShouldNotBeNil)
			}
		})
	})
}

func TestAnalyzeCommand(t *testing.T) {
	Convey("Given a primary log and two comparison logs", t, func() {
		dir := writeLogs(t)
		base := []string{
			"analyze",
			"--primary", filepath.Join(dir, "primary.csv"),
			"--compare", filepath.Join(dir, "b.csv") + "," + filepath.Join(dir, "c.csv"),
		}

		Convey("When analysed with JSON output", func() {
			out, err := execute(t, append(base, "--max-minutes", "30", "--format", "json")...)
			So(err, ShouldBeNil)

			var got analyzeOutput
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)

			Convey("Then the buckets are ranked by gap", func() {
				So(got.RunID, ShouldNotBeEmpty)
				So(got.MaxMinutes, ShouldEqual, 30)
				So(got.Results, ShouldNotBeNil)
				So(got.Results.Entry, ShouldHaveLength, 2)
				So(got.Results.Entry[0]["person_b"], ShouldEqual, "C")
				So(got.Results.Entry[1]["person_b"], ShouldEqual, "B")
				So(got.Results.Exit, ShouldHaveLength, 1)
				So(got.Results.Complete, ShouldHaveLength, 1)
				So(got.Results.Complete[0]["entry_date"], ShouldEqual, "01.01.2024")
				So(got.Results.Complete[0]["exit_date"], ShouldEqual, "02.01.2024")
				So(got.Failures, ShouldBeEmpty)
			})
		})

		Convey("When a bucket is filtered", func() {
			out, err := execute(t, append(base, "--format", "json", "--category", "entry", "--band", "15+")...)
			So(err, ShouldBeNil)

			var got analyzeOutput
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got.Results, ShouldBeNil)
			So(got.Category, ShouldEqual, "entry")
			So(got.Matches, ShouldHaveLength, 1)
			So(got.Matches[0]["person_b"], ShouldEqual, "B")
			So(got.Matches[0]["minutes_apart"], ShouldEqual, float64(20))
		})

		Convey("When the tolerance excludes B", func() {
			out, err := execute(t, append(base, "--format", "json", "--max-minutes", "5")...)
			So(err, ShouldBeNil)

			var got analyzeOutput
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got.Results.Entry, ShouldHaveLength, 1)
			So(got.Results.Exit, ShouldHaveLength, 1)
			So(got.Results.Complete, ShouldBeEmpty)
		})

		Convey("When verification is requested", func() {
			out, err := execute(t, append(base, "--format", "json", "--verify")...)
			So(err, ShouldBeNil)

			var got analyzeOutput
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got.Verification, ShouldHaveLength, 2)
			for _, chk := range got.Verification {
				So(chk.Match, ShouldBeTrue)
			}
			So(got.Verification[0].File, ShouldEqual, "b.csv")
			So(got.Verification[0].Entry, ShouldEqual, 1)
			So(got.Verification[0].Exit, ShouldEqual, 1)
		})

		Convey("When a comparison file is missing", func() {
			args := []string{
				"analyze", "--format", "json",
				"--primary", filepath.Join(dir, "primary.csv"),
				"--compare", filepath.Join(dir, "b.csv") + "," + filepath.Join(dir, "missing.csv"),
			}
			out, err := execute(t, args...)
			So(err, ShouldBeNil)

			var got analyzeOutput
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got.Results.Complete, ShouldHaveLength, 1)
			So(got.Failures, ShouldHaveLength, 1)
			So(got.Failures[0].File, ShouldEqual, "missing.csv")
		})

		Convey("When rendered as text", func() {
			out, err := execute(t, base...)
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "ENTRY (2)")
			So(out, ShouldContainSubstring, "EXIT (1)")
			So(out, ShouldContainSubstring, "COMPLETE (1)")
			So(out, ShouldContainSubstring, "10:00-10:20")
		})

		Convey("When rendered as YAML", func() {
			out, err := execute(t, append(base, "--format", "yaml")...)
			So(err, ShouldBeNil)

			var got map[string]any
			So(yaml.Unmarshal([]byte(out), &got), ShouldBeNil)
			So(got["run_id"], ShouldNotBeEmpty)
			So(got["results"], ShouldNotBeNil)
		})
	})
}

func TestAnalyzeErrors(t *testing.T) {
	Convey("Given invalid invocations", t, func() {
		dir := writeLogs(t)
		primary := filepath.Join(dir, "primary.csv")
		compare := filepath.Join(dir, "b.csv")

		cases := []struct {
			name string
			args []string
		}{
			{"max minutes above range", []string{"analyze", "--primary", primary, "--compare", compare, "--max-minutes", "90"}},
			{"negative max minutes", []string{"analyze", "--primary", primary, "--compare", compare, "--max-minutes", "-1"}},
			{"explicit zero max minutes", []string{"analyze", "--primary", primary, "--compare", compare, "--max-minutes", "0"}},
			{"unknown format", []string{"analyze", "--primary", primary, "--compare", compare, "--format", "xml"}},
			{"unknown category", []string{"analyze", "--primary", primary, "--compare", compare, "--category", "transit"}},
			{"unknown band", []string{"analyze", "--primary", primary, "--compare", compare, "--band", "1-2"}},
			{"missing primary file", []string{"analyze", "--primary", filepath.Join(dir, "nope.csv"), "--compare", compare}},
			{"unknown flag", []string{"analyze", "--primary", primary, "--compare", compare, "--colour"}},
		}
		for _, tc := range cases {
			Convey("Then "+tc.name+" exits with the command error code", func() {
				_, err := execute(t, tc.args...)
				So(err, ShouldNotBeNil)
				So(GetExitCode(err), ShouldEqual, ExitCommandError)
			})
		}
	})
}

func TestGenerateThenAnalyze(t *testing.T) {
	Convey("Given generated logs", t, func() {
		dir := t.TempDir()
		out, err := execute(t,
			"generate", "--format", "json", "--out-dir", dir,
			"--seed", "7", "--primary-persons", "4", "--trips", "2",
			"--comparisons", "2", "--background", "15", "--companions", "3",
			"--max-gap", "20", "--start", "2024-03-01",
		)
		So(err, ShouldBeNil)

		var gen GenerateReport
		So(json.Unmarshal([]byte(out), &gen), ShouldBeNil)
		So(gen.Primary, ShouldEqual, PrimaryFileName)
		So(gen.Comparisons, ShouldResemble, []string{"comparison_01.csv", "comparison_02.csv"})
		So(gen.Planted, ShouldHaveLength, 6)
		So(gen.Records, ShouldEqual, 4*2*2+2*(15+3)*2)

		Convey("When analysed with a tolerance above the largest gap", func() {
			compare := make([]string, 0, len(gen.Comparisons))
			for _, c := range gen.Comparisons {
				compare = append(compare, filepath.Join(dir, c))
			}
			out, err := execute(t,
				"analyze", "--format", "json", "--verify", "--max-minutes", "20",
				"--primary", filepath.Join(dir, PrimaryFileName),
				"--compare", strings.Join(compare, ","),
			)
			So(err, ShouldBeNil)

			var got analyzeOutput
			So(json.Unmarshal([]byte(out), &got), ShouldBeNil)

			Convey("Then every planted co-traveler is a complete match", func() {
				found := map[string]bool{}
				for _, m := range got.Results.Complete {
					found[fmt.Sprintf("%v/%v", m["person_a"], m["person_b"])] = true
				}
				for _, p := range gen.Planted {
					So(found[p.Primary+"/"+p.Companion], ShouldBeTrue)
				}
				for _, chk := range got.Verification {
					So(chk.Match, ShouldBeTrue)
				}
			})
		})
	})

	Convey("Given an invalid generator configuration", t, func() {
		_, err := execute(t, "generate", "--out-dir", t.TempDir(), "--comparisons", "0")
		So(GetExitCode(err), ShouldEqual, ExitCommandError)
	})
}

func TestServeMux(t *testing.T) {
	Convey("Given the serve mux", t, func() {
		ctx := context.Background()
		svc := service.New()
		defer svc.Stop(ctx)
		mux := newMux(ctx, svc, config.New(), ingest.NewReader())

		get := func(path string) *httptest.ResponseRecorder {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
			return rr
		}

		Convey("Then documentation and API routes are served", func() {
			So(get("/healthz").Code, ShouldEqual, http.StatusOK)
			So(get("/metrics").Code, ShouldEqual, http.StatusOK)
			So(get("/openapi.yaml").Code, ShouldEqual, http.StatusOK)
			So(get("/stats").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then results are missing before the first run", func() {
			So(get("/results/entry").Code, ShouldEqual, http.StatusNotFound)
			So(get("/summary").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestExitError(t *testing.T) {
	Convey("Given exit errors", t, func() {
		So(GetExitCode(nil), ShouldEqual, ExitSuccess)
		So(GetExitCode(fmt.Errorf("plain")), ShouldEqual, ExitFailure)

		wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "load", os.ErrNotExist))
		So(GetExitCode(wrapped), ShouldEqual, ExitCommandError)
		So(wrapped.Error(), ShouldContainSubstring, "load")
		So(NewExitError(ExitFailure, "mismatch").Error(), ShouldEqual, "mismatch")
	})
}
