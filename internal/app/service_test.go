package service_test

import (
	"context"
	"testing"
	"time"

	service "github.com/ShahinHasanov90/TAGS-Matching/internal/app"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/filter"
	"github.com/ShahinHasanov90/TAGS-Matching/internal/domain/model"
	"github.com/ShahinHasanov90/TAGS-Matching/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func newService() *service.Service {
	return service.New(
		service.WithLogger(logger.Discard()),
		service.WithAnalyzer(service.NewAnalyzer(service.WithWorkers(2), service.WithAnalyzerLogger(logger.Discard()))),
		service.WithClock(func() time.Time { return at(1, 20, 0) }),
	)
}

func TestService_Stop(t *testing.T) {
	Convey("Given a service with no run in flight", t, func() {
		svc := newService()

		Convey("Then stop returns at once and can be repeated", func() {
			So(svc.Stop(context.Background()), ShouldBeNil)
			So(svc.Stop(context.Background()), ShouldBeNil)
		})
	})
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it has no results yet", func() {
			_, err := svc.Latest()
			So(err, ShouldEqual, service.ErrNoResults)
			_, err = svc.Summary()
			So(err, ShouldEqual, service.ErrNoResults)
			_, err = svc.Query(model.CategoryEntry, filter.Query{})
			So(err, ShouldEqual, service.ErrNoResults)

			stats := svc.GetStats()
			So(stats["has_results"], ShouldEqual, false)
			So(stats["workers"], ShouldBeGreaterThan, 0)
		})
	})
}

func TestService_Run(t *testing.T) {
	Convey("Given a service", t, func() {
		svc := newService()
		ctx := context.Background()

		Convey("When a run completes", func() {
			snap, err := svc.Run(ctx, primaryLog(), []model.Source{travelerB(), travelerC(), brokenSource{name: "gone.csv"}}, 30)
			So(err, ShouldBeNil)

			Convey("Then it becomes the latest snapshot", func() {
				latest, err := svc.Latest()
				So(err, ShouldBeNil)
				So(latest.Results.RunID, ShouldEqual, snap.Results.RunID)
				So(latest.Failures, ShouldHaveLength, 1)
			})

			Convey("Then buckets can be queried", func() {
				entry, err := svc.Query(model.CategoryEntry, filter.Query{Text: "c"})
				So(err, ShouldBeNil)
				So(entry, ShouldHaveLength, 2)

				tight, err := svc.Query(model.CategoryEntry, filter.Query{Band: filter.Band0to5})
				So(err, ShouldBeNil)
				So(tight, ShouldHaveLength, 2)

				today, err := svc.Query(model.CategoryEntry, filter.Query{Recency: filter.RecencyToday})
				So(err, ShouldBeNil)
				So(today, ShouldBeEmpty)

				complete, err := svc.Query(model.CategoryComplete, filter.Query{Checkpoint: "X"})
				So(err, ShouldBeNil)
				So(complete, ShouldHaveLength, 1)

				_, err = svc.Query(model.Category(0), filter.Query{})
				So(err, ShouldEqual, model.ErrUnknownCategory)
			})

			Convey("Then summary, network and stats describe it", func() {
				sum, err := svc.Summary()
				So(err, ShouldBeNil)
				So(sum.RunID, ShouldEqual, snap.Results.RunID)
				So(sum.Counts.Entry, ShouldEqual, 3)

				net, err := svc.Network(ctx)
				So(err, ShouldBeNil)
				So(net.Groups, ShouldHaveLength, 1)
				So(net.Groups[0].Members, ShouldHaveLength, 3)

				stats := svc.GetStats()
				So(stats["has_results"], ShouldEqual, true)
				So(stats["runs"], ShouldEqual, int64(1))
				So(stats["complete"], ShouldEqual, 1)
				So(stats["file_failures"], ShouldEqual, 1)
			})
		})

		Convey("When a run is rejected", func() {
			_, err := svc.Run(ctx, primaryLog(), []model.Source{travelerB()}, 0)

			Convey("Then the previous state is kept", func() {
				So(err, ShouldWrap, service.ErrInvalidMaxMinutes)
				_, err = svc.Latest()
				So(err, ShouldEqual, service.ErrNoResults)
				So(svc.GetStats()["failed"], ShouldEqual, int64(1))
			})
		})

		Convey("When a newer run starts while one is in flight", func() {
			blocking := newBlockingSource("slow.csv")
			stale := make(chan error, 1)
			go func() {
				_, err := svc.Run(ctx, primaryLog(), []model.Source{blocking}, 30)
				stale <- err
			}()
			<-blocking.started

			fresh, err := svc.Run(ctx, primaryLog(), []model.Source{travelerB()}, 30)
			So(err, ShouldBeNil)

			Convey("Then the stale run is superseded and the newer one wins", func() {
				So(<-stale, ShouldEqual, service.ErrSuperseded)
				latest, err := svc.Latest()
				So(err, ShouldBeNil)
				So(latest.Results.RunID, ShouldEqual, fresh.Results.RunID)
				So(svc.GetStats()["superseded"], ShouldEqual, int64(1))
			})
		})

		Convey("When the service is stopped during a run", func() {
			blocking := newBlockingSource("slow.csv")
			done := make(chan error, 1)
			go func() {
				_, err := svc.Run(ctx, primaryLog(), []model.Source{blocking}, 30)
				done <- err
			}()
			<-blocking.started
			stopErr := svc.Stop(ctx)

			Convey("Then the run ends cancelled without a snapshot", func() {
				So(stopErr, ShouldBeNil)
				So(<-done, ShouldEqual, context.Canceled)
				_, err := svc.Latest()
				So(err, ShouldEqual, service.ErrNoResults)
			})
		})
	})
}
