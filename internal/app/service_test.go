package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	app "github.com/okian/pachi/internal/app"
	"github.com/okian/pachi/internal/adapters/store"
	"github.com/okian/pachi/internal/latency"
	"github.com/okian/pachi/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// eventually polls cond until it holds or the deadline passes.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func newService(t *testing.T, opts ...app.Option) *app.Service {
	t.Helper()
	base := []app.Option{
		app.WithDataFile(filepath.Join(t.TempDir(), "player_data.json")),
		app.WithLatencyPolicy(latency.None()),
	}
	return app.New(append(base, opts...)...)
}

func TestEndToEndCrediting(t *testing.T) {
	Convey("Given a started service with a batch size of 2", t, func() {
		ctx := context.Background()
		svc := newService(t, app.WithBatchPolicy(2, time.Minute))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When two valid rewards are scored", func() {
			svc.OnScored(ctx, 10, "B1", 1)
			svc.OnScored(ctx, 20, "B2", 2)

			Convey("Then the flush fires automatically and the wallet gains 30", func() {
				So(eventually(func() bool {
					balance, err := svc.Wallet(ctx)
					return err == nil && balance == 30
				}), ShouldBeTrue)
			})
		})

		Convey("When the same event is scored twice before any flush", func() {
			svc.OnScored(ctx, 15, "B1", 5)
			svc.OnScored(ctx, 15, "B1", 5)

			Convey("Then the wallet gains 15, not 30", func() {
				So(eventually(func() bool {
					balance, err := svc.Wallet(ctx)
					return err == nil && balance == 15
				}), ShouldBeTrue)
			})
		})

		Convey("When a negative score is submitted", func() {
			svc.OnScored(ctx, -5, "B1", 9)
			svc.OnLevelCompleted(ctx)

			Convey("Then nothing reaches the wallet", func() {
				time.Sleep(50 * time.Millisecond)
				balance, err := svc.Wallet(ctx)
				So(err, ShouldBeNil)
				So(balance, ShouldEqual, 0)
			})
		})
	})
}

func TestTimeBasedFlush(t *testing.T) {
	Convey("Given a service with a short batch interval", t, func() {
		ctx := context.Background()
		svc := newService(t, app.WithBatchPolicy(20, 100*time.Millisecond))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When one reward sits idle past the interval", func() {
			svc.OnScored(ctx, 42, "B1", 1)

			Convey("Then the time trigger flushes it", func() {
				So(eventually(func() bool {
					balance, err := svc.Wallet(ctx)
					return err == nil && balance == 42
				}), ShouldBeTrue)
			})
		})
	})
}

func TestExpiredSessionOnLoad(t *testing.T) {
	Convey("Given a persisted record whose reset timestamp is 20 minutes old", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "player_data.json")
		fs := store.NewFileStore(store.WithPath(path), store.WithBallAllowance(50))

		stale := store.DefaultState(50)
		stale.Balance = 900
		stale.Level = 6
		stale.RoundScore = 777
		stale.LastResetUTC = time.Now().UTC().Add(-20 * time.Minute).Format(time.RFC3339Nano)
		So(fs.Save(ctx, stale), ShouldBeNil)

		Convey("When the service starts with a 15 minute window", func() {
			svc := app.New(
				app.WithStore(fs),
				app.WithLatencyPolicy(latency.None()),
				app.WithResetWindow(15*time.Minute),
				app.WithBallAllowance(50),
			)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("Then the session was hard reset immediately", func() {
				snap, err := svc.SessionSnapshot(ctx)
				So(err, ShouldBeNil)
				So(snap.Session.Level, ShouldEqual, 1)
				So(snap.Session.RoundScore, ShouldEqual, 0)
				So(snap.Session.BallsRemaining, ShouldEqual, 50)

				Convey("And the balance was preserved", func() {
					So(snap.Balance, ShouldEqual, 900)
				})
			})

			Convey("And the startup wallet sync seeded the balance", func() {
				balance, err := svc.Wallet(ctx)
				So(err, ShouldBeNil)
				So(balance, ShouldEqual, 900)
			})
		})
	})
}

func TestReportGameState(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newService(t)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When gameplay reports session bookkeeping", func() {
			So(svc.ReportGameState(ctx, 3, 40, 120, 6), ShouldBeNil)

			Convey("Then the snapshot reflects it", func() {
				snap, err := svc.SessionSnapshot(ctx)
				So(err, ShouldBeNil)
				So(snap.Session.Level, ShouldEqual, 3)
				So(snap.Session.BallsRemaining, ShouldEqual, 40)
				So(snap.Session.RoundScore, ShouldEqual, 120)
				So(snap.Session.BallsScoredThisLevel, ShouldEqual, 6)
			})
		})
	})
}

func TestStats(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := newService(t)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When reading stats", func() {
			stats := svc.GetStats(ctx)

			Convey("Then the core figures are present", func() {
				So(stats["started"], ShouldBeTrue)
				So(stats, ShouldContainKey, "pendingRewards")
				So(stats, ShouldContainKey, "walletBalance")
				So(stats, ShouldContainKey, "optimisticBalance")
			})
		})
	})
}
