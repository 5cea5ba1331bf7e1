package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/pachi/internal/adapters/store"
	"github.com/okian/pachi/internal/domain/model"
	"github.com/okian/pachi/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestFileStore(t *testing.T) {
	Convey("Given a file store in a temp directory", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		path := filepath.Join(dir, "player_data.json")
		fs := store.NewFileStore(
			store.WithPath(path),
			store.WithBallAllowance(50),
		)

		Convey("When loading with no record on disk", func() {
			state, err := fs.Load(ctx)

			Convey("Then defaults come back", func() {
				So(err, ShouldBeNil)
				So(state.Balance, ShouldEqual, 0)
				So(state.Level, ShouldEqual, 1)
				So(state.BallsRemaining, ShouldEqual, 50)
				So(state.LastResetUTC, ShouldBeEmpty)
				So(state.SessionRewards, ShouldBeEmpty)
			})
		})

		Convey("When saving and reloading a record", func() {
			saved := store.DefaultState(50)
			saved.Balance = 1234
			saved.Level = 3
			saved.LastResetUTC = time.Now().UTC().Format(time.RFC3339Nano)
			saved.SessionRewards = []model.RewardPackage{
				model.NewRewardPackage(10, "Bucket_1", 1),
			}
			saved.ProcessedEventIDs = []int64{1}

			So(fs.Save(ctx, saved), ShouldBeNil)

			state, err := fs.Load(ctx)

			Convey("Then the record round-trips", func() {
				So(err, ShouldBeNil)
				So(state.Balance, ShouldEqual, 1234)
				So(state.Level, ShouldEqual, 3)
				So(state.ProcessedEventIDs, ShouldResemble, []int64{1})
				So(state.SessionRewards, ShouldHaveLength, 1)
				So(state.SessionRewards[0].SourceID, ShouldEqual, "Bucket_1")
			})
		})

		Convey("When the record on disk is corrupt", func() {
			So(os.WriteFile(path, []byte("{not json"), 0o600), ShouldBeNil)

			state, err := fs.Load(ctx)

			Convey("Then defaults come back without an error", func() {
				So(err, ShouldBeNil)
				So(state.Balance, ShouldEqual, 0)
				So(state.Level, ShouldEqual, 1)
			})
		})

		Convey("When saving a nil state", func() {
			Convey("Then it is rejected", func() {
				So(fs.Save(ctx, nil), ShouldEqual, store.ErrNilState)
			})
		})
	})
}

func TestResetTime(t *testing.T) {
	Convey("Given a persisted state", t, func() {
		Convey("When the reset timestamp is empty", func() {
			s := store.DefaultState(50)
			_, ok := s.ResetTime()

			Convey("Then it is treated as absent", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the reset timestamp fails strict parsing", func() {
			s := store.DefaultState(50)
			s.LastResetUTC = "yesterday-ish"
			_, ok := s.ResetTime()

			Convey("Then it is treated as absent", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the reset timestamp is a valid RFC 3339 instant", func() {
			now := time.Now().UTC()
			s := store.DefaultState(50)
			s.LastResetUTC = now.Format(time.RFC3339Nano)
			parsed, ok := s.ResetTime()

			Convey("Then it round-trips", func() {
				So(ok, ShouldBeTrue)
				So(parsed.Unix(), ShouldEqual, now.Unix())
			})
		})
	})
}
