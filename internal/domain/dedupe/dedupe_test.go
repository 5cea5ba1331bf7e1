package dedupe_test

import (
	"context"
	"sync"
	"testing"

	dedupe "github.com/okian/pachi/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryTracker(t *testing.T) {
	Convey("Given a new tracker", t, func() {
		ctx := context.Background()

		Convey("When created with default options", func() {
			tr := dedupe.NewInMemoryTracker()

			Convey("Then it should start empty", func() {
				So(tr, ShouldNotBeNil)
				So(tr.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording event ids", func() {
			tr := dedupe.NewInMemoryTracker()

			Convey("And the id is new", func() {
				seen := tr.SeenAndRecord(ctx, 101)

				Convey("Then it should return false and record the id", func() {
					So(seen, ShouldBeFalse)
					So(tr.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id was already seen", func() {
				tr.SeenAndRecord(ctx, 101)
				seen := tr.SeenAndRecord(ctx, 101)

				Convey("Then it should return true without growing", func() {
					So(seen, ShouldBeTrue)
					So(tr.Size(), ShouldEqual, 1)
				})
			})

			Convey("And multiple ids are recorded", func() {
				ids := []int64{1, 2, 3, 4, 5}
				for _, id := range ids {
					So(tr.SeenAndRecord(ctx, id), ShouldBeFalse)
				}

				Convey("Then all ids should be seen on replay", func() {
					So(tr.Size(), ShouldEqual, int64(len(ids)))
					for _, id := range ids {
						So(tr.SeenAndRecord(ctx, id), ShouldBeTrue)
					}
				})
			})
		})

		Convey("When snapshotting", func() {
			tr := dedupe.NewInMemoryTracker()
			for _, id := range []int64{9, 3, 7, 1} {
				tr.SeenAndRecord(ctx, id)
			}

			Convey("Then ids come back in ascending order", func() {
				So(tr.Snapshot(ctx), ShouldResemble, []int64{1, 3, 7, 9})
			})
		})

		Convey("When restoring from a persisted set", func() {
			tr := dedupe.NewInMemoryTracker()
			tr.SeenAndRecord(ctx, 42)
			tr.Restore(ctx, []int64{10, 20, 30})

			Convey("Then only the restored ids are seen", func() {
				So(tr.Size(), ShouldEqual, 3)
				So(tr.SeenAndRecord(ctx, 10), ShouldBeTrue)
				So(tr.SeenAndRecord(ctx, 42), ShouldBeFalse)
			})
		})

		Convey("When resetting", func() {
			tr := dedupe.NewInMemoryTracker()
			tr.SeenAndRecord(ctx, 1)
			tr.SeenAndRecord(ctx, 2)
			tr.Reset(ctx)

			Convey("Then the set is empty and ids can be re-recorded", func() {
				So(tr.Size(), ShouldEqual, 0)
				So(tr.SeenAndRecord(ctx, 1), ShouldBeFalse)
			})
		})

		Convey("When bounded with a max size", func() {
			tr := dedupe.NewInMemoryTracker(dedupe.WithMaxSize(3))
			for id := int64(1); id <= 5; id++ {
				tr.SeenAndRecord(ctx, id)
			}

			Convey("Then the oldest ids were evicted", func() {
				So(tr.Size(), ShouldEqual, 3)
				So(tr.SeenAndRecord(ctx, 1), ShouldBeFalse) // evicted, re-recorded
			})
		})

		Convey("When accessed concurrently", func() {
			tr := dedupe.NewInMemoryTracker()
			var wg sync.WaitGroup
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func(base int64) {
					defer wg.Done()
					for i := int64(0); i < 100; i++ {
						tr.SeenAndRecord(ctx, base*1000+i)
					}
				}(int64(g))
			}
			wg.Wait()

			Convey("Then every id was recorded exactly once", func() {
				So(tr.Size(), ShouldEqual, 800)
			})
		})
	})
}
