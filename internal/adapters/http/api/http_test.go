package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/pachi/internal/adapters/http/api"
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

// stubDeps satisfies the handler dependencies with canned answers.
type stubDeps struct {
	balance   int64
	walletErr error
	snapshot  model.AccountSnapshot
	flushed   int
}

func (s *stubDeps) Wallet(ctx context.Context) (int64, error) {
	return s.balance, s.walletErr
}

func (s *stubDeps) SessionSnapshot(ctx context.Context) (model.AccountSnapshot, error) {
	return s.snapshot, nil
}

func (s *stubDeps) Flush(ctx context.Context) {
	s.flushed++
}

func (s *stubDeps) GetStats(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newMux(deps *stubDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(context.Background(), mux)
	return mux
}

func TestHealth(t *testing.T) {
	Convey("Given the ops API", t, func() {
		mux := newMux(&stubDeps{})

		Convey("When GET /healthz", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			Convey("Then it reports ok", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			})
		})
	})
}

func TestWallet(t *testing.T) {
	Convey("Given the ops API", t, func() {
		deps := &stubDeps{balance: 750}
		mux := newMux(deps)

		Convey("When GET /wallet", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet", nil))

			Convey("Then the authoritative balance comes back", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var body struct {
					Balance int64 `json:"balance"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body.Balance, ShouldEqual, 750)
			})
		})

		Convey("When the wallet read fails", func() {
			deps.walletErr = errors.New("store unavailable")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wallet", nil))

			Convey("Then a 500 with a coded body comes back", func() {
				So(rec.Code, ShouldEqual, http.StatusInternalServerError)
				So(rec.Body.String(), ShouldContainSubstring, "wallet_read_failed")
			})
		})

		Convey("When POST /wallet", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wallet", nil))

			Convey("Then the method is rejected", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestSession(t *testing.T) {
	Convey("Given the ops API with a session snapshot", t, func() {
		lastReset := time.Now().UTC().Truncate(time.Second)
		deps := &stubDeps{
			snapshot: model.AccountSnapshot{
				Balance:   300,
				LastReset: lastReset,
				Session: model.SessionRecord{
					Level:          4,
					BallsRemaining: 32,
					RoundScore:     180,
					SessionRewards: []model.RewardPackage{
						model.NewRewardPackage(25, "Bucket_2", 7),
					},
				},
			},
		}
		mux := newMux(deps)

		Convey("When GET /session", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/session", nil))

			Convey("Then the record comes back with the reset instant", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var body struct {
					Balance   int64  `json:"balance"`
					LastReset string `json:"lastReset"`
					Level     int64  `json:"level"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &body), ShouldBeNil)
				So(body.Balance, ShouldEqual, 300)
				So(body.Level, ShouldEqual, 4)
				So(body.LastReset, ShouldEqual, lastReset.Format(time.RFC3339Nano))
			})
		})
	})
}

func TestFlush(t *testing.T) {
	Convey("Given the ops API", t, func() {
		deps := &stubDeps{}
		mux := newMux(deps)

		Convey("When POST /flush", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/flush", nil))

			Convey("Then the trigger is acknowledged", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(deps.flushed, ShouldEqual, 1)
			})
		})

		Convey("When GET /flush", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/flush", nil))

			Convey("Then the method is rejected without flushing", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
				So(deps.flushed, ShouldEqual, 0)
			})
		})
	})
}

func TestStats(t *testing.T) {
	Convey("Given the ops API", t, func() {
		mux := newMux(&stubDeps{})

		Convey("When GET /stats", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

			Convey("Then the stats document comes back", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, `"started":true`)
			})
		})
	})
}

func TestMetricsEndpoint(t *testing.T) {
	Convey("Given the ops API", t, func() {
		mux := newMux(&stubDeps{})

		Convey("When GET /metrics", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Convey("Then the scrape endpoint answers", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}
