package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/markscard/internal/adapters/http/api"
	service "github.com/okian/markscard/internal/app"
	"github.com/okian/markscard/internal/domain/identity"
	"github.com/okian/markscard/internal/domain/report"
	"github.com/okian/markscard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

// stubDeps returns fixed errors and records the caller it saw.
type stubDeps struct {
	err    error
	caller identity.Identity
}

func (s *stubDeps) StoreReport(ctx context.Context, _ string, _, _ uint32) error {
	s.caller, _ = identity.FromContext(ctx)
	return s.err
}

func (s *stubDeps) GetMyReports(ctx context.Context) ([]report.Record, error) {
	s.caller, _ = identity.FromContext(ctx)
	return nil, s.err
}

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}}).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, path, caller, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if caller != "" {
		req.Header.Set(api.DefaultIdentityHeader, caller)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(&stubDeps{})

		Convey("Then health serves Prometheus text by default", func() {
			w := do(mux, http.MethodGet, "/healthz", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "markscard_reports")
		})

		Convey("Then health serves JSON when asked", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("Accept", "application/json")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then stats is served without a caller", func() {
			w := do(mux, http.MethodGet, "/stats", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then unknown paths are not found", func() {
			w := do(mux, http.MethodGet, "/unknown", "", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then a nil mux panics", func() {
			server := api.NewServer(&stubDeps{}, &mockStatsProvider{})
			So(func() { server.Register(context.Background(), nil) }, ShouldPanic)
		})
	})
}

func TestReports_EndToEnd(t *testing.T) {
	Convey("Given the API backed by a started service", t, func() {
		svc := service.New()
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		mux := newMux(svc)

		Convey("When alice stores two reports", func() {
			w1 := do(mux, http.MethodPost, "/reports", "alice", `{"studentName":"Bob","totalMarks":270,"numSubjects":3}`)
			w2 := do(mux, http.MethodPost, "/reports", "alice", `{"studentName":"Bob","totalMarks":180,"numSubjects":3}`)

			Convey("Then both are accepted", func() {
				So(w1.Code, ShouldEqual, http.StatusCreated)
				So(w2.Code, ShouldEqual, http.StatusCreated)
				So(w1.Body.String(), ShouldContainSubstring, `"status":"stored"`)
			})

			Convey("And alice reads them back in order", func() {
				w := do(mux, http.MethodGet, "/reports/mine", "alice", "")
				So(w.Code, ShouldEqual, http.StatusOK)

				var got []report.Record
				So(json.NewDecoder(w.Body).Decode(&got), ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].Grade, ShouldEqual, report.GradeA)
				So(float64(got[0].Average), ShouldEqual, 90.0)
				So(got[1].Grade, ShouldEqual, report.GradeC)
			})

			Convey("And bob sees an empty array", func() {
				w := do(mux, http.MethodGet, "/reports/mine", "bob", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When a report has zero subjects", func() {
			So(do(mux, http.MethodPost, "/reports", "carol", `{"studentName":"Z","totalMarks":0,"numSubjects":0}`).Code, ShouldEqual, http.StatusCreated)
			So(do(mux, http.MethodPost, "/reports", "carol", `{"studentName":"Z","totalMarks":5,"numSubjects":0}`).Code, ShouldEqual, http.StatusCreated)

			Convey("Then the non-finite averages are returned as strings", func() {
				w := do(mux, http.MethodGet, "/reports/mine", "carol", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"average":"NaN","grade":"D"`)
				So(w.Body.String(), ShouldContainSubstring, `"average":"Infinity","grade":"A"`)
			})
		})

		Convey("When the caller header is missing", func() {
			w := do(mux, http.MethodPost, "/reports", "", `{"studentName":"Bob","totalMarks":270,"numSubjects":3}`)

			Convey("Then the request is unauthenticated and nothing is stored", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(w.Body.String(), ShouldContainSubstring, `"code":"unauthenticated"`)
				So(svc.GetStats()["records"], ShouldEqual, 0)
			})

			Convey("And reads are refused too", func() {
				So(do(mux, http.MethodGet, "/reports/mine", "", "").Code, ShouldEqual, http.StatusUnauthorized)
				So(do(mux, http.MethodGet, "/reports/mine", "   ", "").Code, ShouldEqual, http.StatusUnauthorized)
			})
		})

		Convey("When the body tries to name a caller", func() {
			w := do(mux, http.MethodPost, "/reports", "alice", `{"caller":"bob","studentName":"Bob","totalMarks":270,"numSubjects":3}`)

			Convey("Then the unknown field is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(svc.GetStats()["records"], ShouldEqual, 0)
			})
		})
	})
}

func TestReports_BadRequests(t *testing.T) {
	Convey("Given the API", t, func() {
		deps := &stubDeps{}
		mux := newMux(deps)

		bodies := []struct{ name, body string }{
			{"invalid json", `{invalid`},
			{"negative marks", `{"studentName":"Bob","totalMarks":-1,"numSubjects":3}`},
			{"fractional marks", `{"studentName":"Bob","totalMarks":1.5,"numSubjects":3}`},
			{"overflowing marks", `{"studentName":"Bob","totalMarks":4294967296,"numSubjects":3}`},
			{"string subjects", `{"studentName":"Bob","totalMarks":10,"numSubjects":"3"}`},
			{"missing name", `{"totalMarks":10,"numSubjects":3}`},
			{"missing marks", `{"studentName":"Bob","numSubjects":3}`},
			{"missing subjects", `{"studentName":"Bob","totalMarks":10}`},
			{"trailing data", `{"studentName":"Bob","totalMarks":10,"numSubjects":3}{}`},
		}

		for _, tc := range bodies {
			Convey("When the body has "+tc.name, func() {
				w := do(mux, http.MethodPost, "/reports", "alice", tc.body)

				Convey("Then it is a bad request", func() {
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					So(w.Body.String(), ShouldContainSubstring, `"code":"bad_request"`)
				})
			})
		}

		Convey("When the name is empty and marks are at the uint32 limit", func() {
			w := do(mux, http.MethodPost, "/reports", "alice", `{"studentName":"","totalMarks":4294967295,"numSubjects":1}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
		})

		Convey("When the wrong method is used", func() {
			So(do(mux, http.MethodGet, "/reports", "alice", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/reports/mine", "alice", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestReports_ServiceErrors(t *testing.T) {
	Convey("Given a dependency that fails", t, func() {
		deps := &stubDeps{}
		mux := newMux(deps)
		body := `{"studentName":"Bob","totalMarks":1,"numSubjects":1}`

		Convey("When the service is not started", func() {
			deps.err = service.ErrNotStarted
			So(do(mux, http.MethodPost, "/reports", "alice", body).Code, ShouldEqual, http.StatusServiceUnavailable)
			So(do(mux, http.MethodGet, "/reports/mine", "alice", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the service sees no caller", func() {
			deps.err = service.ErrNoCaller
			So(do(mux, http.MethodGet, "/reports/mine", "alice", "").Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When the service fails otherwise", func() {
			deps.err = errors.New("boom")
			w := do(mux, http.MethodGet, "/reports/mine", "alice", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldContainSubstring, `"code":"internal_error"`)
		})

		Convey("When the call goes through", func() {
			So(do(mux, http.MethodGet, "/reports/mine", "Alice", "").Code, ShouldEqual, http.StatusOK)

			Convey("Then the caller reaches the service verbatim", func() {
				So(deps.caller, ShouldEqual, identity.Identity("Alice"))
			})
		})
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Given the request id middleware", t, func() {
		var seen string
		h := api.RequestIDMiddleware(func(w http.ResponseWriter, r *http.Request) {
			seen = logger.RequestID(r.Context())
		})

		Convey("When the client sends an id", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(api.RequestIDHeader, "abc")
			w := httptest.NewRecorder()
			h(w, req)

			Convey("Then it is echoed and put in the context", func() {
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc")
				So(seen, ShouldEqual, "abc")
			})
		})

		Convey("When the client sends none", func() {
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodGet, "/", nil))

			Convey("Then one is generated", func() {
				So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
				So(seen, ShouldEqual, w.Header().Get(api.RequestIDHeader))
			})
		})
	})

	Convey("Given a caller middleware on a custom header", t, func() {
		var got identity.Identity
		h := api.CallerMiddleware("X-Gateway-Principal")(func(w http.ResponseWriter, r *http.Request) {
			got, _ = identity.FromContext(r.Context())
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Gateway-Principal", "rrkah-fqaaa-aaaaa-aaaaq-cai")
		h(httptest.NewRecorder(), req)

		So(got, ShouldEqual, identity.Identity("rrkah-fqaaa-aaaaa-aaaaq-cai"))

		Convey("And the default header is ignored", func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(api.DefaultIdentityHeader, "alice")
			w := httptest.NewRecorder()
			h(w, req)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given API errors", t, func() {
		cause := errors.New("decode body")
		err := api.WrapKind("api.store_report", api.ErrBadRequest, cause)

		Convey("Then both kind and cause match", func() {
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.store_report: bad request: decode body")
		})

		Convey("Then a bare kind prints without a cause", func() {
			err := api.NewKind("api.caller", api.ErrUnauthenticated)
			So(errors.Is(err, api.ErrUnauthenticated), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.caller: unauthenticated")
		})
	})
}
