package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/techstore/storefront/api/web"
	"github.com/techstore/storefront/api/weberr"
)

func TestCollectSeesRenderedErrorStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return weberr.NotFound(errors.New("missing"))
	}

	// Collect outside Errors, as in the API chain: the wrapped writer
	// must observe the status Errors renders.
	handler := web.WrapMiddleware([]web.Middleware{Collect(m), Errors(log)}, h)

	r := httptest.NewRequest(http.MethodGet, "/products/42", nil)
	w := httptest.NewRecorder()
	if err := handler(context.Background(), w, r); err != nil {
		t.Fatalf("rendered error escaped the chain: %v", err)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}

	var got string
	for _, mf := range mfs {
		if mf.GetName() != "storefront_http_requests_total" {
			continue
		}
		for _, mm := range mf.GetMetric() {
			for _, lp := range mm.GetLabel() {
				if lp.GetName() == "status" {
					got = lp.GetValue()
				}
			}
		}
	}

	if got != "404" {
		t.Fatalf("expected the request counted under status 404, got %q", got)
	}
}
