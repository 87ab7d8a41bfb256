package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/metric/global"
)

func TestInstruments_NilSafe(t *testing.T) {
	var i *Instruments

	assert.NotPanics(t, func() {
		i.Interaction(context.Background(), "like", "added")
		i.AttachmentDeleted(context.Background())
		i.AttachmentDeleteFailed(context.Background())
	})

	w := httptest.NewRecorder()
	i.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestInstruments_Middleware(t *testing.T) {
	i := NewInstruments(global.Meter("test"))

	w := httptest.NewRecorder()
	i.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}
