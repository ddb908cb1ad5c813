package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Cascade/internal/repo"
	"github.com/shaiso/Cascade/internal/telemetry"
)

func TestEnv(t *testing.T) {
	t.Setenv("CASCADE_TEST_NAME", "")
	assert.Equal(t, "fallback", Env("CASCADE_TEST_NAME", "fallback"))

	t.Setenv("CASCADE_TEST_NAME", "set")
	assert.Equal(t, "set", Env("CASCADE_TEST_NAME", "fallback"))
	assert.Equal(t, ":8080", Addr("CASCADE_TEST_PORT", "8080"))
}

func TestEnvInt(t *testing.T) {
	logger := telemetry.Discard()

	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"unset", "", 4},
		{"number", "16", 16},
		{"garbage", "many", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CASCADE_TEST_INT", tt.raw)
			assert.Equal(t, tt.want, EnvInt(logger, "CASCADE_TEST_INT", 4))
		})
	}
}

func TestOpenStore_MemoryWithoutDB(t *testing.T) {
	t.Setenv("DB_URL", "")

	store, err := OpenStore(t.Context(), telemetry.Discard())
	require.NoError(t, err)
	defer store.Close()

	assert.Nil(t, store.Pool)
	assert.IsType(t, &repo.MemoryRunRepo{}, store.RunStore)
}

func TestOpsMux(t *testing.T) {
	healthy := true
	mux := OpsMux(func() error {
		if !healthy {
			return errors.New("broker disconnected")
		}
		return nil
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	healthy = false
	rec = get("/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "broker disconnected")

	rec = get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, telemetry.Discard(), "127.0.0.1:0", OpsMux(nil))
	}()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServe_ListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = Serve(t.Context(), telemetry.Discard(), ln.Addr().String(), OpsMux(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
}
