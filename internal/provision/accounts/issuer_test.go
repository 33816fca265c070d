package accounts

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIssuerCircuitStopsHammeringRemote(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	issuer := NewIssuer(srv.URL, time.Second, logger)
	ctx := context.Background()

	// Three failures open the circuit; every call still hands back plaintext.
	for range 3 {
		assert.Equal(t, "s", issuer.Issue(ctx, "s"))
	}
	opened := hits.Load()
	assert.EqualValues(t, 3, opened)

	// While open, most calls skip the remote entirely.
	for range issuerProbeEvery - 1 {
		assert.Equal(t, "s", issuer.Issue(ctx, "s"))
	}
	assert.Less(t, hits.Load(), opened+int64(issuerProbeEvery)-1)
}
