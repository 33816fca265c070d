package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"rollbook/pkg/platform/circuit"
)

// issuerProbeEvery is how often an open breaker lets a call through to test
// whether the remote issuer has recovered.
const issuerProbeEvery = 10

// Issuer is the optional remote secret-issuance endpoint: it accepts a
// plaintext secret and returns a pre-hashed representation to hand to the
// account service instead.
//
// Fallback policy: if the endpoint is unconfigured or unreachable, the
// plaintext secret is used directly (the account service performs its own
// hashing). Provisioning never fails on the issuer alone. A circuit breaker
// stops hammering an issuer that keeps failing; while open, only every
// issuerProbeEvery-th call reaches the remote.
type Issuer struct {
	url     string
	http    *http.Client
	logger  *slog.Logger
	breaker *circuit.Breaker
	calls   atomic.Uint64
}

func NewIssuer(url string, timeout time.Duration, logger *slog.Logger) *Issuer {
	return &Issuer{
		url:     url,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		breaker: circuit.New("secret-issuer", circuit.WithFailureThreshold(3)),
	}
}

type issueRequest struct {
	Secret string `json:"secret"`
}

type issueResponse struct {
	Hashed string `json:"hashed"`
}

// Issue returns the representation of the secret to hand to the account
// service: the remote pre-hash when available, the plaintext otherwise.
func (i *Issuer) Issue(ctx context.Context, secret string) string {
	if i == nil || i.url == "" {
		return secret
	}
	if i.breaker.IsOpen() && i.calls.Add(1)%issuerProbeEvery != 0 {
		return secret
	}

	hashed, ok := i.issueRemote(ctx, secret)
	if !ok {
		if _, change := i.breaker.RecordFailure(); change.Opened {
			i.logger.WarnContext(ctx, "secret issuer circuit opened, handing off plaintext secrets",
				"breaker", i.breaker.Name(),
			)
		}
		return secret
	}
	if _, change := i.breaker.RecordSuccess(); change.Closed {
		i.logger.InfoContext(ctx, "secret issuer circuit closed",
			"breaker", i.breaker.Name(),
		)
	}
	return hashed
}

func (i *Issuer) issueRemote(ctx context.Context, secret string) (string, bool) {
	payload, err := json.Marshal(issueRequest{Secret: secret})
	if err != nil {
		return "", false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.url, bytes.NewReader(payload))
	if err != nil {
		return "", false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.http.Do(req)
	if err != nil {
		i.logger.WarnContext(ctx, "secret issuer unreachable, falling back to plaintext handoff",
			"error", err.Error(),
		)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		i.logger.WarnContext(ctx, "secret issuer rejected request, falling back to plaintext handoff",
			"status", resp.StatusCode,
		)
		return "", false
	}
	var out issueResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Hashed == "" {
		return "", false
	}
	return out.Hashed, true
}
