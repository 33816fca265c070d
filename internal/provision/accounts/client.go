package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"rollbook/pkg/platform/sentinel"
	"rollbook/pkg/requestcontext"
)

// Client is the HTTP implementation of Service. Every call carries the
// operator's bearer token from the request context and the configured
// per-call timeout.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type createCredentialRequest struct {
	LoginIdentifier string `json:"login_identifier"`
	Secret          string `json:"secret"`
}

type createCredentialResponse struct {
	AuthSubjectID uuid.UUID `json:"auth_subject_id"`
}

func (c *Client) CreateCredential(ctx context.Context, loginIdentifier, secret string) (uuid.UUID, error) {
	body := createCredentialRequest{LoginIdentifier: loginIdentifier, Secret: secret}
	resp, err := c.do(ctx, http.MethodPost, "/v1/credentials", body)
	if err != nil {
		return uuid.Nil, err
	}
	defer resp.Body.Close()

	if err := statusErr(resp.StatusCode, http.StatusCreated); err != nil {
		return uuid.Nil, fmt.Errorf("create credential: %w", err)
	}
	var out createCredentialResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return uuid.Nil, fmt.Errorf("create credential: decode response: %w", err)
	}
	if out.AuthSubjectID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("create credential: response has no auth_subject_id")
	}
	return out.AuthSubjectID, nil
}

type replaceSecretRequest struct {
	Secret string `json:"secret"`
}

func (c *Client) ReplaceSecret(ctx context.Context, authSubjectID uuid.UUID, secret string) error {
	path := "/v1/credentials/" + authSubjectID.String() + "/secret"
	resp, err := c.do(ctx, http.MethodPut, path, replaceSecretRequest{Secret: secret})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := statusErr(resp.StatusCode, http.StatusNoContent); err != nil {
		return fmt.Errorf("replace secret: %w", err)
	}
	return nil
}

func (c *Client) DeleteCredential(ctx context.Context, authSubjectID uuid.UUID) error {
	resp, err := c.do(ctx, http.MethodDelete, "/v1/credentials/"+authSubjectID.String(), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := statusErr(resp.StatusCode, http.StatusNoContent); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

type listAuthSubjectsResponse struct {
	AuthSubjectIDs []uuid.UUID `json:"auth_subject_ids"`
}

func (c *Client) ListAuthSubjects(ctx context.Context) ([]uuid.UUID, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/credentials", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := statusErr(resp.StatusCode, http.StatusOK); err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	var out listAuthSubjectsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("list credentials: decode response: %w", err)
	}
	return out.AuthSubjectIDs, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := requestcontext.AuthToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts land here; treated identically to any failed call.
		return nil, fmt.Errorf("account service call: %w: %w", sentinel.ErrUnavailable, err)
	}
	return resp, nil
}

// statusErr maps upstream status codes onto sentinel errors.
func statusErr(got, want int) error {
	if got == want {
		return nil
	}
	switch got {
	case http.StatusConflict:
		return sentinel.ErrConflict
	case http.StatusTooManyRequests:
		return sentinel.ErrRateLimited
	case http.StatusNotFound:
		return sentinel.ErrNotFound
	default:
		return fmt.Errorf("%w: unexpected status %d", sentinel.ErrUnavailable, got)
	}
}
