// Package client calls the identity provider's internal registrar endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/campusworks/acadia/internal/tenant/domain"
)

const requestTimeout = 5 * time.Second

// Registrar provisions identities over HTTP. It implements the tenant
// saga's registrar contract; the endpoint itself is idempotent per email so
// retries are safe.
type Registrar struct {
	baseURL string
	http    *http.Client
}

func NewRegistrar(baseURL string) *Registrar {
	return &Registrar{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type provisionRequest struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	TenantID string `json:"tenantId"`
}

type provisionResponse struct {
	ID string `json:"id"`
}

func (r *Registrar) RegisterUser(ctx context.Context, req tenantdomain.RegisterIdentityRequest) (snowflake.ID, error) {
	body, err := json.Marshal(provisionRequest{
		Email:    req.Email,
		Role:     req.Role,
		TenantID: req.TenantID.String(),
	})
	if err != nil {
		return 0, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/internal/users", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("identity provider returned %d: %s", resp.StatusCode, raw)
	}

	var payload provisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode identity response: %w", err)
	}
	return snowflake.ParseString(payload.ID)
}
