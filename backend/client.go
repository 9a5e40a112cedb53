package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"matchgate/fault"
)

// Client is the typed surface of the matchmaking/allocation backend.
// Every method returns either its payload or a classified fault; no method
// retries on its own.
type Client interface {
	GetTicket(ctx context.Context, ticketID, queue string) (*Ticket, error)
	CancelTicket(ctx context.Context, ticketID, queue string) (bool, error)
	ListAliasForEnvironment(ctx context.Context, env string) (string, error)
	AllocateServer(ctx context.Context, aliasID string, matchID uuid.UUID, preferredRegions []string) (Endpoint, error)
	GetMatchServerDetails(ctx context.Context, matchID uuid.UUID) (ServerDetails, error)
	GetMatchDetails(ctx context.Context, matchID uuid.UUID, queue string) (Endpoint, error)
}

// HTTPClient talks to the backend's JSON-over-HTTP API, authenticating
// every call with the shared entity token.
type HTTPClient struct {
	baseURL string
	authKey string
	tokens  *TokenManager
	http    *http.Client
}

func NewHTTPClient(baseURL, authKey string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	c := &HTTPClient{baseURL: baseURL, authKey: authKey, http: httpClient}
	c.tokens = NewTokenManager(c.issueToken)
	return c
}

// Tokens exposes the credential cache so ops surfaces can report on it.
func (c *HTTPClient) Tokens() *TokenManager { return c.tokens }

// apiError is the backend's error envelope on non-2xx responses.
type apiError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// classify maps a backend HTTP failure into the fault taxonomy. Applied
// uniformly by every call: not-found class errors map to fault.NotFound,
// everything else to fault.Backend with the backend diagnostic preserved.
func classify(op string, statusCode int, body []byte) error {
	var ae apiError
	_ = json.Unmarshal(body, &ae)
	if statusCode == http.StatusNotFound || ae.Status == "NotFound" {
		return fault.New(fault.NotFound, "%s: not found", op)
	}
	diag := ae.Message
	if diag == "" {
		diag = string(body)
	}
	return fault.New(fault.Backend, "%s: backend status %d: %s", op, statusCode, diag)
}

// post issues an authenticated JSON call and decodes the 2xx payload into
// out. Transport failures are wrapped and classified as fault.Backend.
func (c *HTTPClient) post(ctx context.Context, op, path string, in, out any) error {
	cred, err := c.tokens.EnsureValid(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, op, path, cred.Token, in, out)
}

func (c *HTTPClient) do(ctx context.Context, op, path, token string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fault.Wrap(fault.Backend, errors.Wrap(err, "encode request"), op)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fault.Wrap(fault.Backend, errors.Wrap(err, "build request"), op)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-EntityToken", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Str("op", op).Str("path", path).Msg("backend: request failed")
		return fault.Wrap(fault.Backend, errors.Wrap(err, "backend unreachable"), op)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fault.Wrap(fault.Backend, errors.Wrap(err, "read response"), op)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		cerr := classify(op, resp.StatusCode, body)
		log.Debug().Err(cerr).Str("op", op).Int("status", resp.StatusCode).Msg("backend: call failed")
		return cerr
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fault.Wrap(fault.Backend, errors.Wrap(err, "decode response"), op)
		}
	}
	return nil
}

// issueToken exchanges the gateway's auth key for a short-lived entity
// token. Called only by the TokenManager; failures there become fault.Auth.
func (c *HTTPClient) issueToken(ctx context.Context) (Credential, error) {
	in := struct {
		AuthKey string `json:"authKey"`
	}{AuthKey: c.authKey}
	var out Credential
	if err := c.do(ctx, "IssueToken", "/auth/entity-token", "", in, &out); err != nil {
		return Credential{}, err
	}
	if out.Token == "" {
		return Credential{}, fmt.Errorf("issue token: empty token in response")
	}
	return out, nil
}

func (c *HTTPClient) GetTicket(ctx context.Context, ticketID, queue string) (*Ticket, error) {
	in := struct {
		TicketID  string `json:"ticketId"`
		QueueName string `json:"queueName"`
	}{TicketID: ticketID, QueueName: queue}
	var out Ticket
	if err := c.post(ctx, "GetTicket", "/match/ticket/get", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) CancelTicket(ctx context.Context, ticketID, queue string) (bool, error) {
	in := struct {
		TicketID  string `json:"ticketId"`
		QueueName string `json:"queueName"`
	}{TicketID: ticketID, QueueName: queue}
	var out struct {
		Canceled bool `json:"canceled"`
	}
	if err := c.post(ctx, "CancelTicket", "/match/ticket/cancel", in, &out); err != nil {
		return false, err
	}
	return out.Canceled, nil
}

func (c *HTTPClient) ListAliasForEnvironment(ctx context.Context, env string) (string, error) {
	in := struct {
		Filter string `json:"filter,omitempty"`
	}{Filter: env}
	var out struct {
		Aliases []BuildAlias `json:"aliases"`
	}
	if err := c.post(ctx, "ListAliases", "/multiplayer/build-aliases", in, &out); err != nil {
		return "", err
	}
	// The filter is advisory; match on the alias name in case the backend
	// ignored it.
	for _, a := range out.Aliases {
		if a.AliasName == env {
			return a.AliasID, nil
		}
	}
	return "", fault.New(fault.NotFound, "ListAliases: no build alias for environment %q", env)
}

func (c *HTTPClient) AllocateServer(ctx context.Context, aliasID string, matchID uuid.UUID, preferredRegions []string) (Endpoint, error) {
	in := struct {
		BuildAliasID     string   `json:"buildAliasId"`
		SessionID        string   `json:"sessionId"`
		PreferredRegions []string `json:"preferredRegions,omitempty"`
	}{BuildAliasID: aliasID, SessionID: matchID.String(), PreferredRegions: preferredRegions}
	var out Endpoint
	if err := c.post(ctx, "AllocateServer", "/multiplayer/servers/allocate", in, &out); err != nil {
		return Endpoint{}, err
	}
	return out, nil
}

func (c *HTTPClient) GetMatchServerDetails(ctx context.Context, matchID uuid.UUID) (ServerDetails, error) {
	in := struct {
		SessionID string `json:"sessionId"`
	}{SessionID: matchID.String()}
	var out ServerDetails
	if err := c.post(ctx, "GetMatchServerDetails", "/multiplayer/servers/details", in, &out); err != nil {
		return ServerDetails{}, err
	}
	return out, nil
}

func (c *HTTPClient) GetMatchDetails(ctx context.Context, matchID uuid.UUID, queue string) (Endpoint, error) {
	in := struct {
		MatchID   string `json:"matchId"`
		QueueName string `json:"queueName"`
	}{MatchID: matchID.String(), QueueName: queue}
	var out struct {
		ServerDetails Endpoint `json:"serverDetails"`
	}
	if err := c.post(ctx, "GetMatchDetails", "/match/get", in, &out); err != nil {
		return Endpoint{}, err
	}
	return out.ServerDetails, nil
}
