// Package apiclient talks to the quest API server. It implements the quest
// ledger surface and the relayer transport over HTTP.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"encrypted-quest-backend/internal/models"
)

const defaultTimeout = 30 * time.Second

// MessageSigner signs the login challenge.
type MessageSigner interface {
	Address() models.Address
	SignMessage(msg string) ([]byte, error)
}

type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Login signs the server's challenge and keeps the returned token for
// later writes.
func (c *Client) Login(ctx context.Context, signer MessageSigner) (*models.LoginResponse, error) {
	var challenge struct {
		Challenge string `json:"challenge"`
	}
	q := url.Values{"address": {signer.Address().Hex()}}
	if err := c.do(ctx, http.MethodGet, "/auth/challenge?"+q.Encode(), nil, &challenge); err != nil {
		return nil, err
	}

	sig, err := signer.SignMessage(challenge.Challenge)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}

	var resp models.LoginResponse
	req := models.LoginRequest{Address: signer.Address(), Signature: sig}
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

func (c *Client) Deployment(ctx context.Context) (*models.Deployment, error) {
	var resp struct {
		Deployment models.Deployment `json:"deployment"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/deployment", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Deployment, nil
}

func (c *Client) GetTasks(ctx context.Context) ([]models.Task, error) {
	var resp struct {
		Tasks []models.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/tasks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

func (c *Client) HasJoined(ctx context.Context, addr models.Address) (bool, error) {
	var resp struct {
		Joined bool `json:"joined"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/players/"+addr.Hex()+"/joined", nil, &resp); err != nil {
		return false, err
	}
	return resp.Joined, nil
}

func (c *Client) GetPlayerTaskMask(ctx context.Context, addr models.Address) (models.Handle, error) {
	return c.handle(ctx, "/api/v1/players/"+addr.Hex()+"/mask")
}

func (c *Client) ConfidentialBalanceOf(ctx context.Context, addr models.Address) (models.Handle, error) {
	return c.handle(ctx, "/api/v1/players/"+addr.Hex()+"/balance")
}

func (c *Client) handle(ctx context.Context, path string) (models.Handle, error) {
	var resp struct {
		Handle models.Handle `json:"handle"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return models.ZeroHandle, err
	}
	return resp.Handle, nil
}

func (c *Client) Receipt(ctx context.Context, hash string) (*models.Receipt, error) {
	var resp struct {
		Receipt models.Receipt `json:"receipt"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/receipts/"+url.PathEscape(hash), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Receipt, nil
}

func (c *Client) JoinGame(ctx context.Context) (*models.Receipt, error) {
	var resp struct {
		Receipt models.Receipt `json:"receipt"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/game/join", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp.Receipt, nil
}

func (c *Client) ClaimTask(ctx context.Context, taskID models.Handle, proof []byte) (*models.Receipt, error) {
	var resp struct {
		Receipt models.Receipt `json:"receipt"`
	}
	req := models.ClaimTaskRequest{Handle: taskID, InputProof: proof}
	if err := c.do(ctx, http.MethodPost, "/api/v1/game/claim", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Receipt, nil
}

func (c *Client) NetworkKey(ctx context.Context) (*models.NetworkKeyResponse, error) {
	var resp models.NetworkKeyResponse
	if err := c.do(ctx, http.MethodGet, "/relayer/v1/keyurl", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) RegisterInput(ctx context.Context, req models.InputProofRequest) (*models.InputProofResponse, error) {
	var resp models.InputProofResponse
	if err := c.do(ctx, http.MethodPost, "/relayer/v1/input-proof", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UserDecrypt(ctx context.Context, req models.UserDecryptRequest) (*models.UserDecryptResponse, error) {
	var resp models.UserDecryptResponse
	if err := c.do(ctx, http.MethodPost, "/relayer/v1/user-decrypt", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// do sends one request. Error bodies are mapped back to the sentinel
// errors in models; transport failures become ErrNetworkOrTransaction.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrNetworkOrTransaction, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrNetworkOrTransaction, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var eb errorBody
		if err := json.Unmarshal(data, &eb); err != nil || eb.Code == "" {
			return fmt.Errorf("%w: %s %s returned %d", models.ErrNetworkOrTransaction, method, path, resp.StatusCode)
		}
		return fmt.Errorf("%w: %s", models.ErrorFromCode(eb.Code), eb.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", models.ErrNetworkOrTransaction, err)
	}
	return nil
}
