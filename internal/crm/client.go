package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrConfigInvalid   = errors.New("crm config invalid")
	ErrUnavailable     = errors.New("crm unavailable")
	ErrRejected        = errors.New("crm rejected request")
	ErrResponseInvalid = errors.New("crm response invalid")
)

// Config CRM 客户端配置
type Config struct {
	BaseURL string        // 网关地址，如 https://crm.example.com
	Token   string        // API Token
	Timeout time.Duration // 单次请求超时
}

func (c *Config) normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.Token = strings.TrimSpace(c.Token)
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("%w: token is required", ErrConfigInvalid)
	}
	return nil
}

// Client CRM HTTP 客户端
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient 创建 CRM 客户端
func NewClient(cfg Config) *Client {
	cfg.normalize()
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// AccountInput 账户同步输入
type AccountInput struct {
	Phone  string `json:"phone"`
	Name   string `json:"name"`
	Tier   string `json:"tier"`
	Points int64  `json:"points"`
}

// AccountResult 账户同步结果
type AccountResult struct {
	RemoteID string `json:"remote_id"`
}

// TicketInput 工单创建输入
type TicketInput struct {
	IdempotencyKey string                 `json:"-"`
	Kind           string                 `json:"kind"`
	Subject        string                 `json:"subject"`
	Body           string                 `json:"body"`
	Fields         map[string]interface{} `json:"fields,omitempty"`
}

// TicketResult 工单创建结果
type TicketResult struct {
	RemoteID string `json:"remote_id"`
}

// StatusUpdateInput 状态更新输入
type StatusUpdateInput struct {
	RemoteID string `json:"-"`
	Status   string `json:"status"`
	Note     string `json:"note,omitempty"`
}

// SyncAccount 同步账户资料到 CRM
// 以手机号为键做 find-or-create，重复调用落在同一远端账户上。
func (c *Client) SyncAccount(ctx context.Context, input AccountInput) (*AccountResult, error) {
	if strings.TrimSpace(input.Phone) == "" {
		return nil, fmt.Errorf("%w: phone is required", ErrConfigInvalid)
	}
	var result AccountResult
	if err := c.do(ctx, http.MethodPut, "/api/v1/accounts", "", input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateTicket 在 CRM 创建交付工单
// 通过 Idempotency-Key 请求头去重，重试不会产生重复工单。
func (c *Client) CreateTicket(ctx context.Context, input TicketInput) (*TicketResult, error) {
	if strings.TrimSpace(input.IdempotencyKey) == "" {
		return nil, fmt.Errorf("%w: idempotency key is required", ErrConfigInvalid)
	}
	var result TicketResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/tickets", input.IdempotencyKey, input, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateStatus 更新 CRM 工单状态
func (c *Client) UpdateStatus(ctx context.Context, input StatusUpdateInput) error {
	remoteID := strings.TrimSpace(input.RemoteID)
	if remoteID == "" {
		return fmt.Errorf("%w: remote id is required", ErrConfigInvalid)
	}
	path := "/api/v1/tickets/" + remoteID + "/status"
	return c.do(ctx, http.MethodPost, path, "", input, nil)
}

// Permanent 判断错误是否为永久性失败
// 永久性失败重试也不会成功，同步任务应直接进入终态。
func Permanent(err error) bool {
	return errors.Is(err, ErrRejected) || errors.Is(err, ErrConfigInvalid)
}

func (c *Client) do(ctx context.Context, method, path, idempotencyKey string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %v", ErrConfigInvalid, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fallthrough to decode
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return fmt.Errorf("%w: http status %d", ErrUnavailable, resp.StatusCode)
	default:
		// 其余 4xx 视为永久拒绝，重试无意义
		return fmt.Errorf("%w: http status %d: %s", ErrRejected, resp.StatusCode, snippet(respBytes))
	}

	if out == nil {
		return nil
	}

	var envelope struct {
		StatusCode int             `json:"status_code"`
		Msg        string          `json:"msg"`
		Data       json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &envelope); err != nil {
		return fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if envelope.StatusCode != 0 {
		return fmt.Errorf("%w: code %d: %s", ErrRejected, envelope.StatusCode, envelope.Msg)
	}
	if len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	return nil
}

func snippet(body []byte) string {
	const maxLen = 200
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}
