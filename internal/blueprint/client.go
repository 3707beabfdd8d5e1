package blueprint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// API provisioning pipeline 消费的平台操作集合
type API interface {
	Login(ctx context.Context) error
	CreateOrganizationTemplates(ctx context.Context, templates []OrganizationTemplate) ([]OrganizationTemplate, error)
	CreateDeviceTemplates(ctx context.Context, templates []DeviceTemplate) ([]DeviceTemplate, error)
	CreateEndUserTemplates(ctx context.Context, templates []EndUserTemplate) ([]EndUserTemplate, error)
	CreateAccountUsers(ctx context.Context, users []AccountUser) ([]AccountUser, error)
	CreateOrganizations(ctx context.Context, orgs []Organization) ([]Organization, error)
	CreateChannelTemplates(ctx context.Context, templates []ChannelTemplate) ([]ChannelTemplate, error)
	CreateDeviceFields(ctx context.Context, fields []DeviceField) ([]DeviceField, error)
	CreateEndUsers(ctx context.Context, users []EndUser) ([]EndUser, error)
	CreateDevices(ctx context.Context, devices []Device) ([]Device, error)
	CreateMqttCredentials(ctx context.Context, refs []EntityRef) ([]MqttCredential, error)
}

// Client Blueprint 平台 API 客户端
// 单次 provision 运行共用一个 JWT；创建类调用都带 bearer token
type Client struct {
	httpClient *resty.Client
	accountID  string
	appToken   string
	email      string
	password   string
	logger     *zap.Logger
}

var _ API = (*Client)(nil)

// NewClient 创建 Blueprint 客户端
// 注意：不设置重试——种子脚本遇到失败直接整体终止，重跑即可
func NewClient(baseURL, accountID, appToken, email, password string, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		accountID:  accountID,
		appToken:   appToken,
		email:      email,
		password:   password,
		logger:     logger,
	}
}

type loginRequest struct {
	AccountID    string `json:"accountId"`
	EmailAddress string `json:"emailAddress"`
	Password     string `json:"password"`
}

type loginResponse struct {
	JWT string `json:"jwt"`
}

// Login 获取会话 JWT 并设置为后续请求的 bearer token
func (c *Client) Login(ctx context.Context) error {
	var result loginResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("AccessToken", c.appToken).
		SetBody(loginRequest{
			AccountID:    c.accountID,
			EmailAddress: c.email,
			Password:     c.password,
		}).
		SetResult(&result).
		Post("/api/v1/auth/login-user")
	if err != nil {
		return fmt.Errorf("failed to call login endpoint: %w", err)
	}
	if resp.IsError() {
		return decodeAPIError(resp)
	}
	if result.JWT == "" {
		return fmt.Errorf("login response carried no jwt")
	}

	c.httpClient.SetAuthToken(result.JWT)
	c.logger.Info("Authenticated against blueprint platform",
		zap.String("account_id", c.accountID),
	)
	return nil
}

func (c *Client) CreateOrganizationTemplates(ctx context.Context, templates []OrganizationTemplate) ([]OrganizationTemplate, error) {
	return postEach(ctx, c, "/api/v1/organization-templates", templates)
}

func (c *Client) CreateDeviceTemplates(ctx context.Context, templates []DeviceTemplate) ([]DeviceTemplate, error) {
	return postEach(ctx, c, "/api/v1/device-templates", templates)
}

func (c *Client) CreateEndUserTemplates(ctx context.Context, templates []EndUserTemplate) ([]EndUserTemplate, error) {
	return postEach(ctx, c, "/api/v1/end-user-templates", templates)
}

func (c *Client) CreateAccountUsers(ctx context.Context, users []AccountUser) ([]AccountUser, error) {
	return postEach(ctx, c, "/api/v1/account-users", users)
}

func (c *Client) CreateOrganizations(ctx context.Context, orgs []Organization) ([]Organization, error) {
	return postEach(ctx, c, "/api/v1/organizations", orgs)
}

func (c *Client) CreateChannelTemplates(ctx context.Context, templates []ChannelTemplate) ([]ChannelTemplate, error) {
	return postEach(ctx, c, "/api/v1/channel-templates", templates)
}

func (c *Client) CreateDeviceFields(ctx context.Context, fields []DeviceField) ([]DeviceField, error) {
	return postEach(ctx, c, "/api/v1/device-fields", fields)
}

func (c *Client) CreateEndUsers(ctx context.Context, users []EndUser) ([]EndUser, error) {
	return postEach(ctx, c, "/api/v1/end-users", users)
}

func (c *Client) CreateDevices(ctx context.Context, devices []Device) ([]Device, error) {
	return postEach(ctx, c, "/api/v1/devices", devices)
}

// CreateMqttCredentials 批量签发 MQTT 凭证（单次调用，平台按列表返回）
func (c *Client) CreateMqttCredentials(ctx context.Context, refs []EntityRef) ([]MqttCredential, error) {
	var created []MqttCredential
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(refs).
		SetResult(&created).
		Post("/api/v1/mqtt-credentials")
	if err != nil {
		return nil, fmt.Errorf("failed to create mqtt credentials: %w", err)
	}
	if resp.IsError() {
		return nil, decodeAPIError(resp)
	}
	return created, nil
}

// postEach 每条记录一次 POST，全部并发；任一失败整批失败
// 结果按输入顺序写回，调用方看到的顺序与种子目录一致
func postEach[T any](ctx context.Context, c *Client, path string, records []T) ([]T, error) {
	created := make([]T, len(records))
	g, ctx := errgroup.WithContext(ctx)
	for i, record := range records {
		i, record := i, record
		g.Go(func() error {
			var result T
			resp, err := c.httpClient.R().
				SetContext(ctx).
				SetBody(record).
				SetResult(&result).
				Post(path)
			if err != nil {
				return fmt.Errorf("failed to POST %s: %w", path, err)
			}
			if resp.IsError() {
				return decodeAPIError(resp)
			}
			created[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return created, nil
}

func decodeAPIError(resp *resty.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode()}
	var body struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != nil {
		apiErr.Message = body.Error.Message
		apiErr.Details = body.Error.Details
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status()
	}
	return apiErr
}
