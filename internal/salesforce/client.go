// Package salesforce Blueprint 数据到 Salesforce 的镜像（旁路通道）
// 除 AddAssets 外的失败只记日志，不影响 provisioning 主流程
package salesforce

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const apiVersion = "v55.0"

// contactChunkSize Salesforce 批量接口单批上限
const contactChunkSize = 10

// Asset 镜像到 Salesforce Asset 对象的设备
type Asset struct {
	Product  string
	Serial   string
	DeviceID string
	OrgID    string
}

// Case 镜像到 Salesforce Case 对象的工单
type Case struct {
	Subject     string
	Description string
	DeviceID    string
}

// Contact 镜像到 Salesforce Contact 对象的终端用户
type Contact struct {
	Email string
	OrgID string
}

// Client Salesforce REST API 客户端
// 登录是惰性的：第一个操作触发 OAuth password flow，之后复用会话
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger

	loginURL     string
	clientID     string
	clientSecret string
	user         string
	// password+securityToken 拼接，与 jsforce 登录方式一致
	password  string
	namespace string

	loginOnce sync.Once
	loginErr  error
	userID    string
}

// NewClient 创建 Salesforce 客户端
// pass 与 token 出现在同一请求里：Salesforce 要求密码后拼接 security token
func NewClient(loginURL, clientID, clientSecret, user, pass, token, namespace string, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient:   httpClient,
		logger:       logger,
		loginURL:     loginURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		user:         user,
		password:     pass + token,
		namespace:    namespace,
	}
}

func (c *Client) deviceField() string     { return c.namespace + "__XI_Device_ID__c" }
func (c *Client) deviceFieldNoXI() string { return c.namespace + "__Device_ID__c" }
func (c *Client) endUserField() string    { return c.namespace + "__XI_End_User_ID__c" }

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	ID          string `json:"id"`
}

// ensureLogin 惰性登录，结果缓存（含失败）
func (c *Client) ensureLogin(ctx context.Context) error {
	c.loginOnce.Do(func() {
		if c.user == "" {
			c.loginErr = fmt.Errorf("salesforce credentials are missing")
			return
		}

		var token tokenResponse
		resp, err := c.httpClient.R().
			SetContext(ctx).
			SetFormData(map[string]string{
				"grant_type":    "password",
				"client_id":     c.clientID,
				"client_secret": c.clientSecret,
				"username":      c.user,
				"password":      c.password,
			}).
			SetResult(&token).
			Post(c.loginURL + "/services/oauth2/token")
		if err != nil {
			c.loginErr = fmt.Errorf("salesforce login failed: %w", err)
			return
		}
		if resp.IsError() {
			c.loginErr = fmt.Errorf("salesforce login failed: %s: %s", resp.Status(), resp.Body())
			return
		}

		c.httpClient.SetBaseURL(token.InstanceURL)
		c.httpClient.SetAuthToken(token.AccessToken)
		// identity URL 的最后一段是 user id
		c.userID = lastPathSegment(token.ID)
		c.logger.Info("salesforce#connected", zap.String("user", c.user))
	})
	return c.loginErr
}

// GetUserEmail 查询登录用户的邮箱（账号用户的 IDM 邮箱来源）
func (c *Client) GetUserEmail(ctx context.Context) (string, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return "", err
	}

	var result struct {
		Records []struct {
			Email string `json:"Email"`
		} `json:"records"`
	}
	query := fmt.Sprintf("SELECT Id, Email FROM User WHERE Id = '%s'", c.userID)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		SetResult(&result).
		Get("/services/data/" + apiVersion + "/query")
	if err != nil {
		return "", fmt.Errorf("salesforce user query failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("salesforce user query failed: %s", resp.Status())
	}
	if len(result.Records) == 0 {
		return "", fmt.Errorf("salesforce user %s not found", c.userID)
	}
	return result.Records[0].Email, nil
}

// AddAssets 逐条 upsert 设备资产（外部 id 字段：{ns}__Device_ID__c）
// 与 Case/Contact 不同，资产镜像失败会向上返回错误
func (c *Client) AddAssets(ctx context.Context, assets []Asset) error {
	if err := c.ensureLogin(ctx); err != nil {
		c.logger.Error("Salesforce #addAssets", zap.Error(err))
		return err
	}

	for _, a := range assets {
		record := map[string]any{
			"Name":         a.Product,
			"SerialNumber": a.Serial,
			"Contact":      map[string]any{c.endUserField(): a.OrgID},
		}
		if err := c.upsert(ctx, "Asset", c.deviceFieldNoXI(), a.DeviceID, record); err != nil {
			c.logger.Error("Salesforce #addAssets", zap.Error(err))
			return err
		}
		c.logger.Info("Salesforce #addAssets", zap.String("inserted", a.Serial))
	}
	return nil
}

// AddCases 插入工单；失败只记日志
func (c *Client) AddCases(ctx context.Context, cases []Case) {
	if err := c.ensureLogin(ctx); err != nil {
		c.logger.Error("Salesforce #addCases", zap.Error(err))
		return
	}

	for _, cs := range cases {
		record := map[string]any{
			"Subject":        cs.Subject,
			"Description":    cs.Description,
			c.deviceField(): cs.DeviceID,
		}
		if err := c.insert(ctx, "Case", record); err != nil {
			c.logger.Error("Salesforce #addCases", zap.Error(err))
			return
		}
		c.logger.Info("Salesforce #addCases", zap.String("inserted", cs.Subject))
	}
}

// AddContacts 去重后按 10 条一批 upsert 联系人；失败只记日志
func (c *Client) AddContacts(ctx context.Context, contacts []Contact) {
	if err := c.ensureLogin(ctx); err != nil {
		c.logger.Error("Salesforce #addContacts", zap.Error(err))
		return
	}

	seen := map[Contact]bool{}
	unique := make([]Contact, 0, len(contacts))
	for _, ct := range contacts {
		if !seen[ct] {
			seen[ct] = true
			unique = append(unique, ct)
		}
	}

	for start := 0; start < len(unique); start += contactChunkSize {
		end := start + contactChunkSize
		if end > len(unique) {
			end = len(unique)
		}
		for _, ct := range unique[start:end] {
			record := map[string]any{
				"Email": ct.Email,
			}
			if err := c.upsert(ctx, "Contact", c.endUserField(), ct.OrgID, record); err != nil {
				c.logger.Error("Salesforce #addContacts", zap.Error(err))
				return
			}
			c.logger.Info("Salesforce #addContacts", zap.String("inserted", ct.Email))
		}
	}
}

// upsert PATCH sobject 外部 id 接口（存在则更新，不存在则创建）
func (c *Client) upsert(ctx context.Context, object, extIDField, extID string, record map[string]any) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(record).
		Patch(fmt.Sprintf("/services/data/%s/sobjects/%s/%s/%s", apiVersion, object, extIDField, extID))
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", object, err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to upsert %s: %s: %s", object, resp.Status(), resp.Body())
	}
	return nil
}

func (c *Client) insert(ctx context.Context, object string, record map[string]any) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(record).
		Post(fmt.Sprintf("/services/data/%s/sobjects/%s", apiVersion, object))
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", object, err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to insert %s: %s: %s", object, resp.Status(), resp.Body())
	}
	return nil
}

func lastPathSegment(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return s[i+1:]
		}
	}
	return s
}
