// Package blueprint Blueprint 平台 REST API 客户端
// 实体与平台资源一一对应；ID 由服务端分配，创建后回填
package blueprint

import (
	"encoding/json"
	"fmt"
)

// EntityTypeDevice / EntityTypeEndUser MQTT 凭证的归属实体类型
const (
	EntityTypeDevice  = "device"
	EntityTypeEndUser = "endUser"
)

// OrganizationTemplate 组织模板
type OrganizationTemplate struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// DeviceTemplate 设备模板
type DeviceTemplate struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// EndUserTemplate 终端用户模板
type EndUserTemplate struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// AccountUser 账号级用户（provision 运行者）
type AccountUser struct {
	ID            string `json:"id,omitempty"`
	AccountID     string `json:"accountId"`
	CreateIDMUser bool   `json:"createIdmUser,omitempty"`
	IDMUserEmail  string `json:"idmUserEmail,omitempty"`
}

// Organization 组织
type Organization struct {
	ID                     string `json:"id,omitempty"`
	Name                   string `json:"name"`
	OrganizationTemplateID string `json:"organizationTemplateId"`
}

// ChannelTemplate 设备模板下的数据通道
type ChannelTemplate struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name"`
	PersistenceType string `json:"persistenceType"` // "simple" | "timeSeries"
	EntityID        string `json:"entityId"`        // deviceTemplate id
	EntityType      string `json:"entityType"`      // 固定 "deviceTemplate"
}

// DeviceField 设备模板自定义字段
type DeviceField struct {
	ID               string `json:"id,omitempty"`
	Name             string `json:"name"`
	FieldType        string `json:"fieldType"`
	DeviceTemplateID string `json:"deviceTemplateId"`
}

// Device 设备实例
type Device struct {
	ID               string `json:"id,omitempty"`
	Name             string `json:"name"`
	SerialNumber     string `json:"serialNumber"`
	DeviceTemplateID string `json:"deviceTemplateId"`
	OrganizationID   string `json:"organizationId"`
	HardwareVersion  string `json:"hardwareVersion,omitempty"`
	IncludedSensors  string `json:"includedSensors,omitempty"`
	Color            string `json:"color,omitempty"`
	ProductionRun    string `json:"productionRun,omitempty"`
	PowerVersion     string `json:"powerVersion,omitempty"`
	FilterType       string `json:"filterType,omitempty"`
	FirmwareVersion  string `json:"firmwareVersion,omitempty"`
}

// EndUser 终端用户实例
type EndUser struct {
	ID                     string `json:"id,omitempty"`
	Name                   string `json:"name"`
	OrganizationID         string `json:"organizationId"`
	OrganizationTemplateID string `json:"organizationTemplateId"`
	EndUserTemplateID      string `json:"endUserTemplateId"`
}

// EntityRef MQTT 凭证签发请求里的实体引用
type EntityRef struct {
	EntityID   string `json:"entityId"`
	EntityType string `json:"entityType"` // EntityTypeDevice | EntityTypeEndUser
}

// MqttCredential 平台签发的 MQTT 凭证
type MqttCredential struct {
	EntityID   string `json:"entityId"`
	EntityType string `json:"entityType"`
	AccountID  string `json:"accountId"`
	Secret     string `json:"secret"`
}

// APIError 平台返回的错误（保留嵌套 details 供顶层打印）
type APIError struct {
	StatusCode int             `json:"-"`
	Message    string          `json:"message"`
	Details    json.RawMessage `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("blueprint API error (status %d): %s: %s", e.StatusCode, e.Message, string(e.Details))
	}
	return fmt.Sprintf("blueprint API error (status %d): %s", e.StatusCode, e.Message)
}
