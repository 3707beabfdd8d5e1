package repository

import "context"

// FirmwareRow 固件行：设备 + 模板 + 组织 + MQTT 凭证的连接结果
type FirmwareRow struct {
	InventoryID        int64
	Name               string
	SerialNumber       string
	DeviceID           string
	DeviceTemplateID   string
	DeviceTemplateName string
	OrganizationID     string
	AccountID          string
	EntityID           string
	EntityType         string
	Secret             string
	FirmwareVersion    string
}

// ApplicationConfigRow 应用配置行：终端用户 + 组织 + MQTT 凭证的连接结果
type ApplicationConfigRow struct {
	EndUserID              string
	EndUserName            string
	AccountID              string
	OrganizationID         string
	OrganizationName       string
	OrganizationTemplateID string
	EndUserTemplateID      string
	EntityID               string
	EntityType             string
	Secret                 string
}

// ProvisionRepository 入库阶段的持久化接口
type ProvisionRepository interface {
	// EnsureSchema 执行建表脚本；脚本可重复执行（IF NOT EXISTS）
	EnsureSchema(ctx context.Context) error

	// InsertInventory 按序列号插入库存行，返回自增 id
	InsertInventory(ctx context.Context, serial string) (int64, error)

	InsertFirmware(ctx context.Context, row FirmwareRow) error
	InsertApplicationConfig(ctx context.Context, row ApplicationConfigRow) error
}
