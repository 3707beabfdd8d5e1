// Package provision 四阶段种子流水线：认证 → 模板 → 实体 → 实例 → 入库
// 各阶段输入不可变、输出向后传递；任一阶段失败整条流水线终止
package provision

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"concaria/internal/blueprint"
	"concaria/internal/catalog"
	"concaria/internal/repository"
)

// EmailSource 账号用户的 IDM 邮箱来源（Salesforce 已配置时注入）
type EmailSource interface {
	GetUserEmail(ctx context.Context) (string, error)
}

// Pipeline 一次 provision 运行
type Pipeline struct {
	api       blueprint.API
	repo      repository.ProvisionRepository
	emails    EmailSource
	catalog   *catalog.Catalog
	accountID string
	logger    *zap.Logger
}

// NewPipeline 创建流水线
// repo 为 nil 时跳过入库阶段；emails 为 nil 时创建合成账号用户
func NewPipeline(api blueprint.API, repo repository.ProvisionRepository, emails EmailSource, cat *catalog.Catalog, accountID string, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		api:       api,
		repo:      repo,
		emails:    emails,
		catalog:   cat,
		accountID: accountID,
		logger:    logger,
	}
}

// Result 全部阶段的产出（side channel：Salesforce 镜像、报告导出等在外层消费）
type Result struct {
	Templates *TemplateSet
	Entities  *EntitySet
	Instances *InstanceSet
}

// Run 顺序执行各阶段，首个失败即停
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if err := p.api.Login(ctx); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	templates, err := p.provisionTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("template provisioning failed: %w", err)
	}
	p.logger.Info("Templates provisioned",
		zap.Int("organization_templates", len(templates.OrganizationTemplates)),
		zap.Int("device_templates", len(templates.DeviceTemplates)),
		zap.Int("end_user_templates", len(templates.EndUserTemplates)),
	)

	entities, err := p.provisionEntities(ctx, templates)
	if err != nil {
		return nil, fmt.Errorf("entity provisioning failed: %w", err)
	}
	p.logger.Info("Entities provisioned",
		zap.Int("organizations", len(entities.Organizations)),
		zap.Int("channel_templates", len(entities.ChannelTemplates)),
		zap.Int("device_fields", len(entities.DeviceFields)),
	)

	instances, err := p.provisionInstances(ctx, templates, entities)
	if err != nil {
		return nil, fmt.Errorf("instance provisioning failed: %w", err)
	}
	p.logger.Info("Instances provisioned",
		zap.Int("devices", len(instances.Devices)),
		zap.Int("end_users", len(instances.EndUsers)),
		zap.Int("mqtt_credentials", len(instances.MqttCredentials)),
	)

	result := &Result{Templates: templates, Entities: entities, Instances: instances}

	if p.repo != nil {
		if err := p.persist(ctx, result); err != nil {
			return nil, fmt.Errorf("persistence failed: %w", err)
		}
	}

	return result, nil
}
