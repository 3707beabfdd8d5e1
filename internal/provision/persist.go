package provision

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"concaria/internal/blueprint"
	"concaria/internal/repository"
)

// ErrCredentialMismatch 某实体匹配到的 MQTT 凭证数不为 1
// 硬性完整性约束：0 条或多条都视为数据损坏，立即失败
var ErrCredentialMismatch = errors.New("mqtt credential mismatch")

// persist 阶段5：建表，然后逐设备写库存+固件行，再逐用户写应用配置行
// 两个写入阶段内部并发、相互串行（与上游进度日志保持一致的顺序）
func (p *Pipeline) persist(ctx context.Context, result *Result) error {
	if err := p.repo.EnsureSchema(ctx); err != nil {
		return err
	}

	credentials := indexCredentials(result.Instances.MqttCredentials)

	templateNames := map[string]string{}
	for _, t := range result.Templates.DeviceTemplates {
		templateNames[t.ID] = t.Name
	}
	organizations := map[string]blueprint.Organization{}
	for _, org := range result.Entities.Organizations {
		organizations[org.ID] = org
	}

	p.logger.Info("Inserting: firmwares", zap.Int("devices", len(result.Instances.Devices)))
	g, gctx := errgroup.WithContext(ctx)
	for _, device := range result.Instances.Devices {
		device := device
		g.Go(func() error {
			credential, err := credentials.exactlyOne(device.ID, blueprint.EntityTypeDevice)
			if err != nil {
				return err
			}

			inventoryID, err := p.repo.InsertInventory(gctx, device.SerialNumber)
			if err != nil {
				return err
			}

			return p.repo.InsertFirmware(gctx, repository.FirmwareRow{
				InventoryID:        inventoryID,
				Name:               device.Name,
				SerialNumber:       device.SerialNumber,
				DeviceID:           device.ID,
				DeviceTemplateID:   device.DeviceTemplateID,
				DeviceTemplateName: templateNames[device.DeviceTemplateID],
				OrganizationID:     device.OrganizationID,
				AccountID:          credential.AccountID,
				EntityID:           credential.EntityID,
				EntityType:         credential.EntityType,
				Secret:             credential.Secret,
				FirmwareVersion:    device.FirmwareVersion,
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	p.logger.Info("Inserting: application configs", zap.Int("end_users", len(result.Instances.EndUsers)))
	g, gctx = errgroup.WithContext(ctx)
	for _, endUser := range result.Instances.EndUsers {
		endUser := endUser
		g.Go(func() error {
			credential, err := credentials.exactlyOne(endUser.ID, blueprint.EntityTypeEndUser)
			if err != nil {
				return err
			}

			org := organizations[endUser.OrganizationID]

			return p.repo.InsertApplicationConfig(gctx, repository.ApplicationConfigRow{
				EndUserID:              endUser.ID,
				EndUserName:            endUser.Name,
				AccountID:              p.accountID,
				OrganizationID:         endUser.OrganizationID,
				OrganizationName:       org.Name,
				OrganizationTemplateID: endUser.OrganizationTemplateID,
				EndUserTemplateID:      endUser.EndUserTemplateID,
				EntityID:               credential.EntityID,
				EntityType:             credential.EntityType,
				Secret:                 credential.Secret,
			})
		})
	}
	return g.Wait()
}

// credentialIndex entityId → 签发的凭证（可能有重复，入库时校验）
type credentialIndex map[string][]blueprint.MqttCredential

func indexCredentials(credentials []blueprint.MqttCredential) credentialIndex {
	idx := credentialIndex{}
	for _, c := range credentials {
		idx[c.EntityID] = append(idx[c.EntityID], c)
	}
	return idx
}

// exactlyOne 每个实体必须恰好命中一条凭证
func (idx credentialIndex) exactlyOne(entityID, entityType string) (blueprint.MqttCredential, error) {
	matches := idx[entityID]
	if len(matches) != 1 {
		return blueprint.MqttCredential{}, fmt.Errorf("%w: %s %s matched %d credentials, want exactly 1",
			ErrCredentialMismatch, entityType, entityID, len(matches))
	}
	return matches[0], nil
}
