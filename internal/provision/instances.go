package provision

import (
	"context"

	"golang.org/x/sync/errgroup"

	"concaria/internal/blueprint"
)

// InstanceSet 阶段4产出：终端用户、设备和它们的 MQTT 凭证
type InstanceSet struct {
	EndUsers        []blueprint.EndUser
	Devices         []blueprint.Device
	MqttCredentials []blueprint.MqttCredential
}

// provisionInstances 解析全部标签后并发创建用户和设备；
// 两批都拿到服务端 id 之后才发起凭证签发（凭证引用父实体 id）
func (p *Pipeline) provisionInstances(ctx context.Context, templates *TemplateSet, entities *EntitySet) (*InstanceSet, error) {
	endUsers := make([]blueprint.EndUser, 0, len(p.catalog.EndUsers))
	for _, seed := range p.catalog.EndUsers {
		orgID, err := entities.OrganizationIDs.Lookup(seed.Organization)
		if err != nil {
			return nil, err
		}
		orgTemplateID, err := templates.OrgTemplateIDs.Lookup(seed.OrganizationTemplate)
		if err != nil {
			return nil, err
		}
		userTemplateID, err := templates.EndUserTemplateIDs.Lookup(seed.EndUserTemplate)
		if err != nil {
			return nil, err
		}
		endUsers = append(endUsers, blueprint.EndUser{
			Name:                   seed.Name,
			OrganizationID:         orgID,
			OrganizationTemplateID: orgTemplateID,
			EndUserTemplateID:      userTemplateID,
		})
	}

	devices := make([]blueprint.Device, 0, len(p.catalog.Devices))
	for _, seed := range p.catalog.Devices {
		templateID, err := templates.DeviceTemplateIDs.Lookup(seed.DeviceTemplate)
		if err != nil {
			return nil, err
		}
		orgID, err := entities.OrganizationIDs.Lookup(seed.Organization)
		if err != nil {
			return nil, err
		}
		devices = append(devices, blueprint.Device{
			Name:             seed.Name,
			SerialNumber:     seed.SerialNumber,
			DeviceTemplateID: templateID,
			OrganizationID:   orgID,
			HardwareVersion:  seed.HardwareVersion,
			IncludedSensors:  seed.IncludedSensors,
			Color:            seed.Color,
			ProductionRun:    seed.ProductionRun,
			PowerVersion:     seed.PowerVersion,
			FilterType:       seed.FilterType,
			FirmwareVersion:  seed.FirmwareVersion,
		})
	}

	out := &InstanceSet{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		created, err := p.api.CreateEndUsers(gctx, endUsers)
		if err != nil {
			return err
		}
		out.EndUsers = created
		return nil
	})
	g.Go(func() error {
		created, err := p.api.CreateDevices(gctx, devices)
		if err != nil {
			return err
		}
		out.Devices = created
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	refs := make([]blueprint.EntityRef, 0, len(out.Devices)+len(out.EndUsers))
	for _, device := range out.Devices {
		refs = append(refs, blueprint.EntityRef{
			EntityID:   device.ID,
			EntityType: blueprint.EntityTypeDevice,
		})
	}
	for _, endUser := range out.EndUsers {
		refs = append(refs, blueprint.EntityRef{
			EntityID:   endUser.ID,
			EntityType: blueprint.EntityTypeEndUser,
		})
	}

	credentials, err := p.api.CreateMqttCredentials(ctx, refs)
	if err != nil {
		return nil, err
	}
	out.MqttCredentials = credentials

	return out, nil
}
