package provision

import (
	"context"

	"golang.org/x/sync/errgroup"

	"concaria/internal/blueprint"
)

// EntitySet 阶段3产出：组织、通道模板、设备字段，以及组织的 name→id 索引
type EntitySet struct {
	Organizations    []blueprint.Organization
	ChannelTemplates []blueprint.ChannelTemplate
	DeviceFields     []blueprint.DeviceField

	OrganizationIDs *NameIndex
}

// provisionEntities 先把全部种子的模板名解析成 id（任何一条解析失败
// 都在发出任何创建请求之前终止本阶段），再三路并发创建
func (p *Pipeline) provisionEntities(ctx context.Context, templates *TemplateSet) (*EntitySet, error) {
	orgs := make([]blueprint.Organization, 0, len(p.catalog.Organizations))
	for _, seed := range p.catalog.Organizations {
		templateID, err := templates.OrgTemplateIDs.Lookup(seed.OrganizationTemplate)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, blueprint.Organization{
			Name:                   seed.Name,
			OrganizationTemplateID: templateID,
		})
	}

	channels := make([]blueprint.ChannelTemplate, 0, len(p.catalog.ChannelTemplates))
	for _, seed := range p.catalog.ChannelTemplates {
		templateID, err := templates.DeviceTemplateIDs.Lookup(seed.DeviceTemplate)
		if err != nil {
			return nil, err
		}
		channels = append(channels, blueprint.ChannelTemplate{
			Name:            seed.Name,
			PersistenceType: seed.PersistenceType,
			EntityID:        templateID,
			EntityType:      "deviceTemplate",
		})
	}

	fields := make([]blueprint.DeviceField, 0, len(p.catalog.DeviceFields))
	for _, seed := range p.catalog.DeviceFields {
		templateID, err := templates.DeviceTemplateIDs.Lookup(seed.DeviceTemplate)
		if err != nil {
			return nil, err
		}
		fields = append(fields, blueprint.DeviceField{
			Name:             seed.Name,
			FieldType:        seed.FieldType,
			DeviceTemplateID: templateID,
		})
	}

	out := &EntitySet{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		created, err := p.api.CreateOrganizations(ctx, orgs)
		if err != nil {
			return err
		}
		out.Organizations = created
		return nil
	})
	g.Go(func() error {
		created, err := p.api.CreateChannelTemplates(ctx, channels)
		if err != nil {
			return err
		}
		out.ChannelTemplates = created
		return nil
	})
	g.Go(func() error {
		created, err := p.api.CreateDeviceFields(ctx, fields)
		if err != nil {
			return err
		}
		out.DeviceFields = created
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.OrganizationIDs = NewNameIndex("organization")
	for _, org := range out.Organizations {
		out.OrganizationIDs.Add(org.Name, org.ID)
	}

	return out, nil
}
