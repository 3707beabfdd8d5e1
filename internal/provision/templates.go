package provision

import (
	"context"

	"golang.org/x/sync/errgroup"

	"concaria/internal/blueprint"
)

// TemplateSet 阶段2产出：三类模板 + 账号用户，以及各自的 name→id 索引
type TemplateSet struct {
	OrganizationTemplates []blueprint.OrganizationTemplate
	DeviceTemplates       []blueprint.DeviceTemplate
	EndUserTemplates      []blueprint.EndUserTemplate
	AccountUsers          []blueprint.AccountUser

	OrgTemplateIDs     *NameIndex
	DeviceTemplateIDs  *NameIndex
	EndUserTemplateIDs *NameIndex
}

// provisionTemplates 模板之间无依赖，四路并发创建
func (p *Pipeline) provisionTemplates(ctx context.Context) (*TemplateSet, error) {
	out := &TemplateSet{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		templates := make([]blueprint.OrganizationTemplate, 0, len(p.catalog.OrganizationTemplates))
		for _, name := range p.catalog.OrganizationTemplates {
			templates = append(templates, blueprint.OrganizationTemplate{Name: name})
		}
		created, err := p.api.CreateOrganizationTemplates(ctx, templates)
		if err != nil {
			return err
		}
		out.OrganizationTemplates = created
		return nil
	})
	g.Go(func() error {
		templates := make([]blueprint.DeviceTemplate, 0, len(p.catalog.DeviceTemplates))
		for _, name := range p.catalog.DeviceTemplates {
			templates = append(templates, blueprint.DeviceTemplate{Name: name})
		}
		created, err := p.api.CreateDeviceTemplates(ctx, templates)
		if err != nil {
			return err
		}
		out.DeviceTemplates = created
		return nil
	})
	g.Go(func() error {
		templates := make([]blueprint.EndUserTemplate, 0, len(p.catalog.EndUserTemplates))
		for _, name := range p.catalog.EndUserTemplates {
			templates = append(templates, blueprint.EndUserTemplate{Name: name})
		}
		created, err := p.api.CreateEndUserTemplates(ctx, templates)
		if err != nil {
			return err
		}
		out.EndUserTemplates = created
		return nil
	})
	g.Go(func() error {
		created, err := p.createAccountUser(ctx)
		if err != nil {
			return err
		}
		out.AccountUsers = created
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.OrgTemplateIDs = NewNameIndex("organization template")
	for _, t := range out.OrganizationTemplates {
		out.OrgTemplateIDs.Add(t.Name, t.ID)
	}
	out.DeviceTemplateIDs = NewNameIndex("device template")
	for _, t := range out.DeviceTemplates {
		out.DeviceTemplateIDs.Add(t.Name, t.ID)
	}
	out.EndUserTemplateIDs = NewNameIndex("end user template")
	for _, t := range out.EndUserTemplates {
		out.EndUserTemplateIDs.Add(t.Name, t.ID)
	}

	return out, nil
}

// createAccountUser Salesforce 已配置时带上 IDM 邮箱，否则创建合成账号用户
func (p *Pipeline) createAccountUser(ctx context.Context) ([]blueprint.AccountUser, error) {
	user := blueprint.AccountUser{AccountID: p.accountID}

	if p.emails != nil {
		email, err := p.emails.GetUserEmail(ctx)
		if err != nil {
			return nil, err
		}
		user.CreateIDMUser = true
		user.IDMUserEmail = email
	}

	return p.api.CreateAccountUsers(ctx, []blueprint.AccountUser{user})
}
