package provision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEmails struct {
	email string
	err   error
}

func (f *fakeEmails) GetUserEmail(ctx context.Context) (string, error) {
	return f.email, f.err
}

func TestProvisionTemplates_SyntheticAccountUser(t *testing.T) {
	api := newFakeAPI()
	p := newTestPipeline(api, nil, smallCatalog())

	templates, err := p.provisionTemplates(context.Background())
	require.NoError(t, err)

	require.Len(t, templates.AccountUsers, 1)
	user := templates.AccountUsers[0]
	assert.Equal(t, "acct-1", user.AccountID)
	assert.False(t, user.CreateIDMUser)
	assert.Empty(t, user.IDMUserEmail)
}

func TestProvisionTemplates_IDMAccountUserFromEmailSource(t *testing.T) {
	api := newFakeAPI()
	p := NewPipeline(api, nil, &fakeEmails{email: "ops@example.com"}, smallCatalog(), "acct-1", zap.NewNop())

	templates, err := p.provisionTemplates(context.Background())
	require.NoError(t, err)

	require.Len(t, templates.AccountUsers, 1)
	user := templates.AccountUsers[0]
	assert.True(t, user.CreateIDMUser)
	assert.Equal(t, "ops@example.com", user.IDMUserEmail)
}

func TestProvisionTemplates_BuildsIndexes(t *testing.T) {
	api := newFakeAPI()
	p := newTestPipeline(api, nil, smallCatalog())

	templates, err := p.provisionTemplates(context.Background())
	require.NoError(t, err)

	id, err := templates.OrgTemplateIDs.Lookup("Warehouse")
	require.NoError(t, err)
	assert.Equal(t, templates.OrganizationTemplates[1].ID, id)

	id, err = templates.DeviceTemplateIDs.Lookup("Home Air Purifier")
	require.NoError(t, err)
	assert.Equal(t, templates.DeviceTemplates[0].ID, id)
}
