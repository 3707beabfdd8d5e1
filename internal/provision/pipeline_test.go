package provision

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"concaria/internal/blueprint"
	"concaria/internal/catalog"
	"concaria/internal/repository"
)

// fakeAPI 内存版 blueprint.API：分配递增 id，记录调用顺序
type fakeAPI struct {
	mu    sync.Mutex
	calls []string

	loginErr error
	// credentialsPerRef 每个实体签发几条凭证（默认 1；用于完整性测试）
	credentialsPerRef int

	deviceCreateCalls  int
	endUserCreateCalls int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{credentialsPerRef: 1}
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) callIndex(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.calls {
		if c == call {
			return i
		}
	}
	return -1
}

func (f *fakeAPI) Login(ctx context.Context) error {
	f.record("Login")
	return f.loginErr
}

func (f *fakeAPI) CreateOrganizationTemplates(ctx context.Context, templates []blueprint.OrganizationTemplate) ([]blueprint.OrganizationTemplate, error) {
	out := make([]blueprint.OrganizationTemplate, len(templates))
	for i, t := range templates {
		t.ID = fmt.Sprintf("orgtpl-%d", i+1)
		out[i] = t
	}
	f.record("CreateOrganizationTemplates")
	return out, nil
}

func (f *fakeAPI) CreateDeviceTemplates(ctx context.Context, templates []blueprint.DeviceTemplate) ([]blueprint.DeviceTemplate, error) {
	out := make([]blueprint.DeviceTemplate, len(templates))
	for i, t := range templates {
		t.ID = fmt.Sprintf("devtpl-%d", i+1)
		out[i] = t
	}
	f.record("CreateDeviceTemplates")
	return out, nil
}

func (f *fakeAPI) CreateEndUserTemplates(ctx context.Context, templates []blueprint.EndUserTemplate) ([]blueprint.EndUserTemplate, error) {
	out := make([]blueprint.EndUserTemplate, len(templates))
	for i, t := range templates {
		t.ID = fmt.Sprintf("usertpl-%d", i+1)
		out[i] = t
	}
	f.record("CreateEndUserTemplates")
	return out, nil
}

func (f *fakeAPI) CreateAccountUsers(ctx context.Context, users []blueprint.AccountUser) ([]blueprint.AccountUser, error) {
	out := make([]blueprint.AccountUser, len(users))
	for i, u := range users {
		u.ID = fmt.Sprintf("acctuser-%d", i+1)
		out[i] = u
	}
	f.record("CreateAccountUsers")
	return out, nil
}

func (f *fakeAPI) CreateOrganizations(ctx context.Context, orgs []blueprint.Organization) ([]blueprint.Organization, error) {
	out := make([]blueprint.Organization, len(orgs))
	for i, org := range orgs {
		org.ID = fmt.Sprintf("org-%d", i+1)
		out[i] = org
	}
	f.record("CreateOrganizations")
	return out, nil
}

func (f *fakeAPI) CreateChannelTemplates(ctx context.Context, templates []blueprint.ChannelTemplate) ([]blueprint.ChannelTemplate, error) {
	out := make([]blueprint.ChannelTemplate, len(templates))
	for i, t := range templates {
		t.ID = fmt.Sprintf("chan-%d", i+1)
		out[i] = t
	}
	f.record("CreateChannelTemplates")
	return out, nil
}

func (f *fakeAPI) CreateDeviceFields(ctx context.Context, fields []blueprint.DeviceField) ([]blueprint.DeviceField, error) {
	out := make([]blueprint.DeviceField, len(fields))
	for i, fld := range fields {
		fld.ID = fmt.Sprintf("field-%d", i+1)
		out[i] = fld
	}
	f.record("CreateDeviceFields")
	return out, nil
}

func (f *fakeAPI) CreateEndUsers(ctx context.Context, users []blueprint.EndUser) ([]blueprint.EndUser, error) {
	f.mu.Lock()
	f.endUserCreateCalls++
	f.mu.Unlock()
	out := make([]blueprint.EndUser, len(users))
	for i, u := range users {
		u.ID = fmt.Sprintf("user-%d", i+1)
		out[i] = u
	}
	f.record("CreateEndUsers")
	return out, nil
}

func (f *fakeAPI) CreateDevices(ctx context.Context, devices []blueprint.Device) ([]blueprint.Device, error) {
	f.mu.Lock()
	f.deviceCreateCalls++
	f.mu.Unlock()
	out := make([]blueprint.Device, len(devices))
	for i, d := range devices {
		d.ID = fmt.Sprintf("device-%d", i+1)
		out[i] = d
	}
	f.record("CreateDevices")
	return out, nil
}

func (f *fakeAPI) CreateMqttCredentials(ctx context.Context, refs []blueprint.EntityRef) ([]blueprint.MqttCredential, error) {
	f.record("CreateMqttCredentials")
	var out []blueprint.MqttCredential
	for _, ref := range refs {
		for i := 0; i < f.credentialsPerRef; i++ {
			out = append(out, blueprint.MqttCredential{
				EntityID:   ref.EntityID,
				EntityType: ref.EntityType,
				AccountID:  "acct-1",
				Secret:     "secret-" + ref.EntityID,
			})
		}
	}
	return out, nil
}

// fakeRepo 内存版 ProvisionRepository
type fakeRepo struct {
	mu         sync.Mutex
	schemaRuns int
	inventory  []string
	firmware   []repository.FirmwareRow
	appConfigs []repository.ApplicationConfigRow
}

func (r *fakeRepo) EnsureSchema(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemaRuns++
	return nil
}

func (r *fakeRepo) InsertInventory(ctx context.Context, serial string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inventory = append(r.inventory, serial)
	return int64(len(r.inventory)), nil
}

func (r *fakeRepo) InsertFirmware(ctx context.Context, row repository.FirmwareRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.firmware = append(r.firmware, row)
	return nil
}

func (r *fakeRepo) InsertApplicationConfig(ctx context.Context, row repository.ApplicationConfigRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appConfigs = append(r.appConfigs, row)
	return nil
}

// smallCatalog 最小场景：2 个组织模板、1 个设备模板、1 个组织、1 台设备、1 个用户
func smallCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		OrganizationTemplates: []string{"Home", "Warehouse"},
		DeviceTemplates:       []string{"Home Air Purifier"},
		EndUserTemplates:      []string{"Home User"},
		Organizations: []catalog.OrganizationSeed{
			{OrganizationTemplate: "Home", Name: "Home-1"},
		},
		ChannelTemplates: []catalog.ChannelSeed{
			{Name: "temp", PersistenceType: "timeSeries", DeviceTemplate: "Home Air Purifier"},
		},
		DeviceFields: []catalog.FieldSeed{
			{Name: "hardwareVersion", FieldType: "string", DeviceTemplate: "Home Air Purifier"},
		},
		Devices: []catalog.DeviceSeed{
			{
				DeviceTemplate: "Home Air Purifier",
				Organization:   "Home-1",
				Name:           "Home-Air-Purifier-0",
				SerialNumber:   "Home-Air-Purifier-000001",
			},
		},
		EndUsers: []catalog.EndUserSeed{
			{
				OrganizationTemplate: "Home",
				Organization:         "Home-1",
				EndUserTemplate:      "Home User",
				Name:                 "Ada Jensen",
			},
		},
	}
}

func newTestPipeline(api blueprint.API, repo repository.ProvisionRepository, cat *catalog.Catalog) *Pipeline {
	return NewPipeline(api, repo, nil, cat, "acct-1", zap.NewNop())
}

func TestPipelineRun_EndToEnd(t *testing.T) {
	api := newFakeAPI()
	repo := &fakeRepo{}
	p := newTestPipeline(api, repo, smallCatalog())

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	// 设备的外键必须解析到同名模板/组织的服务端 id
	require.Len(t, result.Instances.Devices, 1)
	device := result.Instances.Devices[0]
	homeOrg := result.Entities.Organizations[0]
	purifierTemplate := result.Templates.DeviceTemplates[0]
	assert.Equal(t, "Home-1", homeOrg.Name)
	assert.Equal(t, homeOrg.ID, device.OrganizationID)
	assert.Equal(t, purifierTemplate.ID, device.DeviceTemplateID)

	// 组织本身也要挂到正确的组织模板
	assert.Equal(t, result.Templates.OrganizationTemplates[0].ID, homeOrg.OrganizationTemplateID)

	// 入库：1 条库存、1 条固件、1 条应用配置
	assert.Equal(t, 1, repo.schemaRuns)
	assert.Equal(t, []string{"Home-Air-Purifier-000001"}, repo.inventory)
	require.Len(t, repo.firmware, 1)
	assert.Equal(t, device.ID, repo.firmware[0].DeviceID)
	assert.Equal(t, device.ID, repo.firmware[0].EntityID)
	assert.Equal(t, "secret-"+device.ID, repo.firmware[0].Secret)
	require.Len(t, repo.appConfigs, 1)
	assert.Equal(t, result.Instances.EndUsers[0].ID, repo.appConfigs[0].EntityID)
}

func TestPipelineRun_CredentialsAfterBothBatches(t *testing.T) {
	api := newFakeAPI()
	p := newTestPipeline(api, &fakeRepo{}, smallCatalog())

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	credIdx := api.callIndex("CreateMqttCredentials")
	require.NotEqual(t, -1, credIdx)
	assert.Less(t, api.callIndex("CreateDevices"), credIdx)
	assert.Less(t, api.callIndex("CreateEndUsers"), credIdx)
}

func TestPipelineRun_UnknownOrganizationFailsBeforeCreate(t *testing.T) {
	cat := smallCatalog()
	cat.Devices[0].Organization = "Nonexistent"

	api := newFakeAPI()
	p := newTestPipeline(api, &fakeRepo{}, cat)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownReference)
	assert.Contains(t, err.Error(), "Nonexistent")

	// 解析失败必须发生在该批任何创建请求之前
	assert.Equal(t, 0, api.deviceCreateCalls)
	assert.Equal(t, 0, api.endUserCreateCalls)
	assert.Equal(t, -1, api.callIndex("CreateMqttCredentials"))
}

func TestPipelineRun_UnknownDeviceTemplateFailsStageThree(t *testing.T) {
	cat := smallCatalog()
	cat.ChannelTemplates[0].DeviceTemplate = "No Such Template"

	api := newFakeAPI()
	p := newTestPipeline(api, &fakeRepo{}, cat)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownReference)
	assert.Equal(t, -1, api.callIndex("CreateOrganizations"))
}

func TestPipelineRun_DevicesPairWithOwnCredentials(t *testing.T) {
	cat := smallCatalog()
	cat.Devices = append(cat.Devices, catalog.DeviceSeed{
		DeviceTemplate: "Home Air Purifier",
		Organization:   "Home-1",
		Name:           "Home-Air-Purifier-1",
		SerialNumber:   "Home-Air-Purifier-000002",
	})

	api := newFakeAPI()
	repo := &fakeRepo{}
	p := newTestPipeline(api, repo, cat)

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, repo.firmware, 2)

	byDevice := map[string]repository.FirmwareRow{}
	for _, row := range repo.firmware {
		byDevice[row.DeviceID] = row
	}
	for _, device := range result.Instances.Devices {
		row, ok := byDevice[device.ID]
		require.True(t, ok)
		assert.Equal(t, device.ID, row.EntityID)
		assert.Equal(t, "secret-"+device.ID, row.Secret)
	}
}

func TestPipelineRun_MissingCredentialIsIntegrityError(t *testing.T) {
	api := newFakeAPI()
	api.credentialsPerRef = 0
	p := newTestPipeline(api, &fakeRepo{}, smallCatalog())

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCredentialMismatch)
}

func TestPipelineRun_DuplicateCredentialIsIntegrityError(t *testing.T) {
	api := newFakeAPI()
	api.credentialsPerRef = 2
	p := newTestPipeline(api, &fakeRepo{}, smallCatalog())

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCredentialMismatch)
}

func TestPipelineRun_LoginFailureStopsEverything(t *testing.T) {
	api := newFakeAPI()
	api.loginErr = fmt.Errorf("bad token")
	p := newTestPipeline(api, &fakeRepo{}, smallCatalog())

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication failed")
	assert.Equal(t, -1, api.callIndex("CreateOrganizationTemplates"))
}

func TestPipelineRun_NilRepoSkipsPersistence(t *testing.T) {
	api := newFakeAPI()
	p := newTestPipeline(api, nil, smallCatalog())

	result, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, result.Instances)
}

func TestPipelineRun_DefaultCatalog(t *testing.T) {
	api := newFakeAPI()
	repo := &fakeRepo{}
	p := newTestPipeline(api, repo, catalog.Default())

	result, err := p.Run(context.Background())
	require.NoError(t, err)

	// 5 Home + 3 Warehouse + 3 Factory
	assert.Len(t, result.Entities.Organizations, 11)
	// 5*3 净化器 + 3*10 HVAC + 5*1 夹克 + 3*1 太阳能板
	assert.Len(t, result.Instances.Devices, 53)
	// 5*2 Home User + 3*(2+1) Warehouse 用户
	assert.Len(t, result.Instances.EndUsers, 19)
	assert.Len(t, result.Instances.MqttCredentials, 53+19)
	assert.Len(t, repo.firmware, 53)
	assert.Len(t, repo.appConfigs, 19)
}
