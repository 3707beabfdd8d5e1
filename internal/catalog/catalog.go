// Package catalog 声明式种子数据：provisioning pipeline 的输入
// 记录只携带模板/组织的名字；ID 在 pipeline 各阶段解析后补上
package catalog

import "fmt"

// 固定名字常量（模板和组织按这些名字互相引用）
const (
	HomeOrgTemplate      = "Home"
	WarehouseOrgTemplate = "Warehouse"
	FactoryOrgTemplate   = "Factory"

	HomeAirPurifier = "Home Air Purifier"
	IndustrialHVAC  = "Industrial HVAC"
	Jacket          = "Jacket"
	SolarPanel      = "Solar Panel"

	HomeUser          = "Home User"
	OperationsManager = "Operations Manager"
	ServiceTechnician = "Service Technician"
)

// OrganizationSeed 组织种子（organizationTemplate 为模板名）
type OrganizationSeed struct {
	OrganizationTemplate string
	Name                 string
}

// ChannelSeed 设备模板通道种子
type ChannelSeed struct {
	Name            string
	PersistenceType string // "simple" | "timeSeries"
	DeviceTemplate  string
}

// FieldSeed 设备自定义字段种子
type FieldSeed struct {
	Name           string
	FieldType      string // "string" | "datetime"
	DeviceTemplate string
}

// DeviceSeed 设备种子
type DeviceSeed struct {
	DeviceTemplate  string
	Organization    string
	Name            string
	SerialNumber    string
	HardwareVersion string
	IncludedSensors string
	Color           string
	ProductionRun   string
	PowerVersion    string
	FilterType      string
	FirmwareVersion string
}

// EndUserSeed 终端用户种子
type EndUserSeed struct {
	OrganizationTemplate string
	Organization         string
	EndUserTemplate      string
	Name                 string
}

// Catalog 完整种子目录
type Catalog struct {
	OrganizationTemplates []string
	DeviceTemplates       []string
	EndUserTemplates      []string
	Organizations         []OrganizationSeed
	ChannelTemplates      []ChannelSeed
	DeviceFields          []FieldSeed
	Devices               []DeviceSeed
	EndUsers              []EndUserSeed
}

// Default 构建演示用的默认目录：
// Home x5 / Warehouse x3 / Factory x3 组织，
// 每个 Home 组织 3 台空气净化器 + 1 件夹克，
// 每个 Warehouse 组织 10 台工业 HVAC + 1 块太阳能板，
// Home 组织各 2 个 Home User，Warehouse 组织各 2 个技师 + 1 个运营经理。
func Default() *Catalog {
	homeOrgs := numberedOrganizations(HomeOrgTemplate, 5)
	warehouseOrgs := numberedOrganizations(WarehouseOrgTemplate, 3)
	factoryOrgs := numberedOrganizations(FactoryOrgTemplate, 3)

	organizations := concat(homeOrgs, warehouseOrgs, factoryOrgs)

	c := &Catalog{
		OrganizationTemplates: []string{HomeOrgTemplate, WarehouseOrgTemplate, FactoryOrgTemplate},
		DeviceTemplates:       []string{HomeAirPurifier, IndustrialHVAC, Jacket, SolarPanel},
		EndUserTemplates:      []string{HomeUser, OperationsManager, ServiceTechnician},
		Organizations:         organizations,
	}

	purifierFields := []fieldSpec{
		{"hardwareVersion", "string"},
		{"includedSensors", "string"},
		{"color", "string"},
		{"productionRun", "string"},
		{"powerVersion", "string"},
		{"activatedDate", "datetime"},
		{"filterType", "string"},
	}
	wearableFields := []fieldSpec{
		{"hardwareVersion", "string"},
		{"includedSensors", "string"},
		{"color", "string"},
		{"productionRun", "string"},
		{"activatedDate", "datetime"},
	}
	c.DeviceFields = concat(
		fieldsFor(HomeAirPurifier, purifierFields),
		fieldsFor(IndustrialHVAC, purifierFields),
		fieldsFor(Jacket, wearableFields),
		fieldsFor(SolarPanel, wearableFields),
	)

	airChannels := []channelSpec{
		{"control", "simple"},
		{"humidity", "simple"},
		{"fan", "simple"},
		{"temp", "timeSeries"},
		{"co", "timeSeries"},
		{"dust", "timeSeries"},
		{"filter", "timeSeries"},
	}
	c.ChannelTemplates = concat(
		channelsFor(HomeAirPurifier, airChannels),
		channelsFor(IndustrialHVAC, airChannels),
		channelsFor(Jacket, []channelSpec{
			{"control", "simple"},
			{"core", "timeSeries"},
			{"left-arm", "timeSeries"},
			{"right-arm", "timeSeries"},
		}),
		channelsFor(SolarPanel, []channelSpec{
			{"control", "simple"},
			{"power", "timeSeries"},
			{"voltage", "timeSeries"},
			{"current", "timeSeries"},
			{"irradiance", "timeSeries"},
		}),
	)

	c.Devices = concat(
		devicesFor(HomeAirPurifier, homeOrgs, 3, deviceTraits{
			IncludedSensors: "Temperature, Humidity, VoC, CO, Dust, Filter",
			PowerVersion:    "12VDC",
			FilterType:      "carbonHEPA",
			FirmwareMajor:   "2.0",
		}),
		devicesFor(IndustrialHVAC, warehouseOrgs, 10, deviceTraits{
			IncludedSensors: "Temperature, Humidity, VoC, CO, Dust, Filter",
			PowerVersion:    "12VDC",
			FilterType:      "carbonHEPA",
			FirmwareMajor:   "2.0",
		}),
		devicesFor(Jacket, homeOrgs, 1, deviceTraits{
			IncludedSensors: "Core, Left arm, Right arm",
			FirmwareMajor:   "1.0",
		}),
		devicesFor(SolarPanel, warehouseOrgs, 1, deviceTraits{
			IncludedSensors: "Core, Left arm, Right arm",
			FirmwareMajor:   "1.0",
		}),
	)

	names := newNameSource()
	for _, org := range homeOrgs {
		for i := 0; i < 2; i++ {
			c.EndUsers = append(c.EndUsers, EndUserSeed{
				OrganizationTemplate: org.OrganizationTemplate,
				Organization:         org.Name,
				EndUserTemplate:      HomeUser,
				Name:                 names.next(),
			})
		}
	}
	for _, org := range warehouseOrgs {
		for i := 0; i < 2; i++ {
			c.EndUsers = append(c.EndUsers, EndUserSeed{
				OrganizationTemplate: org.OrganizationTemplate,
				Organization:         org.Name,
				EndUserTemplate:      ServiceTechnician,
				Name:                 names.next(),
			})
		}
		c.EndUsers = append(c.EndUsers, EndUserSeed{
			OrganizationTemplate: org.OrganizationTemplate,
			Organization:         org.Name,
			EndUserTemplate:      OperationsManager,
			Name:                 names.next(),
		})
	}

	return c
}

type fieldSpec struct {
	Name string
	Type string
}

type channelSpec struct {
	Name            string
	PersistenceType string
}

type deviceTraits struct {
	IncludedSensors string
	PowerVersion    string
	FilterType      string
	FirmwareMajor   string
}

func numberedOrganizations(template string, count int) []OrganizationSeed {
	orgs := make([]OrganizationSeed, 0, count)
	for i := 1; i <= count; i++ {
		orgs = append(orgs, OrganizationSeed{
			OrganizationTemplate: template,
			Name:                 fmt.Sprintf("%s-%d", template, i),
		})
	}
	return orgs
}

func fieldsFor(deviceTemplate string, specs []fieldSpec) []FieldSeed {
	fields := make([]FieldSeed, 0, len(specs))
	for _, s := range specs {
		fields = append(fields, FieldSeed{
			Name:           s.Name,
			FieldType:      s.Type,
			DeviceTemplate: deviceTemplate,
		})
	}
	return fields
}

func channelsFor(deviceTemplate string, specs []channelSpec) []ChannelSeed {
	channels := make([]ChannelSeed, 0, len(specs))
	for _, s := range specs {
		channels = append(channels, ChannelSeed{
			Name:            s.Name,
			PersistenceType: s.PersistenceType,
			DeviceTemplate:  deviceTemplate,
		})
	}
	return channels
}

// devicesFor 每个组织生成 perOrg 台设备；序列号全局连续、6位零填充
func devicesFor(template string, orgs []OrganizationSeed, perOrg int, traits deviceTraits) []DeviceSeed {
	slug := slugify(template)
	devices := make([]DeviceSeed, 0, len(orgs)*perOrg)
	for orgIdx, org := range orgs {
		for i := 0; i < perOrg; i++ {
			devices = append(devices, DeviceSeed{
				DeviceTemplate:  template,
				Organization:    org.Name,
				Name:            fmt.Sprintf("%s-%d", slug, i),
				SerialNumber:    fmt.Sprintf("%s-%06d", slug, perOrg*orgIdx+i+1),
				HardwareVersion: fmt.Sprintf("1.1.%d", i),
				IncludedSensors: traits.IncludedSensors,
				Color:           "white",
				ProductionRun:   "DEC2016",
				PowerVersion:    traits.PowerVersion,
				FilterType:      traits.FilterType,
				FirmwareVersion: fmt.Sprintf("%s.%d", traits.FirmwareMajor, i),
			})
		}
	}
	return devices
}

func concat[T any](lists ...[]T) []T {
	var out []T
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
