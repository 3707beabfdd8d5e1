// Package report provision 结果的 Excel 库存报告导出
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"concaria/internal/provision"
)

// inventoryHeader 库存报告表头
var inventoryHeader = []string{
	"Device Name",
	"Serial Number",
	"Device ID",
	"Device Template",
	"Organization",
	"Firmware Version",
	"MQTT Secret Issued",
}

// GenerateInventoryReport 根据 provision 结果生成 Excel 报告
func GenerateInventoryReport(result *provision.Result) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteToBuffer needs the file to be open

	sheetName := "Provisioned Devices"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range inventoryHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	templateNames := map[string]string{}
	for _, t := range result.Templates.DeviceTemplates {
		templateNames[t.ID] = t.Name
	}
	organizationNames := map[string]string{}
	for _, org := range result.Entities.Organizations {
		organizationNames[org.ID] = org.Name
	}
	credentialIssued := map[string]bool{}
	for _, c := range result.Instances.MqttCredentials {
		credentialIssued[c.EntityID] = true
	}

	for rowIdx, device := range result.Instances.Devices {
		issued := "no"
		if credentialIssued[device.ID] {
			issued = "yes"
		}
		values := []any{
			device.Name,
			device.SerialNumber,
			device.ID,
			templateNames[device.DeviceTemplateID],
			organizationNames[device.OrganizationID],
			device.FirmwareVersion,
			issued,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				f.Close()
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	f.Close()
	return buf.Bytes(), nil
}
