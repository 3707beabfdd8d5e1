// Package store provision 结果的 Redis 缓存（demo 前端读取）
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"concaria/internal/blueprint"
)

// ErrNoSummary 还没有任何 provision 运行写入概要
var ErrNoSummary = errors.New("no provision summary stored")

const (
	summaryKey      = "concaria:provision:summary"
	deviceKeyPrefix = "concaria:provision:device:"
)

// RunSummary 一次 provision 运行的概要
type RunSummary struct {
	AccountID       string    `json:"accountId"`
	Organizations   int       `json:"organizations"`
	Devices         int       `json:"devices"`
	EndUsers        int       `json:"endUsers"`
	MqttCredentials int       `json:"mqttCredentials"`
	CompletedAt     time.Time `json:"completedAt"`
}

// DeviceEntry 按序列号索引的已创建设备
type DeviceEntry struct {
	DeviceID         string `json:"deviceId"`
	Name             string `json:"name"`
	SerialNumber     string `json:"serialNumber"`
	DeviceTemplateID string `json:"deviceTemplateId"`
	OrganizationID   string `json:"organizationId"`
}

// SummaryStore provision 结果的 Redis 存取
type SummaryStore struct {
	c *redis.Client
}

func NewSummaryStore(c *redis.Client) *SummaryStore {
	return &SummaryStore{c: c}
}

// SaveRun 写入概要和按序列号索引的设备条目；不设过期
func (s *SummaryStore) SaveRun(ctx context.Context, summary RunSummary, devices []blueprint.Device) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	if err := s.c.Set(ctx, summaryKey, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to store run summary: %w", err)
	}

	for _, device := range devices {
		entry, err := json.Marshal(DeviceEntry{
			DeviceID:         device.ID,
			Name:             device.Name,
			SerialNumber:     device.SerialNumber,
			DeviceTemplateID: device.DeviceTemplateID,
			OrganizationID:   device.OrganizationID,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal device entry: %w", err)
		}
		if err := s.c.Set(ctx, deviceKeyPrefix+device.SerialNumber, entry, 0).Err(); err != nil {
			return fmt.Errorf("failed to store device entry for %s: %w", device.SerialNumber, err)
		}
	}
	return nil
}

// LoadRun 读取上次运行概要
func (s *SummaryStore) LoadRun(ctx context.Context) (*RunSummary, error) {
	val, err := s.c.Get(ctx, summaryKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNoSummary
		}
		return nil, err
	}
	var summary RunSummary
	if err := json.Unmarshal([]byte(val), &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run summary: %w", err)
	}
	return &summary, nil
}

// GetDevice 按序列号读取设备条目
func (s *SummaryStore) GetDevice(ctx context.Context, serial string) (*DeviceEntry, error) {
	val, err := s.c.Get(ctx, deviceKeyPrefix+serial).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("device %s not found in summary store", serial)
		}
		return nil, err
	}
	var entry DeviceEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal device entry: %w", err)
	}
	return &entry, nil
}

// ListDeviceSerials 列出已缓存设备的序列号
func (s *SummaryStore) ListDeviceSerials(ctx context.Context) ([]string, error) {
	var serials []string
	var cursor uint64
	for {
		keys, next, err := s.c.Scan(ctx, cursor, deviceKeyPrefix+"*", 200).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			serials = append(serials, key[len(deviceKeyPrefix):])
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return serials, nil
}
