package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"concaria/internal/blueprint"
	"concaria/internal/catalog"
	"concaria/internal/config"
	"concaria/internal/database"
	"concaria/internal/logger"
	"concaria/internal/mqtt"
	"concaria/internal/provision"
	"concaria/internal/report"
	"concaria/internal/repository"
	"concaria/internal/salesforce"
	"concaria/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "concaria-provision")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Provision error", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	api := blueprint.NewClient(
		cfg.Blueprint.BaseURL,
		cfg.Blueprint.AccountID,
		cfg.Blueprint.AppToken,
		cfg.Blueprint.EmailAddress,
		cfg.Blueprint.Password,
		log,
	)

	// Salesforce 凭证齐全时才接入；否则账号用户走合成分支
	var sf *salesforce.Client
	var emails provision.EmailSource
	if cfg.Salesforce.Enabled() {
		sf = salesforce.NewClient(
			cfg.Salesforce.LoginURL,
			cfg.Salesforce.ClientID,
			cfg.Salesforce.ClientSecret,
			cfg.Salesforce.User,
			cfg.Salesforce.Pass,
			cfg.Salesforce.Token,
			cfg.Salesforce.Namespace,
			log,
		)
		emails = sf
	}

	var db *sql.DB
	var repo repository.ProvisionRepository
	if cfg.DBEnabled {
		db, err = database.NewPostgresDB(&cfg.Database)
		if err != nil {
			fail(log, err)
		}
		defer db.Close()
		repo = repository.NewPostgresProvisionRepo(db, log)
	} else {
		log.Warn("DB disabled, skipping persistence stage")
	}

	pipeline := provision.NewPipeline(api, repo, emails, catalog.Default(), cfg.Blueprint.AccountID, log)
	result, err := pipeline.Run(ctx)
	if err != nil {
		fail(log, err)
	}

	// 以下都是旁路通道：失败只告警，不影响退出码
	if sf != nil {
		mirrorToSalesforce(ctx, sf, result)
	}

	if cfg.MQTT.VerifyCredentials {
		verifier := mqtt.NewVerifier(cfg.MQTT.Broker, log)
		if err := verifier.VerifyCredentials(ctx, result.Instances.MqttCredentials); err != nil {
			log.Warn("MQTT credential verification failed", zap.Error(err))
		}
	}

	if cfg.Redis.Enabled {
		saveSummary(ctx, cfg, result, log)
	}

	if cfg.Report.ExcelPath != "" {
		if data, err := report.GenerateInventoryReport(result); err != nil {
			log.Warn("Inventory report generation failed", zap.Error(err))
		} else if err := os.WriteFile(cfg.Report.ExcelPath, data, 0o644); err != nil {
			log.Warn("Inventory report write failed", zap.Error(err))
		} else {
			log.Info("Inventory report written", zap.String("path", cfg.Report.ExcelPath))
		}
	}

	log.Info("Provision done")
}

// mirrorToSalesforce 设备→Asset、终端用户→Contact
func mirrorToSalesforce(ctx context.Context, sf *salesforce.Client, result *provision.Result) {
	templateNames := map[string]string{}
	for _, t := range result.Templates.DeviceTemplates {
		templateNames[t.ID] = t.Name
	}

	assets := make([]salesforce.Asset, 0, len(result.Instances.Devices))
	for _, device := range result.Instances.Devices {
		assets = append(assets, salesforce.Asset{
			Product:  templateNames[device.DeviceTemplateID],
			Serial:   device.SerialNumber,
			DeviceID: device.ID,
			OrgID:    device.OrganizationID,
		})
	}
	// AddAssets 内部已记录错误；镜像是旁路，这里不再上抛
	_ = sf.AddAssets(ctx, assets)

	contacts := make([]salesforce.Contact, 0, len(result.Instances.EndUsers))
	for _, endUser := range result.Instances.EndUsers {
		contacts = append(contacts, salesforce.Contact{
			Email: catalog.EmailFor(endUser.Name),
			OrgID: endUser.OrganizationID,
		})
	}
	sf.AddContacts(ctx, contacts)
}

func saveSummary(ctx context.Context, cfg *config.Config, result *provision.Result, log *zap.Logger) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	summaryStore := store.NewSummaryStore(redisClient)
	summary := store.RunSummary{
		AccountID:       cfg.Blueprint.AccountID,
		Organizations:   len(result.Entities.Organizations),
		Devices:         len(result.Instances.Devices),
		EndUsers:        len(result.Instances.EndUsers),
		MqttCredentials: len(result.Instances.MqttCredentials),
		CompletedAt:     time.Now(),
	}
	if err := summaryStore.SaveRun(ctx, summary, result.Instances.Devices); err != nil {
		log.Warn("Run summary store failed", zap.Error(err))
	}
}

func fail(log *zap.Logger, err error) {
	log.Error("Provision error", zap.Error(err))
	fmt.Fprintln(os.Stderr, "Provision error:", err)
	os.Exit(1)
}
