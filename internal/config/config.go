package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// SalesforceConfig Salesforce 配置
// 三个凭证都存在时才启用镜像；否则 provisioning 退化为合成账号用户
type SalesforceConfig struct {
	User         string
	Pass         string
	Token        string
	LoginURL     string
	ClientID     string
	ClientSecret string
	Namespace    string
}

// Enabled Salesforce 镜像是否启用
func (c *SalesforceConfig) Enabled() bool {
	return c.User != "" && c.Pass != "" && c.Token != ""
}

// Config concaria provision（一次性种子脚本）配置
type Config struct {
	Blueprint struct {
		BaseURL      string
		AccountID    string
		AppToken     string
		EmailAddress string
		Password     string
	}
	DBEnabled  bool
	Database   DatabaseConfig
	Salesforce SalesforceConfig
	Redis      struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
	}
	MQTT struct {
		// VerifyCredentials 为 true 时，签发后用每个凭证连一次 broker 做冒烟检查
		VerifyCredentials bool
		Broker            string
	}
	Report struct {
		// ExcelPath 非空时导出 provisioning 库存报告
		ExcelPath string
	}
	Log struct {
		Level  string
		Format string
	}
}

func Load() *Config {
	// Load .env if present (optional - fails silently if not found)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Blueprint.BaseURL = getEnv("BLUEPRINT_BASE_URL", "https://blueprint.xively.com")
	cfg.Blueprint.AccountID = getEnv("XIVELY_ACCOUNT_ID", "")
	cfg.Blueprint.AppToken = getEnv("XIVELY_APP_TOKEN", "")
	cfg.Blueprint.EmailAddress = getEnv("XIVELY_EMAIL", "")
	cfg.Blueprint.Password = getEnv("XIVELY_PASSWORD", "")

	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "concaria")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Salesforce.User = getEnv("SALESFORCE_USER", "")
	cfg.Salesforce.Pass = getEnv("SALESFORCE_PASS", "")
	cfg.Salesforce.Token = getEnv("SALESFORCE_TOKEN", "")
	cfg.Salesforce.LoginURL = getEnv("SALESFORCE_LOGIN_URL", "https://login.salesforce.com")
	cfg.Salesforce.ClientID = getEnv("SALESFORCE_CLIENT_ID", "")
	cfg.Salesforce.ClientSecret = getEnv("SALESFORCE_CLIENT_SECRET", "")
	cfg.Salesforce.Namespace = getEnv("SALESFORCE_NAMESPACE", "xively")

	cfg.Redis.Enabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)

	cfg.MQTT.VerifyCredentials = getEnv("MQTT_VERIFY_CREDENTIALS", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://broker.xively.com:1883")

	cfg.Report.ExcelPath = getEnv("PROVISION_REPORT_PATH", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return defaultValue
}
