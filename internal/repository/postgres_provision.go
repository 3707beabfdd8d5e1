package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

//go:embed tables.sql
var tablesSQL string

// PostgresProvisionRepo ProvisionRepository 的 PostgreSQL 实现
type PostgresProvisionRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ ProvisionRepository = (*PostgresProvisionRepo)(nil)

func NewPostgresProvisionRepo(db *sql.DB, logger *zap.Logger) *PostgresProvisionRepo {
	return &PostgresProvisionRepo{db: db, logger: logger}
}

// EnsureSchema 按语句切分执行建表脚本；脚本全部 IF NOT EXISTS，重跑安全
func (r *PostgresProvisionRepo) EnsureSchema(ctx context.Context) error {
	statements := strings.Split(tablesSQL, ";")
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		// comment lines may share a chunk with the statement that follows them
		for strings.HasPrefix(stmt, "--") {
			if i := strings.IndexByte(stmt, '\n'); i >= 0 {
				stmt = strings.TrimSpace(stmt[i+1:])
			} else {
				stmt = ""
			}
		}
		if stmt == "" {
			continue
		}
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	r.logger.Debug("Schema ensured")
	return nil
}

func (r *PostgresProvisionRepo) InsertInventory(ctx context.Context, serial string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO inventory (serial)
		 VALUES ($1)
		 ON CONFLICT (serial) DO UPDATE SET serial = EXCLUDED.serial
		 RETURNING id`,
		serial,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert inventory row for serial %q: %w", serial, err)
	}
	return id, nil
}

func (r *PostgresProvisionRepo) InsertFirmware(ctx context.Context, row FirmwareRow) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO firmware (
			inventory_id, name, serial_number, device_id,
			device_template_id, device_template_name, organization_id,
			account_id, entity_id, entity_type, secret, firmware_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		row.InventoryID,
		row.Name,
		row.SerialNumber,
		row.DeviceID,
		row.DeviceTemplateID,
		row.DeviceTemplateName,
		row.OrganizationID,
		row.AccountID,
		row.EntityID,
		row.EntityType,
		row.Secret,
		row.FirmwareVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to insert firmware row for device %s: %w", row.DeviceID, err)
	}
	return nil
}

func (r *PostgresProvisionRepo) InsertApplicationConfig(ctx context.Context, row ApplicationConfigRow) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO application_config (
			end_user_id, end_user_name, account_id,
			organization_id, organization_name,
			organization_template_id, end_user_template_id,
			entity_id, entity_type, secret
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		row.EndUserID,
		row.EndUserName,
		row.AccountID,
		row.OrganizationID,
		row.OrganizationName,
		row.OrganizationTemplateID,
		row.EndUserTemplateID,
		row.EntityID,
		row.EntityType,
		row.Secret,
	)
	if err != nil {
		return fmt.Errorf("failed to insert application config row for end user %s: %w", row.EndUserID, err)
	}
	return nil
}
