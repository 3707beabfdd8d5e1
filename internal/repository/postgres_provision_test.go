package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockProvisionRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresProvisionRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresProvisionRepo(db, zap.NewNop())
	return db, mock, repo
}

func expectSchemaStatements(mock sqlmock.Sqlmock) {
	// tables.sql 包含三条 CREATE TABLE IF NOT EXISTS
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS inventory`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS firmware`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS application_config`).WillReturnResult(sqlmock.NewResult(0, 0))
}

func TestEnsureSchema_ExecutesAllStatements(t *testing.T) {
	db, mock, repo := setupMockProvisionRepo(t)
	defer db.Close()

	expectSchemaStatements(mock)

	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_Rerunnable(t *testing.T) {
	db, mock, repo := setupMockProvisionRepo(t)
	defer db.Close()

	// 写入器不能假设只跑一次：两次执行都要成功
	expectSchemaStatements(mock)
	expectSchemaStatements(mock)

	ctx := context.Background()
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertInventory_ReturnsID(t *testing.T) {
	db, mock, repo := setupMockProvisionRepo(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO inventory`).
		WithArgs("Home-Air-Purifier-000001").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := repo.InsertInventory(context.Background(), "Home-Air-Purifier-000001")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertInventory_Error(t *testing.T) {
	db, mock, repo := setupMockProvisionRepo(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO inventory`).
		WithArgs("S-1").
		WillReturnError(sql.ErrConnDone)

	_, err := repo.InsertInventory(context.Background(), "S-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S-1")
}

func TestInsertFirmware(t *testing.T) {
	db, mock, repo := setupMockProvisionRepo(t)
	defer db.Close()

	row := FirmwareRow{
		InventoryID:        42,
		Name:               "Home-Air-Purifier-0",
		SerialNumber:       "Home-Air-Purifier-000001",
		DeviceID:           "device-1",
		DeviceTemplateID:   "devtpl-1",
		DeviceTemplateName: "Home Air Purifier",
		OrganizationID:     "org-1",
		AccountID:          "acct-1",
		EntityID:           "device-1",
		EntityType:         "device",
		Secret:             "s3cret",
		FirmwareVersion:    "2.0.0",
	}

	mock.ExpectExec(`INSERT INTO firmware`).
		WithArgs(
			row.InventoryID, row.Name, row.SerialNumber, row.DeviceID,
			row.DeviceTemplateID, row.DeviceTemplateName, row.OrganizationID,
			row.AccountID, row.EntityID, row.EntityType, row.Secret, row.FirmwareVersion,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.InsertFirmware(context.Background(), row))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertApplicationConfig(t *testing.T) {
	db, mock, repo := setupMockProvisionRepo(t)
	defer db.Close()

	row := ApplicationConfigRow{
		EndUserID:              "user-1",
		EndUserName:            "Ada Jensen",
		AccountID:              "acct-1",
		OrganizationID:         "org-1",
		OrganizationName:       "Home-1",
		OrganizationTemplateID: "orgtpl-1",
		EndUserTemplateID:      "usertpl-1",
		EntityID:               "user-1",
		EntityType:             "endUser",
		Secret:                 "s3cret",
	}

	mock.ExpectExec(`INSERT INTO application_config`).
		WithArgs(
			row.EndUserID, row.EndUserName, row.AccountID,
			row.OrganizationID, row.OrganizationName,
			row.OrganizationTemplateID, row.EndUserTemplateID,
			row.EntityID, row.EntityType, row.Secret,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.InsertApplicationConfig(context.Background(), row))
	require.NoError(t, mock.ExpectationsWereMet())
}
