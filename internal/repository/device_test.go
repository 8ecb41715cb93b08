package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
)

var deviceRowColumns = []string{
	"device_name", "ip_address", "tcp_port", "forwarded_tcp_port",
	"username", "password", "auto_login", "prefer_native_credential",
	"live_stream_type", "connection_type",
}

func setupMockDeviceDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *DeviceRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewDeviceRepository(db, zap.NewNop())
}

func TestListDevices_Success(t *testing.T) {
	db, mock, repo := setupMockDeviceDB(t)
	defer db.Close()

	rows := sqlmock.NewRows(deviceRowColumns).
		AddRow("branch-nvr", "192.168.1.20", 8000, 0, "admin", "admin123", true, false, 1, 0).
		AddRow(models.LocalDeviceName, "127.0.0.1", 8000, 0, "local", "", true, false, 0, 0).
		AddRow("warehouse", "warehouse.example.com", 8000, 9000, "viewer", "pw", false, true, 0, 1)

	mock.ExpectQuery(`SELECT .* FROM network_devices d\s+WHERE d.enabled = TRUE`).WillReturnRows(rows)

	devices, err := repo.ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2, "local alias is never loaded from the registry")

	assert.Equal(t, "branch-nvr", devices[0].Name)
	assert.Equal(t, uint16(8000), devices[0].Port)
	assert.True(t, devices[0].AutoLogin)
	assert.Equal(t, models.LiveStreamSub, devices[0].LiveStreamType)

	assert.Equal(t, "warehouse", devices[1].Name)
	assert.Equal(t, uint16(9000), devices[1].ForwardedTCPPort)
	assert.Equal(t, models.ConnectByHostname, devices[1].ConnectionType)
	assert.True(t, devices[1].PreferNativeCredential)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDevices_QueryError(t *testing.T) {
	db, mock, repo := setupMockDeviceDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WillReturnError(sql.ErrConnDone)

	devices, err := repo.ListDevices(context.Background())
	assert.Error(t, err)
	assert.Nil(t, devices)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDevice_NotFound(t *testing.T) {
	db, mock, repo := setupMockDeviceDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetDevice(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDevice_Success(t *testing.T) {
	db, mock, repo := setupMockDeviceDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WithArgs("branch-nvr").WillReturnRows(
		sqlmock.NewRows(deviceRowColumns).AddRow("branch-nvr", "192.168.1.20", 8000, 0, "admin", "admin123", true, false, 0, 0),
	)

	d, err := repo.GetDevice(context.Background(), "branch-nvr")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20", d.IPAddress)
	assert.Equal(t, "admin123", d.Password)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCredentials(t *testing.T) {
	db, mock, repo := setupMockDeviceDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE network_devices`).
		WithArgs("branch-nvr", "operator", "n3w").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateCredentials(context.Background(), "branch-nvr", "operator", "n3w"))

	mock.ExpectExec(`UPDATE network_devices`).
		WithArgs("ghost", "operator", "n3w").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateCredentials(context.Background(), "ghost", "operator", "n3w")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertDevice(t *testing.T) {
	db, mock, repo := setupMockDeviceDB(t)
	defer db.Close()

	d := models.DeviceConfig{Name: "warehouse", IPAddress: "10.0.0.9", Port: 8000, Username: "viewer", Password: "pw", AutoLogin: true}
	mock.ExpectExec(`INSERT INTO network_devices`).
		WithArgs("warehouse", "10.0.0.9", 8000, 0, "viewer", "pw", true, false, 0, 0, true).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.UpsertDevice(context.Background(), d, true))
	require.NoError(t, mock.ExpectationsWereMet())
}
