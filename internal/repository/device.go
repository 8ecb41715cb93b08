package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/matrix-comsec-pvt-ltd/ipvs-nvrx-sub009/internal/models"
)

// DeviceRepository is the registry of remote NVRs this service logs into.
type DeviceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDeviceRepository creates the device registry.
func NewDeviceRepository(db *sql.DB, logger *zap.Logger) *DeviceRepository {
	return &DeviceRepository{
		db:     db,
		logger: logger,
	}
}

const deviceColumns = `
			d.device_name,
			d.ip_address,
			d.tcp_port,
			d.forwarded_tcp_port,
			d.username,
			d.password,
			d.auto_login,
			d.prefer_native_credential,
			d.live_stream_type,
			d.connection_type`

func scanDevice(row interface{ Scan(dest ...interface{}) error }) (models.DeviceConfig, error) {
	var (
		d                   models.DeviceConfig
		port, forwarded     int
		stream, connectType int
	)
	err := row.Scan(
		&d.Name,
		&d.IPAddress,
		&port,
		&forwarded,
		&d.Username,
		&d.Password,
		&d.AutoLogin,
		&d.PreferNativeCredential,
		&stream,
		&connectType,
	)
	if err != nil {
		return d, err
	}
	d.Port = uint16(port)
	d.ForwardedTCPPort = uint16(forwarded)
	d.LiveStreamType = models.LiveStreamType(stream)
	d.ConnectionType = models.ConnectionType(connectType)
	return d, nil
}

// ListDevices returns every enabled remote device ordered by name.
func (r *DeviceRepository) ListDevices(ctx context.Context) ([]models.DeviceConfig, error) {
	query := `
		SELECT` + deviceColumns + `
		FROM network_devices d
		WHERE d.enabled = TRUE
		ORDER BY d.device_name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []models.DeviceConfig
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		if d.IsLocal() {
			r.logger.Warn("Skipping registry entry using the local device alias")
			continue
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}

	return devices, nil
}

// GetDevice returns one device by name.
func (r *DeviceRepository) GetDevice(ctx context.Context, name string) (models.DeviceConfig, error) {
	query := `
		SELECT` + deviceColumns + `
		FROM network_devices d
		WHERE d.device_name = $1
		LIMIT 1
	`

	d, err := scanDevice(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if err == sql.ErrNoRows {
			return d, fmt.Errorf("device not found: %s", name)
		}
		return d, fmt.Errorf("failed to query device: %w", err)
	}
	return d, nil
}

// UpdateCredentials stores credentials the device has confirmed.
func (r *DeviceRepository) UpdateCredentials(ctx context.Context, name, username, password string) error {
	query := `
		UPDATE network_devices
		SET username = $2, password = $3, updated_at = NOW()
		WHERE device_name = $1
	`

	result, err := r.db.ExecContext(ctx, query, name, username, password)
	if err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("device not found: %s", name)
	}

	r.logger.Info("Device credentials updated",
		zap.String("device", name),
		zap.String("username", username),
	)
	return nil
}

// UpsertDevice writes a remote device mirrored from the local NVR's table.
func (r *DeviceRepository) UpsertDevice(ctx context.Context, d models.DeviceConfig, enabled bool) error {
	query := `
		INSERT INTO network_devices (
			device_name, ip_address, tcp_port, forwarded_tcp_port,
			username, password, auto_login, prefer_native_credential,
			live_stream_type, connection_type, enabled, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (device_name) DO UPDATE SET
			ip_address = EXCLUDED.ip_address,
			tcp_port = EXCLUDED.tcp_port,
			forwarded_tcp_port = EXCLUDED.forwarded_tcp_port,
			username = EXCLUDED.username,
			password = EXCLUDED.password,
			auto_login = EXCLUDED.auto_login,
			prefer_native_credential = EXCLUDED.prefer_native_credential,
			live_stream_type = EXCLUDED.live_stream_type,
			connection_type = EXCLUDED.connection_type,
			enabled = EXCLUDED.enabled,
			updated_at = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		d.Name,
		d.IPAddress,
		int(d.Port),
		int(d.ForwardedTCPPort),
		d.Username,
		d.Password,
		d.AutoLogin,
		d.PreferNativeCredential,
		int(d.LiveStreamType),
		int(d.ConnectionType),
		enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert device %s: %w", d.Name, err)
	}
	return nil
}
