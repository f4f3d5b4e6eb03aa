package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trustgateway/database"
	"trustgateway/logger"
	"trustgateway/models"
	"trustgateway/utils"
)

// lastSeenRefreshInterval last_seen_at 갱신 최소 간격
const lastSeenRefreshInterval = time.Minute

// DeviceRegistry는 인가된 디바이스와 전역 인증 강제 설정을 관리합니다.
type DeviceRegistry interface {
	IsAuthorized(ctx context.Context, fingerprint string) (bool, error)
	List(ctx context.Context) (models.DeviceListing, error)
	Deactivate(ctx context.Context, deviceID, actor string) (bool, error)
	DeactivateCode(ctx context.Context, codeID string) (bool, error)
	EnforcementRequired(ctx context.Context) (bool, error)
	SetEnforcementRequired(ctx context.Context, required bool, actor string) error
}

type deviceRegistry struct {
	db   SQLExecutor
	opts StoreOptions
}

// NewDeviceRegistry는 DeviceRegistry 구현체를 생성합니다.
func NewDeviceRegistry(db SQLExecutor, opts StoreOptions) DeviceRegistry {
	return &deviceRegistry{db: db, opts: opts.withDefaults()}
}

// IsAuthorized 활성 레코드가 정확히 같은 지문으로 존재할 때만 true.
// 오류는 그대로 반환하며 호출자는 거부로 처리해야 한다.
func (r *deviceRegistry) IsAuthorized(ctx context.Context, fingerprint string) (bool, error) {
	if fingerprint == "" {
		return false, nil
	}

	qctx, cancel := r.opts.queryContext(ctx)
	defer cancel()

	var id, lastSeen string
	err := r.db.QueryRowContext(qctx,
		`SELECT id, last_seen_at FROM authorized_devices WHERE fingerprint = ? AND active = 1`, fingerprint,
	).Scan(&id, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storeError("lookup device", err)
	}

	r.touch(qctx, id, lastSeen)
	return true, nil
}

// touch last_seen_at 을 분당 최대 한 번 갱신한다. 실패해도 인가 결과는 바뀌지 않는다.
func (r *deviceRegistry) touch(ctx context.Context, deviceID, lastSeen string) {
	now := r.opts.Now().UTC()
	if seen, err := utils.ParseDBDate(lastSeen); err == nil && now.Sub(seen) < lastSeenRefreshInterval {
		return
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE authorized_devices SET last_seen_at = ? WHERE id = ?`,
		utils.FormatDateTimeForDB(now), deviceID,
	); err != nil {
		logger.WithFields(map[string]interface{}{
			"device_id": deviceID,
			"error":     err.Error(),
		}).Warn("Failed to refresh device last_seen_at")
	}
}

// List 디바이스와 코드 목록. 코드의 남은 일수와 만료 여부는 조회 시점에 계산한다.
func (r *deviceRegistry) List(ctx context.Context) (models.DeviceListing, error) {
	qctx, cancel := r.opts.queryContext(ctx)
	defer cancel()

	listing := models.DeviceListing{
		Devices: []models.AuthorizedDevice{},
		Codes:   []models.ActivationCodeView{},
	}

	rows, err := r.db.QueryContext(qctx, `
		SELECT id, fingerprint, first_authorized_at, last_seen_at, source_ip, user_agent, active,
			activation_code_id, deactivated_at
		FROM authorized_devices
		ORDER BY first_authorized_at DESC`)
	if err != nil {
		return listing, storeError("list devices", err)
	}
	for rows.Next() {
		var (
			d             models.AuthorizedDevice
			codeID        sql.NullString
			deactivatedAt sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Fingerprint, &d.FirstAuthorizedAt, &d.LastSeenAt, &d.SourceIP,
			&d.UserAgent, &d.Active, &codeID, &deactivatedAt); err != nil {
			rows.Close()
			return listing, storeError("scan device", err)
		}
		d.ActivationCodeID = nullableString(codeID)
		d.DeactivatedAt = nullableString(deactivatedAt)
		listing.Devices = append(listing.Devices, d)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return listing, storeError("list devices", err)
	}
	rows.Close()

	codes, err := r.db.QueryContext(qctx, `
		SELECT id, code, created_at, expires_at, used, used_by_fingerprint, used_at
		FROM activation_codes
		ORDER BY created_at DESC`)
	if err != nil {
		return listing, storeError("list activation codes", err)
	}
	defer codes.Close()

	now := r.opts.Now().UTC()
	for codes.Next() {
		var (
			c      models.ActivationCode
			usedBy sql.NullString
			usedAt sql.NullString
		)
		if err := codes.Scan(&c.ID, &c.Code, &c.CreatedAt, &c.ExpiresAt, &c.Used, &usedBy, &usedAt); err != nil {
			return listing, storeError("scan activation code", err)
		}
		c.UsedByFingerprint = nullableString(usedBy)
		c.UsedAt = nullableString(usedAt)
		listing.Codes = append(listing.Codes, codeView(c, now))
	}
	if err := codes.Err(); err != nil {
		return listing, storeError("list activation codes", err)
	}

	return listing, nil
}

func codeView(c models.ActivationCode, now time.Time) models.ActivationCodeView {
	view := models.ActivationCodeView{ActivationCode: c}
	exp, err := utils.ParseDBDate(c.ExpiresAt)
	if err != nil {
		view.Expired = true
		return view
	}
	view.Expired = now.After(exp)
	if !c.Used {
		days := utils.DaysRemaining(exp, now)
		view.DaysRemaining = &days
	}
	return view
}

// Deactivate 디바이스 비활성화 (soft delete). 레코드가 없으면 false.
func (r *deviceRegistry) Deactivate(ctx context.Context, deviceID, actor string) (bool, error) {
	qctx, cancel := r.opts.queryContext(ctx)
	defer cancel()

	var fingerprint string
	err := r.db.QueryRowContext(qctx,
		`SELECT fingerprint FROM authorized_devices WHERE id = ?`, deviceID,
	).Scan(&fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storeError("lookup device", err)
	}

	now := utils.FormatDateTimeForDB(r.opts.Now())
	if _, err := r.db.ExecContext(qctx,
		`UPDATE authorized_devices SET active = 0, deactivated_at = ? WHERE id = ?`, now, deviceID,
	); err != nil {
		return false, storeError("deactivate device", err)
	}

	if err := insertDeviceLog(qctx, r.db, deviceID, fingerprint, models.DeviceActionDeactivated,
		fmt.Sprintf("by=%s", actor), now); err != nil {
		logger.WithFields(map[string]interface{}{
			"device_id": deviceID,
			"error":     err.Error(),
		}).Warn("Failed to write device activity log")
	}

	logger.WithFields(map[string]interface{}{
		"device_id": deviceID,
		"actor":     actor,
	}).Info("Device deactivated")
	return true, nil
}

// DeactivateCode 코드를 사용된 것으로 표시한다. 없거나 이미 사용된 코드면 false.
func (r *deviceRegistry) DeactivateCode(ctx context.Context, codeID string) (bool, error) {
	qctx, cancel := r.opts.queryContext(ctx)
	defer cancel()

	res, err := r.db.ExecContext(qctx,
		`UPDATE activation_codes SET used = 1, used_at = ? WHERE id = ? AND used = 0`,
		utils.FormatDateTimeForDB(r.opts.Now()), codeID,
	)
	if err != nil {
		return false, storeError("deactivate activation code", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storeError("deactivate activation code", err)
	}
	return affected > 0, nil
}

// EnforcementRequired 설정이 없거나 해석할 수 없거나 읽기에 실패하면 true.
// 실패 시에는 true 와 함께 오류도 반환한다.
func (r *deviceRegistry) EnforcementRequired(ctx context.Context) (bool, error) {
	qctx, cancel := r.opts.queryContext(ctx)
	defer cancel()

	var value string
	err := r.db.QueryRowContext(qctx,
		`SELECT config_value FROM system_config WHERE config_key = ?`, database.EnforcementConfigKey,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return true, storeError("read enforcement flag", err)
	}

	required, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return true, fmt.Errorf("%w: %s=%q", ErrInvalidConfigValue, database.EnforcementConfigKey, value)
	}
	return required, nil
}

// SetEnforcementRequired 강제 여부를 저장한다.
func (r *deviceRegistry) SetEnforcementRequired(ctx context.Context, required bool, actor string) error {
	qctx, cancel := r.opts.queryContext(ctx)
	defer cancel()

	query := `INSERT INTO system_config (config_key, config_value, updated_at, updated_by) VALUES (?, ?, ?, ?)
		ON CONFLICT(config_key) DO UPDATE SET
			config_value = excluded.config_value, updated_at = excluded.updated_at, updated_by = excluded.updated_by`
	if r.opts.Dialect == database.DriverMySQL {
		query = `INSERT INTO system_config (config_key, config_value, updated_at, updated_by) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			config_value = VALUES(config_value), updated_at = VALUES(updated_at), updated_by = VALUES(updated_by)`
	}

	if _, err := r.db.ExecContext(qctx, query,
		database.EnforcementConfigKey, strconv.FormatBool(required),
		utils.FormatDateTimeForDB(r.opts.Now()), truncate(actor, 100),
	); err != nil {
		return storeError("write enforcement flag", err)
	}

	logger.WithFields(map[string]interface{}{
		"required": required,
		"actor":    actor,
	}).Info("Device enforcement updated")
	return nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
