package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trustgateway/logger"
	"trustgateway/models"
	"trustgateway/utils"
)

// DefaultCodeValidity 활성화 코드 기본 유효기간
const DefaultCodeValidity = 30 * 24 * time.Hour

// ActivationService는 1회용 활성화 코드의 발급과 사용을 담당합니다.
type ActivationService interface {
	Redeem(ctx context.Context, code, fingerprint, userAgent, ipAddress string) (models.RedemptionResult, error)
	Issue(ctx context.Context, validFor time.Duration) (models.ActivationCode, error)
}

type activationService struct {
	db   SQLExecutor
	opts StoreOptions
}

// NewActivationService는 ActivationService 구현체를 생성합니다.
func NewActivationService(db SQLExecutor, opts StoreOptions) ActivationService {
	return &activationService{db: db, opts: opts.withDefaults()}
}

// Redeem은 코드를 정규화해 조회한 뒤, 사용 가능하면 하나의 트랜잭션 안에서 코드를 소비하고
// 디바이스 레코드를 생성(또는 재활성화)합니다. 결과와 무관하게 시도 기록을 남깁니다.
func (s *activationService) Redeem(ctx context.Context, code, fingerprint, userAgent, ipAddress string) (models.RedemptionResult, error) {
	normalized := utils.NormalizeActivationCode(code)

	result, err := s.redeem(ctx, normalized, fingerprint, userAgent, ipAddress)
	if err != nil {
		result = models.RedemptionResult{Outcome: models.RedemptionStoreError}
	}

	s.recordAttempt(ctx, normalized, fingerprint, userAgent, ipAddress, result.Outcome)

	fields := map[string]interface{}{
		"outcome":     string(result.Outcome),
		"ip":          ipAddress,
		"fingerprint": utils.ShortFingerprint(fingerprint),
	}
	switch {
	case err != nil:
		fields["error"] = err.Error()
		logger.WithFields(fields).Error("Activation code redemption failed")
	case result.Valid():
		logger.WithFields(fields).Info("Activation code redeemed")
	default:
		logger.WithFields(fields).Warn("Activation code rejected")
	}

	return result, err
}

func (s *activationService) redeem(ctx context.Context, code, fingerprint, userAgent, ipAddress string) (models.RedemptionResult, error) {
	if code == "" || fingerprint == "" {
		return models.RedemptionResult{Outcome: models.RedemptionCodeInvalid}, nil
	}

	now := s.opts.Now().UTC()
	nowStr := utils.FormatDateTimeForDB(now)

	qctx, cancel := s.opts.queryContext(ctx)
	defer cancel()

	var (
		codeID    string
		expiresAt string
		used      bool
	)
	err := s.db.QueryRowContext(qctx,
		`SELECT id, expires_at, used FROM activation_codes WHERE code = ?`, code,
	).Scan(&codeID, &expiresAt, &used)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RedemptionResult{Outcome: models.RedemptionCodeNotFound}, nil
	}
	if err != nil {
		return models.RedemptionResult{}, storeError("lookup activation code", err)
	}

	if outcome := classifyCode(used, expiresAt, now); outcome != models.RedemptionSuccess {
		return models.RedemptionResult{Outcome: outcome}, nil
	}

	tx, err := s.db.BeginTx(qctx, nil)
	if err != nil {
		return models.RedemptionResult{}, storeError("begin redemption", err)
	}
	defer tx.Rollback()

	// 조건부 UPDATE 가 유일한 상호배제 지점이다. 동시에 들어온 요청 중 하나만 1행을 갱신한다.
	res, err := tx.ExecContext(qctx, `
		UPDATE activation_codes SET used = 1, used_by_fingerprint = ?, used_at = ?
		WHERE id = ? AND used = 0 AND expires_at >= ?`,
		fingerprint, nowStr, codeID, nowStr,
	)
	if err != nil {
		return models.RedemptionResult{}, storeError("consume activation code", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.RedemptionResult{}, storeError("consume activation code", err)
	}
	if affected == 0 {
		if err := tx.QueryRowContext(qctx,
			`SELECT expires_at, used FROM activation_codes WHERE id = ?`, codeID,
		).Scan(&expiresAt, &used); err != nil {
			return models.RedemptionResult{}, storeError("reload activation code", err)
		}
		outcome := classifyCode(used, expiresAt, now)
		if outcome == models.RedemptionSuccess {
			outcome = models.RedemptionCodeAlreadyUsed
		}
		return models.RedemptionResult{Outcome: outcome}, nil
	}

	device, reactivated, err := upsertDevice(qctx, tx, fingerprint, userAgent, ipAddress, codeID, nowStr)
	if err != nil {
		return models.RedemptionResult{}, err
	}

	action := models.DeviceActionActivated
	if reactivated {
		action = models.DeviceActionReactivated
	}
	if err := insertDeviceLog(qctx, tx, device.ID, fingerprint, action, fmt.Sprintf("code=%s ip=%s", codeID, ipAddress), nowStr); err != nil {
		return models.RedemptionResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.RedemptionResult{}, storeError("commit redemption", err)
	}

	return models.RedemptionResult{
		Outcome:     models.RedemptionSuccess,
		Device:      &device,
		Reactivated: reactivated,
	}, nil
}

// classifyCode 사용 여부를 만료보다 먼저 검사한다. expires_at 을 지난 뒤부터 만료이며,
// 만료 시각을 해석할 수 없으면 만료로 본다.
func classifyCode(used bool, expiresAt string, now time.Time) models.RedemptionOutcome {
	if used {
		return models.RedemptionCodeAlreadyUsed
	}
	exp, err := utils.ParseDBDate(expiresAt)
	if err != nil || now.After(exp) {
		return models.RedemptionCodeExpired
	}
	return models.RedemptionSuccess
}

func upsertDevice(ctx context.Context, tx *sql.Tx, fingerprint, userAgent, ipAddress, codeID, now string) (models.AuthorizedDevice, bool, error) {
	device := models.AuthorizedDevice{
		Fingerprint:      fingerprint,
		LastSeenAt:       now,
		SourceIP:         truncate(ipAddress, 64),
		UserAgent:        truncate(userAgent, 512),
		Active:           true,
		ActivationCodeID: &codeID,
	}

	err := tx.QueryRowContext(ctx,
		`SELECT id, first_authorized_at FROM authorized_devices WHERE fingerprint = ?`, fingerprint,
	).Scan(&device.ID, &device.FirstAuthorizedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		device.ID = utils.GenerateID("dev")
		device.FirstAuthorizedAt = now
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO authorized_devices
				(id, fingerprint, first_authorized_at, last_seen_at, source_ip, user_agent, active, activation_code_id)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?)`,
			device.ID, fingerprint, now, now, device.SourceIP, device.UserAgent, codeID,
		); err != nil {
			return models.AuthorizedDevice{}, false, storeError("insert device", err)
		}
		return device, false, nil
	case err != nil:
		return models.AuthorizedDevice{}, false, storeError("lookup device", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE authorized_devices
		SET active = 1, last_seen_at = ?, source_ip = ?, user_agent = ?, activation_code_id = ?, deactivated_at = NULL
		WHERE id = ?`,
		now, device.SourceIP, device.UserAgent, codeID, device.ID,
	); err != nil {
		return models.AuthorizedDevice{}, false, storeError("reactivate device", err)
	}
	return device, true, nil
}

func insertDeviceLog(ctx context.Context, exec interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, deviceID, fingerprint, action, details, now string) error {
	if _, err := exec.ExecContext(ctx, `
		INSERT INTO device_activity_logs (device_id, fingerprint, action, details, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		deviceID, fingerprint, action, details, now,
	); err != nil {
		return storeError("insert device activity log", err)
	}
	return nil
}

// recordAttempt 감사 기록 실패는 결과를 바꾸지 않는다. 요청이 취소되어도 기록은 남긴다.
func (s *activationService) recordAttempt(ctx context.Context, code, fingerprint, userAgent, ipAddress string, outcome models.RedemptionOutcome) {
	actx, cancel := s.opts.queryContext(context.WithoutCancel(ctx))
	defer cancel()

	_, err := s.db.ExecContext(actx, `
		INSERT INTO activation_attempts (code, fingerprint, ip_address, user_agent, outcome, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		truncate(code, 64), truncate(fingerprint, 128), truncate(ipAddress, 64), truncate(userAgent, 512),
		string(outcome), utils.FormatDateTimeForDB(s.opts.Now()),
	)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"outcome": string(outcome),
			"error":   err.Error(),
		}).Warn("Failed to record activation attempt")
	}
}

// Issue는 새 활성화 코드를 발급합니다. validFor 가 0 이하이면 기본 30일.
func (s *activationService) Issue(ctx context.Context, validFor time.Duration) (models.ActivationCode, error) {
	if validFor <= 0 {
		validFor = DefaultCodeValidity
	}

	code, err := utils.GenerateActivationCode()
	if err != nil {
		return models.ActivationCode{}, fmt.Errorf("generate activation code: %w", err)
	}

	now := s.opts.Now().UTC()
	issued := models.ActivationCode{
		ID:        utils.GenerateID("code"),
		Code:      code,
		CreatedAt: utils.FormatDateTimeForDB(now),
		ExpiresAt: utils.FormatDateTimeForDB(now.Add(validFor)),
	}

	qctx, cancel := s.opts.queryContext(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(qctx, `
		INSERT INTO activation_codes (id, code, created_at, expires_at, used)
		VALUES (?, ?, ?, ?, 0)`,
		issued.ID, issued.Code, issued.CreatedAt, issued.ExpiresAt,
	); err != nil {
		return models.ActivationCode{}, storeError("insert activation code", err)
	}

	logger.WithFields(map[string]interface{}{
		"code_id":    issued.ID,
		"expires_at": issued.ExpiresAt,
	}).Info("Activation code issued")

	return issued, nil
}
