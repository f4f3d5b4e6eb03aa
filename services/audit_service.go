package services

import (
	"context"
	"time"

	"trustgateway/logger"
	"trustgateway/utils"
)

// DefaultAuditRetention 시도/활동 로그 보관 기간
const DefaultAuditRetention = 90 * 24 * time.Hour

// PruneResult 정리 작업 결과
type PruneResult struct {
	Attempts     int64 `json:"attempts"`
	ActivityLogs int64 `json:"activity_logs"`
	// ExpiredCodes 만료되었지만 사용되지 않은 코드 수 (삭제하지 않음)
	ExpiredCodes int64 `json:"expired_codes"`
}

// AuditService는 감사 테이블의 보관 기간을 관리합니다.
type AuditService interface {
	Prune(ctx context.Context, retention time.Duration) (PruneResult, error)
}

type auditService struct {
	db   SQLExecutor
	opts StoreOptions
}

// NewAuditService는 AuditService 구현체를 생성합니다.
func NewAuditService(db SQLExecutor, opts StoreOptions) AuditService {
	return &auditService{db: db, opts: opts.withDefaults()}
}

// Prune retention 보다 오래된 시도 기록과 디바이스 활동 로그를 삭제한다.
// 코드와 디바이스 레코드는 건드리지 않는다.
func (s *auditService) Prune(ctx context.Context, retention time.Duration) (PruneResult, error) {
	if retention <= 0 {
		retention = DefaultAuditRetention
	}

	now := s.opts.Now().UTC()
	cutoff := utils.FormatDateTimeForDB(now.Add(-retention))
	nowStr := utils.FormatDateTimeForDB(now)

	qctx, cancel := s.opts.queryContext(ctx)
	defer cancel()

	var result PruneResult

	res, err := s.db.ExecContext(qctx, `DELETE FROM activation_attempts WHERE created_at < ?`, cutoff)
	if err != nil {
		return result, storeError("prune activation attempts", err)
	}
	result.Attempts, _ = res.RowsAffected()

	res, err = s.db.ExecContext(qctx, `DELETE FROM device_activity_logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return result, storeError("prune device activity logs", err)
	}
	result.ActivityLogs, _ = res.RowsAffected()

	if err := s.db.QueryRowContext(qctx,
		`SELECT COUNT(*) FROM activation_codes WHERE used = 0 AND expires_at < ?`, nowStr,
	).Scan(&result.ExpiredCodes); err != nil {
		return result, storeError("count expired activation codes", err)
	}

	logger.WithFields(map[string]interface{}{
		"cutoff":        cutoff,
		"attempts":      result.Attempts,
		"activity_logs": result.ActivityLogs,
		"expired_codes": result.ExpiredCodes,
	}).Info("Audit tables pruned")

	return result, nil
}
