package services

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable는 데이터베이스 오류를 감쌉니다. 게이트는 이 경우 접근을 거부합니다.
	ErrStoreUnavailable = errors.New("device store unavailable")
	// ErrDeviceNotFound는 디바이스가 존재하지 않을 때 반환됩니다.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrCodeNotFound는 활성화 코드가 존재하지 않을 때 반환됩니다.
	ErrCodeNotFound = errors.New("activation code not found")
	// ErrInvalidConfigValue는 저장된 설정 값을 해석할 수 없을 때 반환됩니다.
	ErrInvalidConfigValue = errors.New("invalid config value")
)

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// truncate는 VARCHAR 컬럼 길이를 넘지 않도록 자릅니다.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
