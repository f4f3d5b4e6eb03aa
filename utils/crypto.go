package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// activationCodeBytes 활성화 코드 원본 길이 (hex 인코딩 시 32자)
const activationCodeBytes = 16

// GenerateActivationCode 활성화 코드 생성 (대문자 hex 32자, 구분자 없음)
func GenerateActivationCode() (string, error) {
	buf := make([]byte, activationCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// NormalizeActivationCode 입력 코드 정규화: 공백/하이픈 제거 후 대문자 변환
func NormalizeActivationCode(code string) string {
	code = strings.TrimSpace(code)
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return strings.ToUpper(code)
}

// FormatActivationCode 표시용 포맷 (XXXX-XXXX-...)
func FormatActivationCode(code string) string {
	code = NormalizeActivationCode(code)
	var groups []string
	for len(code) > 4 {
		groups = append(groups, code[:4])
		code = code[4:]
	}
	if code != "" {
		groups = append(groups, code)
	}
	return strings.Join(groups, "-")
}

// GenerateID 레코드 ID 생성 (prefix-uuid)
func GenerateID(prefix string) string {
	id := uuid.NewString()
	if prefix != "" {
		return fmt.Sprintf("%s-%s", prefix, id)
	}
	return id
}

// GenerateFingerprint User-Agent 기반 핑거프린트 (sha256 hex)
// 동일한 User-Agent는 동일한 값이 나온다. 기기 식별 증명으로 사용하지 말 것.
func GenerateFingerprint(userAgent string) string {
	hash := sha256.Sum256([]byte(userAgent))
	return hex.EncodeToString(hash[:])
}

// ShortFingerprint 로그용 축약 지문. 전체 값은 로그에 남기지 않는다
func ShortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12] + "..."
	}
	return fp
}

// GenerateOpaqueToken 서버 발급형 디바이스 토큰 (32바이트 난수 hex)
func GenerateOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
