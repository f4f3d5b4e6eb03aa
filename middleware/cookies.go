package middleware

import (
	"net/http"
	"time"
)

// 쿠키 이름
const (
	FingerprintCookie = "device_fingerprint"
	DemoModeCookie    = "demo_mode_allowed"
)

const (
	fingerprintCookieMaxAge = 365 * 24 * time.Hour
	demoModeCookieMaxAge    = 24 * time.Hour
)

// SetFingerprintCookie 활성화된 디바이스 지문 쿠키. 클라이언트 스크립트가 읽을 수 있도록 HttpOnly 가 아니다
func SetFingerprintCookie(w http.ResponseWriter, fingerprint string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     FingerprintCookie,
		Value:    fingerprint,
		Path:     "/",
		MaxAge:   int(fingerprintCookieMaxAge / time.Second),
		Expires:  time.Now().Add(fingerprintCookieMaxAge),
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearFingerprintCookie 지문 쿠키 삭제
func ClearFingerprintCookie(w http.ResponseWriter, secure bool) {
	clearCookie(w, FingerprintCookie, false, secure)
}

// SetDemoModeCookie 인증 강제 해제 시 기록하는 호환용 쿠키 (게이트는 읽지 않는다)
func SetDemoModeCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     DemoModeCookie,
		Value:    "true",
		Path:     "/",
		MaxAge:   int(demoModeCookieMaxAge / time.Second),
		Expires:  time.Now().Add(demoModeCookieMaxAge),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearDemoModeCookie 호환용 데모 쿠키 삭제
func ClearDemoModeCookie(w http.ResponseWriter, secure bool) {
	clearCookie(w, DemoModeCookie, true, secure)
}

func clearCookie(w http.ResponseWriter, name string, httpOnly, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: httpOnly,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
