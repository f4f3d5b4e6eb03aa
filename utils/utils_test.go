package utils

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestActivationCode(t *testing.T) {
	code, err := GenerateActivationCode()
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^[0-9A-F]{32}$`), code)

	other, err := GenerateActivationCode()
	require.NoError(t, err)
	require.NotEqual(t, code, other)

	formatted := FormatActivationCode(code)
	require.Len(t, strings.Split(formatted, "-"), 8)
	require.Equal(t, code, NormalizeActivationCode(formatted))
}

func TestNormalizeActivationCode(t *testing.T) {
	require.Equal(t, "ABCD1234", NormalizeActivationCode("  abcd-1234 "))
	require.Equal(t, "ABCD1234", NormalizeActivationCode("ab cd 12 34"))
	require.Equal(t, "", NormalizeActivationCode(" - "))
	require.Equal(t, "ABCD-1234-EF", FormatActivationCode("abcd1234ef"))
}

func TestGenerateFingerprint(t *testing.T) {
	a := GenerateFingerprint("Mozilla/5.0")
	require.Len(t, a, 64)
	require.Equal(t, a, GenerateFingerprint("Mozilla/5.0"))
	require.NotEqual(t, a, GenerateFingerprint("curl/8.0"))

	require.Equal(t, a[:12]+"...", ShortFingerprint(a))
	require.Equal(t, "short", ShortFingerprint("short"))

	token, err := GenerateOpaqueToken()
	require.NoError(t, err)
	require.NotEmpty(t, token)
}

func TestGenerateID(t *testing.T) {
	require.True(t, strings.HasPrefix(GenerateID("dev"), "dev-"))
	require.Len(t, GenerateID(""), 36)
}

func TestToken_RoundTrip(t *testing.T) {
	SetJWTSecret("utils-test-secret")

	token, exp, err := GenerateToken("adm-1", "alice", "superadmin", time.Hour)
	require.NoError(t, err)
	require.Greater(t, exp, time.Now().Unix())

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "adm-1", claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "superadmin", claims.Role)

	SetJWTSecret("rotated-secret")
	_, err = ValidateToken(token)
	require.Error(t, err)

	_, err = ValidateToken("not-a-jwt")
	require.Error(t, err)
}

func TestToken_DefaultTTL(t *testing.T) {
	SetJWTSecret("utils-test-secret")

	token, _, err := GenerateToken("adm-1", "alice", "superadmin", -time.Minute)
	require.NoError(t, err)
	// 0 이하 TTL 은 기본값(24시간)으로 대체된다
	_, err = ValidateToken(token)
	require.NoError(t, err)
}

func TestDBTime(t *testing.T) {
	ts := time.Date(2026, 3, 10, 9, 5, 7, 0, time.FixedZone("PYT", -3*3600))
	require.Equal(t, "2026-03-10 12:05:07", FormatDateTimeForDB(ts))
	require.Equal(t, "", FormatDateTimeForDB(time.Time{}))

	parsed, err := ParseDBDate("2026-03-10 12:05:07")
	require.NoError(t, err)
	require.True(t, parsed.Equal(ts))

	parsed, err = ParseDBDate("2026-03-10T12:05:07Z")
	require.NoError(t, err)
	require.True(t, parsed.Equal(ts))

	parsed, err = ParseDBDate("2026-03-10")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), parsed)

	_, err = ParseDBDate("")
	require.Error(t, err)
	_, err = ParseDBDate("10/03/2026")
	require.Error(t, err)
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	require.Equal(t, 30, DaysRemaining(now.Add(30*24*time.Hour), now))
	require.Equal(t, 1, DaysRemaining(now.Add(time.Hour), now))
	require.Equal(t, 0, DaysRemaining(now, now))
	require.Equal(t, -2, DaysRemaining(now.Add(-48*time.Hour), now))
}

func TestBusinessLocation(t *testing.T) {
	t.Cleanup(func() { SetBusinessLocation("UTC") })

	require.Error(t, SetBusinessLocation("Mars/Olympus"))
	require.NoError(t, SetBusinessLocation(""))
	require.NoError(t, SetBusinessLocation("UTC"))
	require.Equal(t, "UTC", BusinessLocation().String())
	require.Equal(t, "10/03/2026 12:05", FormatDisplay(time.Date(2026, 3, 10, 12, 5, 0, 0, time.UTC)))
}
