package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"trustgateway/database"
	"trustgateway/models"
	"trustgateway/utils"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	db         *sql.DB
	clock      *fakeClock
	activation ActivationService
	registry   DeviceRegistry
	audit      AuditService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "gateway.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := &fakeClock{now: baseTime}
	exec := NewSQLExecutor(db)
	opts := StoreOptions{Dialect: database.DriverSQLite, QueryTimeout: 5 * time.Second, Now: clock.Now}

	return &testEnv{
		db:         db,
		clock:      clock,
		activation: NewActivationService(exec, opts),
		registry:   NewDeviceRegistry(exec, opts),
		audit:      NewAuditService(exec, opts),
	}
}

func (e *testEnv) insertCode(t *testing.T, code string, expiresAt time.Time) string {
	t.Helper()
	id := utils.GenerateID("code")
	_, err := e.db.Exec(`INSERT INTO activation_codes (id, code, created_at, expires_at, used) VALUES (?, ?, ?, ?, 0)`,
		id, code, utils.FormatDateTimeForDB(e.clock.Now()), utils.FormatDateTimeForDB(expiresAt))
	require.NoError(t, err)
	return id
}

func (e *testEnv) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestRedeem_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	codeID := env.insertCode(t, "ABCD1234", baseTime.Add(30*24*time.Hour))

	result, err := env.activation.Redeem(ctx, " abcd-1234 ", "F1", "Mozilla/5.0", "10.8.0.5")
	require.NoError(t, err)
	require.True(t, result.Valid())
	require.False(t, result.Reactivated)
	require.NotNil(t, result.Device)
	require.Equal(t, "F1", result.Device.Fingerprint)
	require.Equal(t, codeID, *result.Device.ActivationCodeID)

	var used bool
	var usedBy string
	require.NoError(t, env.db.QueryRow(`SELECT used, used_by_fingerprint FROM activation_codes WHERE id = ?`, codeID).Scan(&used, &usedBy))
	require.True(t, used)
	require.Equal(t, "F1", usedBy)

	authorized, err := env.registry.IsAuthorized(ctx, "F1")
	require.NoError(t, err)
	require.True(t, authorized)

	require.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM activation_attempts WHERE outcome = ?`, string(models.RedemptionSuccess)))
	require.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM device_activity_logs WHERE action = ?`, models.DeviceActionActivated))
}

func TestRedeem_SecondUseRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.insertCode(t, "ABCD1234", baseTime.Add(24*time.Hour))

	first, err := env.activation.Redeem(ctx, "ABCD1234", "F1", "ua", "10.8.0.5")
	require.NoError(t, err)
	require.True(t, first.Valid())

	second, err := env.activation.Redeem(ctx, "ABCD1234", "F2", "ua", "10.8.0.6")
	require.NoError(t, err)
	require.Equal(t, models.RedemptionCodeAlreadyUsed, second.Outcome)
	require.Equal(t, "Este código ya fue utilizado", second.Message())

	authorized, err := env.registry.IsAuthorized(ctx, "F2")
	require.NoError(t, err)
	require.False(t, authorized)
}

func TestRedeem_ConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	env.insertCode(t, "RACE0001", baseTime.Add(24*time.Hour))

	const workers = 8
	results := make([]models.RedemptionResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = env.activation.Redeem(context.Background(), "RACE0001",
				"FP-"+string(rune('A'+i)), "ua", "10.8.0.9")
		}(i)
	}
	close(start)
	wg.Wait()

	successes := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		switch results[i].Outcome {
		case models.RedemptionSuccess:
			successes++
		case models.RedemptionCodeAlreadyUsed:
		default:
			t.Fatalf("unexpected outcome %q", results[i].Outcome)
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM authorized_devices`))
	require.Equal(t, workers, env.count(t, `SELECT COUNT(*) FROM activation_attempts`))
}

func TestRedeem_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.insertCode(t, "EXPIRED1", baseTime.Add(-time.Second))

	tests := []struct {
		name        string
		code        string
		fingerprint string
		want        models.RedemptionOutcome
	}{
		{name: "empty code", code: "  ", fingerprint: "F1", want: models.RedemptionCodeInvalid},
		{name: "empty fingerprint", code: "EXPIRED1", fingerprint: "", want: models.RedemptionCodeInvalid},
		{name: "unknown code", code: "NOPE0000", fingerprint: "F1", want: models.RedemptionCodeNotFound},
		{name: "expired", code: "EXPIRED1", fingerprint: "F1", want: models.RedemptionCodeExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := env.activation.Redeem(ctx, tt.code, tt.fingerprint, "ua", "1.2.3.4")
			require.NoError(t, err)
			require.Equal(t, tt.want, result.Outcome)
			require.False(t, result.Valid())
			require.Nil(t, result.Device)
		})
	}

	require.Equal(t, 0, env.count(t, `SELECT COUNT(*) FROM authorized_devices`))
	require.Equal(t, 0, env.count(t, `SELECT COUNT(*) FROM activation_codes WHERE used = 1`))
}

func TestRedeem_ExpiryBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.insertCode(t, "EXACTNOW", baseTime)
	env.insertCode(t, "ONESECGO", baseTime.Add(-time.Second))

	listing, err := env.registry.List(ctx)
	require.NoError(t, err)
	for _, c := range listing.Codes {
		switch c.Code {
		case "EXACTNOW":
			require.False(t, c.Expired)
			require.NotNil(t, c.DaysRemaining)
			require.Zero(t, *c.DaysRemaining)
		case "ONESECGO":
			require.True(t, c.Expired)
		}
	}

	pruned, err := env.audit.Prune(ctx, DefaultAuditRetention)
	require.NoError(t, err)
	require.EqualValues(t, 1, pruned.ExpiredCodes)

	// expires_at 시각 그 자체는 아직 유효하다
	redeemed, err := env.activation.Redeem(ctx, "EXACTNOW", "F1", "ua", "1.2.3.4")
	require.NoError(t, err)
	require.Equal(t, models.RedemptionSuccess, redeemed.Outcome)

	redeemed, err = env.activation.Redeem(ctx, "ONESECGO", "F2", "ua", "1.2.3.4")
	require.NoError(t, err)
	require.Equal(t, models.RedemptionCodeExpired, redeemed.Outcome)
}

func TestRedeem_ExpiresWhileUnused(t *testing.T) {
	env := newTestEnv(t)
	env.insertCode(t, "LATE0001", baseTime.Add(time.Hour))

	env.clock.Advance(2 * time.Hour)

	result, err := env.activation.Redeem(context.Background(), "LATE0001", "F1", "ua", "1.2.3.4")
	require.NoError(t, err)
	require.Equal(t, models.RedemptionCodeExpired, result.Outcome)
}

func TestRedeem_ReactivatesDeactivatedDevice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.insertCode(t, "FIRST001", baseTime.Add(24*time.Hour))
	secondID := env.insertCode(t, "SECOND01", baseTime.Add(24*time.Hour))

	first, err := env.activation.Redeem(ctx, "FIRST001", "F1", "ua", "10.8.0.5")
	require.NoError(t, err)
	deviceID := first.Device.ID

	ok, err := env.registry.Deactivate(ctx, deviceID, "admin")
	require.NoError(t, err)
	require.True(t, ok)

	authorized, err := env.registry.IsAuthorized(ctx, "F1")
	require.NoError(t, err)
	require.False(t, authorized)

	second, err := env.activation.Redeem(ctx, "SECOND01", "F1", "ua2", "10.8.0.7")
	require.NoError(t, err)
	require.True(t, second.Valid())
	require.True(t, second.Reactivated)
	require.Equal(t, deviceID, second.Device.ID)
	require.Equal(t, secondID, *second.Device.ActivationCodeID)

	authorized, err = env.registry.IsAuthorized(ctx, "F1")
	require.NoError(t, err)
	require.True(t, authorized)

	require.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM authorized_devices`))
	require.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM device_activity_logs WHERE action = ?`, models.DeviceActionReactivated))
	require.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM device_activity_logs WHERE action = ?`, models.DeviceActionDeactivated))
}

func TestRedeem_StoreUnavailable(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Close())

	result, err := env.activation.Redeem(context.Background(), "ABCD1234", "F1", "ua", "1.2.3.4")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.Equal(t, models.RedemptionStoreError, result.Outcome)
	require.Equal(t, "Error del servidor al validar el código", result.Message())
}

func TestIssue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	code, err := env.activation.Issue(ctx, 0)
	require.NoError(t, err)
	require.Len(t, code.Code, 32)
	require.Equal(t, utils.FormatDateTimeForDB(baseTime.Add(DefaultCodeValidity)), code.ExpiresAt)

	result, err := env.activation.Redeem(ctx, utils.FormatActivationCode(code.Code), "F1", "ua", "1.2.3.4")
	require.NoError(t, err)
	require.True(t, result.Valid())
}

func TestIsAuthorized(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	authorized, err := env.registry.IsAuthorized(ctx, "")
	require.NoError(t, err)
	require.False(t, authorized)

	authorized, err = env.registry.IsAuthorized(ctx, "unknown")
	require.NoError(t, err)
	require.False(t, authorized)

	env.insertCode(t, "ABCD1234", baseTime.Add(time.Hour))
	_, err = env.activation.Redeem(ctx, "ABCD1234", "F1", "ua", "1.2.3.4")
	require.NoError(t, err)

	// 접두사나 대소문자가 다른 지문은 일치하지 않는다
	for _, fp := range []string{"f1", "F", "F1 "} {
		authorized, err = env.registry.IsAuthorized(ctx, fp)
		require.NoError(t, err)
		require.False(t, authorized, fp)
	}

	require.NoError(t, env.db.Close())
	authorized, err = env.registry.IsAuthorized(ctx, "F1")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.False(t, authorized)
}

func TestIsAuthorized_RefreshesLastSeen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.insertCode(t, "ABCD1234", baseTime.Add(24*time.Hour))
	_, err := env.activation.Redeem(ctx, "ABCD1234", "F1", "ua", "1.2.3.4")
	require.NoError(t, err)

	lastSeen := func() string {
		var v string
		require.NoError(t, env.db.QueryRow(`SELECT last_seen_at FROM authorized_devices WHERE fingerprint = 'F1'`).Scan(&v))
		return v
	}

	env.clock.Advance(30 * time.Second)
	_, err = env.registry.IsAuthorized(ctx, "F1")
	require.NoError(t, err)
	require.Equal(t, utils.FormatDateTimeForDB(baseTime), lastSeen())

	env.clock.Advance(time.Minute)
	_, err = env.registry.IsAuthorized(ctx, "F1")
	require.NoError(t, err)
	require.Equal(t, utils.FormatDateTimeForDB(baseTime.Add(90*time.Second)), lastSeen())
}

func TestList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	listing, err := env.registry.List(ctx)
	require.NoError(t, err)
	require.NotNil(t, listing.Devices)
	require.NotNil(t, listing.Codes)
	require.Empty(t, listing.Devices)
	require.Empty(t, listing.Codes)

	usedID := env.insertCode(t, "USED0001", baseTime.Add(10*24*time.Hour))
	freshID := env.insertCode(t, "FRESH001", baseTime.Add(30*24*time.Hour))
	staleID := env.insertCode(t, "STALE001", baseTime.Add(-48*time.Hour))

	_, err = env.activation.Redeem(ctx, "USED0001", "F1", "ua", "1.2.3.4")
	require.NoError(t, err)

	listing, err = env.registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, listing.Devices, 1)
	require.Len(t, listing.Codes, 3)

	views := make(map[string]models.ActivationCodeView)
	for _, c := range listing.Codes {
		views[c.ID] = c
	}

	require.True(t, views[usedID].Used)
	require.Nil(t, views[usedID].DaysRemaining)
	require.False(t, views[usedID].Expired)

	require.NotNil(t, views[freshID].DaysRemaining)
	require.Equal(t, 30, *views[freshID].DaysRemaining)
	require.False(t, views[freshID].Expired)

	require.NotNil(t, views[staleID].DaysRemaining)
	require.Equal(t, -2, *views[staleID].DaysRemaining)
	require.True(t, views[staleID].Expired)
}

func TestDeactivate_Unknown(t *testing.T) {
	env := newTestEnv(t)

	ok, err := env.registry.Deactivate(context.Background(), "dev-missing", "admin")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeactivateCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	codeID := env.insertCode(t, "REVOKE01", baseTime.Add(24*time.Hour))

	ok, err := env.registry.DeactivateCode(ctx, codeID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = env.registry.DeactivateCode(ctx, codeID)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = env.registry.DeactivateCode(ctx, "code-missing")
	require.NoError(t, err)
	require.False(t, ok)

	result, err := env.activation.Redeem(ctx, "REVOKE01", "F1", "ua", "1.2.3.4")
	require.NoError(t, err)
	require.Equal(t, models.RedemptionCodeAlreadyUsed, result.Outcome)
}

func TestEnforcement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	required, err := env.registry.EnforcementRequired(ctx)
	require.NoError(t, err)
	require.True(t, required)

	require.NoError(t, env.registry.SetEnforcementRequired(ctx, false, "admin"))
	required, err = env.registry.EnforcementRequired(ctx)
	require.NoError(t, err)
	require.False(t, required)

	var updatedBy string
	require.NoError(t, env.db.QueryRow(`SELECT updated_by FROM system_config WHERE config_key = ?`,
		database.EnforcementConfigKey).Scan(&updatedBy))
	require.Equal(t, "admin", updatedBy)

	require.NoError(t, env.registry.SetEnforcementRequired(ctx, true, "admin"))
	required, err = env.registry.EnforcementRequired(ctx)
	require.NoError(t, err)
	require.True(t, required)
}

func TestEnforcement_MissingOrInvalid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.db.Exec(`UPDATE system_config SET config_value = 'banana' WHERE config_key = ?`, database.EnforcementConfigKey)
	require.NoError(t, err)

	required, err := env.registry.EnforcementRequired(ctx)
	require.ErrorIs(t, err, ErrInvalidConfigValue)
	require.True(t, required)

	_, err = env.db.Exec(`DELETE FROM system_config`)
	require.NoError(t, err)

	required, err = env.registry.EnforcementRequired(ctx)
	require.NoError(t, err)
	require.True(t, required)

	require.NoError(t, env.db.Close())
	required, err = env.registry.EnforcementRequired(ctx)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.True(t, required)
}

func TestAuditPrune(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.insertCode(t, "ABCD1234", baseTime.Add(24*time.Hour))
	env.insertCode(t, "OLD00001", baseTime.Add(-time.Hour))

	_, err := env.activation.Redeem(ctx, "NOPE0000", "F1", "ua", "1.2.3.4")
	require.NoError(t, err)
	_, err = env.activation.Redeem(ctx, "ABCD1234", "F1", "ua", "1.2.3.4")
	require.NoError(t, err)

	env.clock.Advance(10 * 24 * time.Hour)
	_, err = env.activation.Redeem(ctx, "NOPE0001", "F2", "ua", "1.2.3.4")
	require.NoError(t, err)

	result, err := env.audit.Prune(ctx, 5*24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 2, result.Attempts)
	require.EqualValues(t, 1, result.ActivityLogs)
	require.EqualValues(t, 1, result.ExpiredCodes)

	require.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM activation_attempts`))
	require.Equal(t, 1, env.count(t, `SELECT COUNT(*) FROM authorized_devices`))
}
