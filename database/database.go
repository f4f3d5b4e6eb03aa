package database

import (
	"database/sql"
	"fmt"
	"strings"

	"trustgateway/logger"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// 지원하는 데이터베이스 드라이버
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// EnforcementConfigKey 디바이스 인증 강제 여부 설정 키
const EnforcementConfigKey = "requiere_autenticacion_dispositivo"

var DB *sql.DB
var dbType string // 데이터베이스 타입 저장

// Initialize 전역 데이터베이스 초기화
// driver: "sqlite" 또는 "mysql"
// dsn: SQLite 파일 경로 또는 MySQL DSN
func Initialize(driver, dsn string) error {
	db, err := Open(driver, dsn)
	if err != nil {
		return err
	}
	DB = db
	dbType = normalizeDriver(driver)
	logger.Info("Database initialized successfully (driver=%s)", dbType)
	return nil
}

// Dialect 현재 전역 데이터베이스 타입
func Dialect() string {
	if dbType == "" {
		return DriverSQLite
	}
	return dbType
}

// Open 데이터베이스를 열고 스키마를 준비한다. 테스트나 CLI 처럼 전역 DB 없이 쓰는 경우에도 사용한다.
func Open(driver, dsn string) (*sql.DB, error) {
	driver = normalizeDriver(driver)
	if dsn == "" {
		if driver != DriverSQLite {
			return nil, fmt.Errorf("database dsn is required for driver %s", driver)
		}
		dsn = "./trustgateway.db"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite 는 쓰기 연결이 하나뿐이라 풀을 1로 묶어 SQLITE_BUSY 대신 직렬화한다
		db.SetMaxOpenConns(1)
	}

	// 연결 테스트
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite 전용: 외래키 강제 활성화 (기본값 off)
	if driver == DriverSQLite {
		for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
			}
		}
	}

	if err := createTables(db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := seedConfig(db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed system config: %w", err)
	}

	return db, nil
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql":
		return DriverMySQL
	default:
		return DriverSQLite
	}
}

// createTables 테이블 생성
func createTables(db *sql.DB, driver string) error {
	var statements []string
	if driver == DriverMySQL {
		statements = mysqlSchema()
	} else {
		statements = sqliteSchema()
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute SQL: %w", err)
		}
	}
	return nil
}

// sqliteSchema SQLite 스키마. 인덱스는 IF NOT EXISTS 로 별도 생성
func sqliteSchema() []string {
	return []string{
		// 활성화 코드 테이블
		`CREATE TABLE IF NOT EXISTS activation_codes (
			id VARCHAR(50) PRIMARY KEY,
			code VARCHAR(64) UNIQUE NOT NULL,
			created_at VARCHAR(50) NOT NULL DEFAULT '',
			expires_at VARCHAR(50) NOT NULL DEFAULT '',
			used INTEGER NOT NULL DEFAULT 0,
			used_by_fingerprint VARCHAR(128),
			used_at VARCHAR(50)
		)`,

		// 인가된 디바이스 테이블
		`CREATE TABLE IF NOT EXISTS authorized_devices (
			id VARCHAR(50) PRIMARY KEY,
			fingerprint VARCHAR(128) UNIQUE NOT NULL,
			first_authorized_at VARCHAR(50) NOT NULL DEFAULT '',
			last_seen_at VARCHAR(50) NOT NULL DEFAULT '',
			source_ip VARCHAR(64) NOT NULL DEFAULT '',
			user_agent VARCHAR(512) NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1,
			activation_code_id VARCHAR(50),
			deactivated_at VARCHAR(50),
			FOREIGN KEY (activation_code_id) REFERENCES activation_codes(id) ON DELETE SET NULL
		)`,

		// 시스템 설정 테이블
		`CREATE TABLE IF NOT EXISTS system_config (
			config_key VARCHAR(100) PRIMARY KEY,
			config_value VARCHAR(255) NOT NULL DEFAULT '',
			updated_at VARCHAR(50) NOT NULL DEFAULT '',
			updated_by VARCHAR(100) NOT NULL DEFAULT ''
		)`,

		// 활성화 시도 감사 테이블
		`CREATE TABLE IF NOT EXISTS activation_attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			code VARCHAR(64) NOT NULL DEFAULT '',
			fingerprint VARCHAR(128) NOT NULL DEFAULT '',
			ip_address VARCHAR(64) NOT NULL DEFAULT '',
			user_agent VARCHAR(512) NOT NULL DEFAULT '',
			outcome VARCHAR(20) NOT NULL,
			created_at VARCHAR(50) NOT NULL DEFAULT ''
		)`,

		// 디바이스 활동 로그 테이블
		`CREATE TABLE IF NOT EXISTS device_activity_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id VARCHAR(50) NOT NULL,
			fingerprint VARCHAR(128) NOT NULL DEFAULT '',
			action VARCHAR(20) NOT NULL,
			details TEXT,
			created_at VARCHAR(50) NOT NULL DEFAULT ''
		)`,

		`CREATE INDEX IF NOT EXISTS idx_devices_fingerprint_active ON authorized_devices(fingerprint, active)`,
		`CREATE INDEX IF NOT EXISTS idx_codes_expires_at ON activation_codes(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_ip_created ON activation_attempts(ip_address, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_device_logs_device ON device_activity_logs(device_id)`,
	}
}

// mysqlSchema MySQL 스키마. MySQL 은 CREATE INDEX IF NOT EXISTS 가 없어 인덱스를 테이블 정의에 포함
func mysqlSchema() []string {
	const tableOptions = ` ENGINE=InnoDB CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci`
	return []string{
		`CREATE TABLE IF NOT EXISTS activation_codes (
			id VARCHAR(50) PRIMARY KEY,
			code VARCHAR(64) UNIQUE NOT NULL,
			created_at VARCHAR(50) NOT NULL DEFAULT '',
			expires_at VARCHAR(50) NOT NULL DEFAULT '',
			used TINYINT(1) NOT NULL DEFAULT 0,
			used_by_fingerprint VARCHAR(128) NULL,
			used_at VARCHAR(50) NULL,
			INDEX idx_codes_expires_at (expires_at)
		)` + tableOptions,

		`CREATE TABLE IF NOT EXISTS authorized_devices (
			id VARCHAR(50) PRIMARY KEY,
			fingerprint VARCHAR(128) UNIQUE NOT NULL,
			first_authorized_at VARCHAR(50) NOT NULL DEFAULT '',
			last_seen_at VARCHAR(50) NOT NULL DEFAULT '',
			source_ip VARCHAR(64) NOT NULL DEFAULT '',
			user_agent VARCHAR(512) NOT NULL DEFAULT '',
			active TINYINT(1) NOT NULL DEFAULT 1,
			activation_code_id VARCHAR(50) NULL,
			deactivated_at VARCHAR(50) NULL,
			INDEX idx_devices_fingerprint_active (fingerprint, active),
			FOREIGN KEY (activation_code_id) REFERENCES activation_codes(id) ON DELETE SET NULL
		)` + tableOptions,

		`CREATE TABLE IF NOT EXISTS system_config (
			config_key VARCHAR(100) PRIMARY KEY,
			config_value VARCHAR(255) NOT NULL DEFAULT '',
			updated_at VARCHAR(50) NOT NULL DEFAULT '',
			updated_by VARCHAR(100) NOT NULL DEFAULT ''
		)` + tableOptions,

		`CREATE TABLE IF NOT EXISTS activation_attempts (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			code VARCHAR(64) NOT NULL DEFAULT '',
			fingerprint VARCHAR(128) NOT NULL DEFAULT '',
			ip_address VARCHAR(64) NOT NULL DEFAULT '',
			user_agent VARCHAR(512) NOT NULL DEFAULT '',
			outcome VARCHAR(20) NOT NULL,
			created_at VARCHAR(50) NOT NULL DEFAULT '',
			INDEX idx_attempts_ip_created (ip_address, created_at)
		)` + tableOptions,

		`CREATE TABLE IF NOT EXISTS device_activity_logs (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			device_id VARCHAR(50) NOT NULL,
			fingerprint VARCHAR(128) NOT NULL DEFAULT '',
			action VARCHAR(20) NOT NULL,
			details TEXT NULL,
			created_at VARCHAR(50) NOT NULL DEFAULT '',
			INDEX idx_device_logs_device (device_id)
		)` + tableOptions,
	}
}

// seedConfig 강제 여부 설정이 없으면 기본값(true)으로 생성
func seedConfig(db *sql.DB, driver string) error {
	insert := "INSERT OR IGNORE"
	if driver == DriverMySQL {
		insert = "INSERT IGNORE"
	}
	_, err := db.Exec(insert+` INTO system_config (config_key, config_value, updated_at, updated_by) VALUES (?, 'true', '', 'system')`,
		EnforcementConfigKey)
	return err
}

// Close 데이터베이스 연결 종료
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
