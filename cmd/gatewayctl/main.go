package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"trustgateway/config"
	"trustgateway/database"
	"trustgateway/services"
	"trustgateway/utils"
)

func main() {
	if len(os.Args) < 2 {
		exitf("usage: gatewayctl <code-new|code-list|code-revoke|device-revoke|enforcement|token|prune> [flags]")
	}
	switch os.Args[1] {
	case "code-new":
		runCodeNew(os.Args[2:])
	case "code-list":
		runCodeList(os.Args[2:])
	case "code-revoke":
		runCodeRevoke(os.Args[2:])
	case "device-revoke":
		runDeviceRevoke(os.Args[2:])
	case "enforcement":
		runEnforcement(os.Args[2:])
	case "token":
		runToken(os.Args[2:])
	case "prune":
		runPrune(os.Args[2:])
	default:
		exitf("unknown subcommand %q", os.Args[1])
	}
}

type store struct {
	cfg        config.Config
	activation services.ActivationService
	registry   services.DeviceRegistry
	audit      services.AuditService
}

func openStore(configPath string) *store {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitf("load config failed: %v", err)
	}
	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		exitf("open database failed: %v", err)
	}
	exec := services.NewSQLExecutor(db)
	opts := services.StoreOptions{Dialect: cfg.DBDriver, QueryTimeout: cfg.DBQueryTimeout}
	return &store{
		cfg:        cfg,
		activation: services.NewActivationService(exec, opts),
		registry:   services.NewDeviceRegistry(exec, opts),
		audit:      services.NewAuditService(exec, opts),
	}
}

func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", envOr("GATEWAY_CONFIG", "config.yaml"), "path to config.yaml")
}

func runCodeNew(args []string) {
	fs := flag.NewFlagSet("code-new", flag.ExitOnError)
	configPath := configFlag(fs)
	days := fs.Int("days", 30, "validity in days")
	if err := fs.Parse(args); err != nil {
		exitf("parse flags failed: %v", err)
	}
	if *days < 1 || *days > 3650 {
		exitf("--days must be between 1 and 3650")
	}

	s := openStore(*configPath)
	code, err := s.activation.Issue(context.Background(), time.Duration(*days)*24*time.Hour)
	if err != nil {
		exitf("issue code failed: %v", err)
	}
	writeJSON(map[string]string{
		"id":         code.ID,
		"code":       code.Code,
		"formatted":  utils.FormatActivationCode(code.Code),
		"expires_at": code.ExpiresAt,
	})
}

func runCodeList(args []string) {
	fs := flag.NewFlagSet("code-list", flag.ExitOnError)
	configPath := configFlag(fs)
	if err := fs.Parse(args); err != nil {
		exitf("parse flags failed: %v", err)
	}

	s := openStore(*configPath)
	listing, err := s.registry.List(context.Background())
	if err != nil {
		exitf("list failed: %v", err)
	}
	writeJSON(listing)
}

func runCodeRevoke(args []string) {
	fs := flag.NewFlagSet("code-revoke", flag.ExitOnError)
	configPath := configFlag(fs)
	id := fs.String("id", "", "activation code id")
	if err := fs.Parse(args); err != nil {
		exitf("parse flags failed: %v", err)
	}
	if *id == "" {
		exitf("required flags: --id")
	}

	s := openStore(*configPath)
	ok, err := s.registry.DeactivateCode(context.Background(), *id)
	if err != nil {
		exitf("revoke code failed: %v", err)
	}
	writeJSON(map[string]bool{"revoked": ok})
}

func runDeviceRevoke(args []string) {
	fs := flag.NewFlagSet("device-revoke", flag.ExitOnError)
	configPath := configFlag(fs)
	id := fs.String("id", "", "device id")
	if err := fs.Parse(args); err != nil {
		exitf("parse flags failed: %v", err)
	}
	if *id == "" {
		exitf("required flags: --id")
	}

	s := openStore(*configPath)
	ok, err := s.registry.Deactivate(context.Background(), *id, "gatewayctl")
	if err != nil {
		exitf("revoke device failed: %v", err)
	}
	writeJSON(map[string]bool{"revoked": ok})
}

func runEnforcement(args []string) {
	fs := flag.NewFlagSet("enforcement", flag.ExitOnError)
	configPath := configFlag(fs)
	set := fs.String("set", "", "true or false; empty prints the current value")
	if err := fs.Parse(args); err != nil {
		exitf("parse flags failed: %v", err)
	}

	s := openStore(*configPath)
	ctx := context.Background()
	switch *set {
	case "":
	case "true", "false":
		if err := s.registry.SetEnforcementRequired(ctx, *set == "true", "gatewayctl"); err != nil {
			exitf("update enforcement failed: %v", err)
		}
	default:
		exitf("--set must be true or false")
	}

	required, err := s.registry.EnforcementRequired(ctx)
	if err != nil {
		exitf("read enforcement failed: %v", err)
	}
	writeJSON(map[string]bool{"requiere": required})
}

func runToken(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := configFlag(fs)
	user := fs.String("user", "", "admin username")
	role := fs.String("role", "superadmin", "role claim")
	ttl := fs.Duration("ttl", 12*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		exitf("parse flags failed: %v", err)
	}
	if *user == "" {
		exitf("required flags: --user")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		exitf("load config failed: %v", err)
	}
	token, expiresAt, err := signToken(cfg, *user, *role, *ttl)
	if err != nil {
		exitf("%v", err)
	}
	writeJSON(map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt,
	})
}

// signToken 서명 키가 필요한 유일한 서브커맨드. 다른 명령은 JWT_SECRET 없이도 동작한다.
func signToken(cfg config.Config, user, role string, ttl time.Duration) (string, int64, error) {
	if err := cfg.RequireSigningSecret(); err != nil {
		return "", 0, err
	}
	if cfg.JWTSecret != "" {
		utils.SetJWTSecret(cfg.JWTSecret)
	}
	token, expiresAt, err := utils.GenerateToken(utils.GenerateID("adm"), user, role, ttl)
	if err != nil {
		return "", 0, fmt.Errorf("sign token failed: %w", err)
	}
	return token, expiresAt, nil
}

func runPrune(args []string) {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	configPath := configFlag(fs)
	days := fs.Int("days", 0, "retention in days; 0 uses the configured value")
	if err := fs.Parse(args); err != nil {
		exitf("parse flags failed: %v", err)
	}

	s := openStore(*configPath)
	retention := s.cfg.AuditRetention
	if *days > 0 {
		retention = time.Duration(*days) * 24 * time.Hour
	}
	result, err := s.audit.Prune(context.Background(), retention)
	if err != nil {
		exitf("prune failed: %v", err)
	}
	writeJSON(result)
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func writeJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		exitf("encode output failed: %v", err)
	}
}

func exitf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
