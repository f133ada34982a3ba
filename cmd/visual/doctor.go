package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"storage-visual/internal/adapter/privilege"
	"storage-visual/internal/adapter/storage"
	"storage-visual/internal/domain"
	"storage-visual/internal/infra/config"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(ctx context.Context, cfg *config.Config) CheckResult
}

const (
	doctorProbeKey     = "__visual_doctor_probe__"
	doctorProbeTimeout = 5 * time.Second
)

// runDoctor executes all health checks and reports results.
func runDoctor(ctx context.Context, out io.Writer) error {
	cfgPath := configPath()

	// Some checks still run when the config fails to load.
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "Privilege source", Fn: checkPrivilege},
		{Name: "Storage backend", Fn: checkStorage},
		{Name: "Audit log", Fn: checkAuditLog},
		{Name: "Log output", Fn: checkLogOutput},
		{Name: "Disk space", Fn: checkDiskSpace},
	}
	return runChecks(ctx, cfg, checks, out)
}

func runChecks(ctx context.Context, cfg *config.Config, checks []Check, out io.Writer) error {
	fmt.Fprintln(out, "visual doctor")
	fmt.Fprintln(out, strings.Repeat("=", 50))
	fmt.Fprintln(out)

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(ctx, cfg)
		result.Name = check.Name

		fmt.Fprintf(out, "  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(out, "      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("-", 50))
	fmt.Fprintf(out, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		fmt.Fprintln(out, "\nFix the FAIL issues above before launching visual.")
		return fmt.Errorf("%d check(s) failed", fail)
	}
	if warn > 0 {
		fmt.Fprintln(out, "\nvisual should work, but consider addressing the warnings.")
	} else {
		fmt.Fprintln(out, "\nAll checks passed! visual is ready to run.")
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

// checkConfigFile reports on the config load. A missing file is fine since
// the defaults apply.
func checkConfigFile(path string, loadErr error) func(context.Context, *config.Config) CheckResult {
	return func(_ context.Context, _ *config.Config) CheckResult {
		if loadErr != nil {
			var ve *config.ValidationError
			if errors.As(loadErr, &ve) {
				return CheckResult{
					Status:  StatusFail,
					Message: fmt.Sprintf("%s is invalid (%d problem(s))", path, len(ve.Errors)),
					Fix:     strings.Join(ve.Errors, "; "),
				}
			}
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("cannot load %s: %v", path, loadErr),
				Fix:     "Check the YAML syntax and file permissions (0600 or 0644)",
			}
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("%s not found, using defaults", path),
				Fix:     "Create visual.yaml or pass --config PATH",
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("%s loaded", path),
		}
	}
}

// checkPrivilege queries the configured privilege source once.
func checkPrivilege(ctx context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded()
	}

	src, err := privilege.New(cfg.Privilege, nil, nil, nil)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: err.Error(),
			Fix:     "Set privilege.source to \"static\" or \"consent\"",
		}
	}
	status, err := src.Status(ctx)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("status query failed: %v", err),
			Fix:     "Reset consent with: visual consent revoke && visual consent grant",
		}
	}
	if status.Allowed() {
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("%s (source: %s)", status, cfg.Privilege.Source),
		}
	}

	fix := "Set privilege.status to \"allowed\" in the config"
	if cfg.Privilege.Source == "consent" {
		fix = "Grant access with: visual consent grant"
	}
	return CheckResult{
		Status:  StatusWarn,
		Message: fmt.Sprintf("%s (source: %s); storage actions will be quietly denied", status, cfg.Privilege.Source),
		Fix:     fix,
	}
}

// checkStorage opens the backend and reads a probe key. A missing key is the
// expected answer.
func checkStorage(ctx context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded()
	}

	ctx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()

	store, err := storage.New(ctx, cfg.Storage, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot open %s backend: %v", cfg.Storage.Backend, err),
			Fix:     storageFix(cfg.Storage),
		}
	}
	defer store.Close()

	if _, err := store.Get(ctx, doctorProbeKey); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s backend read failed: %v", store.Name(), err),
			Fix:     storageFix(cfg.Storage),
		}
	}
	if cfg.Storage.Backend == "memory" || cfg.Storage.Backend == "" {
		return CheckResult{
			Status:  StatusWarn,
			Message: "memory backend (values are lost on exit)",
			Fix:     "Set storage.backend to \"sqlite\" for persistence",
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s backend reachable", store.Name()),
	}
}

func storageFix(cfg config.StorageConfig) string {
	switch cfg.Backend {
	case "sqlite":
		return fmt.Sprintf("Check that %s is writable", cfg.SQLitePath)
	case "redis":
		return fmt.Sprintf("Start Redis at %s or set VISUAL_REDIS_ADDR", cfg.Redis.Addr)
	default:
		return "Set storage.backend to memory, sqlite or redis"
	}
}

func checkAuditLog(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded()
	}
	if !cfg.Audit.Enabled {
		return CheckResult{
			Status:  StatusPass,
			Message: "audit log disabled",
		}
	}
	return checkWritableDir(filepath.Dir(cfg.Audit.Path))
}

func checkLogOutput(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return notLoaded()
	}
	switch cfg.Logger.Output {
	case "", "stdout", "stderr", "discard":
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("logging to %q", cfg.Logger.Output),
		}
	}
	return checkWritableDir(filepath.Dir(cfg.Logger.Output))
}

// checkWritableDir creates dir if needed and verifies a file can be written
// inside it.
func checkWritableDir(dir string) CheckResult {
	absDir, _ := filepath.Abs(dir)

	info, err := os.Stat(absDir)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(absDir, 0o700); mkErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("directory %s does not exist and cannot be created: %v", absDir, mkErr),
				Fix:     fmt.Sprintf("Create the directory: mkdir -p %s", absDir),
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("directory created at %s", absDir),
		}
	}
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("cannot stat directory: %v", err),
		}
	}
	if !info.IsDir() {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s exists but is not a directory", absDir),
		}
	}

	testFile := filepath.Join(absDir, ".doctor-check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("directory %s is not writable: %v", absDir, err),
			Fix:     fmt.Sprintf("Fix permissions: chmod 700 %s", absDir),
		}
	}
	os.Remove(testFile)

	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("directory %s writable", absDir),
	}
}

// checkDiskSpace checks free space where the sqlite database lives.
func checkDiskSpace(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil || cfg.Storage.Backend != "sqlite" {
		return CheckResult{
			Status:  StatusPass,
			Message: "no local database, space check skipped",
		}
	}

	absDir, _ := filepath.Abs(filepath.Dir(cfg.Storage.SQLitePath))
	info, err := os.Stat(absDir)
	if err != nil || !info.IsDir() {
		return CheckResult{
			Status:  StatusPass,
			Message: "data directory does not exist yet, space check skipped",
		}
	}

	out, err := exec.Command("df", "-h", absDir).Output()
	if err != nil {
		return CheckResult{
			Status:  StatusWarn,
			Message: "could not determine disk space (df command failed)",
		}
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) < 2 {
		return CheckResult{
			Status:  StatusWarn,
			Message: "unexpected df output format",
		}
	}
	fields := strings.Fields(lines[len(lines)-1])
	if len(fields) < 5 {
		return CheckResult{
			Status:  StatusWarn,
			Message: "unexpected df output format",
		}
	}

	available := fields[3]
	usePercent := fields[4]
	var pct int
	fmt.Sscanf(strings.TrimSuffix(usePercent, "%"), "%d", &pct)

	if pct >= 95 {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("disk almost full: %s used, %s available", usePercent, available),
			Fix:     "Free up disk space or move storage.sqlite_path to another partition",
		}
	}
	if pct >= 85 {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("disk usage high: %s used, %s available", usePercent, available),
		}
	}
	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("disk usage: %s used, %s available", usePercent, available),
	}
}

func notLoaded() CheckResult {
	return CheckResult{
		Status:  StatusFail,
		Message: "cannot check, config not loaded",
	}
}
