package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidateConfig performs comprehensive validation of the configuration.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateEngine(&c.Engine)...)
	errs = append(errs, validateInjection(&c.Injection)...)
	errs = append(errs, validateSnippets(&c.Snippets)...)
	errs = append(errs, validateJournal(&c.Journal)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateMetrics(&c.Metrics)...)
	errs = append(errs, validateIPC(&c.IPC)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateEngine(e *EngineConfig) ValidationErrors {
	var errs ValidationErrors

	if e.QueueSize < 16 || e.QueueSize > 65536 {
		errs = append(errs, ValidationError{
			Field:   "engine.queue_size",
			Message: fmt.Sprintf("must be between 16 and 65536, got %d", e.QueueSize),
		})
	}
	if e.ApplyTimeoutMs < 100 {
		errs = append(errs, ValidationError{
			Field:   "engine.apply_timeout_ms",
			Message: fmt.Sprintf("must be at least 100, got %d", e.ApplyTimeoutMs),
		})
	}
	return errs
}

func validateInjection(i *InjectionConfig) ValidationErrors {
	var errs ValidationErrors

	if i.MaxDirectRunes < 1 {
		errs = append(errs, ValidationError{
			Field:   "injection.max_direct_runes",
			Message: fmt.Sprintf("must be positive, got %d", i.MaxDirectRunes),
		})
	}
	if i.InterKeyDelayMs < 0 || i.InterKeyDelayMs > 1000 {
		errs = append(errs, ValidationError{
			Field:   "injection.inter_key_delay_ms",
			Message: fmt.Sprintf("must be between 0 and 1000, got %d", i.InterKeyDelayMs),
		})
	}
	if i.PasteSettleMs < 0 || i.PasteSettleMs > 10000 {
		errs = append(errs, ValidationError{
			Field:   "injection.paste_settle_ms",
			Message: fmt.Sprintf("must be between 0 and 10000, got %d", i.PasteSettleMs),
		})
	}
	return errs
}

func validateSnippets(s *SnippetsConfig) ValidationErrors {
	var errs ValidationErrors

	for idx, p := range s.Paths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("snippets.paths[%d]", idx),
				Message: "must not be empty",
			})
		}
	}
	if len(s.Paths) == 0 && !s.IncludeDefaults {
		errs = append(errs, ValidationError{
			Field:   "snippets",
			Message: "no library paths and defaults disabled; nothing would ever expand",
		})
	}
	return errs
}

func validateJournal(j *JournalConfig) ValidationErrors {
	var errs ValidationErrors

	if !j.Enabled {
		return nil
	}
	if j.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "journal.path",
			Message: "required when journal is enabled",
		})
	}
	if j.RetentionDays < 1 {
		errs = append(errs, ValidationError{
			Field:   "journal.retention_days",
			Message: fmt.Sprintf("must be positive, got %d", j.RetentionDays),
		})
	}
	if j.BusyTimeoutMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "journal.busy_timeout_ms",
			Message: fmt.Sprintf("must not be negative, got %d", j.BusyTimeoutMs),
		})
	}
	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q", l.Level),
		})
	}

	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("must be text or json, got %q", l.Format),
		})
	}

	switch strings.ToLower(l.Output) {
	case "stdout", "stderr", "file", "both":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("must be stdout, stderr, file, or both, got %q", l.Output),
		})
	}

	if (l.Output == "file" || l.Output == "both") && l.FilePath == "" {
		errs = append(errs, ValidationError{
			Field:   "logging.file_path",
			Message: "required when output includes file",
		})
	}
	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: fmt.Sprintf("must be positive, got %d", l.MaxSizeMB),
		})
	}
	return errs
}

func validateMetrics(m *MetricsConfig) ValidationErrors {
	var errs ValidationErrors

	if !m.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(m.ListenAddr); err != nil {
		errs = append(errs, ValidationError{
			Field:   "metrics.listen_addr",
			Message: fmt.Sprintf("invalid address %q: %v", m.ListenAddr, err),
		})
	}
	return errs
}

func validateIPC(i *IPCConfig) ValidationErrors {
	var errs ValidationErrors

	if !i.Enabled {
		return nil
	}
	if i.SocketPath == "" {
		errs = append(errs, ValidationError{
			Field:   "ipc.socket_path",
			Message: "required when IPC is enabled",
		})
	}
	if i.TimeoutSec < 1 {
		errs = append(errs, ValidationError{
			Field:   "ipc.timeout_sec",
			Message: fmt.Sprintf("must be positive, got %d", i.TimeoutSec),
		})
	}
	return errs
}
