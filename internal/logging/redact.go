package logging

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// Redacted replaces the value of sensitive log fields.
const Redacted = "[REDACTED]"

var sensitiveFieldParts = []string{
	"password",
	"token",
	"secret",
	"key",
	"authorization",
	"cookie",
	"session",
	"email",
	"phone",
	"address",
}

// RedactHook masks entry fields whose name contains a sensitive word.
type RedactHook struct{}

// NewRedactHook returns a hook that fires on every level.
func NewRedactHook() *RedactHook { return &RedactHook{} }

// Levels implements log.Hook.
func (h *RedactHook) Levels() []log.Level { return log.AllLevels }

// Fire implements log.Hook.
func (h *RedactHook) Fire(entry *log.Entry) error {
	if len(entry.Data) == 0 {
		return nil
	}
	redacted := make(log.Fields, len(entry.Data))
	for name, value := range entry.Data {
		if name != log.ErrorKey && IsSensitiveField(name) {
			redacted[name] = Redacted
			continue
		}
		redacted[name] = value
	}
	entry.Data = redacted
	return nil
}

// IsSensitiveField reports whether a field name looks like it carries secrets
// or personal data.
func IsSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, part := range sensitiveFieldParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}
