// Package audit emits structured security events for SIEM consumption.
// Events are serialized as JSON on a dedicated logger namespace so they can
// be filtered out of the regular application log stream.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/hww/data-terminal/pkg/auth"
)

// SecurityEventType categorizes security-relevant events for filtering and
// alerting.
type SecurityEventType string

const (
	// EventInjectionAttempt is logged when libinjection flags a
	// transformation statement submitted with a collection rule.
	EventInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventRuleRejected is logged when a collection rule fails validation.
	EventRuleRejected SecurityEventType = "rule_validation_failure"
)

// SecurityEvent is the wire format of an auditable event.
type SecurityEvent struct {
	Timestamp   time.Time         `json:"timestamp"`
	EventType   SecurityEventType `json:"event_type"`
	ProjectCode string            `json:"project_code"`
	TaskID      string            `json:"task_id,omitempty"`
	UserID      string            `json:"user_id,omitempty"`
	Details     any               `json:"details"`
	Severity    string            `json:"severity"`
}

// InjectionDetails carries the libinjection fingerprint of a rejected
// transformation statement. The statement itself is deliberately not
// logged.
type InjectionDetails struct {
	Fingerprint string `json:"fingerprint"`
}

// SecurityAuditor logs security events on the "security_audit" namespace.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates an auditor on a child logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogInjectionAttempt records a flagged transformation statement. Logged at
// ERROR with critical severity so monitoring picks it up immediately.
func (a *SecurityAuditor) LogInjectionAttempt(ctx context.Context, projectCode, taskID, fingerprint string) {
	event := a.newEvent(ctx, EventInjectionAttempt, projectCode, taskID, "critical")
	event.Details = InjectionDetails{Fingerprint: fingerprint}

	eventJSON, _ := json.Marshal(event)
	a.logger.Error("injection attempt detected",
		zap.String("event_json", string(eventJSON)),
		zap.String("project_code", projectCode),
		zap.String("task_id", taskID),
		zap.String("fingerprint", fingerprint),
		zap.String("user_id", event.UserID),
	)
}

// LogRuleRejected records a rule validation failure. These are usually user
// errors rather than attacks, so they log at WARN.
func (a *SecurityAuditor) LogRuleRejected(ctx context.Context, projectCode, taskID, reason string) {
	event := a.newEvent(ctx, EventRuleRejected, projectCode, taskID, "warning")
	event.Details = map[string]string{"error": reason}

	eventJSON, _ := json.Marshal(event)
	a.logger.Warn("collection rule rejected",
		zap.String("event_json", string(eventJSON)),
		zap.String("project_code", projectCode),
		zap.String("task_id", taskID),
		zap.String("error", reason),
		zap.String("user_id", event.UserID),
	)
}

func (a *SecurityAuditor) newEvent(ctx context.Context, eventType SecurityEventType, projectCode, taskID, severity string) SecurityEvent {
	userID := ""
	if identity, err := auth.IdentityFromContext(ctx); err == nil {
		userID = identity.Subject
	}
	return SecurityEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		ProjectCode: projectCode,
		TaskID:      taskID,
		UserID:      userID,
		Severity:    severity,
	}
}
