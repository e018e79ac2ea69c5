package system

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Gin context keys shared by the console middleware.
const (
	// ReqLoggerKey stores the request-scoped sugared logger.
	ReqLoggerKey = "reqLogger"
	// OfficerIDKey stores the employee id of the session's officer.
	OfficerIDKey = "officerID"
	// SessionIDKey stores a shortened session id for log correlation.
	SessionIDKey = "sessionRef"
)

// NewLogger builds the process logger: production JSON by default,
// development console output with debug. Stacktraces stay off for non-fatal
// levels and timestamps are RFC3339 UTC under "ts".
func NewLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}
	cfg.EncoderConfig.TimeKey = "ts"
	return cfg.Build()
}

// GetReqLogger returns the request-scoped sugared logger from gin.Context if present,
// otherwise returns the fallback.
func GetReqLogger(c *gin.Context, fallback *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil {
		return fallback
	}
	if v, ok := c.Get(ReqLoggerKey); ok {
		if l, ok2 := v.(*zap.SugaredLogger); ok2 {
			return l
		}
	}
	return fallback
}

// EnrichReqLoggerWithOfficer annotates the request-scoped logger with the
// officer and session reference stored in the gin context by the auth guard.
func EnrichReqLoggerWithOfficer(c *gin.Context, reqLogger *zap.SugaredLogger) *zap.SugaredLogger {
	if c == nil || reqLogger == nil {
		return reqLogger
	}
	if v, ok := c.Get(OfficerIDKey); ok {
		if id, ok2 := v.(string); ok2 && id != "" {
			reqLogger = reqLogger.With("officer", id)
		}
	}
	if v, ok := c.Get(SessionIDKey); ok {
		if ref, ok2 := v.(string); ok2 && ref != "" {
			reqLogger = reqLogger.With("session", ref)
		}
	}
	return reqLogger
}

// SessionRef shortens a session id so logs can correlate requests without
// carrying the full cookie value.
func SessionRef(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// EscalationFields returns key/value pairs for logging an escalation.
func EscalationFields(id int64, status string) []interface{} {
	if status == "" {
		return []interface{}{"escalation", id}
	}
	return []interface{}{"escalation", id, "status", status}
}
