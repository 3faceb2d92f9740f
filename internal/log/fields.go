package log

import "time"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldRunID       = "run_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldMonth       = "month"
	FieldMonths      = "months"
	FieldCutoff      = "cutoff"
	FieldNetWorth    = "net_worth"
	FieldCommitted   = "months_committed"
	FieldFailed      = "months_failed"
	FieldBucket      = "bucket"
	FieldPeriodStart = "period_start"
	FieldPeriodEnd   = "period_end"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentSnapshot = "snapshot"
	ComponentBridge   = "bridge"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentCache    = "cache"
	ComponentBackend  = "backend"
	ComponentMetrics  = "metrics"
)

// Operations defines standard operation names
const (
	OpGenerate = "generate"
	OpPersist  = "persist"
	OpVerify   = "verify"
	OpBridge   = "bridge"
	OpImport   = "import"
	OpExport   = "export"
	OpRead     = "read"
	OpList     = "list"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSnapshotRun adds the outcome of a generate-and-persist run
func (f LogFields) WithSnapshotRun(runID string, requested, committed, failed int) LogFields {
	f[FieldRunID] = runID
	f[FieldMonths] = requested
	f[FieldCommitted] = committed
	f[FieldFailed] = failed
	return f
}

// WithPeriod adds the bounds of a reporting period
func (f LogFields) WithPeriod(start, end time.Time) LogFields {
	f[FieldPeriodStart] = start.Format(time.RFC3339)
	f[FieldPeriodEnd] = end.Format(time.RFC3339)
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
