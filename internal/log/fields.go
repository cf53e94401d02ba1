package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
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
	FieldRunID       = "run_id"
	FieldYear        = "year"
	FieldFile        = "file"
	FieldProject     = "project"
	FieldRows        = "rows"
	FieldFilesRead   = "files_read"
	FieldFilesFailed = "files_failed"
	FieldDays        = "days"
	FieldTotal       = "total"
	FieldUndated     = "undated_keys"
	FieldSource      = "source"
	FieldArtifact    = "artifact"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentIngest    = "ingest"
	ComponentAggregate = "aggregate"
	ComponentStorage   = "storage"
	ComponentArtifact  = "artifact"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentBackend   = "backend"
	ComponentTemplate  = "template"
)

// Operations defines standard operation names
const (
	OpRead      = "read"
	OpParse     = "parse"
	OpAggregate = "aggregate"
	OpSnapshot  = "snapshot"
	OpPublish   = "publish"
	OpExport    = "export"
	OpRender    = "render"
	OpRefresh   = "refresh"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
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

// WithFile adds the input file and the project derived from it.
func (f LogFields) WithFile(name, project string) LogFields {
	f[FieldFile] = name
	if project != "" {
		f[FieldProject] = project
	}
	return f
}

// WithRun adds the outcome of one aggregation run.
func (f LogFields) WithRun(runID string, filesRead, filesFailed, days, total int) LogFields {
	f[FieldRunID] = runID
	f[FieldFilesRead] = filesRead
	f[FieldFilesFailed] = filesFailed
	f[FieldDays] = days
	f[FieldTotal] = total
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
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
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
