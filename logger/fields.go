package logger

// Field names shared by every crudkit log line.
const (
	FieldService    = "service"
	FieldComponent  = "component"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldAddress    = "address"
	FieldStatusCode = "status_code"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
)

// Fields pairs up alternating keys and values. Pairs with a non-string key
// and a trailing key without a value are dropped.
//
//	log.Debug("response received", logger.Fields(logger.FieldStatusCode, 200))
func Fields(kvs ...any) map[string]any {
	m := make(map[string]any, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}
