package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldGroupID       = "group_id"
	FieldGroupName     = "group_name"
	FieldMember        = "member"
	FieldExpenseDesc   = "expense_description"
	FieldAmount        = "amount"
	FieldPaidBy        = "paid_by"
	FieldTxID          = "tx_id"
	FieldSessionID     = "session_id"
	FieldPaymentStatus = "payment_status"
	FieldStorageKey    = "storage_key"
)

// Components defines standard component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentLedger     = "ledger"
	ComponentSettlement = "settlement"
	ComponentLookup     = "lookup"
	ComponentStorage    = "storage"
	ComponentAMQP       = "amqp"
	ComponentWorker     = "worker"
	ComponentSheets     = "sheets"
	ComponentCache      = "cache"
	ComponentBackend    = "backend"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpSelect   = "select"
	OpDelete   = "delete"
	OpAdd      = "add"
	OpRemove   = "remove"
	OpRestore  = "restore"
	OpPersist  = "persist"
	OpVerify   = "verify"
	OpPublish  = "publish"
	OpMirror   = "mirror"
	OpEvict    = "evict"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error text; a nil error adds nothing.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithGroup(id, name string) LogFields {
	f[FieldGroupID] = id
	if name != "" {
		f[FieldGroupName] = name
	}
	return f
}

func (f LogFields) WithMember(name string) LogFields {
	f[FieldMember] = name
	return f
}

// WithExpense adds expense-related fields
func (f LogFields) WithExpense(desc, amount, paidBy string) LogFields {
	f[FieldExpenseDesc] = desc
	f[FieldAmount] = amount
	f[FieldPaidBy] = paidBy
	return f
}

func (f LogFields) WithPayment(sessionID, txID, status string) LogFields {
	f[FieldSessionID] = sessionID
	f[FieldTxID] = txID
	f[FieldPaymentStatus] = status
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

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
