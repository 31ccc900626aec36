package events

// Severity of a user-facing notice.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notice is the (message, severity) pair shown for one operation outcome.
type Notice struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Success builds a success notice.
func Success(msg string) *Notice {
	return &Notice{Message: msg, Severity: SeveritySuccess}
}

// Failure builds an error notice.
func Failure(msg string) *Notice {
	return &Notice{Message: msg, Severity: SeverityError}
}
