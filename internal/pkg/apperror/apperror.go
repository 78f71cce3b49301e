package apperror

// AppError is a sentinel error carrying the HTTP status and the message shown
// to the client. Causes are attached with fmt.Errorf("%w: %w", sentinel, cause).
type AppError struct {
	Code      int    // HTTP Status Code (e.g., 400, 404)
	Message   string // User-facing error message
	Retryable bool   // Whether the client may repeat the identical request
}

func (e *AppError) Error() string {
	return e.Message
}

// New creates a new AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewRetryable creates an AppError for transient failures the client may retry as-is.
func NewRetryable(code int, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}
