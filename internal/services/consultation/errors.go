// File: internal/services/consultation/errors.go
package consultation

import "fmt"

type ErrorType string

const (
	ErrTypeConfig       ErrorType = "CONFIG"
	ErrTypeValidation   ErrorType = "VALIDATION"
	ErrTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrTypeNotFound     ErrorType = "NOT_FOUND"
	ErrTypeStore        ErrorType = "STORE"
	ErrTypeDelivery     ErrorType = "DELIVERY"
)

// ConsultError is the taxonomy shared by the lifecycle manager and the
// message relay. VALIDATION and UNAUTHORIZED are rejected synchronously and
// never retried; STORE surfaces to the caller so optimistic UI can roll
// back; DELIVERY is informational only (a broadcast that reached no one is
// recovered by the next history fetch).
type ConsultError struct {
	Type           ErrorType
	Operation      string
	Message        string
	ConsultationID uint
	SenderID       uint
	Cause          error
}

func (e *ConsultError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Consultation %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("Consultation %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *ConsultError) Unwrap() error {
	return e.Cause
}

func NewValidationError(operation, msg string) *ConsultError {
	return &ConsultError{Type: ErrTypeValidation, Operation: operation, Message: msg}
}

func NewUnauthorizedError(operation string, senderID, consultationID uint) *ConsultError {
	return &ConsultError{
		Type:           ErrTypeUnauthorized,
		Operation:      operation,
		Message:        "not a participant of an active consultation",
		SenderID:       senderID,
		ConsultationID: consultationID,
	}
}

func NewNotFoundError(operation string, consultationID uint) *ConsultError {
	return &ConsultError{
		Type:           ErrTypeNotFound,
		Operation:      operation,
		Message:        "consultation not found or not active",
		ConsultationID: consultationID,
	}
}

func NewStoreError(operation, msg string, cause error) *ConsultError {
	return &ConsultError{Type: ErrTypeStore, Operation: operation, Message: msg, Cause: cause}
}

// IsType reports whether err is a ConsultError of the given type.
func IsType(err error, t ErrorType) bool {
	ce, ok := err.(*ConsultError)
	return ok && ce.Type == t
}
