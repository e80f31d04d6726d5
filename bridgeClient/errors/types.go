package errors

import (
	"fmt"
)

// ErrorCode represents the category of a bridge failure
type ErrorCode string

const (
	// ErrCodeValidation indicates malformed input caught before anything was signed
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeInsufficientFunds indicates a pre-flight balance check failed
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"

	// ErrCodeUserRejected indicates the signer declined the transaction
	ErrCodeUserRejected ErrorCode = "USER_REJECTED"

	// ErrCodeNetwork indicates the node could not be reached or did not answer in time
	ErrCodeNetwork ErrorCode = "NETWORK"

	// ErrCodeProtocol indicates a chain or contract rejected or reverted the request
	ErrCodeProtocol ErrorCode = "PROTOCOL"

	// ErrCodeConfig indicates configuration errors
	ErrCodeConfig ErrorCode = "CONFIG"

	// ErrCodeUnknown is used for anything that could not be classified
	ErrCodeUnknown ErrorCode = "UNKNOWN"
)

// Severity represents the severity level of an error
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// ChainError is the single error type surfaced by the bridge client.
// TxHash names the transaction the failure refers to. After a failed
// broadcast it is the locally computed id, which may or may not have landed.
type ChainError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Chain    string                 `json:"chain,omitempty"`
	Severity Severity               `json:"severity"`
	TxHash   string                 `json:"tx_hash,omitempty"`
	Cause    error                  `json:"-"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// NewChainError creates a new ChainError
func NewChainError(code ErrorCode, chain, message string, cause error) *ChainError {
	return &ChainError{
		Code:     code,
		Message:  message,
		Chain:    chain,
		Severity: determineSeverity(code),
		Cause:    cause,
		Context:  make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *ChainError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Chain != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Chain, e.Code, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause
func (e *ChainError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *ChainError) WithContext(key string, value interface{}) *ChainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithTxHash records the hash of the transaction the failure refers to
func (e *ChainError) WithTxHash(hash string) *ChainError {
	e.TxHash = hash
	return e
}

// IsRetryable reports whether starting a fresh transfer could succeed without
// the user changing anything.
func (e *ChainError) IsRetryable() bool {
	return e.Code == ErrCodeNetwork
}

func determineSeverity(code ErrorCode) Severity {
	switch code {
	case ErrCodeUnknown:
		return SeverityCritical
	case ErrCodeProtocol:
		return SeverityHigh
	case ErrCodeNetwork:
		return SeverityMedium
	case ErrCodeValidation, ErrCodeConfig, ErrCodeInsufficientFunds:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// NewValidationError creates a validation error
func NewValidationError(chain, message string) *ChainError {
	return NewChainError(ErrCodeValidation, chain, message, nil)
}

// NewInsufficientFundsError creates an insufficient funds error
func NewInsufficientFundsError(chain, message string) *ChainError {
	return NewChainError(ErrCodeInsufficientFunds, chain, message, nil)
}

// NewUserRejectedError creates a user rejection error
func NewUserRejectedError(chain, message string) *ChainError {
	return NewChainError(ErrCodeUserRejected, chain, message, nil)
}

// NewNetworkError creates a network error
func NewNetworkError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeNetwork, chain, message, cause)
}

// NewProtocolError creates a protocol error
func NewProtocolError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeProtocol, chain, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(chain, message string) *ChainError {
	return NewChainError(ErrCodeConfig, chain, message, nil)
}

// NewUnknownError creates an unclassified error
func NewUnknownError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeUnknown, chain, message, cause)
}
