package errors

import (
	"errors"
)

// WrapChainError returns err as a ChainError. An existing ChainError keeps its
// code; the kind of a classified failure is never rewritten.
func WrapChainError(err error, code ErrorCode, chain, message string) *ChainError {
	if err == nil {
		return nil
	}

	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		chainErr.WithContext("wrapped_message", message)
		if chain != "" && chainErr.Chain == "" {
			chainErr.Chain = chain
		}
		return chainErr
	}

	return NewChainError(code, chain, message, err)
}

// IsKind checks if an error is a ChainError with the given code
func IsKind(err error, code ErrorCode) bool {
	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return chainErr.Code == code
	}
	return false
}

// CodeOf returns the code carried by err, or ErrCodeUnknown when err was
// never classified.
func CodeOf(err error) ErrorCode {
	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return chainErr.Code
	}
	return ErrCodeUnknown
}

// TxHashOf returns the landed transaction hash recorded on err, if any.
func TxHashOf(err error) string {
	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return chainErr.TxHash
	}
	return ""
}
