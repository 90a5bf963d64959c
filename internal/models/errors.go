package models

import (
	"errors"
	"net/http"
)

var (
	ErrAlreadyJoined                = errors.New("player already joined")
	ErrNotJoined                    = errors.New("player has not joined")
	ErrInvalidProof                 = errors.New("invalid input proof")
	ErrEncryptionServiceUnavailable = errors.New("encryption service unavailable")
	ErrNoEncryptedData              = errors.New("no encrypted data")
	ErrAuthorizationExpired         = errors.New("decryption authorization expired")
	ErrAuthorizationRejected        = errors.New("decryption authorization rejected")
	ErrNetworkOrTransaction         = errors.New("network or transaction failure")

	ErrInvalidTaskID    = errors.New("invalid task id")
	ErrUnauthorized     = errors.New("caller not authorized")
	ErrActionPending    = errors.New("action already in flight")
	ErrSessionSpent     = errors.New("decryption session already used")
	ErrHandleNotAllowed = errors.New("handle not allowed for contract")
	ErrRateLimited      = errors.New("rate limit exceeded")
)

// Wire codes shared by the HTTP surface and the HTTP client.
const (
	CodeAlreadyJoined                = "ALREADY_JOINED"
	CodeNotJoined                    = "NOT_JOINED"
	CodeInvalidProof                 = "INVALID_PROOF"
	CodeEncryptionServiceUnavailable = "ENCRYPTION_SERVICE_UNAVAILABLE"
	CodeNoEncryptedData              = "NO_ENCRYPTED_DATA"
	CodeAuthorizationExpired         = "AUTHORIZATION_EXPIRED"
	CodeAuthorizationRejected        = "AUTHORIZATION_REJECTED"
	CodeNetworkFailure               = "NETWORK_FAILURE"
	CodeInvalidTaskID                = "INVALID_TASK_ID"
	CodeUnauthorized                 = "UNAUTHORIZED"
	CodeBadRequest                   = "BAD_REQUEST"
	CodeRateLimited                  = "RATE_LIMITED"
)

var codeTable = []struct {
	err    error
	code   string
	status int
}{
	{ErrAlreadyJoined, CodeAlreadyJoined, http.StatusConflict},
	{ErrNotJoined, CodeNotJoined, http.StatusPreconditionFailed},
	{ErrInvalidProof, CodeInvalidProof, http.StatusBadRequest},
	{ErrEncryptionServiceUnavailable, CodeEncryptionServiceUnavailable, http.StatusServiceUnavailable},
	{ErrNoEncryptedData, CodeNoEncryptedData, http.StatusNotFound},
	{ErrAuthorizationExpired, CodeAuthorizationExpired, http.StatusForbidden},
	{ErrAuthorizationRejected, CodeAuthorizationRejected, http.StatusForbidden},
	{ErrInvalidTaskID, CodeInvalidTaskID, http.StatusBadRequest},
	{ErrUnauthorized, CodeUnauthorized, http.StatusUnauthorized},
	{ErrHandleNotAllowed, CodeAuthorizationRejected, http.StatusForbidden},
	{ErrRateLimited, CodeRateLimited, http.StatusTooManyRequests},
}

// ErrorCode maps an error to its wire code and HTTP status. Unknown errors
// are reported as network or transaction failures.
func ErrorCode(err error) (string, int) {
	for _, e := range codeTable {
		if errors.Is(err, e.err) {
			return e.code, e.status
		}
	}
	return CodeNetworkFailure, http.StatusInternalServerError
}

// ErrorFromCode is the inverse of ErrorCode.
func ErrorFromCode(code string) error {
	for _, e := range codeTable {
		if e.code == code {
			return e.err
		}
	}
	return ErrNetworkOrTransaction
}
