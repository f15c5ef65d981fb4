// Package errors provides error codes for the doorbell monitor
package errors

// ErrorCode represents a doorbell error code
type ErrorCode string

// Connection Error Codes
const (
	// ErrConnectWrongCredentials indicates the access point rejected the password
	ErrConnectWrongCredentials ErrorCode = "CONNECT_WRONG_CREDENTIALS"

	// ErrConnectNetworkNotFound indicates the configured SSID is not in range
	ErrConnectNetworkNotFound ErrorCode = "CONNECT_NETWORK_NOT_FOUND"

	// ErrConnectTimeout indicates the attempt budget was exhausted
	ErrConnectTimeout ErrorCode = "CONNECT_TIMEOUT"

	// ErrConnectTransient indicates a recoverable association failure
	ErrConnectTransient ErrorCode = "CONNECT_TRANSIENT"
)

// Delivery Error Codes
const (
	// ErrDeliveryTransport indicates no response was received from the endpoint
	ErrDeliveryTransport ErrorCode = "DELIVERY_TRANSPORT_FAILURE"

	// ErrDeliveryBadStatus indicates the endpoint answered with an unexpected status
	ErrDeliveryBadStatus ErrorCode = "DELIVERY_BAD_STATUS"

	// ErrDeliveryEncoding indicates the request could not be built
	ErrDeliveryEncoding ErrorCode = "DELIVERY_ENCODING_FAILURE"
)

// Configuration Error Codes
const (
	// ErrConfigInvalid indicates malformed configuration
	ErrConfigInvalid ErrorCode = "CONFIG_INVALID"

	// ErrConfigMissingCredentials indicates a channel is missing a credential
	ErrConfigMissingCredentials ErrorCode = "CONFIG_MISSING_CREDENTIALS"
)

// Queue Error Codes
const (
	// ErrQueueFull indicates the sender queue is at capacity
	ErrQueueFull ErrorCode = "QUEUE_FULL"

	// ErrQueueClosed indicates the sender queue no longer accepts events
	ErrQueueClosed ErrorCode = "QUEUE_CLOSED"

	// ErrRateLimited indicates a press arrived faster than the press rate limit
	ErrRateLimited ErrorCode = "PRESS_RATE_LIMITED"
)

// System Error Codes
const (
	// ErrInternal indicates an internal error
	ErrInternal ErrorCode = "INTERNAL_ERROR"

	// ErrHardware indicates a pin, LED or radio primitive failed
	ErrHardware ErrorCode = "HARDWARE_ERROR"
)

// Priority levels for error codes
const (
	PriorityLow      = 1
	PriorityNormal   = 2
	PriorityHigh     = 3
	PriorityCritical = 4
)

// ErrorCodeInfo provides information about an error code
type ErrorCodeInfo struct {
	Code        ErrorCode `json:"code"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Priority    int       `json:"priority"`
	Retryable   bool      `json:"retryable"`
	Terminal    bool      `json:"terminal"`
}

// GetErrorCodeInfo returns information about an error code
func GetErrorCodeInfo(code ErrorCode) ErrorCodeInfo {
	info, exists := errorCodeInfoMap[code]
	if !exists {
		return ErrorCodeInfo{
			Code:        code,
			Category:    "unknown",
			Description: "Unknown error code",
			Priority:    PriorityNormal,
		}
	}
	return info
}

// IsRetryable checks if an error code is retryable
func IsRetryable(code ErrorCode) bool {
	return GetErrorCodeInfo(code).Retryable
}

// IsTerminal checks if an error code ends a connection attempt immediately
func IsTerminal(code ErrorCode) bool {
	return GetErrorCodeInfo(code).Terminal
}

// GetCategory returns the category of an error code
func GetCategory(code ErrorCode) string {
	return GetErrorCodeInfo(code).Category
}

// GetPriority returns the priority of an error code
func GetPriority(code ErrorCode) int {
	return GetErrorCodeInfo(code).Priority
}

var errorCodeInfoMap = map[ErrorCode]ErrorCodeInfo{
	// Connection errors
	ErrConnectWrongCredentials: {
		Code: ErrConnectWrongCredentials, Category: "connection", Description: "Access point rejected the credentials",
		Priority: PriorityCritical, Retryable: false, Terminal: true,
	},
	ErrConnectNetworkNotFound: {
		Code: ErrConnectNetworkNotFound, Category: "connection", Description: "Configured network is not in range",
		Priority: PriorityHigh, Retryable: false, Terminal: true,
	},
	ErrConnectTimeout: {
		Code: ErrConnectTimeout, Category: "connection", Description: "Connection attempts exhausted",
		Priority: PriorityHigh, Retryable: false,
	},
	ErrConnectTransient: {
		Code: ErrConnectTransient, Category: "connection", Description: "Association failed, radio will retry",
		Priority: PriorityNormal, Retryable: true,
	},

	// Delivery errors
	ErrDeliveryTransport: {
		Code: ErrDeliveryTransport, Category: "delivery", Description: "No response from endpoint",
		Priority: PriorityNormal, Retryable: true,
	},
	ErrDeliveryBadStatus: {
		Code: ErrDeliveryBadStatus, Category: "delivery", Description: "Endpoint returned an unexpected status",
		Priority: PriorityNormal, Retryable: true,
	},
	ErrDeliveryEncoding: {
		Code: ErrDeliveryEncoding, Category: "delivery", Description: "Request could not be encoded",
		Priority: PriorityNormal, Retryable: true,
	},

	// Configuration errors
	ErrConfigInvalid: {
		Code: ErrConfigInvalid, Category: "configuration", Description: "Invalid configuration provided",
		Priority: PriorityHigh,
	},
	ErrConfigMissingCredentials: {
		Code: ErrConfigMissingCredentials, Category: "configuration", Description: "Channel credential is missing",
		Priority: PriorityHigh,
	},

	// Queue errors
	ErrQueueFull: {
		Code: ErrQueueFull, Category: "queue", Description: "Sender queue is full",
		Priority: PriorityNormal,
	},
	ErrQueueClosed: {
		Code: ErrQueueClosed, Category: "queue", Description: "Sender queue is closed",
		Priority: PriorityLow,
	},
	ErrRateLimited: {
		Code: ErrRateLimited, Category: "queue", Description: "Press rate limit exceeded",
		Priority: PriorityLow,
	},

	// System errors
	ErrInternal: {
		Code: ErrInternal, Category: "system", Description: "Internal error",
		Priority: PriorityCritical,
	},
	ErrHardware: {
		Code: ErrHardware, Category: "system", Description: "Hardware primitive failed",
		Priority: PriorityHigh,
	},
}
