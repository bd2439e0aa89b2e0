package core

// ErrorKind classifies a terminal order rejection. Remote kinds are derived by
// pattern-matching the gateway's free-text error messages; the raw text is
// always preserved alongside the kind.
type ErrorKind string

const (
	KindInsufficientFunds ErrorKind = "INSUFFICIENT_FUNDS"
	KindBelowOrderMinimum ErrorKind = "BELOW_ORDER_MINIMUM"
	KindInvalidArguments  ErrorKind = "INVALID_ARGUMENTS"
	KindUnknownPair       ErrorKind = "UNKNOWN_PAIR"
	KindInvalidKey        ErrorKind = "INVALID_KEY"
	KindPermissionDenied  ErrorKind = "PERMISSION_DENIED"
	// KindValidationFailed marks rejections produced locally by the validator,
	// before any gateway call.
	KindValidationFailed ErrorKind = "VALIDATION_FAILED"
	// KindUnclassified carries gateway text no known phrase matched.
	KindUnclassified ErrorKind = "UNCLASSIFIED"
)
