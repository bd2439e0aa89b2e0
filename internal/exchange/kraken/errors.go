package kraken

import (
	"errors"
	"strings"

	"trade-guard/internal/core"
)

// errorKindPhrases maps known fragments of the gateway's free-text errors to
// the closed taxonomy. Matching is ordered, case-insensitive substring search;
// anything unmatched stays Unclassified with the raw text intact.
var errorKindPhrases = []struct {
	phrase string
	kind   core.ErrorKind
}{
	{"insufficient funds", core.KindInsufficientFunds},
	{"insufficient initial margin", core.KindInsufficientFunds},
	{"order minimum not met", core.KindBelowOrderMinimum},
	{"volume minimum not met", core.KindBelowOrderMinimum},
	{"cost minimum not met", core.KindBelowOrderMinimum},
	{"invalid arguments", core.KindInvalidArguments},
	{"invalid request", core.KindInvalidArguments},
	{"unknown asset pair", core.KindUnknownPair},
	{"invalid key", core.KindInvalidKey},
	{"invalid signature", core.KindInvalidKey},
	{"invalid nonce", core.KindInvalidKey},
	{"permission denied", core.KindPermissionDenied},
}

// ClassifyMessage derives an ErrorKind from one free-text gateway message.
func ClassifyMessage(msg string) core.ErrorKind {
	normalized := strings.ToLower(strings.TrimSpace(msg))
	for _, entry := range errorKindPhrases {
		if strings.Contains(normalized, entry.phrase) {
			return entry.kind
		}
	}
	return core.KindUnclassified
}

// Classify resolves an APIError to a kind plus the verbatim raw text. The
// first message that classifies wins; an error with no classifiable message
// is Unclassified.
func Classify(apiErr APIError) (core.ErrorKind, string) {
	for _, msg := range apiErr.Messages {
		if kind := ClassifyMessage(msg); kind != core.KindUnclassified {
			return kind, apiErr.Raw()
		}
	}
	return core.KindUnclassified, apiErr.Raw()
}

// AsAPIError unwraps a gateway business error if err carries one.
func AsAPIError(err error) (APIError, bool) {
	if err == nil {
		return APIError{}, false
	}
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		return APIError{}, false
	}
	return apiErr, true
}
