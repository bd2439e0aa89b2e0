package kraken

import (
	"errors"
	"fmt"
	"testing"

	"trade-guard/internal/core"
)

func TestClassifyMessage(t *testing.T) {
	cases := []struct {
		msg  string
		want core.ErrorKind
	}{
		{"EOrder:Insufficient funds", core.KindInsufficientFunds},
		{"Insufficient funds", core.KindInsufficientFunds},
		{"EOrder:Order minimum not met", core.KindBelowOrderMinimum},
		{"EOrder:Volume minimum not met", core.KindBelowOrderMinimum},
		{"EOrder:Cost minimum not met", core.KindBelowOrderMinimum},
		{"EGeneral:Invalid arguments", core.KindInvalidArguments},
		{"EAPI:Invalid request", core.KindInvalidArguments},
		{"EQuery:Unknown asset pair", core.KindUnknownPair},
		{"EAPI:Invalid key", core.KindInvalidKey},
		{"EAPI:Invalid signature", core.KindInvalidKey},
		{"EAPI:Invalid nonce", core.KindInvalidKey},
		{"EGeneral:Permission denied", core.KindPermissionDenied},
		{"EService:Unavailable", core.KindUnclassified},
		{"something nobody has seen before", core.KindUnclassified},
		{"", core.KindUnclassified},
	}
	for _, tc := range cases {
		if got := ClassifyMessage(tc.msg); got != tc.want {
			t.Fatalf("ClassifyMessage(%q) = %s, want %s", tc.msg, got, tc.want)
		}
	}
}

func TestClassifyKeepsRawText(t *testing.T) {
	apiErr := APIError{Messages: []string{"EService:Unavailable", "try again later"}}
	kind, raw := Classify(apiErr)
	if kind != core.KindUnclassified {
		t.Fatalf("kind = %s, want %s", kind, core.KindUnclassified)
	}
	if raw != "EService:Unavailable; try again later" {
		t.Fatalf("raw = %q, original text must be preserved verbatim", raw)
	}
}

func TestClassifyFirstMatchingMessageWins(t *testing.T) {
	apiErr := APIError{Messages: []string{"WOrder:partial note", "EOrder:Insufficient funds"}}
	kind, raw := Classify(apiErr)
	if kind != core.KindInsufficientFunds {
		t.Fatalf("kind = %s, want %s", kind, core.KindInsufficientFunds)
	}
	if raw == "" {
		t.Fatalf("raw text must not be discarded")
	}
}

func TestAsAPIError(t *testing.T) {
	apiErr := APIError{Messages: []string{"EOrder:Insufficient funds"}}
	wrapped := fmt.Errorf("place order: %w", apiErr)

	got, ok := AsAPIError(wrapped)
	if !ok {
		t.Fatalf("AsAPIError() did not unwrap a wrapped APIError")
	}
	if got.First() != "EOrder:Insufficient funds" {
		t.Fatalf("First() = %q", got.First())
	}
	if _, ok := AsAPIError(errors.New("dial tcp: connection refused")); ok {
		t.Fatalf("AsAPIError() matched a transport error")
	}
	if _, ok := AsAPIError(nil); ok {
		t.Fatalf("AsAPIError(nil) = true")
	}
}
