package kraken

import (
	"encoding/json"
	"strings"
)

// APIError is a business error reported by the gateway through its error
// array. The raw messages are preserved verbatim; classification happens
// separately and never discards them.
type APIError struct {
	Messages []string
}

func (e APIError) Error() string {
	return "kraken api error: " + strings.Join(e.Messages, "; ")
}

// Raw joins the gateway's messages for display and classification.
func (e APIError) Raw() string {
	return strings.Join(e.Messages, "; ")
}

func (e APIError) First() string {
	if len(e.Messages) == 0 {
		return ""
	}
	return e.Messages[0]
}

// envelope is the common response shape: a non-empty error array signals a
// business failure, otherwise result carries the payload.
type envelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

type addOrderResult struct {
	TxIDs []string `json:"txid"`
	Descr struct {
		Order string `json:"order"`
	} `json:"descr"`
}
