package api

import "time"

// QueryResponse represents the standard query response format
type QueryResponse struct {
	Data        interface{} `json:"data"`
	LastFetched time.Time   `json:"last_fetched"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// BuildRequest is the body of POST /api/v1/transfers/build. Amount is a
// decimal integer in the token's base units.
type BuildRequest struct {
	Kind      string       `json:"kind"`
	Sender    string       `json:"sender"`
	Recipient string       `json:"recipient"`
	Token     string       `json:"token,omitempty"`
	Amount    string       `json:"amount"`
	Call      *CallRequest `json:"call,omitempty"`
}

// CallRequest is a contract call executed on Base after a SOL transfer.
type CallRequest struct {
	Target string `json:"target"`
	Value  string `json:"value,omitempty"`
	Data   string `json:"data,omitempty"`
}
