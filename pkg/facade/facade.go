// Package facade defines the trading-session API the gateway forwards
// validated commands to, and the implementations the gateway ships with.
package facade

import (
	"context"

	json "github.com/goccy/go-json"
)

// TradeAPI is one trading session service. Every operation returns a JSON
// document; failures are reported inside that document (see JSONError), never
// as Go errors, so the gateway can pass results through verbatim.
type TradeAPI interface {
	Logon(ctx context.Context, ip string, port int, version string, yybID int, accountNo, tradeAccount, jyPassword, txPassword string) json.RawMessage
	Logoff(ctx context.Context, clientID int) json.RawMessage
	QueryData(ctx context.Context, clientID, category int) json.RawMessage
	SendOrder(ctx context.Context, clientID, category, priceType int, gddm, zqdm string, price float64, quantity int) json.RawMessage
	// GetQuote also serves CancelOrder; both take the same arguments.
	GetQuote(ctx context.Context, clientID int, exchangeID, hth string) json.RawMessage
	Repay(ctx context.Context, clientID int, amount string) json.RawMessage
	JSONError(message string) json.RawMessage
}

// ErrorBody is the failure document: {"success":false,"error":"..."}.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SuccessBody is the success document produced by the bundled implementations.
type SuccessBody struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorPayload encodes message as an ErrorBody.
func ErrorPayload(message string) json.RawMessage {
	data, err := json.Marshal(ErrorBody{Success: false, Error: message})
	if err != nil {
		// a two-field struct of string and bool always encodes
		panic(err)
	}
	return data
}

// SuccessPayload encodes data as a SuccessBody. A nil data omits the field.
func SuccessPayload(data interface{}) json.RawMessage {
	out, err := json.Marshal(SuccessBody{Success: true, Data: data})
	if err != nil {
		return ErrorPayload("encode result: " + err.Error())
	}
	return out
}
