// Package dispatcher maps untyped JSON command envelopes onto validated
// calls against a facade.TradeAPI.
package dispatcher

import (
	"bytes"
	"errors"

	json "github.com/goccy/go-json"
)

// User-visible error messages. These strings are part of the wire contract.
const (
	MsgFuncMissing    = "parameter func does not exists"
	MsgUnknownCommand = "unknown command"
	MsgErrorParams    = "error params"
	MsgInvalidJSON    = "invalid json"
	MsgBodyTooLarge   = "request body too large"
)

// ErrInvalidJSON is returned by DecodeEnvelope when the body is not a single
// well-formed JSON document.
var ErrInvalidJSON = errors.New("dispatcher:envelope - invalid json")

// Params is the open parameter mapping of an envelope.
type Params map[string]interface{}

// Envelope is a decoded command request: {"func": ..., "params": {...}}.
// Func keeps its raw decoded value so a null func, a missing func and a
// non-string func stay distinguishable.
type Envelope struct {
	Func   interface{}
	Params Params
}

// FuncName returns Func when it is a string.
func (e *Envelope) FuncName() (string, bool) {
	name, ok := e.Func.(string)
	return name, ok
}

// DecodeEnvelope parses body. Numbers decode as json.Number so integer
// fields keep full precision. A valid document that is not an object yields
// an envelope with a nil Func; a params value that is absent or not an object
// yields empty Params.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	if !json.Valid(body) {
		return nil, ErrInvalidJSON
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, ErrInvalidJSON
	}

	env := &Envelope{Params: Params{}}
	obj, ok := doc.(map[string]interface{})
	if !ok {
		return env, nil
	}
	env.Func = obj["func"]
	if p, ok := obj["params"].(map[string]interface{}); ok {
		env.Params = Params(p)
	}
	return env, nil
}
