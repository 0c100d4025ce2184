package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	json "github.com/goccy/go-json"

	"github.com/morezero/tts-gateway/pkg/facade"
)

const logPrefix = "dispatcher:dispatch"

// Outcome classifies a dispatched request for logging and events.
type Outcome string

const (
	OutcomeOK             Outcome = "ok"
	OutcomeFuncMissing    Outcome = "func_missing"
	OutcomeUnknownCommand Outcome = "unknown_command"
	OutcomeErrorParams    Outcome = "error_params"
	OutcomeInvalidJSON    Outcome = "invalid_json"
	OutcomeBodyTooLarge   Outcome = "body_too_large"
	OutcomeStop           Outcome = "stop"
)

// StopCommand is the control command that shuts the gateway down.
const StopCommand = "stop_server"

// Result is the response body for one request plus how it was classified.
type Result struct {
	Func    string
	Body    json.RawMessage
	Outcome Outcome
}

type invokeFunc func(ctx context.Context, api facade.TradeAPI, args Args) json.RawMessage

// command pairs a schema with the facade operation it guards. A nil invoke
// marks a control command handled by the dispatcher itself.
type command struct {
	schema Schema
	invoke invokeFunc
}

var commands = map[string]command{
	"Logon": {logonSchema, func(ctx context.Context, api facade.TradeAPI, a Args) json.RawMessage {
		return api.Logon(ctx, a.String(0), a.Int(1), a.String(2), a.Int(3), a.String(4), a.String(5), a.String(6), a.String(7))
	}},
	"Logoff": {logoffSchema, func(ctx context.Context, api facade.TradeAPI, a Args) json.RawMessage {
		return api.Logoff(ctx, a.Int(0))
	}},
	"QueryData": {queryDataSchema, func(ctx context.Context, api facade.TradeAPI, a Args) json.RawMessage {
		return api.QueryData(ctx, a.Int(0), a.Int(1))
	}},
	"SendOrder": {sendOrderSchema, func(ctx context.Context, api facade.TradeAPI, a Args) json.RawMessage {
		return api.SendOrder(ctx, a.Int(0), a.Int(1), a.Int(2), a.String(3), a.String(4), a.Float(5), a.Int(6))
	}},
	"GetQuote":    {quoteSchema, getQuote},
	"CancelOrder": {quoteSchema, getQuote},
	"Repay": {repaySchema, func(ctx context.Context, api facade.TradeAPI, a Args) json.RawMessage {
		return api.Repay(ctx, a.Int(0), a.String(1))
	}},
	StopCommand: {stopSchema, nil},
}

func getQuote(ctx context.Context, api facade.TradeAPI, a Args) json.RawMessage {
	return api.GetQuote(ctx, a.Int(0), a.String(1), a.String(2))
}

// Lookup returns the schema registered for name.
func Lookup(name string) (Schema, bool) {
	c, ok := commands[name]
	return c.schema, ok
}

// Commands returns every recognized command name, sorted.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatcher validates commands and forwards them to a TradeAPI.
type Dispatcher struct {
	api    facade.TradeAPI
	onStop func()
}

// NewDispatcher creates a Dispatcher. onStop is called once per stop_server
// request and must not block; it may be nil.
func NewDispatcher(api facade.TradeAPI, onStop func()) *Dispatcher {
	return &Dispatcher{api: api, onStop: onStop}
}

// Handle decodes body as an envelope and dispatches it.
func (d *Dispatcher) Handle(ctx context.Context, body []byte) *Result {
	env, err := DecodeEnvelope(body)
	if err != nil {
		slog.Debug(fmt.Sprintf("%s - rejected body: %v", logPrefix, err))
		return d.errorResult("", OutcomeInvalidJSON, MsgInvalidJSON)
	}
	return d.HandleEnvelope(ctx, env)
}

// HandleEnvelope dispatches an already decoded envelope. A null or absent
// func is rejected before any command lookup.
func (d *Dispatcher) HandleEnvelope(ctx context.Context, env *Envelope) *Result {
	if env.Func == nil {
		return d.errorResult("", OutcomeFuncMissing, MsgFuncMissing)
	}
	name, _ := env.FuncName()
	return d.Dispatch(ctx, name, env.Params)
}

// Dispatch validates params against the schema for name and invokes the
// matching facade operation. The facade's result is returned verbatim.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, params Params) *Result {
	slog.Debug(fmt.Sprintf("%s - func=%s", logPrefix, name))

	cmd, ok := commands[name]
	if !ok {
		return d.errorResult(name, OutcomeUnknownCommand, MsgUnknownCommand)
	}
	args, ok := cmd.schema.Extract(params)
	if !ok {
		return d.errorResult(name, OutcomeErrorParams, MsgErrorParams)
	}

	if cmd.invoke == nil {
		slog.Info(fmt.Sprintf("%s - %s received", logPrefix, name))
		if d.onStop != nil {
			d.onStop()
		}
		return &Result{Func: name, Body: json.RawMessage(`{}`), Outcome: OutcomeStop}
	}

	return &Result{Func: name, Body: cmd.invoke(ctx, d.api, args), Outcome: OutcomeOK}
}

// Reject builds the error result for a request that never reached decoding.
func (d *Dispatcher) Reject(outcome Outcome, message string) *Result {
	return d.errorResult("", outcome, message)
}

func (d *Dispatcher) errorResult(name string, outcome Outcome, message string) *Result {
	return &Result{Func: name, Body: d.api.JSONError(message), Outcome: outcome}
}
