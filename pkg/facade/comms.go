package facade

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/tts-gateway/pkg/commsutil"
)

const commsLogPrefix = "facade:comms"

// Operation names used as the last subject token.
const (
	OpLogon     = "logon"
	OpLogoff    = "logoff"
	OpQueryData = "query_data"
	OpSendOrder = "send_order"
	OpGetQuote  = "get_quote"
	OpRepay     = "repay"
)

// Compile-time interface check.
var _ TradeAPI = (*CommsFacade)(nil)

// LogonParams is the request body for OpLogon.
type LogonParams struct {
	IP           string `json:"ip"`
	Port         int    `json:"port"`
	Version      string `json:"version"`
	YybID        int    `json:"yyb_id"`
	AccountNo    string `json:"account_no"`
	TradeAccount string `json:"trade_account"`
	JyPassword   string `json:"jy_password"`
	TxPassword   string `json:"tx_password"`
}

// ClientParams is the request body for OpLogoff.
type ClientParams struct {
	ClientID int `json:"client_id"`
}

// QueryDataParams is the request body for OpQueryData.
type QueryDataParams struct {
	ClientID int `json:"client_id"`
	Category int `json:"category"`
}

// SendOrderParams is the request body for OpSendOrder.
type SendOrderParams struct {
	ClientID  int     `json:"client_id"`
	Category  int     `json:"category"`
	PriceType int     `json:"price_type"`
	GDDM      string  `json:"gddm"`
	ZQDM      string  `json:"zqdm"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// QuoteParams is the request body for OpGetQuote.
type QuoteParams struct {
	ClientID   int    `json:"client_id"`
	ExchangeID string `json:"exchange_id"`
	HTH        string `json:"hth"`
}

// RepayParams is the request body for OpRepay.
type RepayParams struct {
	ClientID int    `json:"client_id"`
	Amount   string `json:"amount"`
}

// CommsFacade forwards every operation as a NATS request to
// "<prefix>.<op>" and returns the reply verbatim.
type CommsFacade struct {
	nc      *comms.Conn
	prefix  string
	timeout time.Duration
}

// NewCommsFacadeParams configures a CommsFacade.
type NewCommsFacadeParams struct {
	Conn          *comms.Conn
	SubjectPrefix string
	Timeout       time.Duration
}

// NewCommsFacade creates a CommsFacade. An empty prefix uses
// commsutil.SubjectTradePrefix; a zero timeout uses 25s.
func NewCommsFacade(params NewCommsFacadeParams) *CommsFacade {
	prefix := params.SubjectPrefix
	if prefix == "" {
		prefix = commsutil.SubjectTradePrefix
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &CommsFacade{nc: params.Conn, prefix: prefix, timeout: timeout}
}

func (f *CommsFacade) Logon(ctx context.Context, ip string, port int, version string, yybID int, accountNo, tradeAccount, jyPassword, txPassword string) json.RawMessage {
	return f.request(ctx, OpLogon, LogonParams{
		IP:           ip,
		Port:         port,
		Version:      version,
		YybID:        yybID,
		AccountNo:    accountNo,
		TradeAccount: tradeAccount,
		JyPassword:   jyPassword,
		TxPassword:   txPassword,
	})
}

func (f *CommsFacade) Logoff(ctx context.Context, clientID int) json.RawMessage {
	return f.request(ctx, OpLogoff, ClientParams{ClientID: clientID})
}

func (f *CommsFacade) QueryData(ctx context.Context, clientID, category int) json.RawMessage {
	return f.request(ctx, OpQueryData, QueryDataParams{ClientID: clientID, Category: category})
}

func (f *CommsFacade) SendOrder(ctx context.Context, clientID, category, priceType int, gddm, zqdm string, price float64, quantity int) json.RawMessage {
	return f.request(ctx, OpSendOrder, SendOrderParams{
		ClientID:  clientID,
		Category:  category,
		PriceType: priceType,
		GDDM:      gddm,
		ZQDM:      zqdm,
		Price:     price,
		Quantity:  quantity,
	})
}

func (f *CommsFacade) GetQuote(ctx context.Context, clientID int, exchangeID, hth string) json.RawMessage {
	return f.request(ctx, OpGetQuote, QuoteParams{ClientID: clientID, ExchangeID: exchangeID, HTH: hth})
}

func (f *CommsFacade) Repay(ctx context.Context, clientID int, amount string) json.RawMessage {
	return f.request(ctx, OpRepay, RepayParams{ClientID: clientID, Amount: amount})
}

func (f *CommsFacade) JSONError(message string) json.RawMessage {
	return ErrorPayload(message)
}

func (f *CommsFacade) request(ctx context.Context, op string, params interface{}) json.RawMessage {
	subject := commsutil.BuildTradeSubject(f.prefix, op)

	data, err := commsutil.EncodePayload(params)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - encode %s: %v", commsLogPrefix, op, err))
		return f.JSONError("encode request failed")
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	msg, err := f.nc.RequestWithContext(reqCtx, subject, data)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - request %s failed: %v", commsLogPrefix, subject, err))
		return f.JSONError(fmt.Sprintf("trade service unavailable: %v", err))
	}
	if !commsutil.ValidPayload(msg.Data) {
		slog.Warn(fmt.Sprintf("%s - invalid reply on %s (%d bytes)", commsLogPrefix, subject, len(msg.Data)))
		return f.JSONError("invalid reply from trade service")
	}
	return json.RawMessage(msg.Data)
}
