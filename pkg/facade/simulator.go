package facade

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

const simLogPrefix = "facade:simulator"

// Order categories accepted by SendOrder.
const (
	OrderBuy  = 0
	OrderSell = 1
)

// Order statuses.
const (
	StatusSubmitted = "submitted"
)

// Compile-time interface check.
var _ TradeAPI = (*Simulator)(nil)

// Order is a simulated order. HTH is its contract number.
type Order struct {
	HTH       string          `json:"hth"`
	Category  int             `json:"category"`
	PriceType int             `json:"price_type"`
	GDDM      string          `json:"gddm"`
	ZQDM      string          `json:"zqdm"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// Quote is the GetQuote payload for a fixture-backed security.
type Quote struct {
	ZQDM       string          `json:"zqdm"`
	ExchangeID string          `json:"exchange_id"`
	Name       string          `json:"name"`
	Last       decimal.Decimal `json:"last"`
	Bid        decimal.Decimal `json:"bid"`
	Ask        decimal.Decimal `json:"ask"`
}

type simSession struct {
	clientID     int
	accountNo    string
	tradeAccount string
	yybID        int
	orders       []*Order
	repaid       decimal.Decimal
}

// Simulator is an in-memory trading session service. Client ids are
// allocated at Logon starting from 1; orders live until Logoff.
type Simulator struct {
	mu         sync.Mutex
	fixtures   *Fixtures
	minVersion *semver.Constraints
	sessions   map[int]*simSession
	nextClient int
	nextOrder  int
	now        func() time.Time
}

// SimulatorParams configures a Simulator.
type SimulatorParams struct {
	// Fixtures defaults to DefaultFixtures.
	Fixtures *Fixtures
	// MinClientVersion is a semver constraint applied to the Logon version.
	// Empty disables the check.
	MinClientVersion string
}

// NewSimulator creates a Simulator.
func NewSimulator(params SimulatorParams) (*Simulator, error) {
	s := &Simulator{
		fixtures: params.Fixtures,
		sessions: make(map[int]*simSession),
		now:      time.Now,
	}
	if s.fixtures == nil {
		s.fixtures = DefaultFixtures()
	}
	if err := s.fixtures.validate(); err != nil {
		return nil, err
	}
	if params.MinClientVersion != "" {
		c, err := semver.NewConstraint(params.MinClientVersion)
		if err != nil {
			return nil, fmt.Errorf("%s - invalid client version constraint %q: %w", simLogPrefix, params.MinClientVersion, err)
		}
		s.minVersion = c
	}
	return s, nil
}

// Logon opens a session and returns its client_id.
func (s *Simulator) Logon(_ context.Context, ip string, port int, version string, yybID int, accountNo, tradeAccount, jyPassword, txPassword string) json.RawMessage {
	if ip == "" || port <= 0 || port > 65535 {
		return s.JSONError("invalid server address")
	}
	if accountNo == "" || jyPassword == "" {
		return s.JSONError("login failed: missing account or password")
	}
	if s.minVersion != nil {
		v, err := semver.NewVersion(version)
		if err != nil || !s.minVersion.Check(v) {
			return s.JSONError(fmt.Sprintf("unsupported client version %q", version))
		}
	}

	s.mu.Lock()
	s.nextClient++
	id := s.nextClient
	s.sessions[id] = &simSession{
		clientID:     id,
		accountNo:    accountNo,
		tradeAccount: tradeAccount,
		yybID:        yybID,
	}
	s.mu.Unlock()

	slog.Info(fmt.Sprintf("%s - logon account=%s client_id=%d", simLogPrefix, accountNo, id))
	return SuccessPayload(map[string]int{"client_id": id})
}

// Logoff closes a session.
func (s *Simulator) Logoff(_ context.Context, clientID int) json.RawMessage {
	s.mu.Lock()
	_, ok := s.sessions[clientID]
	delete(s.sessions, clientID)
	s.mu.Unlock()

	if !ok {
		return s.JSONError(errInvalidClient)
	}
	slog.Info(fmt.Sprintf("%s - logoff client_id=%d", simLogPrefix, clientID))
	return SuccessPayload(nil)
}

// QueryData returns rows for a category. Orders and cancellable orders come
// from the session; every other known category comes from the fixtures.
func (s *Simulator) QueryData(_ context.Context, clientID, category int) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[clientID]
	if !ok {
		return s.JSONError(errInvalidClient)
	}

	switch category {
	case CategoryOrders:
		return SuccessPayload(copyOrders(sess.orders, func(*Order) bool { return true }))
	case CategoryCancellable:
		return SuccessPayload(copyOrders(sess.orders, func(o *Order) bool { return o.Status == StatusSubmitted }))
	case CategoryFunds, CategoryHoldings, CategoryFills, CategoryShareholders:
		rows := s.fixtures.Categories[category]
		if rows == nil {
			rows = []map[string]string{}
		}
		return SuccessPayload(rows)
	default:
		return s.JSONError(fmt.Sprintf("unknown category %d", category))
	}
}

// SendOrder records a submitted order and returns its contract number.
func (s *Simulator) SendOrder(_ context.Context, clientID, category, priceType int, gddm, zqdm string, price float64, quantity int) json.RawMessage {
	if category != OrderBuy && category != OrderSell {
		return s.JSONError(fmt.Sprintf("unsupported order category %d", category))
	}
	if priceType < 0 {
		return s.JSONError(fmt.Sprintf("unsupported price type %d", priceType))
	}
	if quantity <= 0 {
		return s.JSONError("quantity must be positive")
	}
	p := decimal.NewFromFloat(price).Round(3)
	if priceType == 0 && !p.IsPositive() {
		return s.JSONError("limit price must be positive")
	}
	if gddm == "" || zqdm == "" {
		return s.JSONError("missing shareholder or security code")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[clientID]
	if !ok {
		return s.JSONError(errInvalidClient)
	}
	s.nextOrder++
	o := &Order{
		HTH:       strconv.Itoa(s.nextOrder),
		Category:  category,
		PriceType: priceType,
		GDDM:      gddm,
		ZQDM:      zqdm,
		Price:     p,
		Quantity:  quantity,
		Status:    StatusSubmitted,
		CreatedAt: s.now().UTC(),
	}
	sess.orders = append(sess.orders, o)

	slog.Debug(fmt.Sprintf("%s - order client_id=%d hth=%s zqdm=%s qty=%d price=%s", simLogPrefix, clientID, o.HTH, zqdm, quantity, p))
	return SuccessPayload(map[string]string{"hth": o.HTH})
}

// GetQuote returns the fixture quote whose security code is hth, or else the
// session order whose contract number is hth. It never mutates state, so it
// serves CancelOrder as well.
func (s *Simulator) GetQuote(_ context.Context, clientID int, exchangeID, hth string) json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[clientID]
	if !ok {
		return s.JSONError(errInvalidClient)
	}

	if q, ok := s.fixtures.Quotes[hth]; ok && (exchangeID == "" || q.ExchangeID == exchangeID) {
		return SuccessPayload(Quote{
			ZQDM:       hth,
			ExchangeID: q.ExchangeID,
			Name:       q.Name,
			Last:       decimal.RequireFromString(q.Last),
			Bid:        decimal.RequireFromString(q.Bid),
			Ask:        decimal.RequireFromString(q.Ask),
		})
	}
	for _, o := range sess.orders {
		if o.HTH == hth {
			cp := *o
			return SuccessPayload(&cp)
		}
	}
	return s.JSONError(fmt.Sprintf("no quote or order for %q", hth))
}

// Repay records a repayment. amount is a decimal string.
func (s *Simulator) Repay(_ context.Context, clientID int, amount string) json.RawMessage {
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return s.JSONError(fmt.Sprintf("invalid amount %q", amount))
	}
	if !amt.IsPositive() {
		return s.JSONError("amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[clientID]
	if !ok {
		return s.JSONError(errInvalidClient)
	}
	sess.repaid = sess.repaid.Add(amt)
	return SuccessPayload(map[string]string{
		"amount":       amt.StringFixed(2),
		"total_repaid": sess.repaid.StringFixed(2),
	})
}

// JSONError builds an Error Object.
func (s *Simulator) JSONError(message string) json.RawMessage {
	return ErrorPayload(message)
}

// Sessions returns the open client ids, sorted.
func (s *Simulator) Sessions() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

const errInvalidClient = "invalid client_id"

func copyOrders(orders []*Order, keep func(*Order) bool) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if keep(o) {
			out = append(out, *o)
		}
	}
	return out
}
