package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"ibsnap/internal/application/port"
	"ibsnap/internal/domain/model"
)

const wsReadTimeout = 60 * time.Second

// subscription collects pushed values for one conid. The gateway pushes
// only the fields that changed, so every push is merged into the ticker
// until the subscription is cancelled.
type subscription struct {
	inst model.Instrument

	mu sync.Mutex
	tk model.Ticker
}

func (s *subscription) Instrument() model.Instrument { return s.inst }

func (s *subscription) Snapshot() model.Ticker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tk
}

func (s *subscription) apply(fields map[string]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := func(dst *float64, code string) {
		if v, ok := fields[code]; ok && v != 0 {
			*dst = v
		}
	}
	set(&s.tk.Last, fieldLast)
	set(&s.tk.Bid, fieldBid)
	set(&s.tk.Ask, fieldAsk)
	set(&s.tk.Close, fieldPriorClose)
	set(&s.tk.MarketPrice, fieldMark)
	set(&s.tk.Volume, fieldVolume)
}

// RequestQuote subscribes to streaming fields for inst. The gateway has no
// one-shot snapshot over the websocket; a snapshot request is a stream the
// caller cancels after its settle delay.
func (s *Session) RequestQuote(ctx context.Context, inst model.Instrument, snapshot bool) (port.QuoteSubscription, error) {
	if err := s.requireConnected(); err != nil {
		return nil, err
	}
	if inst.ConID == 0 {
		return nil, fmt.Errorf("quote %s: contract not qualified", inst.Symbol)
	}

	sub := &subscription{inst: inst}
	s.mu.Lock()
	s.subs[inst.ConID] = append(s.subs[inst.ConID], sub)
	s.mu.Unlock()

	if err := s.writeText(smdRequest(inst.ConID)); err != nil {
		s.remove(sub)
		return nil, err
	}
	return sub, nil
}

// CancelQuote drops the subscription and unsubscribes the conid once no
// other subscription uses it.
func (s *Session) CancelQuote(ctx context.Context, qs port.QuoteSubscription) error {
	sub, ok := qs.(*subscription)
	if !ok {
		return fmt.Errorf("foreign subscription %T", qs)
	}
	if last := s.remove(sub); !last {
		return nil
	}
	if !s.IsConnected() {
		return nil
	}
	return s.writeText(umdRequest(sub.inst.ConID))
}

func (s *Session) remove(sub *subscription) (last bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.subs[sub.inst.ConID]
	for i, x := range list {
		if x == sub {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.subs, sub.inst.ConID)
		return true
	}
	s.subs[sub.inst.ConID] = list
	return false
}

// SetMarketDataTier is a no-op apart from logging: the gateway has no tier
// switch and falls back to delayed data by itself when the account has no
// live permissions.
func (s *Session) SetMarketDataTier(ctx context.Context, tier model.MarketDataTier) error {
	log.Debug().Str("tier", tier.String()).Msg("market data tier requested")
	return nil
}

func (s *Session) readLoop(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			current := s.conn == conn
			s.mu.Unlock()
			if current {
				s.markOffline("websocket closed: " + err.Error())
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		s.handleMessage(b)
	}
}

func (s *Session) handleMessage(b []byte) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return
	}
	var topic string
	_ = json.Unmarshal(raw["topic"], &topic)
	if !strings.HasPrefix(topic, "smd+") {
		return
	}

	conid, err := strconv.ParseInt(strings.TrimPrefix(topic, "smd+"), 10, 64)
	if err != nil {
		var n flexInt
		if json.Unmarshal(raw["conid"], &n) != nil {
			return
		}
		conid = int64(n)
	}

	fields := make(map[string]float64, len(quoteFields))
	for _, code := range quoteFields {
		v, ok := raw[code]
		if !ok {
			continue
		}
		var f flexFloat
		if json.Unmarshal(v, &f) == nil {
			fields[code] = float64(f)
		}
	}
	if len(fields) == 0 {
		return
	}

	s.mu.Lock()
	subs := append([]*subscription(nil), s.subs[conid]...)
	s.mu.Unlock()
	for _, sub := range subs {
		sub.apply(fields)
	}
}
