package gateway

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Market data field codes requested on every subscription.
const (
	fieldLast       = "31"
	fieldBid        = "84"
	fieldAsk        = "86"
	fieldPriorClose = "7741"
	fieldMark       = "7635"
	fieldVolume     = "7762"
)

var quoteFields = []string{fieldLast, fieldBid, fieldAsk, fieldPriorClose, fieldMark, fieldVolume}

// flexFloat accepts a JSON number or a string. The gateway sends prices as
// strings, sometimes prefixed with "C" (prior close) or "H" (halted).
// Anything unparsable decodes to 0, which the core treats as absent.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexFloat(parseFieldValue(s))
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(finiteOrZero(v))
	return nil
}

// flexInt accepts a JSON number or a numeric string (conids come both ways).
type flexInt int64

func (n *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*n = flexInt(v)
	return nil
}

func parseFieldValue(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "CH")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return finiteOrZero(v)
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

type authStatus struct {
	Authenticated bool   `json:"authenticated"`
	Connected     bool   `json:"connected"`
	Competing     bool   `json:"competing"`
	Message       string `json:"message"`
}

type tickleResponse struct {
	Session string `json:"session"`
	Iserver struct {
		AuthStatus authStatus `json:"authStatus"`
	} `json:"iserver"`
}

type accountsResponse struct {
	Accounts        []string `json:"accounts"`
	SelectedAccount string   `json:"selectedAccount"`
}

type portfolioAccount struct {
	ID       string `json:"id"`
	Currency string `json:"currency"`
}

type positionItem struct {
	AcctID          string    `json:"acctId"`
	ConID           flexInt   `json:"conid"`
	ContractDesc    string    `json:"contractDesc"`
	Ticker          string    `json:"ticker"`
	AssetClass      string    `json:"assetClass"`
	Currency        string    `json:"currency"`
	ListingExchange string    `json:"listingExchange"`
	Expiry          string    `json:"expiry"`
	Strike          flexFloat `json:"strike"`
	PutOrCall       string    `json:"putOrCall"`
	Position        flexFloat `json:"position"`
	AvgCost         flexFloat `json:"avgCost"`
	MktPrice        flexFloat `json:"mktPrice"`
	MktValue        flexFloat `json:"mktValue"`
	UnrealizedPnl   flexFloat `json:"unrealizedPnl"`
	RealizedPnl     flexFloat `json:"realizedPnl"`
}

type summaryValue struct {
	Amount   flexFloat `json:"amount"`
	Currency string    `json:"currency"`
	IsNull   bool      `json:"isNull"`
	Value    *string   `json:"value"`
}

type secdefSection struct {
	SecType  string `json:"secType"`
	Exchange string `json:"exchange"`
}

type secdefResult struct {
	ConID       flexInt         `json:"conid"`
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"companyName"`
	Description string          `json:"description"`
	Sections    []secdefSection `json:"sections"`
}

type historyBar struct {
	Open   flexFloat `json:"o"`
	High   flexFloat `json:"h"`
	Low    flexFloat `json:"l"`
	Close  flexFloat `json:"c"`
	Volume flexFloat `json:"v"`
	Time   int64     `json:"t"`
}

type historyResponse struct {
	Symbol string       `json:"symbol"`
	Data   []historyBar `json:"data"`
}

// smdRequest renders a market data subscribe command.
func smdRequest(conid int64) string {
	b, _ := json.Marshal(struct {
		Fields []string `json:"fields"`
	}{quoteFields})
	return "smd+" + strconv.FormatInt(conid, 10) + "+" + string(b)
}

func umdRequest(conid int64) string {
	return "umd+" + strconv.FormatInt(conid, 10) + "+{}"
}
