package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type SymbolEntry struct {
	Token         string `json:"token"`
	TradingSymbol string `json:"trading_symbol"`
	Instrument    string `json:"instrument"`
}

type SymbolsResponse struct {
	Symbols []SymbolEntry `json:"symbols"`
}

// UnmarshalJSON accepts both the bare-array and the wrapped-object shape of
// the symbol listing.
func (r *SymbolsResponse) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &r.Symbols)
	}

	type alias SymbolsResponse
	if err := json.Unmarshal(data, (*alias)(r)); err != nil {
		return fmt.Errorf("decode symbol listing: %w", err)
	}
	return nil
}

// allowedInstruments is the instrument whitelist applied to symbol dropdowns.
var allowedInstruments = map[string]struct{}{
	"EQ":     {},
	"INDEX":  {},
	"FUTIDX": {},
	"FUTSTK": {},
	"OPTIDX": {},
	"OPTSTK": {},
	"":       {},
}

// Allowed reports whether the entry passes the instrument whitelist.
func (s SymbolEntry) Allowed() bool {
	_, ok := allowedInstruments[s.Instrument]
	return ok
}
