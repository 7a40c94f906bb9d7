package pairhttp

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"pairlab/internal/market"
)

// decodeTicks accepts either a bare JSON array of ticks or an object
// with a "ticks" array. Prices and sizes may arrive as numbers or
// quoted strings; timestamps stay raw text for the resampler to parse.
func decodeTicks(body []byte, out *[]market.Tick) error {
	if !gjson.ValidBytes(body) {
		return errors.New("invalid json body")
	}
	doc := gjson.ParseBytes(body)
	rows := doc
	if !doc.IsArray() {
		rows = doc.Get("ticks")
		if !rows.IsArray() {
			return errors.New("expected a tick array")
		}
	}
	rows.ForEach(func(_, row gjson.Result) bool {
		*out = append(*out, market.Tick{
			Symbol:    strings.ToLower(strings.TrimSpace(row.Get("symbol").String())),
			Timestamp: strings.TrimSpace(row.Get("timestamp").String()),
			Price:     row.Get("price").Float(),
			Size:      row.Get("size").Float(),
		})
		return true
	})
	if len(*out) == 0 {
		return errors.New("no ticks in body")
	}
	return nil
}
