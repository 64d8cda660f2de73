package report

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidCursor marks cursor tokens that cannot be decoded into an
// {amount, key} pair. Callers must reject such tokens rather than treat
// them as "no cursor": a mangled cursor is a client bug, not a first page.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is the keyset pagination position: the (amount, key) sort tuple of
// the last row emitted on the previous page. It is issued to clients as an
// opaque base64 token and round-trips exactly.
type Cursor struct {
	Amount decimal.Decimal
	Key    string
}

// Encode serializes the cursor as standard base64 over a compact JSON body.
// Amount is written as a bare number so tokens stay byte-compatible with
// previously issued ones.
func (c Cursor) Encode() string {
	payload := fmt.Sprintf(`{"amount":%s,"key":%s}`, c.Amount.String(), strconv.Quote(c.Key))
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

// Follows reports whether a row with the given sort tuple comes strictly
// after the cursor position in (amount DESC, key ASC) order. This is the
// keyset predicate: it admits every unseen row exactly once, including when
// many groups share the cursor amount.
func (c Cursor) Follows(amount decimal.Decimal, key string) bool {
	if amount.LessThan(c.Amount) {
		return true
	}
	return amount.Equal(c.Amount) && key > c.Key
}

// DecodeCursor parses a cursor token previously issued by Encode.
//
// Transport is lossy in practice, so the decoder repairs the common manglings
// before parsing: `+` turned into a space by naive URL decoding, the URL-safe
// base64 alphabet, and stripped padding. Raw JSON bodies are accepted as a
// convenience. Empty and "null" tokens mean "first page" and return (nil, nil).
func DecodeCursor(raw string) (*Cursor, error) {
	// "No cursor" tokens are decided before any repair: a blank or "null"
	// value means first page, and repairing it first would turn whitespace
	// into a bogus base64 body.
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, "null") {
		return nil, nil
	}

	s := strings.ReplaceAll(trimmed, " ", "+")
	s = strings.ReplaceAll(s, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")

	if strings.HasPrefix(s, "{") {
		return parseCursorJSON([]byte(s))
	}

	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	case 1:
		return nil, fmt.Errorf("%w: truncated base64", ErrInvalidCursor)
	}

	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return parseCursorJSON(decoded)
}

func parseCursorJSON(b []byte) (*Cursor, error) {
	var payload struct {
		Amount *decimal.Decimal `json:"amount"`
		Key    any              `json:"key"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if payload.Amount == nil || payload.Key == nil {
		return nil, fmt.Errorf("%w: missing amount or key", ErrInvalidCursor)
	}

	// Keys are strings on the wire, but older clients serialized numeric user
	// ids without quoting. Accept both.
	var key string
	switch k := payload.Key.(type) {
	case string:
		key = k
	case float64:
		key = strconv.FormatFloat(k, 'f', -1, 64)
	default:
		return nil, fmt.Errorf("%w: key must be a string", ErrInvalidCursor)
	}

	return &Cursor{Amount: *payload.Amount, Key: key}, nil
}
