package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type poolDocument struct {
	Pool *struct {
		CurrentTick json.RawMessage `json:"current_tick"`
		TickSpacing json.RawMessage `json:"tick_spacing"`
	} `json:"pool"`
}

// ParsePoolDocument extracts current_tick and tick_spacing from a
// {"pool": {...}} document. Both fields may be JSON numbers or decimal
// strings.
func ParsePoolDocument(data []byte) (int64, int64, error) {
	var doc poolDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if doc.Pool == nil {
		return 0, 0, fmt.Errorf("%w: missing pool", ErrMalformedResponse)
	}

	tick, err := parseIntField("current_tick", doc.Pool.CurrentTick)
	if err != nil {
		return 0, 0, err
	}
	spacing, err := parseIntField("tick_spacing", doc.Pool.TickSpacing)
	if err != nil {
		return 0, 0, err
	}
	return tick, spacing, nil
}

func parseIntField(name string, raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedResponse, name)
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, name, err)
		}
	}

	val, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not an integer: %q", ErrMalformedResponse, name, text)
	}
	return val, nil
}
