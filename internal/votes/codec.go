package votes

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/maaaruch/memory-tribunal/internal/domain"
)

var errMalformed = errors.New("malformed tally")

type slotValue struct {
	Yes json.RawMessage `json:"yes"`
	No  json.RawMessage `json:"no"`
}

// decodeTally parses the stored slot value. Both fields must be present
// non-negative integral numbers.
func decodeTally(raw string) (domain.Tally, error) {
	var v slotValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return domain.Tally{}, fmt.Errorf("%w: %v", errMalformed, err)
	}

	yes, err := decodeCount(v.Yes)
	if err != nil {
		return domain.Tally{}, fmt.Errorf("yes: %w", err)
	}
	no, err := decodeCount(v.No)
	if err != nil {
		return domain.Tally{}, fmt.Errorf("no: %w", err)
	}
	return domain.Tally{Yes: yes, No: no}, nil
}

func decodeCount(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("%w: missing", errMalformed)
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("%w: %v", errMalformed, err)
	}
	n, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: not a number: %s", errMalformed, raw)
	}
	if n < 0 || n != math.Trunc(n) || n > domain.MaxCount {
		return 0, fmt.Errorf("%w: not a count: %s", errMalformed, raw)
	}
	return int64(n), nil
}

func encodeTally(t domain.Tally) (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
