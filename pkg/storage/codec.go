package storage

import (
	"encoding/json"
	"fmt"

	"github.com/smolpuddle/puddle/pkg/order"
)

// Orders are stored in their wire form so a stored value is exactly what a
// peer or UI would send. Decoding goes back through the shape check.
func encodeOrder(o order.Order) ([]byte, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order: %w", err)
	}
	return data, nil
}

func decodeOrder(data []byte) (order.Order, error) {
	o, err := order.ValidateShape(data)
	if err != nil {
		return order.Order{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return o, nil
}
