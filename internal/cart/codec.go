package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hellOoSaksit/PixelShop/internal/domain"
)

// payloadVersion is bumped whenever the persisted line layout changes.
// Payloads with any other version are reset to an empty cart on load.
const payloadVersion = 1

var ErrUnsupportedVersion = errors.New("unsupported cart payload version")

type payload struct {
	Version int               `json:"version"`
	Lines   []domain.CartLine `json:"lines"`
	SavedAt time.Time         `json:"savedAt"`
}

func Encode(lines []domain.CartLine, savedAt time.Time) ([]byte, error) {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	data, err := json.Marshal(payload{
		Version: payloadVersion,
		Lines:   lines,
		SavedAt: savedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal cart failed: %w", err)
	}
	return data, nil
}

// Decode parses a persisted cart. Lines that break the cart invariants
// (blank id, quantity below 1, negative price) are dropped and repeated ids are merged.
func Decode(data []byte) ([]domain.CartLine, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if p.Version != payloadVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, p.Version)
	}

	lines := make([]domain.CartLine, 0, len(p.Lines))
	index := make(map[string]int, len(p.Lines))
	for _, l := range p.Lines {
		if l.ProductID == "" || l.Quantity < domain.MinQuantity || l.UnitPrice.IsNegative() {
			continue
		}
		if i, ok := index[l.ProductID]; ok {
			lines[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(lines)
		lines = append(lines, l)
	}
	return lines, nil
}
