package orders

import (
	"fmt"
	"strings"

	"github.com/speps/go-hashids/v2"
)

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NumberGenerator turns sequential order ids into short public order
// numbers that do not reveal order volume.
type NumberGenerator struct {
	h *hashids.HashID
}

func NewNumberGenerator(salt string) (*NumberGenerator, error) {
	data := hashids.NewData()
	data.Salt = salt
	data.MinLength = 6
	data.Alphabet = orderNumberAlphabet

	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("order number generator: %w", err)
	}
	return &NumberGenerator{h: h}, nil
}

func (g *NumberGenerator) Generate(orderID int64) (string, error) {
	s, err := g.h.EncodeInt64([]int64{orderID})
	if err != nil {
		return "", fmt.Errorf("encode order number: %w", err)
	}
	return "BLM-" + strings.ToUpper(s), nil
}
