package eeprom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeStatus(t *testing.T) {
	tests := []struct {
		raw  []byte
		want Status
	}{
		{[]byte{0xFF, 0xFF}, StatusEmpty},
		{[]byte{0xEE, 0xEE}, StatusReceiving},
		{[]byte{0x00, 0x00}, StatusActive},
		{[]byte{0xEE, 0xFF}, StatusReceiving},
		{[]byte{0x00, 0xEE}, StatusReceiving},
		{[]byte{0x00, 0xFF}, StatusReceiving},
		{[]byte{0x12, 0x34}, StatusReceiving},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, decodeStatus(tt.raw), "% x", tt.raw)
	}
}

func TestStatus_TransitionsOnlyClearBits(t *testing.T) {
	order := []Status{StatusEmpty, StatusReceiving, StatusActive}
	for i := 1; i < len(order); i++ {
		from, to := order[i-1].encode(), order[i].encode()
		for j := range from {
			assert.Zero(t, to[j]&^from[j], "%s -> %s sets bits", order[i-1], order[i])
		}
		assert.Equal(t, order[i], decodeStatus(to))
	}
}

func TestStatus_MarshalText(t *testing.T) {
	b, err := StatusReceiving.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "receiving", string(b))
	assert.Equal(t, "invalid", Status(9).String())
}
