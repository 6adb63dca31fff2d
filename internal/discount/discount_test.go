package discount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		text   string
		amount float64
		reason string
	}{
		{"Give them a $20 discount for delay.", 20, "Discount for delay"},
		{"$15 courtesy credit because the part was late", 15, "Discount for the part was late"},
		{"Take $10 off", 10, ""},
		{"Apply a discount of $25.50 for the scratched door", 25.50, "Discount for the scratched door"},
		{"credit: 12 for parking", 12, "Discount for parking"},
		{"knock 30 dollars off", 30, ""},
		{"Please take 40 off the total", 40, ""},
		{"$1,200 discount", 1200, ""},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := Detect(tc.text)
			require.True(t, ok)
			assert.Equal(t, tc.amount, got.Amount)
			assert.Equal(t, tc.reason, got.Reason)
		})
	}
}

func TestDetect_NoAmount(t *testing.T) {
	for _, text := range []string{
		"apply a discount for delay",
		"10% discount for returning customers",
		"discount 15% for seniors",
		"20 percent off",
		"no mention at all",
	} {
		_, ok := Detect(text)
		assert.False(t, ok, text)
	}
}

func TestMentioned(t *testing.T) {
	m, ok := Mentioned("Fixed the sink. Apply a discount for delay. Thanks")
	require.True(t, ok)
	assert.Equal(t, "Apply a discount for delay", m.Snippet)
	assert.Equal(t, "Discount for delay", m.Reason)

	_, ok = Mentioned("$20 discount for delay")
	assert.False(t, ok, "a concrete amount is not an ambiguous mention")

	_, ok = Mentioned("Fixed the sink")
	assert.False(t, ok)
}
