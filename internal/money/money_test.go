package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 26.67, Round(26.666666))
	assert.Equal(t, 0.33, Round(20.0/60.0))
	assert.Equal(t, 2.5, Round(2.499999999))
	assert.Equal(t, 1.13, Round(1.125))
	assert.Equal(t, -1.13, Round(-1.125))
}

func TestMulAndDiv(t *testing.T) {
	assert.Equal(t, 26.4, Mul(0.33, 80))
	assert.Equal(t, 160.0, Mul(2, 80))
	assert.Equal(t, 33.33, Div(100, 3))
}

func TestSplitIsCentExact(t *testing.T) {
	shares := Split(80, 3)
	assert.Equal(t, []float64{26.67, 26.67, 26.66}, shares)
	assert.Equal(t, 80.0, Sum(shares...))

	shares = Split(100.01, 4)
	assert.Equal(t, []float64{25.01, 25, 25, 25}, shares)
	assert.Equal(t, 100.01, Sum(shares...))

	assert.Nil(t, Split(10, 0))
}

func TestCentsRoundTrip(t *testing.T) {
	assert.Equal(t, int64(8000), ToCents(80))
	assert.Equal(t, int64(1999), ToCents(19.99))
	assert.Equal(t, 19.99, FromCents(1999))
}
