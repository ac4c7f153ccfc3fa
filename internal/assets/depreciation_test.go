package assets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFractionalYearsUsesMonthGranularity(t *testing.T) {
	purchase := date(2024, time.March, 15)

	require.InDelta(t, 2.0, FractionalYears(purchase, date(2026, time.March, 15)), 1e-9)
	require.InDelta(t, 2.25, FractionalYears(purchase, date(2026, time.June, 1)), 1e-9)
	// Day of month is ignored: the 1st and the 28th of the same month agree.
	require.InDelta(t,
		FractionalYears(purchase, date(2026, time.June, 1)),
		FractionalYears(purchase, date(2026, time.June, 28)), 1e-9)
	// asOf before purchase clamps to zero.
	require.Zero(t, FractionalYears(purchase, date(2023, time.December, 1)))
}

func TestStraightLineTwoYears(t *testing.T) {
	accumulated, err := AccumulatedAt(MethodStraightLine, 120000, 0, 0, 5, 2)
	require.NoError(t, err)
	require.InDelta(t, 48000, accumulated, 0.001)
}

func TestStraightLineCapsAtDepreciableBase(t *testing.T) {
	// Ten elapsed years on a five year life: book value stops at residual.
	accumulated, err := AccumulatedAt(MethodStraightLine, 120000, 20000, 0, 5, 10)
	require.NoError(t, err)
	require.InDelta(t, 100000, accumulated, 0.001)
}

func TestDecliningBalanceCompoundsWholeYearsOnly(t *testing.T) {
	// 20% on 100,000: year one leaves 80,000, year two leaves 64,000. The
	// half-year remainder is not compounded.
	accumulated, err := AccumulatedAt(MethodDecliningBalance, 100000, 0, 20, 0, 2.5)
	require.NoError(t, err)
	require.InDelta(t, 36000, accumulated, 0.001)

	flooredSame, err := AccumulatedAt(MethodDecliningBalance, 100000, 0, 20, 0, 2.0)
	require.NoError(t, err)
	require.InDelta(t, accumulated, flooredSame, 0.001)
}

func TestDoubleDecliningDerivesRateFromUsefulLife(t *testing.T) {
	// rate = 2/5 = 40%: year one leaves 60,000, year two 36,000, year three 21,600.
	accumulated, err := AccumulatedAt(MethodDoubleDeclining, 100000, 0, 0, 5, 3)
	require.NoError(t, err)
	require.InDelta(t, 78400, accumulated, 0.001)
}

func TestNoneMethodAccumulatesNothing(t *testing.T) {
	accumulated, err := AccumulatedAt(MethodNone, 100000, 0, 20, 5, 3)
	require.NoError(t, err)
	require.Zero(t, accumulated)
}

func TestUnitsOfProductionUnsupported(t *testing.T) {
	_, err := AccumulatedAt(MethodUnitsOfProduction, 100000, 0, 0, 5, 1)
	require.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestAccumulatedAtIsIdempotent(t *testing.T) {
	first, err := AccumulatedAt(MethodDecliningBalance, 250000, 0, 15, 0, 4.75)
	require.NoError(t, err)
	second, err := AccumulatedAt(MethodDecliningBalance, 250000, 0, 15, 0, 4.75)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
