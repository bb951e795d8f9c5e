// Package timebase provides exact time arithmetic for multi-rate recordings.
//
// A Time is either an exact rational value (an integer sample count over an
// integer sampling rate) or a plain floating-point seconds value for sources
// with no discrete clock. Offsets and durations everywhere else in arfstream
// are computed with these operations rather than accumulated floats, so chunk
// boundaries stay exact over arbitrarily long files.
package timebase

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/c360/arfstream/errors"
)

// Time is an instant or duration on a recording's timeline. The zero value is
// zero seconds with no rate.
type Time struct {
	num int64 // sample count when rate-bearing
	den int64 // sampling rate in samples/sec; 0 means float seconds
	sec float64
}

// FromSamples returns an exact rational Time of count samples at rate
// samples/sec. rate must be positive.
func FromSamples(count, rate int64) Time {
	if rate <= 0 {
		panic(fmt.Sprintf("timebase: non-positive rate %d", rate))
	}
	return Time{num: count, den: rate}
}

// Seconds returns a rate-less Time of s seconds.
func Seconds(s float64) Time {
	return Time{sec: s}
}

// Round returns the rational Time nearest to s seconds at rate samples/sec,
// rounding half away from zero. rate must be positive.
func Round(s float64, rate int64) Time {
	if rate <= 0 {
		panic(fmt.Sprintf("timebase: non-positive rate %d", rate))
	}
	return Time{num: int64(math.Round(s * float64(rate))), den: rate}
}

// IsRational reports whether t carries a discrete rate.
func (t Time) IsRational() bool { return t.den > 0 }

// Rate returns the sampling rate of a rational Time, or 0 when rate-less.
func (t Time) Rate() int64 { return t.den }

// Seconds returns t as floating-point seconds.
func (t Time) Seconds() float64 {
	if t.den > 0 {
		return float64(t.num) / float64(t.den)
	}
	return t.sec
}

// Add returns t + u. Two rational operands must share a rate or have rates
// related by an integer multiple (the sum is expressed at the finer rate);
// otherwise Add fails with ErrTimebaseMismatch. When either operand is
// rate-less the result degrades to float seconds, which is the documented
// behavior for files without a discrete clock.
func (t Time) Add(u Time) (Time, error) {
	switch {
	case t.den == 0 || u.den == 0:
		return Seconds(t.Seconds() + u.Seconds()), nil
	case t.den == u.den:
		return Time{num: t.num + u.num, den: t.den}, nil
	case t.den > u.den && t.den%u.den == 0:
		k := t.den / u.den
		return Time{num: t.num + u.num*k, den: t.den}, nil
	case u.den > t.den && u.den%t.den == 0:
		k := u.den / t.den
		return Time{num: t.num*k + u.num, den: u.den}, nil
	default:
		return Time{}, fmt.Errorf("%w: rates %d and %d", errors.ErrTimebaseMismatch, t.den, u.den)
	}
}

// Sub returns t - u under the same rate rules as Add.
func (t Time) Sub(u Time) (Time, error) {
	if u.den == 0 {
		return t.Add(Seconds(-u.sec))
	}
	return t.Add(Time{num: -u.num, den: u.den})
}

// SamplesAt returns the exact integer sample count of t at rate samples/sec.
// It fails with ErrTimebaseMismatch when t is not an integral number of
// samples at that rate. Rate-less times are rounded to the nearest sample.
func (t Time) SamplesAt(rate int64) (int64, error) {
	if rate <= 0 {
		return 0, fmt.Errorf("%w: non-positive rate %d", errors.ErrTimebaseMismatch, rate)
	}
	if t.den == 0 {
		return int64(math.Round(t.sec * float64(rate))), nil
	}
	g := gcd(abs64(t.num), t.den)
	num, den := t.num/g, t.den/g
	if rate%den != 0 {
		return 0, fmt.Errorf("%w: %d/%d not integral at rate %d", errors.ErrTimebaseMismatch, t.num, t.den, rate)
	}
	return num * (rate / den), nil
}

// Cmp compares t and u, returning -1, 0, or +1. Rational comparisons are
// exact regardless of magnitude; comparisons involving a rate-less operand
// use float precision.
func (t Time) Cmp(u Time) int {
	if t.den > 0 && u.den > 0 {
		return cmpScaled(t.num, u.den, u.num, t.den)
	}
	ts, us := t.Seconds(), u.Seconds()
	switch {
	case ts < us:
		return -1
	case ts > us:
		return 1
	default:
		return 0
	}
}

// Less reports whether t is strictly before u.
func (t Time) Less(u Time) bool { return t.Cmp(u) < 0 }

// String formats rational times as an exact fraction and rate-less times as
// decimal seconds.
func (t Time) String() string {
	if t.den > 0 {
		return fmt.Sprintf("%d/%d", t.num, t.den)
	}
	return fmt.Sprintf("%gs", t.sec)
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// cmpScaled compares a*b2 with b*a2 using 128-bit products so large sample
// counts never overflow. b2 and a2 are rates and therefore positive.
func cmpScaled(a, b2, b, a2 int64) int {
	neg1, hi1, lo1 := mul128(a, b2)
	neg2, hi2, lo2 := mul128(b, a2)
	if neg1 != neg2 {
		if neg1 {
			return -1
		}
		return 1
	}
	c := cmpU128(hi1, lo1, hi2, lo2)
	if neg1 {
		return -c
	}
	return c
}

func mul128(x, y int64) (neg bool, hi, lo uint64) {
	neg = (x < 0) != (y < 0)
	ux, uy := uint64(x), uint64(y)
	if x < 0 {
		ux = -ux
	}
	if y < 0 {
		uy = -uy
	}
	hi, lo = bits.Mul64(ux, uy)
	if hi == 0 && lo == 0 {
		neg = false
	}
	return neg, hi, lo
}

func cmpU128(hi1, lo1, hi2, lo2 uint64) int {
	switch {
	case hi1 < hi2:
		return -1
	case hi1 > hi2:
		return 1
	case lo1 < lo2:
		return -1
	case lo1 > lo2:
		return 1
	default:
		return 0
	}
}
