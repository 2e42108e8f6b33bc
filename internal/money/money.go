// Package money represents amounts as integer cents and provides the
// allocation primitives used when one amount has to be divided between
// several budgets.
//
// All arithmetic happens on cents. Decimal values only appear at the edges:
// when a request is decoded and when a response is encoded.
package money

import (
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when a value can't be parsed as an amount or
// its magnitude exceeds MaxCents.
var ErrInvalidAmount = errors.New("invalid amount")

// Cents is an amount of money in the smallest currency unit.
type Cents int64

// MaxCents bounds the magnitude of any single amount (10 trillion in major
// units). Sums of a few thousand bounded amounts still fit in an int64.
const MaxCents Cents = 1_000_000_000_000_000

var maxCentsDecimal = decimal.NewFromInt(int64(MaxCents))

// FromDecimal rounds d to two places (half away from zero) and returns it as
// cents. Amounts beyond MaxCents are rejected with ErrInvalidAmount.
func FromDecimal(d decimal.Decimal) (Cents, error) {
	shifted := d.Round(2).Shift(2)
	if shifted.Abs().GreaterThan(maxCentsDecimal) {
		return 0, ErrInvalidAmount
	}
	return Cents(shifted.IntPart()), nil
}

// Parse converts a decimal string such as "12.50" or "12,50" to cents.
func Parse(s string) (Cents, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return FromDecimal(d)
}

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String formats the amount with exactly two decimals.
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// InRange reports whether the magnitude of c is at most MaxCents.
func (c Cents) InRange() bool {
	return c >= -MaxCents && c <= MaxCents
}

// Abs returns the absolute value.
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string in major units.
func (c *Cents) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return ErrInvalidAmount
	}
	cents, err := FromDecimal(d)
	if err != nil {
		return err
	}
	*c = cents
	return nil
}

// Sum adds up amounts.
func Sum(amounts ...Cents) Cents {
	var total Cents
	for _, a := range amounts {
		total += a
	}
	return total
}

// SplitEven divides total into n buckets that differ by at most one cent.
// The first total mod n buckets receive the extra cent, so the result is
// deterministic for a given bucket order and always sums to total.
// A non-positive n or a negative total yields an empty result.
func SplitEven(total Cents, n int) []Cents {
	if n <= 0 || total < 0 {
		return []Cents{}
	}
	base := total / Cents(n)
	remainder := int(total - base*Cents(n))

	out := make([]Cents, n)
	for i := range out {
		out[i] = base
		if i < remainder {
			out[i]++
		}
	}
	return out
}

// SplitWeighted divides total proportionally to weights using the largest
// remainder method. Buckets with a non-positive weight receive nothing. Ties
// between equal remainders go to the earlier bucket.
func SplitWeighted(total Cents, weights []int) []Cents {
	out := make([]Cents, len(weights))
	if total <= 0 {
		return out
	}
	var totalWeight int64
	for _, w := range weights {
		if w > 0 {
			totalWeight += int64(w)
		}
	}
	if totalWeight == 0 {
		return out
	}

	type share struct {
		idx       int
		remainder int64
	}
	shares := make([]share, 0, len(weights))
	var allocated Cents
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		scaled := int64(total) * int64(w)
		out[i] = Cents(scaled / totalWeight)
		allocated += out[i]
		shares = append(shares, share{idx: i, remainder: scaled % totalWeight})
	}

	sort.SliceStable(shares, func(a, b int) bool {
		return shares[a].remainder > shares[b].remainder
	})
	for left := int(total - allocated); left > 0; {
		for _, s := range shares {
			if left == 0 {
				break
			}
			out[s.idx]++
			left--
		}
	}
	return out
}
