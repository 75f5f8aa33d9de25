// Package qty implements an exact, unit aware quantity used for resource
// amounts (cpu cores, memory bytes, pod counts...).
//
// Values are stored in a resource.Quantity, which keeps an integer mantissa
// with a power of ten exponent and falls back to an arbitrary precision
// decimal, so sums across many containers never drift. The suffix the value
// was written with is kept alongside to pick a readable display scale.
package qty

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"gopkg.in/inf.v0"
	"k8s.io/apimachinery/pkg/api/resource"
)

// ErrInvalidQuantity is returned when a quantity text cannot be parsed.
var ErrInvalidQuantity = errors.New("invalid quantity")

// maxDisplayDigits is the number of digits allowed before the decimal point
// when choosing a display scale.
const maxDisplayDigits = 3

// Qty is an immutable quantity. The zero value is a valid zero.
type Qty struct {
	value resource.Quantity
	scale Scale
}

// Parse reads a quantity such as "1500m", "0.25", "64Mi" or "110".
func Parse(text string) (Qty, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return Qty{}, fmt.Errorf("%w: empty string", ErrInvalidQuantity)
	}

	number, suffix := splitSuffix(s)
	if !validNumber(number) {
		return Qty{}, fmt.Errorf("%w: malformed number in %q", ErrInvalidQuantity, text)
	}
	scale, ok := ScaleForSuffix(suffix)
	if !ok {
		return Qty{}, fmt.Errorf("%w: unknown suffix %q in %q", ErrInvalidQuantity, suffix, text)
	}

	exact, err := literal(number)
	if err != nil {
		return Qty{}, fmt.Errorf("%w: %q: %v", ErrInvalidQuantity, text, err)
	}
	exact.Mul(exact, scale.Factor())

	// ParseQuantity caps binary values at the int64 range and rounds below 1n
	value, err := resource.ParseQuantity(s)
	if err != nil || !sameValue(value, exact) {
		format := resource.DecimalSI
		if scale.Family == FamilyBinary {
			format = resource.BinarySI
		}
		value = *resource.NewDecimalQuantity(*exact, format)
	}

	return Qty{value: value, scale: scale}, nil
}

func sameValue(q resource.Quantity, d *inf.Dec) bool {
	c := q.DeepCopy()
	return c.AsDec().Cmp(d) == 0
}

// literal reads a validated decimal literal exactly.
func literal(number string) (*inf.Dec, error) {
	negative := strings.HasPrefix(number, "-")
	number = strings.TrimLeft(number, "+-")
	whole, frac, _ := strings.Cut(number, ".")

	unscaled, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("malformed number %q", number)
	}
	if negative {
		unscaled.Neg(unscaled)
	}
	return inf.NewDecBig(unscaled, inf.Scale(len(frac))), nil
}

// MustParse is Parse for constants and tests, it panics on error.
func MustParse(text string) Qty {
	q, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return q
}

// FromQuantity wraps a quantity coming from the Kubernetes API. The scale is
// recovered from its canonical text.
func FromQuantity(q resource.Quantity) (Qty, error) {
	c := q.DeepCopy()
	if c.Format == resource.DecimalExponent {
		c = *resource.NewDecimalQuantity(*c.AsDec(), resource.DecimalSI)
	}
	return Parse(c.String())
}

// Zero returns an unscaled zero.
func Zero() Qty {
	return Qty{}
}

// LowestPositive returns the smallest non zero quantity (1n). It is used to
// keep a measured zero distinguishable from an absent measurement.
func LowestPositive() Qty {
	return Qty{value: *resource.NewScaledQuantity(1, resource.Nano), scale: Scales[0]}
}

func splitSuffix(s string) (string, string) {
	i := strings.IndexFunc(s, func(r rune) bool {
		return !strings.ContainsRune("+-0123456789.", r)
	})
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

func validNumber(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if s == "" || s == "." {
		return false
	}
	dots := 0
	for _, r := range s {
		switch {
		case r == '.':
			dots++
		case r < '0' || r > '9':
			return false
		}
	}
	return dots <= 1
}

// Scale returns the scale the quantity is expressed in.
func (q Qty) Scale() Scale {
	return q.scale
}

// Dec returns the exact value as a decimal.
func (q Qty) Dec() *inf.Dec {
	c := q.value.DeepCopy()
	return new(inf.Dec).Set(c.AsDec())
}

// Add returns q + o.
func (q Qty) Add(o Qty) Qty {
	v := q.value.DeepCopy()
	v.Add(o.value.DeepCopy())
	return Qty{value: v, scale: resultScale(q, o)}
}

// Sub returns q - o, floored at zero.
func (q Qty) Sub(o Qty) Qty {
	if q.Cmp(o) <= 0 {
		return Qty{scale: resultScale(q, o)}
	}
	v := q.value.DeepCopy()
	v.Sub(o.value.DeepCopy())
	return Qty{value: v, scale: resultScale(q, o)}
}

// Max returns the greater of q and o. Equal values take the combined scale.
func (q Qty) Max(o Qty) Qty {
	switch c := o.Cmp(q); {
	case c > 0:
		return o
	case c < 0:
		return q
	}
	return Qty{value: q.value.DeepCopy(), scale: resultScale(q, o)}
}

// Cmp compares the numeric values: -1 if q < o, 0 if equal, 1 if q > o.
func (q Qty) Cmp(o Qty) int {
	return q.value.Cmp(o.value)
}

// Equal reports whether both quantities hold the same numeric value.
func (q Qty) Equal(o Qty) bool {
	return q.Cmp(o) == 0
}

// Less reports whether q < o.
func (q Qty) Less(o Qty) bool {
	return q.Cmp(o) < 0
}

// IsZero reports whether the value is zero.
func (q Qty) IsZero() bool {
	return q.value.IsZero()
}

// Sign returns -1, 0 or 1.
func (q Qty) Sign() int {
	return q.value.Sign()
}

// Percentage returns 100 * q / whole, for display only. There is no
// percentage of a zero whole, ok is false then.
func (q Qty) Percentage(whole Qty) (pct float64, ok bool) {
	if whole.IsZero() {
		return 0, false
	}
	return 100 * q.Float64() / whole.Float64(), true
}

// Float64 returns an approximation of the value.
func (q Qty) Float64() float64 {
	c := q.value.DeepCopy()
	return c.AsApproximateFloat64()
}

// AdjustScale returns the same value labelled with its display scale: the
// smallest scale of its family, no finer than its own, leaving at most three
// digits before the decimal point.
func (q Qty) AdjustScale() Qty {
	abs := new(inf.Dec).Abs(q.Dec())
	limit := inf.NewDec(1, -maxDisplayDigits)
	own := q.scale.Factor()

	candidates := displayScales(q.scale.Family)
	chosen := q.scale
	for _, s := range candidates {
		f := s.Factor()
		if f.Cmp(own) < 0 {
			continue
		}
		chosen = s
		if abs.Cmp(new(inf.Dec).Mul(limit, f)) < 0 {
			break
		}
	}
	return Qty{value: q.value.DeepCopy(), scale: chosen}
}

// Format renders the quantity with its display scale, e.g. "1.50", "4",
// "2.00Gi" or "750m".
func (q Qty) Format() string {
	adjusted := q.AdjustScale()
	v := adjusted.Dec()
	f := adjusted.scale.Factor()

	decimals := inf.Scale(2)
	if adjusted.scale.Family != FamilyBinary {
		if exact := new(inf.Dec).QuoExact(v, f); exact != nil && isIntegral(exact) {
			decimals = 0
		}
	}
	mantissa := new(inf.Dec).QuoRound(v, f, decimals, inf.RoundHalfUp)
	return mantissa.String() + adjusted.scale.Label
}

// String implements fmt.Stringer with the display format.
func (q Qty) String() string {
	return q.Format()
}

// Canonical returns the exact canonical text of the value.
func (q Qty) Canonical() string {
	c := q.value.DeepCopy()
	return c.String()
}

// MarshalJSON encodes the exact canonical text.
func (q Qty) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.Canonical())
}

// MarshalYAML encodes the exact canonical text.
func (q Qty) MarshalYAML() (interface{}, error) {
	return q.Canonical(), nil
}

func isIntegral(d *inf.Dec) bool {
	return new(inf.Dec).Round(d, 0, inf.RoundDown).Cmp(d) == 0
}

func resultScale(a, b Qty) Scale {
	switch {
	case a.IsZero() && !b.IsZero():
		return b.scale
	case b.IsZero() && !a.IsZero():
		return a.scale
	}
	return coarser(a.scale, b.scale)
}
