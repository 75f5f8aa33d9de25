package qty

import (
	"math/big"

	"gopkg.in/inf.v0"
)

// Family is the base a scale belongs to.
type Family int

const (
	// FamilyNone is the empty suffix: a plain count or decimal value.
	FamilyNone Family = iota
	// FamilyDecimal covers the SI suffixes, powers of 10.
	FamilyDecimal
	// FamilyBinary covers the IEC suffixes, powers of 2 in steps of 10 bits.
	FamilyBinary
)

func (f Family) String() string {
	switch f {
	case FamilyDecimal:
		return "decimal"
	case FamilyBinary:
		return "binary"
	default:
		return "none"
	}
}

// Scale is one entry of the suffix table. Exp is a power of 10 for the
// decimal families and a power of 2 for the binary family.
type Scale struct {
	Label  string
	Family Family
	Exp    int32
}

// Scales lists every supported suffix, ordered by family then exponent.
var Scales = []Scale{
	{Label: "n", Family: FamilyDecimal, Exp: -9},
	{Label: "u", Family: FamilyDecimal, Exp: -6},
	{Label: "m", Family: FamilyDecimal, Exp: -3},
	{Label: "", Family: FamilyNone, Exp: 0},
	{Label: "k", Family: FamilyDecimal, Exp: 3},
	{Label: "M", Family: FamilyDecimal, Exp: 6},
	{Label: "G", Family: FamilyDecimal, Exp: 9},
	{Label: "T", Family: FamilyDecimal, Exp: 12},
	{Label: "P", Family: FamilyDecimal, Exp: 15},
	{Label: "E", Family: FamilyDecimal, Exp: 18},
	{Label: "Ki", Family: FamilyBinary, Exp: 10},
	{Label: "Mi", Family: FamilyBinary, Exp: 20},
	{Label: "Gi", Family: FamilyBinary, Exp: 30},
	{Label: "Ti", Family: FamilyBinary, Exp: 40},
	{Label: "Pi", Family: FamilyBinary, Exp: 50},
	{Label: "Ei", Family: FamilyBinary, Exp: 60},
}

// ScaleForSuffix looks a suffix up in the fixed table.
func ScaleForSuffix(suffix string) (Scale, bool) {
	for _, s := range Scales {
		if s.Label == suffix {
			return s, true
		}
	}
	return Scale{}, false
}

// base10 reports whether the scale multiplies by powers of 10.
func (s Scale) base10() bool {
	return s.Family != FamilyBinary
}

// Factor returns the exact multiplier of the scale.
func (s Scale) Factor() *inf.Dec {
	if s.Family == FamilyBinary {
		return new(inf.Dec).SetUnscaledBig(new(big.Int).Lsh(big.NewInt(1), uint(s.Exp)))
	}
	// inf.Dec is unscaled * 10^-scale
	return inf.NewDec(1, inf.Scale(-s.Exp))
}

// displayScales returns the candidate display scales for a family, ordered by
// increasing factor. Unscaled values are displayed with the decimal suffixes.
func displayScales(f Family) []Scale {
	out := make([]Scale, 0, len(Scales))
	for _, s := range Scales {
		if f == FamilyBinary {
			if s.Family == FamilyBinary {
				out = append(out, s)
			}
			continue
		}
		if s.Family != FamilyBinary {
			out = append(out, s)
		}
	}
	return out
}

// coarser picks the scale a combined result is expressed in: the coarser of
// two scales sharing a base, otherwise the binary one. The choice does not
// depend on the argument order.
func coarser(a, b Scale) Scale {
	if a.base10() != b.base10() {
		if a.base10() {
			return b
		}
		return a
	}
	if b.Exp > a.Exp {
		return b
	}
	return a
}
