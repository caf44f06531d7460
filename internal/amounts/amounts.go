// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package amounts implements exact arithmetic over BRC-20 token amounts.
// Amounts are non-negative decimal strings with at most 38 significant digits
// and 8 fractional digits (DECIMAL(38,8)), carried internally as fixed-scale
// big integers (value multiplied by 10^8). There is no floating point
// anywhere in this package.
package amounts

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// MaxDecimals is the maximum number of fractional digits in an amount
const MaxDecimals = 8

var (
	// ErrInvalidAmount is returned when a string does not parse as an amount
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNegativeResult is returned when a subtraction would go below zero
	ErrNegativeResult = errors.New("amount subtraction below zero")
)

var (
	scaleFactor = new(big.Int).Exp(big.NewInt(10), big.NewInt(MaxDecimals), nil)
	// 38 significant digits total, so scaled units stay below 10^38
	maxUnits = new(big.Int).Exp(big.NewInt(10), big.NewInt(38), nil)
)

// Amount is a non-negative fixed-scale decimal. The zero value is zero.
type Amount struct {
	units *big.Int
}

// Zero returns the zero amount
func Zero() Amount {
	return Amount{units: new(big.Int)}
}

// Parse converts a decimal string into an Amount. It rejects empty strings,
// a leading '+' or '-', leading zeros (other than "0" or "0.xxx"), more than
// 8 fractional digits, any character that is not a digit or a single '.',
// and values whose scaled integer form (value times 10^8) needs more than 38
// digits. Scientific notation is a
// non-digit character and falls out of the same check.
func Parse(s string) (Amount, error) {
	if s == "" {
		return Amount{}, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	intPart := s
	fracPart := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart = s[:idx]
		fracPart = s[idx+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return Amount{}, fmt.Errorf(
				"%w: multiple decimal points in %q",
				ErrInvalidAmount,
				s,
			)
		}
		if fracPart == "" {
			return Amount{}, fmt.Errorf(
				"%w: trailing decimal point in %q",
				ErrInvalidAmount,
				s,
			)
		}
	}
	if intPart == "" {
		return Amount{}, fmt.Errorf(
			"%w: missing integer part in %q",
			ErrInvalidAmount,
			s,
		)
	}
	if len(fracPart) > MaxDecimals {
		return Amount{}, fmt.Errorf(
			"%w: more than %d decimal places in %q",
			ErrInvalidAmount,
			MaxDecimals,
			s,
		)
	}
	for _, part := range []string{intPart, fracPart} {
		for i := 0; i < len(part); i++ {
			if part[i] < '0' || part[i] > '9' {
				return Amount{}, fmt.Errorf(
					"%w: unexpected character %q in %q",
					ErrInvalidAmount,
					part[i],
					s,
				)
			}
		}
	}
	if len(intPart) > 1 && intPart[0] == '0' {
		return Amount{}, fmt.Errorf(
			"%w: leading zero in %q",
			ErrInvalidAmount,
			s,
		)
	}
	units, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	units.Mul(units, scaleFactor)
	if fracPart != "" {
		frac, ok := new(big.Int).SetString(fracPart, 10)
		if !ok {
			return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
		for i := len(fracPart); i < MaxDecimals; i++ {
			frac.Mul(frac, big.NewInt(10))
		}
		units.Add(units, frac)
	}
	if units.Cmp(maxUnits) >= 0 {
		return Amount{}, fmt.Errorf(
			"%w: %q exceeds 38 digits of precision",
			ErrInvalidAmount,
			s,
		)
	}
	return Amount{units: units}, nil
}

// String renders the amount as a canonical decimal string with trailing
// fractional zeros trimmed. Parse(a.String()) always round-trips.
func (a Amount) String() string {
	if a.units == nil || a.units.Sign() == 0 {
		return "0"
	}
	quo, rem := new(big.Int).QuoRem(
		a.units,
		scaleFactor,
		new(big.Int),
	)
	if rem.Sign() == 0 {
		return quo.String()
	}
	frac := fmt.Sprintf("%08d", rem)
	frac = strings.TrimRight(frac, "0")
	return quo.String() + "." + frac
}

// Cmp compares two amounts, returning -1, 0, or 1
func (a Amount) Cmp(b Amount) int {
	au, bu := a.units, b.units
	if au == nil {
		au = new(big.Int)
	}
	if bu == nil {
		bu = new(big.Int)
	}
	return au.Cmp(bu)
}

// Add returns a+b
func (a Amount) Add(b Amount) Amount {
	sum := new(big.Int)
	if a.units != nil {
		sum.Add(sum, a.units)
	}
	if b.units != nil {
		sum.Add(sum, b.units)
	}
	return Amount{units: sum}
}

// Sub returns a-b, or ErrNegativeResult when b exceeds a
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.Cmp(b) < 0 {
		return Amount{}, ErrNegativeResult
	}
	diff := new(big.Int)
	if a.units != nil {
		diff.Set(a.units)
	}
	if b.units != nil {
		diff.Sub(diff, b.units)
	}
	return Amount{units: diff}, nil
}

// IsZero reports whether the amount is zero
func (a Amount) IsZero() bool {
	return a.units == nil || a.units.Sign() == 0
}

// IsValid reports whether s parses as an amount
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Compare compares two amount strings, returning -1, 0, or 1
func Compare(a, b string) (int, error) {
	av, err := Parse(a)
	if err != nil {
		return 0, err
	}
	bv, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return av.Cmp(bv), nil
}

// Add sums two amount strings
func Add(a, b string) (string, error) {
	av, err := Parse(a)
	if err != nil {
		return "", err
	}
	bv, err := Parse(b)
	if err != nil {
		return "", err
	}
	sum := av.Add(bv)
	if sum.units.Cmp(maxUnits) >= 0 {
		return "", fmt.Errorf(
			"%w: sum of %q and %q exceeds 38 digits of precision",
			ErrInvalidAmount,
			a,
			b,
		)
	}
	return sum.String(), nil
}

// Subtract returns a-b for two amount strings, erroring when the result
// would be negative
func Subtract(a, b string) (string, error) {
	av, err := Parse(a)
	if err != nil {
		return "", err
	}
	bv, err := Parse(b)
	if err != nil {
		return "", err
	}
	diff, err := av.Sub(bv)
	if err != nil {
		return "", err
	}
	return diff.String(), nil
}

// Gt reports whether a > b
func Gt(a, b string) (bool, error) {
	cmp, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return cmp > 0, nil
}

// Gte reports whether a >= b
func Gte(a, b string) (bool, error) {
	cmp, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return cmp >= 0, nil
}
