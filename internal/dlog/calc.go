/*
 * Copyright (c) 2018 XLAB d.o.o
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package dlog

import (
	"math"
	"math/big"
	"sync"

	"github.com/fentec-project/fuzzyfe/group"
	"github.com/pkg/errors"
)

// MaxBound limits the width of the interval of values that are checked
// when computing discrete logarithms. It prevents time and memory
// exhaustive computation for practical purposes.
var MaxBound int64 = 1500000000

// BruteForceLimit is the widest interval Solve scans linearly instead of
// building a baby-step table.
var BruteForceLimit int64 = 64

var (
	// ErrNotFound is returned when no value in the interval maps to the target.
	ErrNotFound = errors.New("failed to find the discrete logarithm within bound")
	// ErrInvalidRange is returned for empty intervals or intervals wider than MaxBound.
	ErrInvalidRange = errors.New("invalid discrete logarithm range")
)

// Calc represents a discrete logarithm calculator.
type Calc struct{}

// NewCalc returns a discrete logarithm calculator.
func NewCalc() *Calc {
	return &Calc{}
}

// CalcGroup represents a calculator for discrete logarithms in a prime
// order group, restricted to exponents in [lo, hi). Once configured it is
// safe for concurrent use: the baby-step table is built on first use and
// only read afterwards.
type CalcGroup struct {
	grp  group.Group
	base group.Element
	lo   int64
	hi   int64
	m    int64

	once  sync.Once
	table map[string]int64
}

// InGroup returns a calculator for logarithms to the base of the
// generator of grp, searching [0, MaxBound).
func (*Calc) InGroup(grp group.Group) *CalcGroup {
	return &CalcGroup{
		grp:  grp,
		base: grp.Generator(),
		lo:   0,
		hi:   MaxBound,
		m:    ceilSqrt(MaxBound),
	}
}

// WithRange returns a calculator searching [lo, hi).
func (c *CalcGroup) WithRange(lo, hi int64) (*CalcGroup, error) {
	if hi <= lo {
		return nil, errors.Wrapf(ErrInvalidRange, "empty interval [%d, %d)", lo, hi)
	}
	// hi - lo may overflow when the bounds have opposite signs
	if lo < 0 && hi > math.MaxInt64+lo {
		return nil, errors.Wrapf(ErrInvalidRange, "interval [%d, %d) is too wide", lo, hi)
	}
	if hi-lo > MaxBound {
		return nil, errors.Wrapf(ErrInvalidRange, "interval [%d, %d) is wider than %d", lo, hi, MaxBound)
	}

	return &CalcGroup{
		grp:  c.grp,
		base: c.base,
		lo:   lo,
		hi:   hi,
		m:    ceilSqrt(hi - lo),
	}, nil
}

// Range returns the searched interval [lo, hi).
func (c *CalcGroup) Range() (int64, int64) {
	return c.lo, c.hi
}

// Solve returns v in [lo, hi) with h = base^v. Narrow intervals are
// scanned linearly, wider ones use baby-step giant-step.
func (c *CalcGroup) Solve(h group.Element) (int64, error) {
	if c.hi-c.lo <= BruteForceLimit {
		return c.BruteForce(h)
	}
	return c.BabyStepGiantStep(h)
}

// Precompute builds the baby-step table ahead of the first search.
func (c *CalcGroup) Precompute() {
	c.once.Do(c.precompute)
}

// precompute fills the table with base^i for i in [0, m).
func (c *CalcGroup) precompute() {
	// element encodings cannot be map keys directly, thus we use their string form
	T := make(map[string]int64, c.m)
	x := c.grp.Identity()
	for i := int64(0); i < c.m; i++ {
		T[string(x.Bytes())] = i
		x = x.Compose(c.base)
	}
	c.table = T
}

// BabyStepGiantStep implements the baby-step giant-step method.
//
// It searches for v in [lo, hi), where h = base^v, using m = ceil(sqrt(hi - lo))
// precomputed baby steps and at most ceil((hi - lo) / m) giant steps.
// If the solution was not found within the interval, it returns ErrNotFound.
func (c *CalcGroup) BabyStepGiantStep(h group.Element) (int64, error) {
	c.once.Do(c.precompute)

	// x = h * base^-lo, -lo overflows int64 for lo = math.MinInt64
	x := h.Compose(c.base.Exp(c.grp.NewScalar(new(big.Int).Neg(big.NewInt(c.lo)))))
	// z = base^-m
	z := c.base.Exp(group.ScalarFromInt64(c.grp, -c.m))

	steps := (c.hi - c.lo + c.m - 1) / c.m
	for j := int64(0); j < steps; j++ {
		if i, ok := c.table[string(x.Bytes())]; ok {
			if off := j*c.m + i; off < c.hi-c.lo {
				return c.lo + off, nil
			}
			break
		}
		x = x.Compose(z)
	}

	return 0, ErrNotFound
}

// ceilSqrt returns the smallest m >= 1 with m*m >= n.
func ceilSqrt(n int64) int64 {
	m := int64(math.Sqrt(float64(n)))
	for m > 1 && (m-1)*(m-1) >= n {
		m--
	}
	for m*m < n {
		m++
	}
	if m < 1 {
		m = 1
	}
	return m
}
