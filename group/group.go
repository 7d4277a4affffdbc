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

package group

import (
	"fmt"
	"io"
	"math/big"
	"sort"
)

// Scalar is an integer modulo the prime order of a Group.
// Scalars are immutable: every operation returns a new value.
type Scalar interface {
	// Add returns s + t mod order.
	Add(t Scalar) Scalar
	// Mul returns s * t mod order.
	Mul(t Scalar) Scalar
	// Neg returns -s mod order.
	Neg() Scalar
	// Equal reports whether s == t in constant time.
	Equal(t Scalar) bool
	// Bytes returns the canonical fixed-length encoding of s.
	Bytes() []byte
	// Big returns s as an integer in [0, order).
	Big() *big.Int
}

// Element is an element of a cyclic group of prime order.
// Elements are immutable: every operation returns a new value.
type Element interface {
	// Compose applies the group operation to e and f.
	Compose(f Element) Element
	// Exp returns e raised to the power s (s·e in additive notation).
	// Its running time does not depend on the value of s.
	Exp(s Scalar) Element
	// Equal reports whether e == f in constant time.
	Equal(f Element) bool
	// Bytes returns the canonical fixed-length encoding of e.
	Bytes() []byte
}

// Group is a cyclic group of known prime order with a fixed generator.
type Group interface {
	// Name identifies the group, e.g. "ristretto255" or "modp3072".
	Name() string
	// Order returns the prime order q of the group.
	Order() *big.Int
	// Generator returns the fixed generator g.
	Generator() Element
	// Identity returns the neutral element.
	Identity() Element
	// MultiExp returns the product of es[i]^ss[i]. It panics if the
	// slices differ in length.
	MultiExp(es []Element, ss []Scalar) Element

	// NewScalar returns v mod order. v may be negative.
	NewScalar(v *big.Int) Scalar
	// RandomScalar samples a scalar uniformly from [0, order).
	RandomScalar(rand io.Reader) (Scalar, error)

	// ScalarLen is the length of a scalar encoding in bytes.
	ScalarLen() int
	// ElementLen is the length of an element encoding in bytes.
	ElementLen() int
	// DecodeScalar parses a canonical scalar encoding.
	DecodeScalar(b []byte) (Scalar, error)
	// DecodeElement parses a canonical element encoding and checks
	// that it belongs to the group.
	DecodeElement(b []byte) (Element, error)
}

// ScalarFromInt64 is a shorthand for grp.NewScalar(big.NewInt(v)).
func ScalarFromInt64(grp Group, v int64) Scalar {
	return grp.NewScalar(big.NewInt(v))
}

var registry = map[string]func() Group{
	"ristretto255": func() Group { return Ristretto255() },
	"modp2048":     func() Group { return ModP2048() },
	"modp3072":     func() Group { return ModP3072() },
}

// Default is the name of the group used when none is configured.
const Default = "ristretto255"

// ByName returns the group registered under the given name.
func ByName(name string) (Group, error) {
	g, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown group %q, available: %v", name, Names())
	}
	return g(), nil
}

// Names lists the registered group names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func mixed(op string) string {
	return fmt.Sprintf("group: %s called with values from different groups", op)
}
