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
	"io"
	"math/big"

	"github.com/gtank/ristretto255"
	"github.com/pkg/errors"
)

const (
	ristrettoScalarLen  = 32
	ristrettoElementLen = 32
)

// ristrettoOrder is l = 2^252 + 27742317777372353535851937790883648493.
var ristrettoOrder, _ = new(big.Int).SetString(
	"7237005577332262213973186563042994240857116359379907606001950938285454250989", 10)

var ristretto = &RistrettoGroup{}

// RistrettoGroup is the prime-order group ristretto255 built on top of
// Curve25519. Point and scalar arithmetic are constant time.
type RistrettoGroup struct{}

// Ristretto255 returns the ristretto255 group.
func Ristretto255() *RistrettoGroup {
	return ristretto
}

// Name returns "ristretto255".
func (*RistrettoGroup) Name() string { return "ristretto255" }

// Order returns the prime order l of the group.
func (*RistrettoGroup) Order() *big.Int { return new(big.Int).Set(ristrettoOrder) }

// Generator returns the canonical ristretto255 base point.
func (*RistrettoGroup) Generator() Element {
	return &ristrettoElement{v: ristretto255.NewElement().Base()}
}

// Identity returns the identity point.
func (*RistrettoGroup) Identity() Element {
	return &ristrettoElement{v: ristretto255.NewElement()}
}

// MultiExp returns the sum of ss[i]*es[i] in constant time. It panics
// if the slices differ in length.
func (*RistrettoGroup) MultiExp(es []Element, ss []Scalar) Element {
	if len(es) != len(ss) {
		panic("group: MultiExp invoked with mismatched slice lengths")
	}
	if len(es) == 0 {
		return ristretto.Identity()
	}
	points := make([]*ristretto255.Element, len(es))
	scalars := make([]*ristretto255.Scalar, len(ss))
	for i := range es {
		points[i] = toRistrettoElement(es[i], "MultiExp").v
		scalars[i] = toRistrettoScalar(ss[i], "MultiExp").v
	}
	return &ristrettoElement{v: ristretto255.NewElement().MultiScalarMult(scalars, points)}
}

// NewScalar returns v reduced modulo l.
func (*RistrettoGroup) NewScalar(v *big.Int) Scalar {
	r := new(big.Int).Mod(v, ristrettoOrder)
	buf := make([]byte, ristrettoScalarLen)
	r.FillBytes(buf)
	reverse(buf)
	s := ristretto255.NewScalar()
	if err := s.Decode(buf); err != nil {
		// unreachable: r is reduced
		panic(err)
	}
	return &ristrettoScalar{v: s}
}

// RandomScalar reduces 64 bytes read from rand to a uniform scalar.
func (*RistrettoGroup) RandomScalar(rand io.Reader) (Scalar, error) {
	buf := make([]byte, 64)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return nil, errors.Wrap(err, "cannot sample random scalar")
	}
	return &ristrettoScalar{v: ristretto255.NewScalar().FromUniformBytes(buf)}, nil
}

// ScalarLen returns 32.
func (*RistrettoGroup) ScalarLen() int { return ristrettoScalarLen }

// ElementLen returns 32.
func (*RistrettoGroup) ElementLen() int { return ristrettoElementLen }

// DecodeScalar parses a canonical 32-byte little-endian scalar.
func (*RistrettoGroup) DecodeScalar(b []byte) (Scalar, error) {
	if len(b) != ristrettoScalarLen {
		return nil, decodeErr("ristretto255 scalar must be %d bytes, got %d", ristrettoScalarLen, len(b))
	}
	s := ristretto255.NewScalar()
	if err := s.Decode(b); err != nil {
		return nil, decodeErr("ristretto255 scalar: %v", err)
	}
	return &ristrettoScalar{v: s}, nil
}

// DecodeElement parses a canonical 32-byte point encoding.
func (*RistrettoGroup) DecodeElement(b []byte) (Element, error) {
	e := ristretto255.NewElement()
	if err := e.Decode(b); err != nil {
		return nil, decodeErr("ristretto255 element: %v", err)
	}
	return &ristrettoElement{v: e}, nil
}

type ristrettoElement struct {
	v *ristretto255.Element
}

func toRistrettoElement(e Element, op string) *ristrettoElement {
	o, ok := e.(*ristrettoElement)
	if !ok {
		panic(mixed(op))
	}
	return o
}

func toRistrettoScalar(s Scalar, op string) *ristrettoScalar {
	o, ok := s.(*ristrettoScalar)
	if !ok {
		panic(mixed(op))
	}
	return o
}

// Compose adds the points.
func (e *ristrettoElement) Compose(f Element) Element {
	o := toRistrettoElement(f, "Compose")
	return &ristrettoElement{v: ristretto255.NewElement().Add(e.v, o.v)}
}

// Exp multiplies the point by s in constant time.
func (e *ristrettoElement) Exp(s Scalar) Element {
	sc := toRistrettoScalar(s, "Exp")
	return &ristrettoElement{v: ristretto255.NewElement().ScalarMult(sc.v, e.v)}
}

// Equal compares the points in constant time.
func (e *ristrettoElement) Equal(f Element) bool {
	o := toRistrettoElement(f, "Equal")
	return e.v.Equal(o.v) == 1
}

// Bytes returns the canonical 32-byte encoding.
func (e *ristrettoElement) Bytes() []byte {
	return e.v.Encode(make([]byte, 0, ristrettoElementLen))
}

type ristrettoScalar struct {
	v *ristretto255.Scalar
}

// Add returns s + t mod l.
func (s *ristrettoScalar) Add(t Scalar) Scalar {
	o := toRistrettoScalar(t, "Add")
	return &ristrettoScalar{v: ristretto255.NewScalar().Add(s.v, o.v)}
}

// Mul returns s * t mod l.
func (s *ristrettoScalar) Mul(t Scalar) Scalar {
	o := toRistrettoScalar(t, "Mul")
	return &ristrettoScalar{v: ristretto255.NewScalar().Multiply(s.v, o.v)}
}

// Neg returns -s mod l.
func (s *ristrettoScalar) Neg() Scalar {
	return &ristrettoScalar{v: ristretto255.NewScalar().Negate(s.v)}
}

// Equal compares the scalars in constant time.
func (s *ristrettoScalar) Equal(t Scalar) bool {
	o := toRistrettoScalar(t, "Equal")
	return s.v.Equal(o.v) == 1
}

// Bytes returns the canonical 32-byte little-endian encoding.
func (s *ristrettoScalar) Bytes() []byte {
	return s.v.Encode(make([]byte, 0, ristrettoScalarLen))
}

// Big returns the scalar as an integer in [0, l).
func (s *ristrettoScalar) Big() *big.Int {
	b := s.Bytes()
	reverse(b)
	return new(big.Int).SetBytes(b)
}

// reverse converts between little- and big-endian in place.
func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
