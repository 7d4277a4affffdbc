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

// Package fuzzyhash implements the Nilsimsa locality-sensitive hash and
// its mapping to bit vectors, so that the similarity of two digests can
// be computed as an inner product.
//
// Two Nilsimsa digests a and b are compared by the number of equal bits.
// With v(a) = a || not(a) expanded to 512 bits, <v(a), v(b)> equals
// 256 - hamming(a, b), and the similarity score is
// <v(a), v(b)> - 128 = 128 - hamming(a, b), a value in [-128, 128].
package fuzzyhash

// Type names a kind of fuzzy hash. It is stored next to every digest
// and sent with comparison requests.
type Type string

const (
	// TypeNilsimsa is the Nilsimsa fuzzy hash.
	TypeNilsimsa Type = "nilsimsa"
)

// ParseType returns the Type with the given name.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeNilsimsa:
		return TypeNilsimsa, nil
	}
	return "", errUnknownType(s)
}

// DigestSize returns the length of digests of type t, or 0 if t is unknown.
func (t Type) DigestSize() int {
	switch t {
	case TypeNilsimsa:
		return Size
	}
	return 0
}

// VectorBits returns the dimension of the bit vectors of type t, or 0
// if t is unknown.
func (t Type) VectorBits() int {
	switch t {
	case TypeNilsimsa:
		return NilsimsaBits
	}
	return 0
}
