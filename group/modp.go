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
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/cronokirby/safenum"
	"github.com/pkg/errors"
)

// Safe primes from RFC 3526. For both of them p = 7 mod 8, so 2 is a
// quadratic residue and generates the subgroup of order (p-1)/2.
const (
	rfc3526Group14 = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74" +
		"020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F1437" +
		"4FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
		"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF05" +
		"98DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB" +
		"9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
		"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF695581718" +
		"3995497CEA956AE515D2261898FA051015728E5A8AACAA68FFFFFFFFFFFFFFFF"

	rfc3526Group15 = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74" +
		"020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F1437" +
		"4FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
		"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF05" +
		"98DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB" +
		"9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
		"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF695581718" +
		"3995497CEA956AE515D2261898FA051015728E5A8AAAC42DAD33170D04507A33" +
		"A85521ABDF1CBA64ECFB850458DBEF0A8AEA71575D060C7DB3970F85A6E1E4C7" +
		"ABF5AE8CDB0933D71E8C94E04A25619DCEE3D2261AD2EE6BF12FFA06D98A0864" +
		"D87602733EC86A64521F2B18177B200CBBE117577A615D6C770988C0BAD946E2" +
		"08E24FA074E5AB3143DB5BFCE0FD108E4B82D120A93AD2CAFFFFFFFFFFFFFFFF"
)

var (
	modp2048     *ModP
	modp2048Once sync.Once
	modp3072     *ModP
	modp3072Once sync.Once
)

// ModP2048 returns the 2048-bit MODP group (RFC 3526, group 14).
func ModP2048() *ModP {
	modp2048Once.Do(func() {
		modp2048 = mustModP("modp2048", rfc3526Group14)
	})
	return modp2048
}

// ModP3072 returns the 3072-bit MODP group (RFC 3526, group 15).
func ModP3072() *ModP {
	modp3072Once.Do(func() {
		modp3072 = mustModP("modp3072", rfc3526Group15)
	})
	return modp3072
}

func mustModP(name, hex string) *ModP {
	p, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		panic("group: malformed prime for " + name)
	}
	grp, err := NewModP(name, p, big.NewInt(2))
	if err != nil {
		panic(err)
	}
	return grp
}

// ModP is the subgroup of quadratic residues modulo a safe prime p = 2q + 1.
// It has prime order q. Exponentiation relies on safenum, whose
// fixed-window Exp runs in time that depends only on the announced
// length of the exponent; all scalars carry the announced length of q.
type ModP struct {
	name string
	p    *big.Int
	q    *big.Int
	pMod *safenum.Modulus
	qMod *safenum.Modulus
	qNat *safenum.Nat
	g    *safenum.Nat
	pLen int
	qLen int
	one  []byte
}

// NewModP configures a group over the safe prime p with generator g.
// It returns an error if p is not a safe prime or g does not generate
// the subgroup of order (p-1)/2.
func NewModP(name string, p, g *big.Int) (*ModP, error) {
	if p == nil || g == nil {
		return nil, fmt.Errorf("modulus and generator cannot be nil")
	}
	if !p.ProbablyPrime(20) {
		return nil, fmt.Errorf("group modulus p must be prime")
	}
	q := new(big.Int).Rsh(p, 1)
	if !q.ProbablyPrime(20) {
		return nil, fmt.Errorf("(p-1)/2 must be prime")
	}
	if g.Cmp(big.NewInt(1)) <= 0 || g.Cmp(p) >= 0 {
		return nil, fmt.Errorf("generator must be in (1, p)")
	}
	if new(big.Int).Exp(g, q, p).Cmp(big.NewInt(1)) != 0 {
		return nil, fmt.Errorf("generator must be a quadratic residue")
	}

	grp := &ModP{
		name: name,
		p:    p,
		q:    q,
		pMod: safenum.ModulusFromBytes(p.Bytes()),
		qMod: safenum.ModulusFromBytes(q.Bytes()),
		qNat: new(safenum.Nat).SetBytes(q.Bytes()),
		pLen: (p.BitLen() + 7) / 8,
		qLen: (q.BitLen() + 7) / 8,
	}
	grp.g = new(safenum.Nat).Mod(new(safenum.Nat).SetBytes(g.Bytes()), grp.pMod)
	grp.one = make([]byte, grp.pLen)
	grp.one[grp.pLen-1] = 1

	return grp, nil
}

// Name returns the registry name of the group.
func (m *ModP) Name() string { return m.name }

// Order returns q = (p-1)/2.
func (m *ModP) Order() *big.Int { return new(big.Int).Set(m.q) }

// Modulus returns the safe prime p.
func (m *ModP) Modulus() *big.Int { return new(big.Int).Set(m.p) }

// Generator returns the fixed generator of the subgroup.
func (m *ModP) Generator() Element {
	return &modpElement{grp: m, v: m.g}
}

// Identity returns 1 mod p.
func (m *ModP) Identity() Element {
	return &modpElement{grp: m, v: new(safenum.Nat).Mod(new(safenum.Nat).SetUint64(1), m.pMod)}
}

// MultiExp returns the product of es[i]^ss[i]. It panics if the slices
// differ in length.
func (m *ModP) MultiExp(es []Element, ss []Scalar) Element {
	if len(es) != len(ss) {
		panic("group: MultiExp invoked with mismatched slice lengths")
	}
	acc := m.Identity()
	for i := range es {
		acc = acc.Compose(es[i].Exp(ss[i]))
	}
	return acc
}

// NewScalar returns v reduced modulo q.
func (m *ModP) NewScalar(v *big.Int) Scalar {
	r := new(big.Int).Mod(v, m.q)
	return &modpScalar{grp: m, v: new(safenum.Nat).Mod(new(safenum.Nat).SetBytes(r.Bytes()), m.qMod)}
}

// RandomScalar returns a scalar sampled uniformly from [0, q) with
// randomness read from rand.
func (m *ModP) RandomScalar(rand io.Reader) (Scalar, error) {
	// 128 extra bits make the bias of the reduction negligible.
	buf := make([]byte, m.qLen+16)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return nil, errors.Wrap(err, "cannot sample random scalar")
	}
	return &modpScalar{grp: m, v: new(safenum.Nat).Mod(new(safenum.Nat).SetBytes(buf), m.qMod)}, nil
}

// ScalarLen returns the length of encoded scalars, the byte length of q.
func (m *ModP) ScalarLen() int { return m.qLen }

// ElementLen returns the length of encoded elements, the byte length of p.
func (m *ModP) ElementLen() int { return m.pLen }

// DecodeScalar parses a big-endian scalar of ScalarLen bytes. Values
// not below q are rejected.
func (m *ModP) DecodeScalar(b []byte) (Scalar, error) {
	if len(b) != m.qLen {
		return nil, decodeErr("%s scalar must be %d bytes, got %d", m.name, m.qLen, len(b))
	}
	v := new(safenum.Nat).Mod(new(safenum.Nat).SetBytes(b), m.qMod)
	if subtle.ConstantTimeCompare(v.FillBytes(make([]byte, m.qLen)), b) != 1 {
		return nil, decodeErr("%s scalar is not reduced", m.name)
	}
	return &modpScalar{grp: m, v: v}, nil
}

// DecodeElement accepts only canonical residues in the subgroup of
// quadratic residues. Both checks are computed before a single branch.
func (m *ModP) DecodeElement(b []byte) (Element, error) {
	if len(b) != m.pLen {
		return nil, decodeErr("%s element must be %d bytes, got %d", m.name, m.pLen, len(b))
	}
	v := new(safenum.Nat).Mod(new(safenum.Nat).SetBytes(b), m.pMod)
	canonical := subtle.ConstantTimeCompare(v.FillBytes(make([]byte, m.pLen)), b)
	legendre := new(safenum.Nat).Exp(v, m.qNat, m.pMod)
	residue := subtle.ConstantTimeCompare(legendre.FillBytes(make([]byte, m.pLen)), m.one)
	if canonical&residue != 1 {
		return nil, decodeErr("%s element is not in the group", m.name)
	}
	return &modpElement{grp: m, v: v}, nil
}

type modpElement struct {
	grp *ModP
	v   *safenum.Nat
}

func (e *modpElement) other(f Element, op string) *modpElement {
	o, ok := f.(*modpElement)
	if !ok || o.grp != e.grp {
		panic(mixed(op))
	}
	return o
}

// Compose multiplies the elements modulo p.
func (e *modpElement) Compose(f Element) Element {
	o := e.other(f, "Compose")
	return &modpElement{grp: e.grp, v: new(safenum.Nat).ModMul(e.v, o.v, e.grp.pMod)}
}

// Exp raises e to s in time independent of s.
func (e *modpElement) Exp(s Scalar) Element {
	sc, ok := s.(*modpScalar)
	if !ok || sc.grp != e.grp {
		panic(mixed("Exp"))
	}
	return &modpElement{grp: e.grp, v: new(safenum.Nat).Exp(e.v, sc.v, e.grp.pMod)}
}

// Equal compares the elements in constant time.
func (e *modpElement) Equal(f Element) bool {
	o := e.other(f, "Equal")
	return subtle.ConstantTimeCompare(e.Bytes(), o.Bytes()) == 1
}

// Bytes returns the big-endian encoding padded to ElementLen bytes.
func (e *modpElement) Bytes() []byte {
	return e.v.FillBytes(make([]byte, e.grp.pLen))
}

type modpScalar struct {
	grp *ModP
	v   *safenum.Nat
}

func (s *modpScalar) other(t Scalar, op string) *modpScalar {
	o, ok := t.(*modpScalar)
	if !ok || o.grp != s.grp {
		panic(mixed(op))
	}
	return o
}

// Add returns s + t mod q.
func (s *modpScalar) Add(t Scalar) Scalar {
	o := s.other(t, "Add")
	return &modpScalar{grp: s.grp, v: new(safenum.Nat).ModAdd(s.v, o.v, s.grp.qMod)}
}

// Mul returns s * t mod q.
func (s *modpScalar) Mul(t Scalar) Scalar {
	o := s.other(t, "Mul")
	return &modpScalar{grp: s.grp, v: new(safenum.Nat).ModMul(s.v, o.v, s.grp.qMod)}
}

// Neg returns -s mod q.
func (s *modpScalar) Neg() Scalar {
	return &modpScalar{grp: s.grp, v: new(safenum.Nat).ModNeg(s.v, s.grp.qMod)}
}

// Equal compares the scalars in constant time.
func (s *modpScalar) Equal(t Scalar) bool {
	o := s.other(t, "Equal")
	return subtle.ConstantTimeCompare(s.Bytes(), o.Bytes()) == 1
}

// Bytes returns the big-endian encoding padded to ScalarLen bytes.
func (s *modpScalar) Bytes() []byte {
	return s.v.FillBytes(make([]byte, s.grp.qLen))
}

// Big returns the scalar as an integer in [0, q).
func (s *modpScalar) Big() *big.Int {
	return new(big.Int).SetBytes(s.Bytes())
}
