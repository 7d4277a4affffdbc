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

package simple

import (
	"fmt"
	"io"
	"math/big"
	"sync"

	"github.com/fentec-project/fuzzyfe/data"
	"github.com/fentec-project/fuzzyfe/group"
	"github.com/fentec-project/fuzzyfe/internal"
	"github.com/fentec-project/fuzzyfe/internal/dlog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DDHParams represents configuration parameters for the DDH scheme instance.
type DDHParams struct {
	// length of input vectors x and y
	L int
	// Coordinates of encrypted vectors x lie in [0, Bound).
	Bound *big.Int
	// Prime order group the scheme operates in.
	Group group.Group
}

// DDH represents a scheme instantiated from the DDH assumption,
// based on the DDH variant by
// Abdalla, Bourse, De Caro, and Pointchev:
// "Simple Functional Encryption Schemes for Inner Products".
//
// The scheme works in any group implementing group.Group. A DDH
// instance is safe for concurrent use; it caches one discrete logarithm
// calculator per decryption range, for at most MaxCachedRanges ranges.
// Callers are expected to decrypt over a small fixed set of ranges.
type DDH struct {
	Params *DDHParams

	mu    sync.Mutex
	calcs map[Range]*dlog.CalcGroup
}

// MaxCachedRanges is the number of decryption ranges a DDH keeps
// discrete logarithm tables for. Decrypting over further ranges
// rebuilds the table on every call.
var MaxCachedRanges = 8

// NewDDH configures a new instance of the scheme.
// It accepts the length of input vectors l, a bound by which
// coordinates of encrypted vectors are bounded and the group the
// scheme operates in.
//
// It returns an error in case the scheme could not be properly
// configured.
func NewDDH(l int, bound *big.Int, grp group.Group) (*DDH, error) {
	if l <= 0 {
		return nil, errors.Wrapf(ErrInvalidDimension, "got %d", l)
	}
	if grp == nil {
		return nil, fmt.Errorf("group must be set")
	}
	if bound == nil || bound.Cmp(big.NewInt(1)) < 0 {
		return nil, fmt.Errorf("bound must be at least 1")
	}
	if bound.Cmp(grp.Order()) > 0 {
		return nil, fmt.Errorf("bound should not exceed the group order")
	}

	return NewDDHFromParams(&DDHParams{
		L:     l,
		Bound: new(big.Int).Set(bound),
		Group: grp,
	}), nil
}

// NewDDHFromParams takes configuration parameters of an existing
// DDH scheme instance, and reconstructs the scheme with same configuration
// parameters. It returns a new DDH instance.
func NewDDHFromParams(params *DDHParams) *DDH {
	return &DDH{
		Params: params,
	}
}

// GenerateMasterKeys generates a pair of master secret key and master
// public key for the scheme. Both carry a freshly minted epoch tag.
// It returns an error in case master keys could not be generated.
func (d *DDH) GenerateMasterKeys(rand io.Reader) (*MasterSecretKey, *PublicKey, error) {
	epoch, err := uuid.NewRandom()
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot generate epoch")
	}

	grp := d.Params.Group
	g := grp.Generator()
	masterSecKey := &MasterSecretKey{Epoch: epoch, S: make([]group.Scalar, d.Params.L)}
	masterPubKey := &PublicKey{Group: grp, Epoch: epoch, H: make([]group.Element, d.Params.L)}

	for i := 0; i < d.Params.L; i++ {
		s, err := grp.RandomScalar(rand)
		if err != nil {
			return nil, nil, errors.Wrap(err, "cannot generate master secret key")
		}
		masterSecKey.S[i] = s
		masterPubKey.H[i] = g.Exp(s)
	}

	return masterSecKey, masterPubKey, nil
}

// DeriveKey takes master secret key and input vector y, and returns the
// functional encryption key sk_y = <s, y> mod q. Coordinates of y are
// arbitrary integers. In case the key could not be derived, it
// returns an error.
func (d *DDH) DeriveKey(masterSecKey *MasterSecretKey, y data.Vector) (*FunctionalKey, error) {
	if masterSecKey == nil || len(masterSecKey.S) != d.Params.L {
		return nil, internal.ErrMalformedSecKey
	}
	if len(y) != d.Params.L {
		return nil, errors.Wrapf(ErrDimensionMismatch, "y has length %d, expected %d", len(y), d.Params.L)
	}
	if containsNil(y) {
		return nil, internal.ErrMalformedInput
	}

	ys := y.Scalars(d.Params.Group)
	key := d.Params.Group.NewScalar(big.NewInt(0))
	for i, s := range masterSecKey.S {
		key = key.Add(s.Mul(ys[i]))
	}

	return &FunctionalKey{Epoch: masterSecKey.Epoch, Key: key}, nil
}

// Encrypt encrypts input vector x with the provided master public key,
// using fresh randomness from rand. It returns a ciphertext.
// If encryption failed, error is returned.
func (d *DDH) Encrypt(x data.Vector, masterPubKey *PublicKey, rand io.Reader) (*Ciphertext, error) {
	if masterPubKey == nil || masterPubKey.Group != d.Params.Group || len(masterPubKey.H) != d.Params.L {
		return nil, internal.ErrMalformedPubKey
	}
	if len(x) != d.Params.L {
		return nil, errors.Wrapf(ErrDimensionMismatch, "x has length %d, expected %d", len(x), d.Params.L)
	}
	if err := x.CheckRange(big.NewInt(0), d.Params.Bound); err != nil {
		return nil, errors.Wrap(ErrOutOfRange, err.Error())
	}

	grp := d.Params.Group
	g := grp.Generator()
	r, err := grp.RandomScalar(rand)
	if err != nil {
		return nil, errors.Wrap(err, "cannot sample encryption randomness")
	}

	xs := x.Scalars(grp)
	ciphertext := &Ciphertext{
		Epoch: masterPubKey.Epoch,
		// ct0 = g^r
		C0: g.Exp(r),
		C:  make([]group.Element, d.Params.L),
	}
	for i, h := range masterPubKey.H {
		// ct_i = h_i^r * g^x_i
		ciphertext.C[i] = h.Exp(r).Compose(g.Exp(xs[i]))
	}

	return ciphertext, nil
}

// Decrypt accepts the ciphertext, functional encryption key, and
// a plaintext vector y. It returns the inner product of x and y,
// provided it lies in bound. If decryption failed, error is returned.
func (d *DDH) Decrypt(cipher *Ciphertext, key *FunctionalKey, y data.Vector, bound Range) (int64, error) {
	if key == nil || key.Key == nil {
		return 0, internal.ErrMalformedDecKey
	}
	if cipher == nil || cipher.C0 == nil {
		return 0, internal.ErrMalformedCipher
	}
	if cipher.Epoch != key.Epoch {
		return 0, ErrEpochMismatch
	}
	if len(y) != d.Params.L {
		return 0, errors.Wrapf(ErrDimensionMismatch, "y has length %d, expected %d", len(y), d.Params.L)
	}
	if len(cipher.C) != d.Params.L {
		return 0, errors.Wrapf(ErrDimensionMismatch, "ciphertext has length %d, expected %d", len(cipher.C), d.Params.L)
	}
	if containsNil(y) {
		return 0, internal.ErrMalformedInput
	}

	calc, err := d.calc(bound)
	if err != nil {
		return 0, err
	}

	// D = C0^-sk_y * prod C_i^y_i = g^<x, y>
	es := make([]group.Element, 0, d.Params.L+1)
	ss := make([]group.Scalar, 0, d.Params.L+1)
	es = append(es, cipher.C0)
	ss = append(ss, key.Key.Neg())
	es = append(es, cipher.C...)
	ss = append(ss, y.Scalars(d.Params.Group)...)
	r := d.Params.Group.MultiExp(es, ss)

	res, err := calc.Solve(r)
	if errors.Is(err, dlog.ErrNotFound) {
		return 0, errors.Wrapf(ErrDecryptionFailure, "range [%d, %d)", bound.Lo, bound.Hi)
	}

	return res, err
}

// Precompute builds the discrete logarithm table for bound, so that
// the first Decrypt over it does not pay for it. It has no lasting
// effect once MaxCachedRanges other ranges are cached.
func (d *DDH) Precompute(bound Range) error {
	calc, err := d.calc(bound)
	if err != nil {
		return err
	}
	calc.Precompute()

	return nil
}

func (d *DDH) calc(bound Range) (*dlog.CalcGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.calcs[bound]; ok {
		return c, nil
	}

	calc, err := dlog.NewCalc().InGroup(d.Params.Group).WithRange(bound.Lo, bound.Hi)
	if err != nil {
		return nil, errors.Wrap(ErrOutOfRange, err.Error())
	}
	if d.calcs == nil {
		d.calcs = make(map[Range]*dlog.CalcGroup)
	}
	if len(d.calcs) < MaxCachedRanges {
		d.calcs[bound] = calc
	}

	return calc, nil
}

func containsNil(v data.Vector) bool {
	for _, c := range v {
		if c == nil {
			return true
		}
	}
	return false
}
