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

package simple_test

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/fentec-project/fuzzyfe/data"
	"github.com/fentec-project/fuzzyfe/group"
	"github.com/fentec-project/fuzzyfe/innerprod/simple"
	"github.com/fentec-project/fuzzyfe/internal"
	"github.com/fentec-project/fuzzyfe/internal/keygen"
	"github.com/fentec-project/fuzzyfe/sample"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dDHTestParam struct {
	name  string
	group func(t *testing.T) group.Group
	slow  bool
}

var dDHTestParams = []dDHTestParam{
	{name: "ristretto255", group: func(*testing.T) group.Group { return group.Ristretto255() }},
	{name: "modp128", group: func(t *testing.T) group.Group {
		grp, err := keygen.NewModP("modp128", 128, rand.Reader)
		require.NoError(t, err)
		return grp
	}},
	{name: "modp2048", group: func(*testing.T) group.Group { return group.ModP2048() }, slow: true},
	{name: "modp3072", group: func(*testing.T) group.Group { return group.ModP3072() }, slow: true},
}

func forEachGroup(t *testing.T, f func(t *testing.T, grp group.Group)) {
	for _, param := range dDHTestParams {
		t.Run(param.name, func(t *testing.T) {
			if param.slow && testing.Short() {
				t.Skip("skipping large finite-field group in short mode")
			}
			f(t, param.group(t))
		})
	}
}

func testSimple_DDHFromParam(t *testing.T, grp group.Group) {
	l := 3
	bound := new(big.Int).Exp(big.NewInt(2), big.NewInt(10), nil)
	sampler := sample.NewUniform(bound)
	ySampler := sample.NewUniformRange(new(big.Int).Neg(bound), bound)

	simpleDDH, err := simple.NewDDH(l, bound, grp)
	if err != nil {
		t.Fatalf("Error during simple inner product creation: %v", err)
	}

	masterSecKey, masterPubKey, err := simpleDDH.GenerateMasterKeys(rand.Reader)
	if err != nil {
		t.Fatalf("Error during master key generation: %v", err)
	}

	y, err := data.NewRandomVector(l, ySampler)
	if err != nil {
		t.Fatalf("Error during random generation: %v", err)
	}

	funcKey, err := simpleDDH.DeriveKey(masterSecKey, y)
	if err != nil {
		t.Fatalf("Error during key derivation: %v", err)
	}

	x, err := data.NewRandomVector(l, sampler)
	if err != nil {
		t.Fatalf("Error during random generation: %v", err)
	}

	// simulate the instantiation of encryptor (which should be given masterPubKey)
	encryptor := simple.NewDDHFromParams(simpleDDH.Params)
	xyCheck := dot(x, y)
	ciphertext, err := encryptor.Encrypt(x, masterPubKey, rand.Reader)
	if err != nil {
		t.Fatalf("Error during encryption: %v", err)
	}

	// |<x, y>| < l * bound^2
	max := int64(l) << 20
	decryptor := simple.NewDDHFromParams(simpleDDH.Params)
	xy, err := decryptor.Decrypt(ciphertext, funcKey, y, simple.Range{Lo: -max, Hi: max})
	if err != nil {
		t.Fatalf("Error during decryption: %v", err)
	}

	assert.Equal(t, xyCheck.Int64(), xy, "Original and decrypted values should match")
}

func TestSimple_DDH(t *testing.T) {
	forEachGroup(t, testSimple_DDHFromParam)
}

func TestSimple_DDHScenarios(t *testing.T) {
	var tests = []struct {
		name string
		x, y data.Vector
		want int64
	}{
		{
			name: "overlap",
			x:    data.NewVectorFromInts(1, 0, 1, 1),
			y:    data.NewVectorFromInts(1, 1, 1, 0),
			want: 2,
		},
		{
			name: "zero plaintext",
			x:    data.NewVectorFromInts(0, 0, 0, 0),
			y:    data.NewVectorFromInts(5, 3, 9, 1),
			want: 0,
		},
		{
			name: "maximal",
			x:    data.NewVectorFromInts(15, 15, 15, 15),
			y:    data.NewVectorFromInts(1, 1, 1, 0),
			want: 45,
		},
	}

	forEachGroup(t, func(t *testing.T, grp group.Group) {
		ddh, err := simple.NewDDH(4, big.NewInt(16), grp)
		require.NoError(t, err)
		msk, pk, err := ddh.GenerateMasterKeys(rand.Reader)
		require.NoError(t, err)

		for _, test := range tests {
			t.Run(test.name, func(t *testing.T) {
				key, err := ddh.DeriveKey(msk, test.y)
				require.NoError(t, err)
				ct, err := ddh.Encrypt(test.x, pk, rand.Reader)
				require.NoError(t, err)

				xy, err := ddh.Decrypt(ct, key, test.y, simple.Range{Lo: 0, Hi: 64})
				assert.NoError(t, err)
				assert.Equal(t, test.want, xy)
			})
		}

		t.Run("narrow range", func(t *testing.T) {
			y := data.NewVectorFromInts(1, 1, 1, 0)
			key, err := ddh.DeriveKey(msk, y)
			require.NoError(t, err)
			ct, err := ddh.Encrypt(data.NewVectorFromInts(1, 0, 1, 1), pk, rand.Reader)
			require.NoError(t, err)

			xy, err := ddh.Decrypt(ct, key, y, simple.Range{Lo: 0, Hi: 16})
			assert.NoError(t, err)
			assert.Equal(t, int64(2), xy)

			_, err = ddh.Decrypt(ct, key, y, simple.Range{Lo: 0, Hi: 2})
			assert.True(t, errors.Is(err, simple.ErrDecryptionFailure))
			_, err = ddh.Decrypt(ct, key, y, simple.Range{Lo: 3, Hi: 1000})
			assert.True(t, errors.Is(err, simple.ErrDecryptionFailure))
		})
	})
}

func TestSimple_DDHRandomized(t *testing.T) {
	grp := group.Ristretto255()
	ddh, err := simple.NewDDH(4, big.NewInt(16), grp)
	require.NoError(t, err)
	_, pk, err := ddh.GenerateMasterKeys(rand.Reader)
	require.NoError(t, err)

	x := data.NewVectorFromInts(1, 2, 3, 4)
	ct1, err := ddh.Encrypt(x, pk, rand.Reader)
	require.NoError(t, err)
	ct2, err := ddh.Encrypt(x, pk, rand.Reader)
	require.NoError(t, err)

	assert.False(t, ct1.C0.Equal(ct2.C0), "encryption should use fresh randomness")
	for i := range ct1.C {
		assert.False(t, ct1.C[i].Equal(ct2.C[i]))
	}
}

func TestSimple_DDHDimension(t *testing.T) {
	grp := group.Ristretto255()

	_, err := simple.NewDDH(0, big.NewInt(16), grp)
	assert.True(t, errors.Is(err, simple.ErrInvalidDimension))
	_, err = simple.NewDDH(-3, big.NewInt(16), grp)
	assert.True(t, errors.Is(err, simple.ErrInvalidDimension))
	_, err = simple.NewDDH(3, big.NewInt(0), grp)
	assert.Error(t, err)

	ddh, err := simple.NewDDH(4, big.NewInt(16), grp)
	require.NoError(t, err)
	msk, pk, err := ddh.GenerateMasterKeys(rand.Reader)
	require.NoError(t, err)

	_, err = ddh.DeriveKey(msk, data.NewVectorFromInts(1, 2, 3))
	assert.True(t, errors.Is(err, simple.ErrDimensionMismatch))

	_, err = ddh.Encrypt(data.NewVectorFromInts(1, 2, 3, 4, 5), pk, rand.Reader)
	assert.True(t, errors.Is(err, simple.ErrDimensionMismatch))

	y := data.NewVectorFromInts(1, 1, 1, 1)
	key, err := ddh.DeriveKey(msk, y)
	require.NoError(t, err)
	ct, err := ddh.Encrypt(data.NewVectorFromInts(1, 2, 3, 4), pk, rand.Reader)
	require.NoError(t, err)

	_, err = ddh.Decrypt(ct, key, data.NewVectorFromInts(1, 1), simple.Range{Lo: 0, Hi: 100})
	assert.True(t, errors.Is(err, simple.ErrDimensionMismatch))

	truncated := &simple.Ciphertext{Epoch: ct.Epoch, C0: ct.C0, C: ct.C[:3]}
	_, err = ddh.Decrypt(truncated, key, y, simple.Range{Lo: 0, Hi: 100})
	assert.True(t, errors.Is(err, simple.ErrDimensionMismatch))
}

func TestSimple_DDHRange(t *testing.T) {
	grp := group.Ristretto255()
	ddh, err := simple.NewDDH(2, big.NewInt(16), grp)
	require.NoError(t, err)
	msk, pk, err := ddh.GenerateMasterKeys(rand.Reader)
	require.NoError(t, err)

	for _, x := range []data.Vector{
		data.NewVectorFromInts(16, 0),
		data.NewVectorFromInts(0, -1),
	} {
		_, err = ddh.Encrypt(x, pk, rand.Reader)
		assert.True(t, errors.Is(err, simple.ErrOutOfRange), "x = %v", x)
	}

	y := data.NewVectorFromInts(1, 1)
	key, err := ddh.DeriveKey(msk, y)
	require.NoError(t, err)
	ct, err := ddh.Encrypt(data.NewVectorFromInts(3, 4), pk, rand.Reader)
	require.NoError(t, err)

	_, err = ddh.Decrypt(ct, key, y, simple.Range{Lo: 10, Hi: 10})
	assert.True(t, errors.Is(err, simple.ErrOutOfRange))
	_, err = ddh.Decrypt(ct, key, y, simple.Range{Lo: 0, Hi: 1 << 40})
	assert.True(t, errors.Is(err, simple.ErrOutOfRange))

	assert.NoError(t, ddh.Precompute(simple.Range{Lo: 0, Hi: 100}))
	xy, err := ddh.Decrypt(ct, key, y, simple.Range{Lo: 0, Hi: 100})
	assert.NoError(t, err)
	assert.Equal(t, int64(7), xy)
}

func TestSimple_DDHEpoch(t *testing.T) {
	grp := group.Ristretto255()
	ddh, err := simple.NewDDH(2, big.NewInt(16), grp)
	require.NoError(t, err)
	msk1, _, err := ddh.GenerateMasterKeys(rand.Reader)
	require.NoError(t, err)
	_, pk2, err := ddh.GenerateMasterKeys(rand.Reader)
	require.NoError(t, err)
	assert.NotEqual(t, msk1.Epoch, pk2.Epoch)

	y := data.NewVectorFromInts(1, 1)
	key, err := ddh.DeriveKey(msk1, y)
	require.NoError(t, err)
	ct, err := ddh.Encrypt(data.NewVectorFromInts(1, 1), pk2, rand.Reader)
	require.NoError(t, err)

	_, err = ddh.Decrypt(ct, key, y, simple.Range{Lo: 0, Hi: 100})
	assert.Equal(t, simple.ErrEpochMismatch, err)

	// a public key over another group is refused
	other, err := simple.NewDDH(2, big.NewInt(16), group.ModP2048())
	require.NoError(t, err)
	_, err = other.Encrypt(data.NewVectorFromInts(1, 1), pk2, rand.Reader)
	assert.Equal(t, internal.ErrMalformedPubKey, err)
}

// TestSimple_DDHKeyLeak checks that l keys derived for linearly
// independent vectors determine the master secret key.
func TestSimple_DDHKeyLeak(t *testing.T) {
	forEachGroup(t, func(t *testing.T, grp group.Group) {
		l := 3
		ddh, err := simple.NewDDH(l, big.NewInt(2), grp)
		require.NoError(t, err)
		msk, _, err := ddh.GenerateMasterKeys(rand.Reader)
		require.NoError(t, err)

		// determinant 1
		ys := []data.Vector{
			data.NewVectorFromInts(1, 2, 3),
			data.NewVectorFromInts(0, 1, 4),
			data.NewVectorFromInts(5, 6, 0),
		}
		keys := make([]*big.Int, l)
		for i, y := range ys {
			key, err := ddh.DeriveKey(msk, y)
			require.NoError(t, err)
			keys[i] = key.Key.Big()
		}

		s := solveMod(ys, keys, grp.Order())
		for i := range s {
			assert.Equal(t, msk.S[i].Big(), s[i], "coordinate %d of the master key", i)
		}
	})
}

// solveMod solves a * s = b mod q by Gauss-Jordan elimination. a must be
// invertible mod q.
func solveMod(a []data.Vector, b []*big.Int, q *big.Int) []*big.Int {
	n := len(a)
	m := make([][]*big.Int, n)
	for i := range a {
		m[i] = make([]*big.Int, 0, len(a[i])+1)
		for _, x := range a[i] {
			m[i] = append(m[i], new(big.Int).Mod(x, q))
		}
		m[i] = append(m[i], new(big.Int).Mod(b[i], q))
	}

	for col := 0; col < n; col++ {
		pivot := col
		for m[pivot][col].Sign() == 0 {
			pivot++
		}
		m[col], m[pivot] = m[pivot], m[col]

		inv := new(big.Int).ModInverse(m[col][col], q)
		for j := col; j <= n; j++ {
			m[col][j].Mul(m[col][j], inv).Mod(m[col][j], q)
		}
		for i := 0; i < n; i++ {
			if i == col || m[i][col].Sign() == 0 {
				continue
			}
			f := new(big.Int).Set(m[i][col])
			for j := col; j <= n; j++ {
				t := new(big.Int).Mul(f, m[col][j])
				m[i][j].Sub(m[i][j], t).Mod(m[i][j], q)
			}
		}
	}

	s := make([]*big.Int, n)
	for i := range s {
		s[i] = m[i][n]
	}
	return s
}

// dot returns the inner product of x and y.
func dot(x, y data.Vector) *big.Int {
	prod := big.NewInt(0)
	for i := range x {
		prod.Add(prod, new(big.Int).Mul(x[i], y[i]))
	}
	return prod
}
