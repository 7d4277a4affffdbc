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

package sample_test

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/fentec-project/fuzzyfe/sample"
	"github.com/stretchr/testify/assert"
)

func TestUniformRange(t *testing.T) {
	var tests = []struct {
		name     string
		min, max int64
	}{
		{name: "bit", min: 0, max: 2},
		{name: "byte", min: 0, max: 256},
		{name: "negative", min: -50, max: 50},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sampler := sample.NewUniformRange(big.NewInt(test.min), big.NewInt(test.max))
			for i := 0; i < 1000; i++ {
				v, err := sampler.Sample()
				assert.NoError(t, err)
				assert.True(t, v.Int64() >= test.min && v.Int64() < test.max,
					"sampled value %v out of range", v)
			}
		})
	}
}

func TestUniformRange_Empty(t *testing.T) {
	_, err := sample.NewUniformRange(big.NewInt(3), big.NewInt(3)).Sample()
	assert.Error(t, err)
}

func TestUniformRange_WithReader(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, 64)
	a, err := sample.NewUniform(big.NewInt(1000)).WithReader(bytes.NewReader(seed)).Sample()
	assert.NoError(t, err)
	b, err := sample.NewUniform(big.NewInt(1000)).WithReader(bytes.NewReader(seed)).Sample()
	assert.NoError(t, err)
	assert.Equal(t, a, b, "same randomness should give the same sample")

	_, err = sample.NewUniform(big.NewInt(2)).WithReader(bytes.NewReader(nil)).Sample()
	assert.Error(t, err, "exhausted reader should fail")
}
