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
	"github.com/fentec-project/fuzzyfe/group"
	"github.com/google/uuid"
)

// MasterSecretKey holds the secret scalars s_1, ..., s_l.
// It never leaves the authority that generated it.
type MasterSecretKey struct {
	Epoch uuid.UUID
	S     []group.Scalar
}

// PublicKey holds h_i = g^s_i for every coordinate.
type PublicKey struct {
	Group group.Group
	Epoch uuid.UUID
	H     []group.Element
}

// FunctionalKey allows to compute <x, y> for the vector y it was derived for.
type FunctionalKey struct {
	Epoch uuid.UUID
	Key   group.Scalar
}

// Ciphertext is an encryption of x: C0 = g^r and C_i = h_i^r * g^x_i.
type Ciphertext struct {
	Epoch uuid.UUID
	C0    group.Element
	C     []group.Element
}

// Range is the half-open interval [Lo, Hi) searched for the inner product
// when decrypting.
type Range struct {
	Lo int64
	Hi int64
}
