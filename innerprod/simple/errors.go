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

import "github.com/pkg/errors"

var (
	// ErrInvalidDimension is returned when a scheme is configured for
	// vectors of non-positive length.
	ErrInvalidDimension = errors.New("vector length must be positive")
	// ErrDimensionMismatch is returned when a vector, key or ciphertext
	// does not have the length the scheme was configured with.
	ErrDimensionMismatch = errors.New("length does not match the scheme dimension")
	// ErrOutOfRange is returned for plaintext coordinates outside
	// [0, bound) and for empty or too wide decryption ranges.
	ErrOutOfRange = errors.New("value out of range")
	// ErrDecryptionFailure is returned when the inner product does not
	// lie in the requested decryption range.
	ErrDecryptionFailure = errors.New("inner product not found within the decryption range")
	// ErrEpochMismatch is returned when a functional key and a ciphertext
	// stem from different master keys.
	ErrEpochMismatch = errors.New("key and ciphertext belong to different master keys")
)
