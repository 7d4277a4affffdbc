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

package fuzzyhash

import "github.com/pkg/errors"

var (
	// ErrUnknownType is returned for fuzzy hash types other than TypeNilsimsa.
	ErrUnknownType = errors.New("unknown fuzzy hash type")
	// ErrDigestSize is returned for digests of the wrong length.
	ErrDigestSize = errors.New("invalid digest size")
)

func errUnknownType(s string) error {
	return errors.Wrapf(ErrUnknownType, "%q", s)
}

func checkDigest(d []byte) error {
	if len(d) != Size {
		return errors.Wrapf(ErrDigestSize, "got %d bytes, expected %d", len(d), Size)
	}
	return nil
}
