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

package messages

import (
	"github.com/fentec-project/fuzzyfe/fuzzyhash"
)

// GenerateInstanceRequest is sent by the compute server to the authority.
// It asks for a fresh master key and one functional key per vector.
// Vectors are fuzzy hash vectors (digest || not(digest)).
type GenerateInstanceRequest struct {
	Type    fuzzyhash.Type `json:"type"`
	Vectors [][]byte       `json:"vectors"`
}

// GenerateInstanceResponse is the answer of the authority. Keys[i] is
// derived for Vectors[i] of the request. Error is set instead when the
// request was rejected.
type GenerateInstanceResponse struct {
	PublicKey *PublicKey       `json:"public_key,omitempty"`
	Keys      []*FunctionalKey `json:"keys,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// HashComparisonRequest is sent by the client to start a comparison.
type HashComparisonRequest struct {
	Type fuzzyhash.Type `json:"type"`
}

// EncryptionRequest is sent by the compute server to the client. It asks
// the client to encrypt its vector under PublicKey, and carries the best
// score found so far, if any. A request without a public key ends the
// comparison.
type EncryptionRequest struct {
	PublicKey *PublicKey `json:"public_key,omitempty"`
	Score     *int64     `json:"score,omitempty"`
}

// EncryptionResponse is sent by the client in response to an
// EncryptionRequest.
type EncryptionResponse struct {
	Ciphertext      *Ciphertext `json:"ciphertext,omitempty"`
	EndOfComparison bool        `json:"end_of_comparison,omitempty"`
}
