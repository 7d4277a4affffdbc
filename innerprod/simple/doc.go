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

// Package simple includes a simple scheme for functional encryption of
// inner products.
//
// The implementation is based on the reference paper by Abdalla et. al
// (see https://eprint.iacr.org/2015/017.pdf), instantiated from the
// decisional Diffie-Hellman assumption (DDH). The reference scheme
// offers selective security under chosen-plaintext attacks
// (s-IND-CPA security).
//
// The scheme is public key, which means that no master secret
// key is required for the encryption. It is written once against the
// group.Group abstraction and runs unchanged over the finite-field
// (group.ModP) and elliptic-curve (group.Ristretto255) backends.
//
// Decryption recovers g^<x, y> and then solves a discrete logarithm,
// so the caller has to supply the range the inner product lies in.
//
// Note that l linearly independent functional keys derived from the
// same master secret key reveal the master secret key. Callers must
// issue at most l-1 keys per master key.
package simple
