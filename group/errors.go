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

import "github.com/pkg/errors"

// ErrDecode is returned when bytes do not encode a valid group element
// or an in-range scalar.
var ErrDecode = errors.New("invalid encoding")

func decodeErr(format string, args ...interface{}) error {
	return errors.Wrapf(ErrDecode, format, args...)
}
