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

package dlog

import (
	"github.com/fentec-project/fuzzyfe/group"
)

// BruteForce simply checks all possible options in [lo, hi).
func (c *CalcGroup) BruteForce(h group.Element) (int64, error) {
	x := c.base.Exp(group.ScalarFromInt64(c.grp, c.lo))
	for v := c.lo; v < c.hi; v++ {
		if x.Equal(h) {
			return v, nil
		}
		x = x.Compose(c.base)
	}

	return 0, ErrNotFound
}
