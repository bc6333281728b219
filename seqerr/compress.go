// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package seqerr

import (
	"math/bits"
)

// compressBitCount is the number of significant bits retained by
// compressCount.  Raising it makes observation patterns more faithful, at the
// cost of a larger distinct-pattern space.
const compressBitCount = 4

// compressCount rounds count to compressBitCount significant bits.  Counts
// which already fit are returned unchanged; larger ones are rounded to
// nearest at the cut, so the result only approximates the original magnitude.
// This bounds the cardinality of distinct per-site observation patterns
// regardless of sequencing depth.
func compressCount(count uint32) uint32 {
	bitPos := uint32(bits.Len32(count))
	if bitPos <= compressBitCount {
		return count
	}
	shift := bitPos - compressBitCount
	out := count >> shift
	if count&(1<<(shift-1)) != 0 {
		// round up at the cut
		out++
	}
	return out << shift
}
