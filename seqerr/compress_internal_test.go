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
	"testing"
)

func TestCompressCount(t *testing.T) {
	// Counts fitting in the bit budget pass through unchanged.
	for count := uint32(0); count < 16; count++ {
		if got := compressCount(count); got != count {
			t.Fatalf("compressCount(%d) = %d, expected identity below 2^%d", count, got, compressBitCount)
		}
	}
	// Spot-check rounding at the cut.
	for _, test := range []struct {
		in   uint32
		want uint32
	}{
		{16, 16},
		{17, 18},   // 10001: halfway rounds up
		{19, 20},   // 10011 rounds up
		{31, 32},   // carry into an extra bit
		{100, 104}, // 1100100 -> 1101000
		{1000, 1024},
	} {
		if got := compressCount(test.in); got != test.want {
			t.Fatalf("compressCount(%d) = %d, want %d", test.in, got, test.want)
		}
	}
	// Quantization is idempotent, order-preserving, and magnitude-preserving
	// to within one part in 2^(compressBitCount-1).
	prev := uint32(0)
	for count := uint32(1); count < 100000; count += 7 {
		q := compressCount(count)
		if compressCount(q) != q {
			t.Fatalf("compressCount(%d) = %d is not a fixed point", count, q)
		}
		if q < prev {
			t.Fatalf("compressCount is not monotonic at %d", count)
		}
		prev = q
		lo := count - count/8
		hi := count + count/8
		if (q < lo) || (q > hi) {
			t.Fatalf("compressCount(%d) = %d strays outside [%d, %d]", count, q, lo, hi)
		}
	}
}
