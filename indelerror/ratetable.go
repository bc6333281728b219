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
package indelerror

import (
	"fmt"
)

// Direction distinguishes the two simple indel types.
type Direction int

const (
	// Insert is an insertion relative to the reference allele.
	Insert Direction = iota
	// Delete is a deletion relative to the reference allele.
	Delete
)

func (d Direction) String() string {
	if d == Insert {
		return "insert"
	}
	return "delete"
}

// Opposite returns the direction of the same event viewed from the other
// allele: an insertion relative to reference is a deletion relative to the
// alternate allele, and vice versa.
func (d Direction) Opposite() Direction {
	if d == Insert {
		return Delete
	}
	return Insert
}

type rateEntry struct {
	insertRate     float64
	deleteRate     float64
	noisyLocusRate float64
}

// RateSet maps (repeatPatternSize, patternRepeatCount, direction) to
// calibrated indel error probabilities.  It is populated with AddRate, then
// locked with Finalize; lookups clamp out-of-range keys down to the largest
// modeled pattern size and repeat count, so e.g. a 20-mer homopolymer query
// against a table modeled through repeat count 16 returns the repeat-count-16
// rate.
type RateSet struct {
	// patternRates[size-1][repeatCount-1]; nil entries are unfilled cells.
	patternRates [][]*rateEntry
	finalized    bool
}

// NewRateSet returns an empty, unfinalized RateSet.
func NewRateSet() *RateSet {
	return &RateSet{}
}

// AddRate sets the rates for one (patternSize, repeatCount) cell.  Counts
// must be >= 1, rates must be probabilities, and a cell may only be set once;
// violations are construction bugs and halt.
func (rs *RateSet) AddRate(patternSize, repeatCount int, insertRate, deleteRate, noisyLocusRate float64) {
	if rs.finalized {
		panic("indelerror.RateSet.AddRate: rate table already finalized")
	}
	if patternSize < 1 || repeatCount < 1 {
		panic(fmt.Sprintf("indelerror.RateSet.AddRate: invalid key (%d, %d)", patternSize, repeatCount))
	}
	for _, rate := range [...]float64{insertRate, deleteRate, noisyLocusRate} {
		if rate < 0 || rate > 1 {
			panic(fmt.Sprintf("indelerror.RateSet.AddRate: rate %v is not a probability", rate))
		}
	}
	for len(rs.patternRates) < patternSize {
		rs.patternRates = append(rs.patternRates, nil)
	}
	row := rs.patternRates[patternSize-1]
	for len(row) < repeatCount {
		row = append(row, nil)
	}
	if row[repeatCount-1] != nil {
		panic(fmt.Sprintf("indelerror.RateSet.AddRate: cell (%d, %d) set twice", patternSize, repeatCount))
	}
	row[repeatCount-1] = &rateEntry{
		insertRate:     insertRate,
		deleteRate:     deleteRate,
		noisyLocusRate: noisyLocusRate,
	}
	rs.patternRates[patternSize-1] = row
}

// Finalize locks the table.  Every modeled pattern size must have a
// contiguous run of repeat counts starting at 1; a hole means the
// construction loop was wrong.
func (rs *RateSet) Finalize() {
	if rs.finalized {
		panic("indelerror.RateSet.Finalize: called twice")
	}
	if len(rs.patternRates) == 0 {
		panic("indelerror.RateSet.Finalize: empty rate table")
	}
	for sizeIdx, row := range rs.patternRates {
		if len(row) == 0 {
			panic(fmt.Sprintf("indelerror.RateSet.Finalize: pattern size %d has no rates", sizeIdx+1))
		}
		for countIdx, entry := range row {
			if entry == nil {
				panic(fmt.Sprintf("indelerror.RateSet.Finalize: missing rate for pattern size %d, repeat count %d", sizeIdx+1, countIdx+1))
			}
		}
	}
	rs.finalized = true
}

func (rs *RateSet) lookup(patternSize, repeatCount int) *rateEntry {
	if !rs.finalized {
		panic("indelerror.RateSet: lookup before Finalize")
	}
	if patternSize < 1 || repeatCount < 1 {
		panic(fmt.Sprintf("indelerror.RateSet: invalid lookup key (%d, %d)", patternSize, repeatCount))
	}
	if patternSize > len(rs.patternRates) {
		patternSize = len(rs.patternRates)
	}
	row := rs.patternRates[patternSize-1]
	if repeatCount > len(row) {
		repeatCount = len(row)
	}
	return row[repeatCount-1]
}

// Rate returns the error rate for the given repeat context and indel
// direction.
func (rs *RateSet) Rate(patternSize, repeatCount int, dir Direction) float64 {
	entry := rs.lookup(patternSize, repeatCount)
	if dir == Insert {
		return entry.insertRate
	}
	return entry.deleteRate
}

// NoisyLocusRate returns the expected fraction of loci in the given repeat
// context that are systematically noisy.
func (rs *RateSet) NoisyLocusRate(patternSize, repeatCount int) float64 {
	return rs.lookup(patternSize, repeatCount).noisyLocusRate
}
