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
package continuous

import (
	"fmt"
	"strings"
)

// Filter is a VCF filter reason.  The enumeration is closed; downstream
// formatting renders the set reasons as a semicolon-joined label list.
type Filter int

const (
	// FilterHighDepth marks loci with anomalously high depth (SNVs and
	// indels).
	FilterHighDepth Filter = iota
	// FilterLowEVS marks loci below the empirical variant-score threshold
	// (SNVs and indels).
	FilterLowEVS
	// FilterBCNoise marks SNVs in noisy basecall context.
	FilterBCNoise
	// FilterSpanDel marks SNVs overlapped by too many spanning deletions.
	FilterSpanDel
	// FilterQSSRef marks SNVs whose site score doesn't beat reference.
	FilterQSSRef
	// FilterRepeat marks indels in excessive repeat context.
	FilterRepeat
	// FilterIHpol marks indels in long interrupted homopolymers.
	FilterIHpol
	// FilterIndelBCNoise marks indels in noisy basecall context.
	FilterIndelBCNoise
	// FilterQSIRef marks indels whose score doesn't beat reference.
	FilterQSIRef
	// FilterNonref marks loci dominated by a non-reference disagreement.
	FilterNonref

	nFilter
)

func (f Filter) label() string {
	switch f {
	case FilterHighDepth:
		return "HighDepth"
	case FilterLowEVS:
		return "LowEVS"
	case FilterBCNoise, FilterIndelBCNoise:
		return "BCNoise"
	case FilterSpanDel:
		return "SpanDel"
	case FilterQSSRef:
		return "QSS_ref"
	case FilterRepeat:
		return "Repeat"
	case FilterIHpol:
		return "iHpol"
	case FilterQSIRef:
		return "QSI_ref"
	case FilterNonref:
		return "Nonref"
	default:
		panic(fmt.Sprintf("continuous.Filter: unknown filter id %d", int(f)))
	}
}

// FilterKeeper tracks which filter reasons have been assigned to a record.
// The zero value has no filters set.
type FilterKeeper struct {
	bits uint16
}

// Set marks the given filter.  Setting the same filter twice on one record
// is a logic fault in the caller, not a runtime condition, and halts.
func (k *FilterKeeper) Set(f Filter) {
	if k.Test(f) {
		panic(fmt.Sprintf("continuous.FilterKeeper.Set: filter %s set twice", f.label()))
	}
	k.bits |= 1 << uint(f)
}

// Test reports whether the given filter is set.
func (k *FilterKeeper) Test(f Filter) bool {
	return k.bits&(1<<uint(f)) != 0
}

// Clear resets the record to no-filters.
func (k *FilterKeeper) Clear() {
	k.bits = 0
}

// String renders the set filters as a semicolon-joined label list, or "PASS"
// when none are set.
func (k *FilterKeeper) String() string {
	if k.bits == 0 {
		return "PASS"
	}
	var labels []string
	for f := Filter(0); f < nFilter; f++ {
		if k.Test(f) {
			labels = append(labels, f.label())
		}
	}
	return strings.Join(labels, ";")
}
