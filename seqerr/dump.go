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
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/grailbio/base/tsv"
)

// Diagnostic dump of the aggregated tables.  Not used for correctness;
// intended for eyeballing whether a counts run looks sane (key occupancy,
// qual/depth marginals, skip counters).

func safeFrac(num uint64, denom int) float64 {
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}

func (cc *contextCounts) dump(w io.Writer) (err error) {
	const tag = "base-error"

	for reason, count := range cc.skips {
		if _, err = fmt.Fprintf(w, "%sCount: %d\n", skipReasonNames[reason], count); err != nil {
			return
		}
	}

	keyCount := len(cc.patterns)
	if _, err = fmt.Fprintf(w, "%sKeyCount: %d\n", tag, keyCount); err != nil {
		return
	}

	var refOnlyKeyCount, altOnlyKeyCount int
	var totalObservations uint64
	totalRef := make(map[byte]uint64, len(cc.refQuals))
	for qual, count := range cc.refQuals {
		totalRef[qual] = count
	}
	totalAlt := make(map[byte]uint64)
	totalByDepth := make(map[uint64]uint64)

	for key, obsCount := range cc.patterns {
		pattern := unpackObservation(key)
		totalObservations += obsCount

		depth := uint64(0)
		hasAlt := false
		for strand := 0; strand < 2; strand++ {
			s := &pattern.strand[strand]
			depth += uint64(s.RefCount)
			for qual, count := range s.AltCounts {
				totalAlt[qual] += uint64(count) * obsCount
				depth += uint64(count)
				hasAlt = true
			}
		}
		totalByDepth[depth] += obsCount

		if !hasAlt {
			refOnlyKeyCount++
		}
		if pattern.strand[0].RefCount == 0 && pattern.strand[1].RefCount == 0 {
			altOnlyKeyCount++
		}
	}

	if _, err = fmt.Fprintf(w, "%sRefOnlyKeyCount: %d\n%sAltOnlyKeyCount: %d\n%sTotalObservations: %d\n%sMeanKeyOccupancy: %v\n",
		tag, refOnlyKeyCount, tag, altOnlyKeyCount, tag, totalObservations, tag, safeFrac(totalObservations, keyCount)); err != nil {
		return
	}

	// qual marginal: union of levels seen on either allele.
	qualSet := make(map[byte]struct{})
	for qual := range totalRef {
		qualSet[qual] = struct{}{}
	}
	for qual := range totalAlt {
		qualSet[qual] = struct{}{}
	}
	quals := make([]byte, 0, len(qualSet))
	for qual := range qualSet {
		quals = append(quals, qual)
	}
	sort.Slice(quals, func(i, j int) bool { return quals[i] < quals[j] })

	outTSV := tsv.NewWriter(w)
	outTSV.WriteString(tag + "Qval")
	outTSV.WriteString("TotalRef")
	outTSV.WriteString("TotalAlt")
	if err = outTSV.EndLine(); err != nil {
		return
	}
	for _, qual := range quals {
		outTSV.WriteString("Q" + strconv.Itoa(int(qual)))
		outTSV.WriteString(strconv.FormatUint(totalRef[qual], 10))
		outTSV.WriteString(strconv.FormatUint(totalAlt[qual], 10))
		if err = outTSV.EndLine(); err != nil {
			return
		}
	}

	depths := make([]uint64, 0, len(totalByDepth))
	for depth := range totalByDepth {
		depths = append(depths, depth)
	}
	sort.Slice(depths, func(i, j int) bool { return depths[i] < depths[j] })
	for _, depth := range depths {
		outTSV.WriteString("DEPTH: " + strconv.FormatUint(depth, 10))
		outTSV.WriteString(strconv.FormatUint(totalByDepth[depth], 10))
		if err = outTSV.EndLine(); err != nil {
			return
		}
	}
	return outTSV.Flush()
}

// Dump writes a human-readable summary of the full table to w.
func (c *Counts) Dump(w io.Writer) (err error) {
	if _, err = fmt.Fprintf(w, "Total Basecall Contexts: %d\n", len(c.data)); err != nil {
		return
	}
	contexts := make([]Context, 0, len(c.data))
	for context := range c.data {
		contexts = append(contexts, context)
	}
	sort.Slice(contexts, func(i, j int) bool {
		if contexts[i].RepeatUnitLength != contexts[j].RepeatUnitLength {
			return contexts[i].RepeatUnitLength < contexts[j].RepeatUnitLength
		}
		return contexts[i].RepeatCount < contexts[j].RepeatCount
	})
	for _, context := range contexts {
		if _, err = fmt.Fprintf(w, "Basecall Context: %v\n", context); err != nil {
			return
		}
		if err = c.data[context].dump(w); err != nil {
			return
		}
	}
	return
}
