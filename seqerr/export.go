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
	"sort"
)

// ExportStrand is one strand of an exported observation pattern, with the
// alt counts expanded to a fixed-width vector aligned to
// ExportData.QualLevels.
type ExportStrand struct {
	RefCount  uint32
	AltCounts []uint32
}

// ExportPattern is one distinct observation pattern and its occurrence count.
type ExportPattern struct {
	Strand0 ExportStrand
	Strand1 ExportStrand
	Count   uint64
}

// ExportData is the tabular form of one repeat context's statistics, in the
// shape a rate-fitting procedure consumes: the sorted set of distinct
// basecall-quality levels, the reference-allele count at each level, and the
// distinct observation patterns with alt-count vectors indexed identically to
// QualLevels.
type ExportData struct {
	QualLevels []byte
	RefCounts  []uint64
	Patterns   []ExportPattern
}

// ExportContext produces the fitting-ready table for one repeat context.
// The output is deterministic given identical input: quality levels ascend,
// and patterns are emitted in packed-key order.
//
// Quality levels are taken from the reference-allele marginal only; a level
// exclusive to alt observations should be vanishingly rare, and indicates an
// aggregation bug upstream, so it halts.  Likewise for two distinct patterns
// colliding after export.
func (c *Counts) ExportContext(context Context) *ExportData {
	exportData := &ExportData{}
	cc := c.data[context]
	if cc == nil {
		return exportData
	}

	for qual := range cc.refQuals {
		exportData.QualLevels = append(exportData.QualLevels, qual)
	}
	sort.Slice(exportData.QualLevels, func(i, j int) bool { return exportData.QualLevels[i] < exportData.QualLevels[j] })

	qualIndex := make(map[byte]int, len(exportData.QualLevels))
	for i, qual := range exportData.QualLevels {
		qualIndex[qual] = i
		exportData.RefCounts = append(exportData.RefCounts, cc.refQuals[qual])
	}

	keys := make([]string, 0, len(cc.patterns))
	for key := range cc.patterns {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	toExportStrand := func(s *StrandCounts) (es ExportStrand) {
		es.RefCount = s.RefCount
		es.AltCounts = make([]uint32, len(exportData.QualLevels))
		for qual, count := range s.AltCounts {
			idx, ok := qualIndex[qual]
			if !ok {
				panic(fmt.Sprintf("seqerr.ExportContext: context %v has alt observations at quality level %d with no reference observations", context, qual))
			}
			es.AltCounts[idx] = count
		}
		return
	}

	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		pattern := unpackObservation(key)
		exportPattern := ExportPattern{
			Strand0: toExportStrand(&pattern.strand[0]),
			Strand1: toExportStrand(&pattern.strand[1]),
			Count:   cc.patterns[key],
		}
		exportKey := exportPattern.packed()
		if _, ok := seen[exportKey]; ok {
			panic(fmt.Sprintf("seqerr.ExportContext: context %v: distinct patterns collide after export", context))
		}
		seen[exportKey] = struct{}{}
		exportData.Patterns = append(exportData.Patterns, exportPattern)
	}
	return exportData
}

// packed returns a byte-string identity key for the exported pattern, used
// only for the collision check above.
func (p *ExportPattern) packed() string {
	var buf []byte
	for _, es := range [2]*ExportStrand{&p.Strand0, &p.Strand1} {
		buf = append(buf, byte(es.RefCount>>24), byte(es.RefCount>>16), byte(es.RefCount>>8), byte(es.RefCount))
		for _, count := range es.AltCounts {
			buf = append(buf, byte(count>>24), byte(count>>16), byte(count>>8), byte(count))
		}
	}
	return string(buf)
}
