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
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Strand indexes used throughout this package.  Fwd=0, Rev=1 matches the
// (base, strand) count-matrix convention used by our pileup tooling.
const (
	StrandFwd = 0
	StrandRev = 1
)

// qualCounts maps a phred-scaled basecall-quality level to a count of
// basecalls observed at that level.
type qualCounts map[byte]uint32

func (q qualCounts) sortedLevels() []byte {
	levels := make([]byte, 0, len(q))
	for level := range q {
		levels = append(levels, level)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })
	return levels
}

// StrandCounts summarizes the basecalls attributed to one strand at one
// genomic site: a quality-blind reference-allele count, and per-quality-level
// alternate-allele counts.  (Reference-allele quality levels are tracked in a
// separate per-context marginal; within a pattern, only the quality-vs-depth
// relationship of alt-bearing evidence matters for error-rate fitting.)
type StrandCounts struct {
	RefCount  uint32
	AltCounts qualCounts
}

func (s *StrandCounts) compress() {
	s.RefCount = compressCount(s.RefCount)
	for qual, count := range s.AltCounts {
		s.AltCounts[qual] = compressCount(count)
	}
}

// appendPacked appends a fixed-layout big-endian encoding of s to buf.  The
// encoding is designed so that bytes.Compare on two packed strands induces a
// total order (RefCount first, then alt entries in ascending quality order),
// and so that packed equality is exactly semantic equality.
func (s *StrandCounts) appendPacked(buf []byte) []byte {
	buf = append(buf, byte(s.RefCount>>24), byte(s.RefCount>>16), byte(s.RefCount>>8), byte(s.RefCount))
	buf = append(buf, byte(len(s.AltCounts)))
	for _, qual := range s.AltCounts.sortedLevels() {
		count := s.AltCounts[qual]
		buf = append(buf, qual, byte(count>>24), byte(count>>16), byte(count>>8), byte(count))
	}
	return buf
}

// unpackStrand is the inverse of appendPacked.  It returns the decoded
// StrandCounts and the number of bytes consumed.
func unpackStrand(packed string) (s StrandCounts, n int) {
	s.RefCount = uint32(packed[0])<<24 | uint32(packed[1])<<16 | uint32(packed[2])<<8 | uint32(packed[3])
	nAlt := int(packed[4])
	n = 5
	if nAlt != 0 {
		s.AltCounts = make(qualCounts, nAlt)
	}
	for i := 0; i < nAlt; i++ {
		qual := packed[n]
		s.AltCounts[qual] = uint32(packed[n+1])<<24 | uint32(packed[n+2])<<16 | uint32(packed[n+3])<<8 | uint32(packed[n+4])
		n += 5
	}
	return
}

func (s *StrandCounts) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "REF:\t%d\tALT:\t", s.RefCount)
	for i, qual := range s.AltCounts.sortedLevels() {
		if i != 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d:%d", qual, s.AltCounts[qual])
	}
	return sb.String()
}

// SiteObservation collects the raw, unquantized per-strand tallies for a
// single genomic site while a pileup is being scanned.  It is assembled one
// basecall at a time via AddRefCount/AddAltCount, then folded into a Counts
// table via CommitSiteObservation.  A SiteObservation may be Reset() and
// reused across sites to avoid per-site allocation.
type SiteObservation struct {
	Ref [2]qualCounts
	Alt [2]qualCounts
}

// NewSiteObservation returns an empty SiteObservation.
func NewSiteObservation() *SiteObservation {
	return &SiteObservation{
		Ref: [2]qualCounts{make(qualCounts), make(qualCounts)},
		Alt: [2]qualCounts{make(qualCounts), make(qualCounts)},
	}
}

// AddRefCount records one reference-supporting basecall at the given
// phred-scaled quality level.
func (o *SiteObservation) AddRefCount(fwdStrand bool, qual byte) {
	if fwdStrand {
		o.Ref[StrandFwd][qual]++
	} else {
		o.Ref[StrandRev][qual]++
	}
}

// AddAltCount records one alternate-allele-supporting basecall at the given
// phred-scaled quality level.
func (o *SiteObservation) AddAltCount(fwdStrand bool, qual byte) {
	if fwdStrand {
		o.Alt[StrandFwd][qual]++
	} else {
		o.Alt[StrandRev][qual]++
	}
}

// Empty reports whether no basecalls have been recorded.
func (o *SiteObservation) Empty() bool {
	for strand := 0; strand < 2; strand++ {
		if len(o.Ref[strand]) != 0 || len(o.Alt[strand]) != 0 {
			return false
		}
	}
	return true
}

// Reset clears the observation for reuse.
func (o *SiteObservation) Reset() {
	for strand := 0; strand < 2; strand++ {
		for qual := range o.Ref[strand] {
			delete(o.Ref[strand], qual)
		}
		for qual := range o.Alt[strand] {
			delete(o.Alt[strand], qual)
		}
	}
}

// observation is a compressed per-site observation pattern: a pair of
// per-strand summaries.  After canonicalize(), strand[0] >= strand[1] under
// the packed-bytes ordering, so a pattern and its strand-swapped twin map to
// the same key.  (Error-rate models are strand-symmetric, so this halves the
// distinct-pattern space at no cost.)
type observation struct {
	strand [2]StrandCounts
}

// canonicalize applies the zero-alt collapse rule, quantizes all counts, and
// swaps the strands into canonical order.  It must be called exactly once,
// before packed().
func (o *observation) canonicalize() {
	// If no alts exist, strand information is irrelevant to downstream
	// fitting, so the reference counts are summed into strand 0.  This merges
	// a large family of pure-reference patterns that differ only in their
	// ref-depth split across strands.
	if len(o.strand[0].AltCounts) == 0 && len(o.strand[1].AltCounts) == 0 {
		o.strand[0].RefCount += o.strand[1].RefCount
		o.strand[1].RefCount = 0
	}
	o.strand[0].compress()
	o.strand[1].compress()
	packed0 := o.strand[0].appendPacked(nil)
	packed1 := o.strand[1].appendPacked(nil)
	if bytes.Compare(packed0, packed1) < 0 {
		o.strand[0], o.strand[1] = o.strand[1], o.strand[0]
	}
}

// packed returns the canonical histogram key for o.  Go maps cannot key on
// map-bearing structs, so the packed byte-string doubles as the map key; the
// pattern is recovered with unpackObservation during export and dump.
func (o *observation) packed() string {
	buf := o.strand[0].appendPacked(nil)
	buf = o.strand[1].appendPacked(buf)
	return string(buf)
}

func unpackObservation(key string) (o observation) {
	var n int
	o.strand[0], n = unpackStrand(key)
	o.strand[1], _ = unpackStrand(key[n:])
	return
}
