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

// Problem:
// To fit empirical basecall error-rate models, we need to know, for millions
// of genomic sites, how alt-allele evidence relates to depth and basecall
// quality -- but storing every raw per-site observation is out of the
// question.
//
// Implementation strategy:
// Each site's raw tallies are immediately folded into a per-repeat-context
// histogram of *observation patterns*: the per-strand ref/alt counts are
// quantized to a few significant bits, strand order is canonicalized (error
// models are strand-symmetric), and sites with no alt evidence at all
// collapse their ref counts onto one strand.  The distinct-pattern space is
// therefore small and bounded regardless of genome size, and a whole-genome
// table is just a map from packed pattern to occurrence count.
//
// The resulting Counts type is a commutative monoid: NewCounts() is the
// identity and Merge is the associative, commutative combine.  Each genome
// partition is scanned by one worker into a private Counts (no internal
// locking; a Counts must be owned by a single goroutine while mutable), and
// the partial tables are merged post-hoc in any order.  Merging the same
// partition twice double-counts; avoiding that is the scheduler's job.

// SkipReason describes why a scanned site was deliberately excluded from the
// error statistics.
type SkipReason int

const (
	// SkipExcludedRegion means the site fell in a user-excluded region.
	SkipExcludedRegion SkipReason = iota
	// SkipLowDepth means the site had too little depth to be informative.
	SkipLowDepth
	// SkipEmptySite means no usable basecalls were observed at the site.
	SkipEmptySite
	// SkipHighNoise means the site looked too noisy to be a clean error
	// observation (e.g. suspected mapping artifact).
	SkipHighNoise

	nSkipReason
)

var skipReasonNames = [...]string{
	"excludedRegionSkipped",
	"depthSkipped",
	"emptySkipped",
	"noiseSkipped",
}

// contextCounts holds everything learned about one repeat context:
// the observation-pattern histogram, the quality-resolved reference-allele
// marginal, and the skip-reason counters.
type contextCounts struct {
	// patterns maps a packed canonical observation pattern to its occurrence
	// count.
	patterns map[string]uint64
	// refQuals maps a basecall-quality level to the total number of
	// reference-allele observations at that level.  (Alt-allele quality is
	// already resolved inside the patterns.)
	refQuals map[byte]uint64
	skips    [nSkipReason]uint64
}

func newContextCounts() *contextCounts {
	return &contextCounts{
		patterns: make(map[string]uint64),
		refQuals: make(map[byte]uint64),
	}
}

// addObservation folds one site's raw tallies into the histogram.
func (cc *contextCounts) addObservation(obs *SiteObservation) {
	var pattern observation
	for strand := 0; strand < 2; strand++ {
		for qual, count := range obs.Ref[strand] {
			cc.refQuals[qual] += uint64(count)
			// reference-allele quality is dropped from the compressed pattern
			pattern.strand[strand].RefCount += count
		}
		if len(obs.Alt[strand]) != 0 {
			altCopy := make(qualCounts, len(obs.Alt[strand]))
			for qual, count := range obs.Alt[strand] {
				altCopy[qual] = count
			}
			pattern.strand[strand].AltCounts = altCopy
		}
	}
	pattern.canonicalize()
	cc.patterns[pattern.packed()]++
}

func (cc *contextCounts) merge(other *contextCounts) {
	for key, count := range other.patterns {
		cc.patterns[key] += count
	}
	for qual, count := range other.refQuals {
		cc.refQuals[qual] += count
	}
	for i := range cc.skips {
		cc.skips[i] += other.skips[i]
	}
}

// Counts accumulates per-repeat-context basecall observation patterns for
// empirical error-rate model fitting.  See the package comment above for the
// aggregation and concurrency model.
type Counts struct {
	data map[Context]*contextCounts
}

// NewCounts returns an empty Counts table (the merge identity).
func NewCounts() *Counts {
	return &Counts{data: make(map[Context]*contextCounts)}
}

func (c *Counts) getContext(context Context) *contextCounts {
	cc := c.data[context]
	if cc == nil {
		cc = newContextCounts()
		c.data[context] = cc
	}
	return cc
}

// CommitSiteObservation quantizes, canonicalizes, and counts one site's raw
// per-strand tallies under the given repeat context.  obs is not retained and
// may be Reset() and reused by the caller.
func (c *Counts) CommitSiteObservation(context Context, obs *SiteObservation) {
	c.getContext(context).addObservation(obs)
}

// RecordSkip notes that a site in the given context was deliberately excluded
// from the statistics, for diagnostic reporting.
func (c *Counts) RecordSkip(context Context, reason SkipReason) {
	c.getContext(context).skips[reason]++
}

// NumContexts returns the number of distinct repeat contexts observed.
func (c *Counts) NumContexts() int {
	return len(c.data)
}

// Merge folds other into c.  Merge is associative and commutative; absent
// keys on either side are treated as zero.  other must not be mutated
// concurrently.
func (c *Counts) Merge(other *Counts) {
	for context, otherCC := range other.data {
		cc := c.data[context]
		if cc == nil {
			c.data[context] = otherCC.clone()
		} else {
			cc.merge(otherCC)
		}
	}
}

func (cc *contextCounts) clone() *contextCounts {
	out := newContextCounts()
	out.merge(cc)
	return out
}
