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
package continuous_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/student-t/varcall/continuous"
	"github.com/student-t/varcall/indelerror"
)

func TestPhredConversions(t *testing.T) {
	assert.InDelta(t, 0.1, continuous.PhredToErrorProb(10), 1e-15)
	assert.InDelta(t, 0.01, continuous.PhredToErrorProb(20), 1e-15)
	assert.Equal(t, 1.0, continuous.PhredToErrorProb(0))

	assert.Equal(t, 10, continuous.ErrorProbToPhred(0.1))
	assert.Equal(t, 3, continuous.ErrorProbToPhred(0.5))
	assert.Equal(t, 0, continuous.ErrorProbToPhred(1.0))

	assert.Panics(t, func() { continuous.PhredToErrorProb(-1) })
	assert.Panics(t, func() { continuous.ErrorProbToPhred(0) })
	assert.Panics(t, func() { continuous.ErrorProbToPhred(1.1) })
}

func TestPoissonQScore(t *testing.T) {
	// No supporting calls: p-value 1.0, score 0.
	assert.Equal(t, 0, continuous.PoissonQScore(0, 30, 30, 40))
	// Every call supports the allele at high quality: saturates at the cap.
	assert.Equal(t, 40, continuous.PoissonQScore(30, 30, 30, 40))
	// The cap is respected exactly.
	assert.Equal(t, 12, continuous.PoissonQScore(30, 30, 30, 12))

	// More support at fixed coverage never lowers the score.
	prev := 0
	for count := uint32(1); count <= 50; count++ {
		score := continuous.PoissonQScore(count, 100, 17, 40)
		require.True(t, score >= prev, "count %d: %d < %d", count, score, prev)
		prev = score
	}
}

func TestStrandBias(t *testing.T) {
	// Alt evidence confined to one strand scores far from zero; evidence
	// split evenly across strands stays near zero.
	biased := continuous.StrandBias(10, 0, 0, 10)
	balanced := continuous.StrandBias(5, 5, 5, 5)
	assert.True(t, math.Abs(biased) > math.Abs(balanced)+3, "biased %v, balanced %v", biased, balanced)
	assert.True(t, math.Abs(balanced) < 1.0, "balanced %v", balanced)

	// Symmetric in strand labels.
	assert.Equal(t, continuous.StrandBias(10, 0, 0, 10), continuous.StrandBias(0, 10, 10, 0))
}

// snpCalls builds a per-read tally with the given number of alt-base calls on
// each strand, padded to depth with ref-base calls split across strands.
func snpCalls(altBase byte, fwdAlt, revAlt, depth int) []continuous.BaseCall {
	calls := make([]continuous.BaseCall, 0, depth)
	for i := 0; i < fwdAlt; i++ {
		calls = append(calls, continuous.BaseCall{Base: altBase, IsFwdStrand: true, Qual: 30})
	}
	for i := 0; i < revAlt; i++ {
		calls = append(calls, continuous.BaseCall{Base: altBase, IsFwdStrand: false, Qual: 30})
	}
	for i := len(calls); i < depth; i++ {
		calls = append(calls, continuous.BaseCall{Base: continuous.BaseA, IsFwdStrand: i%2 == 0, Qual: 30})
	}
	return calls
}

func TestCallSiteSNP(t *testing.T) {
	opts := continuous.Opts{MinHetVF: 0.05, MinQScore: 17}
	locus := &continuous.SiteLocus{
		RefBase: continuous.BaseA,
		Samples: make([]continuous.SampleInfo, 1),
	}
	locus.AlleleCounts[continuous.BaseA] = 90
	locus.AlleleCounts[continuous.BaseT] = 10

	continuous.CallSite(&opts, locus, snpCalls(continuous.BaseT, 5, 5, 100))

	// Both the reference allele (vf 0.9) and the alt (vf 0.1) clear the
	// threshold.
	require.Len(t, locus.Alleles, 2)
	refAllele, altAllele := locus.Alleles[0], locus.Alleles[1]
	assert.Equal(t, continuous.BaseA, refAllele.Base)
	assert.Equal(t, continuous.BaseT, altAllele.Base)
	assert.Equal(t, uint32(100), altAllele.TotalDepth)
	assert.Equal(t, uint32(10), altAllele.ObservationCount)
	// 10/100 supporting calls against a q17 error null is decisive.
	assert.Equal(t, 40, altAllele.QScore)
	assert.Equal(t, 40, refAllele.QScore)
	assert.True(t, locus.IsSNP)
	assert.Equal(t, 40, locus.AnyVariantAlleleQuality)
	assert.Equal(t, 40, locus.Samples[0].GQ)
	// Balanced strands: small bias statistic on the alt allele.
	assert.True(t, math.Abs(altAllele.StrandBias) < 1.0, "bias %v", altAllele.StrandBias)
	assert.Equal(t, 0.0, refAllele.StrandBias)
	assert.Equal(t, "PASS", locus.Filters.String())
}

func TestCallSiteBelowThreshold(t *testing.T) {
	opts := continuous.Opts{MinHetVF: 0.2, MinQScore: 17}
	locus := &continuous.SiteLocus{
		RefBase: continuous.BaseA,
		Samples: make([]continuous.SampleInfo, 1),
	}
	locus.AlleleCounts[continuous.BaseA] = 90
	locus.AlleleCounts[continuous.BaseT] = 10

	continuous.CallSite(&opts, locus, snpCalls(continuous.BaseT, 5, 5, 100))

	// Only the reference allele qualifies; the site is not a SNP.
	require.Len(t, locus.Alleles, 1)
	assert.Equal(t, continuous.BaseA, locus.Alleles[0].Base)
	assert.False(t, locus.IsSNP)
}

func TestCallSiteSpanningDeletions(t *testing.T) {
	// Spanning deletions dilute variant fractions and inflate coverage.
	opts := continuous.Opts{MinHetVF: 0.1, MinQScore: 17}
	locus := &continuous.SiteLocus{
		RefBase:           continuous.BaseA,
		SpanningDeletions: 60,
		Samples:           make([]continuous.SampleInfo, 1),
	}
	locus.AlleleCounts[continuous.BaseA] = 20
	locus.AlleleCounts[continuous.BaseT] = 20

	continuous.CallSite(&opts, locus, snpCalls(continuous.BaseT, 10, 10, 40))

	require.Len(t, locus.Alleles, 2)
	assert.Equal(t, uint32(100), locus.Alleles[0].TotalDepth)
	assert.True(t, locus.IsSNP)
}

func TestCallSiteEmptyForcesRefRecord(t *testing.T) {
	opts := continuous.DefaultOpts
	locus := &continuous.SiteLocus{
		RefBase: continuous.BaseG,
		Samples: make([]continuous.SampleInfo, 1),
	}

	continuous.CallSite(&opts, locus, nil)

	// Nothing qualifies, so a reference record is emitted anyway to host
	// downstream filter assignments.
	require.Len(t, locus.Alleles, 1)
	assert.Equal(t, continuous.BaseG, locus.Alleles[0].Base)
	assert.Equal(t, 0, locus.Alleles[0].QScore)
	assert.False(t, locus.IsSNP)
	assert.Equal(t, 0, locus.AnyVariantAlleleQuality)
}

func TestCallSiteForcedOutput(t *testing.T) {
	opts := continuous.DefaultOpts
	locus := &continuous.SiteLocus{
		RefBase:        continuous.BaseA,
		IsForcedOutput: true,
		Samples:        make([]continuous.SampleInfo, 1),
	}
	locus.AlleleCounts[continuous.BaseA] = 50

	continuous.CallSite(&opts, locus, nil)

	// Forced output reports every base, but zero-support alt bases still
	// don't mark the site as a SNP.
	require.Len(t, locus.Alleles, continuous.NBase)
	assert.False(t, locus.IsSNP)
}

func TestCallIndelDominant(t *testing.T) {
	opts := continuous.Opts{MinHetVF: 0.2, MinQScore: 17}
	locus := &continuous.IndelLocus{Samples: make([]continuous.SampleInfo, 1)}
	key := indelerror.IndelKey{DeleteLength: 2}
	info := indelerror.AlleleReportInfo{RepeatUnitLength: 1, RefRepeatCount: 7, IndelRepeatCount: 5}

	continuous.CallIndel(&opts, locus, key, info, continuous.IndelSupport{
		ConfidentIndelReads: 29,
		TotalConfidentReads: 30,
	})

	require.Len(t, locus.Alleles, 1)
	assert.Equal(t, key, locus.Alleles[0].Key)
	assert.Equal(t, 40, locus.Alleles[0].QScore)
	assert.InDelta(t, 29.0/30.0, locus.Alleles[0].VariantFrequency(), 1e-15)
	// An overwhelming-majority allele reads as homozygous.
	assert.False(t, locus.IsHet)
	assert.Equal(t, 40, locus.AnyVariantAlleleQuality)
}

func TestCallIndelHet(t *testing.T) {
	opts := continuous.Opts{MinHetVF: 0.2, MinQScore: 17}
	locus := &continuous.IndelLocus{Samples: make([]continuous.SampleInfo, 1)}

	continuous.CallIndel(&opts, locus, indelerror.IndelKey{InsertLength: 1}, indelerror.AlleleReportInfo{},
		continuous.IndelSupport{ConfidentIndelReads: 15, TotalConfidentReads: 30})

	// vf 0.5 falls short of the 0.8 majority threshold: a second haplotype
	// is inferred.
	require.Len(t, locus.Alleles, 1)
	assert.True(t, locus.IsHet)
}

func TestCallIndelBelowThreshold(t *testing.T) {
	opts := continuous.Opts{MinHetVF: 0.2, MinQScore: 17}
	locus := &continuous.IndelLocus{Samples: make([]continuous.SampleInfo, 1)}

	continuous.CallIndel(&opts, locus, indelerror.IndelKey{InsertLength: 1}, indelerror.AlleleReportInfo{},
		continuous.IndelSupport{ConfidentIndelReads: 5, TotalConfidentReads: 100})

	assert.Empty(t, locus.Alleles)
	assert.False(t, locus.IsHet)
	assert.Equal(t, 0, locus.AnyVariantAlleleQuality)
}

func TestCallIndelForced(t *testing.T) {
	opts := continuous.Opts{MinHetVF: 0.2, MinQScore: 17}
	locus := &continuous.IndelLocus{
		IsForcedOutput: true,
		Samples:        make([]continuous.SampleInfo, 1),
	}

	continuous.CallIndel(&opts, locus, indelerror.IndelKey{InsertLength: 1}, indelerror.AlleleReportInfo{},
		continuous.IndelSupport{ConfidentIndelReads: 0, TotalConfidentReads: 30})

	require.Len(t, locus.Alleles, 1)
	assert.Equal(t, 0, locus.Alleles[0].QScore)
}

func TestFilterKeeper(t *testing.T) {
	var filters continuous.FilterKeeper
	assert.Equal(t, "PASS", filters.String())

	filters.Set(continuous.FilterBCNoise)
	filters.Set(continuous.FilterHighDepth)
	assert.True(t, filters.Test(continuous.FilterBCNoise))
	assert.False(t, filters.Test(continuous.FilterLowEVS))
	assert.Equal(t, "HighDepth;BCNoise", filters.String())

	assert.Panics(t, func() { filters.Set(continuous.FilterHighDepth) })

	filters.Clear()
	assert.Equal(t, "PASS", filters.String())

	// SNV and indel basecall-noise filters share a label.
	var indelFilters continuous.FilterKeeper
	indelFilters.Set(continuous.FilterIndelBCNoise)
	assert.Equal(t, "BCNoise", indelFilters.String())
}
