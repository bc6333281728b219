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

// Package continuous implements frequency-based ("continuous") allele
// calling: instead of fitting a diploid genotype, each allele's observation
// count is tested for significance against a per-base error-rate null, so
// arbitrary variant fractions (tumor subclones, mosaicism, contamination)
// can be scored.  All entry points are pure, synchronous, and safe to call
// concurrently on distinct loci.
package continuous

import (
	"math"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/student-t/varcall/indelerror"
)

// Opts are the calling thresholds.
type Opts struct {
	// MinHetVF is the variant-fraction threshold for reporting an allele.
	MinHetVF float64
	// MinQScore is the phred-scaled basecall-quality estimate defining the
	// per-base error rate of the significance-test null hypothesis.
	MinQScore int
}

// DefaultOpts matches the standard workflow configuration.
var DefaultOpts = Opts{
	MinHetVF:  0.01,
	MinQScore: 17,
}

// maxGenotypeQuality caps per-sample genotype quality scores.
const maxGenotypeQuality = 40

// assignPValue computes the probability of observing observedCallCount or
// more supporting calls out of coverage under the null hypothesis that every
// call is an independent error at the rate implied by estimatedQual.  The
// Poisson tail is evaluated through the regularized lower incomplete gamma
// function at (observedCallCount, coverage*errorRate).
func assignPValue(observedCallCount, coverage uint32, estimatedQual int) float64 {
	if observedCallCount == 0 {
		return 1.0
	}
	errorRate := PhredToErrorProb(estimatedQual)
	return mathext.GammaIncReg(float64(observedCallCount), float64(coverage)*errorRate)
}

// PoissonQScore converts the significance of callCount supporting calls out
// of coverage into a phred-scaled integer score, capped at maxQScore.  A
// p-value underflowing to zero (or below) saturates at the cap; zero
// supporting calls means p-value 1.0 and therefore score 0.
func PoissonQScore(callCount, coverage uint32, estimatedQual, maxQScore int) int {
	pValue := assignPValue(callCount, coverage, estimatedQual)
	if pValue <= 0 {
		return maxQScore
	}
	if qscore := ErrorProbToPhred(pValue); qscore < maxQScore {
		return qscore
	}
	return maxQScore
}

// logLikelihood returns the log binomial likelihood of observedCallCount
// successes in coverage trials at the given expected frequency, with zero
// observations defined as log(0).
func logLikelihood(coverage, observedCallCount uint32, expectedFrequency float64) float64 {
	if observedCallCount == 0 {
		return math.Inf(-1)
	}
	dist := distuv.Binomial{N: float64(coverage), P: expectedFrequency}
	return dist.LogProb(float64(observedCallCount))
}

// StrandBias measures how much better the alt-allele evidence is explained
// by a strand-specific model than by a single shared variant frequency: it
// pools the alt fraction across both strands, then returns
// max(logL(fwd), logL(rev)) - logL(combined).  Large values mean the allele
// is confined to one strand, the signature of an artifact.
func StrandBias(fwdAlt, revAlt, fwdOther, revOther uint32) float64 {
	expectedVf := float64(fwdAlt+revAlt) / float64(fwdAlt+revAlt+fwdOther+revOther)

	fwd := logLikelihood(fwdAlt+fwdOther, fwdAlt, expectedVf)
	rev := logLikelihood(revAlt+revOther, revAlt, expectedVf)
	both := logLikelihood(fwdAlt+fwdOther+revAlt+revOther, fwdAlt+revAlt, expectedVf)
	return math.Max(fwd, rev) - both
}

// CallSite scores one SNV site.  Every base whose variant fraction exceeds
// opts.MinHetVF (or every base, under forced output) gets an allele record
// with a significance score; non-reference qualifying alleles additionally
// get a strand-bias value computed from the per-read tally in calls, and
// flag the locus as a SNP.  If nothing qualifies, a reference-only record is
// force-emitted so the locus can still receive filter assignments
// downstream.
func CallSite(opts *Opts, locus *SiteLocus, calls []BaseCall) {
	totalDepth := locus.SpanningDeletions
	for base := 0; base < NBase; base++ {
		totalDepth += locus.AlleleCounts[base]
	}

	generateAlleleInfo := func(base byte, isForcedOutput bool) {
		count := locus.AlleleCounts[base]
		vf := safeFrac(count, totalDepth)
		if (vf <= opts.MinHetVF) && !isForcedOutput {
			return
		}
		allele := SiteAllele{
			Base:             base,
			TotalDepth:       totalDepth,
			ObservationCount: count,
		}
		allele.QScore = PoissonQScore(count, totalDepth, opts.MinQScore, maxGenotypeQuality)
		for sampleIndex := range locus.Samples {
			locus.Samples[sampleIndex].GQ = allele.QScore
		}
		if base != locus.RefBase {
			// The whole site is a SNP once any call above the VF threshold is
			// non-ref.
			locus.IsSNP = locus.IsSNP || vf > opts.MinHetVF

			var fwdAlt, revAlt, fwdOther, revOther uint32
			for _, bc := range calls {
				if bc.IsFwdStrand {
					if bc.Base == base {
						fwdAlt++
					} else {
						fwdOther++
					}
				} else if bc.Base == base {
					revAlt++
				} else {
					revOther++
				}
			}
			allele.StrandBias = StrandBias(fwdAlt, revAlt, fwdOther, revOther)
		}
		locus.Alleles = append(locus.Alleles, allele)
	}

	for base := byte(0); base < NBase; base++ {
		generateAlleleInfo(base, locus.IsForcedOutput)
	}
	if len(locus.Alleles) == 0 {
		// Force at least a reference call so that filters can be assigned to
		// the locus (filters live on the calls).
		generateAlleleInfo(locus.RefBase, true)
	}

	locus.AnyVariantAlleleQuality = 0
	for _, sample := range locus.Samples {
		if sample.GQ > locus.AnyVariantAlleleQuality {
			locus.AnyVariantAlleleQuality = sample.GQ
		}
	}
}

// CallIndel scores one candidate indel at a locus.  The allele is reportable
// if its confident-read variant fraction exceeds opts.MinHetVF, or under
// forced output.  The locus is heterozygous if more than one allele
// qualifies, or if the sole allele's frequency falls short of an
// overwhelming majority (1 - opts.MinHetVF), which is read as evidence of a
// second haplotype.
func CallIndel(opts *Opts, locus *IndelLocus, key indelerror.IndelKey, info indelerror.AlleleReportInfo, support IndelSupport) {
	vf := safeFrac(support.ConfidentIndelReads, support.TotalConfidentReads)
	if (vf > opts.MinHetVF) || locus.IsForcedOutput {
		allele := IndelAllele{
			Key:        key,
			ReportInfo: info,
			Support:    support,
		}
		allele.QScore = PoissonQScore(support.ConfidentIndelReads, support.TotalConfidentReads, opts.MinQScore, maxGenotypeQuality)
		for sampleIndex := range locus.Samples {
			locus.Samples[sampleIndex].GQ = allele.QScore
		}
		locus.Alleles = append(locus.Alleles, allele)
	}
	if len(locus.Alleles) != 0 {
		locus.IsHet = (len(locus.Alleles) > 1) || (locus.Alleles[0].VariantFrequency() < 1-opts.MinHetVF)
	}

	locus.AnyVariantAlleleQuality = 0
	for _, sample := range locus.Samples {
		if sample.GQ > locus.AnyVariantAlleleQuality {
			locus.AnyVariantAlleleQuality = sample.GQ
		}
	}
}
