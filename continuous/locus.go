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
	"github.com/student-t/varcall/indelerror"
)

// Locus and allele records exchanged with the external VCF/formatting
// collaborator.  A record is created once per examined position, mutated
// only by CallSite/CallIndel, and discarded after being handed downstream.

// SampleInfo holds per-sample genotyping state for a locus.
type SampleInfo struct {
	// GQ is the sample's genotype quality at this locus.
	GQ int
}

// SiteAllele is one reportable allele at a SNV site.
type SiteAllele struct {
	// Base is the allele's base identity.
	Base byte
	// TotalDepth is the site depth used as the significance-test coverage.
	TotalDepth uint32
	// ObservationCount is the number of basecalls supporting the allele.
	ObservationCount uint32
	// QScore is the phred-scaled significance score.
	QScore int
	// StrandBias is the log-likelihood-ratio strand-bias statistic; only
	// meaningful for non-reference alleles.
	StrandBias float64
}

// SiteLocus is the per-position record for SNV calling.
type SiteLocus struct {
	// RefBase is the reference base at this position.
	RefBase byte
	// AlleleCounts are the per-base observation counts.
	AlleleCounts [NBase]uint32
	// SpanningDeletions is the number of reads whose deletions span this
	// position; they contribute to total depth but support no base.
	SpanningDeletions uint32
	// IsForcedOutput requests reporting regardless of significance
	// thresholds.
	IsForcedOutput bool

	Samples []SampleInfo

	// Fields below are filled in by CallSite.
	Alleles                 []SiteAllele
	IsSNP                   bool
	AnyVariantAlleleQuality int
	Filters                 FilterKeeper
}

// IndelSupport carries the read-support summary for one candidate indel in
// one sample.
type IndelSupport struct {
	// ConfidentIndelReads is the number of reads confidently supporting the
	// indel allele.
	ConfidentIndelReads uint32
	// TotalConfidentReads is the number of reads confidently supporting any
	// allele at the locus.
	TotalConfidentReads uint32
}

// IndelAllele is one reportable indel allele.
type IndelAllele struct {
	Key        indelerror.IndelKey
	ReportInfo indelerror.AlleleReportInfo
	Support    IndelSupport
	// QScore is the phred-scaled significance score.
	QScore int
}

// VariantFrequency returns the allele's confident-read variant fraction.
func (a *IndelAllele) VariantFrequency() float64 {
	return safeFrac(a.Support.ConfidentIndelReads, a.Support.TotalConfidentReads)
}

// IndelLocus is the per-position record for indel calling.
type IndelLocus struct {
	// IsForcedOutput requests reporting regardless of significance
	// thresholds.
	IsForcedOutput bool

	Samples []SampleInfo

	// Fields below are filled in by CallIndel.
	Alleles                 []IndelAllele
	IsHet                   bool
	AnyVariantAlleleQuality int
	Filters                 FilterKeeper
}

func safeFrac(num, denom uint32) float64 {
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}
