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

// Package indelerror provides repeat-context-indexed indel error-rate
// models: a fixed log-linear homopolymer table, an adaptively-parameterized
// piecewise log-linear table, and tables deserialized from motif JSON files,
// all behind one rate-lookup interface.
package indelerror

import (
	"context"
	"fmt"
	"math"
)

// IndelKey describes the shape of a candidate indel allele.
type IndelKey struct {
	// InsertLength is the number of inserted bases (0 if none).
	InsertLength int
	// DeleteLength is the number of deleted reference bases (0 if none).
	DeleteLength int
}

// simpleType classifies the indel as a pure insertion or deletion.  ok is
// false for complex events (combined insertion+deletion, or neither).
func (k IndelKey) simpleType() (dir Direction, ok bool) {
	if k.InsertLength > 0 && k.DeleteLength == 0 {
		return Insert, true
	}
	if k.DeleteLength > 0 && k.InsertLength == 0 {
		return Delete, true
	}
	return 0, false
}

// AlleleReportInfo carries the repeat-context description of a candidate
// indel, as computed by the external alignment/pileup collaborator.
type AlleleReportInfo struct {
	// RepeatUnitLength is the length of the repeating sequence unit.
	RepeatUnitLength int
	// RefRepeatCount is how many times the unit repeats in the reference
	// allele.
	RefRepeatCount int
	// IndelRepeatCount is how many times the unit repeats in the indel
	// allele.
	IndelRepeatCount int
}

// Model names accepted by New when no model file is given.
const (
	ModelLogLinear       = "logLinear"
	ModelAdaptiveDefault = "adaptiveDefault"
)

// Model is a finalized indel error-rate model.  Alongside the configured
// rate table it always carries a candidate table (the fixed log-linear ramp)
// for use in candidate-generation contexts, where rates are deliberately
// decoupled from the genotyping-time model.
type Model struct {
	errorRates     *RateSet
	candidateRates *RateSet
}

// New constructs a Model from exactly one of three sources: if modelPath is
// empty, the builtin model named by modelName ("logLinear" or
// "adaptiveDefault"); otherwise the motif JSON file at modelPath.
// Construction faults (unrecognized name, unreadable or malformed file) are
// returned as errors naming the offender; they are not retryable.
func New(ctx context.Context, modelName, modelPath string) (m *Model, err error) {
	m = &Model{}
	if modelPath == "" {
		switch modelName {
		case ModelLogLinear:
			m.errorRates = logLinearRates()
		case ModelAdaptiveDefault:
			m.errorRates = adaptiveDefaultRates()
		default:
			return nil, fmt.Errorf("indelerror.New: unrecognized indel error model name: %q", modelName)
		}
	} else {
		if m.errorRates, err = ReadModelFile(ctx, modelPath); err != nil {
			return nil, err
		}
	}
	m.errorRates.Finalize()

	// Candidate generation always uses the log-linear ramp.
	m.candidateRates = logLinearRates()
	m.candidateRates.Finalize()
	return m, nil
}

// Rates returns the model's configured (non-candidate) rate table.
func (m *Model) Rates() *RateSet {
	return m.errorRates
}

// ErrorRates returns the two error probabilities attached to a candidate
// indel: refToIndel, the probability of the indel arising as a sequencing
// error on a reference-allele read, and indelToRef, the probability of the
// reverse error on an indel-allele read.
//
// Complex indels have no repeat-context model; they conservatively use the
// larger of the two baseline (repeat count 1) rates, symmetric in both
// directions.  Simple indels look up the reference repeat count in the
// indel's direction and the indel repeat count in the opposite direction.
func (m *Model) ErrorRates(key IndelKey, info AlleleReportInfo, useCandidateRates bool) (refToIndel, indelToRef float64) {
	rates := m.errorRates
	if useCandidateRates {
		rates = m.candidateRates
	}

	dir, simple := key.simpleType()
	if !simple {
		baselineInsert := rates.Rate(1, 1, Insert)
		baselineDelete := rates.Rate(1, 1, Delete)
		refToIndel = math.Max(baselineInsert, baselineDelete)
		indelToRef = refToIndel
		return
	}

	patternSize := maxInt(info.RepeatUnitLength, 1)
	refRepeatCount := maxInt(info.RefRepeatCount, 1)
	indelRepeatCount := maxInt(info.IndelRepeatCount, 1)

	refToIndel = rates.Rate(patternSize, refRepeatCount, dir)
	indelToRef = rates.Rate(patternSize, indelRepeatCount, dir.Opposite())
	return
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// logLinearRates builds the fixed homopolymer-only table: the error rate
// ramps log-linearly from a low rate at repeat count 1 to a high rate at the
// switch point, and is constant beyond it.
func logLinearRates() *RateSet {
	logLowErrorRate := math.Log(5e-5)
	logHighErrorRate := math.Log(3e-4)
	// Zero-indexed endpoint of the ramp; the constant high rate is hit at a
	// homopolymer length of repeatCountSwitchPoint+1.
	const repeatCountSwitchPoint = 15

	rates := NewRateSet()
	const repeatingPatternSize = 1
	for patternRepeatCount := 1; patternRepeatCount <= repeatCountSwitchPoint+1; patternRepeatCount++ {
		highErrorFrac := float64(minInt(patternRepeatCount-1, repeatCountSwitchPoint)) / float64(repeatCountSwitchPoint)
		errorRate := math.Exp((1-highErrorFrac)*logLowErrorRate + highErrorFrac*logHighErrorRate)
		rates.AddRate(repeatingPatternSize, patternRepeatCount, errorRate, errorRate, errorRate)
	}
	return rates
}

// adaptiveLowRepeatCount is the low interpolation anchor used by the
// adaptive-style builtin parameters.
const adaptiveLowRepeatCount = 2

// adaptiveDefaultRates builds preset rates shaped like adaptive estimates:
// a single non-STR rate at repeat count 1, plus per-pattern-size piecewise
// log-linear ramps for unit and dinucleotide repeats.  The parameters are
// geometric averages of adaptive estimates from typical samples, usable
// whenever adaptive estimation is impractical.
func adaptiveDefaultRates() *RateSet {
	const nonStrRate = 8e-3
	repeatingPatternSizes := []int{1, 2}
	logLowErrorRates := []float64{math.Log(4.9e-3), math.Log(1.0e-2)}
	logHighErrorRates := []float64{math.Log(4.5e-2), math.Log(1.8e-2)}
	repeatCountSwitchPoints := []int{16, 9}

	rates := NewRateSet()
	for i, repeatingPatternSize := range repeatingPatternSizes {
		model := NewAdaptiveModel(
			repeatingPatternSize,
			adaptiveLowRepeatCount,
			repeatCountSwitchPoints[i],
			LogParams{LogErrorRate: logLowErrorRates[i], LogNoisyLocusRate: logLowErrorRates[i]},
			LogParams{LogErrorRate: logHighErrorRates[i], LogNoisyLocusRate: logHighErrorRates[i]},
		)
		rates.AddRate(repeatingPatternSize, 1, nonStrRate, nonStrRate, nonStrRate)
		for patternRepeatCount := adaptiveLowRepeatCount; patternRepeatCount <= repeatCountSwitchPoints[i]; patternRepeatCount++ {
			errorRate := model.ErrorRate(patternRepeatCount)
			rates.AddRate(repeatingPatternSize, patternRepeatCount, errorRate, errorRate, errorRate)
		}
	}
	return rates
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
