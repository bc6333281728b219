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
	"math"
)

// LogParams are the log-space rate parameters at one anchor repeat count of
// an adaptive model.
type LogParams struct {
	LogErrorRate      float64
	LogNoisyLocusRate float64
}

// AdaptiveModel computes error rates for one repeating-pattern size as a
// piecewise log-linear function of repeat count: at or beyond the high
// anchor, the high-anchor rate; between the low and high anchors, a straight
// two-point fit between the (repeatCount, logRate) anchor points.  This is
// the parameterization produced by adaptive estimation from input data; the
// anchors are either estimated or preset.
type AdaptiveModel struct {
	repeatPatternSize int
	lowRepeatCount    int
	highRepeatCount   int
	lowParams         LogParams
	highParams        LogParams
}

// NewAdaptiveModel returns an AdaptiveModel with the given anchors.  The two
// anchor repeat counts must differ.
func NewAdaptiveModel(repeatPatternSize, lowRepeatCount, highRepeatCount int, lowParams, highParams LogParams) *AdaptiveModel {
	if lowRepeatCount == highRepeatCount {
		panic(fmt.Sprintf("indelerror.NewAdaptiveModel: degenerate anchors (both at repeat count %d)", lowRepeatCount))
	}
	return &AdaptiveModel{
		repeatPatternSize: repeatPatternSize,
		lowRepeatCount:    lowRepeatCount,
		highRepeatCount:   highRepeatCount,
		lowParams:         lowParams,
		highParams:        highParams,
	}
}

// RepeatPatternSize returns the repeating-pattern size this model covers.
func (m *AdaptiveModel) RepeatPatternSize() int { return m.repeatPatternSize }

// HighRepeatCount returns the repeat count at which the ramp switches to the
// constant high rate.
func (m *AdaptiveModel) HighRepeatCount() int { return m.highRepeatCount }

// ErrorRate returns the indel error rate at the given repeat count.
// repeatCount must be > 1; repeat count 1 (non-STR) is outside the ramp and
// handled separately by the table builders.
func (m *AdaptiveModel) ErrorRate(repeatCount int) float64 {
	if repeatCount <= 1 {
		panic(fmt.Sprintf("indelerror.AdaptiveModel.ErrorRate: repeat count %d outside ramp", repeatCount))
	}
	if repeatCount >= m.highRepeatCount {
		return math.Exp(m.highParams.LogErrorRate)
	}
	return math.Exp(linearFit(float64(repeatCount),
		float64(m.lowRepeatCount), m.lowParams.LogErrorRate,
		float64(m.highRepeatCount), m.highParams.LogErrorRate))
}

// NoisyLocusRate returns the noisy-locus rate at the given repeat count,
// interpolated identically to ErrorRate.
func (m *AdaptiveModel) NoisyLocusRate(repeatCount int) float64 {
	if repeatCount <= 1 {
		panic(fmt.Sprintf("indelerror.AdaptiveModel.NoisyLocusRate: repeat count %d outside ramp", repeatCount))
	}
	if repeatCount >= m.highRepeatCount {
		return math.Exp(m.highParams.LogNoisyLocusRate)
	}
	return math.Exp(linearFit(float64(repeatCount),
		float64(m.lowRepeatCount), m.lowParams.LogNoisyLocusRate,
		float64(m.highRepeatCount), m.highParams.LogNoisyLocusRate))
}

// linearFit evaluates at x the line through (x1, y1) and (x2, y2).  This is
// a two-point fit, not a regression.
func linearFit(x, x1, y1, x2, y2 float64) float64 {
	if x1 == x2 {
		panic("indelerror.linearFit: interpolation endpoints coincide")
	}
	return ((y2-y1)*x + (x2*y1 - x1*y2)) / (x2 - x1)
}
