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
	"math"
)

// Phred-math helpers.  These may migrate to a more central location if other
// callers appear.

// PhredToErrorProb converts a phred-scaled quality value to an error
// probability.
func PhredToErrorProb(qscore int) float64 {
	if qscore < 0 {
		panic(fmt.Sprintf("continuous.PhredToErrorProb: negative qscore %d", qscore))
	}
	return math.Pow(10, -float64(qscore)/10)
}

// ErrorProbToPhred converts an error probability in (0, 1] to a rounded
// phred-scaled integer score.
func ErrorProbToPhred(prob float64) int {
	if (prob <= 0) || (prob > 1) {
		panic(fmt.Sprintf("continuous.ErrorProbToPhred: probability %v out of range", prob))
	}
	return int(math.Floor(-10*math.Log10(prob) + 0.5))
}
