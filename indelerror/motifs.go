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
	"context"
	"encoding/json"
	"io/ioutil"

	"github.com/grailbio/base/file"
	"github.com/pkg/errors"
)

// Externalized rate-model format: a JSON object with a top-level "motifs"
// list, each entry giving the rates for one (repeatPatternSize, repeatCount)
// cell.  A single indelRate covers both directions; all supported model
// sources are direction-symmetric.

// Motif is one rate-table cell in the external model format.
type Motif struct {
	RepeatPatternSize int     `json:"repeatPatternSize"`
	RepeatCount       int     `json:"repeatCount"`
	IndelRate         float64 `json:"indelRate"`
	NoisyLocusRate    float64 `json:"noisyLocusRate"`
}

type modelFileJSON struct {
	Motifs []Motif `json:"motifs"`
}

// Motifs exports the table's cells in (patternSize, repeatCount) order, for
// serialization.  Round-tripping through a model file reproduces identical
// rates for every key.
func (rs *RateSet) Motifs() []Motif {
	var motifs []Motif
	for sizeIdx, row := range rs.patternRates {
		for countIdx, entry := range row {
			if entry == nil {
				continue
			}
			if entry.insertRate != entry.deleteRate {
				panic("indelerror.RateSet.Motifs: cannot serialize a direction-asymmetric rate table")
			}
			motifs = append(motifs, Motif{
				RepeatPatternSize: sizeIdx + 1,
				RepeatCount:       countIdx + 1,
				IndelRate:         entry.insertRate,
				NoisyLocusRate:    entry.noisyLocusRate,
			})
		}
	}
	return motifs
}

// parseRateSet builds an unfinalized RateSet from raw model-file bytes.
func parseRateSet(path string, data []byte) (*RateSet, error) {
	var parsed modelFileJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, errors.Wrapf(err, "failed to parse indel error model file %s", path)
	}
	if len(parsed.Motifs) == 0 {
		return nil, errors.Errorf("no motifs in indel error model file %s", path)
	}
	rates := NewRateSet()
	for _, motif := range parsed.Motifs {
		if motif.RepeatPatternSize < 1 || motif.RepeatCount < 1 {
			return nil, errors.Errorf("invalid motif (%d, %d) in indel error model file %s", motif.RepeatPatternSize, motif.RepeatCount, path)
		}
		if bad(motif.IndelRate) || bad(motif.NoisyLocusRate) {
			return nil, errors.Errorf("motif (%d, %d) in indel error model file %s has a rate outside [0, 1]", motif.RepeatPatternSize, motif.RepeatCount, path)
		}
		rates.AddRate(motif.RepeatPatternSize, motif.RepeatCount, motif.IndelRate, motif.IndelRate, motif.NoisyLocusRate)
	}
	return rates, nil
}

func bad(rate float64) bool {
	return rate < 0 || rate > 1
}

// ReadModelFile loads a motif JSON file into an unfinalized RateSet.
func ReadModelFile(ctx context.Context, path string) (rates *RateSet, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open indel error model file %s", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	data, err := ioutil.ReadAll(in.Reader(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read indel error model file %s", path)
	}
	return parseRateSet(path, data)
}

// WriteModelFile serializes the table's motifs to a JSON model file at path.
func WriteModelFile(ctx context.Context, path string, rates *RateSet) (err error) {
	data, err := json.MarshalIndent(modelFileJSON{Motifs: rates.Motifs()}, "", "  ")
	if err != nil {
		return
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return
	}
	defer func() {
		if e := out.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	if _, err = out.Writer(ctx).Write(append(data, '\n')); err != nil {
		return
	}
	return
}
