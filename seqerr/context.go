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
)

// Context identifies the genomic repeat context a basecall observation was
// made in: a repeating sequence unit of RepeatUnitLength bases, repeated
// RepeatCount times (e.g. {1, 5} is a length-5 homopolymer, {2, 3} is a
// dinucleotide repeat x3).  It is the aggregation key for learned error
// statistics, and the lookup key in fitted rate tables.
type Context struct {
	RepeatUnitLength uint32
	RepeatCount      uint32
}

func (c Context) String() string {
	return fmt.Sprintf("%dx%d", c.RepeatUnitLength, c.RepeatCount)
}
