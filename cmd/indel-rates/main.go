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
package main

/*
indel-rates materializes an indel error-rate model as a motif JSON file:
either one of the builtin models by name, or a re-serialization of an
existing model file (useful for normalizing hand-edited files).
*/

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/student-t/varcall/indelerror"
)

var (
	modelName = flag.String("model", indelerror.ModelAdaptiveDefault, "Builtin model name; 'logLinear' and 'adaptiveDefault' supported")
	modelFile = flag.String("model-file", "", "Existing motif JSON file to load instead of a builtin model")
	out       = flag.String("out", "", "Output motif JSON path (required)")
)

func indelRatesUsage() {
	fmt.Printf("Usage: %s [OPTIONS]\n", os.Args[0])
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = indelRatesUsage
	shutdown := grail.Init()
	defer shutdown()

	if *out == "" {
		log.Fatalf("-out is required")
	}

	ctx := vcontext.Background()
	model, err := indelerror.New(ctx, *modelName, *modelFile)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err = indelerror.WriteModelFile(ctx, *out, model.Rates()); err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("indel-rates: wrote %s", *out)
}
