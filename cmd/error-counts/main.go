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
error-counts merges the per-partition basecall error-counts files written by
independent genome-partition scans into one whole-genome table, and can dump
a human-readable summary of the result.
*/

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/student-t/varcall/seqerr"
)

var (
	out         = flag.String("out", "", "Merged counts output path; required unless -dump-only")
	dump        = flag.Bool("dump", false, "Print a summary of the merged table to stdout")
	dumpOnly    = flag.Bool("dump-only", false, "Dump without writing a merged file")
	parallelism = flag.Int("parallelism", 0, "Maximum number of simultaneous file-read jobs; 0 = runtime.NumCPU()")
)

func errorCountsUsage() {
	fmt.Printf("Usage: %s [OPTIONS] countspath1 [countspath2 ...]\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = errorCountsUsage
	shutdown := grail.Init()
	defer shutdown()

	paths := flag.Args()
	if len(paths) == 0 {
		log.Fatalf("Missing positional arguments (at least one counts path required)")
	}
	if (*out == "") && !*dumpOnly {
		log.Fatalf("Either -out or -dump-only is required")
	}
	nJob := *parallelism
	if nJob <= 0 {
		nJob = runtime.NumCPU()
	}

	ctx := vcontext.Background()
	log.Printf("error-counts: merging %d file(s) (%d jobs)", len(paths), nJob)
	counts, err := seqerr.MergeFiles(ctx, paths, nJob)
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("error-counts: merged table has %d context(s)", counts.NumContexts())

	if *out != "" {
		dst, err := file.Create(ctx, *out)
		if err != nil {
			log.Fatalf("%v", err)
		}
		if err = seqerr.WriteRio(counts, dst.Writer(ctx)); err != nil {
			log.Fatalf("%v", err)
		}
		if err = dst.Close(ctx); err != nil {
			log.Fatalf("%v", err)
		}
	}
	if *dump || *dumpOnly {
		if err := counts.Dump(os.Stdout); err != nil {
			log.Fatalf("%v", err)
		}
	}
}
