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
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/base/traverse"
)

// Each genome partition is scanned into a private Counts, serialized to a
// recordio file (one record per repeat context, zstd-compressed), and the
// per-partition files are merged post-hoc into the whole-genome table.

const trailerVersion = 1

func init() {
	recordiozstd.Init()
}

// countsRecord is one repeat context's worth of data, the recordio record
// unit.
type countsRecord struct {
	context Context
	counts  *contextCounts
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func marshalCountsRecord(scratch []byte, v interface{}) ([]byte, error) {
	rec := v.(*countsRecord)
	buf := scratch[:0]
	buf = appendUint32(buf, rec.context.RepeatUnitLength)
	buf = appendUint32(buf, rec.context.RepeatCount)
	for _, count := range rec.counts.skips {
		buf = appendUint64(buf, count)
	}
	buf = appendUint32(buf, uint32(len(rec.counts.refQuals)))
	// Iteration order doesn't matter here; merge is order-insensitive and the
	// decoded maps compare equal regardless.
	for qual, count := range rec.counts.refQuals {
		buf = append(buf, qual)
		buf = appendUint64(buf, count)
	}
	buf = appendUint32(buf, uint32(len(rec.counts.patterns)))
	for key, count := range rec.counts.patterns {
		buf = appendUint32(buf, uint32(len(key)))
		buf = append(buf, key...)
		buf = appendUint64(buf, count)
	}
	return buf, nil
}

func unmarshalCountsRecord(in []byte) (out interface{}, err error) {
	defer func() {
		if recover() != nil {
			out, err = nil, fmt.Errorf("seqerr: truncated counts record")
		}
	}()
	rec := &countsRecord{counts: newContextCounts()}
	rec.context.RepeatUnitLength = binary.LittleEndian.Uint32(in[:4])
	rec.context.RepeatCount = binary.LittleEndian.Uint32(in[4:8])
	offset := 8
	for i := range rec.counts.skips {
		rec.counts.skips[i] = binary.LittleEndian.Uint64(in[offset : offset+8])
		offset += 8
	}
	nRefQual := int(binary.LittleEndian.Uint32(in[offset : offset+4]))
	offset += 4
	for i := 0; i < nRefQual; i++ {
		qual := in[offset]
		rec.counts.refQuals[qual] = binary.LittleEndian.Uint64(in[offset+1 : offset+9])
		offset += 9
	}
	nPattern := int(binary.LittleEndian.Uint32(in[offset : offset+4]))
	offset += 4
	for i := 0; i < nPattern; i++ {
		keyLen := int(binary.LittleEndian.Uint32(in[offset : offset+4]))
		offset += 4
		key := string(in[offset : offset+keyLen])
		offset += keyLen
		rec.counts.patterns[key] = binary.LittleEndian.Uint64(in[offset : offset+8])
		offset += 8
	}
	return rec, nil
}

func countsRioTrailer(numContexts int) []byte {
	var buffer bytes.Buffer
	if err := binary.Write(&buffer, binary.LittleEndian, int64(trailerVersion)); err != nil {
		panic("couldn't write trailer version")
	}
	if err := binary.Write(&buffer, binary.LittleEndian, int64(numContexts)); err != nil {
		panic("couldn't write numContexts to trailer")
	}
	return buffer.Bytes()
}

func parseCountsRioTrailer(trailer []byte) (int64, error) {
	r := bytes.NewReader(trailer)
	var version, numContexts int64
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return 0, err
	}
	if version != trailerVersion {
		return 0, fmt.Errorf("unrecognized trailer version: got %d, want %d", version, trailerVersion)
	}
	if err := binary.Read(r, binary.LittleEndian, &numContexts); err != nil {
		return 0, err
	}
	return numContexts, nil
}

// WriteRio writes the counts table to the given writer, using recordio.
func WriteRio(counts *Counts, out io.Writer) error {
	recordWriter := recordio.NewWriter(out, recordio.WriterOpts{
		Marshal:      marshalCountsRecord,
		Transformers: []string{recordiozstd.Name},
	})
	recordWriter.AddHeader(recordio.KeyTrailer, true)
	for context, cc := range counts.data {
		recordWriter.Append(&countsRecord{context: context, counts: cc})
	}
	recordWriter.SetTrailer(countsRioTrailer(len(counts.data)))
	return recordWriter.Finish()
}

// ReadRio reads a counts table from a recordio stream written by WriteRio.
func ReadRio(rs io.ReadSeeker) (counts *Counts, err error) {
	scanner := recordio.NewScanner(rs, recordio.ScannerOpts{
		Unmarshal: unmarshalCountsRecord,
	})
	var numContexts int64
	if len(scanner.Trailer()) != 0 {
		if numContexts, err = parseCountsRioTrailer(scanner.Trailer()); err != nil {
			return
		}
	}
	counts = NewCounts()
	for scanner.Scan() {
		rec := scanner.Get().(*countsRecord)
		if prev := counts.data[rec.context]; prev != nil {
			// Shouldn't happen for WriteRio output, but tolerate it; merge is
			// well-defined either way.
			prev.merge(rec.counts)
		} else {
			counts.data[rec.context] = rec.counts
		}
	}
	if err = scanner.Err(); err != nil {
		return
	}
	if (numContexts != 0) && (numContexts != int64(counts.NumContexts())) {
		err = fmt.Errorf("seqerr.ReadRio: trailer promises %d contexts, got %d", numContexts, counts.NumContexts())
	}
	return
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// MergeFiles reads the given per-partition counts files and merges them into
// one table.  Partitions must be disjoint; merging the same partition twice
// double-counts.
func MergeFiles(ctx context.Context, paths []string, parallelism int) (counts *Counts, err error) {
	if parallelism <= 0 {
		parallelism = 1
	}
	nJob := minInt(parallelism, len(paths))
	partials := make([]*Counts, nJob)
	err = traverse.Each(nJob, func(jobIdx int) error {
		startIdx := (jobIdx * len(paths)) / nJob
		endIdx := ((jobIdx + 1) * len(paths)) / nJob
		jobCounts := NewCounts()
		for _, path := range paths[startIdx:endIdx] {
			in, e := file.Open(ctx, path)
			if e != nil {
				return e
			}
			fileCounts, e := ReadRio(in.Reader(ctx))
			if e != nil {
				_ = in.Close(ctx)
				return fmt.Errorf("seqerr.MergeFiles: %s: %v", path, e)
			}
			if e = in.Close(ctx); e != nil {
				return e
			}
			jobCounts.Merge(fileCounts)
		}
		partials[jobIdx] = jobCounts
		return nil
	})
	if err != nil {
		return
	}
	counts = NewCounts()
	for _, partial := range partials {
		counts.Merge(partial)
	}
	return
}
