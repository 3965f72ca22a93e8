package main

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/coupon-engine/internal/domain/coupon"
	"github.com/xenking/coupon-engine/internal/record"
)

const (
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	maxLineSize   = 1 << 20
)

// fileIndex is the pass 1 summary of one file.
type fileIndex struct {
	filter *bloom.BloomFilter
	// suspects are codes the filter had already seen earlier in the same file.
	suspects map[string]struct{}
}

type upserter interface {
	Upsert(ctx context.Context, c *coupon.Coupon) error
}

// discard accepts every coupon, used for dry runs.
type discard struct{}

func (discard) Upsert(context.Context, *coupon.Coupon) error { return nil }

type stats struct {
	imported   int
	duplicates int
	invalid    int
}

// indexFiles builds one bloom filter per file, concurrently.
func indexFiles(ctx context.Context, files []string, capacity uint) ([]*fileIndex, error) {
	indexes := make([]*fileIndex, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			idx, err := indexFile(ctx, path, capacity)
			if err != nil {
				return errors.Wrapf(err, "index %s", path)
			}
			indexes[i] = idx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return indexes, nil
}

func indexFile(ctx context.Context, path string, capacity uint) (*fileIndex, error) {
	idx := &fileIndex{
		filter:   bloom.NewWithEstimates(capacity, bloomFPR),
		suspects: make(map[string]struct{}),
	}
	var count int
	err := streamLines(ctx, path, func(_ int, line []byte) error {
		code, err := codeOf(line)
		if err != nil || code == "" {
			// Reported by the import pass.
			return nil
		}
		if idx.filter.TestAndAddString(code) {
			idx.suspects[code] = struct{}{}
		}
		count++
		if count%progressEvery == 0 {
			slog.Info("pass 1 progress", slog.String("file", path), slog.Int("codes", count))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("pass 1 complete",
		slog.String("file", path),
		slog.Int("codes", count),
		slog.Int("suspects", len(idx.suspects)),
	)
	return idx, nil
}

// findDuplicates counts every code that may occur twice according to the
// bloom filters, and returns the ones that really do with their counts.
func findDuplicates(ctx context.Context, files []string, indexes []*fileIndex) (map[string]int, error) {
	counts := make([]map[string]int, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			c, err := countCandidates(ctx, path, i, indexes)
			if err != nil {
				return errors.Wrapf(err, "scan %s", path)
			}
			counts[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]int)
	for _, c := range counts {
		for code, n := range c {
			merged[code] += n
		}
	}
	for code, n := range merged {
		if n < 2 {
			delete(merged, code)
		}
	}
	return merged, nil
}

func countCandidates(ctx context.Context, path string, self int, indexes []*fileIndex) (map[string]int, error) {
	candidates := make(map[string]int)
	err := streamLines(ctx, path, func(_ int, line []byte) error {
		code, err := codeOf(line)
		if err != nil || code == "" {
			return nil
		}
		if isCandidate(code, self, indexes) {
			candidates[code]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("pass 2 complete", slog.String("file", path), slog.Int("candidates", len(candidates)))
	return candidates, nil
}

func isCandidate(code string, self int, indexes []*fileIndex) bool {
	if _, ok := indexes[self].suspects[code]; ok {
		return true
	}
	for j, idx := range indexes {
		if j != self && idx.filter.TestString(code) {
			return true
		}
	}
	return false
}

// importFiles decodes and validates every definition and upserts the ones
// whose code is unique in the batch.
func importFiles(ctx context.Context, files []string, dupes map[string]int, store upserter) (stats, error) {
	var st stats
	for _, path := range files {
		err := streamLines(ctx, path, func(lineNo int, line []byte) error {
			rec := record.New()
			if err := rec.Decode(jx.DecodeBytes(line)); err != nil {
				st.invalid++
				slog.Warn("skipping malformed line",
					slog.String("file", path),
					slog.Int("line", lineNo),
					slog.String("error", err.Error()),
				)
				return nil
			}
			if _, dup := dupes[rec.Code]; dup {
				st.duplicates++
				return nil
			}
			c, err := rec.Coupon()
			if err != nil {
				st.invalid++
				slog.Warn("skipping invalid coupon",
					slog.String("file", path),
					slog.Int("line", lineNo),
					slog.String("code", rec.Code),
					slog.String("error", err.Error()),
				)
				return nil
			}
			if err := store.Upsert(ctx, c); err != nil {
				return errors.Wrapf(err, "upsert coupon %s", c.Code)
			}
			st.imported++
			return nil
		})
		if err != nil {
			return st, errors.Wrapf(err, "import %s", path)
		}
	}
	return st, nil
}

// codeOf extracts the "code" field of a JSON object without decoding the rest.
func codeOf(line []byte) (string, error) {
	var code string
	err := jx.DecodeBytes(line).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "code" {
			return d.Skip()
		}
		s, err := d.Str()
		code = s
		return err
	})
	return code, err
}

// streamLines calls fn with every non-blank line of a gzip-compressed file.
// The line slice is only valid during the call.
func streamLines(ctx context.Context, path string, fn func(lineNo int, line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	sc := bufio.NewScanner(gz)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var lineNo int
	for sc.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
