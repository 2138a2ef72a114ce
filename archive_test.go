package seqscan

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/seqscan/internal/gzi"
	"github.com/meigma/seqscan/internal/testutil"
)

func writeFixture(t *testing.T, fx testutil.Fixture) string {
	t.Helper()
	return testutil.WriteFiles(t, t.TempDir(), "ref.fa.gz", fx)
}

func mustMatcher(t *testing.T, kind, expr string) Matcher {
	t.Helper()
	m, err := ParseMatcher(kind, expr)
	require.NoError(t, err)
	return m
}

func TestCountSingleBlockExample(t *testing.T) {
	t.Parallel()

	archive, _ := testutil.CompressBlocks(t, []byte("catCAT\n"), 64<<10)
	path := writeFixture(t, testutil.Fixture{
		Archive: archive,
		FAI:     []byte("chrT\t6\t0\t6\t7\n"),
		GZI:     testutil.EncodeGZI([]gzi.Entry{{Compressed: 0, Uncompressed: 0}}),
	})

	a, err := Open(path)
	require.NoError(t, err)

	buf, err := a.ReadRecord("chrT")
	require.NoError(t, err)
	assert.Equal(t, "CATCAT", string(buf))

	res, err := a.Count(context.Background(), mustMatcher(t, "sequence", "CAT"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Total)
	assert.Equal(t, []uint64{2}, res.Counts)
}

func TestCountMixedCase(t *testing.T) {
	t.Parallel()

	fx := testutil.Build(t, []testutil.Sequence{{Name: "x", Bases: "catCatCAT"}}, testutil.Options{LineBases: 4})
	a, err := Open(writeFixture(t, fx))
	require.NoError(t, err)

	res, err := a.Count(context.Background(), mustMatcher(t, "sequence", "CAT"))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.Total)
}

func TestCountMatchesStreamAndReference(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	seqs := testutil.RandomSequences(rng, 40, 3_000)
	fx := testutil.Build(t, seqs, testutil.Options{LineBases: 61, BlockSize: 997})
	path := writeFixture(t, fx)

	matchers := map[string]Matcher{
		"CAT": mustMatcher(t, "sequence", "CAT"),
		"G":   mustMatcher(t, "class", "G"),
	}
	reference := map[string]uint64{}
	for _, seq := range seqs {
		reference["CAT"] += testutil.CountOverlapping(seq.Bases, "CAT")
		reference["G"] += testutil.CountOverlapping(seq.Bases, "G")
	}

	for name, m := range matchers {
		streamed, err := CountStream(context.Background(), bytes.NewReader(fx.Archive), m)
		require.NoError(t, err)
		assert.Equal(t, reference[name], streamed, "stream %s", name)

		for _, backend := range []Backend{BackendPipeline, BackendPartition} {
			for _, workers := range []int{-1, 1, 2, 7, 0} {
				a, err := Open(path, WithWorkers(workers), WithBackend(backend))
				require.NoError(t, err)
				res, err := a.Count(context.Background(), m)
				require.NoError(t, err)
				assert.Equal(t, reference[name], res.Total, "%s %s workers=%d", name, backend, workers)
			}
		}
	}
}

func TestReadRecordMatchesLogicalStream(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(9))
	seqs := testutil.RandomSequences(rng, 12, 2_000)
	for _, withOrigin := range []bool{true, false} {
		fx := testutil.Build(t, seqs, testutil.Options{LineBases: 50, BlockSize: 301, WithOrigin: withOrigin})
		a, err := Open(writeFixture(t, fx))
		require.NoError(t, err)

		for i, rec := range a.Records() {
			got, err := a.ReadRecord(rec.Name)
			require.NoError(t, err)
			assert.Equal(t, strings.ToUpper(seqs[i].Bases), string(got), rec.Name)
		}
	}
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	fx := testutil.Build(t, []testutil.Sequence{{Name: "a", Bases: "ACGT"}}, testutil.Options{})

	t.Run("missing record index", func(t *testing.T) {
		t.Parallel()
		path := writeFixture(t, fx)
		require.NoError(t, os.Remove(path+".fai"))
		_, err := Open(path)
		assert.ErrorIs(t, err, ErrIndexNotFound)
	})

	t.Run("missing block index", func(t *testing.T) {
		t.Parallel()
		path := writeFixture(t, fx)
		require.NoError(t, os.Remove(path+".gzi"))
		_, err := Open(path)
		assert.ErrorIs(t, err, ErrIndexNotFound)
	})

	t.Run("missing archive", func(t *testing.T) {
		t.Parallel()
		_, err := Open(filepath.Join(t.TempDir(), "nope.fa.gz"))
		assert.ErrorIs(t, err, ErrIO)
	})

	t.Run("count mismatch", func(t *testing.T) {
		t.Parallel()
		bad := fx
		bad.GZI = append(testutil.EncodeGZI([]gzi.Entry{{}}), 0, 0, 0, 0)
		_, err := Open(writeFixture(t, bad))
		assert.ErrorIs(t, err, ErrMalformedIndex)
	})

	t.Run("non-monotonic blocks", func(t *testing.T) {
		t.Parallel()
		bad := fx
		bad.GZI = testutil.EncodeGZI([]gzi.Entry{{Compressed: 10, Uncompressed: 100}, {Compressed: 5, Uncompressed: 50}})
		path := writeFixture(t, bad)
		_, err := Open(path)
		assert.ErrorIs(t, err, ErrMalformedIndex)

		_, err = Open(path, WithStrictBlockIndex(false))
		assert.NoError(t, err)
	})

	t.Run("bad record index", func(t *testing.T) {
		t.Parallel()
		bad := fx
		bad.FAI = []byte("a\t4\tzero\t60\t61\n")
		_, err := Open(writeFixture(t, bad))
		assert.ErrorIs(t, err, ErrMalformedIndex)
	})
}

func TestCountRecordErrors(t *testing.T) {
	t.Parallel()

	seqs := []testutil.Sequence{
		{Name: "a", Bases: "CATCAT"},
		{Name: "b", Bases: "CCAT"},
	}
	fx := testutil.Build(t, seqs, testutil.Options{LineBases: 10})
	total := uint64(len(fx.Plain))

	tests := []struct {
		name    string
		extra   string
		wantErr error
	}{
		{
			name:    "offset beyond stream",
			extra:   fmt.Sprintf("far\t4\t%d\t10\t11\n", total+100),
			wantErr: ErrOffsetOutOfRange,
		},
		{
			name:    "length beyond stream",
			extra:   fmt.Sprintf("long\t400\t%d\t10\t11\n", total-5),
			wantErr: ErrTruncatedRecord,
		},		{
			name:    "oversized length",
			extra:   "huge\t1125899906842624\t3\t10\t11\n",
			wantErr: ErrTruncatedRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			bad := fx
			bad.FAI = append(bytes.Clone(fx.FAI), tt.extra...)
			path := writeFixture(t, bad)
			m := mustMatcher(t, "sequence", "CAT")

			a, err := Open(path, WithWorkers(2))
			require.NoError(t, err)
			_, err = a.Count(context.Background(), m)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			var recErr *RecordError
			require.ErrorAs(t, err, &recErr)

			for _, workers := range []int{-1, 2} {
				a, err = Open(path, WithWorkers(workers), WithFailurePolicy(SkipAndContinue))
				require.NoError(t, err)
				res, err := a.Count(context.Background(), m)
				require.NoError(t, err)
				assert.Equal(t, uint64(3), res.Total)
				require.Len(t, res.Skipped, 1)
				assert.ErrorIs(t, res.Skipped[0], tt.wantErr)
			}
		})
	}
}

func TestCountCorruptArchive(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(11))
	seqs := []testutil.Sequence{
		{Name: "a", Bases: testutil.RandomBases(rng, 3_000)},
		{Name: "b", Bases: testutil.RandomBases(rng, 3_000)},
	}
	fx := testutil.Build(t, seqs, testutil.Options{BlockSize: 1000, WithOrigin: true})
	corrupt := bytes.Clone(fx.Archive)
	for i := fx.Blocks[1].Compressed + 12; i < fx.Blocks[1].Compressed+60; i++ {
		corrupt[i] ^= 0x5a
	}
	fx.Archive = corrupt

	a, err := Open(writeFixture(t, fx))
	require.NoError(t, err)
	_, err = a.Count(context.Background(), mustMatcher(t, "class", "G"))
	assert.ErrorIs(t, err, ErrDecompression)
}

func TestReadRecordNotFound(t *testing.T) {
	t.Parallel()

	fx := testutil.Build(t, []testutil.Sequence{{Name: "a", Bases: "ACGT"}}, testutil.Options{})
	a, err := Open(writeFixture(t, fx))
	require.NoError(t, err)
	_, err = a.ReadRecord("b")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestInfo(t *testing.T) {
	t.Parallel()

	fx := testutil.Build(t, []testutil.Sequence{{Name: "a", Bases: "ACGT"}, {Name: "b", Bases: "GG"}}, testutil.Options{WithOrigin: true})
	a, err := Open(writeFixture(t, fx))
	require.NoError(t, err)

	info := a.Info()
	assert.Equal(t, 2, info.Records)
	assert.Equal(t, 1, info.Blocks)
	assert.NoError(t, info.RecordDigest.Validate())
	assert.NoError(t, info.BlockDigest.Validate())
	assert.NotEqual(t, info.RecordDigest, info.BlockDigest)
}

func TestCountNilMatcher(t *testing.T) {
	t.Parallel()

	fx := testutil.Build(t, []testutil.Sequence{{Name: "a", Bases: "ACGT"}}, testutil.Options{})
	a, err := Open(writeFixture(t, fx))
	require.NoError(t, err)
	_, err = a.Count(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidPattern)

	_, err = CountStream(context.Background(), bytes.NewReader(fx.Archive), nil)
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestCountStreamEmptyAndCorrupt(t *testing.T) {
	t.Parallel()

	m := mustMatcher(t, "sequence", "CAT")
	n, err := CountStream(context.Background(), bytes.NewReader(nil), m)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = CountStream(context.Background(), strings.NewReader("not gzip data"), m)
	assert.ErrorIs(t, err, ErrDecompression)
}

func TestSequenceMatcherExpectsUppercase(t *testing.T) {
	t.Parallel()

	m, err := NewSequenceMatcher("cat")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.Count([]byte("CAT")))
	assert.Equal(t, uint64(0), m.Count([]byte("cat")))

	c, err := NewClassMatcher("g")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), c.Count([]byte("Gg")))
}
