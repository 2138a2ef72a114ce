package fai

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/seqscan/internal/seqtype"
)

func TestRead(t *testing.T) {
	t.Parallel()

	input := "chr1\t248956422\t112\t70\t71\n" +
		"\n" +
		"chrT\t6\t6\t6\t7\r\n"

	idx, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 2, idx.Len())

	assert.Equal(t, Record{
		Name:      "chr1",
		Length:    248956422,
		Offset:    112,
		LineBases: 70,
		LineWidth: 71,
	}, idx.Records()[0])

	rec, ok := idx.Lookup("chrT")
	require.True(t, ok)
	assert.Equal(t, uint64(6), rec.Length)
	assert.Equal(t, uint32(7), rec.LineWidth)

	_, ok = idx.Lookup("chrM")
	assert.False(t, ok)

	assert.NotEmpty(t, idx.Digest().String())
	assert.NoError(t, idx.Digest().Validate())
}

func TestReadOffsetsNeedNotIncrease(t *testing.T) {
	t.Parallel()

	idx, err := Read(strings.NewReader("b\t4\t100\t4\t5\na\t4\t10\t4\t5\n"))
	require.NoError(t, err)
	assert.Equal(t, "b", idx.Records()[0].Name)
	assert.Equal(t, "a", idx.Records()[1].Name)
}

func TestReadEmpty(t *testing.T) {
	t.Parallel()

	idx, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Len())
}

func TestReadMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "too few fields", input: "chr1\t10\t0\t10\n"},
		{name: "too many fields", input: "chr1\t10\t0\t10\t11\t3\n"},
		{name: "space separated", input: "chr1 10 0 10 11\n"},
		{name: "bad length", input: "chr1\tten\t0\t10\t11\n"},
		{name: "negative offset", input: "chr1\t10\t-1\t10\t11\n"},
		{name: "line bases overflow", input: "chr1\t10\t0\t4294967296\t4294967297\n"},
		{name: "width below bases", input: "chr1\t10\t0\t10\t9\n"},
		{name: "zero line bases", input: "chr1\t10\t0\t0\t1\n"},
		{name: "empty name", input: "\t10\t0\t10\t11\n"},
		{name: "duplicate name", input: "chr1\t10\t0\t10\t11\nchr1\t5\t20\t10\t11\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Read(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, seqtype.ErrMalformedIndex)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "ref.fa.gz.fai")
	require.NoError(t, os.WriteFile(path, []byte("chrT\t6\t6\t6\t7\n"), 0o600))

	idx, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())

	_, err = Load(filepath.Join(dir, "missing.fai"))
	assert.ErrorIs(t, err, seqtype.ErrIndexNotFound)
}

func TestRecordValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Record{Name: "empty"}.Validate())
	assert.NoError(t, Record{Name: "flat", Length: 8, LineBases: 8, LineWidth: 8}.Validate())
	assert.Error(t, Record{Name: "bad", Length: 1}.Validate())
}
