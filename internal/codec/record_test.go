package codec_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/iamNilotpal/ignite/internal/codec"
	"github.com/iamNilotpal/ignite/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []codec.Record{
		{Kind: codec.KindSet, Key: "k", Value: "v"},
		{Kind: codec.KindSet, Key: "k", Value: ""},
		{Kind: codec.KindRemove, Key: "k"},
		{Kind: codec.KindSet, Key: "a-much-longer-key-than-before", Value: "and a longer value too"},
	}

	for _, rec := range cases {
		buf := codec.Encode(rec)
		require.Equal(t, int(codec.Size(rec)), len(buf))

		got, n, err := codec.DecodeOne(bytes.NewReader(buf))
		require.NoError(t, err)
		require.Equal(t, uint64(len(buf)), n)
		require.Equal(t, rec, got)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	rec := codec.Record{Kind: codec.KindSet, Key: "k", Value: "v"}
	require.Equal(t, codec.Encode(rec), codec.Encode(rec))
}

func TestDecodeOneConsumesOnlyOneRecord(t *testing.T) {
	first := codec.Encode(codec.Record{Kind: codec.KindSet, Key: "a", Value: "1"})
	second := codec.Encode(codec.Record{Kind: codec.KindRemove, Key: "b"})

	r := bytes.NewReader(append(append([]byte{}, first...), second...))

	rec1, n1, err := codec.DecodeOne(r)
	require.NoError(t, err)
	require.Equal(t, uint64(len(first)), n1)
	require.Equal(t, codec.KindSet, rec1.Kind)

	rec2, n2, err := codec.DecodeOne(r)
	require.NoError(t, err)
	require.Equal(t, uint64(len(second)), n2)
	require.Equal(t, codec.KindRemove, rec2.Kind)

	_, _, err = codec.DecodeOne(r)
	require.ErrorIs(t, err, io.EOF)
}

func TestDecodeOneReportsCorruptOnTruncatedHeader(t *testing.T) {
	_, _, err := codec.DecodeOne(bytes.NewReader([]byte{0, 0, 0}))
	require.Error(t, err)
	ce, ok := errors.AsCodecError(err)
	require.True(t, ok)
	require.Equal(t, errors.ErrorCodeCorrupt, ce.Code())
}

func TestDecodeOneReportsCorruptOnTruncatedPayload(t *testing.T) {
	full := codec.Encode(codec.Record{Kind: codec.KindSet, Key: "hello", Value: "world"})
	truncated := full[:len(full)-2]

	_, _, err := codec.DecodeOne(bytes.NewReader(truncated))
	require.Error(t, err)
	require.NotErrorIs(t, err, io.EOF)
	ce, ok := errors.AsCodecError(err)
	require.True(t, ok)
	require.Equal(t, errors.ErrorCodeCorrupt, ce.Code())
}

func TestDecodeOneRejectsUnknownTag(t *testing.T) {
	buf := codec.Encode(codec.Record{Kind: codec.KindSet, Key: "k", Value: "v"})
	buf[0] = 0xFF

	_, _, err := codec.DecodeOne(bytes.NewReader(buf))
	require.Error(t, err)
	ce, ok := errors.AsCodecError(err)
	require.True(t, ok)
	require.Equal(t, errors.ErrorCodeCorrupt, ce.Code())
}
