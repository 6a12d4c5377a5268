package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestReadConfigKeepsDefaults(t *testing.T) {
	c, err := ReadConfig(strings.NewReader(`{"Listen": ":9000", "Codec": "dag-cbor"}`))
	require.NoError(t, err)
	require.Equal(t, ":9000", c.Listen)
	require.Equal(t, "dag-cbor", c.Codec)
	require.Equal(t, DefaultConfig.DepthLimit, c.DepthLimit)
	require.Equal(t, DefaultConfig.MaxBodySize, c.MaxBodySize)
}

func TestReadConfigInvalid(t *testing.T) {
	_, err := ReadConfig(strings.NewReader(`{`))
	require.ErrorContains(t, err, "reading and decoding config")

	_, err = ReadConfig(strings.NewReader(`{"Listen": "", "CacheSize": -1, "Codec": "raw"}`))
	require.ErrorContains(t, err, "invalid config")
	require.ErrorContains(t, err, "listen address must not be empty")
	require.ErrorContains(t, err, "cache size must not be negative")
	require.ErrorContains(t, err, "unsupported codec")

	err = Config{Listen: ":1", MaxBodySize: 1, Codec: "dag-json", CacheSize: -1, Datastore: DatastoreMemory}.Validate()
	require.Len(t, multierr.Errors(err), 1)

	err = Config{Listen: ":1", MaxBodySize: 1, Codec: "dag-json", Datastore: DatastoreLevelDB}.Validate()
	require.EqualError(t, err, "leveldb datastore needs a path")

	err = Config{Listen: ":1", MaxBodySize: 1, Codec: "dag-json", Datastore: "s3"}.Validate()
	require.EqualError(t, err, `unknown datastore "s3"`)
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig.Validate())
	require.Len(t, DefaultConfig.EvaluatorOptions(), 2)
}
