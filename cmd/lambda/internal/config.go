package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/multierr"

	"github.com/ipfs/go-ipld-lambda/lambda"
	"github.com/ipfs/go-ipld-lambda/remote/server"
	"github.com/ipfs/go-ipld-lambda/term"
)

type Config struct {
	// Listen is the address the server binds to.
	Listen string
	// DepthLimit bounds the frames active at once in an evaluation, 0
	// disables the bound.
	DepthLimit uint
	// CacheSize is the number of resolved predicate names kept per
	// evaluator, 0 disables the cache.
	CacheSize int
	// Codec is the default codec of term files, dag-json or dag-cbor.
	Codec string
	// MaxBodySize bounds the body of server requests.
	MaxBodySize int64
	// Datastore is where the server keeps stored terms: memory, leveldb or
	// badger. The latter two need DatastorePath.
	Datastore     string
	DatastorePath string
}

const (
	DatastoreMemory  = "memory"
	DatastoreLevelDB = "leveldb"
	DatastoreBadger  = "badger"
)

var DefaultConfig = Config{
	Listen:      "127.0.0.1:8484",
	DepthLimit:  lambda.DefaultDepthLimit,
	CacheSize:   128,
	Codec:       "dag-json",
	MaxBodySize: server.DefaultMaxBodySize,
	Datastore:   DatastoreMemory,
}

// ReadConfig decodes a JSON config. Fields missing from r keep their
// DefaultConfig value.
func ReadConfig(r io.Reader) (Config, error) {
	config := DefaultConfig
	err := json.NewDecoder(r).Decode(&config)
	if err != nil {
		return Config{}, fmt.Errorf("reading and decoding config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func (c Config) Validate() error {
	var err error
	if c.Listen == "" {
		err = multierr.Append(err, errors.New("listen address must not be empty"))
	}
	if c.CacheSize < 0 {
		err = multierr.Append(err, fmt.Errorf("cache size must not be negative; got %d", c.CacheSize))
	}
	if c.MaxBodySize <= 0 {
		err = multierr.Append(err, fmt.Errorf("max body size must be positive; got %d", c.MaxBodySize))
	}
	switch c.Datastore {
	case DatastoreMemory:
	case DatastoreLevelDB, DatastoreBadger:
		if c.DatastorePath == "" {
			err = multierr.Append(err, fmt.Errorf("%s datastore needs a path", c.Datastore))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown datastore %q", c.Datastore))
	}
	if _, cerr := term.ParseCodec(c.Codec); cerr != nil {
		err = multierr.Append(err, cerr)
	}
	return err
}

// EvaluatorOptions returns the evaluator options c describes.
func (c Config) EvaluatorOptions() []lambda.Option {
	return []lambda.Option{
		lambda.WithDepthLimit(c.DepthLimit),
		lambda.WithResolveCache(c.CacheSize),
	}
}
