package main

import (
	"fmt"

	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	bds "github.com/ipfs/go-ds-badger"
	lds "github.com/ipfs/go-ds-leveldb"

	config "github.com/ipfs/go-ipld-lambda/cmd/lambda/internal"
)

// openDatastore opens the datastore cfg names. The returned datastore must be
// closed once the server is done with it.
func openDatastore(cfg config.Config) (datastore.Batching, error) {
	switch cfg.Datastore {
	case config.DatastoreMemory:
		return dssync.MutexWrap(datastore.NewMapDatastore()), nil
	case config.DatastoreLevelDB:
		ds, err := lds.NewDatastore(cfg.DatastorePath, nil)
		if err != nil {
			return nil, fmt.Errorf("opening leveldb datastore: %w", err)
		}
		return ds, nil
	case config.DatastoreBadger:
		ds, err := bds.NewDatastore(cfg.DatastorePath, nil)
		if err != nil {
			return nil, fmt.Errorf("opening badger datastore: %w", err)
		}
		return ds, nil
	default:
		return nil, fmt.Errorf("unknown datastore %q", cfg.Datastore)
	}
}
