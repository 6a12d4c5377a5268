// Package store keeps content addressed terms in a datastore.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/ipfs/go-datastore"
	dsns "github.com/ipfs/go-datastore/namespace"
	dsq "github.com/ipfs/go-datastore/query"
	logging "github.com/ipfs/go-log/v2"
	"github.com/multiformats/go-multicodec"

	"github.com/ipfs/go-ipld-lambda/term"
)

var log = logging.Logger("lambda/store")

// Prefix is the namespace terms are stored under.
var Prefix = datastore.NewKey("terms")

var (
	// ErrNotFound is returned when the store does not hold the requested term.
	ErrNotFound = errors.New("term not found")

	// ErrHashMismatch is returned when the stored bytes do not hash to the
	// requested CID.
	ErrHashMismatch = errors.New("stored data does not match its cid")
)

// Store reads and writes terms as dag-cbor blocks.
type Store struct {
	ds datastore.Datastore
}

func New(d datastore.Datastore) *Store {
	return &Store{ds: dsns.Wrap(d, Prefix)}
}

// Put stores t and returns its CID. Storing a term twice is a no-op.
func (s *Store) Put(ctx context.Context, t term.Term) (cid.Cid, error) {
	blk, err := term.Block(t)
	if err != nil {
		return cid.Undef, err
	}
	k := CidToKey(blk.Cid())

	has, err := s.ds.Has(ctx, k)
	if err != nil {
		return cid.Undef, err
	}
	if has {
		return blk.Cid(), nil
	}
	if err := s.ds.Put(ctx, k, blk.RawData()); err != nil {
		return cid.Undef, err
	}
	log.Debugw("stored term", "cid", blk.Cid(), "size", len(blk.RawData()))
	return blk.Cid(), nil
}

// isTermCid reports whether c could have been returned by Put. Keys only hold
// the multihash, so a CID with another version or codec must not match.
func isTermCid(c cid.Cid) bool {
	if !c.Defined() {
		return false
	}
	p := c.Prefix()
	return p.Version == term.Prefix.Version && p.Codec == term.Prefix.Codec && p.MhType == term.Prefix.MhType
}

// Get loads the term c and checks it against the hash in c. Only CIDs of the
// form Put returns are found.
func (s *Store) Get(ctx context.Context, c cid.Cid) (term.Term, error) {
	if !c.Defined() {
		log.Error("undefined cid in term store")
		return nil, ErrNotFound
	}
	if !isTermCid(c) {
		return nil, ErrNotFound
	}
	data, err := s.ds.Get(ctx, CidToKey(c))
	if err == datastore.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rc, err := c.Prefix().Sum(data)
	if err != nil {
		return nil, err
	}
	if !rc.Equals(c) {
		return nil, fmt.Errorf("%w: %s", ErrHashMismatch, c)
	}
	return term.Unmarshal(data, multicodec.DagCbor)
}

func (s *Store) Has(ctx context.Context, c cid.Cid) (bool, error) {
	if !isTermCid(c) {
		return false, nil
	}
	return s.ds.Has(ctx, CidToKey(c))
}

// Delete removes c. Deleting a missing term is not an error.
func (s *Store) Delete(ctx context.Context, c cid.Cid) error {
	if !isTermCid(c) {
		return nil
	}
	err := s.ds.Delete(ctx, CidToKey(c))
	if err == datastore.ErrNotFound {
		return nil
	}
	return err
}

// Cids lists the CIDs of all stored terms, in no particular order.
func (s *Store) Cids(ctx context.Context) ([]cid.Cid, error) {
	res, err := s.ds.Query(ctx, dsq.Query{KeysOnly: true})
	if err != nil {
		return nil, err
	}
	defer res.Close()

	var out []cid.Cid
	for e := range res.Next() {
		if e.Error != nil {
			return nil, e.Error
		}
		c, err := KeyToCid(datastore.RawKey(e.Key))
		if err != nil {
			log.Warnf("skipping invalid key %q: %s", e.Key, err)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
