package store

import (
	"github.com/ipfs/go-cid"
	"github.com/ipfs/go-datastore"
	"github.com/multiformats/go-base32"
	mh "github.com/multiformats/go-multihash"
)

// Terms are keyed by the base32 encoding of their multihash, so that the same
// term is stored once whatever CID version or codec it was addressed with.

func keyFromBinary(raw []byte) datastore.Key {
	buf := make([]byte, 1+base32.RawStdEncoding.EncodedLen(len(raw)))
	buf[0] = '/'
	base32.RawStdEncoding.Encode(buf[1:], raw)
	return datastore.RawKey(string(buf))
}

// CidToKey returns the datastore key a term with CID c is stored under.
func CidToKey(c cid.Cid) datastore.Key {
	return keyFromBinary(c.Hash())
}

// KeyToCid recovers the CID of a stored term from its key. Terms are
// always stored as dag-cbor.
func KeyToCid(k datastore.Key) (cid.Cid, error) {
	raw, err := base32.RawStdEncoding.DecodeString(k.BaseNamespace())
	if err != nil {
		return cid.Undef, err
	}
	hash, err := mh.Cast(raw)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.DagCBOR, hash), nil
}
