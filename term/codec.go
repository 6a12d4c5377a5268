package term

import (
	"fmt"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime"
	"github.com/ipld/go-ipld-prime/codec"
	"github.com/ipld/go-ipld-prime/codec/dagcbor"
	"github.com/ipld/go-ipld-prime/codec/dagjson"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-multihash"
)

// Prefix is used to content address terms: CIDv1, dag-cbor, sha2-256.
var Prefix = cid.Prefix{
	Version:  1,
	Codec:    uint64(multicodec.DagCbor),
	MhType:   multihash.SHA2_256,
	MhLength: -1,
}

// ParseCodec returns the codec named name, which must be dag-json or dag-cbor.
func ParseCodec(name string) (multicodec.Code, error) {
	var c multicodec.Code
	if err := c.Set(name); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedCodec, name)
	}
	if _, _, err := codecs(c); err != nil {
		return 0, err
	}
	return c, nil
}

func codecs(c multicodec.Code) (codec.Encoder, codec.Decoder, error) {
	switch c {
	case multicodec.DagJson:
		return dagjson.Encode, dagjson.Decode, nil
	case multicodec.DagCbor:
		return dagcbor.Encode, dagcbor.Decode, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, c)
	}
}

// Marshal encodes t with the given codec.
func Marshal(t Term, c multicodec.Code) ([]byte, error) {
	n, err := ToNode(t)
	if err != nil {
		return nil, err
	}
	return encodeNode(n, c)
}

// Unmarshal decodes and validates a term encoded with the given codec.
func Unmarshal(b []byte, c multicodec.Code) (Term, error) {
	v, err := UnmarshalValue(b, c)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// MarshalValue encodes a plain Go value, for instance an evaluation result.
func MarshalValue(v any, c multicodec.Code) ([]byte, error) {
	n, err := ValueToNode(v)
	if err != nil {
		return nil, err
	}
	return encodeNode(n, c)
}

// UnmarshalValue decodes bytes into plain Go values, see NodeToValue.
func UnmarshalValue(b []byte, c multicodec.Code) (any, error) {
	_, dec, err := codecs(c)
	if err != nil {
		return nil, err
	}
	n, err := ipld.Decode(b, dec)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", c, err)
	}
	return NodeToValue(n)
}

func encodeNode(n ipld.Node, c multicodec.Code) ([]byte, error) {
	enc, _, err := codecs(c)
	if err != nil {
		return nil, err
	}
	b, err := ipld.Encode(n, enc)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", c, err)
	}
	return b, nil
}

// Block returns the canonical dag-cbor encoding of t along with its CID.
func Block(t Term) (blocks.Block, error) {
	b, err := Marshal(t, multicodec.DagCbor)
	if err != nil {
		return nil, err
	}
	c, err := Prefix.Sum(b)
	if err != nil {
		return nil, err
	}
	blk, err := blocks.NewBlockWithCid(b, c)
	if err != nil {
		return nil, err
	}
	return blk, nil
}

// Sum returns the CID of t.
func Sum(t Term) (cid.Cid, error) {
	blk, err := Block(t)
	if err != nil {
		return cid.Undef, err
	}
	return blk.Cid(), nil
}
