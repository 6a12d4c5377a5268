package term

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ipfs/go-cid"
	"github.com/ipld/go-ipld-prime/datamodel"
	cidlink "github.com/ipld/go-ipld-prime/linking/cid"
	"github.com/ipld/go-ipld-prime/node/basicnode"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// FromNode decodes a term from the IPLD data model.
func FromNode(n datamodel.Node) (Term, error) {
	v, err := NodeToValue(n)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// ToNode builds the IPLD data model form of t. It fails with the error of
// Check for malformed terms and with ErrNotData if a meta data literal holds
// something that is not data.
func ToNode(t Term) (datamodel.Node, error) {
	if err := Check(t); err != nil {
		return nil, err
	}
	return ValueToNode(Encode(t))
}

// NodeToValue converts an IPLD node to plain Go values: nil, bool, int64,
// float64, string, []byte, cid.Cid, []any and map[string]any.
func NodeToValue(n datamodel.Node) (any, error) {
	switch n.Kind() {
	case datamodel.Kind_Null:
		return nil, nil
	case datamodel.Kind_Bool:
		return n.AsBool()
	case datamodel.Kind_Int:
		return n.AsInt()
	case datamodel.Kind_Float:
		return n.AsFloat()
	case datamodel.Kind_String:
		return n.AsString()
	case datamodel.Kind_Bytes:
		return n.AsBytes()
	case datamodel.Kind_Link:
		lnk, err := n.AsLink()
		if err != nil {
			return nil, err
		}
		if cl, ok := lnk.(cidlink.Link); ok {
			return cl.Cid, nil
		}
		return lnk, nil
	case datamodel.Kind_List:
		r := make([]any, 0, n.Length())
		it := n.ListIterator()
		for !it.Done() {
			_, v, err := it.Next()
			if err != nil {
				return nil, err
			}
			gv, err := NodeToValue(v)
			if err != nil {
				return nil, err
			}
			r = append(r, gv)
		}
		return r, nil
	case datamodel.Kind_Map:
		r := make(map[string]any, n.Length())
		it := n.MapIterator()
		for !it.Done() {
			k, v, err := it.Next()
			if err != nil {
				return nil, err
			}
			ks, err := k.AsString()
			if err != nil {
				return nil, err
			}
			gv, err := NodeToValue(v)
			if err != nil {
				return nil, err
			}
			r[ks] = gv
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unexpected node kind %s", n.Kind())
	}
}

// ValueToNode is the inverse of NodeToValue. Any Go integer or float kind is
// accepted, as well as json.Number, []string and datamodel.Node.
// Map entries are assembled in sorted key order.
func ValueToNode(v any) (datamodel.Node, error) {
	nb := basicnode.Prototype.Any.NewBuilder()
	if err := assign(nb, v); err != nil {
		return nil, err
	}
	return nb.Build(), nil
}

func assign(na datamodel.NodeAssembler, v any) error {
	switch v := v.(type) {
	case nil:
		return na.AssignNull()
	case bool:
		return na.AssignBool(v)
	case string:
		return na.AssignString(v)
	case []byte:
		return na.AssignBytes(v)
	case int:
		return na.AssignInt(int64(v))
	case int8:
		return na.AssignInt(int64(v))
	case int16:
		return na.AssignInt(int64(v))
	case int32:
		return na.AssignInt(int64(v))
	case int64:
		return na.AssignInt(v)
	case uint:
		return assignUint(na, uint64(v))
	case uint8:
		return na.AssignInt(int64(v))
	case uint16:
		return na.AssignInt(int64(v))
	case uint32:
		return na.AssignInt(int64(v))
	case uint64:
		return assignUint(na, v)
	case float32:
		return na.AssignFloat(float64(v))
	case float64:
		return na.AssignFloat(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return na.AssignInt(i)
		}
		f, err := v.Float64()
		if err != nil {
			return err
		}
		return na.AssignFloat(f)
	case cid.Cid:
		return na.AssignLink(cidlink.Link{Cid: v})
	case datamodel.Node:
		return na.AssignNode(v)
	case []string:
		la, err := na.BeginList(int64(len(v)))
		if err != nil {
			return err
		}
		for _, s := range v {
			if err := la.AssembleValue().AssignString(s); err != nil {
				return err
			}
		}
		return la.Finish()
	case []any:
		la, err := na.BeginList(int64(len(v)))
		if err != nil {
			return err
		}
		for _, e := range v {
			if err := assign(la.AssembleValue(), e); err != nil {
				return err
			}
		}
		return la.Finish()
	case map[string]any:
		ma, err := na.BeginMap(int64(len(v)))
		if err != nil {
			return err
		}
		keys := maps.Keys(v)
		slices.Sort(keys)
		for _, k := range keys {
			if err := ma.AssembleKey().AssignString(k); err != nil {
				return err
			}
			if err := assign(ma.AssembleValue(), v[k]); err != nil {
				return err
			}
		}
		return ma.Finish()
	default:
		return ErrNotData{v}
	}
}

func assignUint(na datamodel.NodeAssembler, v uint64) error {
	if v > math.MaxInt64 {
		return fmt.Errorf("integer %d overflows int64", v)
	}
	return na.AssignInt(int64(v))
}
