package record

import (
	"fmt"
	"strings"

	"github.com/ipld/go-ipld-prime/datamodel"
	"github.com/ipld/go-ipld-prime/node/basicnode"
)

const (
	// sentinelNameKey is the map key holding the name of an encoded sentinel.
	sentinelNameKey = "$sentinel"
	// sentinelArgsKey is the map key holding the arguments of an encoded sentinel.
	sentinelArgsKey = "args"
	// escapePrefix marks reserved keys. User keys with this prefix are encoded with it doubled.
	escapePrefix = "$"
)

// escapeKey returns the encoded form of a user map key.
func escapeKey(k string) string {
	if strings.HasPrefix(k, escapePrefix) {
		return escapePrefix + k
	}
	return k
}

func unescapeKey(k string) string {
	if strings.HasPrefix(k, escapePrefix+escapePrefix) {
		return k[len(escapePrefix):]
	}
	return k
}

// Node returns an IPLD data model node for the given value.
func Node(v Value) (datamodel.Node, error) {
	nb := basicnode.Prototype.Any.NewBuilder()
	err := assignValue(v, nb)
	if err != nil {
		return nil, err
	}
	return nb.Build(), nil
}

// RecordNode returns an IPLD data model map node for the given record.
func RecordNode(r Record) (datamodel.Node, error) {
	return Node(Map(r))
}

func assignValue(v Value, na datamodel.NodeAssembler) error {
	switch v.kind {
	case KindNull:
		return na.AssignNull()
	case KindBool:
		return na.AssignBool(v.b)
	case KindNumber:
		if v.IsIntegral() {
			return na.AssignInt(v.i)
		}
		return na.AssignFloat(v.n)
	case KindString:
		return na.AssignString(v.s)
	case KindList:
		return assignList(v.list, na)
	case KindMap:
		ma, err := na.BeginMap(int64(len(v.m)))
		if err != nil {
			return err
		}
		for _, k := range v.m.Keys() {
			va, err := ma.AssembleEntry(escapeKey(k))
			if err != nil {
				return err
			}
			err = assignValue(v.m[k], va)
			if err != nil {
				return err
			}
		}
		return ma.Finish()
	case KindSentinel:
		ma, err := na.BeginMap(2)
		if err != nil {
			return err
		}
		va, err := ma.AssembleEntry(sentinelNameKey)
		if err != nil {
			return err
		}
		err = va.AssignString(v.sentinel.Name)
		if err != nil {
			return err
		}
		va, err = ma.AssembleEntry(sentinelArgsKey)
		if err != nil {
			return err
		}
		err = assignList(v.sentinel.Args, va)
		if err != nil {
			return err
		}
		return ma.Finish()
	default:
		return fmt.Errorf("cannot assign value of kind %s", v.kind)
	}
}

func assignList(values []Value, na datamodel.NodeAssembler) error {
	la, err := na.BeginList(int64(len(values)))
	if err != nil {
		return err
	}
	for _, e := range values {
		err = assignValue(e, la.AssembleValue())
		if err != nil {
			return err
		}
	}
	return la.Finish()
}

// FromNode returns the value for the given IPLD data model node.
func FromNode(n datamodel.Node) (Value, error) {
	switch n.Kind() {
	case datamodel.Kind_Null:
		return Null(), nil
	case datamodel.Kind_Bool:
		b, err := n.AsBool()
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case datamodel.Kind_Int:
		i, err := n.AsInt()
		if err != nil {
			return Value{}, err
		}
		return Int(i), nil
	case datamodel.Kind_Float:
		f, err := n.AsFloat()
		if err != nil {
			return Value{}, err
		}
		return Float(f), nil
	case datamodel.Kind_String:
		s, err := n.AsString()
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	case datamodel.Kind_List:
		list, err := listFromNode(n)
		if err != nil {
			return Value{}, err
		}
		return List(list...), nil
	case datamodel.Kind_Map:
		return mapFromNode(n)
	default:
		return Value{}, fmt.Errorf("cannot get value from %s", n.Kind().String())
	}
}

// RecordFromNode returns the record for the given IPLD data model map node.
func RecordFromNode(n datamodel.Node) (Record, error) {
	v, err := FromNode(n)
	if err != nil {
		return nil, err
	}
	r, ok := v.AsMap()
	if !ok {
		return nil, fmt.Errorf("expected map node but got %s", n.Kind().String())
	}
	return r, nil
}

func listFromNode(n datamodel.Node) ([]Value, error) {
	out := make([]Value, 0, n.Length())
	for iter := n.ListIterator(); iter != nil && !iter.Done(); {
		_, e, err := iter.Next()
		if err != nil {
			return nil, err
		}
		val, err := FromNode(e)
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, nil
}

func mapFromNode(n datamodel.Node) (Value, error) {
	name, err := n.LookupByString(sentinelNameKey)
	if err == nil {
		return sentinelFromNode(name, n)
	}
	out := make(Record, n.Length())
	for iter := n.MapIterator(); !iter.Done(); {
		k, e, err := iter.Next()
		if err != nil {
			return Value{}, err
		}
		key, err := k.AsString()
		if err != nil {
			return Value{}, err
		}
		val, err := FromNode(e)
		if err != nil {
			return Value{}, err
		}
		out[unescapeKey(key)] = val
	}
	return Map(out), nil
}

func sentinelFromNode(nameNode, n datamodel.Node) (Value, error) {
	name, err := nameNode.AsString()
	if err != nil {
		return Value{}, err
	}
	argsNode, err := n.LookupByString(sentinelArgsKey)
	if err != nil {
		return Value{}, err
	}
	args, err := listFromNode(argsNode)
	if err != nil {
		return Value{}, err
	}
	return Tag(NewSentinel(name, args...)), nil
}
