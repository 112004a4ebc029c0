// Package abiutil packs loosely typed Go values against a contract ABI.
//
// Deployment recipes describe constructor arguments, initializers and
// configuration calls with plain values (strings, integers, *big.Int, maps
// for tuples). The artifact ABI decides the exact Solidity types, so values
// are coerced here right before packing.
package abiutil

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// PackMethod encodes a call to method with selector.
func PackMethod(contractABI abi.ABI, method string, values ...any) ([]byte, error) {
	m, ok := contractABI.Methods[method]
	if !ok {
		return nil, fmt.Errorf("method %q not found in ABI", method)
	}
	args, err := Coerce(m.Inputs, values)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Sig, err)
	}
	return contractABI.Pack(method, args...)
}

// PackConstructor returns creation code followed by the encoded
// constructor arguments.
func PackConstructor(contractABI abi.ABI, bytecode []byte, values ...any) ([]byte, error) {
	if len(contractABI.Constructor.Inputs) == 0 {
		if len(values) != 0 {
			return nil, fmt.Errorf("constructor takes no arguments, got %d", len(values))
		}
		return append([]byte(nil), bytecode...), nil
	}
	args, err := Coerce(contractABI.Constructor.Inputs, values)
	if err != nil {
		return nil, fmt.Errorf("constructor: %w", err)
	}
	encoded, err := contractABI.Constructor.Inputs.Pack(args...)
	if err != nil {
		return nil, err
	}
	return append(append([]byte(nil), bytecode...), encoded...), nil
}

// Coerce converts values to the Go types the abi packer expects for args.
func Coerce(args abi.Arguments, values []any) ([]any, error) {
	if len(args) != len(values) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(args), len(values))
	}
	out := make([]any, len(values))
	for i, arg := range args {
		v, err := coerce(arg.Type, values[i])
		if err != nil {
			name := arg.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("argument %s (%s): %w", name, arg.Type.String(), err)
		}
		out[i] = v.Interface()
	}
	return out, nil
}

func coerce(t abi.Type, value any) (reflect.Value, error) {
	target := t.GetType()
	if value != nil && reflect.TypeOf(value) == target {
		return reflect.ValueOf(value), nil
	}

	switch t.T {
	case abi.AddressTy:
		switch v := value.(type) {
		case common.Address:
			return reflect.ValueOf(v), nil
		case string:
			if !common.IsHexAddress(v) {
				return reflect.Value{}, fmt.Errorf("invalid address %q", v)
			}
			return reflect.ValueOf(common.HexToAddress(v)), nil
		}

	case abi.BoolTy:
		if v, ok := value.(bool); ok {
			return reflect.ValueOf(v), nil
		}

	case abi.StringTy:
		if v, ok := value.(string); ok {
			return reflect.ValueOf(v), nil
		}

	case abi.UintTy, abi.IntTy:
		n, err := toBig(value)
		if err != nil {
			return reflect.Value{}, err
		}
		if t.T == abi.UintTy && n.Sign() < 0 {
			return reflect.Value{}, fmt.Errorf("negative value %s for %s", n, t)
		}
		limit := t.Size
		if t.T == abi.IntTy {
			limit--
		}
		abs := new(big.Int).Abs(n)
		if abs.BitLen() > limit {
			return reflect.Value{}, fmt.Errorf("value %s overflows %s", n, t)
		}
		if target == reflect.TypeOf(&big.Int{}) {
			return reflect.ValueOf(n), nil
		}
		out := reflect.New(target).Elem()
		if t.T == abi.UintTy {
			out.SetUint(n.Uint64())
		} else {
			out.SetInt(n.Int64())
		}
		return out, nil

	case abi.FixedBytesTy:
		b, err := toBytes(value)
		if err != nil {
			return reflect.Value{}, err
		}
		if len(b) != t.Size {
			return reflect.Value{}, fmt.Errorf("expected %d bytes, got %d", t.Size, len(b))
		}
		out := reflect.New(target).Elem()
		reflect.Copy(out, reflect.ValueOf(b))
		return out, nil

	case abi.BytesTy:
		b, err := toBytes(value)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b), nil

	case abi.SliceTy, abi.ArrayTy:
		items := reflect.ValueOf(value)
		if !items.IsValid() || (items.Kind() != reflect.Slice && items.Kind() != reflect.Array) {
			break
		}
		if t.T == abi.ArrayTy && items.Len() != t.Size {
			return reflect.Value{}, fmt.Errorf("expected %d elements, got %d", t.Size, items.Len())
		}
		var out reflect.Value
		if t.T == abi.SliceTy {
			out = reflect.MakeSlice(target, items.Len(), items.Len())
		} else {
			out = reflect.New(target).Elem()
		}
		for i := 0; i < items.Len(); i++ {
			elem, err := coerce(*t.Elem, items.Index(i).Interface())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			out.Index(i).Set(elem)
		}
		return out, nil

	case abi.TupleTy:
		fields, ok := value.(map[string]any)
		if !ok {
			break
		}
		out := reflect.New(t.TupleType).Elem()
		for i, name := range t.TupleRawNames {
			raw, ok := fields[name]
			if !ok {
				return reflect.Value{}, fmt.Errorf("missing tuple field %q", name)
			}
			elem, err := coerce(*t.TupleElems[i], raw)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("%s: %w", name, err)
			}
			out.Field(i).Set(elem)
		}
		if len(fields) != len(t.TupleRawNames) {
			return reflect.Value{}, fmt.Errorf("tuple has %d fields, got %d", len(t.TupleRawNames), len(fields))
		}
		return out, nil
	}

	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", value, t.String())
}

func toBig(value any) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case uint:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case string:
		n, ok := new(big.Int).SetString(strings.TrimSpace(v), 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", v)
		}
		return n, nil
	}
	return nil, fmt.Errorf("cannot use %T as integer", value)
}

func toBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case common.Hash:
		return v.Bytes(), nil
	case [32]byte:
		return v[:], nil
	case string:
		return hexutil.Decode(v)
	}
	return nil, fmt.Errorf("cannot use %T as bytes", value)
}

// FormatValue renders an unpacked ABI value for display.
func FormatValue(value any) string {
	switch v := value.(type) {
	case common.Address:
		return v.Hex()
	case *big.Int:
		return v.String()
	case []byte:
		return hexutil.Encode(v)
	case [32]byte:
		return hexutil.Encode(v[:])
	case bool, string:
		return fmt.Sprint(v)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = FormatValue(rv.Index(i).Interface())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case reflect.Struct:
		parts := make([]string, 0, rv.NumField())
		for i := 0; i < rv.NumField(); i++ {
			parts = append(parts, fmt.Sprintf("%s: %s", rv.Type().Field(i).Name, FormatValue(rv.Field(i).Interface())))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(value)
}
