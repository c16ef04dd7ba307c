// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package stcodec implements canonical binary serialization for the
// transaction field subset this client submits, along with the signing and
// transaction-ID digests. The ledger signs and identifies transactions by
// their canonical serialization, not their JSON rendering.
package stcodec

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"xrplink.org/xrplink/xrp"
)

// Serialize encodes a transaction (a wire tx struct, or a map with ledger
// field names) into its canonical binary form, TxnSignature included when
// present.
func Serialize(tx any) ([]byte, error) {
	m, err := toMap(tx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := serializeObject(&buf, m, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SerializeForSigning encodes a transaction with the TxnSignature field
// omitted, the form over which signatures are computed.
func SerializeForSigning(tx any) ([]byte, error) {
	m, err := toMap(tx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := serializeObject(&buf, m, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TxMap converts a wire tx struct to the map form, the shape signing code
// mutates to install SigningPubKey and TxnSignature.
func TxMap(tx any) (map[string]any, error) {
	return toMap(tx)
}

// toMap round-trips the transaction through JSON so that wire structs and
// plain maps serialize identically.
func toMap(tx any) (map[string]any, error) {
	if m, ok := tx.(map[string]any); ok {
		return m, nil
	}
	b, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func serializeObject(buf *bytes.Buffer, obj map[string]any, omitSignature bool) error {
	type member struct {
		name string
		def  fieldDef
	}
	members := make([]member, 0, len(obj))
	for name := range obj {
		if omitSignature && name == "TxnSignature" {
			continue
		}
		def, known := fieldDefs[name]
		if !known {
			return fmt.Errorf("no binary definition for field %q", name)
		}
		members = append(members, member{name, def})
	}
	sort.Slice(members, func(i, j int) bool {
		a, b := members[i].def, members[j].def
		if a.typeCode != b.typeCode {
			return a.typeCode < b.typeCode
		}
		return a.fieldCode < b.fieldCode
	})
	for _, mem := range members {
		if err := encodeField(buf, mem.name, mem.def, obj[mem.name]); err != nil {
			return fmt.Errorf("field %s: %w", mem.name, err)
		}
	}
	return nil
}

func encodeField(buf *bytes.Buffer, name string, def fieldDef, value any) error {
	writeFieldHeader(buf, def)
	switch def.typeCode {
	case stUInt16:
		if name == "TransactionType" {
			typeName, ok := value.(string)
			if !ok {
				return fmt.Errorf("TransactionType is not a string")
			}
			code, known := txTypeCodes[typeName]
			if !known {
				return fmt.Errorf("unknown transaction type %q", typeName)
			}
			return writeUint(buf, uint64(code), 2)
		}
		v, err := toUint(value, math.MaxUint16)
		if err != nil {
			return err
		}
		return writeUint(buf, v, 2)
	case stUInt32:
		v, err := toUint(value, math.MaxUint32)
		if err != nil {
			return err
		}
		return writeUint(buf, v, 4)
	case stAmount:
		return encodeAmountField(buf, value)
	case stBlob:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("blob field is not a hex string")
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			return fmt.Errorf("invalid hex: %w", err)
		}
		writeVL(buf, b)
		return nil
	case stAccountID:
		addr, ok := value.(string)
		if !ok {
			return fmt.Errorf("account field is not a string")
		}
		id, err := xrp.DecodeAddress(addr)
		if err != nil {
			return err
		}
		writeVL(buf, id)
		return nil
	case stObject:
		inner, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("object field is not an object")
		}
		if err := serializeObject(buf, inner, false); err != nil {
			return err
		}
		buf.WriteByte(objectEndMarker)
		return nil
	case stArray:
		elements, ok := value.([]any)
		if !ok {
			return fmt.Errorf("array field is not an array")
		}
		for _, el := range elements {
			wrapper, ok := el.(map[string]any)
			if !ok || len(wrapper) != 1 {
				return fmt.Errorf("array element must be a single-field object")
			}
			for innerName, innerVal := range wrapper {
				innerDef, known := fieldDefs[innerName]
				if !known || innerDef.typeCode != stObject {
					return fmt.Errorf("array element field %q is not a known object", innerName)
				}
				if err := encodeField(buf, innerName, innerDef, innerVal); err != nil {
					return err
				}
			}
		}
		buf.WriteByte(arrayEndMarker)
		return nil
	}
	return fmt.Errorf("unhandled type code %d", def.typeCode)
}

// encodeAmountField handles both wire shapes: a drops string for the native
// asset, a currency object for issued amounts.
func encodeAmountField(buf *bytes.Buffer, value any) error {
	switch v := value.(type) {
	case string:
		b, err := encodeNativeAmount(v)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	case map[string]any:
		currency, _ := v["currency"].(string)
		issuer, _ := v["issuer"].(string)
		val, _ := v["value"].(string)
		if currency == "" || issuer == "" || val == "" {
			return fmt.Errorf("issued amount needs currency, issuer and value")
		}
		b, err := encodeIssuedAmount(currency, issuer, val)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
	return fmt.Errorf("unsupported amount representation %T", value)
}

// writeFieldHeader writes the field ID: compact one-byte form when both codes
// fit a nibble, otherwise the low-code spills into a trailing byte.
func writeFieldHeader(buf *bytes.Buffer, def fieldDef) {
	switch {
	case def.typeCode < 16 && def.fieldCode < 16:
		buf.WriteByte(byte(def.typeCode<<4 | def.fieldCode))
	case def.typeCode < 16:
		buf.WriteByte(byte(def.typeCode << 4))
		buf.WriteByte(byte(def.fieldCode))
	case def.fieldCode < 16:
		buf.WriteByte(byte(def.fieldCode))
		buf.WriteByte(byte(def.typeCode))
	default:
		buf.WriteByte(0)
		buf.WriteByte(byte(def.typeCode))
		buf.WriteByte(byte(def.fieldCode))
	}
}

// writeVL writes a variable-length prefix followed by the bytes.
func writeVL(buf *bytes.Buffer, b []byte) {
	n := len(b)
	switch {
	case n <= 192:
		buf.WriteByte(byte(n))
	case n <= 12480:
		n -= 193
		buf.WriteByte(byte(193 + n>>8))
		buf.WriteByte(byte(n & 0xff))
	default:
		n -= 12481
		buf.WriteByte(byte(241 + n>>16))
		buf.WriteByte(byte(n >> 8 & 0xff))
		buf.WriteByte(byte(n & 0xff))
	}
	buf.Write(b)
}

func writeUint(buf *bytes.Buffer, v uint64, size int) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	buf.Write(b[8-size:])
	return nil
}

// toUint accepts the numeric shapes encoding/json produces.
func toUint(value any, max uint64) (uint64, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 || v != math.Trunc(v) || v > float64(max) {
			return 0, fmt.Errorf("value %v out of range", v)
		}
		return uint64(v), nil
	case json.Number:
		i, err := v.Int64()
		if err != nil || i < 0 || uint64(i) > max {
			return 0, fmt.Errorf("value %v out of range", v)
		}
		return uint64(i), nil
	}
	return 0, fmt.Errorf("unsupported numeric type %T", value)
}

// SerializedHex is a convenience returning the uppercase hex of a canonical
// serialization, the form the submit command's tx_blob parameter takes.
func SerializedHex(tx any) (string, error) {
	b, err := Serialize(tx)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
