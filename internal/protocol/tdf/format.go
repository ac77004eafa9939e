package tdf

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ============================================================================
// Text Rendering
// ============================================================================

// Format renders fields as an indented tree, one value per line:
//
//	TEST String "hi"
//	DATA Group {
//	  NUM1 VarInt 5
//	}
func Format(fields []Labeled) string {
	var sb strings.Builder
	for _, f := range fields {
		formatLabeled(&sb, f, 0)
	}
	return sb.String()
}

func formatLabeled(sb *strings.Builder, l Labeled, indent int) {
	pad(sb, indent)
	fmt.Fprintf(sb, "%-4s %s ", l.Label, l.Type())
	formatValue(sb, l.Value, indent)
	sb.WriteByte('\n')
}

func formatValue(sb *strings.Builder, v Value, indent int) {
	switch v := v.(type) {
	case VarInt:
		fmt.Fprintf(sb, "%d", int64(v))
	case Float:
		fmt.Fprintf(sb, "%g", float32(v))
	case String:
		fmt.Fprintf(sb, "%q", string(v))
	case Blob:
		fmt.Fprintf(sb, "[%d] %s", len(v), hex.EncodeToString(v))
	case VarIntList:
		fmt.Fprintf(sb, "%v", []int64(v))
	case Pair:
		fmt.Fprintf(sb, "(%d, %d)", v.A, v.B)
	case Tripple:
		fmt.Fprintf(sb, "(%d, %d, %d)", v.A, v.B, v.C)
	case Group:
		if v.Start {
			sb.WriteString("(start) ")
		}
		sb.WriteString("{\n")
		for _, f := range v.Fields {
			formatLabeled(sb, f, indent+1)
		}
		pad(sb, indent)
		sb.WriteByte('}')
	case List:
		fmt.Fprintf(sb, "<%s> [\n", v.ElemType)
		for _, e := range v.Values {
			pad(sb, indent+1)
			formatValue(sb, e, indent+1)
			sb.WriteByte('\n')
		}
		pad(sb, indent)
		sb.WriteByte(']')
	case Map:
		fmt.Fprintf(sb, "<%s, %s> {\n", v.KeyType, v.ValueType)
		for i := range v.Keys {
			pad(sb, indent+1)
			formatValue(sb, v.Keys[i], indent+1)
			sb.WriteString(": ")
			if i < len(v.Values) {
				formatValue(sb, v.Values[i], indent+1)
			}
			sb.WriteByte('\n')
		}
		pad(sb, indent)
		sb.WriteByte('}')
	case Union:
		if v.Value == nil {
			fmt.Fprintf(sb, "0x%02x unset", v.Discriminant)
			return
		}
		fmt.Fprintf(sb, "0x%02x {\n", v.Discriminant)
		formatLabeled(sb, *v.Value, indent+1)
		pad(sb, indent)
		sb.WriteByte('}')
	case nil:
		sb.WriteString("<nil>")
	default:
		sb.WriteString("?")
	}
}

func pad(sb *strings.Builder, indent int) {
	for i := 0; i < indent; i++ {
		sb.WriteString("  ")
	}
}

// ============================================================================
// Native Conversion
// ============================================================================

// Entry is the native form of one labeled value. Groups render as a list of
// entries so label order and repeated labels survive JSON or YAML output.
type Entry struct {
	Label string `json:"label" yaml:"label"`
	Type  string `json:"type" yaml:"type"`
	Value any    `json:"value" yaml:"value"`
}

// Native converts v into plain Go data suitable for JSON or YAML output.
// Groups become ordered entry lists, blobs base64 strings, and map entries a
// list of key/value pairs (keys need not be strings). Non-finite floats
// become the strings "NaN", "+Inf" and "-Inf" since JSON has no literal for them.
func Native(v Value) any {
	switch v := v.(type) {
	case VarInt:
		return int64(v)
	case Float:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return strconv.FormatFloat(f, 'g', -1, 32)
		}
		return float32(v)
	case String:
		return string(v)
	case Blob:
		return base64.StdEncoding.EncodeToString(v)
	case VarIntList:
		out := make([]int64, len(v))
		copy(out, v)
		return out
	case Pair:
		return []int64{v.A, v.B}
	case Tripple:
		return []int64{v.A, v.B, v.C}
	case Group:
		return NativeFields(v.Fields)
	case List:
		out := make([]any, len(v.Values))
		for i, e := range v.Values {
			out[i] = Native(e)
		}
		return out
	case Map:
		out := make([]map[string]any, 0, len(v.Keys))
		for i := range v.Keys {
			entry := map[string]any{"key": Native(v.Keys[i])}
			if i < len(v.Values) {
				entry["value"] = Native(v.Values[i])
			}
			out = append(out, entry)
		}
		return out
	case Union:
		out := map[string]any{"discriminant": int(v.Discriminant)}
		if v.Value != nil {
			out["value"] = nativeEntry(*v.Value)
		}
		return out
	default:
		return nil
	}
}

// NativeFields converts a sequence of labeled values into entries, keeping
// wire order and repeated labels.
func NativeFields(fields []Labeled) []Entry {
	out := make([]Entry, len(fields))
	for i, f := range fields {
		out[i] = nativeEntry(f)
	}
	return out
}

func nativeEntry(l Labeled) Entry {
	return Entry{Label: l.Label, Type: l.Type().String(), Value: Native(l.Value)}
}

// Lookup returns the first entry labeled label.
func Lookup(entries []Entry, label string) (Entry, bool) {
	for _, e := range entries {
		if e.Label == label {
			return e, true
		}
	}
	return Entry{}, false
}
