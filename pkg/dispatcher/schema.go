package dispatcher

import (
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// FieldType is the JSON type a schema field requires.
type FieldType int

const (
	// TypeString requires a JSON string.
	TypeString FieldType = iota
	// TypeInt requires any JSON number; fractions are truncated on extraction.
	TypeInt
	// TypeFloat requires any JSON number.
	TypeFloat
	// TypePresent requires only a non-null value. Numbers, numeric strings
	// and booleans extract as an int; anything else fails extraction.
	TypePresent
)

func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "integer"
	case TypeFloat:
		return "number"
	case TypePresent:
		return "present"
	default:
		return "unknown"
	}
}

// Field is one required parameter.
type Field struct {
	Name string
	Type FieldType
}

// Schema is the ordered list of required parameters for one command.
type Schema []Field

// Args holds extracted values in schema order: string, int or float64.
type Args []interface{}

func (a Args) String(i int) string { return a[i].(string) }

func (a Args) Int(i int) int { return a[i].(int) }

func (a Args) Float(i int) float64 { return a[i].(float64) }

// Extract checks every field of s against params and converts it to its
// native type. It reports false on the first missing or mistyped field.
func (s Schema) Extract(params Params) (Args, bool) {
	args := make(Args, 0, len(s))
	for _, f := range s {
		raw, ok := params[f.Name]
		if !ok || raw == nil {
			return nil, false
		}
		v, ok := convert(f.Type, raw)
		if !ok {
			return nil, false
		}
		args = append(args, v)
	}
	return args, true
}

// Names returns the field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

func convert(t FieldType, raw interface{}) (interface{}, bool) {
	switch t {
	case TypeString:
		s, ok := raw.(string)
		return s, ok
	case TypeInt:
		return integer(raw)
	case TypeFloat:
		f, ok := number(raw)
		return f, ok
	case TypePresent:
		switch v := raw.(type) {
		case bool:
			if v {
				return 1, true
			}
			return 0, true
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, false
			}
			return truncate(f)
		default:
			return integer(raw)
		}
	}
	return nil, false
}

// integer keeps exact values for integral json.Number input and truncates
// everything else.
func integer(raw interface{}) (interface{}, bool) {
	if n, ok := raw.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	f, ok := number(raw)
	if !ok {
		return nil, false
	}
	return truncate(f)
}

// number accepts the numeric representations a decoded envelope or a
// hand-built Params map may carry. Booleans are not numbers.
func number(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return float64(i), true
		}
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	default:
		return 0, false
	}
}

func truncate(f float64) (interface{}, bool) {
	if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil, false
	}
	return int(f), true
}

var (
	logonSchema = Schema{
		{"ip", TypeString},
		{"port", TypeInt},
		{"version", TypeString},
		{"yyb_id", TypeInt},
		{"account_no", TypeString},
		{"trade_account", TypeString},
		{"jy_password", TypeString},
		{"tx_password", TypeString},
	}
	logoffSchema = Schema{
		{"client_id", TypeInt},
	}
	queryDataSchema = Schema{
		{"client_id", TypeInt},
		{"category", TypePresent},
	}
	sendOrderSchema = Schema{
		{"client_id", TypeInt},
		{"category", TypeInt},
		{"price_type", TypeInt},
		{"gddm", TypeString},
		{"zqdm", TypeString},
		{"price", TypeFloat},
		{"quantity", TypeInt},
	}
	// GetQuote and CancelOrder share this schema and the same facade call.
	quoteSchema = Schema{
		{"client_id", TypeInt},
		{"exchange_id", TypeString},
		{"hth", TypeString},
	}
	repaySchema = Schema{
		{"client_id", TypeInt},
		{"amount", TypeString},
	}
	stopSchema = Schema{}
)
