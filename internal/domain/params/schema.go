// Package params defines the parameter schemas of every deployable unit kind
// and validates raw parameter records against them.
package params

import (
	"fmt"
	"math"
	"math/big"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/orange-finance/odeploy/internal/domain"
	"gopkg.in/yaml.v3"
)

// MaxDecimals is the largest token decimals value, the range of a uint8
const MaxDecimals = math.MaxUint8

var (
	addressPattern  = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	decimalPattern  = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
	integerPattern  = regexp.MustCompile(`^[0-9]+$`)
	referencePrefix = "@"
)

// FieldType is the shape constraint of a field
type FieldType string

const (
	TypeAddress FieldType = "address"
	TypeString  FieldType = "string"
	TypeEnum    FieldType = "enum"
	// TypeUint is a non-negative integer number.
	TypeUint FieldType = "uint"
	// TypeUintString is a non-negative integer carried as a decimal string,
	// for values that may exceed 64 bits.
	TypeUintString FieldType = "uint-string"
	// TypeDecimal is a non-negative decimal string such as "0.005".
	TypeDecimal FieldType = "decimal"
	// TypeReference is either an address or "@<unit id>" naming a managed unit.
	TypeReference FieldType = "reference"
	TypeList      FieldType = "list"
	TypeObject    FieldType = "object"
)

// Field is one declared parameter
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Optional    bool
	Enum        []string
	// Max bounds a uint field; zero leaves it unbounded.
	Max uint64
	// Fields describes the items of a list or the members of an object.
	Fields []Field
}

// Schema is the declared shape of one unit kind's parameter record
type Schema struct {
	Kind   string
	Fields []Field
}

// Field returns the declaration of a top-level field.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks raw against the schema and returns a normalized copy in
// which numbers are typed and numeric strings are strings. Every violation is
// reported; the returned error is a *multierror.Error of *domain.FieldError.
func (s Schema) Validate(raw map[string]any) (map[string]any, error) {
	var result *multierror.Error
	out := validateObject("", s.Fields, raw, &result)
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

func validateObject(prefix string, fields []Field, raw map[string]any, result **multierror.Error) map[string]any {
	out := make(map[string]any, len(raw))
	known := make(map[string]bool, len(fields))

	for _, f := range fields {
		known[f.Name] = true
		path := joinPath(prefix, f.Name)
		value, ok := raw[f.Name]
		if !ok || value == nil {
			if !f.Optional {
				*result = multierror.Append(*result, violation(path, f, "is required"))
			}
			continue
		}
		if v, ok := validateValue(path, f, value, result); ok {
			out[f.Name] = v
		}
	}

	unknown := make([]string, 0)
	for key := range raw {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		*result = multierror.Append(*result, &domain.FieldError{Field: joinPath(prefix, key), Reason: "is not a known parameter"})
	}

	return out
}

func validateValue(path string, f Field, value any, result **multierror.Error) (any, bool) {
	fail := func(reason string) (any, bool) {
		*result = multierror.Append(*result, violation(path, f, reason))
		return nil, false
	}

	switch f.Type {
	case TypeAddress:
		s, ok := value.(string)
		if !ok || !addressPattern.MatchString(s) {
			return fail(fmt.Sprintf("must be a 0x-prefixed 20-byte hex address, got %s", describe(value)))
		}
		return s, true

	case TypeReference:
		s, ok := value.(string)
		if !ok {
			return fail(fmt.Sprintf("must be an address or @unit reference, got %s", describe(value)))
		}
		if strings.HasPrefix(s, referencePrefix) {
			if len(s) == len(referencePrefix) {
				return fail("reference must name a unit after @")
			}
			return s, true
		}
		if !addressPattern.MatchString(s) {
			return fail(fmt.Sprintf("must be a 0x-prefixed 20-byte hex address or @unit reference, got %s", describe(value)))
		}
		return s, true

	case TypeString:
		s, ok := value.(string)
		if !ok {
			return fail(fmt.Sprintf("must be a string, got %s", describe(value)))
		}
		return s, true

	case TypeEnum:
		s, ok := value.(string)
		if !ok || !contains(f.Enum, s) {
			return fail(fmt.Sprintf("must be one of [%s], got %s", strings.Join(f.Enum, ", "), describe(value)))
		}
		return s, true

	case TypeUint:
		n, err := toUint(value)
		if err != nil {
			return fail(err.Error())
		}
		if f.Max > 0 && n > f.Max {
			return fail(fmt.Sprintf("must be at most %d, got %d", f.Max, n))
		}
		return n, true

	case TypeUintString:
		s, err := toNumericString(value, integerPattern)
		if err != nil {
			return fail(err.Error())
		}
		return s, true

	case TypeDecimal:
		s, err := toNumericString(value, decimalPattern)
		if err != nil {
			return fail(err.Error())
		}
		return s, true

	case TypeObject:
		m, ok := asMap(value)
		if !ok {
			return fail(fmt.Sprintf("must be an object, got %s", describe(value)))
		}
		return validateObject(path, f.Fields, m, result), true

	case TypeList:
		items, ok := value.([]any)
		if !ok {
			return fail(fmt.Sprintf("must be a list, got %s", describe(value)))
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			m, ok := asMap(item)
			if !ok {
				*result = multierror.Append(*result, violation(itemPath, f, fmt.Sprintf("must be an object, got %s", describe(item))))
				continue
			}
			out = append(out, validateObject(itemPath, f.Fields, m, result))
		}
		return out, true
	}

	return fail(fmt.Sprintf("unsupported field type %q", f.Type))
}

func violation(path string, f Field, reason string) *domain.FieldError {
	return &domain.FieldError{Field: path, Description: f.Description, Reason: reason}
}

func toUint(value any) (uint64, error) {
	switch v := value.(type) {
	case int:
		if v < 0 {
			return 0, fmt.Errorf("must be non-negative, got %d", v)
		}
		return uint64(v), nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("must be non-negative, got %d", v)
		}
		return uint64(v), nil
	case uint64:
		return v, nil
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("must be non-negative, got %v", v)
		}
		if v != math.Trunc(v) || v > math.MaxUint64 {
			return 0, fmt.Errorf("must be an integer, got %v", v)
		}
		return uint64(v), nil
	}
	return 0, fmt.Errorf("must be a non-negative integer, got %s", describe(value))
}

func toNumericString(value any, pattern *regexp.Regexp) (string, error) {
	var s string
	switch v := value.(type) {
	case string:
		s = strings.TrimSpace(v)
	case int, int64, uint64:
		s = fmt.Sprintf("%d", v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return "", fmt.Errorf("must be a numeric string, got %s", describe(value))
	}
	if strings.HasPrefix(s, "-") {
		return "", fmt.Errorf("must be non-negative, got %s", s)
	}
	if !pattern.MatchString(s) {
		return "", fmt.Errorf("must be a non-negative number, got %q", s)
	}
	return s, nil
}

func asMap(value any) (map[string]any, bool) {
	switch m := value.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	}
	return nil, false
}

func describe(value any) string {
	switch v := value.(type) {
	case string:
		return strconv.Quote(v)
	case nil:
		return "null"
	case map[string]any, map[any]any:
		return "an object"
	case []any:
		return "a list"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

// Decode converts a validated record into its typed form.
func Decode[T any](values map[string]any) (T, error) {
	var out T
	data, err := yaml.Marshal(values)
	if err != nil {
		return out, fmt.Errorf("failed to encode parameters: %w", err)
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to decode parameters: %w", err)
	}
	return out, nil
}

// IsReference reports whether a reference field names a managed unit and
// returns the unit id.
func IsReference(value string) (string, bool) {
	if strings.HasPrefix(value, referencePrefix) {
		return strings.TrimPrefix(value, referencePrefix), true
	}
	return "", false
}

// ParseUnits scales a decimal string by 10^decimals, rejecting values with
// more fractional digits than decimals allows.
func ParseUnits(value string, decimals uint64) (*big.Int, error) {
	if decimals > MaxDecimals {
		return nil, fmt.Errorf("decimals must be at most %d, got %d", MaxDecimals, decimals)
	}
	if !decimalPattern.MatchString(value) {
		return nil, fmt.Errorf("invalid decimal %q", value)
	}
	whole, frac, _ := strings.Cut(value, ".")
	frac = strings.TrimRight(frac, "0")
	if uint64(len(frac)) > decimals {
		return nil, fmt.Errorf("%q has more than %d decimals", value, decimals)
	}
	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal %q", value)
	}
	return n, nil
}
