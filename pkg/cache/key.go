package cache

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Kwarg is a named argument of a memoized call.
type Kwarg struct {
	Name  string
	Value any
}

// Key identifies a memoized call: the function and its arguments.
//
// The string form is
//
//	<namespace>|<arg> <arg> ... <name>_<value> ...
//
// Positional arguments keep their order. Named arguments are appended in the
// order they were added with With and are not sorted, so callers must add
// them the same way on every call to get cache hits.
type Key struct {
	Namespace string
	Args      []any
	Kwargs    []Kwarg
}

// Namespace builds the namespace of a memoized function from its package
// path and name, e.g. "github.com/rubiojr/glimpse/pkg/providers/wayback:overview".
func Namespace(pkgPath, fn string) string {
	return pkgPath + ":" + fn
}

// NewKey returns a key for a call with the given positional arguments.
func NewKey(namespace string, args ...any) Key {
	return Key{Namespace: namespace, Args: args}
}

// With returns a copy of the key with one more named argument.
func (k Key) With(name string, value any) Key {
	k.Kwargs = append(slices.Clone(k.Kwargs), Kwarg{Name: name, Value: value})
	return k
}

func (k Key) String() string {
	parts := make([]string, 0, len(k.Args)+len(k.Kwargs))
	for _, a := range k.Args {
		parts = append(parts, formatArg(a))
	}
	for _, kw := range k.Kwargs {
		parts = append(parts, kw.Name+"_"+formatArg(kw.Value))
	}
	return k.Namespace + "|" + strings.Join(parts, " ")
}

func formatArg(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case url.Values:
		return v.Encode()
	case []string:
		return "[" + strings.Join(v, ",") + "]"
	case []int64:
		s := make([]string, len(v))
		for i, n := range v {
			s[i] = strconv.FormatInt(n, 10)
		}
		return "[" + strings.Join(s, ",") + "]"
	default:
		return fmt.Sprint(v)
	}
}
