package rest

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// EncodeQuery flattens params into a form-encoded query string using the
// bracket notation the portal expects for nested values (KEY[sub]=v,
// LIST[0]=v). Keys are emitted in sorted order; nil values are skipped;
// booleans become 1 and 0.
func EncodeQuery(params Params) string {
	if len(params) == 0 {
		return ""
	}
	var pairs []string
	for _, k := range sortedKeys(params) {
		appendPairs(&pairs, k, params[k])
	}
	return strings.Join(pairs, "&")
}

func appendPairs(pairs *[]string, key string, value any) {
	switch v := value.(type) {
	case nil:
	case string:
		*pairs = append(*pairs, url.QueryEscape(key)+"="+url.QueryEscape(v))
	case bool:
		s := "0"
		if v {
			s = "1"
		}
		*pairs = append(*pairs, url.QueryEscape(key)+"="+s)
	case int:
		*pairs = append(*pairs, url.QueryEscape(key)+"="+strconv.Itoa(v))
	case int64:
		*pairs = append(*pairs, url.QueryEscape(key)+"="+strconv.FormatInt(v, 10))
	case float64:
		*pairs = append(*pairs, url.QueryEscape(key)+"="+strconv.FormatFloat(v, 'f', -1, 64))
	case []string:
		for i, item := range v {
			appendPairs(pairs, fmt.Sprintf("%s[%d]", key, i), item)
		}
	case []any:
		for i, item := range v {
			appendPairs(pairs, fmt.Sprintf("%s[%d]", key, i), item)
		}
	case Params:
		for _, sub := range sortedKeys(v) {
			appendPairs(pairs, key+"["+sub+"]", v[sub])
		}
	case map[string]any:
		appendPairs(pairs, key, Params(v))
	case map[string]string:
		m := make(Params, len(v))
		for k, s := range v {
			m[k] = s
		}
		appendPairs(pairs, key, m)
	default:
		*pairs = append(*pairs, url.QueryEscape(key)+"="+url.QueryEscape(fmt.Sprint(v)))
	}
}

func sortedKeys(m Params) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
