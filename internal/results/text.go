package results

import "github.com/tidwall/gjson"

// NormalizeText reduces a user_results payload (the program output captured
// per test case) to an ordered list of strings. Arrays yield one entry per
// element and objects one entry per value in document order. A falsy payload
// yields an empty list. Strings keep their content and every other value
// keeps its JSON text.
func NormalizeText(data []byte) []string {
	if !gjson.ValidBytes(data) {
		return []string{}
	}

	v := gjson.ParseBytes(data)
	if !truthy(v) {
		return []string{}
	}

	switch {
	case v.IsArray():
		items := v.Array()
		out := make([]string, len(items))
		for i, item := range items {
			out[i] = textOf(item)
		}
		return out
	case v.IsObject():
		fields := objectFields(v)
		out := make([]string, len(fields))
		for i, f := range fields {
			out[i] = textOf(f.value)
		}
		return out
	default:
		return []string{textOf(v)}
	}
}

func textOf(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.Str
	}
	return v.Raw
}
