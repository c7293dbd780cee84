package tracing

import "go.opentelemetry.io/otel/attribute"

// attrFor converts a loosely-typed attribute value into an OTel KeyValue,
// mirroring the small set of types spans in this repo actually carry
// (strings, ints, floats, bools, durations-as-strings).
func attrFor(key string, v any) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(key, val)
	case int:
		return attribute.Int(key, val)
	case int64:
		return attribute.Int64(key, val)
	case float64:
		return attribute.Float64(key, val)
	case bool:
		return attribute.Bool(key, val)
	default:
		return attribute.String(key, "")
	}
}
