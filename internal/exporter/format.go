package exporter

import (
	"fmt"
	"strconv"
)

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatValue formats a decoded cell value: the shortest float that reads
// back the same, integers as is, and text unchanged.
func formatValue(v any) string {
	switch x := v.(type) {
	case int64:
		return formatInt(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
