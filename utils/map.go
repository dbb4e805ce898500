package utils

import (
	"fmt"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
)

// OrderedMapToString formats diagnostic data in insertion order.
// Example: {"pos": (1 2 3), "tick": 40} => "[pos=(1 2 3) tick=40]".
func OrderedMapToString(data *orderedmap.OrderedMap[string, any]) string {
	if data == nil {
		return "[]"
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for el := data.Front(); el != nil; el = el.Next() {
		if el != data.Front() {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%v", el.Key, el.Value)
	}
	sb.WriteByte(']')
	return sb.String()
}
