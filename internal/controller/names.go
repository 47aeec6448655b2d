package controller

import (
	"fmt"
	"strings"
)

// actionName renders an action type for logs without its payload, which
// may hold image bytes or long id lists.
func actionName(action any) string {
	if named, ok := action.(fmt.Stringer); ok {
		return named.String()
	}
	name := fmt.Sprintf("%T", action)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
