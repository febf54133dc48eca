package handlers

import (
	"strconv"
	"strings"
)

func parseUint(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// parseIncludes splits the ?include= query value ("Client,Items") into the
// relation names to eager-load, filtered against the relations the handler
// allows.
func parseIncludes(raw string, allowed ...string) []string {
	if raw == "" {
		return nil
	}

	var includes []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		for _, a := range allowed {
			if strings.EqualFold(name, a) {
				includes = append(includes, a)
				break
			}
		}
	}
	return includes
}
