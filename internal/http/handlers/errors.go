package handlers

import "fmt"

func errUnknownType(raw string) error {
	return fmt.Errorf("type must be one of article, quote, video; got %q", raw)
}

func errBadLimit(raw string) error {
	return fmt.Errorf("limit must be a non-negative integer; got %q", raw)
}
