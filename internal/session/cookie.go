package session

import (
	"fmt"     // Error wrapping
	"net/url" // Percent-decoding
	"strings" // Fragment scanning
)

// TokenFromCookie extracts the jwt_token value from a cookie header string
// such as "a=1; jwt_token=XYZ; b=2". The string is percent-decoded first,
// fragments are scanned left to right with leading spaces trimmed, and the
// first match wins. It returns "" when no fragment matches, and an error
// when the string is not valid percent-encoding.
func TokenFromCookie(cookie string) (string, error) {
	const name = StorageKey + "="
	decoded, err := url.PathUnescape(cookie)
	if err != nil {
		return "", fmt.Errorf("decode cookie: %w", err)
	}
	for _, fragment := range strings.Split(decoded, ";") {
		fragment = strings.TrimLeft(fragment, " ")
		if strings.HasPrefix(fragment, name) {
			return fragment[len(name):], nil
		}
	}
	return "", nil
}
