package proxy

import (
	"strings"

	"github.com/pkg/errors"
)

// HttpMethod is an enum of the standard Http Methods.
type HttpMethod int

const (
	GET HttpMethod = iota
	HEAD
	POST
	PUT
	DELETE
	CONNECT
	OPTIONS
	TRACE
	PATCH
)

var methodNames = []string{"GET", "HEAD", "POST", "PUT", "DELETE", "CONNECT", "OPTIONS", "TRACE", "PATCH"}

func (m HttpMethod) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return "UNKNOWN"
	}
	return methodNames[m]
}

// ParseHttpMethod returns the HttpMethod for name, ignoring case.
func ParseHttpMethod(name string) (HttpMethod, error) {
	for i, n := range methodNames {
		if strings.EqualFold(n, name) {
			return HttpMethod(i), nil
		}
	}
	return GET, errors.Errorf("unknown http method '%s'", name)
}
