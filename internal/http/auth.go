package http

import (
	"errors"
	"net/http"
	"strings"
)

var errNoOwner = errors.New("missing owner identity")

// Authenticator resolves the owner identity for a request. The service
// trusts an upstream gateway to authenticate; this only extracts who the
// request acts for.
type Authenticator interface {
	OwnerID(r *http.Request) (string, error)
}

// HeaderAuthenticator reads the owner id from a configurable header.
type HeaderAuthenticator struct {
	Header string
}

func (a HeaderAuthenticator) OwnerID(r *http.Request) (string, error) {
	owner := strings.TrimSpace(r.Header.Get(a.Header))
	if owner == "" {
		return "", errNoOwner
	}
	return owner, nil
}
