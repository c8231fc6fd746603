// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package server

import (
	"errors"
	"mime"
	"strconv"
)

var (
	errInvalidRedirectURI     = errors.New("redirect_uri must be an absolute URI")
	errRedirectURIHasFragment = errors.New("redirect_uri must not contain a fragment")
	errRedirectURIRequiresTLS = errors.New("redirect_uri must use https")
)

func parseMediaType(contentType string) (string, map[string]string, error) {
	return mime.ParseMediaType(contentType)
}

func intToString(v int64) string {
	return strconv.FormatInt(v, 10)
}
