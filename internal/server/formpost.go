// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package server

import (
	"fmt"
	"html/template"
	"net/http"
)

// formPostTemplate is the response_mode=form_post body (spec.md §4.2): an
// auto-submitting HTML form whose action and hidden fields are HTML-
// entity-encoded by html/template, not string concatenation (spec.md §9:
// "string concatenation without encoding is not [acceptable]").
var formPostTemplate = template.Must(template.New("form_post").Parse(`<!DOCTYPE html>
<html>
<head><title>Continue</title></head>
<body onload="javascript:document.forms[0].submit()">
<form method="post" action="{{.Action}}">
{{range $k, $v := .Fields}}<input type="hidden" name="{{$k}}" value="{{$v}}">
{{end}}<noscript><input type="submit" value="Continue"></noscript>
</form>
</body>
</html>
`))

type formPostData struct {
	Action string
	Fields map[string]string
}

// writeFormPost renders formPostTemplate to w. A template execution
// failure is a server_error rendered as a plain-text page, since by this
// point the handler has no further structured response surface to fall
// back to.
func writeFormPost(w http.ResponseWriter, action string, fields map[string]string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := formPostTemplate.Execute(w, formPostData{Action: action, Fields: fields}); err != nil {
		http.Error(w, fmt.Sprintf("server_error: %v", err), http.StatusInternalServerError)
	}
}
