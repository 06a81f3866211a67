package http

import (
	"net/http"
	"net/url"
)

// Redirect issues a 303 See Other, the correct status for a post-form
// redirect.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// RedirectWithError redirects to target carrying a machine-readable error
// code in the query string. The presentation layer maps the code to display
// text; no internal detail ever travels in the URL.
func RedirectWithError(w http.ResponseWriter, r *http.Request, target, code string) {
	RedirectWithQuery(w, r, target, url.Values{"error": {code}})
}

// RedirectWithMessage redirects to target carrying an informational message
// code.
func RedirectWithMessage(w http.ResponseWriter, r *http.Request, target, code string) {
	RedirectWithQuery(w, r, target, url.Values{"message": {code}})
}

// RedirectWithQuery redirects to target with the given query values.
func RedirectWithQuery(w http.ResponseWriter, r *http.Request, target string, values url.Values) {
	if len(values) > 0 {
		target = target + "?" + values.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
