package transport

import (
	"net/http"
	"net/url"
)

const DefaultFlashCookie = "rahat_flash"

// SetFlash leaves a one-shot notice for the next page the browser loads.
func SetFlash(w http.ResponseWriter, name, message string) {
	if name == "" {
		name = DefaultFlashCookie
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash returns the pending notice, if any, and expires the cookie.
func PopFlash(w http.ResponseWriter, r *http.Request, name string) string {
	if name == "" {
		name = DefaultFlashCookie
	}
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	message, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return message
}
