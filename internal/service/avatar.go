package service

import (
	"net/url"
	"strings"
)

// InitialsAvatarURL derives the placeholder avatar for a new user from
// their name. The same name always yields the same URL.
func InitialsAvatarURL(baseURL, name string) string {
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return baseURL + sep + "name=" + url.QueryEscape(strings.TrimSpace(name))
}
