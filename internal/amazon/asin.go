package amazon

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	asinRegex     = regexp.MustCompile(`^[A-Z0-9]{10}$`)
	asinPathRegex = regexp.MustCompile(`(?i)/(?:dp|gp/product|gp/aw/d|exec/obidos/asin|o/asin)/([A-Z0-9]{10})(?:[/?]|$)`)
)

// IsASIN reports whether s is a well-formed 10-character ASIN
func IsASIN(s string) bool {
	return asinRegex.MatchString(s)
}

// GetASINFromLink extracts the ASIN from an Amazon product link.
// It returns "" for non-Amazon links and links without a product id.
func GetASINFromLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if !strings.Contains(link, "://") {
		link = "https://" + link
	}

	u, err := url.Parse(link)
	if err != nil || !isAmazonHost(u.Hostname()) {
		return ""
	}

	if m := asinPathRegex.FindStringSubmatch(u.EscapedPath()); m != nil {
		return strings.ToUpper(m[1])
	}

	for _, key := range []string{"asin", "ASIN"} {
		if v := strings.ToUpper(u.Query().Get(key)); IsASIN(v) {
			return v
		}
	}
	return ""
}

func isAmazonHost(host string) bool {
	host = strings.ToLower(host)
	if host == "amzn.to" || host == "a.co" {
		// short links carry no ASIN
		return false
	}
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "smile.")
	return strings.HasPrefix(host, "amazon.")
}
