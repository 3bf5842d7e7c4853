package service

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	shortCodePattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	schemePattern    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)
)

// NormalizeLongURL проверяет длинный URL и возвращает его в том виде,
// в котором он будет сохранён. URL без схемы считается адресом хоста
// и получает префикс https://.
func NormalizeLongURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !schemePattern.MatchString(raw) {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidLongURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrInvalidLongURL
	}
	if parsed.Hostname() == "" {
		return "", ErrInvalidLongURL
	}

	return raw, nil
}

// SanitizeShortCode пропускает только непустые коды из [A-Za-z0-9-]
func SanitizeShortCode(code string) (string, error) {
	if !shortCodePattern.MatchString(code) {
		return "", ErrInvalidShortCode
	}
	return code, nil
}
