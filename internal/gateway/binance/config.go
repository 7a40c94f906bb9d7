package binance

import (
	"strings"
	"time"
)

// Config carries the exchange connection settings. Proxy URLs are split
// because REST goes through the http.Client transport while the
// websocket proxy is set process-wide on the futures package.
type Config struct {
	RESTBaseURL string
	HTTPTimeout time.Duration

	ProxyEnabled bool
	RESTProxyURL string
	WSProxyURL   string
}

const (
	defaultRESTBaseURL = "https://fapi.binance.com"
	defaultHTTPTimeout = 15 * time.Second
)

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTBaseURL = strings.TrimSpace(out.RESTBaseURL)
	if out.RESTBaseURL == "" {
		out.RESTBaseURL = defaultRESTBaseURL
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = defaultHTTPTimeout
	}
	out.RESTProxyURL = strings.TrimSpace(out.RESTProxyURL)
	out.WSProxyURL = strings.TrimSpace(out.WSProxyURL)
	return out
}
