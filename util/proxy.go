package util

import (
	"net/http"
	"os"

	"github.com/mattn/go-ieproxy"
)

// ProxyInfo describes the proxy outgoing requests will go through
type ProxyInfo struct {
	URL    string
	Source string
}

// DetectProxy reports the proxy in effect, or nil when connecting directly.
// Environment variables take precedence over system settings.
func DetectProxy() *ProxyInfo {
	for _, env := range []string{"HTTPS_PROXY", "https_proxy", "HTTP_PROXY", "http_proxy"} {
		if v := os.Getenv(env); v != "" {
			return &ProxyInfo{URL: v, Source: "environment variable " + env}
		}
	}

	conf := ieproxy.GetConf()
	if !conf.Static.Active {
		return nil
	}
	for _, scheme := range []string{"https", "http"} {
		if p := conf.Static.Protocols[scheme]; p != "" {
			return &ProxyInfo{URL: p, Source: "system proxy settings"}
		}
	}
	return nil
}

// CreateHTTPTransportWithProxy clones the default transport and routes it
// through the environment or system proxy
func CreateHTTPTransportWithProxy() *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = ieproxy.GetProxyFunc()
	return transport
}
