package httpclient

import (
	"net/http"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

const acceptAPI = "application/json, text/plain, */*"

// BrowserHeaders returns the headers a browser's fetch() adds for method.
// Content-Type is left to the body encoder.
func BrowserHeaders(method domain.HTTPMethod) domain.Headers {
	accept := "*/*"
	switch method {
	case domain.MethodGet, domain.MethodPost, domain.MethodPut, domain.MethodPatch, domain.MethodDelete:
		accept = acceptAPI
	}

	h := domain.Headers{
		{Name: "Accept", Value: accept},
		{Name: "Accept-Language", Value: "en-US,en;q=0.9"},
		{Name: "Sec-Fetch-Dest", Value: "empty"},
		{Name: "Sec-Fetch-Mode", Value: "cors"},
		{Name: "Sec-Fetch-Site", Value: "same-origin"},
		{Name: "Cache-Control", Value: "no-cache"},
		{Name: "Pragma", Value: "no-cache"},
	}
	if method == domain.MethodOptions {
		h = append(h,
			domain.Header{Name: "Access-Control-Request-Method", Value: "*"},
			domain.Header{Name: "Access-Control-Request-Headers", Value: "*"},
		)
	}
	return h
}

// fillMissing adds each default whose name the request does not carry yet.
func fillMissing(req *http.Request, defaults domain.Headers) {
	for _, d := range defaults {
		if d.Name == "" || len(req.Header.Values(d.Name)) > 0 {
			continue
		}
		req.Header.Set(d.Name, d.Value)
	}
}
