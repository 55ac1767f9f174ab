// Package devserver runs the Lambda handlers behind a plain HTTP server so the
// static frontend can be developed against them locally.
package devserver

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

const maxBodyBytes = 1 << 20

// LambdaFunc is the signature of an API Gateway proxy handler.
type LambdaFunc func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// Adapt serves fn over net/http, translating requests to API Gateway proxy
// events and responses back.
func Adapt(fn LambdaFunc, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}

		resp, err := fn(r.Context(), toEvent(r, body))
		if err != nil {
			logger.Error("handler returned error", "path", r.URL.Path, "err", err)
			http.Error(w, "internal error", http.StatusBadGateway)
			return
		}
		writeResponse(w, resp, logger)
	})
}

func toEvent(r *http.Request, body []byte) events.APIGatewayProxyRequest {
	ev := events.APIGatewayProxyRequest{
		HTTPMethod:        r.Method,
		Path:              r.URL.Path,
		Headers:           make(map[string]string, len(r.Header)),
		MultiValueHeaders: make(map[string][]string, len(r.Header)),
		Body:              string(body),
	}
	for k, vs := range r.Header {
		if len(vs) > 0 {
			ev.Headers[k] = vs[0]
		}
		ev.MultiValueHeaders[k] = append([]string(nil), vs...)
	}
	if q := r.URL.Query(); len(q) > 0 {
		ev.QueryStringParameters = make(map[string]string, len(q))
		ev.MultiValueQueryStringParameters = make(map[string][]string, len(q))
		for k, vs := range q {
			ev.QueryStringParameters[k] = vs[0]
			ev.MultiValueQueryStringParameters[k] = vs
		}
	}
	ev.RequestContext.HTTPMethod = r.Method
	ev.RequestContext.Path = r.URL.Path
	ev.RequestContext.Identity.SourceIP = clientIP(r)
	return ev
}

func writeResponse(w http.ResponseWriter, resp events.APIGatewayProxyResponse, logger *slog.Logger) {
	h := w.Header()
	for k, v := range resp.Headers {
		h.Set(k, v)
	}
	for k, vs := range resp.MultiValueHeaders {
		h.Del(k)
		for _, v := range vs {
			h.Add(k, v)
		}
	}

	body := []byte(resp.Body)
	if resp.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			logger.Error("invalid base64 response body", "err", err)
			http.Error(w, "internal error", http.StatusBadGateway)
			return
		}
		body = decoded
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Warn("failed to write response", "err", err)
	}
}

// clientIP strips the port from RemoteAddr, which chi's RealIP middleware may
// already have replaced with a bare address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
