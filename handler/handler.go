// Package handler adapts API Gateway proxy events to the submission and market
// intelligence use cases.
package handler

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
)

const correlationHeader = "X-Correlation-Id"

type errorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// cors describes the Access-Control headers of one endpoint.
type cors struct {
	methods string
	headers string
}

func (c cors) apply(h map[string]string) {
	h["Access-Control-Allow-Credentials"] = "true"
	h["Access-Control-Allow-Origin"] = "*"
	h["Access-Control-Allow-Methods"] = c.methods
	h["Access-Control-Allow-Headers"] = c.headers
}

// responder builds responses that share CORS and correlation headers.
type responder struct {
	cors          cors
	correlationID string
}

func newResponder(c cors, req events.APIGatewayProxyRequest) responder {
	id := headerValue(req, correlationHeader)
	if id == "" {
		id = newCorrelationID()
	}
	return responder{cors: c, correlationID: id}
}

func (r responder) headers() map[string]string {
	h := map[string]string{correlationHeader: r.correlationID}
	r.cors.apply(h)
	return h
}

func (r responder) empty(status int) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: r.headers()}
}

func (r responder) json(status int, v any) events.APIGatewayProxyResponse {
	h := r.headers()
	h["Content-Type"] = "application/json"
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "err", err, "correlationId", r.correlationID)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    h,
			Body:       `{"error":"Internal server error"}`,
		}
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: h, Body: string(body)}
}

func (r responder) methodNotAllowed() events.APIGatewayProxyResponse {
	return r.json(http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
}

// headerValue looks up a request header case-insensitively, checking the
// multi-value headers as well.
func headerValue(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	for k, vs := range req.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return strings.TrimSpace(vs[0])
		}
	}
	return ""
}

// cookieValue returns the named cookie from the request's Cookie headers.
func cookieValue(req events.APIGatewayProxyRequest, name string) string {
	h := http.Header{}
	for k, v := range req.Headers {
		if strings.EqualFold(k, "Cookie") {
			h.Add("Cookie", v)
		}
	}
	for k, vs := range req.MultiValueHeaders {
		if strings.EqualFold(k, "Cookie") {
			for _, v := range vs {
				h.Add("Cookie", v)
			}
		}
	}
	c, err := (&http.Request{Header: h}).Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func requestBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}
	return []byte(req.Body), nil
}

var newCorrelationID = func() string {
	return uuid.NewString()
}
