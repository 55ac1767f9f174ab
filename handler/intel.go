package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"supplyfinder/internal/domain"
)

var intelCORS = cors{
	methods: "GET,OPTIONS",
	headers: "Accept, Content-Type",
}

// isoMillis matches JavaScript's Date.prototype.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z"

type SnapshotProvider interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

type intelMeta struct {
	UpdatedAt  string         `json:"updatedAt"`
	TTLMinutes float64        `json:"ttlMinutes"`
	Sources    domain.Sources `json:"sources"`
}

type intelResponse struct {
	LithiumPrice  domain.Signal `json:"lithium_price"`
	ShippingDelay domain.Signal `json:"shipping_delay"`
	PolicyAlert   domain.Signal `json:"policy_alert"`
	Meta          intelMeta     `json:"meta"`
}

// IntelHandler serves GET /api/market-intelligence.
type IntelHandler struct {
	provider SnapshotProvider
	ttl      time.Duration
	logger   *slog.Logger
}

func NewIntelHandler(p SnapshotProvider, ttl time.Duration, logger *slog.Logger) (*IntelHandler, error) {
	if p == nil {
		return nil, errors.New("handler: snapshot provider must not be nil")
	}
	if ttl <= 0 {
		return nil, errors.New("handler: ttl must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IntelHandler{provider: p, ttl: ttl, logger: logger}, nil
}

func (h *IntelHandler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	r := newResponder(intelCORS, req)
	switch req.HTTPMethod {
	case http.MethodOptions:
		return r.empty(http.StatusOK), nil
	case http.MethodGet:
	default:
		return r.methodNotAllowed(), nil
	}

	snap, err := h.provider.Snapshot(ctx)
	if err != nil {
		h.logger.Error("market-intelligence error", "err", err, "correlationId", r.correlationID)
		return r.json(http.StatusInternalServerError, errorResponse{Error: "Failed to load market intelligence"}), nil
	}
	return r.json(http.StatusOK, h.payload(snap)), nil
}

func (h *IntelHandler) payload(s domain.Snapshot) intelResponse {
	return intelResponse{
		LithiumPrice:  s.LithiumPrice,
		ShippingDelay: s.ShippingDelay,
		PolicyAlert:   s.PolicyAlert,
		Meta: intelMeta{
			UpdatedAt:  s.FetchedAt.UTC().Format(isoMillis),
			TTLMinutes: h.ttl.Minutes(),
			Sources:    s.Sources,
		},
	}
}
