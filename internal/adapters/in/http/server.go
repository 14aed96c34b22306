// Package http exposes the dispatch core over REST.
//
// The surface is small: a shared webhook for courier status reports, two
// operator actions (reassign, cancel), and two read models. Domain errors
// map onto status codes in one place so every handler reports failures the
// same way.
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

// Server coordinates between HTTP handlers and application use cases.
type Server struct {
	ingestStatusHandler     commands.IngestStatusCommandHandler
	reassignHandler         commands.ReassignDeliveryCommandHandler
	cancelHandler           commands.CancelDeliveryCommandHandler
	activeDeliveriesHandler queries.GetActiveDeliveriesQueryHandler
	deliveryUpdatesHandler  queries.GetDeliveryUpdatesQueryHandler
}

// NewServer creates the HTTP server with the required command and query
// handlers.
func NewServer(
	ingestStatusHandler commands.IngestStatusCommandHandler,
	reassignHandler commands.ReassignDeliveryCommandHandler,
	cancelHandler commands.CancelDeliveryCommandHandler,
	activeDeliveriesHandler queries.GetActiveDeliveriesQueryHandler,
	deliveryUpdatesHandler queries.GetDeliveryUpdatesQueryHandler,
) *Server {
	return &Server{
		ingestStatusHandler:     ingestStatusHandler,
		reassignHandler:         reassignHandler,
		cancelHandler:           cancelHandler,
		activeDeliveriesHandler: activeDeliveriesHandler,
		deliveryUpdatesHandler:  deliveryUpdatesHandler,
	}
}

// RegisterRoutes mounts the API on the given echo instance.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api/v1")
	api.POST("/deliveries/status", s.IngestStatus)
	api.GET("/deliveries/active", s.GetActiveDeliveries)
	api.GET("/deliveries/:deliveryID/updates", s.GetDeliveryUpdates)
	api.POST("/orders/:orderID/reassign", s.ReassignDelivery)
	api.POST("/orders/:orderID/cancel", s.CancelDelivery)

	e.GET("/health", s.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Error is the JSON body returned for every failed request.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// StatusReport is the shared webhook payload. All providers post the same
// shape; the raw status is normalized inside the core.
type StatusReport struct {
	ProviderID  string    `json:"provider_id"`
	TrackingID  string    `json:"tracking_id"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Timestamp   time.Time `json:"timestamp"`
}

// ReassignRequest names the provider that takes over the delivery.
type ReassignRequest struct {
	ProviderID string `json:"provider_id"`
}

// CancelRequest carries the operator-visible cancellation reason.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// DeliveryResponse describes a delivery returned by the write endpoints.
type DeliveryResponse struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	ProviderID string `json:"provider_id"`
	TrackingID string `json:"tracking_id,omitempty"`
	Status     string `json:"status"`
}

// IngestStatus handles POST /api/v1/deliveries/status. Reports that the
// core chooses to absorb (unmapped vocabulary, stale progress) still return
// 200 so couriers do not retry them.
func (s *Server) IngestStatus(ctx echo.Context) error {
	var report StatusReport
	if err := ctx.Bind(&report); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	cmd, err := commands.NewIngestStatusCommand(
		report.TrackingID,
		report.ProviderID,
		report.Status,
		report.Description,
		report.Location,
		report.Timestamp,
		delivery.SourceCourier,
	)
	if err != nil {
		return badRequest(ctx, "Invalid status report: "+err.Error())
	}

	if err := s.ingestStatusHandler.Handle(ctx.Request().Context(), cmd); err != nil {
		return writeDomainError(ctx, err)
	}

	return ctx.NoContent(http.StatusOK)
}

// ReassignDelivery handles POST /api/v1/orders/{orderID}/reassign.
func (s *Server) ReassignDelivery(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("orderID"))
	if err != nil {
		return badRequest(ctx, "Invalid order id")
	}

	var request ReassignRequest
	if err = ctx.Bind(&request); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	cmd, err := commands.NewReassignDeliveryCommand(orderID, request.ProviderID)
	if err != nil {
		return badRequest(ctx, "Invalid reassign request: "+err.Error())
	}

	successor, err := s.reassignHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return writeDomainError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, toDeliveryResponse(successor))
}

// CancelDelivery handles POST /api/v1/orders/{orderID}/cancel. Cancelling an
// order with no active delivery is a no-op and returns 200 with no body.
func (s *Server) CancelDelivery(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("orderID"))
	if err != nil {
		return badRequest(ctx, "Invalid order id")
	}

	var request CancelRequest
	if err = ctx.Bind(&request); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	cmd, err := commands.NewCancelDeliveryCommand(orderID, request.Reason)
	if err != nil {
		return badRequest(ctx, "Invalid cancel request: "+err.Error())
	}

	cancelled, err := s.cancelHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		return writeDomainError(ctx, err)
	}
	if cancelled == nil {
		return ctx.NoContent(http.StatusOK)
	}

	return ctx.JSON(http.StatusOK, toDeliveryResponse(cancelled))
}

// GetActiveDeliveries handles GET /api/v1/deliveries/active.
func (s *Server) GetActiveDeliveries(ctx echo.Context) error {
	query := queries.NewGetActiveDeliveriesQuery()

	deliveries, err := s.activeDeliveriesHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return internalError(ctx, "Failed to retrieve active deliveries")
	}

	return ctx.JSON(http.StatusOK, deliveries)
}

// GetDeliveryUpdates handles GET /api/v1/deliveries/{deliveryID}/updates.
func (s *Server) GetDeliveryUpdates(ctx echo.Context) error {
	deliveryID, err := kernel.UUIDFromString(ctx.Param("deliveryID"))
	if err != nil {
		return badRequest(ctx, "Invalid delivery id")
	}

	query, err := queries.NewGetDeliveryUpdatesQuery(deliveryID)
	if err != nil {
		return badRequest(ctx, "Invalid delivery id: "+err.Error())
	}

	updates, err := s.deliveryUpdatesHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return writeDomainError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, updates)
}

// Health handles GET /health.
func (s *Server) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func toDeliveryResponse(d *delivery.Delivery) DeliveryResponse {
	return DeliveryResponse{
		ID:         d.ID().String(),
		OrderID:    d.OrderID().String(),
		ProviderID: d.ProviderID(),
		TrackingID: d.TrackingID(),
		Status:     d.Status().String(),
	}
}

// writeDomainError maps core errors onto HTTP status codes. Courier-side
// failures surface as 502 so callers can tell them apart from our own
// validation and state conflicts.
func writeDomainError(ctx echo.Context, err error) error {
	switch {
	case errors.Is(err, errs.ErrObjectNotFound):
		return writeError(ctx, http.StatusNotFound, err)
	case errors.Is(err, errs.ErrDuplicateDispatch):
		return writeError(ctx, http.StatusConflict, err)
	case errors.Is(err, errs.ErrProviderNotSupported):
		return writeError(ctx, http.StatusUnprocessableEntity, err)
	case errors.Is(err, errs.ErrCourierRejected),
		errors.Is(err, errs.ErrCourierTransport):
		return writeError(ctx, http.StatusBadGateway, err)
	case errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, errs.ErrValueIsInvalid):
		return writeError(ctx, http.StatusBadRequest, err)
	default:
		return internalError(ctx, "Internal error")
	}
}

func writeError(ctx echo.Context, code int, err error) error {
	return ctx.JSON(code, Error{Code: code, Message: err.Error()})
}

func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, Error{Code: http.StatusBadRequest, Message: message})
}

func internalError(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusInternalServerError, Error{
		Code:    http.StatusInternalServerError,
		Message: message,
	})
}
