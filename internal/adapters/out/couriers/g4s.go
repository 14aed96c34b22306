// Package couriers contains the outbound adapters for external courier
// provider APIs. Each adapter translates the internal dispatch payload into
// its provider's wire format, owns its credentials and base endpoint, and
// maps provider failures onto the shared courier error taxonomy. Adapters
// never retry on their own; retry policy belongs to the callers.
package couriers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/ports"
	"dispatch/internal/pkg/errs"
)

// G4SProviderID is the registry identifier of the G4S courier integration.
const G4SProviderID = "g4s"

// G4SClient talks to the G4S logistics REST API. G4S uses bearer token
// authentication and SCREAMING_CASE status codes.
type G4SClient struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
}

// NewG4SClient creates a G4S adapter. baseURL has no trailing slash; the
// client applies its own request timeout on top of whatever deadline the
// caller's context carries.
func NewG4SClient(baseURL, apiToken string, timeout time.Duration) (*G4SClient, error) {
	if baseURL == "" {
		return nil, errs.NewValueIsRequiredError("baseURL")
	}
	if apiToken == "" {
		return nil, errs.NewValueIsRequiredError("apiToken")
	}

	return &G4SClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiToken:   apiToken,
	}, nil
}

// ProviderID returns the registry identifier of this courier.
func (c *G4SClient) ProviderID() string {
	return G4SProviderID
}

type g4sAddress struct {
	Street string `json:"street"`
	City   string `json:"city"`
	Notes  string `json:"notes,omitempty"`
}

type g4sCreateShipmentRequest struct {
	Pickup        g4sAddress `json:"pickup"`
	Destination   g4sAddress `json:"destination"`
	SenderPhone   string     `json:"sender_phone"`
	ReceiverPhone string     `json:"receiver_phone"`
	Contents      string     `json:"contents"`
	Instructions  string     `json:"instructions,omitempty"`
	WeightKG      float64    `json:"weight_kg"`
	DeclaredValue int64      `json:"declared_value"`
}

type g4sShipmentResponse struct {
	ShipmentNumber    string     `json:"shipment_number"`
	Status            string     `json:"status"`
	StatusDescription string     `json:"status_description"`
	Location          string     `json:"location"`
	EventTime         *time.Time `json:"event_time"`
	PickupETA         *time.Time `json:"pickup_eta"`
	DeliveryETA       *time.Time `json:"delivery_eta"`
}

type g4sErrorResponse struct {
	Message string `json:"message"`
}

// CreateDelivery submits the shipment to G4S. Exactly one network call.
func (c *G4SClient) CreateDelivery(
	ctx context.Context,
	request delivery.Request,
) (ports.Acceptance, error) {
	payload := g4sCreateShipmentRequest{
		Pickup: g4sAddress{
			Street: request.PickupAddress().Street(),
			City:   request.PickupAddress().City(),
			Notes:  request.PickupAddress().Notes(),
		},
		Destination: g4sAddress{
			Street: request.DropoffAddress().Street(),
			City:   request.DropoffAddress().City(),
			Notes:  request.DropoffAddress().Notes(),
		},
		SenderPhone:   request.VendorPhone().String(),
		ReceiverPhone: request.CustomerPhone().String(),
		Contents:      request.Description(),
		Instructions:  request.Instructions(),
		WeightKG:      request.WeightKG(),
		DeclaredValue: request.DeclaredValue(),
	}

	var shipment g4sShipmentResponse
	err := c.do(ctx, http.MethodPost, "/v2/shipments", payload, "createDelivery", &shipment)
	if err != nil {
		return ports.Acceptance{}, err
	}

	if shipment.ShipmentNumber == "" {
		return ports.Acceptance{}, errs.NewCourierTransportError(
			G4SProviderID, "createDelivery",
			fmt.Errorf("response carried no shipment number"),
		)
	}

	return ports.Acceptance{
		TrackingID:          shipment.ShipmentNumber,
		EstimatedPickupAt:   shipment.PickupETA,
		EstimatedDeliveryAt: shipment.DeliveryETA,
	}, nil
}

// GetDeliveryStatus polls G4S for the shipment's current status.
func (c *G4SClient) GetDeliveryStatus(
	ctx context.Context,
	trackingID string,
) (ports.CourierStatus, error) {
	var shipment g4sShipmentResponse
	path := "/v2/shipments/" + trackingID
	err := c.do(ctx, http.MethodGet, path, nil, "getDeliveryStatus", &shipment)
	if err != nil {
		return ports.CourierStatus{}, err
	}

	status := ports.CourierStatus{
		RawStatus:   shipment.Status,
		Description: shipment.StatusDescription,
		Location:    shipment.Location,
	}
	if shipment.EventTime != nil {
		status.Timestamp = *shipment.EventTime
	}

	return status, nil
}

// CancelDelivery asks G4S to cancel the shipment. G4S answers 200 when the
// cancellation is accepted and 409 once pickup has started; 409 is a denial,
// not an error.
func (c *G4SClient) CancelDelivery(ctx context.Context, trackingID string) (bool, error) {
	path := "/v2/shipments/" + trackingID + "/cancel"

	req, err := c.newRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return false, errs.NewCourierTransportError(G4SProviderID, "cancelDelivery", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, errs.NewCourierTransportError(G4SProviderID, "cancelDelivery", err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusConflict:
		return false, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, errs.NewObjectNotFoundError("shipment", trackingID)
	default:
		return false, errs.NewCourierTransportError(
			G4SProviderID, "cancelDelivery",
			fmt.Errorf("unexpected status %d", resp.StatusCode),
		)
	}
}

// do performs one request and decodes the shipment response, mapping HTTP
// failures onto the courier error taxonomy.
func (c *G4SClient) do(
	ctx context.Context,
	method string,
	path string,
	payload any,
	op string,
	out *g4sShipmentResponse,
) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return errs.NewCourierTransportError(G4SProviderID, op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return errs.NewCourierTransportError(G4SProviderID, op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.NewCourierTransportError(G4SProviderID, op, err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errs.NewCourierTransportError(G4SProviderID, op, err)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return errs.NewObjectNotFoundError("shipment", path)
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		var apiErr g4sErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("request rejected with status %d", resp.StatusCode)
		}
		return errs.NewCourierRejectedError(G4SProviderID, apiErr.Message)
	default:
		return errs.NewCourierTransportError(
			G4SProviderID, op,
			fmt.Errorf("unexpected status %d", resp.StatusCode),
		)
	}
}

func (c *G4SClient) newRequest(
	ctx context.Context,
	method string,
	path string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// drainAndClose reads the rest of the body so the connection can be reused.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
