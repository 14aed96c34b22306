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

// FargoProviderID is the registry identifier of the Fargo Courier
// integration.
const FargoProviderID = "fargo_courier"

// FargoClient talks to the Fargo Courier REST API. Fargo uses an X-Api-Key
// header and lowercase snake_case status codes, and wraps responses in a
// data envelope.
type FargoClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewFargoClient creates a Fargo Courier adapter.
func NewFargoClient(baseURL, apiKey string, timeout time.Duration) (*FargoClient, error) {
	if baseURL == "" {
		return nil, errs.NewValueIsRequiredError("baseURL")
	}
	if apiKey == "" {
		return nil, errs.NewValueIsRequiredError("apiKey")
	}

	return &FargoClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}, nil
}

// ProviderID returns the registry identifier of this courier.
func (c *FargoClient) ProviderID() string {
	return FargoProviderID
}

type fargoCreateDeliveryRequest struct {
	PickupAddress   string  `json:"pickup_address"`
	DropoffAddress  string  `json:"dropoff_address"`
	SenderMobile    string  `json:"sender_mobile"`
	RecipientMobile string  `json:"recipient_mobile"`
	ParcelNote      string  `json:"parcel_note"`
	RiderNote       string  `json:"rider_note,omitempty"`
	WeightKG        float64 `json:"weight_kg"`
	ValueKES        int64   `json:"value_kes"`
}

type fargoDelivery struct {
	Reference  string     `json:"reference"`
	State      string     `json:"state"`
	StateNote  string     `json:"state_note"`
	RiderArea  string     `json:"rider_area"`
	OccurredAt *time.Time `json:"occurred_at"`
	PickupBy   *time.Time `json:"pickup_by"`
	DeliverBy  *time.Time `json:"deliver_by"`
}

type fargoEnvelope struct {
	Data  fargoDelivery `json:"data"`
	Error string        `json:"error"`
}

// CreateDelivery submits the shipment to Fargo. Exactly one network call.
func (c *FargoClient) CreateDelivery(
	ctx context.Context,
	request delivery.Request,
) (ports.Acceptance, error) {
	payload := fargoCreateDeliveryRequest{
		PickupAddress:   request.PickupAddress().String(),
		DropoffAddress:  request.DropoffAddress().String(),
		SenderMobile:    request.VendorPhone().String(),
		RecipientMobile: request.CustomerPhone().String(),
		ParcelNote:      request.Description(),
		RiderNote:       request.Instructions(),
		WeightKG:        request.WeightKG(),
		ValueKES:        request.DeclaredValue(),
	}

	envelope, err := c.do(ctx, http.MethodPost, "/api/deliveries", payload, "createDelivery")
	if err != nil {
		return ports.Acceptance{}, err
	}

	if envelope.Data.Reference == "" {
		return ports.Acceptance{}, errs.NewCourierTransportError(
			FargoProviderID, "createDelivery",
			fmt.Errorf("response carried no reference"),
		)
	}

	return ports.Acceptance{
		TrackingID:          envelope.Data.Reference,
		EstimatedPickupAt:   envelope.Data.PickupBy,
		EstimatedDeliveryAt: envelope.Data.DeliverBy,
	}, nil
}

// GetDeliveryStatus polls Fargo for the delivery's current state.
func (c *FargoClient) GetDeliveryStatus(
	ctx context.Context,
	trackingID string,
) (ports.CourierStatus, error) {
	path := "/api/deliveries/" + trackingID
	envelope, err := c.do(ctx, http.MethodGet, path, nil, "getDeliveryStatus")
	if err != nil {
		return ports.CourierStatus{}, err
	}

	status := ports.CourierStatus{
		RawStatus:   envelope.Data.State,
		Description: envelope.Data.StateNote,
		Location:    envelope.Data.RiderArea,
	}
	if envelope.Data.OccurredAt != nil {
		status.Timestamp = *envelope.Data.OccurredAt
	}

	return status, nil
}

// CancelDelivery asks Fargo to void the delivery. Fargo refuses with 422
// once a rider has collected the parcel; a refusal is a denial, not an
// error.
func (c *FargoClient) CancelDelivery(ctx context.Context, trackingID string) (bool, error) {
	path := "/api/deliveries/" + trackingID

	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return false, errs.NewCourierTransportError(FargoProviderID, "cancelDelivery", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, errs.NewCourierTransportError(FargoProviderID, "cancelDelivery", err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
		return true, nil
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return false, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, errs.NewObjectNotFoundError("delivery", trackingID)
	default:
		return false, errs.NewCourierTransportError(
			FargoProviderID, "cancelDelivery",
			fmt.Errorf("unexpected status %d", resp.StatusCode),
		)
	}
}

func (c *FargoClient) do(
	ctx context.Context,
	method string,
	path string,
	payload any,
	op string,
) (fargoEnvelope, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fargoEnvelope{}, errs.NewCourierTransportError(FargoProviderID, op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return fargoEnvelope{}, errs.NewCourierTransportError(FargoProviderID, op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fargoEnvelope{}, errs.NewCourierTransportError(FargoProviderID, op, err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		var envelope fargoEnvelope
		if err = json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			return fargoEnvelope{}, errs.NewCourierTransportError(FargoProviderID, op, err)
		}
		return envelope, nil
	case resp.StatusCode == http.StatusNotFound:
		return fargoEnvelope{}, errs.NewObjectNotFoundError("delivery", path)
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		var envelope fargoEnvelope
		_ = json.NewDecoder(resp.Body).Decode(&envelope)
		if envelope.Error == "" {
			envelope.Error = fmt.Sprintf("request rejected with status %d", resp.StatusCode)
		}
		return fargoEnvelope{}, errs.NewCourierRejectedError(FargoProviderID, envelope.Error)
	default:
		return fargoEnvelope{}, errs.NewCourierTransportError(
			FargoProviderID, op,
			fmt.Errorf("unexpected status %d", resp.StatusCode),
		)
	}
}

func (c *FargoClient) newRequest(
	ctx context.Context,
	method string,
	path string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}
