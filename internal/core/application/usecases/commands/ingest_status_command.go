package commands

import (
	"errors"
	"time"

	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/pkg/guard"
)

var (
	ErrIngestStatusCommandIsNotConstructed = errors.New(
		"IngestStatusCommand must be created via NewIngestStatusCommand constructor",
	)
	ErrTrackingIDIsRequired = errors.New("tracking id is required")
	ErrRawStatusIsRequired  = errors.New("raw status is required")
)

// IngestStatusCommand represents one incoming courier status report, whether
// sourced from a webhook, the polling job, or a manual admin action. The raw
// provider vocabulary is carried as-is; normalization happens in the handler.
type IngestStatusCommand struct { //nolint:recvcheck //using for validation
	trackingID  string
	providerID  string
	rawStatus   string
	description string
	location    string
	timestamp   time.Time
	source      delivery.UpdateSource

	guard guard.ConstructorGuard
}

// NewIngestStatusCommand creates a status ingestion command. Description and
// location are optional; a zero timestamp means "now".
func NewIngestStatusCommand(
	trackingID string,
	providerID string,
	rawStatus string,
	description string,
	location string,
	timestamp time.Time,
	source delivery.UpdateSource,
) (IngestStatusCommand, error) {
	cmd := IngestStatusCommand{
		description: description,
		location:    location,
		timestamp:   timestamp,
		guard:       guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setTrackingID(trackingID),
		cmd.setProviderID(providerID),
		cmd.setRawStatus(rawStatus),
		cmd.setSource(source),
	); err != nil {
		return IngestStatusCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c IngestStatusCommand) Validate() error {
	return c.guard.Validate(ErrIngestStatusCommandIsNotConstructed)
}

// TrackingID returns the courier-issued tracking identifier.
func (c IngestStatusCommand) TrackingID() string {
	return c.trackingID
}

// ProviderID returns the provider that reported the status.
func (c IngestStatusCommand) ProviderID() string {
	return c.providerID
}

// RawStatus returns the provider-native status code.
func (c IngestStatusCommand) RawStatus() string {
	return c.rawStatus
}

// Description returns the optional human-readable detail.
func (c IngestStatusCommand) Description() string {
	return c.description
}

// Location returns the optional courier-reported location.
func (c IngestStatusCommand) Location() string {
	return c.location
}

// Timestamp returns when the courier says the status took effect.
// Zero means the report carried no timestamp.
func (c IngestStatusCommand) Timestamp() time.Time {
	return c.timestamp
}

// Source returns where this report came from.
func (c IngestStatusCommand) Source() delivery.UpdateSource {
	return c.source
}

func (c *IngestStatusCommand) setTrackingID(trackingID string) error {
	if trackingID == "" {
		return ErrTrackingIDIsRequired
	}
	c.trackingID = trackingID
	return nil
}

func (c *IngestStatusCommand) setProviderID(providerID string) error {
	if providerID == "" {
		return ErrProviderIDIsRequired
	}
	c.providerID = providerID
	return nil
}

func (c *IngestStatusCommand) setRawStatus(rawStatus string) error {
	if rawStatus == "" {
		return ErrRawStatusIsRequired
	}
	c.rawStatus = rawStatus
	return nil
}

func (c *IngestStatusCommand) setSource(source delivery.UpdateSource) error {
	if err := source.Validate(); err != nil {
		return err
	}
	c.source = source
	return nil
}
