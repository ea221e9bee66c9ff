// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package broker

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/beacon-watch/beacon/internal/models"
)

// Serializer converts broker payloads to and from JSON. One instance is
// shared per component; it is stateless.
type Serializer struct{}

// NewSerializer creates a serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// MarshalJob encodes a probe job.
func (s *Serializer) MarshalJob(job *models.ProbeJob) ([]byte, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal probe job %s: %w", job.ID, err)
	}
	return data, nil
}

// UnmarshalJob decodes a probe job, rejecting payloads without the two
// required fields.
func (s *Serializer) UnmarshalJob(data []byte) (*models.ProbeJob, error) {
	var job models.ProbeJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal probe job: %w", err)
	}
	if job.ID == "" || job.URL == "" {
		return nil, fmt.Errorf("probe job missing id or url: %q", data)
	}
	return &job, nil
}

// MarshalTickEvent encodes a tick event for the fan-out subject.
func (s *Serializer) MarshalTickEvent(ev *models.TickEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal tick event for website %s: %w", ev.WebsiteID, err)
	}
	return data, nil
}

// UnmarshalTickEvent decodes a tick event.
func (s *Serializer) UnmarshalTickEvent(data []byte) (*models.TickEvent, error) {
	var ev models.TickEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal tick event: %w", err)
	}
	if ev.WebsiteID == "" || !models.ValidStatus(ev.Status) {
		return nil, fmt.Errorf("tick event missing website id or status: %q", data)
	}
	return &ev, nil
}

// MarshalWebsiteEvent encodes a website lifecycle event.
func (s *Serializer) MarshalWebsiteEvent(ev *models.WebsiteEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal website event for website %s: %w", ev.WebsiteID, err)
	}
	return data, nil
}

// UnmarshalWebsiteEvent decodes a website lifecycle event.
func (s *Serializer) UnmarshalWebsiteEvent(data []byte) (*models.WebsiteEvent, error) {
	var ev models.WebsiteEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal website event: %w", err)
	}
	if ev.WebsiteID == "" || (ev.Kind != models.WebsiteEventAdded && ev.Kind != models.WebsiteEventDeleted) {
		return nil, fmt.Errorf("website event missing id or kind: %q", data)
	}
	return &ev, nil
}
