package domain

import "time"

// Destination identifies a logical downstream worker pipeline.
type Destination string

const (
	DestinationText         Destination = "text"
	DestinationMedia        Destination = "media"
	DestinationAudio        Destination = "audio"
	DestinationDocument     Destination = "document"
	DestinationAutoReply    Destination = "auto_reply"
	DestinationIgnore       Destination = "ignore"
	DestinationManualReview Destination = "manual_review"
)

// DestinationConfig is the per-destination processing policy: endpoint path
// on the worker base URL, HTTP timeout, and retry budget.
type DestinationConfig struct {
	Endpoint    string
	Timeout     time.Duration
	MaxRetries  int
	Description string
}

// RoutingDecision is the routing table's answer for one classification.
type RoutingDecision struct {
	Destination   Destination
	Config        DestinationConfig
	ShouldProcess bool
	// Reason is set when ShouldProcess is false.
	Reason string
}
