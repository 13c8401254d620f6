package model

import "time"

// EffectIDPrefix marks ids minted for pending unbox effects.
const EffectIDPrefix = "unbox_"

// EffectPayload is what a pending effect eventually announces. Subject is
// safe to reveal before confirmation; Message is not.
type EffectPayload struct {
	Player  string `json:"player"`
	Subject string `json:"subject"`
	Message string `json:"-"`
}

type PendingEffect struct {
	ID        string
	Payload   EffectPayload
	CreatedAt time.Time
}

// EffectResolution records how a pending effect fired.
type EffectResolution string

const (
	EffectConfirmed EffectResolution = "confirmed"
	EffectFallback  EffectResolution = "fallback"
)
