package domain

import (
	"strings"
	"time"
)

type EventType string

const (
	EventImpression EventType = "impression"
	EventClick      EventType = "click"
	EventConversion EventType = "conversion"
)

func (t EventType) Valid() bool {
	return t == EventImpression || t == EventClick || t == EventConversion
}

type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceDesktop DeviceType = "desktop"
	DeviceTablet  DeviceType = "tablet"
)

// FraudReason codes set on suspicious events, never surfaced to reporters.
type FraudReason string

const (
	ReasonBotUA             FraudReason = "bot_ua"
	ReasonRateLimit         FraudReason = "rate_limit"
	ReasonNoPriorImpression FraudReason = "no_prior_impression"
	ReasonNoPriorClick      FraudReason = "no_prior_click"
)

// AdEvent is an immutable record of one reported interaction. Events are the
// append-only source of truth; ad counters are derived from the non-suspicious
// subset.
type AdEvent struct {
	ID        string
	AdID      string
	Type      EventType
	IP        string
	UserAgent string
	PageURL   string
	Referer   string
	Device    DeviceType
	Country   string
	City      string

	Suspicious  bool
	FraudReason FraudReason

	CreatedAt time.Time
}

// DeviceFromUserAgent derives a coarse device class from the User-Agent.
// Tablets must be checked before the mobile keywords: an iPad UA also says
// "Mobile". Empty or unrecognized agents yield "".
func DeviceFromUserAgent(ua string) DeviceType {
	ua = strings.ToLower(ua)
	if ua == "" {
		return ""
	}
	if strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet") {
		return DeviceTablet
	}
	if strings.Contains(ua, "android") && !strings.Contains(ua, "mobile") {
		return DeviceTablet
	}
	if strings.Contains(ua, "mobi") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android") {
		return DeviceMobile
	}
	return DeviceDesktop
}
