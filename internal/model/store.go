package model

import "time"

// StoreMode selects how the shop decides whether it is open.
type StoreMode string

const (
	// StoreModeAuto derives "open" from the location opening hours.
	StoreModeAuto StoreMode = "auto"
	// StoreModeManual uses the admin-set IsOpen flag.
	StoreModeManual StoreMode = "manual"
)

// StoreSettings are the admin switches for the whole shop.
type StoreSettings struct {
	Mode          StoreMode `db:"mode"`
	IsOpen        bool      `db:"is_open"`
	ClosedMessage *string   `db:"closed_message"`
	ShopEnabled   bool      `db:"shop_enabled"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// DefaultStoreSettings is used until an admin saves settings.
func DefaultStoreSettings() StoreSettings {
	return StoreSettings{Mode: StoreModeAuto, IsOpen: true, ShopEnabled: true}
}

// LocationStatus reports whether one workshop is open right now.
type LocationStatus struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
	Open bool   `json:"open"`
}

// StoreStatus is the public open/closed answer.
type StoreStatus struct {
	Open          bool             `json:"open"`
	ShopEnabled   bool             `json:"shopEnabled"`
	ClosedMessage *string          `json:"closedMessage,omitempty"`
	Locations     []LocationStatus `json:"locations"`
}

// StoreSettingsRequest changes the admin switches. Nil fields keep their
// current value.
type StoreSettingsRequest struct {
	Mode          *string `json:"mode,omitempty"`
	Open          *bool   `json:"open,omitempty"`
	ClosedMessage *string `json:"closedMessage,omitempty"`
	ShopEnabled   *bool   `json:"shopEnabled,omitempty"`
}

// StoreSettingsResponse is the admin view of the switches. ShopEnabled is
// the effective value: the admin flag and a configured payment gateway.
type StoreSettingsResponse struct {
	Mode               StoreMode `json:"mode"`
	Open               bool      `json:"open"`
	ClosedMessage      *string   `json:"closedMessage,omitempty"`
	ShopEnabled        bool      `json:"shopEnabled"`
	ShopEnabledByAdmin bool      `json:"shopEnabledByAdmin"`
	PaymentsConfigured bool      `json:"paymentsConfigured"`
	UpdatedAt          time.Time `json:"updatedAt"`
}
