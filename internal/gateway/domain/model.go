package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	Razorpay = "razorpay"
	HDFC     = "hdfc"
)

// requiredConfigKeys lists the credentials each supported provider needs
// before it can be activated.
var requiredConfigKeys = map[string][]string{
	Razorpay: {"key_id", "key_secret", "webhook_secret"},
	HDFC:     {"merchant_id", "access_code", "working_key"},
}

// Supported reports whether name is a known payment provider.
func Supported(name string) bool {
	_, ok := requiredConfigKeys[name]
	return ok
}

// RequiredKeys returns the config keys a provider must carry.
func RequiredKeys(name string) []string {
	return requiredConfigKeys[name]
}

// SupportedNames returns all provider names accepted by the registry.
func SupportedNames() []string {
	names := make([]string, 0, len(requiredConfigKeys))
	for name := range requiredConfigKeys {
		names = append(names, name)
	}
	return names
}

type Gateway struct {
	ID          snowflake.ID      `json:"id" gorm:"primaryKey"`
	Name        string            `json:"name" gorm:"uniqueIndex"`
	DisplayName string            `json:"display_name"`
	IsActive    bool              `json:"is_active"`
	Config      datatypes.JSONMap `json:"-"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func (Gateway) TableName() string { return "payment_gateways" }

// ConfigValue returns a string credential from the gateway config.
func (g *Gateway) ConfigValue(key string) string {
	if g == nil || g.Config == nil {
		return ""
	}
	value, _ := g.Config[key].(string)
	return value
}
