// Package settings stores typed runtime configuration editable by admins.
package settings

import (
	"fmt"
	"time"
)

// Value types.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeJSON    = "json"
)

// Well-known keys.
const (
	KeyProfileGateThreshold = "profile_gate_threshold"
	KeySearchCandidateLimit = "search_candidate_limit"
	KeyMaintenanceMode      = "maintenance_mode"
	KeyFeaturedVALimit      = "featured_va_limit"
	KeyEngagementSummaryTTL = "engagement_summary_ttl_seconds"
	KeySupportEmail         = "support_email"
	KeyAllowedIndustries    = "allowed_industries"
)

type Setting struct {
	Key         string      `bson:"_id" json:"key"`
	Value       interface{} `bson:"value" json:"value"`
	ValueType   string      `bson:"valueType" json:"valueType"`
	Category    string      `bson:"category" json:"category"`
	Description string      `bson:"description" json:"description"`
	IsEditable  bool        `bson:"isEditable" json:"isEditable"`
	IsPublic    bool        `bson:"isPublic" json:"isPublic"`
	UpdatedBy   string      `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	UpdatedAt   time.Time   `bson:"updatedAt" json:"updatedAt"`
}

// Defaults are seeded on start when missing.
func Defaults() []Setting {
	return []Setting{
		{Key: KeyProfileGateThreshold, Value: 80, ValueType: TypeNumber, Category: "messaging", Description: "Minimum business profile completion (percent) required to message VAs", IsEditable: true, IsPublic: true},
		{Key: KeySearchCandidateLimit, Value: 500, ValueType: TypeNumber, Category: "search", Description: "Maximum number of VA profiles scored per search", IsEditable: true},
		{Key: KeyMaintenanceMode, Value: false, ValueType: TypeBoolean, Category: "general", Description: "Show the maintenance banner in the apps", IsEditable: true, IsPublic: true},
		{Key: KeyFeaturedVALimit, Value: 8, ValueType: TypeNumber, Category: "search", Description: "Number of featured VAs on the landing page", IsEditable: true, IsPublic: true},
		{Key: KeyEngagementSummaryTTL, Value: 300, ValueType: TypeNumber, Category: "engagements", Description: "Seconds an engagement summary stays cached", IsEditable: true},
		{Key: KeySupportEmail, Value: "support@linkage.ph", ValueType: TypeString, Category: "general", Description: "Support contact shown to users", IsEditable: true, IsPublic: true},
		{Key: KeyAllowedIndustries, Value: []interface{}{}, ValueType: TypeJSON, Category: "general", Description: "Optional industry allow-list for profiles (empty allows all)", IsEditable: true},
	}
}

// Coerce checks v against valueType and normalises numbers to float64.
func Coerce(valueType string, v interface{}) (interface{}, error) {
	switch valueType {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeNumber:
		if f, ok := toFloat(v); ok {
			return f, nil
		}
	case TypeJSON:
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			return v, nil
		}
	default:
		return nil, fmt.Errorf("unknown value type %q", valueType)
	}
	return nil, fmt.Errorf("expected a %s value, got %T", valueType, v)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
