package engagement

import (
	"math"
	"time"
)

// Engagement statuses.
const (
	StatusConsidering = "considering"
	StatusActive      = "active"
	StatusPaused      = "paused"
	StatusPast        = "past"
)

// Status filters accepted by listings in addition to the statuses themselves.
const (
	FilterAll      = "all"
	FilterInactive = "inactive"
)

// Contract states derived from the contract dates.
const (
	ContractUpcoming = "upcoming"
	ContractActive   = "active"
	ContractExpired  = "expired"
)

const (
	MaxNotesLength  = 1000
	MaxHoursPerWeek = 168
	DefaultCurrency = "USD"
)

var (
	Statuses   = []string{StatusConsidering, StatusActive, StatusPaused, StatusPast}
	Currencies = []string{"USD", "PHP", "EUR", "GBP", "CAD", "AUD"}
)

// ValidStatus reports whether s is an engagement status.
func ValidStatus(s string) bool { return in(s, Statuses) }

// ValidCurrency reports whether s is an accepted currency code.
func ValidCurrency(s string) bool { return in(s, Currencies) }

func in(s string, list []string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Contract holds the commercial terms of an engagement.
type Contract struct {
	StartDate    time.Time  `json:"startDate" bson:"startDate"`
	EndDate      *time.Time `json:"endDate,omitempty" bson:"endDate,omitempty"`
	HoursPerWeek int        `json:"hoursPerWeek" bson:"hoursPerWeek"`
	Rate         float64    `json:"rate" bson:"rate"`
	Currency     string     `json:"currency" bson:"currency"`
}

// Engagement is a working relationship between a business (client) and a VA.
// ClientID and VAID are user ids.
type Engagement struct {
	ID             string    `json:"id" bson:"_id,omitempty"`
	ClientID       string    `json:"clientId" bson:"clientId"`
	VAID           string    `json:"vaId" bson:"vaId"`
	VAName         string    `json:"vaName" bson:"vaName"`
	Status         string    `json:"status" bson:"status"`
	Contract       Contract  `json:"contract" bson:"contract"`
	Notes          string    `json:"notes,omitempty" bson:"notes,omitempty"`
	Tags           []string  `json:"tags" bson:"tags"`
	LastActivityAt time.Time `json:"lastActivityAt" bson:"lastActivityAt"`
	CreatedBy      string    `json:"createdBy" bson:"createdBy"`
	UpdatedBy      string    `json:"updatedBy,omitempty" bson:"updatedBy,omitempty"`
	CreatedAt      time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ContractDurationDays counts whole days from the start to the end date, or to now when open-ended.
func (e *Engagement) ContractDurationDays(now time.Time) int {
	end := now
	if e.Contract.EndDate != nil {
		end = *e.Contract.EndDate
	}
	days := end.Sub(e.Contract.StartDate).Hours() / 24
	if days < 0 {
		return 0
	}
	return int(math.Ceil(days))
}

// ContractStatus is upcoming before the start date, expired after the end date, else active.
func (e *Engagement) ContractStatus(now time.Time) string {
	if e.Contract.StartDate.After(now) {
		return ContractUpcoming
	}
	if e.Contract.EndDate != nil && e.Contract.EndDate.Before(now) {
		return ContractExpired
	}
	return ContractActive
}

// View is the API representation with derived contract fields.
type View struct {
	*Engagement
	ContractDurationDays int    `json:"contractDurationDays"`
	ContractStatus       string `json:"contractStatus"`
}

func (e *Engagement) View(now time.Time) View {
	return View{Engagement: e, ContractDurationDays: e.ContractDurationDays(now), ContractStatus: e.ContractStatus(now)}
}

// Summary counts a business's engagements by status.
type Summary struct {
	Total       int64 `json:"total"`
	Active      int64 `json:"active"`
	Considering int64 `json:"considering"`
	Paused      int64 `json:"paused"`
	Past        int64 `json:"past"`
	Inactive    int64 `json:"inactive"`
}

// SummaryFromCounts folds per-status counts into a Summary.
func SummaryFromCounts(counts map[string]int64) Summary {
	s := Summary{
		Active:      counts[StatusActive],
		Considering: counts[StatusConsidering],
		Paused:      counts[StatusPaused],
		Past:        counts[StatusPast],
	}
	s.Inactive = s.Paused + s.Past
	s.Total = s.Active + s.Considering + s.Inactive
	return s
}

// Filter narrows engagement listings. Zero values mean "any".
type Filter struct {
	ClientID    string
	VAID        string
	Status      string
	Search      string
	Sort        string
	CreatedFrom time.Time
	CreatedTo   time.Time
	Page        int
	Limit       int
}

// StatusSet expands a status filter into concrete statuses; nil means any.
func StatusSet(filter string) []string {
	switch filter {
	case "", FilterAll:
		return nil
	case FilterInactive:
		return []string{StatusPaused, StatusPast}
	}
	return []string{filter}
}

// ValidStatusFilter reports whether s is accepted as a listing status filter.
func ValidStatusFilter(s string) bool {
	return s == "" || s == FilterAll || s == FilterInactive || ValidStatus(s)
}

// Sort orders for listings.
const (
	SortRecent = "recent"
	SortOldest = "oldest"
	SortStatus = "status"
	SortName   = "name"
)

// Analytics is the admin overview of all engagements.
type Analytics struct {
	Total               int64            `json:"total"`
	ByStatus            map[string]int64 `json:"byStatus"`
	NewLast30Days       int64            `json:"newLast30Days"`
	AverageHoursPerWeek float64          `json:"averageHoursPerWeek"`
	Recent              []*Engagement    `json:"recent"`
}
