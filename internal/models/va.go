package models

import "time"

// Search statuses a VA can advertise.
const (
	SearchActivelyLooking = "actively_looking"
	SearchOpen            = "open"
	SearchNotInterested   = "not_interested"
	SearchInvisible       = "invisible"
)

// VisibleSearchStatuses are the statuses listed in public search.
var VisibleSearchStatuses = []string{SearchActivelyLooking, SearchOpen}

// ValidSearchStatus reports whether s is a known search status.
func ValidSearchStatus(s string) bool {
	switch s {
	case SearchActivelyLooking, SearchOpen, SearchNotInterested, SearchInvisible:
		return true
	}
	return false
}

// Industries accepted on VA profiles.
var Industries = []string{
	"ecommerce", "real_estate", "digital_marketing", "social_media_management",
	"customer_service", "bookkeeping", "content_creation", "graphic_design",
	"virtual_assistance", "data_entry", "lead_generation", "email_marketing",
	"amazon_fba", "shopify", "wordpress", "video_editing", "podcast_management",
	"project_management", "human_resources", "online_tutoring", "travel_planning",
	"healthcare", "finance", "saas", "other",
}

// ValidIndustry reports whether s is a known industry.
func ValidIndustry(s string) bool {
	for _, i := range Industries {
		if i == s {
			return true
		}
	}
	return false
}

// Language proficiencies.
var Proficiencies = []string{"native", "fluent", "conversational", "basic"}

// Availability values.
var Availabilities = []string{"immediately", "within_week", "within_month", "not_available"}

// VA review statuses set by admins.
const (
	VAStatusPending  = "pending"
	VAStatusApproved = "approved"
	VAStatusRejected = "rejected"
)

// RoleLevel flags the seniority levels a VA works at.
type RoleLevel struct {
	Junior    bool `bson:"junior" json:"junior"`
	Mid       bool `bson:"mid" json:"mid"`
	Senior    bool `bson:"senior" json:"senior"`
	Principal bool `bson:"principal" json:"principal"`
	CLevel    bool `bson:"c_level" json:"c_level"`
}

// Levels returns the names of the set flags.
func (r RoleLevel) Levels() []string {
	flags := []struct {
		name string
		on   bool
	}{{"junior", r.Junior}, {"mid", r.Mid}, {"senior", r.Senior}, {"principal", r.Principal}, {"c_level", r.CLevel}}
	var out []string
	for _, f := range flags {
		if f.on {
			out = append(out, f.name)
		}
	}
	return out
}

// Any reports whether at least one level is set.
func (r RoleLevel) Any() bool { return r.Junior || r.Mid || r.Senior || r.Principal || r.CLevel }

// RoleType flags the engagement types a VA accepts.
type RoleType struct {
	PartTimeContract   bool `bson:"part_time_contract" json:"part_time_contract"`
	FullTimeContract   bool `bson:"full_time_contract" json:"full_time_contract"`
	FullTimeEmployment bool `bson:"full_time_employment" json:"full_time_employment"`
}

// Types returns the names of the set flags.
func (r RoleType) Types() []string {
	var out []string
	if r.PartTimeContract {
		out = append(out, "part_time_contract")
	}
	if r.FullTimeContract {
		out = append(out, "full_time_contract")
	}
	if r.FullTimeEmployment {
		out = append(out, "full_time_employment")
	}
	return out
}

// Any reports whether at least one type is set.
func (r RoleType) Any() bool { return r.PartTimeContract || r.FullTimeContract || r.FullTimeEmployment }

type Language struct {
	Language    string `bson:"language" json:"language"`
	Proficiency string `bson:"proficiency" json:"proficiency"`
}

type PortfolioItem struct {
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	URL         string `bson:"url,omitempty" json:"url,omitempty"`
	ImageURL    string `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
}

type WorkingHours struct {
	Timezone       string `bson:"timezone,omitempty" json:"timezone,omitempty"`
	PreferredHours string `bson:"preferredHours,omitempty" json:"preferredHours,omitempty"`
}

// DISCAssessment is the stored outcome of the DISC questionnaire.
type DISCAssessment struct {
	Dominance         int       `bson:"dominance" json:"dominance"`
	Influence         int       `bson:"influence" json:"influence"`
	Steadiness        int       `bson:"steadiness" json:"steadiness"`
	Conscientiousness int       `bson:"conscientiousness" json:"conscientiousness"`
	PrimaryType       string    `bson:"primaryType" json:"primaryType"`
	Answered          int       `bson:"answered" json:"answered"`
	CompletedAt       time.Time `bson:"completedAt" json:"completedAt"`
}

// VA is a virtual assistant's public profile.
type VA struct {
	ID                 string          `bson:"_id,omitempty" json:"id"`
	User               string          `bson:"user" json:"user"`
	Name               string          `bson:"name" json:"name"`
	Hero               string          `bson:"hero,omitempty" json:"hero,omitempty"`
	Bio                string          `bson:"bio,omitempty" json:"bio,omitempty"`
	CoverImage         string          `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	Avatar             string          `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Website            string          `bson:"website,omitempty" json:"website,omitempty"`
	Github             string          `bson:"github,omitempty" json:"github,omitempty"`
	Gitlab             string          `bson:"gitlab,omitempty" json:"gitlab,omitempty"`
	Linkedin           string          `bson:"linkedin,omitempty" json:"linkedin,omitempty"`
	Twitter            string          `bson:"twitter,omitempty" json:"twitter,omitempty"`
	Mastodon           string          `bson:"mastodon,omitempty" json:"mastodon,omitempty"`
	Stackoverflow      string          `bson:"stackoverflow,omitempty" json:"stackoverflow,omitempty"`
	SchedulingLink     string          `bson:"schedulingLink,omitempty" json:"schedulingLink,omitempty"`
	Email              string          `bson:"email,omitempty" json:"email,omitempty"`
	Phone              string          `bson:"phone,omitempty" json:"phone,omitempty"`
	Whatsapp           string          `bson:"whatsapp,omitempty" json:"whatsapp,omitempty"`
	Viber              string          `bson:"viber,omitempty" json:"viber,omitempty"`
	SearchStatus       string          `bson:"searchStatus" json:"searchStatus"`
	Status             string          `bson:"status" json:"status"`
	PreferredMinRate   float64         `bson:"preferredMinHourlyRate,omitempty" json:"preferredMinHourlyRate,omitempty"`
	PreferredMaxRate   float64         `bson:"preferredMaxHourlyRate,omitempty" json:"preferredMaxHourlyRate,omitempty"`
	PreferredMinSalary float64         `bson:"preferredMinSalary,omitempty" json:"preferredMinSalary,omitempty"`
	PreferredMaxSalary float64         `bson:"preferredMaxSalary,omitempty" json:"preferredMaxSalary,omitempty"`
	PublicProfileKey   string          `bson:"publicProfileKey" json:"publicProfileKey"`
	FeaturedAt         *time.Time      `bson:"featuredAt,omitempty" json:"featuredAt,omitempty"`
	ProfileUpdatedAt   *time.Time      `bson:"profileUpdatedAt,omitempty" json:"profileUpdatedAt,omitempty"`
	ResponseRate       float64         `bson:"responseRate" json:"responseRate"`
	SearchScore        float64         `bson:"searchScore" json:"searchScore"`
	ConversationsCount int             `bson:"conversationsCount" json:"conversationsCount"`
	Specialties        []string        `bson:"specialties,omitempty" json:"specialties"`
	Location           *Location       `bson:"location,omitempty" json:"location,omitempty"`
	RoleLevel          RoleLevel       `bson:"roleLevel" json:"roleLevel"`
	RoleType           RoleType        `bson:"roleType" json:"roleType"`
	VideoIntroduction  string          `bson:"videoIntroduction,omitempty" json:"videoIntroduction,omitempty"`
	VideoTranscription string          `bson:"videoTranscription,omitempty" json:"videoTranscription,omitempty"`
	Industry           string          `bson:"industry" json:"industry"`
	YearsOfExperience  int             `bson:"yearsOfExperience" json:"yearsOfExperience"`
	Skills             []string        `bson:"skills,omitempty" json:"skills"`
	Certifications     []string        `bson:"certifications,omitempty" json:"certifications"`
	Languages          []Language      `bson:"languages,omitempty" json:"languages"`
	Availability       string          `bson:"availability,omitempty" json:"availability,omitempty"`
	WorkingHours       *WorkingHours   `bson:"workingHours,omitempty" json:"workingHours,omitempty"`
	Portfolio          []PortfolioItem `bson:"portfolio,omitempty" json:"portfolio"`
	DISC               *DISCAssessment `bson:"discAssessment,omitempty" json:"discAssessment,omitempty"`
	CreatedAt          time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// Visible reports whether the profile is listed in public search.
func (v *VA) Visible() bool {
	return v != nil && (v.SearchStatus == SearchActivelyLooking || v.SearchStatus == SearchOpen)
}
