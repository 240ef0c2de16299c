package domain

import (
	"slices"

	"github.com/shopspring/decimal"
)

// SubmissionStatus is the moderation state of a publicly submitted record.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
)

// Statuses lists every moderation status.
var Statuses = []SubmissionStatus{StatusPending, StatusApproved, StatusRejected}

// Valid reports whether s is a known status.
func (s SubmissionStatus) Valid() bool {
	return slices.Contains(Statuses, s)
}

// Moderation is embedded by records that go through review.
type Moderation struct {
	Status          SubmissionStatus `gorm:"size:16;not null;index" json:"status"`
	RejectionReason string           `gorm:"size:1000" json:"rejection_reason"`
	IsActive        bool             `gorm:"not null" json:"is_active"`
}

// Apply moves the record to status. The rejection reason is kept only for
// rejected records.
func (m *Moderation) Apply(status SubmissionStatus, reason string) error {
	if !status.Valid() {
		return NewFieldErrors(map[string]string{"status": "must be one of: pending, approved, rejected"})
	}
	if status == StatusRejected && reason == "" {
		return NewFieldErrors(map[string]string{"rejection_reason": "is required when status is rejected"})
	}
	m.Status = status
	if status == StatusRejected {
		m.RejectionReason = reason
	} else {
		m.RejectionReason = ""
	}
	return nil
}

// PressPack is a paid press release distribution package.
type PressPack struct {
	BaseModel
	DistributionPackage string          `gorm:"size:255;not null" json:"distribution_package"`
	Region              string          `gorm:"size:255" json:"region"`
	Industry            string          `gorm:"size:255" json:"industry"`
	News                string          `gorm:"size:255" json:"news"`
	Indexed             bool            `gorm:"not null" json:"indexed"`
	Disclaimer          string          `gorm:"type:text" json:"disclaimer"`
	IndexedWebsites     int             `gorm:"column:no_of_indexed_websites" json:"no_of_indexed_websites"`
	NonIndexedWebsites  int             `gorm:"column:no_of_non_indexed_websites" json:"no_of_non_indexed_websites"`
	Price               decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
	WordsLimit          int             `json:"words_limit"`
	Language            string          `gorm:"size:100" json:"language"`
	Link                string          `gorm:"size:1000" json:"link"`
	Image               string          `gorm:"size:1000" json:"image"`
	IsActive            bool            `gorm:"not null" json:"is_active"`
}

// WebsiteSubmission is a media outlet offered for publishing, submitted by
// its owner.
type WebsiteSubmission struct {
	BaseModel
	MediaName           string          `gorm:"size:255;not null" json:"media_name"`
	MediaWebsiteAddress string          `gorm:"size:1000;not null" json:"media_website_address"`
	NewsMediaType       string          `gorm:"size:64" json:"news_media_type"`
	Languages           StringList      `gorm:"type:text" json:"languages"`
	Categories          StringList      `gorm:"type:text" json:"categories"`
	LocationType        string          `gorm:"size:32" json:"location_type"`
	OwnerName           string          `gorm:"size:255" json:"owner_name"`
	OwnerEmail          string          `gorm:"size:255" json:"owner_email"`
	OwnerGender         string          `gorm:"size:32" json:"owner_gender"`
	DAScore             int             `gorm:"column:da_score" json:"da_score"`
	DRScore             int             `gorm:"column:dr_score" json:"dr_score"`
	Price               decimal.Decimal `gorm:"type:decimal(12,2)" json:"price"`
	DoFollowLinks       bool            `gorm:"not null" json:"do_follow_links"`
	Moderation
}

// PowerlistNomination is a nomination for a published power list.
type PowerlistNomination struct {
	BaseModel
	PublicationName     string `gorm:"size:255;not null" json:"publication_name"`
	WebsiteURL          string `gorm:"column:website_url;size:1000" json:"website_url"`
	PowerListName       string `gorm:"size:255;not null" json:"power_list_name"`
	Industry            string `gorm:"size:255" json:"industry"`
	CompanyOrIndividual string `gorm:"size:32" json:"company_or_individual"`
	TentativeMonth      string `gorm:"size:32" json:"tentative_month"`
	LocationRegion      string `gorm:"size:255" json:"location_region"`
	LastPowerListURL    string `gorm:"column:last_power_list_url;size:1000" json:"last_power_list_url"`
	Image               string `gorm:"size:1000" json:"image"`
	Moderation
}

// RealEstateProfessional is a real estate influencer profile.
type RealEstateProfessional struct {
	BaseModel
	FirstName             string     `gorm:"size:100;not null" json:"first_name"`
	LastName              string     `gorm:"size:100;not null" json:"last_name"`
	IGURL                 string     `gorm:"column:ig_url;size:1000" json:"ig_url"`
	NoOfFollowers         int        `json:"no_of_followers"`
	VerifiedTick          bool       `gorm:"not null" json:"verified_tick"`
	LinkedIn              string     `gorm:"column:linkedin;size:1000" json:"linkedin"`
	TikTok                string     `gorm:"column:tiktok;size:1000" json:"tiktok"`
	Facebook              string     `gorm:"size:1000" json:"facebook"`
	YouTube               string     `gorm:"column:youtube;size:1000" json:"youtube"`
	RealEstateAgencyOwner bool       `gorm:"not null" json:"real_estate_agency_owner"`
	RealEstateAgent       bool       `gorm:"not null" json:"real_estate_agent"`
	DeveloperEmployee     bool       `gorm:"not null" json:"developer_employee"`
	Gender                string     `gorm:"size:32" json:"gender"`
	Nationality           string     `gorm:"size:100" json:"nationality"`
	CurrentResidenceCity  string     `gorm:"size:100" json:"current_residence_city"`
	Languages             StringList `gorm:"type:text" json:"languages"`
	Image                 string     `gorm:"size:1000" json:"image"`
	AdminComments         string     `gorm:"type:text" json:"admin_comments"`
	Moderation
}

// PaparazziCreation is an Instagram paparazzi page.
type PaparazziCreation struct {
	BaseModel
	InstagramPageName string `gorm:"size:255;not null" json:"instagram_page_name"`
	NoOfFollowers     int    `json:"no_of_followers"`
	RegionFocused     string `gorm:"size:255" json:"region_focused"`
	Category          string `gorm:"size:255" json:"category"`
	InstagramURL      string `gorm:"column:instagram_url;size:1000" json:"instagram_url"`
	ProfileDPLogo     string `gorm:"column:profile_dp_logo;size:1000" json:"profile_dp_logo"`
}
