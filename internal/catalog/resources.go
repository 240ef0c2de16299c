package catalog

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/simp-lee/pressdesk/internal/dataview"
	"github.com/simp-lee/pressdesk/internal/domain"
	"github.com/simp-lee/pressdesk/internal/form"
)

func created[T interface{ Key() uint }](get func(T) time.Time) []Attr[T] {
	return []Attr[T]{
		ID(func(t T) uint { return t.Key() }).InTable(),
		Timestamp("created_at", "Created", get),
	}
}

var rejectionRules = map[string][]form.Rule{
	"rejection_reason": {form.RequiredIf("status", string(domain.StatusRejected))},
}

var statusFilter = dataview.FilterDef{
	Key:     "status",
	Label:   "Status",
	Field:   "status",
	Kind:    dataview.KindEquals,
	Options: []string{"pending", "approved", "rejected"},
}

var activeFilter = dataview.FilterDef{Key: "is_active", Label: "Active", Field: "is_active", Kind: dataview.KindBoolEquals}

var newestFirst = dataview.Defaults{SortField: "created_at", SortDirection: dataview.Desc, PageSize: dataview.DefaultPageSize}

// PressPacks is the press release distribution package catalogue.
var PressPacks = &Definition[domain.PressPack]{
	Name:     "press-packs",
	Title:    "Press Packs",
	Singular: "press pack",
	Attrs: append(created(func(p domain.PressPack) time.Time { return p.CreatedAt }),
		Text("distribution_package", "Distribution Package", func(p *domain.PressPack) *string { return &p.DistributionPackage }).Required().InTable(),
		Text("region", "Region", func(p *domain.PressPack) *string { return &p.Region }).InTable(),
		Text("industry", "Industry", func(p *domain.PressPack) *string { return &p.Industry }).InTable(),
		Text("news", "News", func(p *domain.PressPack) *string { return &p.News }),
		Bool("indexed", "Indexed", func(p *domain.PressPack) *bool { return &p.Indexed }).InTable(),
		Text("disclaimer", "Disclaimer", func(p *domain.PressPack) *string { return &p.Disclaimer }).Textarea(),
		Int("no_of_indexed_websites", "Indexed Websites", func(p *domain.PressPack) *int { return &p.IndexedWebsites }),
		Int("no_of_non_indexed_websites", "Non-Indexed Websites", func(p *domain.PressPack) *int { return &p.NonIndexedWebsites }),
		Money("price", "Price", func(p *domain.PressPack) *decimal.Decimal { return &p.Price }).InTable(),
		Int("words_limit", "Words Limit", func(p *domain.PressPack) *int { return &p.WordsLimit }),
		Text("language", "Language", func(p *domain.PressPack) *string { return &p.Language }).InTable(),
		URL("link", "Link", func(p *domain.PressPack) *string { return &p.Link }),
		Text("image", "Image", func(p *domain.PressPack) *string { return &p.Image }).Image(),
		Bool("is_active", "Active", func(p *domain.PressPack) *bool { return &p.IsActive }).Defaults("true").InTable(),
	),
	Filters: []dataview.FilterDef{
		{Key: "region", Label: "Region", Field: "region"},
		{Key: "industry", Label: "Industry", Field: "industry"},
		{Key: "language", Label: "Language", Field: "language"},
		{Key: "indexed", Label: "Indexed", Field: "indexed", Kind: dataview.KindBoolEquals},
		activeFilter,
	},
	SearchFields: []string{"distribution_package", "region", "industry"},
	Sort:         newestFirst,
	ImageField:   "image",
}

// Websites are media outlets submitted by their owners for publishing.
var Websites = &Definition[domain.WebsiteSubmission]{
	Name:     "websites",
	Title:    "Website Submissions",
	Singular: "website",
	Attrs: append(created(func(w domain.WebsiteSubmission) time.Time { return w.CreatedAt }),
		Text("media_name", "Media Name", func(w *domain.WebsiteSubmission) *string { return &w.MediaName }).Required().InTable(),
		URL("media_website_address", "Website Address", func(w *domain.WebsiteSubmission) *string { return &w.MediaWebsiteAddress }).Required().InTable(),
		Enum("news_media_type", "Media Type", func(w *domain.WebsiteSubmission) *string { return &w.NewsMediaType },
			"Blog", "Local news", "News agency", "News media", "Just a website", "Social media").Required().InTable(),
		List("languages", "Languages", func(w *domain.WebsiteSubmission) *domain.StringList { return &w.Languages }),
		List("categories", "Categories", func(w *domain.WebsiteSubmission) *domain.StringList { return &w.Categories }),
		Enum("location_type", "Location Type", func(w *domain.WebsiteSubmission) *string { return &w.LocationType }, "Global", "Regional"),
		Text("owner_name", "Owner Name", func(w *domain.WebsiteSubmission) *string { return &w.OwnerName }).Required(),
		Email("owner_email", "Owner Email", func(w *domain.WebsiteSubmission) *string { return &w.OwnerEmail }).Required().InTable(),
		Enum("owner_gender", "Owner Gender", func(w *domain.WebsiteSubmission) *string { return &w.OwnerGender }, "Male", "Female", "Other"),
		Int("da_score", "DA", func(w *domain.WebsiteSubmission) *int { return &w.DAScore }).With(form.Range(0, 100)).InTable(),
		Int("dr_score", "DR", func(w *domain.WebsiteSubmission) *int { return &w.DRScore }).With(form.Range(0, 100)).InTable(),
		Money("price", "Price", func(w *domain.WebsiteSubmission) *decimal.Decimal { return &w.Price }),
		Bool("do_follow_links", "Do-follow Links", func(w *domain.WebsiteSubmission) *bool { return &w.DoFollowLinks }),
		Status(func(w *domain.WebsiteSubmission) *domain.Moderation { return &w.Moderation }).InTable(),
		Text("rejection_reason", "Rejection Reason", func(w *domain.WebsiteSubmission) *string { return &w.RejectionReason }).Textarea(),
		Bool("is_active", "Active", func(w *domain.WebsiteSubmission) *bool { return &w.IsActive }).Defaults("true"),
	),
	Filters: []dataview.FilterDef{
		statusFilter,
		{Key: "news_media_type", Label: "Media Type", Field: "news_media_type", Kind: dataview.KindEquals,
			Options: []string{"Blog", "Local news", "News agency", "News media", "Just a website", "Social media"}},
		{Key: "location_type", Label: "Location", Field: "location_type", Kind: dataview.KindEquals, Options: []string{"Global", "Regional"}},
		{Key: "languages", Label: "Language", Field: "languages"},
		{Key: "do_follow_links", Label: "Do-follow", Field: "do_follow_links", Kind: dataview.KindBoolEquals},
	},
	SearchFields: []string{"media_name", "media_website_address", "owner_name", "owner_email"},
	Sort:         newestFirst,
	CrossRules:   rejectionRules,
	Moderation:   func(w *domain.WebsiteSubmission) *domain.Moderation { return &w.Moderation },
	Public:       true,
}

// PowerlistNominations are nominations for published power lists.
var PowerlistNominations = &Definition[domain.PowerlistNomination]{
	Name:     "powerlist-nominations",
	Title:    "Power List Nominations",
	Singular: "nomination",
	Attrs: append(created(func(n domain.PowerlistNomination) time.Time { return n.CreatedAt }),
		Text("publication_name", "Publication", func(n *domain.PowerlistNomination) *string { return &n.PublicationName }).Required().InTable(),
		URL("website_url", "Website", func(n *domain.PowerlistNomination) *string { return &n.WebsiteURL }),
		Text("power_list_name", "Power List", func(n *domain.PowerlistNomination) *string { return &n.PowerListName }).Required().InTable(),
		Text("industry", "Industry", func(n *domain.PowerlistNomination) *string { return &n.Industry }).Required().InTable(),
		Enum("company_or_individual", "Company or Individual", func(n *domain.PowerlistNomination) *string { return &n.CompanyOrIndividual },
			"Company", "Individual").Required().InTable(),
		Text("tentative_month", "Tentative Month", func(n *domain.PowerlistNomination) *string { return &n.TentativeMonth }).InTable(),
		Text("location_region", "Region", func(n *domain.PowerlistNomination) *string { return &n.LocationRegion }).InTable(),
		URL("last_power_list_url", "Last Power List", func(n *domain.PowerlistNomination) *string { return &n.LastPowerListURL }),
		Text("image", "Image", func(n *domain.PowerlistNomination) *string { return &n.Image }).Image(),
		Status(func(n *domain.PowerlistNomination) *domain.Moderation { return &n.Moderation }).InTable(),
		Text("rejection_reason", "Rejection Reason", func(n *domain.PowerlistNomination) *string { return &n.RejectionReason }).Textarea(),
		Bool("is_active", "Active", func(n *domain.PowerlistNomination) *bool { return &n.IsActive }).Defaults("true"),
	),
	Filters: []dataview.FilterDef{
		statusFilter,
		{Key: "industry", Label: "Industry", Field: "industry"},
		{Key: "company_or_individual", Label: "Type", Field: "company_or_individual", Kind: dataview.KindEquals, Options: []string{"Company", "Individual"}},
		{Key: "location_region", Label: "Region", Field: "location_region"},
		activeFilter,
	},
	SearchFields: []string{"publication_name", "power_list_name", "industry"},
	Sort:         newestFirst,
	CrossRules:   rejectionRules,
	Moderation:   func(n *domain.PowerlistNomination) *domain.Moderation { return &n.Moderation },
	Public:       true,
	ImageField:   "image",
}

// RealEstateProfessionals are real estate influencer profiles.
var RealEstateProfessionals = &Definition[domain.RealEstateProfessional]{
	Name:     "real-estate-professionals",
	Title:    "Real Estate Professionals",
	Singular: "professional",
	Attrs: append(created(func(r domain.RealEstateProfessional) time.Time { return r.CreatedAt }),
		Text("first_name", "First Name", func(r *domain.RealEstateProfessional) *string { return &r.FirstName }).Required().InTable(),
		Text("last_name", "Last Name", func(r *domain.RealEstateProfessional) *string { return &r.LastName }).Required().InTable(),
		URL("ig_url", "Instagram", func(r *domain.RealEstateProfessional) *string { return &r.IGURL }),
		Int("no_of_followers", "Followers", func(r *domain.RealEstateProfessional) *int { return &r.NoOfFollowers }).InTable(),
		Bool("verified_tick", "Verified", func(r *domain.RealEstateProfessional) *bool { return &r.VerifiedTick }).InTable(),
		URL("linkedin", "LinkedIn", func(r *domain.RealEstateProfessional) *string { return &r.LinkedIn }),
		URL("tiktok", "TikTok", func(r *domain.RealEstateProfessional) *string { return &r.TikTok }),
		URL("facebook", "Facebook", func(r *domain.RealEstateProfessional) *string { return &r.Facebook }),
		URL("youtube", "YouTube", func(r *domain.RealEstateProfessional) *string { return &r.YouTube }),
		Bool("real_estate_agency_owner", "Agency Owner", func(r *domain.RealEstateProfessional) *bool { return &r.RealEstateAgencyOwner }),
		Bool("real_estate_agent", "Agent", func(r *domain.RealEstateProfessional) *bool { return &r.RealEstateAgent }),
		Bool("developer_employee", "Developer Employee", func(r *domain.RealEstateProfessional) *bool { return &r.DeveloperEmployee }),
		Enum("gender", "Gender", func(r *domain.RealEstateProfessional) *string { return &r.Gender }, "Male", "Female", "Other"),
		Text("nationality", "Nationality", func(r *domain.RealEstateProfessional) *string { return &r.Nationality }).InTable(),
		Text("current_residence_city", "City", func(r *domain.RealEstateProfessional) *string { return &r.CurrentResidenceCity }).InTable(),
		List("languages", "Languages", func(r *domain.RealEstateProfessional) *domain.StringList { return &r.Languages }),
		Text("image", "Image", func(r *domain.RealEstateProfessional) *string { return &r.Image }).Image(),
		Status(func(r *domain.RealEstateProfessional) *domain.Moderation { return &r.Moderation }).InTable(),
		Text("admin_comments", "Admin Comments", func(r *domain.RealEstateProfessional) *string { return &r.AdminComments }).Textarea(),
		Text("rejection_reason", "Rejection Reason", func(r *domain.RealEstateProfessional) *string { return &r.RejectionReason }).Textarea(),
		Bool("is_active", "Active", func(r *domain.RealEstateProfessional) *bool { return &r.IsActive }).Defaults("true"),
	),
	Filters: []dataview.FilterDef{
		statusFilter,
		{Key: "gender", Label: "Gender", Field: "gender", Kind: dataview.KindEquals, Options: []string{"Male", "Female", "Other"}},
		{Key: "nationality", Label: "Nationality", Field: "nationality"},
		{Key: "current_residence_city", Label: "City", Field: "current_residence_city"},
		{Key: "verified_tick", Label: "Verified", Field: "verified_tick", Kind: dataview.KindBoolEquals},
		{Key: "real_estate_agent", Label: "Agent", Field: "real_estate_agent", Kind: dataview.KindBoolEquals},
	},
	SearchFields: []string{"first_name", "last_name", "nationality", "current_residence_city"},
	Sort:         newestFirst,
	CrossRules:   rejectionRules,
	Moderation:   func(r *domain.RealEstateProfessional) *domain.Moderation { return &r.Moderation },
	Public:       true,
	ImageField:   "image",
}

// PaparazziCreations are Instagram paparazzi pages.
var PaparazziCreations = &Definition[domain.PaparazziCreation]{
	Name:     "paparazzi-creations",
	Title:    "Paparazzi Creations",
	Singular: "paparazzi page",
	Attrs: append(created(func(p domain.PaparazziCreation) time.Time { return p.CreatedAt }),
		Text("instagram_page_name", "Instagram Page", func(p *domain.PaparazziCreation) *string { return &p.InstagramPageName }).Required().InTable(),
		Int("no_of_followers", "Followers", func(p *domain.PaparazziCreation) *int { return &p.NoOfFollowers }).Required().InTable(),
		Text("region_focused", "Region", func(p *domain.PaparazziCreation) *string { return &p.RegionFocused }).InTable(),
		Enum("category", "Category", func(p *domain.PaparazziCreation) *string { return &p.Category },
			"Entertainment and Movies", "Lifestyle", "Local Guide").Required().InTable(),
		URL("instagram_url", "Instagram URL", func(p *domain.PaparazziCreation) *string { return &p.InstagramURL }),
		Text("profile_dp_logo", "Profile Picture", func(p *domain.PaparazziCreation) *string { return &p.ProfileDPLogo }).Image(),
	),
	Filters: []dataview.FilterDef{
		{Key: "region_focused", Label: "Region", Field: "region_focused"},
		{Key: "category", Label: "Category", Field: "category", Kind: dataview.KindEquals,
			Options: []string{"Entertainment and Movies", "Lifestyle", "Local Guide"}},
	},
	SearchFields: []string{"instagram_page_name", "region_focused", "category"},
	Sort:         newestFirst,
	ImageField:   "profile_dp_logo",
}

// MinPasswordLength is the shortest accepted account password.
const MinPasswordLength = 8

var errPasswordTooLong = errors.New("must be at most 72 bytes")

// Users are admin panel accounts.
var Users = &Definition[domain.User]{
	Name:     "users",
	Title:    "Users",
	Singular: "user",
	Attrs: append(created(func(u domain.User) time.Time { return u.CreatedAt }),
		Text("name", "Name", func(u *domain.User) *string { return &u.Name }).Required().With(form.MaxLen(100)).InTable(),
		Email("email", "Email", func(u *domain.User) *string { return &u.Email }).Required().InTable(),
		role(),
		Bool("is_active", "Active", func(u *domain.User) *bool { return &u.IsActive }).Defaults("true").InTable(),
		password(),
	),
	Filters: []dataview.FilterDef{
		{Key: "role", Label: "Role", Field: "role", Kind: dataview.KindEquals, Options: roleOptions()},
		activeFilter,
	},
	SearchFields: []string{"name", "email"},
	Sort:         dataview.Defaults{SortField: "name", SortDirection: dataview.Asc, PageSize: dataview.DefaultPageSize},
	CreateRules: map[string][]form.Rule{
		"password": {form.Required()},
	},
}

func roleOptions() []string {
	out := make([]string, len(domain.Roles))
	for i, r := range domain.Roles {
		out[i] = string(r)
	}
	return out
}

func role() Attr[domain.User] {
	a := Enum("role", "Role", func(u *domain.User) *string { return (*string)(&u.Role) }, roleOptions()...)
	a.Default = string(domain.RoleViewer)
	return a.Required().InTable()
}

func password() Attr[domain.User] {
	return Attr[domain.User]{
		Name:   "password",
		Label:  "Password",
		Input:  InputPassword,
		Secret: true,
		Rules: []form.Rule{form.RuleFunc(func(field string, v form.Values) string {
			if p := v[field]; p != "" && len(p) < MinPasswordLength {
				return "must be at least 8 characters"
			}
			return ""
		})},
		Set: func(u *domain.User, v string) error {
			if strings.TrimSpace(v) == "" {
				return nil
			}
			hash, err := HashPassword(v)
			if err != nil {
				return err
			}
			u.PasswordHash = hash
			return nil
		},
	}
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) > 72 {
		return "", errPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
