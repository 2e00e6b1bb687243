package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Enumerated value sets shared by the prompt composer (which instructs the
// model to stay inside them) and the validator (which rejects anything else).
var (
	Currencies           = []string{"INR", "USD", "EUR", "GBP", "AED", "SGD"}
	Periods              = []string{"monthly", "yearly", "weekly", "daily"}
	SizeUnits            = []string{"sqft", "sqm", "acre"}
	Furnishings          = []string{"furnished", "semi-furnished", "unfurnished"}
	AvailabilityStatuses = []string{"available", "occupied", "under-maintenance", "coming-soon"}
)

var (
	currencySet     = toSet(Currencies)
	periodSet       = toSet(Periods)
	sizeUnitSet     = toSet(SizeUnits)
	furnishingSet   = toSet(Furnishings)
	availabilitySet = toSet(AvailabilityStatuses)
)

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// CandidateProperty is a model-produced listing record before validation.
// It has no identity until it passes validation.
type CandidateProperty struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Location     string        `json:"location"`
	Price        *Price        `json:"price,omitempty"`
	Size         *Size         `json:"size,omitempty"`
	Amenities    []string      `json:"amenities,omitempty"`
	Features     *Features     `json:"features,omitempty"`
	Contact      *Contact      `json:"contact,omitempty"`
	Media        *Media        `json:"media,omitempty"`
	Availability *Availability `json:"availability,omitempty"`
}

// Price is the listing's asking price. Period is empty for sale listings.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Period   string  `json:"period,omitempty"`
}

// Size is the listing's floor area.
type Size struct {
	Area float64 `json:"area"`
	Unit string  `json:"unit"`
}

// Features holds boolean property attributes plus the furnishing level.
type Features struct {
	Furnishing      string `json:"furnishing,omitempty"`
	Parking         bool   `json:"parking,omitempty"`
	PetsAllowed     bool   `json:"petsAllowed,omitempty"`
	Balcony         bool   `json:"balcony,omitempty"`
	Gym             bool   `json:"gym,omitempty"`
	SwimmingPool    bool   `json:"swimmingPool,omitempty"`
	AirConditioning bool   `json:"airConditioning,omitempty"`
}

// Contact is the listing's point of contact.
type Contact struct {
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	ContactPerson string `json:"contactPerson,omitempty"`
}

// Media holds listing image and video URLs.
type Media struct {
	Images []string `json:"images,omitempty"`
	Videos []string `json:"videos,omitempty"`
}

// Availability is the listing's occupancy status.
type Availability struct {
	Status string `json:"status,omitempty"`
	Date   string `json:"date,omitempty"`
}

// ExtractionMeta records how a validated property was produced.
type ExtractionMeta struct {
	ExtractedBy     string    `json:"extractedBy"`
	Confidence      float64   `json:"confidence"`
	Warnings        []string  `json:"warnings"`
	ProcessedAt     time.Time `json:"processedAt"`
	FieldsExtracted []string  `json:"fieldsExtracted"`
	FieldsMissing   []string  `json:"fieldsMissing"`
}

// ValidatedProperty is a CandidateProperty that passed schema validation,
// with provenance and extraction metadata attached. Immutable once created.
type ValidatedProperty struct {
	CandidateProperty
	SourceURL        string            `json:"sourceUrl"`
	ScrapedAt        time.Time         `json:"scrapedAt"`
	SearchParameters map[string]string `json:"searchParameters,omitempty"`
	Extraction       ExtractionMeta    `json:"extraction"`
}

// Validate checks every declared constraint in one pass and returns all
// violations as "<fieldPath>: <message>" strings. An empty slice means the
// record is valid. A record is never partially accepted: any violation
// rejects the whole record.
func (p ValidatedProperty) Validate() []string {
	var errs []string

	if strings.TrimSpace(p.Title) == "" {
		errs = append(errs, "title: required")
	}
	if strings.TrimSpace(p.Description) == "" {
		errs = append(errs, "description: required")
	}
	if strings.TrimSpace(p.Location) == "" {
		errs = append(errs, "location: required")
	}
	if strings.TrimSpace(p.SourceURL) == "" {
		errs = append(errs, "sourceUrl: required")
	} else if !validURL(p.SourceURL) {
		errs = append(errs, fmt.Sprintf("sourceUrl: %q is not a valid URL", p.SourceURL))
	}

	if p.Price != nil {
		if p.Price.Amount <= 0 {
			errs = append(errs, "price.amount: must be greater than zero")
		}
		if p.Price.Currency == "" {
			errs = append(errs, "price.currency: required when price is present")
		} else if !currencySet[p.Price.Currency] {
			errs = append(errs, fmt.Sprintf("price.currency: %q is not one of %s", p.Price.Currency, strings.Join(Currencies, ", ")))
		}
		if p.Price.Period != "" && !periodSet[p.Price.Period] {
			errs = append(errs, fmt.Sprintf("price.period: %q is not one of %s", p.Price.Period, strings.Join(Periods, ", ")))
		}
	}

	if p.Size != nil {
		if p.Size.Area <= 0 {
			errs = append(errs, "size.area: must be greater than zero")
		}
		if !sizeUnitSet[p.Size.Unit] {
			errs = append(errs, fmt.Sprintf("size.unit: %q is not one of %s", p.Size.Unit, strings.Join(SizeUnits, ", ")))
		}
	}

	if p.Features != nil && p.Features.Furnishing != "" && !furnishingSet[p.Features.Furnishing] {
		errs = append(errs, fmt.Sprintf("features.furnishing: %q is not one of %s", p.Features.Furnishing, strings.Join(Furnishings, ", ")))
	}

	if p.Contact != nil && p.Contact.Email != "" && !emailRe.MatchString(p.Contact.Email) {
		errs = append(errs, fmt.Sprintf("contact.email: %q is not a valid email address", p.Contact.Email))
	}

	if p.Media != nil {
		for i, img := range p.Media.Images {
			if !validURL(img) {
				errs = append(errs, fmt.Sprintf("media.images[%d]: %q is not a valid URL", i, img))
			}
		}
		for i, vid := range p.Media.Videos {
			if !validURL(vid) {
				errs = append(errs, fmt.Sprintf("media.videos[%d]: %q is not a valid URL", i, vid))
			}
		}
	}

	if p.Availability != nil && p.Availability.Status != "" && !availabilitySet[p.Availability.Status] {
		errs = append(errs, fmt.Sprintf("availability.status: %q is not one of %s", p.Availability.Status, strings.Join(AvailabilityStatuses, ", ")))
	}

	if p.Extraction.Confidence < 0 || p.Extraction.Confidence > 1 {
		errs = append(errs, fmt.Sprintf("extraction.confidence: %g is outside [0, 1]", p.Extraction.Confidence))
	}

	return errs
}
