package model

import (
	"errors"
	"fmt"
	"strings"

	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/samber/lo"
)

// ErrValidation is returned when a trip request fails validation.
// Handlers map it to HTTP 422.
var ErrValidation = errors.New("validation error")

// TripType is the overall flavour of a trip.
type TripType string

const (
	TripRomantic    TripType = "romantic"
	TripSolo        TripType = "solo"
	TripFriends     TripType = "friends"
	TripFamily      TripType = "family"
	TripAdventure   TripType = "adventure"
	TripBudget      TripType = "budget"
	TripLuxury      TripType = "luxury"
	TripFoodie      TripType = "foodie"
	TripRelaxation  TripType = "relaxation"
	TripNightlife   TripType = "nightlife"
	TripNature      TripType = "nature"
	TripPhotography TripType = "photography"
	TripCultural    TripType = "cultural"
	TripAnniversary TripType = "anniversary"
	TripBirthday    TripType = "birthday"
	TripHoneymoon   TripType = "honeymoon"
	TripRetirement  TripType = "retirement"
)

// Pace controls how full each day is.
type Pace string

const (
	PaceChill    Pace = "chill"
	PaceBalanced Pace = "balanced"
	PacePacked   Pace = "packed"
)

// BudgetLevel is the spending level of the traveller.
type BudgetLevel string

const (
	BudgetLow    BudgetLevel = "low"
	BudgetMedium BudgetLevel = "medium"
	BudgetHigh   BudgetLevel = "high"
)

// DietaryPreference constrains restaurant suggestions.
type DietaryPreference string

const (
	DietVegan      DietaryPreference = "vegan-friendly"
	DietVegetarian DietaryPreference = "vegetarian"
	DietHalal      DietaryPreference = "halal"
	DietKosher     DietaryPreference = "kosher"
	DietGlutenFree DietaryPreference = "gluten-free"
	DietNone       DietaryPreference = "none"
)

// AccommodationType is the preferred kind of lodging.
type AccommodationType string

const (
	StayHotel    AccommodationType = "hotel"
	StayHostel   AccommodationType = "hostel"
	StayAirbnb   AccommodationType = "airbnb"
	StayBoutique AccommodationType = "boutique"
	StayLuxury   AccommodationType = "luxury"
)

// AccessibilityNeed constrains activity suggestions.
type AccessibilityNeed string

const (
	AccessWheelchair     AccessibilityNeed = "wheelchair-accessible"
	AccessLimitedWalking AccessibilityNeed = "limited-walking"
	AccessNone           AccessibilityNeed = "none"
)

var (
	tripTypes = []TripType{
		TripRomantic, TripSolo, TripFriends, TripFamily, TripAdventure, TripBudget,
		TripLuxury, TripFoodie, TripRelaxation, TripNightlife, TripNature, TripPhotography,
		TripCultural, TripAnniversary, TripBirthday, TripHoneymoon, TripRetirement,
	}
	paces         = []Pace{PaceChill, PaceBalanced, PacePacked}
	budgetLevels  = []BudgetLevel{BudgetLow, BudgetMedium, BudgetHigh}
	diets         = []DietaryPreference{DietNone, DietVegan, DietVegetarian, DietHalal, DietKosher, DietGlutenFree}
	stays         = []AccommodationType{StayHotel, StayHostel, StayAirbnb, StayBoutique, StayLuxury}
	accessibility = []AccessibilityNeed{AccessNone, AccessWheelchair, AccessLimitedWalking}
)

func (t TripType) Valid() bool          { return lo.Contains(tripTypes, t) }
func (p Pace) Valid() bool              { return lo.Contains(paces, p) }
func (b BudgetLevel) Valid() bool       { return lo.Contains(budgetLevels, b) }
func (d DietaryPreference) Valid() bool { return lo.Contains(diets, d) }
func (a AccommodationType) Valid() bool { return lo.Contains(stays, a) }
func (a AccessibilityNeed) Valid() bool { return lo.Contains(accessibility, a) }

// TripRequest holds the traveller's preferences for one generation.
// JSON names match the persisted form-values shape.
type TripRequest struct {
	Destination        string             `json:"destination"`
	StartDate          openapi_types.Date `json:"startDate"`
	EndDate            openapi_types.Date `json:"endDate"`
	TripType           TripType           `json:"tripType"`
	BudgetLevel        BudgetLevel        `json:"budgetLevel,omitempty"`
	Pace               Pace               `json:"pace"`
	Interests          []string           `json:"interests"`
	DietaryPreference  DietaryPreference  `json:"dietaryPreference"`
	AccommodationType  AccommodationType  `json:"accommodationType"`
	AccessibilityNeeds AccessibilityNeed  `json:"accessibilityNeeds"`
}

// Normalize trims free text, applies defaults and cleans the interest set.
// Interests keep their first-seen order; blanks and case-insensitive duplicates are dropped.
func (r *TripRequest) Normalize() {
	r.Destination = strings.TrimSpace(r.Destination)
	if r.BudgetLevel == "" {
		r.BudgetLevel = BudgetMedium
	}
	if r.DietaryPreference == "" {
		r.DietaryPreference = DietNone
	}
	if r.AccessibilityNeeds == "" {
		r.AccessibilityNeeds = AccessNone
	}

	trimmed := lo.FilterMap(r.Interests, func(s string, _ int) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != ""
	})
	r.Interests = lo.UniqBy(trimmed, strings.ToLower)
}

// Validate reports every problem with the request at once.
// The returned error wraps ErrValidation.
func (r *TripRequest) Validate() error {
	var problems []string

	if strings.TrimSpace(r.Destination) == "" {
		problems = append(problems, "destination is required")
	}
	if r.StartDate.IsZero() {
		problems = append(problems, "start date is required")
	}
	if r.EndDate.IsZero() {
		problems = append(problems, "end date is required")
	}
	if !r.StartDate.IsZero() && !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate.Time) {
		problems = append(problems, "end date must not be before start date")
	}
	if !r.TripType.Valid() {
		problems = append(problems, fmt.Sprintf("unknown trip type %q", r.TripType))
	}
	if r.BudgetLevel != "" && !r.BudgetLevel.Valid() {
		problems = append(problems, fmt.Sprintf("unknown budget level %q", r.BudgetLevel))
	}
	if !r.Pace.Valid() {
		problems = append(problems, fmt.Sprintf("unknown pace %q", r.Pace))
	}
	if !r.DietaryPreference.Valid() {
		problems = append(problems, fmt.Sprintf("unknown dietary preference %q", r.DietaryPreference))
	}
	if !r.AccommodationType.Valid() {
		problems = append(problems, fmt.Sprintf("unknown accommodation type %q", r.AccommodationType))
	}
	if !r.AccessibilityNeeds.Valid() {
		problems = append(problems, fmt.Sprintf("unknown accessibility need %q", r.AccessibilityNeeds))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// Days returns the inclusive number of calendar days covered by the request.
func (r *TripRequest) Days() int {
	if r.StartDate.IsZero() || r.EndDate.IsZero() || r.EndDate.Before(r.StartDate.Time) {
		return 0
	}
	return int(r.EndDate.Sub(r.StartDate.Time).Hours()/24) + 1
}

// Clone returns a copy that shares no slices with r.
func (r TripRequest) Clone() TripRequest {
	r.Interests = cloneSlice(r.Interests)
	return r
}
