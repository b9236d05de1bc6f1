package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// InterestOptions are the preset interests offered next to free-form ones.
var InterestOptions = []string{
	"Food",
	"Nightlife",
	"Museums",
	"Outdoors",
	"Shopping",
	"History",
	"Art & Culture",
	"Adventure",
	"Coffee",
	"Beaches",
	"Photography",
	"Fitness",
}

// Option is a selectable enum value with a display label.
type Option struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Options groups every selectable value of a TripRequest.
type Options struct {
	Interests      []string `json:"interests"`
	TripTypes      []Option `json:"trip_types"`
	Paces          []Option `json:"paces"`
	BudgetLevels   []Option `json:"budget_levels"`
	Diets          []Option `json:"dietary_preferences"`
	Accommodations []Option `json:"accommodation_types"`
	Accessibility  []Option `json:"accessibility_needs"`
}

var tripTypeDescriptions = map[TripType]string{
	TripRomantic:    "Getaways for couples, focusing on intimate and scenic experiences.",
	TripSolo:        "Adventures for the independent traveler, prioritizing safety and self-discovery.",
	TripFriends:     "Group trips with a mix of social activities, nightlife, and fun.",
	TripFamily:      "Kid-friendly activities and attractions suitable for all ages.",
	TripAdventure:   "Action-packed trips with hiking, sports, and thrilling experiences.",
	TripBudget:      "Affordable travel with a focus on free activities and cost-effective options.",
	TripLuxury:      "Indulgent experiences with high-end hotels, fine dining, and exclusive access.",
	TripFoodie:      "A culinary journey exploring local markets, cooking classes, and top-rated restaurants.",
	TripRelaxation:  "A slow-paced escape with spas, beaches, and tranquil environments.",
	TripNightlife:   "Explore the best bars, clubs, and evening entertainment the city has to offer.",
	TripNature:      "Get outdoors with a focus on national parks, wildlife, and scenic landscapes.",
	TripPhotography: "Capture stunning visuals with a focus on photogenic spots and golden hour opportunities.",
	TripCultural:    "Deep dive into the local heritage with museums, historical sites, and traditional events.",
	TripAnniversary: "Celebrate a special milestone with memorable dining and unique activities.",
	TripBirthday:    "A fun-filled trip to celebrate a birthday with exciting and festive plans.",
	TripHoneymoon:   "Unforgettable romantic trip for newlyweds with a mix of luxury and unique experiences.",
	TripRetirement:  "A relaxed trip to celebrate a new chapter, focusing on comfort and leisure.",
}

// Labels that do not follow the title-case rule.
var customLabels = map[string]string{
	string(StayAirbnb):     "Airbnb / Rental",
	string(StayBoutique):   "Boutique Hotel",
	string(DietGlutenFree): "Gluten-Free",
}

// Label returns the display label of an enum value, e.g. "limited-walking" -> "Limited Walking".
func Label(value string) string {
	if l, ok := customLabels[value]; ok {
		return l
	}
	// A Caser holds state between calls and must not be shared across goroutines.
	return cases.Title(language.English).String(strings.ReplaceAll(value, "-", " "))
}

func optionsOf[T ~string](values []T) []Option {
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Value: string(v), Label: Label(string(v))})
	}
	return out
}

// AllOptions returns the selectable values in display order.
func AllOptions() Options {
	tt := optionsOf(tripTypes)
	for i := range tt {
		tt[i].Description = tripTypeDescriptions[TripType(tt[i].Value)]
	}
	dietOpts := optionsOf(diets)
	dietOpts[0].Label = "No specific preference"
	accessOpts := optionsOf(accessibility)
	accessOpts[0].Label = "No specific needs"
	return Options{
		Interests:      append([]string(nil), InterestOptions...),
		TripTypes:      tt,
		Paces:          optionsOf(paces),
		BudgetLevels:   optionsOf(budgetLevels),
		Diets:          dietOpts,
		Accommodations: optionsOf(stays),
		Accessibility:  accessOpts,
	}
}
