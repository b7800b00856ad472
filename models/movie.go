package models

import (
	"math"
	"sort"
	"strconv"
)

// Column names of the training frame, in the order the preprocessor expects.
const (
	ColDuration       = "Dur mins"
	ColStudio         = "Studio"
	ColProductionYear = "Production_year"
	ColGenre          = "Genre_primary"
	ColRatingIMDB     = "Movie Rating imdb"
	ColActorFamous    = "Actor_Famous_1"
	ColActressFamous  = "Actress_Famous_1"
	ColFranchise      = "Franchise_yes_1"
	ColUSBoxOffice    = "US_Box_Office_mn_usd"
)

var Columns = []string{
	ColDuration, ColStudio, ColProductionYear, ColGenre, ColRatingIMDB,
	ColActorFamous, ColActressFamous, ColFranchise, ColUSBoxOffice,
}

var DurationOptions = []string{
	"Less than or equal to 80 mins", "81-90 mins", "91-100 mins", "101-110 mins", "111-120 mins",
	"121-130 mins", "131-140 mins", "141-150 mins", "151 mins and above",
}

var StudioOptions = sorted([]string{
	"Dimension Films", "DreamWorks", "Paramount Pictures", "Universal Pictures",
	"Marvel Studios", "Sony Pictures", "New Line Cinema", "20th Century Fox",
	"China Film Co. / China based", "Walt Disney", "Summit Entertainment",
	"Pixar Animation Studios", "Warner Bros.", "Columbia Pictures", "Others",
	"Screen Gems", "MGM", "Lionsgate", "TriStar Pictures",
})

var ProductionYearOptions = []string{"Pre 1980", "1980s", "1990s", "2000s", "2010s", "2020s"}

var GenreOptions = sorted([]string{
	"Animation", "Action", "Others (Mystery_family_romance_war)", "Fantasy",
	"Sci-Fi", "Horror", "Comedy", "Adventure", "Crime/Thriller",
	"Drama", "Biography/Documentary",
})

var USBoxOfficeOptions = []string{
	"Less than or equal to 100", "101-300", "301-500", "501-700",
	"701-900", "Greater than 901",
}

// FlagOptions are the values of the three yes/no radios.
var FlagOptions = []int{0, 1}

const (
	RatingMin  = 0.0
	RatingMax  = 10.0
	RatingStep = 0.1
)

func sorted(s []string) []string {
	sort.Strings(s)
	return s
}

// MovieInput is the single row collected by the form.
type MovieInput struct {
	DurationMins   string  `json:"dur_mins" form:"dur_mins" validate:"required,movieopt=duration"`
	Studio         string  `json:"studio" form:"studio" validate:"required,movieopt=studio"`
	ProductionYear string  `json:"production_year" form:"production_year" validate:"required,movieopt=production_year"`
	GenrePrimary   string  `json:"genre_primary" form:"genre_primary" validate:"required,movieopt=genre"`
	RatingIMDB     float64 `json:"movie_rating_imdb" form:"movie_rating_imdb" validate:"gte=0,lte=10"`
	ActorFamous    int     `json:"actor_famous_1" form:"actor_famous_1" validate:"oneof=0 1"`
	ActressFamous  int     `json:"actress_famous_1" form:"actress_famous_1" validate:"oneof=0 1"`
	Franchise      int     `json:"franchise_yes_1" form:"franchise_yes_1" validate:"oneof=0 1"`
	USBoxOffice    string  `json:"us_box_office_mn_usd" form:"us_box_office_mn_usd" validate:"required,movieopt=us_box_office"`
}

// Normalize snaps the rating onto the slider's 0.1 grid.
func (m *MovieInput) Normalize() {
	m.RatingIMDB = math.Round(m.RatingIMDB*10) / 10
}

// Value returns the raw value of a training column. Numeric columns come back
// as float64, categorical columns as string.
func (m MovieInput) Value(column string) (any, bool) {
	switch column {
	case ColDuration:
		return m.DurationMins, true
	case ColStudio:
		return m.Studio, true
	case ColProductionYear:
		return m.ProductionYear, true
	case ColGenre:
		return m.GenrePrimary, true
	case ColRatingIMDB:
		return m.RatingIMDB, true
	case ColActorFamous:
		return float64(m.ActorFamous), true
	case ColActressFamous:
		return float64(m.ActressFamous), true
	case ColFranchise:
		return float64(m.Franchise), true
	case ColUSBoxOffice:
		return m.USBoxOffice, true
	}
	return nil, false
}

// Row renders the input as display strings in column order.
func (m MovieInput) Row() []string {
	return []string{
		m.DurationMins,
		m.Studio,
		m.ProductionYear,
		m.GenrePrimary,
		strconv.FormatFloat(m.RatingIMDB, 'f', 1, 64),
		strconv.Itoa(m.ActorFamous),
		strconv.Itoa(m.ActressFamous),
		strconv.Itoa(m.Franchise),
		m.USBoxOffice,
	}
}

// Options groups every enumeration for the form and the JSON API.
type Options struct {
	DurationMins   []string `json:"dur_mins"`
	Studio         []string `json:"studio"`
	ProductionYear []string `json:"production_year"`
	GenrePrimary   []string `json:"genre_primary"`
	USBoxOffice    []string `json:"us_box_office_mn_usd"`
	Flags          []int    `json:"flags"`
	RatingMin      float64  `json:"rating_min"`
	RatingMax      float64  `json:"rating_max"`
	RatingStep     float64  `json:"rating_step"`
}

func FormOptions() Options {
	return Options{
		DurationMins:   DurationOptions,
		Studio:         StudioOptions,
		ProductionYear: ProductionYearOptions,
		GenrePrimary:   GenreOptions,
		USBoxOffice:    USBoxOfficeOptions,
		Flags:          FlagOptions,
		RatingMin:      RatingMin,
		RatingMax:      RatingMax,
		RatingStep:     RatingStep,
	}
}
