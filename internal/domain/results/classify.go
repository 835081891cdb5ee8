package results

import "github.com/okian/racetime/internal/domain/model"

// Category is an age/gender bucket used for sub-leaderboards.
type Category string

const (
	MenOpen       Category = "Men (16-39)"
	MenMasters    Category = "Men (40+)"
	MenJunior     Category = "Men (under 16)"
	WomenOpen     Category = "Women (16-39)"
	WomenMasters  Category = "Women (40+)"
	WomenJunior   Category = "Women (under 16)"
	Uncategorized Category = "Uncategorized"
)

// Categories lists every category in presentation order.
var Categories = []Category{
	MenOpen, MenMasters, MenJunior,
	WomenOpen, WomenMasters, WomenJunior,
	Uncategorized,
}

const (
	openMinAge    = 16
	mastersMinAge = 40
)

// Classify buckets a participant. Rules apply in order: no participant,
// gender Other, unusable (negative) age and any gender other than exactly
// Male or Female all give Uncategorized; otherwise the age band decides.
func Classify(p *model.Participant) Category {
	if p == nil || p.Gender == model.GenderOther || p.Age < 0 {
		return Uncategorized
	}

	var open, masters, junior Category
	switch p.Gender {
	case model.GenderMale:
		open, masters, junior = MenOpen, MenMasters, MenJunior
	case model.GenderFemale:
		open, masters, junior = WomenOpen, WomenMasters, WomenJunior
	default:
		return Uncategorized
	}

	switch {
	case p.Age >= mastersMinAge:
		return masters
	case p.Age >= openMinAge:
		return open
	default:
		return junior
	}
}
