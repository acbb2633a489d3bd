package schema

import "github.com/bpst-apps/explainable-ai/pkg/data"

// Census returns the fixed schema of the census-income dataset: age 17-90,
// hours_per_week 1-99 and the grouped categorical columns, outcome "income".
func Census() *Schema {
	cat := func(name string, cats []string) Feature {
		return Feature{Name: name, Kind: Categorical, Categories: append([]string(nil), cats...), Mutable: true}
	}
	s, err := New("income",
		Feature{Name: "age", Kind: Continuous, Min: 17, Max: 90, Mutable: true},
		cat("workclass", data.CensusWorkclass),
		cat("education", data.CensusEducation),
		cat("marital_status", data.CensusMarital),
		cat("occupation", data.CensusOccupation),
		cat("race", data.CensusRace),
		cat("gender", data.CensusGender),
		Feature{Name: "hours_per_week", Kind: Continuous, Min: 1, Max: 99, Mutable: true},
	)
	if err != nil {
		panic(err)
	}
	return s
}
