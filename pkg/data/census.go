package data

import (
	"math"
	"math/rand"
	"strconv"
)

// Census column domains, matching the adult-income benchmark after the usual
// category grouping.
var (
	CensusWorkclass  = []string{"Government", "Other/Unknown", "Private", "Self-Employed"}
	CensusEducation  = []string{"Assoc", "Bachelors", "Doctorate", "HS-grad", "Masters", "Prof-school", "School", "Some-college"}
	CensusMarital    = []string{"Divorced", "Married", "Separated", "Single", "Widowed"}
	CensusOccupation = []string{"Blue-Collar", "Other/Unknown", "Professional", "Sales", "Service", "White-Collar"}
	CensusRace       = []string{"Other", "White"}
	CensusGender     = []string{"Female", "Male"}
)

// CensusHeader is the column order of SyntheticCensus frames.
var CensusHeader = []string{
	"age", "workclass", "education", "marital_status", "occupation",
	"race", "gender", "hours_per_week", "income",
}

var (
	educationWeight = map[string]float64{
		"Doctorate": 2, "Prof-school": 2, "Masters": 1.5, "Bachelors": 1,
		"Assoc": 0.5, "Some-college": 0.3, "HS-grad": 0, "School": -0.5,
	}
	occupationWeight = map[string]float64{
		"Professional": 1, "White-Collar": 0.8, "Sales": 0.4,
		"Blue-Collar": 0, "Service": -0.2, "Other/Unknown": 0,
	}
)

// CensusScore is the latent income score behind SyntheticCensus labels; a
// score of at least CensusThreshold means income class 1.
func CensusScore(age float64, workclass, education, marital, occupation string, hours float64) float64 {
	s := 2*(age-17)/73 + (hours-1)/98
	s += educationWeight[education] + occupationWeight[occupation]
	if marital == "Married" {
		s += 0.5
	}
	if workclass == "Self-Employed" {
		s += 0.3
	}
	return s
}

// CensusThreshold splits CensusScore into income classes.
const CensusThreshold = 2.5

// SyntheticCensus generates a census-income-like frame of n rows. Labels
// follow CensusScore and are flipped with probability noise.
func SyntheticCensus(n int, noise float64, seed int64) *Frame {
	rnd := rand.New(rand.NewSource(seed))
	pick := func(xs []string) string { return xs[rnd.Intn(len(xs))] }

	f := &Frame{Header: append([]string(nil), CensusHeader...)}
	f.Records = make([][]string, 0, n)
	for range n {
		age := math.Min(90, 17+math.Floor(math.Abs(rnd.NormFloat64())*20))
		hours := math.Max(1, math.Min(99, math.Round(40+rnd.NormFloat64()*12)))
		wc, edu, ms, occ := pick(CensusWorkclass), pick(CensusEducation), pick(CensusMarital), pick(CensusOccupation)

		label := 0
		if CensusScore(age, wc, edu, ms, occ, hours) >= CensusThreshold {
			label = 1
		}
		if rnd.Float64() < noise {
			label = 1 - label
		}
		f.Records = append(f.Records, []string{
			strconv.Itoa(int(age)), wc, edu, ms, occ,
			pick(CensusRace), pick(CensusGender),
			strconv.Itoa(int(hours)), strconv.Itoa(label),
		})
	}
	return f
}
