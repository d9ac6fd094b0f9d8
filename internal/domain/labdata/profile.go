package labdata

import (
	"fmt"
	"time"
)

var (
	firstNamesMale = []string{
		"Jan", "Pieter", "Luc", "Marc", "Koen", "Bart", "Tom", "Wim",
		"Dirk", "Geert", "Johan", "Filip", "Stijn", "Kris", "Jef",
		"Lucas", "Arthur", "Noah", "Louis", "Liam", "Jules", "Mathis",
		"Wout", "Lars", "Senne", "Ruben", "Thibaut", "Jens", "Willem",
	}
	firstNamesFemale = []string{
		"Maria", "An", "Els", "Katrien", "Sofie", "Lies", "Griet",
		"Hilde", "Inge", "Veerle", "Annelies", "Leen", "Marleen", "Ilse",
		"Emma", "Olivia", "Louise", "Elena", "Mila", "Nora", "Lotte",
		"Fien", "Lore", "Febe", "Ine", "Julie", "Charlotte", "Marie",
	}
	lastNames = []string{
		"Peeters", "Janssens", "Maes", "Jacobs", "Mertens", "Willems",
		"Claes", "Goossens", "Wouters", "De Smet", "Dubois", "Lambert",
		"Dupont", "Martens", "Vermeulen", "Van den Broeck", "Hermans",
		"Aerts", "Pauwels", "De Clercq", "Van Damme", "Michiels",
		"Desmet", "Coppens", "Verstraete", "De Backer", "Stevens",
		"Smets", "Segers", "Vandenberghe", "Leclercq", "Van de Velde",
	}
	streetNames = []string{
		"Kerkstraat", "Stationsstraat", "Dorpstraat", "Molenstraat",
		"Nieuwstraat", "Schoolstraat", "Kapelstraat", "Beekstraat",
		"Kasteelstraat", "Veldstraat", "Lindenlaan", "Meersstraat",
		"Hoogstraat", "Bergstraat", "Brugstraat", "Populierenlaan",
		"Kouter", "Grote Markt", "Oude Baan", "Heirweg",
	}
	municipalities = []string{
		"1000 Brussel", "2000 Antwerpen", "3000 Leuven", "3500 Hasselt",
		"8000 Brugge", "9000 Gent", "2800 Mechelen", "8500 Kortrijk",
		"9300 Aalst", "2300 Turnhout", "3800 Sint-Truiden", "8400 Oostende",
		"9100 Sint-Niklaas", "2500 Lier", "3200 Aarschot", "9200 Dendermonde",
	}
)

// MaxAgeYears bounds the age of generated profiles.
const MaxAgeYears = 115

// DutchProfiles generates Flemish names and Belgian two-line addresses.
type DutchProfiles struct {
	Today time.Time
}

// Profile returns one random profile.
func (p DutchProfiles) Profile(rng Rand) Profile {
	first := pick(rng, firstNamesMale)
	if rng.IntN(2) == 0 {
		first = pick(rng, firstNamesFemale)
	}
	name := first + " " + pick(rng, lastNames)

	address := fmt.Sprintf("%s %d\n%s",
		pick(rng, streetNames),
		1+rng.IntN(250),
		pick(rng, municipalities),
	)

	today := p.Today
	if today.IsZero() {
		today = time.Now()
	}
	oldest := today.AddDate(-MaxAgeYears, 0, 0)
	span := int(today.Sub(oldest).Hours() / 24)
	birth := today.AddDate(0, 0, -rng.IntN(span+1))

	return Profile{Name: name, Address: address, BirthDate: birth}
}
