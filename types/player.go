package types

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// Player represents a game character managed by the roster.
// Level and UntilNextLevel are derived from Experience and are never
// supplied by API callers.
type Player struct {
	// ID is the unique identifier of the player. Assigned on insert.
	ID int64 `json:"id" db:"id"`

	// Name is the character name (1 to 12 characters).
	Name string `json:"name" db:"name"`

	// Title is the character title (up to 30 characters).
	Title string `json:"title" db:"title"`

	// Race is the character race.
	Race Race `json:"race" db:"race"`

	// Profession is the character class.
	Profession Profession `json:"profession" db:"profession"`

	// Birthday is the in-game registration date. Serialized as epoch
	// milliseconds to stay wire compatible with existing clients.
	Birthday time.Time `json:"birthday" db:"birthday"`

	// Banned marks the player as banned.
	Banned bool `json:"banned" db:"banned"`

	// Experience is the accumulated experience (0 to 10,000,000).
	Experience int `json:"experience" db:"experience"`

	// Level is derived from Experience.
	Level int `json:"level" db:"level"`

	// UntilNextLevel is the experience still needed to reach Level+1.
	UntilNextLevel int `json:"untilNextLevel" db:"until_next_level"`
}

type playerJSON struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Title          string     `json:"title"`
	Race           Race       `json:"race"`
	Profession     Profession `json:"profession"`
	Birthday       int64      `json:"birthday"`
	Banned         bool       `json:"banned"`
	Experience     int        `json:"experience"`
	Level          int        `json:"level"`
	UntilNextLevel int        `json:"untilNextLevel"`
}

// MarshalJSON encodes the birthday as epoch milliseconds.
func (p Player) MarshalJSON() ([]byte, error) {
	return json.Marshal(playerJSON{
		ID:             p.ID,
		Name:           p.Name,
		Title:          p.Title,
		Race:           p.Race,
		Profession:     p.Profession,
		Birthday:       p.Birthday.UnixMilli(),
		Banned:         p.Banned,
		Experience:     p.Experience,
		Level:          p.Level,
		UntilNextLevel: p.UntilNextLevel,
	})
}

// UnmarshalJSON decodes a player whose birthday is in epoch milliseconds.
func (p *Player) UnmarshalJSON(data []byte) error {
	var raw playerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Player{
		ID:             raw.ID,
		Name:           raw.Name,
		Title:          raw.Title,
		Race:           raw.Race,
		Profession:     raw.Profession,
		Birthday:       time.UnixMilli(raw.Birthday).UTC(),
		Banned:         raw.Banned,
		Experience:     raw.Experience,
		Level:          raw.Level,
		UntilNextLevel: raw.UntilNextLevel,
	}
	return nil
}

// RecalculateProgress refreshes Level and UntilNextLevel from Experience.
func (p *Player) RecalculateProgress() {
	p.Level = CurrentLevel(p.Experience)
	p.UntilNextLevel = ExperienceToNextLevel(p.Level, p.Experience)
}

// CurrentLevel returns the level reached with the given experience.
func CurrentLevel(experience int) int {
	return int(math.Floor((math.Sqrt(2500+200*float64(experience)) - 50) / 100))
}

// ExperienceToNextLevel returns how much experience is missing to go from
// level to level+1.
func ExperienceToNextLevel(level, experience int) int {
	return 50*(level+1)*(level+2) - experience
}

// Race is the character race.
type Race string

const (
	RaceHuman  Race = "HUMAN"
	RaceDwarf  Race = "DWARF"
	RaceElf    Race = "ELF"
	RaceGiant  Race = "GIANT"
	RaceOrc    Race = "ORC"
	RaceTroll  Race = "TROLL"
	RaceHobbit Race = "HOBBIT"
)

// Races lists every known race.
var Races = []Race{RaceHuman, RaceDwarf, RaceElf, RaceGiant, RaceOrc, RaceTroll, RaceHobbit}

// ParseRace matches value exactly against the known races.
func ParseRace(value string) (Race, bool) {
	for _, race := range Races {
		if string(race) == value {
			return race, true
		}
	}
	return "", false
}

// Profession is the character class.
type Profession string

const (
	ProfessionWarrior  Profession = "WARRIOR"
	ProfessionRogue    Profession = "ROGUE"
	ProfessionSorcerer Profession = "SORCERER"
	ProfessionCleric   Profession = "CLERIC"
	ProfessionPaladin  Profession = "PALADIN"
	ProfessionNazgul   Profession = "NAZGUL"
	ProfessionWarlock  Profession = "WARLOCK"
	ProfessionDruid    Profession = "DRUID"
)

// Professions lists every known profession.
var Professions = []Profession{
	ProfessionWarrior,
	ProfessionRogue,
	ProfessionSorcerer,
	ProfessionCleric,
	ProfessionPaladin,
	ProfessionNazgul,
	ProfessionWarlock,
	ProfessionDruid,
}

// ParseProfession matches value exactly against the known professions.
func ParseProfession(value string) (Profession, bool) {
	for _, profession := range Professions {
		if string(profession) == value {
			return profession, true
		}
	}
	return "", false
}

// PlayerOrder names the field a player listing is sorted by.
type PlayerOrder string

const (
	OrderByID         PlayerOrder = "ID"
	OrderByName       PlayerOrder = "NAME"
	OrderByExperience PlayerOrder = "EXPERIENCE"
	OrderByBirthday   PlayerOrder = "BIRTHDAY"
	OrderByLevel      PlayerOrder = "LEVEL"
)

// ParsePlayerOrder resolves a sort key. An empty value means OrderByID.
func ParsePlayerOrder(value string) (PlayerOrder, bool) {
	switch order := PlayerOrder(strings.TrimSpace(value)); order {
	case "":
		return OrderByID, true
	case OrderByID, OrderByName, OrderByExperience, OrderByBirthday, OrderByLevel:
		return order, true
	default:
		return "", false
	}
}

// PlayerFilter holds the optional listing criteria. A nil field places no
// constraint. After and Before are epoch milliseconds.
type PlayerFilter struct {
	Name          *string
	Title         *string
	Race          *Race
	Profession    *Profession
	After         *int64
	Before        *int64
	Banned        *bool
	MinExperience *int
	MaxExperience *int
	MinLevel      *int
	MaxLevel      *int
}
