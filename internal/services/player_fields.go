package services

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rosterhq/playerapi/types"
)

const (
	FieldName       = "name"
	FieldTitle      = "title"
	FieldRace       = "race"
	FieldProfession = "profession"
	FieldBirthday   = "birthday"
	FieldExperience = "experience"
	FieldBanned     = "banned"
)

const (
	maxNameLength     = 12
	maxTitleLength    = 30
	minBirthdayMillis = int64(946663200000)
	maxBirthdayMillis = int64(32535104400000)
	minExperience     = 0
	maxExperience     = 10000000
)

var requiredCreateFields = []string{
	FieldName,
	FieldTitle,
	FieldRace,
	FieldProfession,
	FieldBirthday,
	FieldExperience,
}

// fillPlayer applies every field present in fields to player, then
// recomputes the derived progress. The player is left untouched on error.
func fillPlayer(fields map[string]string, player *types.Player) error {
	next := *player

	if name, ok := fields[FieldName]; ok {
		if n := utf8.RuneCountInString(name); n < 1 || n > maxNameLength {
			return invalid(FieldName, "length must be between 1 and 12")
		}
		next.Name = name
	}

	if title, ok := fields[FieldTitle]; ok {
		if utf8.RuneCountInString(title) > maxTitleLength {
			return invalid(FieldTitle, "length must not exceed 30")
		}
		next.Title = title
	}

	if raw, ok := fields[FieldRace]; ok {
		race, known := types.ParseRace(raw)
		if !known {
			return invalid(FieldRace, "unknown race "+strconv.Quote(raw))
		}
		next.Race = race
	}

	if raw, ok := fields[FieldProfession]; ok {
		profession, known := types.ParseProfession(raw)
		if !known {
			return invalid(FieldProfession, "unknown profession "+strconv.Quote(raw))
		}
		next.Profession = profession
	}

	if raw, ok := fields[FieldBirthday]; ok {
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return invalid(FieldBirthday, "must be epoch milliseconds")
		}
		if millis < minBirthdayMillis || millis > maxBirthdayMillis {
			return invalid(FieldBirthday, "out of range")
		}
		next.Birthday = time.UnixMilli(millis).UTC()
	}

	if raw, ok := fields[FieldExperience]; ok {
		experience, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return invalid(FieldExperience, "must be an integer")
		}
		if experience < minExperience || experience > maxExperience {
			return invalid(FieldExperience, "must be between 0 and 10000000")
		}
		next.Experience = int(experience)
	}

	if raw, ok := fields[FieldBanned]; ok {
		next.Banned = strings.EqualFold(raw, "true")
	}

	next.RecalculateProgress()
	*player = next
	return nil
}

func missingCreateField(fields map[string]string) (string, bool) {
	for _, key := range requiredCreateFields {
		if _, ok := fields[key]; !ok {
			return key, true
		}
	}
	return "", false
}
