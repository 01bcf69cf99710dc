package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/rosterhq/playerapi/types"
)

// PlayerCriteria is the conjunctive filter applied to player queries.
// Nil fields are ignored.
type PlayerCriteria struct {
	Name          *string
	Title         *string
	Race          *types.Race
	Profession    *types.Profession
	After         *time.Time
	Before        *time.Time
	Banned        *bool
	MinExperience *int
	MaxExperience *int
	MinLevel      *int
	MaxLevel      *int
}

// PageRequest selects one page of a sorted player listing.
type PageRequest struct {
	PageNumber int
	PageSize   int
	Order      types.PlayerOrder
}

var orderColumns = map[types.PlayerOrder]string{
	types.OrderByID:         "id",
	types.OrderByName:       "name",
	types.OrderByExperience: "experience",
	types.OrderByBirthday:   "birthday",
	types.OrderByLevel:      "level",
}

type queryBuilder struct {
	dialect Dialect
	where   []string
	args    []any
}

func newPlayerQuery(dialect Dialect, c PlayerCriteria) *queryBuilder {
	b := &queryBuilder{dialect: dialect}
	if c.Name != nil {
		b.where = append(b.where, dialect.Contains("name", b.bind(*c.Name)))
	}
	if c.Title != nil {
		b.where = append(b.where, dialect.Contains("title", b.bind(*c.Title)))
	}
	if c.Race != nil {
		b.add("race = %s", string(*c.Race))
	}
	if c.Profession != nil {
		b.add("profession = %s", string(*c.Profession))
	}
	if c.After != nil {
		b.add("birthday >= %s", c.After.UnixMilli())
	}
	if c.Before != nil {
		b.add("birthday < %s", c.Before.UnixMilli())
	}
	if c.Banned != nil {
		b.add("banned = %s", *c.Banned)
	}
	if c.MinExperience != nil {
		b.add("experience >= %s", *c.MinExperience)
	}
	if c.MaxExperience != nil {
		b.add("experience <= %s", *c.MaxExperience)
	}
	if c.MinLevel != nil {
		b.add("level >= %s", *c.MinLevel)
	}
	if c.MaxLevel != nil {
		b.add("level <= %s", *c.MaxLevel)
	}
	return b
}

func (b *queryBuilder) bind(value any) string {
	b.args = append(b.args, value)
	return b.dialect.Placeholder(len(b.args))
}

func (b *queryBuilder) add(format string, value any) {
	b.where = append(b.where, fmt.Sprintf(format, b.bind(value)))
}

func (b *queryBuilder) whereClause() string {
	if len(b.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.where, " AND ")
}

// pageClause renders ORDER BY with id as tie-breaker plus LIMIT/OFFSET.
func (b *queryBuilder) pageClause(page PageRequest) (string, error) {
	column, ok := orderColumns[page.Order]
	if !ok {
		return "", fmt.Errorf("unsupported sort order %q", page.Order)
	}
	order := " ORDER BY " + column
	if column != "id" {
		order += ", id"
	}
	limit := b.bind(page.PageSize)
	offset := b.bind(page.PageNumber * page.PageSize)
	return order + " LIMIT " + limit + " OFFSET " + offset, nil
}
