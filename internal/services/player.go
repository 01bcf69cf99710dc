package services

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/rosterhq/playerapi/internal/store"
	"github.com/rosterhq/playerapi/types"
)

const playerResource = "player"

// MaxPageSize bounds the number of players returned by one list request.
const MaxPageSize = 1000

// PlayerRepository defines persistence operations for players.
type PlayerRepository interface {
	FindByID(ctx context.Context, id int64) (types.Player, error)
	FindAllByParams(ctx context.Context, criteria store.PlayerCriteria, page store.PageRequest) ([]types.Player, error)
	CountByParams(ctx context.Context, criteria store.PlayerCriteria) (int, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	Save(ctx context.Context, player types.Player) (types.Player, error)
	DeleteByID(ctx context.Context, id int64) error
}

// PlayerService validates roster input, derives progress and orchestrates
// persistence.
type PlayerService struct {
	repo   PlayerRepository
	events *PlayerEvents
	logger *slog.Logger
}

func NewPlayerService(repo PlayerRepository, events *PlayerEvents, logger *slog.Logger) *PlayerService {
	return &PlayerService{repo: repo, events: events, logger: logger}
}

func (s *PlayerService) GetPlayerByID(ctx context.Context, rawID string) (types.Player, error) {
	id, err := parsePlayerID(rawID)
	if err != nil {
		return types.Player{}, err
	}
	return s.findPlayer(ctx, id)
}

// GetPlayersByParams returns one page of matching players sorted by order.
func (s *PlayerService) GetPlayersByParams(ctx context.Context, filter types.PlayerFilter, order types.PlayerOrder, pageNumber, pageSize int) ([]types.Player, error) {
	if order == "" {
		order = types.OrderByID
	}
	if _, ok := types.ParsePlayerOrder(string(order)); !ok {
		return nil, invalid("order", "unknown sort field "+strconv.Quote(string(order)))
	}
	if pageNumber < 0 {
		return nil, invalid("pageNumber", "must not be negative")
	}
	if pageSize < 1 {
		return nil, invalid("pageSize", "must be at least 1")
	}
	if pageSize > MaxPageSize {
		return nil, invalid("pageSize", "must be at most "+strconv.Itoa(MaxPageSize))
	}
	if pageNumber > math.MaxInt/pageSize {
		return nil, invalid("pageNumber", "is out of range")
	}

	page := store.PageRequest{PageNumber: pageNumber, PageSize: pageSize, Order: order}
	return s.repo.FindAllByParams(ctx, toCriteria(filter), page)
}

func (s *PlayerService) GetCountByParams(ctx context.Context, filter types.PlayerFilter) (int, error) {
	return s.repo.CountByParams(ctx, toCriteria(filter))
}

func (s *PlayerService) CreatePlayer(ctx context.Context, fields map[string]string) (types.Player, error) {
	if key, missing := missingCreateField(fields); missing {
		return types.Player{}, invalid(key, "is required")
	}

	var player types.Player
	if err := fillPlayer(fields, &player); err != nil {
		return types.Player{}, err
	}

	created, err := s.repo.Save(ctx, player)
	if err != nil {
		return types.Player{}, err
	}
	s.logger.Info("player created", slog.Int64("player_id", created.ID))
	s.events.publish(ctx, types.PlayerCreated, created.ID, &created)
	return created, nil
}

// UpdatePlayer changes only the supplied fields. Level and UntilNextLevel
// are recomputed even when experience is untouched.
func (s *PlayerService) UpdatePlayer(ctx context.Context, fields map[string]string, rawID string) (types.Player, error) {
	id, err := parsePlayerID(rawID)
	if err != nil {
		return types.Player{}, err
	}
	player, err := s.findPlayer(ctx, id)
	if err != nil {
		return types.Player{}, err
	}

	if err := fillPlayer(fields, &player); err != nil {
		return types.Player{}, err
	}

	updated, err := s.repo.Save(ctx, player)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Player{}, &NotFoundError{Resource: playerResource, ID: id}
		}
		return types.Player{}, err
	}
	s.logger.Info("player updated", slog.Int64("player_id", updated.ID))
	s.events.publish(ctx, types.PlayerUpdated, updated.ID, &updated)
	return updated, nil
}

func (s *PlayerService) DeletePlayer(ctx context.Context, rawID string) error {
	id, err := parsePlayerID(rawID)
	if err != nil {
		return err
	}

	exists, err := s.repo.ExistsByID(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return &NotFoundError{Resource: playerResource, ID: id}
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &NotFoundError{Resource: playerResource, ID: id}
		}
		return err
	}
	s.logger.Info("player deleted", slog.Int64("player_id", id))
	s.events.publish(ctx, types.PlayerDeleted, id, nil)
	return nil
}

func (s *PlayerService) findPlayer(ctx context.Context, id int64) (types.Player, error) {
	player, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Player{}, &NotFoundError{Resource: playerResource, ID: id}
		}
		return types.Player{}, err
	}
	return player, nil
}

func parsePlayerID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("id", "must be a positive integer")
	}
	return id, nil
}

func toCriteria(filter types.PlayerFilter) store.PlayerCriteria {
	return store.PlayerCriteria{
		Name:          filter.Name,
		Title:         filter.Title,
		Race:          filter.Race,
		Profession:    filter.Profession,
		After:         millisToTime(filter.After),
		Before:        millisToTime(filter.Before),
		Banned:        filter.Banned,
		MinExperience: filter.MinExperience,
		MaxExperience: filter.MaxExperience,
		MinLevel:      filter.MinLevel,
		MaxLevel:      filter.MaxLevel,
	}
}

func millisToTime(millis *int64) *time.Time {
	if millis == nil {
		return nil
	}
	t := time.UnixMilli(*millis).UTC()
	return &t
}
