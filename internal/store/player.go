package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rosterhq/playerapi/types"
)

const playerColumns = `id, name, title, race, profession, birthday, banned, experience, level, until_next_level`

// PlayerRepository handles persistence for players.
type PlayerRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewPlayerRepository(db *sql.DB, dialect Dialect) *PlayerRepository {
	return &PlayerRepository{db: db, dialect: dialect}
}

func (r *PlayerRepository) FindByID(ctx context.Context, id int64) (types.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = ` + r.dialect.Placeholder(1)
	player, err := scanPlayer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Player{}, ErrNotFound
		}
		return types.Player{}, err
	}
	return player, nil
}

// FindAllByParams returns one sorted page of the players matching criteria.
func (r *PlayerRepository) FindAllByParams(ctx context.Context, criteria PlayerCriteria, page PageRequest) ([]types.Player, error) {
	b := newPlayerQuery(r.dialect, criteria)
	where := b.whereClause()
	paging, err := b.pageClause(page)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+playerColumns+` FROM players`+where+paging, b.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := make([]types.Player, 0, min(page.PageSize, 64))
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, player)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}

// CountByParams returns the number of players matching criteria.
func (r *PlayerRepository) CountByParams(ctx context.Context, criteria PlayerCriteria) (int, error) {
	b := newPlayerQuery(r.dialect, criteria)
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM players`+b.whereClause(), b.args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *PlayerRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	query := `SELECT 1 FROM players WHERE id = ` + r.dialect.Placeholder(1)
	var one int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Save inserts the player when it has no ID yet and updates it otherwise.
func (r *PlayerRepository) Save(ctx context.Context, player types.Player) (types.Player, error) {
	if player.ID == 0 {
		return r.insert(ctx, player)
	}
	return r.update(ctx, player)
}

// InsertAll inserts players as new records in one transaction. Either every
// player is stored or none is.
func (r *PlayerRepository) InsertAll(ctx context.Context, players []types.Player) (_ []types.Player, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	inserted := make([]types.Player, 0, len(players))
	for i, player := range players {
		player.ID = 0
		saved, err := r.insertWith(ctx, tx, player)
		if err != nil {
			return nil, fmt.Errorf("insert player %d: %w", i, err)
		}
		inserted = append(inserted, saved)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return inserted, nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *PlayerRepository) insert(ctx context.Context, player types.Player) (types.Player, error) {
	return r.insertWith(ctx, r.db, player)
}

func (r *PlayerRepository) insertWith(ctx context.Context, q rowQuerier, player types.Player) (types.Player, error) {
	p := r.dialect.Placeholder
	query := fmt.Sprintf(`
		INSERT INTO players (name, title, race, profession, birthday, banned, experience, level, until_next_level)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)
		RETURNING id`, p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8), p(9))
	if err := q.QueryRowContext(
		ctx,
		query,
		player.Name,
		player.Title,
		string(player.Race),
		string(player.Profession),
		player.Birthday.UnixMilli(),
		player.Banned,
		player.Experience,
		player.Level,
		player.UntilNextLevel,
	).Scan(&player.ID); err != nil {
		return types.Player{}, err
	}
	return player, nil
}

func (r *PlayerRepository) update(ctx context.Context, player types.Player) (types.Player, error) {
	p := r.dialect.Placeholder
	query := fmt.Sprintf(`
		UPDATE players
		SET name = %s,
			title = %s,
			race = %s,
			profession = %s,
			birthday = %s,
			banned = %s,
			experience = %s,
			level = %s,
			until_next_level = %s
		WHERE id = %s`, p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8), p(9), p(10))
	result, err := r.db.ExecContext(
		ctx,
		query,
		player.Name,
		player.Title,
		string(player.Race),
		string(player.Profession),
		player.Birthday.UnixMilli(),
		player.Banned,
		player.Experience,
		player.Level,
		player.UntilNextLevel,
		player.ID,
	)
	if err != nil {
		return types.Player{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Player{}, err
	}
	if affected == 0 {
		return types.Player{}, ErrNotFound
	}
	return player, nil
}

func (r *PlayerRepository) DeleteByID(ctx context.Context, id int64) error {
	query := `DELETE FROM players WHERE id = ` + r.dialect.Placeholder(1)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (types.Player, error) {
	var (
		player     types.Player
		race       string
		profession string
		birthday   int64
	)
	if err := row.Scan(
		&player.ID,
		&player.Name,
		&player.Title,
		&race,
		&profession,
		&birthday,
		&player.Banned,
		&player.Experience,
		&player.Level,
		&player.UntilNextLevel,
	); err != nil {
		return types.Player{}, err
	}
	player.Race = types.Race(race)
	player.Profession = types.Profession(profession)
	player.Birthday = time.UnixMilli(birthday).UTC()
	return player, nil
}
