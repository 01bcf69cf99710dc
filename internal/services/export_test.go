package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterhq/playerapi/internal/store"
	"github.com/rosterhq/playerapi/internal/testutil"
	"github.com/rosterhq/playerapi/types"
)

var errObjectMissing = errors.New("object missing")

type memoryObjects struct {
	objects     map[string][]byte
	contentType string
	err         error
}

func (m *memoryObjects) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.err != nil {
		return m.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: %d != %d", len(data), size)
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	m.contentType = contentType
	return nil
}

func (m *memoryObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errObjectMissing
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryObjects) Bucket() string {
	return "test-bucket"
}

func newExportFixture(t *testing.T, players int) (*ExportService, *memoryObjects) {
	t.Helper()
	logger := testutil.NopLogger()
	repo := store.NewPlayerRepository(testutil.OpenSQLite(t), store.SQLite)
	playerService := NewPlayerService(repo, nil, logger)
	for i := 0; i < players; i++ {
		fields := validFields()
		fields[FieldName] = fmt.Sprintf("Player%d", i)
		fields[FieldExperience] = strconv.Itoa(i * 10)
		if i%2 == 0 {
			fields[FieldRace] = "ELF"
		}
		_, err := playerService.CreatePlayer(context.Background(), fields)
		require.NoError(t, err)
	}

	objects := &memoryObjects{}
	export := NewExportService(repo, objects, logger)
	export.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) }
	return export, objects
}

func TestExportWritesEveryMatchingPlayer(t *testing.T) {
	export, objects := newExportFixture(t, exportPageSize+3)

	key, count, err := export.Export(context.Background(), types.PlayerFilter{})
	require.NoError(t, err)
	assert.Equal(t, "exports/players-20260301T123000Z.json", key)
	assert.Equal(t, exportPageSize+3, count)
	assert.Equal(t, "application/json", objects.contentType)

	var exported []types.Player
	require.NoError(t, json.Unmarshal(objects.objects[key], &exported))
	require.Len(t, exported, exportPageSize+3)
	for i := 1; i < len(exported); i++ {
		assert.Less(t, exported[i-1].ID, exported[i].ID)
	}
}

func TestExportAppliesFilter(t *testing.T) {
	export, objects := newExportFixture(t, 6)

	elf := types.RaceElf
	key, count, err := export.Export(context.Background(), types.PlayerFilter{Race: &elf})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	var exported []types.Player
	require.NoError(t, json.Unmarshal(objects.objects[key], &exported))
	for _, p := range exported {
		assert.Equal(t, types.RaceElf, p.Race)
	}
}

func TestExportEmptyRoster(t *testing.T) {
	export, objects := newExportFixture(t, 0)

	key, count, err := export.Export(context.Background(), types.PlayerFilter{})
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, "[]", string(objects.objects[key]))
}

func TestExportUploadFailure(t *testing.T) {
	export, objects := newExportFixture(t, 1)
	objects.err = errors.New("bucket unavailable")

	_, _, err := export.Export(context.Background(), types.PlayerFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload export")
}

func TestRestoreRecreatesExportedPlayers(t *testing.T) {
	export, objects := newExportFixture(t, 4)
	ctx := context.Background()

	key, _, err := export.Export(ctx, types.PlayerFilter{})
	require.NoError(t, err)

	restored, err := export.Restore(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 4, restored)

	total, err := export.repo.CountByParams(ctx, store.PlayerCriteria{})
	require.NoError(t, err)
	assert.Equal(t, 8, total)

	var exported []types.Player
	require.NoError(t, json.Unmarshal(objects.objects[key], &exported))
	name := exported[0].Name
	copies, err := export.repo.FindAllByParams(ctx, store.PlayerCriteria{Name: &name},
		store.PageRequest{PageNumber: 0, PageSize: 10, Order: types.OrderByID})
	require.NoError(t, err)
	require.Len(t, copies, 2)
	assert.NotEqual(t, copies[0].ID, copies[1].ID)
	assert.Equal(t, copies[0].Level, copies[1].Level)
	assert.True(t, copies[0].Birthday.Equal(copies[1].Birthday))
}

func TestRestoreRejectsInvalidEntryWithoutWriting(t *testing.T) {
	export, objects := newExportFixture(t, 0)
	ctx := context.Background()
	objects.objects = map[string][]byte{
		"exports/bad.json": []byte(`[
			{"name":"Valid","title":"t","race":"ELF","profession":"DRUID","birthday":1000000000000,"experience":10},
			{"name":"Invalid","title":"t","race":"ELF","profession":"DRUID","birthday":1000000000000,"experience":-5}
		]`),
	}

	_, err := export.Restore(ctx, "exports/bad.json")
	require.Error(t, err)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, FieldExperience, vErr.Field)

	total, err := export.repo.CountByParams(ctx, store.PlayerCriteria{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestRestoreMissingObject(t *testing.T) {
	export, _ := newExportFixture(t, 0)

	_, err := export.Restore(context.Background(), "exports/none.json")
	require.ErrorIs(t, err, errObjectMissing)
}

func TestRestoreRollsBackWhenAnInsertFails(t *testing.T) {
	ctx := context.Background()
	conn := testutil.OpenSQLite(t)
	_, err := conn.ExecContext(ctx, `
		CREATE TRIGGER reject_mordred BEFORE INSERT ON players
		WHEN NEW.name = 'Mordred'
		BEGIN SELECT RAISE(ABORT, 'mordred rejected'); END`)
	require.NoError(t, err)

	repo := store.NewPlayerRepository(conn, store.SQLite)
	objects := &memoryObjects{objects: map[string][]byte{
		"exports/camelot.json": []byte(`[
			{"name":"Arthur","title":"King","race":"HUMAN","profession":"PALADIN","birthday":1000000000000,"experience":10},
			{"name":"Mordred","title":"Traitor","race":"HUMAN","profession":"WARRIOR","birthday":1000000000000,"experience":20}
		]`),
	}}
	export := NewExportService(repo, objects, testutil.NopLogger())

	_, err = export.Restore(ctx, "exports/camelot.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mordred rejected")

	total, err := repo.CountByParams(ctx, store.PlayerCriteria{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
