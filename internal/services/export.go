package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/rosterhq/playerapi/internal/store"
	"github.com/rosterhq/playerapi/types"
)

const exportPageSize = 500

// ObjectStore is the object storage surface needed for exports.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Bucket() string
}

// ExportRepository adds transactional bulk inserts to PlayerRepository.
type ExportRepository interface {
	PlayerRepository
	InsertAll(ctx context.Context, players []types.Player) ([]types.Player, error)
}

// ExportService writes roster snapshots to object storage.
type ExportService struct {
	repo    ExportRepository
	objects ObjectStore
	logger  *slog.Logger
	now     func() time.Time
}

func NewExportService(repo ExportRepository, objects ObjectStore, logger *slog.Logger) *ExportService {
	return &ExportService{repo: repo, objects: objects, logger: logger, now: time.Now}
}

// Export uploads every player matching filter, ordered by id, as a JSON
// array and returns the object key and the number of exported players.
func (s *ExportService) Export(ctx context.Context, filter types.PlayerFilter) (string, int, error) {
	criteria := toCriteria(filter)

	var buf bytes.Buffer
	buf.WriteByte('[')
	count := 0
	for pageNumber := 0; ; pageNumber++ {
		page := store.PageRequest{PageNumber: pageNumber, PageSize: exportPageSize, Order: types.OrderByID}
		players, err := s.repo.FindAllByParams(ctx, criteria, page)
		if err != nil {
			return "", 0, fmt.Errorf("load players page %d: %w", pageNumber, err)
		}
		for _, player := range players {
			data, err := json.Marshal(player)
			if err != nil {
				return "", 0, err
			}
			if count > 0 {
				buf.WriteByte(',')
			}
			buf.Write(data)
			count++
		}
		if len(players) < exportPageSize {
			break
		}
	}
	buf.WriteByte(']')

	key := fmt.Sprintf("exports/players-%s.json", s.now().UTC().Format("20060102T150405Z"))
	size := int64(buf.Len())
	if err := s.objects.Put(ctx, key, &buf, size, "application/json"); err != nil {
		return "", 0, fmt.Errorf("upload export: %w", err)
	}

	s.logger.Info("roster exported",
		slog.String("bucket", s.objects.Bucket()),
		slog.String("key", key),
		slog.Int("players", count),
	)
	return key, count, nil
}

// Restore reads an export written by Export and inserts every player in it
// as a new record. Entries are validated up front and inserted in one
// transaction, so a failed restore leaves the roster unchanged.
func (s *ExportService) Restore(ctx context.Context, key string) (int, error) {
	reader, err := s.objects.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("download export %s: %w", key, err)
	}
	defer reader.Close()

	var exported []types.Player
	if err := json.NewDecoder(reader).Decode(&exported); err != nil {
		return 0, fmt.Errorf("decode export %s: %w", key, err)
	}

	restored := make([]types.Player, 0, len(exported))
	for i, p := range exported {
		var player types.Player
		if err := fillPlayer(exportedFields(p), &player); err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}
		restored = append(restored, player)
	}

	if _, err := s.repo.InsertAll(ctx, restored); err != nil {
		return 0, fmt.Errorf("restore export %s: %w", key, err)
	}

	s.logger.Info("roster restored",
		slog.String("bucket", s.objects.Bucket()),
		slog.String("key", key),
		slog.Int("players", len(restored)),
	)
	return len(restored), nil
}

func exportedFields(p types.Player) map[string]string {
	return map[string]string{
		FieldName:       p.Name,
		FieldTitle:      p.Title,
		FieldRace:       string(p.Race),
		FieldProfession: string(p.Profession),
		FieldBirthday:   strconv.FormatInt(p.Birthday.UnixMilli(), 10),
		FieldExperience: strconv.Itoa(p.Experience),
		FieldBanned:     strconv.FormatBool(p.Banned),
	}
}
