package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rosterhq/playerapi/internal/services"
	"github.com/rosterhq/playerapi/types"
)

const (
	defaultPageNumber = 0
	defaultPageSize   = 3
	maxBodyBytes      = 1 << 20
)

// PlayerHandler provides HTTP handlers for the player roster.
type PlayerHandler struct {
	playerService *services.PlayerService
	logger        *slog.Logger
}

// NewPlayerHandler constructs a handler with the provided service.
func NewPlayerHandler(playerService *services.PlayerService, logger *slog.Logger) *PlayerHandler {
	return &PlayerHandler{
		playerService: playerService,
		logger:        logger,
	}
}

// PlayerRouter registers player routes on the given router. When
// authMiddleware is not nil it guards every mutating route.
func PlayerRouter(
	r chi.Router,
	playerService *services.PlayerService,
	logger *slog.Logger,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewPlayerHandler(playerService, logger)

	writes := r
	if authMiddleware != nil {
		writes = r.With(authMiddleware)
	}

	r.Get("/", handler.ListPlayers)
	r.Get("/count", handler.CountPlayers)
	writes.Post("/", handler.CreatePlayer)
	r.Route("/{playerID}", func(r chi.Router) {
		r.Get("/", handler.GetPlayer)
		if authMiddleware != nil {
			r = r.With(authMiddleware)
		}
		r.Post("/", handler.UpdatePlayer)
		r.Delete("/", handler.DeletePlayer)
	})
}

func (h *PlayerHandler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter, err := parsePlayerFilter(query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	pageNumber, err := parseIntParam(query, "pageNumber", defaultPageNumber)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pageSize, err := parseIntParam(query, "pageSize", defaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	order := types.PlayerOrder(strings.TrimSpace(query.Get("order")))

	players, err := h.playerService.GetPlayersByParams(r.Context(), filter, order, pageNumber, pageSize)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list players")
		return
	}
	if players == nil {
		players = []types.Player{}
	}

	writeJSON(w, http.StatusOK, players)
}

func (h *PlayerHandler) CountPlayers(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePlayerFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	count, err := h.playerService.GetCountByParams(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to count players")
		return
	}

	writeJSON(w, http.StatusOK, count)
}

func (h *PlayerHandler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := h.playerService.GetPlayerByID(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to fetch player")
		return
	}

	writeJSON(w, http.StatusOK, player)
}

func (h *PlayerHandler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.playerService.CreatePlayer(r.Context(), fields)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to create player")
		return
	}

	writeJSON(w, http.StatusOK, created)
}

func (h *PlayerHandler) UpdatePlayer(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeFields(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.playerService.UpdatePlayer(r.Context(), fields, chi.URLParam(r, "playerID"))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to update player")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *PlayerHandler) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	if err := h.playerService.DeletePlayer(r.Context(), chi.URLParam(r, "playerID")); err != nil {
		writeServiceError(w, r, h.logger, err, "failed to delete player")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// decodeFields reads a JSON object and flattens its scalar values to
// strings, the form the player service validates.
func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.UseNumber()

	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("request body is required")
		}
		return nil, errors.New("invalid request body")
	}
	if raw == nil {
		return nil, errors.New("request body must be a JSON object")
	}

	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case nil:
			fields[key] = ""
		case string:
			fields[key] = v
		case json.Number:
			fields[key] = v.String()
		case bool:
			fields[key] = strconv.FormatBool(v)
		default:
			return nil, fmt.Errorf("field %q must be a scalar value", key)
		}
	}
	return fields, nil
}

func parsePlayerFilter(query url.Values) (types.PlayerFilter, error) {
	var filter types.PlayerFilter

	if raw, ok := lookupParam(query, "name"); ok {
		filter.Name = &raw
	}
	if raw, ok := lookupParam(query, "title"); ok {
		filter.Title = &raw
	}
	if raw, ok := lookupParam(query, "race"); ok {
		race, known := types.ParseRace(raw)
		if !known {
			return types.PlayerFilter{}, fmt.Errorf("invalid race %q", raw)
		}
		filter.Race = &race
	}
	if raw, ok := lookupParam(query, "profession"); ok {
		profession, known := types.ParseProfession(raw)
		if !known {
			return types.PlayerFilter{}, fmt.Errorf("invalid profession %q", raw)
		}
		filter.Profession = &profession
	}
	if raw, ok := lookupParam(query, "banned"); ok {
		banned, err := strconv.ParseBool(raw)
		if err != nil {
			return types.PlayerFilter{}, fmt.Errorf("invalid banned %q", raw)
		}
		filter.Banned = &banned
	}

	var err error
	if filter.After, err = parseInt64Param(query, "after"); err != nil {
		return types.PlayerFilter{}, err
	}
	if filter.Before, err = parseInt64Param(query, "before"); err != nil {
		return types.PlayerFilter{}, err
	}

	ranges := []struct {
		name   string
		target **int
	}{
		{"minExperience", &filter.MinExperience},
		{"maxExperience", &filter.MaxExperience},
		{"minLevel", &filter.MinLevel},
		{"maxLevel", &filter.MaxLevel},
	}
	for _, rng := range ranges {
		raw, ok := lookupParam(query, rng.name)
		if !ok {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			return types.PlayerFilter{}, fmt.Errorf("invalid %s", rng.name)
		}
		*rng.target = &value
	}

	return filter, nil
}

// lookupParam reports a query parameter only when it is present and not
// blank.
func lookupParam(query url.Values, name string) (string, bool) {
	if !query.Has(name) {
		return "", false
	}
	raw := strings.TrimSpace(query.Get(name))
	return raw, raw != ""
}

func parseIntParam(query url.Values, name string, fallback int) (int, error) {
	raw, ok := lookupParam(query, name)
	if !ok {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return value, nil
}

func parseInt64Param(query url.Values, name string) (*int64, error) {
	raw, ok := lookupParam(query, name)
	if !ok {
		return nil, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", name)
	}
	return &value, nil
}
