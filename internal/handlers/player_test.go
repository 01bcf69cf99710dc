package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"github.com/rosterhq/playerapi/internal/services"
	"github.com/rosterhq/playerapi/internal/store"
	"github.com/rosterhq/playerapi/internal/testutil"
	"github.com/rosterhq/playerapi/types"
)

const validPlayerBody = `{"name":"Ragnar","title":"Sea King","race":"HUMAN","profession":"WARRIOR","birthday":1000000000000,"experience":1000}`

type PlayerHandlerSuite struct {
	suite.Suite
	router *chi.Mux
}

func TestPlayerHandlerSuite(t *testing.T) {
	suite.Run(t, new(PlayerHandlerSuite))
}

func (s *PlayerHandlerSuite) SetupTest() {
	logger := testutil.NopLogger()
	repo := store.NewPlayerRepository(testutil.OpenSQLite(s.T()), store.SQLite)
	playerService := services.NewPlayerService(repo, nil, logger)

	s.router = chi.NewRouter()
	s.router.Route("/rest/players", func(r chi.Router) {
		PlayerRouter(r, playerService, logger, nil)
	})
}

func (s *PlayerHandlerSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *PlayerHandlerSuite) create(body string) types.Player {
	rec := s.do(http.MethodPost, "/rest/players", body)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var player types.Player
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &player))
	return player
}

func (s *PlayerHandlerSuite) list(target string) []types.Player {
	rec := s.do(http.MethodGet, target, "")
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var players []types.Player
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &players))
	return players
}

func (s *PlayerHandlerSuite) errorMessage(rec *httptest.ResponseRecorder) string {
	var resp ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func (s *PlayerHandlerSuite) TestCreateReturnsDerivedFields() {
	rec := s.do(http.MethodPost, "/rest/players", validPlayerBody)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.EqualValues(1000000000000, body["birthday"])
	s.EqualValues(4, body["level"])
	s.EqualValues(500, body["untilNextLevel"])
	s.Equal(false, body["banned"])
	s.NotZero(body["id"])
}

func (s *PlayerHandlerSuite) TestCreateAcceptsStringValues() {
	player := s.create(`{"name":"Ragnar","title":"t","race":"HUMAN","profession":"WARRIOR","birthday":"1000000000000","experience":"0","banned":"true"}`)
	s.True(player.Banned)
	s.Equal(0, player.Level)
	s.Equal(100, player.UntilNextLevel)
}

func (s *PlayerHandlerSuite) TestCreateValidationErrors() {
	cases := map[string]string{
		"missing field":     `{"name":"Ragnar","title":"t","race":"HUMAN","profession":"WARRIOR","birthday":1000000000000}`,
		"name too long":     `{"name":"ThirteenChars","title":"t","race":"HUMAN","profession":"WARRIOR","birthday":1000000000000,"experience":0}`,
		"unknown race":      `{"name":"Ragnar","title":"t","race":"GNOME","profession":"WARRIOR","birthday":1000000000000,"experience":0}`,
		"birthday too soon": `{"name":"Ragnar","title":"t","race":"HUMAN","profession":"WARRIOR","birthday":946663199999,"experience":0}`,
		"negative exp":      `{"name":"Ragnar","title":"t","race":"HUMAN","profession":"WARRIOR","birthday":1000000000000,"experience":-1}`,
		"fractional exp":    `{"name":"Ragnar","title":"t","race":"HUMAN","profession":"WARRIOR","birthday":1000000000000,"experience":1.5}`,
		"nested value":      `{"name":{"first":"Ragnar"},"title":"t","race":"HUMAN","profession":"WARRIOR","birthday":1000000000000,"experience":0}`,
		"not an object":     `["Ragnar"]`,
		"malformed":         `{"name":`,
	}
	for name, body := range cases {
		s.Run(name, func() {
			rec := s.do(http.MethodPost, "/rest/players", body)
			s.Equal(http.StatusBadRequest, rec.Code, rec.Body.String())
			s.NotEmpty(s.errorMessage(rec))
		})
	}
}

func (s *PlayerHandlerSuite) TestCreateWithoutBody() {
	rec := s.do(http.MethodPost, "/rest/players", "")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("request body is required", s.errorMessage(rec))
}

func (s *PlayerHandlerSuite) TestGetPlayer() {
	created := s.create(validPlayerBody)

	rec := s.do(http.MethodGet, "/rest/players/"+strconv.FormatInt(created.ID, 10), "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var fetched types.Player
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &fetched))
	s.Equal(created.ID, fetched.ID)
	s.Equal("Ragnar", fetched.Name)
}

func (s *PlayerHandlerSuite) TestGetPlayerErrors() {
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/rest/players/abc", "").Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/rest/players/0", "").Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/rest/players/-4", "").Code)

	rec := s.do(http.MethodGet, "/rest/players/999", "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("player 999 not found", s.errorMessage(rec))
}

func (s *PlayerHandlerSuite) TestUpdateChangesOnlySuppliedFields() {
	created := s.create(validPlayerBody)
	target := "/rest/players/" + strconv.FormatInt(created.ID, 10)

	rec := s.do(http.MethodPost, target, `{"experience":2500}`)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var updated types.Player
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &updated))
	s.Equal("Ragnar", updated.Name)
	s.Equal(2500, updated.Experience)
	s.Equal(types.CurrentLevel(2500), updated.Level)
	s.Equal(types.ExperienceToNextLevel(updated.Level, 2500), updated.UntilNextLevel)
}

func (s *PlayerHandlerSuite) TestUpdateEmptyBodyKeepsPlayer() {
	created := s.create(validPlayerBody)

	rec := s.do(http.MethodPost, "/rest/players/"+strconv.FormatInt(created.ID, 10), `{}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	var updated types.Player
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &updated))
	s.Equal(created, updated)
}

func (s *PlayerHandlerSuite) TestUpdateErrors() {
	created := s.create(validPlayerBody)
	target := "/rest/players/" + strconv.FormatInt(created.ID, 10)

	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, target, `{"title":"`+strings.Repeat("x", 31)+`"}`).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/rest/players/x", `{"name":"Bob"}`).Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodPost, "/rest/players/999", `{"name":"Bob"}`).Code)
}

func (s *PlayerHandlerSuite) TestDelete() {
	created := s.create(validPlayerBody)
	target := "/rest/players/" + strconv.FormatInt(created.ID, 10)

	rec := s.do(http.MethodDelete, target, "")
	s.Equal(http.StatusOK, rec.Code)
	s.Empty(rec.Body.String())

	s.Equal(http.StatusNotFound, s.do(http.MethodGet, target, "").Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, target, "").Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodDelete, "/rest/players/0", "").Code)
}

func (s *PlayerHandlerSuite) seedRoster() {
	s.create(`{"name":"Aria","title":"Blade","race":"ELF","profession":"ROGUE","birthday":1100000000000,"experience":300}`)
	s.create(`{"name":"Borin","title":"Hammer","race":"DWARF","profession":"WARRIOR","birthday":1000000000000,"experience":90000,"banned":true}`)
	s.create(`{"name":"Cyra","title":"Flame","race":"ELF","profession":"SORCERER","birthday":1200000000000,"experience":5000}`)
	s.create(`{"name":"Dorn","title":"Shield","race":"HUMAN","profession":"PALADIN","birthday":1300000000000,"experience":0}`)
	s.create(`{"name":"Eowyn","title":"Blade of Rohan","race":"HUMAN","profession":"WARRIOR","birthday":1400000000000,"experience":700000}`)
}

func names(players []types.Player) []string {
	out := make([]string, 0, len(players))
	for _, p := range players {
		out = append(out, p.Name)
	}
	return out
}

func (s *PlayerHandlerSuite) TestListDefaultsToFirstPageOfThreeByID() {
	s.seedRoster()

	s.Equal([]string{"Aria", "Borin", "Cyra"}, names(s.list("/rest/players")))
	s.Equal([]string{"Dorn", "Eowyn"}, names(s.list("/rest/players?pageNumber=1")))
}

func (s *PlayerHandlerSuite) TestListSortsAndPages() {
	s.seedRoster()

	s.Equal([]string{"Dorn", "Aria"}, names(s.list("/rest/players?order=EXPERIENCE&pageSize=2")))
	s.Equal([]string{"Borin", "Aria", "Cyra", "Dorn", "Eowyn"}, names(s.list("/rest/players?order=BIRTHDAY&pageSize=10")))
	s.Equal([]string{"Eowyn"}, names(s.list("/rest/players?order=NAME&pageSize=2&pageNumber=2")))
}

func (s *PlayerHandlerSuite) TestListFilters() {
	s.seedRoster()

	s.Equal([]string{"Aria", "Cyra"}, names(s.list("/rest/players?race=ELF")))
	s.Equal([]string{"Aria", "Eowyn"}, names(s.list("/rest/players?title=Blade")))
	s.Equal([]string{"Borin"}, names(s.list("/rest/players?banned=true")))
	s.Equal([]string{"Cyra", "Dorn"}, names(s.list("/rest/players?after=1200000000000&before=1400000000000")))
	s.Equal([]string{"Borin", "Eowyn"}, names(s.list("/rest/players?minLevel=10")))
	s.Equal([]string{"Aria", "Cyra"}, names(s.list("/rest/players?minExperience=1&maxExperience=5000")))
	s.Equal([]string{"Eowyn"}, names(s.list("/rest/players?profession=WARRIOR&banned=false")))
	s.Empty(s.list("/rest/players?name=zzz"))
}

func (s *PlayerHandlerSuite) TestListRejectsBadParams() {
	for _, query := range []string{
		"race=GNOME",
		"profession=BARD",
		"banned=maybe",
		"after=yesterday",
		"minLevel=one",
		"pageSize=x",
		"pageSize=0",
		"pageSize=35184372088832",
		"pageNumber=4611686018427387904&pageSize=4",
		"pageNumber=-1",
		"order=HEIGHT",
	} {
		rec := s.do(http.MethodGet, "/rest/players?"+query, "")
		s.Equal(http.StatusBadRequest, rec.Code, query)
	}
}

func (s *PlayerHandlerSuite) TestCount() {
	s.seedRoster()

	rec := s.do(http.MethodGet, "/rest/players/count", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("5", strings.TrimSpace(rec.Body.String()))

	rec = s.do(http.MethodGet, "/rest/players/count?race=HUMAN&pageSize=1", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal("2", strings.TrimSpace(rec.Body.String()))

	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/rest/players/count?maxExperience=lots", "").Code)
}
