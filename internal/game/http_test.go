package game

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type memStore struct {
	games map[string]*Definition
}

func newMemStore() *memStore {
	return &memStore{games: make(map[string]*Definition)}
}

func (s *memStore) Insert(ctx context.Context, def *Definition) error {
	if _, ok := s.games[def.ID]; ok {
		return ErrGameAlreadyPublished
	}
	s.games[def.ID] = def
	return nil
}

func (s *memStore) Get(ctx context.Context, gameID string) (*Definition, error) {
	def, ok := s.games[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	return def, nil
}

func newTestHandlers(store *memStore) *HTTPHandlers {
	registry := NewRegistry(store, nil, zerolog.Nop())
	return NewHTTPHandlers(store, registry, zerolog.Nop())
}

func publishRequest(t *testing.T, def *Definition) *http.Request {
	t.Helper()
	body, err := json.Marshal(def)
	assert.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, "/v1/games", bytes.NewReader(body))
}

func TestPublish_OK(t *testing.T) {
	store := newMemStore()
	h := newTestHandlers(store)

	def := validDefinition()
	rec := httptest.NewRecorder()
	h.Publish(rec, publishRequest(t, def))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, store.games, def.ID)
}

func TestPublish_DanglingTargetRejectsWholeGame(t *testing.T) {
	store := newMemStore()
	h := newTestHandlers(store)

	def := validDefinition()
	def.Points[0].Logic.OnCorrect = append(def.Points[0].Logic.OnCorrect, Action{
		Type:     ActionUnlock,
		TargetID: "ghost",
	})

	rec := httptest.NewRecorder()
	h.Publish(rec, publishRequest(t, def))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Error   string                 `json:"error"`
		Details map[string]interface{} `json:"details"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_game", resp.Error)
	assert.Equal(t, def.Points[0].ID, resp.Details["point_id"])
	assert.NotContains(t, store.games, def.ID)
}

func TestPublish_DuplicateConflicts(t *testing.T) {
	store := newMemStore()
	h := newTestHandlers(store)

	def := validDefinition()
	rec := httptest.NewRecorder()
	h.Publish(rec, publishRequest(t, def))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.Publish(rec, publishRequest(t, def))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPublish_MissingID(t *testing.T) {
	h := newTestHandlers(newMemStore())

	def := validDefinition()
	def.ID = ""
	rec := httptest.NewRecorder()
	h.Publish(rec, publishRequest(t, def))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGet_RoundTrip(t *testing.T) {
	store := newMemStore()
	h := newTestHandlers(store)

	def := validDefinition()
	rec := httptest.NewRecorder()
	h.Publish(rec, publishRequest(t, def))
	assert.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/games/"+def.ID, nil)
	req.SetPathValue("id", def.ID)
	rec = httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var got Definition
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, def.ID, got.ID)
	assert.Len(t, got.Points, len(def.Points))
}

func TestGet_NotFound(t *testing.T) {
	h := newTestHandlers(newMemStore())

	req := httptest.NewRequest(http.MethodGet, "/v1/games/missing", nil)
	req.SetPathValue("id", "missing")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
