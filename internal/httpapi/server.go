package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"

	"github.com/gorilla/mux"

	"musicalog/internal/app/albums"
	"musicalog/internal/logging"
	"musicalog/internal/store"
)

const maxAlbumBodyBytes = 10 << 20

// AlbumService exposes the catalog workflows served over HTTP.
type AlbumService interface {
	ListAll(ctx context.Context) iter.Seq2[store.Album, error]
	ListByTitle(ctx context.Context, title string) iter.Seq2[store.Album, error]
	ListByArtist(ctx context.Context, artistName string) iter.Seq2[store.Album, error]
	Get(ctx context.Context, id string) (store.Album, error)
	Create(ctx context.Context, album store.Album) (store.Album, error)
	Update(ctx context.Context, album store.Album) (store.Album, error)
	Remove(ctx context.Context, id string) error
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	albums AlbumService
	logger *logging.Logger
}

// New configures a Server around the album service.
func New(albums AlbumService, logger *logging.Logger) *Server {
	return &Server{albums: albums, logger: logger}
}

// Routes exposes the HTTP handlers for the album catalog.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/album").Subrouter()
	// /all routes are registered ahead of /{id} so they are never read as ids.
	api.HandleFunc("/all", s.handleListAll).Methods(http.MethodGet)
	api.HandleFunc("/all/title", s.handleListByTitle).Methods(http.MethodGet)
	api.HandleFunc("/all/artist", s.handleListByArtist).Methods(http.MethodGet)
	api.HandleFunc("/save", s.handleCreate).Methods(http.MethodPost)
	api.HandleFunc("/update", s.handleUpdate).Methods(http.MethodPut)
	api.HandleFunc("/{id}", s.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/{id}", s.handleDelete).Methods(http.MethodDelete)

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleListAll(w http.ResponseWriter, r *http.Request) {
	s.streamAlbums(w, r, s.albums.ListAll(r.Context()))
}

func (s *Server) handleListByTitle(w http.ResponseWriter, r *http.Request) {
	title, ok := requiredQuery(w, r, "title")
	if !ok {
		return
	}
	s.streamAlbums(w, r, s.albums.ListByTitle(r.Context(), title))
}

func (s *Server) handleListByArtist(w http.ResponseWriter, r *http.Request) {
	artistName, ok := requiredQuery(w, r, "artistName")
	if !ok {
		return
	}
	s.streamAlbums(w, r, s.albums.ListByArtist(r.Context(), artistName))
}

// requiredQuery rejects requests that omit the parameter. An empty value is
// allowed and matches every album.
func requiredQuery(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	query := r.URL.Query()
	if !query.Has(name) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing query parameter: " + name})
		return "", false
	}
	return query.Get(name), true
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	album, err := s.albums.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, album)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	album, ok := s.decodeAlbum(w, r)
	if !ok {
		return
	}

	created, err := s.albums.Create(r.Context(), album)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	album, ok := s.decodeAlbum(w, r)
	if !ok {
		return
	}

	updated, err := s.albums.Update(r.Context(), album)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.albums.Remove(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) decodeAlbum(w http.ResponseWriter, r *http.Request) (store.Album, bool) {
	var album store.Album
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAlbumBodyBytes)).Decode(&album); err != nil {
		s.logger.WithContext(r.Context()).Debug().Err(err).Msg("rejecting album payload")
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return store.Album{}, false
	}
	return album, true
}

// writeError maps service outcomes to status codes. The two catalog failure
// kinds carry no body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := s.logger.WithContext(r.Context())

	switch {
	case errors.Is(err, albums.ErrNotFound):
		log.Debug().Err(err).Msg("album not found")
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, albums.ErrService):
		log.Error().Err(err).Msg("album write had no effect")
		w.WriteHeader(http.StatusInternalServerError)
	default:
		log.Error().Err(err).Msg("album request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
