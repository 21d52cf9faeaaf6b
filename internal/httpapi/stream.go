package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"mime"
	"net/http"
	"strings"

	"musicalog/internal/store"
)

const contentTypeNDJSON = "application/x-ndjson"

// albumEncoder writes albums one at a time, either as the elements of a JSON
// array or as newline-delimited JSON.
type albumEncoder struct {
	w       http.ResponseWriter
	flusher http.Flusher
	ndjson  bool
	count   int
}

func newAlbumEncoder(w http.ResponseWriter, ndjson bool) *albumEncoder {
	flusher, _ := w.(http.Flusher)
	return &albumEncoder{w: w, flusher: flusher, ndjson: ndjson}
}

func (e *albumEncoder) begin() error {
	if e.ndjson {
		e.w.Header().Set("Content-Type", contentTypeNDJSON)
		e.w.WriteHeader(http.StatusOK)
		return nil
	}
	e.w.Header().Set("Content-Type", "application/json")
	e.w.WriteHeader(http.StatusOK)
	_, err := e.w.Write([]byte("["))
	return err
}

func (e *albumEncoder) encode(album store.Album) error {
	data, err := json.Marshal(album)
	if err != nil {
		return err
	}

	switch {
	case e.ndjson:
		data = append(data, '\n')
	case e.count > 0:
		data = append([]byte{','}, data...)
	}
	if _, err := e.w.Write(data); err != nil {
		return err
	}
	e.count++

	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}

func (e *albumEncoder) end() error {
	if e.ndjson {
		return nil
	}
	_, err := e.w.Write([]byte("]"))
	return err
}

// streamAlbums forwards albums to the client as the store produces them.
// A failure before the first album becomes a 500; a failure after the status
// line is sent aborts the response so the client sees a truncated body.
func (s *Server) streamAlbums(w http.ResponseWriter, r *http.Request, albums iter.Seq2[store.Album, error]) {
	log := s.logger.WithContext(r.Context())
	enc := newAlbumEncoder(w, wantsNDJSON(r))
	started := false

	for album, err := range albums {
		if err != nil {
			if !started {
				log.Error().Err(err).Msg("list albums failed")
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
				return
			}
			if errors.Is(err, context.Canceled) {
				log.Debug().Err(err).Int("sent", enc.count).Msg("client went away")
			} else {
				log.Error().Err(err).Int("sent", enc.count).Msg("album stream aborted")
			}
			panic(http.ErrAbortHandler)
		}

		if !started {
			started = true
			if err := enc.begin(); err != nil {
				log.Debug().Err(err).Msg("client went away")
				return
			}
		}
		if err := enc.encode(album); err != nil {
			log.Debug().Err(err).Int("sent", enc.count).Msg("client went away")
			return
		}
	}

	if !started {
		if err := enc.begin(); err != nil {
			return
		}
	}
	if err := enc.end(); err != nil {
		log.Debug().Err(err).Msg("client went away")
	}
}

func wantsNDJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mediaType == contentTypeNDJSON {
			return true
		}
	}
	return false
}
