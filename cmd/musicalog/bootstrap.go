package main

import (
	"context"
	"fmt"

	"musicalog/internal/logging"
	"musicalog/internal/store"
)

// demoAlbums fills an empty catalog for local runs.
var demoAlbums = []store.Album{
	{Title: "Music Has the Right to Children", ArtistName: "Boards of Canada", Type: store.MediaTypeVinyl, Stock: 4},
	{Title: "Mezzanine", ArtistName: "Massive Attack", Type: store.MediaTypeVinyl, Stock: 2},
	{Title: "Dummy", ArtistName: "Portishead", Type: store.MediaTypeCD, Stock: 7},
	{Title: "OK Computer", ArtistName: "Radiohead", Type: store.MediaTypeCassette, Stock: 1},
	{Title: "Carboot Soul", ArtistName: "Nightmares on Wax", Type: store.MediaTypeCD, Stock: 3},
	{Title: "Migration", ArtistName: "Bonobo", Type: store.MediaTypeDigital, Stock: 0},
	{Title: "Spaces", ArtistName: "Nils Frahm", Type: store.MediaTypeVinyl, Stock: 5},
	{Title: "Drunk", ArtistName: "Thundercat", Type: store.MediaTypeDigital, Stock: 0},
}

// bootstrapDemoData saves the demo albums unless the store already has albums.
func bootstrapDemoData(ctx context.Context, albums store.Store, logger *logging.Logger) error {
	for _, err := range albums.All(ctx) {
		if err != nil {
			return fmt.Errorf("check existing albums: %w", err)
		}
		logger.Debug("catalog already has albums; skipping demo seed")
		return nil
	}

	for _, album := range demoAlbums {
		if _, err := albums.Save(ctx, album); err != nil {
			return fmt.Errorf("insert demo album %q: %w", album.Title, err)
		}
	}
	logger.WithFields(map[string]any{"albums": len(demoAlbums)}).Info().Msg("seeded demo albums")
	return nil
}
