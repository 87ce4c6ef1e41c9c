package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/huahuadeliaoliao/RoseSong/internal/bilibili"
	"github.com/huahuadeliaoliao/RoseSong/internal/config"
	"github.com/huahuadeliaoliao/RoseSong/internal/control"
	"github.com/huahuadeliaoliao/RoseSong/internal/history"
	"github.com/huahuadeliaoliao/RoseSong/internal/logging"
	"github.com/huahuadeliaoliao/RoseSong/internal/pipeline"
	"github.com/huahuadeliaoliao/RoseSong/internal/player"
	"github.com/huahuadeliaoliao/RoseSong/internal/playlist"
	"github.com/huahuadeliaoliao/RoseSong/internal/resolver"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	logging.Setup(cfg)

	// An empty playlist parks the daemon behind a minimal control surface
	// until the editing client fills the file in; if it is still empty on
	// wake-up the daemon exits normally.
	if empty, err := playlistEmpty(cfg.PlaylistPath); err != nil {
		log.Fatal(err)
	} else if empty {
		slog.Warn("current playlist is empty, waiting for tracks")
		waitForTracks()
		if empty, err := playlistEmpty(cfg.PlaylistPath); err != nil || empty {
			os.Exit(0)
		}
	}

	store := playlist.NewStore()
	if err := store.Load(cfg.PlaylistPath); err != nil {
		log.Fatal(err)
	}

	var recorder player.Recorder
	if db, err := history.OpenDB(cfg); err != nil {
		slog.Error("open history database, continuing without history", "err", err)
	} else {
		defer db.Close()
		recorder = history.NewRepo(db)
	}

	res := resolver.New(bilibili.NewClient())
	pipe, err := pipeline.NewPipeline(res)
	if err != nil {
		log.Fatal(err)
	}
	defer pipe.Close()

	pl := player.New(store, pipe, recorder, cfg.PlaylistPath, playlist.Loop)

	srv, err := control.NewServer(pl)
	if err != nil {
		log.Fatal(err)
	}
	defer srv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go pl.Run(ctx)

	select {
	case <-ctx.Done():
	case <-pl.Done():
	}
	slog.Info("rosesong stopped")
}

func playlistEmpty(path string) (bool, error) {
	tracks, err := playlist.ParseFile(path)
	if err != nil {
		return false, err
	}
	return len(tracks) == 0, nil
}

// waitForTracks serves the temporary control surface until the playlist
// changes, a Stop arrives, or the process is signalled.
func waitForTracks() {
	srv, err := control.NewTempServer()
	if err != nil {
		log.Fatal(err)
	}
	defer srv.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	select {
	case <-srv.Woken():
	case <-ctx.Done():
	}
}
