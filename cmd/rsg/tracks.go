package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/huahuadeliaoliao/RoseSong/internal/bilibili"
	"github.com/huahuadeliaoliao/RoseSong/internal/config"
	"github.com/huahuadeliaoliao/RoseSong/internal/control"
	"github.com/huahuadeliaoliao/RoseSong/internal/history"
	"github.com/huahuadeliaoliao/RoseSong/internal/playlist"
)

var (
	addFid  string
	addBvid string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Import a favorites collection (-f) or a single bvid (-b)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addFid == "" && addBvid == "" {
			return errors.New("provide a favorites id (-f) or a bvid (-b)")
		}
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		tracks, err := fetchTracks(cmd.Context(), addFid, addBvid)
		if err != nil {
			return err
		}

		existing, err := playlist.ParseFile(cfg.PlaylistPath)
		if err != nil {
			return err
		}
		merged, added := mergeTracks(existing, tracks)
		if err := playlist.WriteFile(cfg.PlaylistPath, merged); err != nil {
			return err
		}
		fmt.Printf("imported %d new track(s), playlist now holds %d\n", added, len(merged))

		notifyChange(len(merged) == 0)
		return nil
	},
}

// fetchTracks resolves either every bvid in a favorites collection or one
// explicit bvid to full track records.
func fetchTracks(ctx context.Context, fid, bvid string) ([]playlist.Track, error) {
	client := bilibili.NewClient()

	var bvids []string
	if fid != "" {
		var err error
		fmt.Println("fetching favorites collection", fid)
		bvids, err = client.FetchBvidsFromFid(ctx, fid)
		if err != nil {
			return nil, err
		}
	} else {
		bvids = []string{bvid}
	}

	tracks := make([]playlist.Track, 0, len(bvids))
	for _, id := range bvids {
		data, err := client.FetchVideoData(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", id, err)
		}
		tracks = append(tracks, playlist.Track{
			Bvid:  data.Bvid,
			Cid:   strconv.FormatInt(data.Cid, 10),
			Title: data.Title,
			Owner: data.Owner.Name,
		})
	}
	return tracks, nil
}

// mergeTracks refreshes metadata of already-listed bvids and appends the
// rest, preserving playlist order. Returns the merged list and how many
// tracks are new.
func mergeTracks(existing, incoming []playlist.Track) ([]playlist.Track, int) {
	byBvid := make(map[string]playlist.Track, len(incoming))
	for _, t := range incoming {
		byBvid[t.Bvid] = t
	}

	merged := make([]playlist.Track, 0, len(existing)+len(incoming))
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		if fresh, ok := byBvid[t.Bvid]; ok {
			t = fresh
		}
		merged = append(merged, t)
		seen[t.Bvid] = true
	}

	added := 0
	for _, t := range incoming {
		if !seen[t.Bvid] {
			merged = append(merged, t)
			seen[t.Bvid] = true
			added++
		}
	}
	return merged, added
}

var (
	delBvid  string
	delCid   string
	delOwner string
	delAll   bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete tracks from the playlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		tracks, err := playlist.ParseFile(cfg.PlaylistPath)
		if err != nil {
			return err
		}

		if delAll {
			if len(tracks) == 0 {
				fmt.Println("the playlist is already empty")
				return nil
			}
			if !confirm(fmt.Sprintf("delete all %d track(s)?", len(tracks))) {
				fmt.Println("cancelled")
				return nil
			}
			if err := os.WriteFile(cfg.PlaylistPath, nil, 0o644); err != nil {
				return err
			}
			fmt.Println("playlist cleared")
			notifyChange(true)
			return nil
		}

		if delBvid == "" && delCid == "" && delOwner == "" {
			return errors.New("provide a filter (-b, -c, -o) or --all")
		}

		keep := tracks[:0:0]
		removed := 0
		for _, t := range tracks {
			if matchesDelete(t) {
				removed++
				continue
			}
			keep = append(keep, t)
		}
		if removed == 0 {
			fmt.Println("no matching tracks")
			return nil
		}
		if !confirm(fmt.Sprintf("delete %d track(s)?", removed)) {
			fmt.Println("cancelled")
			return nil
		}
		if err := playlist.WriteFile(cfg.PlaylistPath, keep); err != nil {
			return err
		}
		fmt.Printf("deleted %d track(s)\n", removed)
		notifyChange(len(keep) == 0)
		return nil
	},
}

func matchesDelete(t playlist.Track) bool {
	if delBvid != "" && t.Bvid == delBvid {
		return true
	}
	if delCid != "" && t.Cid == delCid {
		return true
	}
	if delOwner != "" && strings.Contains(t.Owner, delOwner) {
		return true
	}
	return false
}

var (
	findBvid  string
	findCid   string
	findTitle string
	findOwner string
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Search the playlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		tracks, err := playlist.ParseFile(cfg.PlaylistPath)
		if err != nil {
			return err
		}

		found := 0
		for i, t := range tracks {
			if !matchesFind(t) {
				continue
			}
			found++
			printTrack(i, t)
		}
		if found == 0 {
			fmt.Println("no matching tracks")
		}
		return nil
	},
}

func matchesFind(t playlist.Track) bool {
	if findBvid != "" && t.Bvid != findBvid {
		return false
	}
	if findCid != "" && t.Cid != findCid {
		return false
	}
	if findTitle != "" && !strings.Contains(t.Title, findTitle) {
		return false
	}
	if findOwner != "" && !strings.Contains(t.Owner, findOwner) {
		return false
	}
	return findBvid != "" || findCid != "" || findTitle != "" || findOwner != ""
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the playlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		tracks, err := playlist.ParseFile(cfg.PlaylistPath)
		if err != nil {
			return err
		}
		if len(tracks) == 0 {
			fmt.Println("the playlist is empty")
			return nil
		}
		for i, t := range tracks {
			printTrack(i, t)
		}
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently played tracks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		db, err := history.OpenDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		entries, err := history.NewRepo(db).Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no plays recorded yet")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %s  %s - %s\n",
				e.StartedAt.Local().Format("2006-01-02 15:04"), e.Bvid, e.Title, e.Owner)
		}
		return nil
	},
}

func printTrack(index int, t playlist.Track) {
	fmt.Printf("%3d  %s  cid=%s  %s - %s\n", index+1, t.Bvid, t.Cid, t.Title, t.Owner)
}

func confirm(prompt string) bool {
	fmt.Printf("%s (y/n) ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

// notifyChange tells a running daemon the playlist file changed. A daemon
// that is not running just reads the new file on its next start.
func notifyChange(nowEmpty bool) {
	c, err := control.Dial()
	if err != nil {
		return
	}
	defer c.Close()
	if !daemonRunning(c) {
		return
	}
	if nowEmpty {
		_ = c.PlaylistIsEmpty()
	} else {
		_ = c.PlaylistChange()
	}
}
