// Command rsg drives a running rosesong daemon over its control surface
// and edits the shared playlist file.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/huahuadeliaoliao/RoseSong/internal/config"
	"github.com/huahuadeliaoliao/RoseSong/internal/control"
	"github.com/huahuadeliaoliao/RoseSong/internal/playlist"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "rsg",
	Short:         "Control the rosesong player",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	playCmd.Flags().StringVarP(&playBvid, "bvid", "b", "", "bvid to jump to")

	modeCmd.Flags().BoolVarP(&modeLoop, "loop", "l", false, "sequential playback with wraparound")
	modeCmd.Flags().BoolVarP(&modeShuffle, "shuffle", "s", false, "random track selection")
	modeCmd.Flags().BoolVarP(&modeRepeat, "repeat", "r", false, "repeat the current track")

	addCmd.Flags().StringVarP(&addFid, "fid", "f", "", "favorites collection id to import")
	addCmd.Flags().StringVarP(&addBvid, "bvid", "b", "", "single bvid to import")

	deleteCmd.Flags().StringVarP(&delBvid, "bvid", "b", "", "delete by bvid")
	deleteCmd.Flags().StringVarP(&delCid, "cid", "c", "", "delete by cid")
	deleteCmd.Flags().StringVarP(&delOwner, "owner", "o", "", "delete by owner substring")
	deleteCmd.Flags().BoolVarP(&delAll, "all", "a", false, "delete every track")

	findCmd.Flags().StringVarP(&findBvid, "bvid", "b", "", "find by bvid")
	findCmd.Flags().StringVarP(&findCid, "cid", "c", "", "find by cid")
	findCmd.Flags().StringVarP(&findTitle, "title", "t", "", "find by title substring")
	findCmd.Flags().StringVarP(&findOwner, "owner", "o", "", "find by owner substring")

	historyCmd.Flags().IntVarP(&historyLimit, "number", "n", 10, "number of entries to show")

	rootCmd.AddCommand(playCmd, pauseCmd, nextCmd, previousCmd, stopCmd, modeCmd,
		addCmd, deleteCmd, findCmd, listCmd, historyCmd, startCmd)
}

var playBvid string

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Resume playback, or jump to a bvid with -b",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlayableDaemon(func(c *control.Client) error {
			if playBvid != "" {
				if err := c.PlayBvid(playBvid); err != nil {
					return err
				}
				fmt.Println("playing", playBvid)
				return nil
			}
			if err := c.Play(); err != nil {
				return err
			}
			fmt.Println("playback resumed")
			return nil
		})
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause playback",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlayableDaemon(func(c *control.Client) error {
			if err := c.Pause(); err != nil {
				return err
			}
			fmt.Println("playback paused")
			return nil
		})
	},
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Play the next track",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlayableDaemon(func(c *control.Client) error {
			if err := c.Next(); err != nil {
				return err
			}
			fmt.Println("playing next track")
			return nil
		})
	},
}

var previousCmd = &cobra.Command{
	Use:   "previous",
	Short: "Play the previous track",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPlayableDaemon(func(c *control.Client) error {
			if err := c.Previous(); err != nil {
				return err
			}
			fmt.Println("playing previous track")
			return nil
		})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the rosesong daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := control.Dial()
		if err != nil {
			return err
		}
		defer c.Close()
		if !daemonRunning(c) {
			return errors.New("rosesong is not running")
		}
		if err := c.Stop(); err != nil {
			return err
		}
		fmt.Println("rosesong stopped")
		return nil
	},
}

var (
	modeLoop    bool
	modeShuffle bool
	modeRepeat  bool
)

var modeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Set the play mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		var mode string
		switch {
		case modeLoop:
			mode = "Loop"
		case modeShuffle:
			mode = "Shuffle"
		case modeRepeat:
			mode = "Repeat"
		default:
			return errors.New("pick one of --loop, --shuffle, --repeat")
		}
		return withPlayableDaemon(func(c *control.Client) error {
			if err := c.SetMode(mode); err != nil {
				return err
			}
			fmt.Println("play mode set to", mode)
			return nil
		})
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Launch the rosesong daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		if c, err := control.Dial(); err == nil {
			running := daemonRunning(c)
			c.Close()
			if running {
				fmt.Println("rosesong is already running")
				return nil
			}
		}

		exe, err := os.Executable()
		if err != nil {
			return err
		}
		daemon := filepath.Join(filepath.Dir(exe), "rosesong")
		if _, err := os.Stat(daemon); err != nil {
			return fmt.Errorf("rosesong executable not found next to rsg: %w", err)
		}

		child := exec.Command(daemon)
		if err := child.Start(); err != nil {
			return fmt.Errorf("start rosesong: %w", err)
		}
		fmt.Println("rosesong started, pid", child.Process.Pid)
		return child.Process.Release()
	},
}

func daemonRunning(c *control.Client) bool {
	return c.TestConnection() == nil
}

// withPlayableDaemon runs f against a daemon that is up and has a
// non-empty playlist, the precondition for every playback command.
func withPlayableDaemon(f func(*control.Client) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	c, err := control.Dial()
	if err != nil {
		return err
	}
	defer c.Close()

	if !daemonRunning(c) {
		return errors.New("rosesong is not running")
	}
	tracks, err := playlist.ParseFile(cfg.PlaylistPath)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return errors.New("the playlist is empty, add tracks first")
	}
	return f(c)
}
