package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tvanlaerhoven/cavy-cli/internal/agent"
	"github.com/tvanlaerhoven/cavy-cli/internal/exitcodes"
)

var replayCommand = &cli.Command{
	Name:      "replay",
	Usage:     "Replay a recorded JSON-lines event file against a running coordinator",
	ArgsUsage: "<events.jsonl | ->",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "url",
			Value:   "ws://127.0.0.1:8082/",
			EnvVars: envVars("REPLAY_URL"),
			Usage:   "Websocket URL of the coordinator",
		},
		&cli.DurationFlag{
			Name:  "delay",
			Value: 0,
			Usage: "Pause between frames",
		},
		&cli.DurationFlag{
			Name:  "keep-alive",
			Value: 20 * time.Second,
			Usage: "Interval of notify events sent while replaying; 0 disables them",
		},
	},
	Action: replay,
}

func replay(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("replay needs exactly one event file (or - for stdin)", exitcodes.Fatal)
	}

	var in io.Reader = os.Stdin
	if name := c.Args().First(); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return cli.Exit(fmt.Sprintf("open events: %v", err), exitcodes.Fatal)
		}
		defer f.Close()
		in = f
	}

	logger := newLogger("info")

	client, err := agent.Dial(c.Context, c.String("url"))
	if err != nil {
		return cli.Exit(err.Error(), exitcodes.Fatal)
	}
	defer client.Close()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	if interval := c.Duration("keep-alive"); interval > 0 {
		go func() {
			if err := client.KeepAlive(ctx, interval); err != nil {
				logger.Warn("Keep-alive stopped", "err", err)
			}
		}()
	}

	sent, err := agent.Replay(ctx, client, in, c.Duration("delay"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("replay stopped after %d frames: %v", sent, err), exitcodes.Fatal)
	}
	logger.Info("Replay finished", "frames", sent)
	return nil
}
