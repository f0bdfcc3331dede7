// Command wander runs a swarm of bots against a sharedspace server. Each bot
// joins over the websocket, walks randomly inside the arena and sends its
// position at most every 100ms, like the browser client does.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/sharedspace/game/world"
	"github.com/wricardo/mcp-training/sharedspace/logging"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "wander",
		Usage: "connect bots that wander around a sharedspace server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://localhost:8080/ws", Usage: "websocket endpoint"},
			&cli.IntFlag{Name: "bots", Aliases: []string{"n"}, Value: 5, Usage: "number of bots"},
			&cli.DurationFlag{Name: "interval", Value: MinSendInterval, Usage: "time between updates (at least 100ms)"},
			&cli.FloatFlag{Name: "speed", Value: 3, Usage: "units per second"},
			&cli.DurationFlag{Name: "duration", Usage: "stop after this long (0 runs until interrupted)"},
			&cli.StringFlag{Name: "log-level", Value: "info"},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	log, err := logging.New(logging.Options{Level: cmd.String("log-level")})
	if err != nil {
		return err
	}
	defer log.Sync()

	n := int(cmd.Int("bots"))
	if n <= 0 {
		return fmt.Errorf("bots must be positive, got %d", n)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := cmd.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	opts := BotOptions{
		URL:      cmd.String("url"),
		Interval: cmd.Duration("interval"),
		Speed:    cmd.Float("speed"),
		Arena:    world.DefaultArena(),
	}

	bots := Swarm(ctx, n, opts, uint64(time.Now().UnixNano()), log)

	var sent, received uint64
	for _, b := range bots {
		sent += b.Sent()
		received += b.Received()
	}
	log.Info("swarm finished", zap.Int("bots", len(bots)), zap.Uint64("sent", sent), zap.Uint64("received", received))
	return nil
}

// Swarm runs n bots until ctx is done and returns them for inspection.
func Swarm(ctx context.Context, n int, opts BotOptions, seed uint64, log *zap.Logger) []*Bot {
	log = logging.OrNop(log)
	bots := make([]*Bot, n)

	var wg sync.WaitGroup
	for i := range bots {
		bots[i] = NewBot(opts, seed+uint64(i), log.Named(fmt.Sprintf("bot%d", i)))
		wg.Add(1)
		go func(b *Bot) {
			defer wg.Done()
			if err := b.Run(ctx); err != nil {
				log.Warn("bot stopped", zap.String("id", b.ID()), zap.Error(err))
			}
		}(bots[i])
	}
	wg.Wait()
	return bots
}
