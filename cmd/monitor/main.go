// ====================================
// File: cmd/monitor/main.go
// ====================================
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-monitor/internal/bot"
	"github.com/rovshanmuradov/lp-monitor/internal/export"
)

const usage = `Usage: monitor <command> [flags]

Commands:
  run      monitor every stored position until interrupted
  add      start tracking a position (--id, --chain)
  mute     stop notifications for a position (--id)
  unmute   resume notifications for a position (--id)
  remove   stop tracking a position and drop its history (--id)
  list     print the tracked positions
  export   write the snapshot history of a position (--id, --format, --out)
`

func main() {
	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "--help" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	fs := pflag.NewFlagSet(command, pflag.ExitOnError)
	var f cliFlags
	fs.StringVarP(&f.configPath, "config", "c", "configs/config.yaml", "path to the configuration file")
	fs.Int64Var(&f.positionID, "id", 0, "position (NFT token) id")
	fs.Int64Var(&f.chainID, "chain", 0, "chain id of the position")
	fs.StringSliceVar(&f.watch, "watch", nil, "run without a database, monitoring <id>@<chain> positions")
	fs.StringVar(&f.format, "format", "csv", "export format: csv or json")
	fs.StringVar(&f.outDir, "out", "exports", "export output directory")
	fs.IntVar(&f.limit, "limit", 1000, "maximum number of snapshots to export")
	fs.BoolVar(&f.outOfRange, "out-of-range", false, "export only snapshots outside the price range")
	_ = fs.Parse(os.Args[2:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dispatch(ctx, command, f); err != nil {
		fmt.Fprintf(os.Stderr, "monitor %s: %v\n", command, err)
		if errors.Is(err, bot.ErrNoPositions) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

type cliFlags struct {
	configPath string
	positionID int64
	chainID    int64
	watch      []string
	format     string
	outDir     string
	limit      int
	outOfRange bool
}

func dispatch(ctx context.Context, command string, f cliFlags) error {
	positionID := f.positionID
	if command != "run" && command != "list" && positionID <= 0 {
		return errors.New("--id is required")
	}

	a, err := newApp(ctx, f.configPath, command == "run" && len(f.watch) > 0)
	if err != nil {
		return err
	}
	defer a.close()
	defer a.log.TrackPerformance(command)()

	switch command {
	case "run":
		return a.run(ctx, f.watch)
	case "add":
		if f.chainID <= 0 {
			return errors.New("--chain is required")
		}
		pos, err := a.positions.Add(ctx, positionID, f.chainID)
		if err != nil {
			return err
		}
		a.log.WithPosition(pos.ID, pos.ChainID).Info("✅ Position added",
			zap.String("pair", pos.Token0Symbol+"/"+pos.Token1Symbol))
		return nil
	case "mute":
		return a.positions.SetMuted(ctx, positionID, true)
	case "unmute":
		return a.positions.SetMuted(ctx, positionID, false)
	case "remove":
		return a.positions.Remove(ctx, positionID)
	case "list":
		return a.list(ctx, os.Stdout)
	case "export":
		path, err := a.exportHistory(ctx, positionID, f.limit, export.ExportOptions{
			Format:         export.ExportFormat(f.format),
			OnlyOutOfRange: f.outOfRange,
			OutputDir:      f.outDir,
		})
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n\n%s", command, usage)
	}
}
