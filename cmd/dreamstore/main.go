// Command dreamstore inspects and maintains the Dream Stream on-device store.
//
// Usage:
//
//	dreamstore [-config file] <command> [args]
//
// Commands:
//
//	show                                  print every store as JSON
//	reset                                 wipe all stored data
//	reset-preferences                     restore the default settings
//	clear-history                         empty the listening log
//	clear-cache                           empty the audio cache index
//	import-manifest <file>                index audio listed in a generator manifest.json
//	scan <dir>                            index "<id>_<mode>.<ext>" files under dir
//	watch <dir>                           like scan, then keep indexing new files until interrupted
//	cache-file <id> <mode> <path> <secs>  index one local audio file
//	version                               print version
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/tejashwikalptaru/dreamstream/internal/app"
	"github.com/tejashwikalptaru/dreamstream/internal/config"
	"github.com/tejashwikalptaru/dreamstream/internal/domain"
)

var errUsage = errors.New("usage: dreamstore [-config file] <show|reset|reset-preferences|clear-history|clear-cache|import-manifest|scan|watch|cache-file|version> [args]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("dreamstore", flag.ContinueOnError)
	configFile := fs.String("config", "", "config file (default: search ~/.config/dreamstream and .)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errUsage
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	if cmd == "version" {
		fmt.Fprintln(stdout, app.GetVersionInfo().FullString())
		return nil
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Storage.Backend == config.BackendFyne {
		return fmt.Errorf("the fyne backend lives inside the app; point dreamstore at a bolt, badger or sqlite store")
	}

	application, err := app.NewApplication(cfg)
	if err != nil {
		return err
	}
	defer application.Shutdown()

	switch cmd {
	case "show":
		return writeJSON(stdout, application.Snapshot(ctx))
	case "reset":
		return application.Reset(ctx)
	case "reset-preferences":
		return application.Preferences().Reset(ctx)
	case "clear-history":
		return application.History().Clear(ctx)
	case "clear-cache":
		return application.AudioCache().Clear(ctx)
	case "import-manifest":
		if len(rest) != 1 {
			return errUsage
		}
		f, err := os.Open(rest[0])
		if err != nil {
			return err
		}
		defer f.Close()
		n, err := application.AudioCache().ImportManifest(ctx, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "indexed %d entries\n", n)
		return nil
	case "scan":
		if len(rest) != 1 {
			return errUsage
		}
		report, err := application.Library().ScanFolder(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "indexed %d entries, skipped %d files\n", report.Indexed, len(report.Skipped))
		return nil
	case "watch":
		if len(rest) != 1 {
			return errUsage
		}
		fmt.Fprintf(stdout, "watching %s, press Ctrl-C to stop\n", rest[0])
		return application.WatchAudio(ctx, rest[0])
	case "cache-file":
		if len(rest) != 4 {
			return errUsage
		}
		secs, err := strconv.ParseFloat(rest[3], 64)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", rest[3], err)
		}
		e, err := application.AudioCache().CacheFile(ctx, rest[0], domain.PlaybackMode(rest[1]), rest[2], secs)
		if err != nil {
			return err
		}
		return writeJSON(stdout, e)
	default:
		return errUsage
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
