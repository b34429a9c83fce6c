package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/liuran001/YandexMusic-Go/bot/app"
	"github.com/liuran001/YandexMusic-Go/bot/platform"
	_ "github.com/liuran001/YandexMusic-Go/plugins/yandex"
	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"
	"golang.org/x/sync/errgroup"
)

var (
	versionName = ""
	commitSHA   = ""
	buildTime   = ""
)

var (
	configPath      string
	envFile         string
	logLevel        string
	metricsTextfile string
	platformName    string
	jsonOutput      bool

	application *app.App
)

var rootCmd = &cobra.Command{
	Use:           "yamusic",
	Short:         "Yandex Music connector command line",
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       versionName,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := gotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		a, err := app.New(app.Options{ConfigPath: configPath, LogLevel: logLevel}, buildInfo())
		if err != nil {
			return err
		}
		application = a
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if application == nil {
			return nil
		}
		return application.WriteMetrics(metricsTextfile)
	},
}

func buildInfo() app.BuildInfo {
	return app.BuildInfo{
		RuntimeVer: runtime.Version(),
		BinVersion: versionName,
		CommitSHA:  commitSHA,
		BuildTime:  buildTime,
		BuildArch:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "config file (ini, yaml, toml or json)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	flags.StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVar(&metricsTextfile, "metrics-textfile", "", "write prometheus metrics to this file on exit")
	flags.StringVarP(&platformName, "platform", "p", "yandex", "platform name or alias")
	flags.BoolVar(&jsonOutput, "json", false, "print results as JSON")

	rootCmd.AddCommand(searchCmd(), typeCmd(), resolveCmd(), accountCmd(), streamCmd(), selftestCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if application != nil {
		if shutdownErr := application.Shutdown(); err == nil {
			err = shutdownErr
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func artistNames(artists []platform.Artist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

func searchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search tracks, albums and artists",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				limit = application.Config.GetInt("SearchLimit")
			}
			res, err := application.PlatformManager.Search(cmd.Context(), platformName, strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, res)
			}
			for _, t := range res.Tracks {
				fmt.Fprintf(out, "track\t%s - %s\t%s\n", t.Title, artistNames(t.Artists), t.URL)
			}
			for _, a := range res.Albums {
				fmt.Fprintf(out, "album\t%s - %s\t%s\n", a.Title, artistNames(a.Artists), a.URL)
			}
			for _, a := range res.Artists {
				fmt.Fprintf(out, "artist\t%s\t%s\n", a.Name, a.URL)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "page size (defaults to SearchLimit)")
	return cmd
}

func typeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "type <url>",
		Short: "Classify a service URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := application.PlatformManager.GetTypeFromURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), typ)
			return nil
		},
	}
}

type resolved struct {
	URL    string                   `json:"url"`
	Result *platform.GetByURLResult `json:"result,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

func resolveCmd() *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "resolve <url>...",
		Short: "Fetch the entities behind one or more service URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency <= 0 {
				concurrency = application.Config.GetInt("ResolveConcurrency")
			}
			results := make([]resolved, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(concurrency, 1))
			for i, url := range args {
				g.Go(func() error {
					res, err := application.PlatformManager.GetByURL(ctx, url)
					results[i] = resolved{URL: url, Result: res}
					if err != nil {
						results[i].Error = err.Error()
						application.Logger.Warn("resolve failed", "url", url, "error", err)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, results)
			}
			failed := 0
			for _, r := range results {
				if r.Error != "" {
					failed++
					fmt.Fprintf(out, "%s\terror\t%s\n", r.URL, r.Error)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\t%s\t%d tracks\n", r.URL, r.Result.Type, r.Result.Title(), len(r.Result.Tracks)+len(r.Result.Episodes))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d urls failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel resolutions (defaults to ResolveConcurrency)")
	return cmd
}

func accountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show the account behind the configured token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			streamer, err := application.PlatformManager.GetStreamer(platformName)
			if err != nil {
				return err
			}
			account := streamer.GetAccountInfo(cmd.Context())
			out := cmd.OutOrStdout()
			if jsonOutput {
				return printJSON(out, account)
			}
			if !account.Valid {
				fmt.Fprintln(out, "account: invalid or unreachable")
				return nil
			}
			fmt.Fprintf(out, "country: %s\npremium: %t\nexplicit: %t\n", account.Country, account.Premium, account.Explicit)
			return nil
		},
	}
}

func streamCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "stream <url>",
		Short: "Download and tag a track or episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := application.PlatformManager.GetByURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if res.GetStream == nil {
				return fmt.Errorf("%s is a %s, only tracks and episodes can be streamed", args[0], res.Type)
			}
			if output == "" {
				output = sanitizeFileName(res.Title())
			}
			progress := func(written, total int64) {
				if total > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "\r%s: %d/%d bytes", res.Title(), written, total)
				} else {
					fmt.Fprintf(cmd.ErrOrStderr(), "\r%s: %d bytes", res.Title(), written)
				}
			}
			saved, err := application.SaveTrack(cmd.Context(), res, output, progress)
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d bytes\n", saved.Path, saved.MimeType, saved.Written)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file; the extension is derived from the stream when omitted")
	return cmd
}

func selftestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Classify the known URLs of every loaded connector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := application.SelfTest(cmd.Context())
			out := cmd.OutOrStdout()
			if jsonOutput {
				if err := printJSON(out, results); err != nil {
					return err
				}
			}
			failed := 0
			for _, r := range results {
				status := "ok"
				if !r.OK() {
					failed++
					status = "FAIL"
				}
				if jsonOutput {
					continue
				}
				if r.Error != "" {
					fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", status, r.Platform, r.URL, r.Error)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\t%s\twant %s, got %s\n", status, r.Platform, r.URL, r.Want, r.Got)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(results))
			}
			return nil
		},
	}
}

func sanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "track"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
