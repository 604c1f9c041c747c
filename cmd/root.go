package cmd

import (
	"context"
	"fmt"
	"io"
	u "net/url"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tanq16/splitfetch/internal/output"
	"github.com/tanq16/splitfetch/internal/scheduler"
	"github.com/tanq16/splitfetch/internal/utils"
)

var (
	outputDir     string
	urlListFile   string
	curlFormat    bool
	threads       int
	fragments     int
	timeout       time.Duration
	kaTimeout     time.Duration
	userAgent     string
	proxyURL      string
	proxyUsername string
	proxyPassword string
	bearerToken   string
	headers       []string
	verbose       bool
	noDisplay     bool

	display   bool
	logOutput io.Writer = os.Stderr
)

var SplitfetchVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "splitfetch [URL...]",
	Short:   "splitfetch downloads files over HTTP(S) in concurrent byte-range fragments",
	Version: SplitfetchVersion,
	Args:    cobra.ArbitraryArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && urlListFile == "" {
			output.PrintError("No URL or URL list provided")
			os.Exit(1)
		}
		if urlListFile != "" && len(args) > 0 {
			output.PrintError("Cannot specify URL arguments and --file together, choose one")
			os.Exit(1)
		}
		var entries []utils.BatchEntry
		if urlListFile != "" {
			var err error
			entries, err = utils.ReadURLList(urlListFile, curlFormat)
			if err != nil {
				output.PrintError(fmt.Sprintf("Failed to read URL list: %v", err))
				os.Exit(1)
			}
		} else {
			for _, arg := range args {
				entries = append(entries, utils.BatchEntry{URL: arg})
			}
		}
		if len(entries) == 0 {
			output.PrintError("No URLs found in the provided list")
			os.Exit(1)
		}
		execute(entries)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&urlListFile, "file", "f", "", "File containing URLs to download (one per line)")
	rootCmd.Flags().BoolVar(&curlFormat, "curl-format", false, "Treat lines of --file as curl commands")

	rootCmd.PersistentFlags().StringVarP(&outputDir, "dir", "d", ".", "Directory to save the downloads")
	rootCmd.PersistentFlags().IntVarP(&threads, "threads", "t", utils.DefaultThreads, "Number of files downloaded in parallel (capped at CPU count)")
	rootCmd.PersistentFlags().IntVarP(&fragments, "fragments", "n", utils.DefaultFragments, "Number of byte-range fragments per download")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Overall request timeout, 0 for none (eg. 5m)")
	rootCmd.PersistentFlags().DurationVar(&kaTimeout, "keep-alive-timeout", 90*time.Second, "Keep-alive timeout for idle connections")
	rootCmd.PersistentFlags().StringVarP(&userAgent, "user-agent", "a", utils.ToolUserAgent, "User agent ('randomize' picks one)")
	rootCmd.PersistentFlags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	rootCmd.PersistentFlags().StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	rootCmd.PersistentFlags().StringVar(&bearerToken, "token", "", "Bearer token sent as the Authorization header")
	rootCmd.PersistentFlags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom header (like 'Authorization: Basic dXNlcjpwYXNz'); can be repeated")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging (disables the live display)")
	rootCmd.PersistentFlags().BoolVar(&noDisplay, "no-display", false, "Disable the live progress display")

	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newCleanCmd())
}

// initLogging decides whether the live display is used and configures the
// logger to match. It runs before any subcommand reads its input.
func initLogging() {
	display = !noDisplay && !verbose && output.IsTerminal(os.Stdout)
	level := zerolog.InfoLevel
	if display {
		level = zerolog.WarnLevel
	}
	output.InitLogger(logOutput, verbose, level)
}

// buildConfig resolves flags into the run configuration once.
func buildConfig() utils.Config {
	if userAgent == "randomize" {
		userAgent = utils.GetRandomUserAgent()
	}
	parsedProxy, err := u.Parse(proxyURL)
	if err == nil && parsedProxy.User != nil && proxyUsername == "" {
		proxyUsername = parsedProxy.User.Username()
		if password, set := parsedProxy.User.Password(); set {
			proxyPassword = password
		}
		parsedProxy.User = nil
		proxyURL = parsedProxy.String()
	}

	resolvedThreads := utils.ResolveThreads(threads)
	if resolvedThreads != threads {
		log.Debug().Int("requested", threads).Int("using", resolvedThreads).Msg("Thread count adjusted to available CPUs")
	}
	return utils.Config{
		Threads:   resolvedThreads,
		Fragments: max(fragments, 1),
		OutputDir: outputDir,
		Display:   display,
		HTTPClientConfig: utils.HTTPClientConfig{
			Timeout:       timeout,
			KATimeout:     kaTimeout,
			ProxyURL:      proxyURL,
			ProxyUsername: proxyUsername,
			ProxyPassword: proxyPassword,
			UserAgent:     userAgent,
			BearerToken:   bearerToken,
		},
	}
}

func execute(entries []utils.BatchEntry) {
	cfg := buildConfig()
	jobs := scheduler.BuildJobs(entries, headers, cfg)

	checked := make(map[string]bool)
	for _, job := range jobs {
		if checked[job.OutputDir] {
			continue
		}
		checked[job.OutputDir] = true
		if err := utils.EnsureOutputDir(job.OutputDir); err != nil {
			output.PrintError(fmt.Sprintf("Output directory unusable: %v", err))
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	results := scheduler.Run(ctx, jobs, cfg)
	if ctx.Err() != nil {
		output.PrintWarning("Interrupted, unfinished downloads were cancelled")
	}
	if failed := scheduler.Failed(results); failed > 0 {
		stop()
		output.PrintError(fmt.Sprintf("%d of %d download(s) failed", failed, len(results)))
		os.Exit(1)
	}
}
