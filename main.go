package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/yfzhou0904/go-to-ptpimg/ptpimg"
	"github.com/yfzhou0904/go-to-ptpimg/util"
)

type cliOptions struct {
	apiKey       string
	configPath   string
	bbcode       bool
	dontCopy     bool
	noBell       bool
	plain        bool
	debug        bool
	timeout      time.Duration
	maxDimension int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		util.DefaultLogger.Error(err.Error())
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts cliOptions

	cmd := &cobra.Command{
		Use:           "go-to-ptpimg [flags] filename|url...",
		Short:         "Upload images and image URLs to ptpimg.me",
		Long:          helpMessage,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.apiKey, "api-key", "k", "", "PTPImg API key (or set the "+envAPIKey+" environment variable)")
	flags.BoolVarP(&opts.bbcode, "bbcode", "b", false, "Output links in BBCode format (with [img] tags)")
	flags.BoolVarP(&opts.dontCopy, "dont-copy", "n", false, "Do not copy the resulting URLs to the clipboard")
	flags.BoolVar(&opts.noBell, "nobell", false, "Do not bell in a terminal on completion")
	flags.DurationVarP(&opts.timeout, "timeout", "t", 0, "Timeout for each download and upload request (0 for none)")
	flags.IntVar(&opts.maxDimension, "max-dimension", 0, "Downscale images larger than this many pixels before upload (0 to keep)")
	flags.BoolVar(&opts.plain, "plain", false, "Do not show the progress spinner")
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ~/.go-to-ptpimg/config.toml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Log requests and raw responses")

	cmd.AddCommand(newConfigCmd(&opts))
	return cmd
}

func newConfigCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create the config file if needed and open it in $EDITOR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath(opts.configPath)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				if err := initConfig(path); err != nil {
					return fmt.Errorf("failed to create config: %w", err)
				}
			}
			return openTextEditor(path)
		},
	}
}

func configPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return defaultConfigPath()
}

func run(cmd *cobra.Command, opts cliOptions, items []string) error {
	util.InitLogger(opts.debug)

	path, err := configPath(opts.configPath)
	if err != nil {
		return err
	}
	conf, err := loadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	apiKey := resolveAPIKey(opts.apiKey, conf)
	if apiKey == "" {
		return errors.New("please specify an API key with --api-key, " + envAPIKey + " or " + path)
	}

	clientOpts := ptpimg.Options{
		Timeout:      conf.PTPImg.Timeout.Duration,
		MaxDimension: conf.Image.MaxDimension,
	}
	if cmd.Flags().Changed("timeout") {
		clientOpts.Timeout = opts.timeout
	}
	if cmd.Flags().Changed("max-dimension") {
		clientOpts.MaxDimension = opts.maxDimension
	}
	if proxy := util.DetectProxy(); proxy != nil {
		util.DefaultLogger.Debugf("Using proxy %s from %s", proxy.URL, proxy.Source)
	}

	ctx := util.WithDebug(cmd.Context(), opts.debug)
	client := ptpimg.NewClient(apiKey, clientOpts)

	var urls []string
	if !opts.plain && !opts.debug && isatty.IsTerminal(os.Stderr.Fd()) {
		urls, err = uploadWithProgress(ctx, client, items)
	} else {
		urls, err = client.Upload(ctx, items)
	}
	if err != nil {
		return err
	}

	out := output{
		bbcode:    opts.bbcode || conf.Output.BBCode,
		clipboard: !opts.dontCopy && conf.Output.Clipboard,
		bell:      !opts.noBell && conf.Output.Bell && isatty.IsTerminal(os.Stdout.Fd()),
	}
	return out.print(cmd.OutOrStdout(), urls)
}

// output renders the hosted URLs and performs the side effects around them
type output struct {
	bbcode    bool
	clipboard bool
	bell      bool
}

func (o output) print(w io.Writer, urls []string) error {
	lines := formatURLs(urls, o.bbcode)
	if _, err := fmt.Fprintln(w, strings.Join(lines, "\n")); err != nil {
		return err
	}
	if o.clipboard {
		if err := copyToClipboard(lines); err != nil {
			util.DefaultLogger.Warnf("Failed to copy to clipboard: %v", err)
		}
	}
	if o.bell {
		_, _ = io.WriteString(w, "\a")
	}
	return nil
}
