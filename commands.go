package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/greatbody/encoding-probe/internal/charset"
	"github.com/greatbody/encoding-probe/internal/config"
	"github.com/greatbody/encoding-probe/internal/family"
	"github.com/greatbody/encoding-probe/internal/lineending"
	"github.com/greatbody/encoding-probe/internal/logging"
	"github.com/greatbody/encoding-probe/internal/scan"
	"github.com/greatbody/encoding-probe/internal/transcoder"
	"github.com/greatbody/encoding-probe/internal/vfs"
)

const undetermined = "-"

// app carries the components built from configuration for one invocation.
type app struct {
	cfgFile    string
	cfg        *config.Config
	logger     *slog.Logger
	resolver   *charset.Resolver
	detector   *transcoder.Detector
	classifier *lineending.Classifier
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "encoding-probe",
		Short:         "Detect character encodings and line ending conventions of files.",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Path to JSON config file")
	pf.String("engine", "chardet", `Detection engine ("chardet" or "markup")`)
	pf.Int("max-sniff", transcoder.DefaultMaxSniff, "Bytes the chardet engine examines at most")
	pf.Int("sample-size", lineending.DefaultSampleSize, "Characters sampled for line ending classification")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newDetectCmd(a),
		newEOLCmd(a),
		newEqualCmd(a),
		newScanCmd(a),
		newMountCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.SetupWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if a.cfgFile != "" && cfg.ConfigFileUsed == "" {
		a.logger.Warn("config file not found, using defaults", "path", a.cfgFile)
	}

	factory, err := transcoder.EngineByName(cfg.Engine, cfg.MaxSniff)
	if err != nil {
		return err
	}
	a.resolver = charset.Default()
	a.detector = transcoder.NewDetector(
		transcoder.WithResolver(a.resolver),
		transcoder.WithEngine(factory),
		transcoder.WithLogger(a.logger),
	)
	a.classifier = lineending.NewClassifier(
		lineending.WithResolver(a.resolver),
		lineending.WithSampleSize(cfg.SampleSize),
	)
	return nil
}

func (a *app) detectFile(path string) (string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	return a.detector.Detect(f)
}

func newDetectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detect FILE...",
		Short: "Print the detected charset and its family for each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()
			for _, p := range args {
				name, ok, err := a.detectFile(p)
				if err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
				if !ok {
					fmt.Fprintf(w, "%s\t%s\t%s\n", p, undetermined, family.None)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", p, name, family.ForName(name))
			}
			return nil
		},
	}
}

func newEOLCmd(a *app) *cobra.Command {
	var charsetName string
	cmd := &cobra.Command{
		Use:   "eol FILE...",
		Short: "Print the line ending convention of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()
			for _, p := range args {
				name := charsetName
				if name == "" {
					detected, ok, err := a.detectFile(p)
					if err != nil {
						return fmt.Errorf("%s: %w", p, err)
					}
					if !ok {
						fmt.Fprintf(w, "%s\t%s\n", p, undetermined)
						continue
					}
					name = detected
				}
				f, err := os.Open(p)
				if err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
				kind, err := a.classifier.Classify(f, name)
				if err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
				fmt.Fprintf(w, "%s\t%s\n", p, kind)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&charsetName, "charset", "", "Decode files with this charset instead of detecting it")
	return cmd
}

func newEqualCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "equal A B",
		Short: "Report whether two charset names denote the same charset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), a.resolver.Equivalent(args[0], args[1]))
			return err
		},
	}
}

func newScanCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "scan DIR",
		Short: "Probe every file below DIR with an allowed extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := scan.New(osfs.New(args[0]),
				scan.WithFilter(vfs.NewFilter(nil, a.cfg.AllowedExtensions)),
				scan.WithDetector(a.detector),
				scan.WithClassifier(a.classifier),
				scan.WithConcurrency(a.cfg.Concurrency),
				scan.WithLogger(a.logger),
			)
			results, err := s.Scan(cmd.Context(), ".")
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			return writeResults(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	cmd.Flags().Int("concurrency", 4, "Files probed in parallel")
	cmd.Flags().StringSlice("ext", nil, "Allowed file extensions (default from config)")
	return cmd
}

func writeResults(out io.Writer, results []scan.Result) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, r := range results {
		cs, eol := undetermined, undetermined
		if r.Detected() {
			cs = r.Charset
		}
		if r.LineEnding != "" {
			eol = r.LineEnding.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s", r.Path, cs, eol, r.Family)
		if r.Error != "" {
			fmt.Fprintf(w, "\t%s", r.Error)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func newMountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount",
		Short: "Mount a proxy drive that serves files as UTF-8 (Windows, Dokany 1.x)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := vfs.NewFilter(a.cfg.AllowedProcesses, a.cfg.AllowedExtensions)
			codec := vfs.NewCodec(a.detector, a.resolver, a.cfg.FallbackCharset, a.logger)
			fs := vfs.NewProxyFS(a.cfg.PhysicalPath, filter, codec, a.logger)

			a.logger.Info("starting mount", "physical", a.cfg.PhysicalPath, "mount_point", a.cfg.MountPoint)
			if err := vfs.Mount(cmd.Context(), a.cfg.MountPoint, fs); err != nil {
				return fmt.Errorf("mount failed (is the Dokany 1.x driver installed and DOKAN1.DLL in PATH?): %w", err)
			}
			a.logger.Info("unmounted")
			return nil
		},
	}
	cmd.Flags().String("physical", "", "Directory to expose (default from config)")
	cmd.Flags().String("mount-point", "", "Drive letter to mount at (default from config)")
	cmd.Flags().StringSlice("process", nil, "Processes that see transcoded files (default from config)")
	cmd.Flags().StringSlice("ext", nil, "Extensions that are transcoded (default from config)")
	cmd.Flags().String("fallback-charset", "", "Charset for writing back files whose charset was undetermined or is too narrow (default from config)")
	return cmd
}
