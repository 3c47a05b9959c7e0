package main

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Ning0612/prscatalog/internal/config"
	"github.com/Ning0612/prscatalog/internal/domain"
	"github.com/Ning0612/prscatalog/internal/logger"
	"github.com/Ning0612/prscatalog/internal/progress"
	"github.com/Ning0612/prscatalog/internal/report"
	"github.com/Ning0612/prscatalog/internal/service"
	"github.com/Ning0612/prscatalog/internal/state"
)

var rootCmd = &cobra.Command{
	Use:   "prscatalog",
	Short: "Reconcile e-reader library catalogs with the files on the device",
	Long: `prscatalog rewrites the library catalogs of the reader's internal memory,
memory stick and SD card so they match the files actually stored under the
media root of each partition.

Items are added for new files and dropped for missing ones, author and title
are taken from "[Author] Title.ext" file names, items are sorted, identifiers
are reassigned so they never collide across the three catalogs, and one
playlist is generated per directory. The previous catalog is kept with a .unk
extension.`,
	Example: `  prscatalog --body /media/READER --ms /media/MS --sd /media/SD --root books
  prscatalog --config prscatalog.yaml --dry-run
  prscatalog fix --ops synchronize,renumber,save --partitions body`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runFix,
}

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Reconcile all three catalogs (default command)",
	Args:  cobra.NoArgs,
	RunE:  runFix,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: prscatalog.yaml in ., ./configs or the user config dir)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text, json")
	rootCmd.PersistentFlags().String("log-file", "", "Also write logs to this file (rotated)")
	rootCmd.PersistentFlags().String("state-dir", "", "Directory of the run history database")
	rootCmd.PersistentFlags().Bool("no-history", false, "Do not record this run in the history")

	addFixFlags(rootCmd)
	addFixFlags(fixCmd)

	rootCmd.AddCommand(fixCmd)
}

func addFixFlags(cmd *cobra.Command) {
	cmd.Flags().String("body", "", "Mount point of the reader's internal memory")
	cmd.Flags().String("ms", "", "Mount point of the memory stick")
	cmd.Flags().String("sd", "", "Mount point of the SD card")
	cmd.Flags().String("root", "", "Media directory inside every partition")
	cmd.Flags().String("sync", "", "Copy <sync>/body, <sync>/ms and <sync>/sd onto the partitions first")
	cmd.Flags().StringSlice("ops", nil, "Phases to run (copy,synchronize,title,sort,renumber,playlist,save); default all")
	cmd.Flags().StringSlice("partitions", nil, "Partitions to process (body,ms,sd); default all")
	cmd.Flags().Bool("dry-run", false, "Skip copying and saving; report what would change")
}

// loadConfig reads the configuration and starts the process logger
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logCfg, err := logger.FromSettings(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}
	if err := logger.Init(logCfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func runFix(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Shutdown()

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, domain.ErrConfigInvalid) {
			cmd.PrintErr(cmd.UsageString())
			cmd.PrintErrln()
		}
		return err
	}

	ops, err := cfg.OpSet()
	if err != nil {
		return err
	}

	svc := service.New(afero.NewOsFs())
	svc.SetProgressReporter(progress.NewLogReporter(logger.Get()))

	if !cfg.State.Disabled {
		history, err := state.NewManager(cfg.State.Dir)
		if err != nil {
			logger.Get().Warn("run history unavailable", "dir", cfg.State.Dir, "error", err)
		} else {
			defer history.Close()
			svc.SetHistory(history)
		}
	}

	result, err := svc.Run(cmd.Context(), service.Options{
		Partitions: cfg.PartitionRoots(),
		Root:       cfg.Root,
		SyncFrom:   cfg.Sync,
		Ops:        ops,
	})
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), report.Tree(result))
	if cfg.DryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "dry run: nothing was written")
	}
	return nil
}
