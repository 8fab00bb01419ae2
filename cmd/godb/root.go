package main

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"godb/internal/catalog"
	"godb/internal/engine"
)

// newRootCmd builds the cobra command tree: the root itself runs the
// interactive REPL (grounded on the teacher's runREPL loop); `run <file>`
// executes a script non-interactively.
func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "godb",
		Short: "a disk-backed relational storage engine with a tiny SQL surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cat, log, err := bootstrap(v)
			if err != nil {
				return err
			}
			defer cat.Close()
			return runREPL(eng, log)
		},
	}

	root.PersistentFlags().String("data-dir", "./db_data", "directory holding metadata.dbm and per-table files")
	root.PersistentFlags().Bool("verbose", false, "enable debug logging")
	_ = v.BindPFlag("data_dir", root.PersistentFlags().Lookup("data-dir"))
	_ = v.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))
	v.SetEnvPrefix("GODB")
	v.AutomaticEnv()
	v.SetConfigName("godb")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // absent config file is not an error

	root.AddCommand(newRunCmd(v))
	return root
}

// bootstrap opens the catalog and engine against viper's resolved
// data_dir.
func bootstrap(v *viper.Viper) (*engine.Engine, *catalog.Catalog, *zap.SugaredLogger, error) {
	log, err := newLogger(v.GetBool("verbose"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	dataDir := v.GetString("data_dir")
	fs := afero.NewOsFs()

	cat, err := catalog.Load(fs, dataDir, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load catalog: %w", err)
	}

	eng := engine.New(cat, fs, log)
	return eng, cat, log, nil
}

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// formatTypeError renders a parser or engine error for display: the core
// returns discriminated error values, presentation happens here.
func formatTypeError(err error) string {
	return strings.TrimSpace(err.Error())
}
