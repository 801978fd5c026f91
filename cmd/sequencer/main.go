package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/pg-sharding/tradeseq/pkg"
	"github.com/pg-sharding/tradeseq/pkg/config"
	"github.com/pg-sharding/tradeseq/pkg/seqlog"
	"github.com/pg-sharding/tradeseq/seqdb"
)

func newRootCmd() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:   "tradeseq --config `path-to-config` <command>",
		Short: "tradeseq",
		Long:  "tradeseq dispenses monotonically increasing ids from named sequences",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Version:       pkg.TradeseqVersionRevision,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "/etc/tradeseq/sequencer.yaml", "path to sequencer config file")

	open := func(cmd *cobra.Command) (seqdb.SeqDB, error) {
		return openBackend(cmd.Context(), cfgPath)
	}

	rootCmd.AddCommand(
		newNextCmd(open),
		newNextTradeCmd(open),
		newCurrCmd(open),
		newListCmd(open),
		newCreateCmd(open),
		newDropCmd(open),
		newInitCmd(open),
		newStressCmd(open),
	)
	return rootCmd
}

// openBackend loads the config at cfgPath, reconfigures logging and opens
// the storage backend.
func openBackend(ctx context.Context, cfgPath string) (seqdb.SeqDB, error) {
	cfgStr, err := config.LoadSequencerCfg(cfgPath)
	if err != nil {
		return nil, err
	}
	scfg := config.SequencerConfig()

	seqlog.ReloadLogger(scfg.LogFileName, scfg.LogLevel, scfg.PrettyLogging)
	seqlog.ReloadSLogger(scfg.LogMinDurationStatement)
	seqlog.Zero.Debug().Str("config", cfgStr).Msg("running config")

	return seqdb.NewSeqDB(ctx, scfg)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		seqlog.Zero.Error().Err(err).Msg("")
		os.Exit(1)
	}
}
