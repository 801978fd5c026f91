package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pg-sharding/tradeseq/pkg/models/seqerror"
	"github.com/pg-sharding/tradeseq/seqdb"
	"github.com/pg-sharding/tradeseq/sequencer"
	"github.com/pg-sharding/tradeseq/sequencer/dbseq"
)

type opener func(cmd *cobra.Command) (seqdb.SeqDB, error)

// withBackend opens the backend for the duration of fn.
func withBackend(cmd *cobra.Command, open opener, fn func(db seqdb.SeqDB) error) error {
	db, err := open(cmd)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()
	return fn(db)
}

func newNextCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "next NAME",
		Short: "dispense the next id of a sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(db seqdb.SeqDB) error {
				id, err := dbseq.NewDBSeq(db).NextID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	}
}

func newNextTradeCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "next-trade",
		Short: "dispense the next trade id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(db seqdb.SeqDB) error {
				id, err := dbseq.NewDBSeq(db).NextTradeID(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	}
}

func newCurrCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "curr NAME",
		Short: "show the id the sequence dispenses next",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(db seqdb.SeqDB) error {
				id, err := dbseq.NewDBSeq(db).CurrID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
				return err
			})
		},
	}
}

func newListCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list sequences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(db seqdb.SeqDB) error {
				seqs, err := db.ListSequences(cmd.Context())
				if err != nil {
					return err
				}
				for _, s := range seqs {
					if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", s.Name, s.NextID); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newCreateCmd(open opener) *cobra.Command {
	var start int64
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "provision a sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return seqerror.New(seqerror.SEQ_INVALID_NAME, "sequence name must not be empty")
			}
			return withBackend(cmd, open, func(db seqdb.SeqDB) error {
				return db.CreateSequence(cmd.Context(), args[0], start)
			})
		},
	}
	cmd.Flags().Int64VarP(&start, "start", "s", 1, "first id the sequence dispenses")
	return cmd
}

func newDropCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "drop NAME",
		Short: "remove a sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(db seqdb.SeqDB) error {
				return db.DropSequence(cmd.Context(), args[0])
			})
		},
	}
}

func newInitCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "create the sequence table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(db seqdb.SeqDB) error {
				sqlDB, ok := db.(*seqdb.SQLSeqDB)
				if !ok {
					return seqerror.New(seqerror.SEQ_CONFIG_ERROR, "init is only supported by the sql backend")
				}
				return sqlDB.InitSchema(cmd.Context())
			})
		},
	}
}

func newStressCmd(open opener) *cobra.Command {
	var workers, calls int
	cmd := &cobra.Command{
		Use:   "stress NAME",
		Short: "dispense ids concurrently and report duplicates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if workers <= 0 || calls <= 0 {
				return fmt.Errorf("workers and calls must be positive")
			}
			return withBackend(cmd, open, func(db seqdb.SeqDB) error {
				report, err := sequencer.Stress(cmd.Context(), dbseq.NewDBSeq(db), args[0], workers, calls)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "dispensed=%d distinct=%d duplicates=%d\n",
					report.Dispensed, report.Distinct, len(report.Duplicates))
				if err != nil {
					return err
				}
				if len(report.Duplicates) != 0 {
					return fmt.Errorf("%d ids dispensed more than once, first %d",
						len(report.Duplicates), report.Duplicates[0])
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 8, "concurrent callers")
	cmd.Flags().IntVarP(&calls, "calls", "n", 100, "calls per worker")
	return cmd
}
