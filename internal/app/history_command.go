package app

import (
	"github.com/spf13/cobra"

	"solflow/internal/executor"
	"solflow/internal/out"
)

func (s *runtimeState) newHistoryCommand() *cobra.Command {
	var (
		sessionID string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := executor.OpenHistory(s.settings.HistoryStorePath, s.settings.HistoryLockPath)
			if err != nil {
				return err
			}
			defer history.Close()

			records, err := history.List(sessionID, limit)
			if err != nil {
				return err
			}
			return out.RenderHistory(cmd.OutOrStdout(), records, s.outputMode())
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Only this session's executions")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows")
	return cmd
}
