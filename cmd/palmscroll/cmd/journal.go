package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/palmscroll/internal/store"
)

var (
	journalLimit   int
	journalSession string
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show recent sessions and scroll actions.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, err := journalPath(cmd.Flags())
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			printf(cmd, "no journal at %s\n", path)
			return nil
		}

		s, err := store.New(path)
		if err != nil {
			return err
		}
		defer s.Close()

		if journalSession == "" {
			sessions, err := s.Sessions().List(journalLimit)
			if err != nil {
				return err
			}
			for _, sess := range sessions {
				n, err := s.Events().CountBySession(sess.ID)
				if err != nil {
					return err
				}
				ended := "running"
				if sess.EndedAt != nil {
					ended = formatTime(*sess.EndedAt)
				}
				printf(cmd, "%s  %s  %s  frames=%d actions=%d dispatch=%s\n",
					sess.ID, formatTime(sess.StartedAt), ended, sess.Frames, n, sess.Dispatch)
			}
			return nil
		}

		events, err := s.Events().ListRecent(journalSession, journalLimit)
		if err != nil {
			return err
		}
		for _, e := range events {
			line := "%s  %-4s %+5d stable=%d"
			args := []any{formatTime(e.FiredAt), e.Status, e.Amount, e.RunLength}
			if e.DispatchError != "" {
				line += "  error=%s"
				args = append(args, e.DispatchError)
			}
			printf(cmd, line+"\n", args...)
		}
		return nil
	},
}

func init() {
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "number of rows to show")
	journalCmd.Flags().StringVarP(&journalSession, "session", "s", "", "list the actions of one session")
}
