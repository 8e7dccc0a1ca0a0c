package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jguan/hostmon/pkg/infra/eventbus"
)

type historyEntry struct {
	Time    time.Time       `json:"time" yaml:"time"`
	Type    string          `json:"type" yaml:"type"`
	CycleID string          `json:"cycle_id" yaml:"cycle_id"`
	Details json.RawMessage `json:"details" yaml:"-"`
	Summary string          `json:"-" yaml:"details"`
}

func NewHistoryCommand(root *RootCommand) *cobra.Command {
	var (
		limit     int
		cycleID   string
		eventType string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled delivery and cycle outcomes",
		Long: `List the outcome events recorded in the local journal, newest first.
The journal holds delivery results only; snapshots are never stored.`,
		Example: `  hostmon history --limit 50
  hostmon history --cycle 3f0c8a2e-...
  hostmon history --type delivery.exhausted -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := root.Config().Journal.Path
			entries, err := readHistory(cmd, path, eventbus.EventQueryFilter{
				Type:          eventType,
				CorrelationID: cycleID,
				Limit:         limit,
			})
			if err != nil {
				return err
			}
			return PrintOutput(entries, root.OutputOptions())
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of events to show (0 for all)")
	cmd.Flags().StringVar(&cycleID, "cycle", "", "Only show events of this cycle id")
	cmd.Flags().StringVar(&eventType, "type", "", "Only show events of this type")

	return cmd
}

func readHistory(cmd *cobra.Command, path string, filter eventbus.EventQueryFilter) ([]historyEntry, error) {
	entries := []historyEntry{}

	if path != ":memory:" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return entries, nil
		}
	}

	store, err := eventbus.OpenSQLiteEventStore(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	events, err := store.Query(cmd.Context(), filter)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}

	for _, e := range events {
		details, _ := e.Payload().(json.RawMessage)
		entries = append(entries, historyEntry{
			Time:    e.Timestamp(),
			Type:    e.Type(),
			CycleID: e.CorrelationID(),
			Details: details,
			Summary: string(details),
		})
	}
	return entries, nil
}
