package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zeusync/eventscope/internal/core/filter"
	"github.com/zeusync/eventscope/internal/core/manager"
	"github.com/zeusync/eventscope/internal/core/models"
	"github.com/zeusync/eventscope/internal/core/stats"
)

func newStatsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats [container...]",
		Short: "Print per-container event, listener and reference counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := a.open()
			if err != nil {
				return err
			}
			rows := m.AllStatistics()
			if len(args) > 0 {
				rows = rows[:0]
				for _, name := range args {
					rows = append(rows, m.GetStatistics(name))
				}
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			return writeStats(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newEventsCmd(a *app) *cobra.Command {
	var text string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List the event catalog with listener and reference counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := a.open()
			if err != nil {
				return err
			}
			rows, err := m.ApplyFilter(filter.KindEvents, text, filter.Mask{})
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EVENT\tKIND\tLISTENERS\tREFERENCES")
			for _, row := range rows {
				e := row.Value.(*models.Event)
				entry := m.Lookup(e)
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", e.Name(), e.Kind(), len(entry.Listeners), len(entry.References))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&text, "filter", "f", "", "case-insensitive name filter")
	return cmd
}

func newListenersCmd(a *app) *cobra.Command {
	var (
		text       string
		containers []string
	)
	cmd := &cobra.Command{
		Use:   "listeners",
		Short: "List listeners grouped by the event they react to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := a.open()
			if err != nil {
				return err
			}
			rows, err := filtered(m, filter.KindListeners, text, containers)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EVENT\tLISTENER\tNODE\tCONTAINER\tRESPONSES")
			for _, row := range rows {
				l := row.Value.(models.ListenerEntry)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
					eventName(l.Event), l.DisplayName(), nodePath(l.Node), l.ContainerName(), l.Listener.ResponseCount())
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&text, "filter", "f", "", "case-insensitive name filter")
	cmd.Flags().StringSliceVar(&containers, "container", nil, "limit to these containers (repeatable)")
	return cmd
}

func newRefsCmd(a *app) *cobra.Command {
	var (
		text       string
		containers []string
		unbound    bool
	)
	cmd := &cobra.Command{
		Use:     "refs",
		Aliases: []string{"references"},
		Short:   "List event typed fields on behavior units",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, _, err := a.open()
			if err != nil {
				return err
			}
			rows, err := filtered(m, filter.KindReferences, text, containers)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EVENT\tFIELD\tCONTAINER")
			for _, row := range rows {
				r := row.Value.(models.FieldReference)
				if unbound && r.Event != nil {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", eventName(r.Event), r.Label, r.ContainerName())
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&text, "filter", "f", "", "case-insensitive name filter")
	cmd.Flags().StringSliceVar(&containers, "container", nil, "limit to these containers (repeatable)")
	cmd.Flags().BoolVar(&unbound, "unbound", false, "only show fields holding no event")
	return cmd
}

func newFindCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find <event>",
		Short: "Scan registered containers for fields holding an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := a.open()
			if err != nil {
				return err
			}
			e, ok := m.EventByName(args[0])
			if !ok {
				return fmt.Errorf("unknown event %q", args[0])
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FIELD\tCONTAINER")
			for _, r := range m.FindReferences(e) {
				fmt.Fprintf(w, "%s\t%s\n", r.Label, r.ContainerName())
			}
			return w.Flush()
		},
	}
}

func filtered(m *manager.Manager, kind filter.Kind, text string, containers []string) ([]filter.Entity, error) {
	mask, err := filter.MaskOf(containerNames(m), containers...)
	if err != nil {
		return nil, err
	}
	return m.ApplyFilter(kind, text, mask)
}

func containerNames(m *manager.Manager) []string {
	list := m.Containers()
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Name())
	}
	return out
}

func writeStats(out io.Writer, rows []models.SceneStatistics) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CONTAINER\tEVENTS\tLISTENERS\tREFERENCES")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", r.Container, r.Events, r.Listeners, r.References)
	}
	t := stats.Totals(rows)
	fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", "TOTAL", t.Events, t.Listeners, t.References)
	return w.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func eventName(e *models.Event) string {
	if e == nil {
		return "(none)"
	}
	return e.Name()
}

func nodePath(n *models.Node) string {
	if n == nil {
		return ""
	}
	return n.Path()
}
