package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/eva/internal/datetime"
	"github.com/sandeepkv93/eva/internal/model"
	"github.com/sandeepkv93/eva/internal/views"
)

func newSegmentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "segment",
		Aliases: []string{"segments"},
		Short:   "Manage time segments, the windows tasks are scheduled in",
		GroupID: "data",
	}
	cmd.AddCommand(
		newSegmentAddCmd(a),
		newSegmentListCmd(a),
		newSegmentRenameCmd(a),
		newSegmentPreviewCmd(a),
		newSegmentRmCmd(a),
	)
	return cmd
}

func newSegmentAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a time segment",
		Example: `  eva segment add Evenings --range "Mon 18-21" --range "Wed 18-21"
  eva segment add Weekend --range "Sat 10-16" --range "Sun 10-16"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, _ := cmd.Flags().GetStringArray("range")
			period, _ := cmd.Flags().GetDuration("period")
			seg, err := buildSegment(strings.Join(args, " "), specs, period, a.now())
			if err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			added, err := store.AddTimeSegment(cmd.Context(), seg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), views.RenderPanel(
				fmt.Sprintf("Added %s [%s]", added.Body.Name, added.ID),
				views.SegmentLines(added), added.Body.Hue, 0))
			return nil
		},
	}
	cmd.Flags().StringArray("range", nil, `Window as "<day> <start hour>-<end hour>", repeatable`)
	cmd.Flags().Duration("period", datetime.OneWeek, "Recurrence period")
	return cmd
}

func newSegmentListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List time segments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			segments, err := store.AllTimeSegments(cmd.Context())
			if err != nil {
				return err
			}
			for _, seg := range segments {
				fmt.Fprintln(cmd.OutOrStdout(), views.RenderPanel(
					fmt.Sprintf("%s [%s]", seg.Body.Name, seg.ID),
					views.SegmentLines(seg), seg.Body.Hue, 0))
			}
			return nil
		},
	}
}

func newSegmentRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a time segment",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseID(args[0])
			if err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			current, err := store.GetTimeSegment(cmd.Context(), id)
			if err != nil {
				return err
			}
			seg := current.Body
			seg.Name = strings.Join(args[1:], " ")
			if _, err := store.UpdateTimeSegment(cmd.Context(), id, seg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed time segment %s to %q\n", id, seg.Name)
			return nil
		},
	}
}

func newSegmentPreviewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <id>",
		Short: "Show the next windows of a time segment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseID(args[0])
			if err != nil {
				return err
			}
			count, _ := cmd.Flags().GetInt("count")
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			seg, err := store.GetTimeSegment(cmd.Context(), id)
			if err != nil {
				return err
			}
			windows, err := seg.Body.Preview(a.now(), count)
			if err != nil {
				return err
			}
			for _, w := range windows {
				fmt.Fprintln(cmd.OutOrStdout(), views.RangeLine(w))
			}
			return nil
		},
	}
	cmd.Flags().IntP("count", "n", 7, "Number of windows")
	return cmd
}

func newSegmentRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove a time segment that holds no tasks",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := model.ParseID(args[0])
			if err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.DeleteTimeSegment(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed time segment %s\n", id)
			return nil
		},
	}
}

// buildSegment places each "<day> <from>-<to>" window at its next
// occurrence after now. The segment starts with its earliest window.
func buildSegment(name string, specs []string, period time.Duration, now time.Time) (model.TimeSegment, error) {
	if len(specs) == 0 {
		return model.TimeSegment{}, errors.New("at least one --range is required")
	}
	ranges := make([]model.Range, 0, len(specs))
	for _, spec := range specs {
		r, err := parseRange(spec, now)
		if err != nil {
			return model.TimeSegment{}, err
		}
		ranges = append(ranges, r)
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start.Before(ranges[j].Start) })
	seg := model.TimeSegment{
		Name:   name,
		Start:  ranges[0].Start,
		Period: period,
		Ranges: ranges,
	}
	return seg, seg.Validate()
}

func parseRange(spec string, now time.Time) (model.Range, error) {
	fields := strings.Fields(spec)
	if len(fields) != 2 {
		return model.Range{}, fmt.Errorf("range %q: want \"<day> <start hour>-<end hour>\"", spec)
	}
	day, err := datetime.ParseDay(fields[0])
	if err != nil {
		return model.Range{}, fmt.Errorf("range %q: %w", spec, err)
	}
	from, to, ok := strings.Cut(fields[1], "-")
	if !ok {
		return model.Range{}, fmt.Errorf("range %q: missing end hour", spec)
	}
	startHour, err := strconv.Atoi(from)
	if err != nil || startHour < 0 || startHour > 23 {
		return model.Range{}, fmt.Errorf("range %q: bad start hour %q", spec, from)
	}
	endHour, err := strconv.Atoi(to)
	if err != nil || endHour <= startHour || endHour > 24 {
		return model.Range{}, fmt.Errorf("range %q: bad end hour %q", spec, to)
	}
	start := datetime.FirstDayAndHourAfter(now, day, datetime.Hour(startHour))
	return model.Range{Start: start, End: datetime.AddHours(start, endHour-startHour)}, nil
}
