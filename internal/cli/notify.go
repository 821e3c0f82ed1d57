package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/daypulse/internal/app"
	"github.com/rcliao/daypulse/internal/model"
)

func init() {
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Local notifications: show, schedule, preferences",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Deliver a notification now",
		Run:   runNotifyShow,
	}
	addRequestFlags(showCmd)

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule a notification",
		Long:  "Schedule a notification for --at (RFC3339) or --in (duration from now). It is delivered by a running `daypulse run`, which picks it up within DAYPULSE_SYNC_INTERVAL.",
		Run:   runNotifySchedule,
	}
	addRequestFlags(scheduleCmd)
	scheduleCmd.Flags().String("at", "", "Delivery time, RFC3339")
	scheduleCmd.Flags().Duration("in", 0, "Delivery delay from now, e.g. 90m")
	scheduleCmd.Flags().String("repeat", "", "Repeat interval: daily or weekly")

	cancelCmd := &cobra.Command{
		Use:   "cancel [id]",
		Short: "Cancel a scheduled notification",
		Args:  cobra.MaximumNArgs(1),
		Run:   runNotifyCancel,
	}
	cancelCmd.Flags().Bool("all", false, "Cancel every scheduled notification")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List pending scheduled notifications",
		Run:   runNotifyList,
	}

	prefsCmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change notification preferences",
		Long:  "Show notification preferences. Any flag given changes them first.",
		Run:   runNotifyPrefs,
	}
	prefsCmd.Flags().Bool("enable", false, "Enable notifications")
	prefsCmd.Flags().Bool("disable", false, "Disable notifications")
	prefsCmd.Flags().StringSlice("on", nil, "Categories to enable")
	prefsCmd.Flags().StringSlice("off", nil, "Categories to disable")
	prefsCmd.Flags().String("quiet", "", "Quiet hours as HH:MM-HH:MM, or \"none\"")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent delivery outcomes, newest first",
		Run:   runNotifyHistory,
	}
	historyCmd.Flags().IntP("limit", "l", 20, "Max results (0 for all)")

	icsCmd := &cobra.Command{
		Use:   "ics",
		Short: "Export pending schedules as an iCalendar feed",
		Run:   runNotifyICS,
	}

	notifyCmd.AddCommand(showCmd, scheduleCmd, cancelCmd, listCmd, prefsCmd, historyCmd, icsCmd, locationCmd())
	RootCmd.AddCommand(notifyCmd)
}

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().String("id", "", "Notification id (required)")
	cmd.Flags().String("title", "", "Title")
	cmd.Flags().String("body", "", "Body")
	cmd.Flags().String("category", model.CategorySystem, "Category")
	cmd.Flags().String("image", "", "Image URL")
	cmd.Flags().String("action", "", "Action URL opened on tap")
	cmd.Flags().StringToString("data", nil, "Extra data, key=value")
	cmd.MarkFlagRequired("id")
}

func requestFromFlags(cmd *cobra.Command) model.NotificationRequest {
	id, _ := cmd.Flags().GetString("id")
	title, _ := cmd.Flags().GetString("title")
	body, _ := cmd.Flags().GetString("body")
	category, _ := cmd.Flags().GetString("category")
	image, _ := cmd.Flags().GetString("image")
	action, _ := cmd.Flags().GetString("action")
	data, _ := cmd.Flags().GetStringToString("data")
	return model.NotificationRequest{
		ID:        id,
		Title:     title,
		Body:      body,
		Category:  category,
		ImageURL:  image,
		ActionURL: action,
		Data:      data,
	}
}

func runNotifyShow(cmd *cobra.Command, args []string) {
	req := requestFromFlags(cmd)

	a := openApp(cmd, app.Options{})
	defer a.Close()

	out, err := a.Scheduler.ShowNow(cmd.Context(), req)
	if err != nil {
		exitErr("show", err)
	}
	printJSON(cmd, out)
}

func runNotifySchedule(cmd *cobra.Command, args []string) {
	req := requestFromFlags(cmd)
	at, _ := cmd.Flags().GetString("at")
	in, _ := cmd.Flags().GetDuration("in")
	repeat, _ := cmd.Flags().GetString("repeat")
	if (at == "") == (in == 0) {
		exitErr("schedule", fmt.Errorf("exactly one of --at or --in is required"))
	}

	a := openApp(cmd, app.Options{})
	defer a.Close()

	when := a.Calendar.Now().Add(in)
	if at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			exitErr("schedule", fmt.Errorf("--at: %w", err))
		}
		when = t
	}

	sn := model.ScheduledNotification{
		NotificationRequest: req,
		ScheduledTime:       when,
		Repeating:           repeat != "",
		RepeatInterval:      model.RepeatInterval(repeat),
	}
	if err := a.Scheduler.Schedule(cmd.Context(), sn); err != nil {
		exitErr("schedule", err)
	}
	printJSON(cmd, a.Scheduler.Pending())
}

func runNotifyCancel(cmd *cobra.Command, args []string) {
	all, _ := cmd.Flags().GetBool("all")
	if all == (len(args) == 1) {
		exitErr("cancel", fmt.Errorf("give an id or --all"))
	}

	a := openApp(cmd, app.Options{})
	defer a.Close()

	if all {
		a.Scheduler.CancelAll(cmd.Context())
	} else {
		a.Scheduler.Cancel(cmd.Context(), args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"pending":%d}`+"\n", len(a.Scheduler.Pending()))
}

func runNotifyList(cmd *cobra.Command, args []string) {
	a := openApp(cmd, app.Options{})
	defer a.Close()

	printJSON(cmd, a.Scheduler.Pending())
}

func runNotifyPrefs(cmd *cobra.Command, args []string) {
	enable, _ := cmd.Flags().GetBool("enable")
	disable, _ := cmd.Flags().GetBool("disable")
	on, _ := cmd.Flags().GetStringSlice("on")
	off, _ := cmd.Flags().GetStringSlice("off")
	quiet, _ := cmd.Flags().GetString("quiet")
	if enable && disable {
		exitErr("prefs", fmt.Errorf("--enable and --disable are exclusive"))
	}

	a := openApp(cmd, app.Options{})
	defer a.Close()

	ctx := cmd.Context()
	switch {
	case enable:
		a.Scheduler.SetEnabled(ctx, true)
	case disable:
		a.Scheduler.SetEnabled(ctx, false)
	}
	for _, c := range on {
		if err := a.Scheduler.SetCategoryEnabled(ctx, c, true); err != nil {
			exitErr("prefs", err)
		}
	}
	for _, c := range off {
		if err := a.Scheduler.SetCategoryEnabled(ctx, c, false); err != nil {
			exitErr("prefs", err)
		}
	}
	if cmd.Flags().Changed("quiet") {
		var start, end string
		if quiet != "none" {
			var ok bool
			start, end, ok = strings.Cut(quiet, "-")
			if !ok {
				exitErr("prefs", fmt.Errorf("--quiet wants HH:MM-HH:MM, got %q", quiet))
			}
		}
		if err := a.Scheduler.SetQuietHours(ctx, start, end); err != nil {
			exitErr("prefs", err)
		}
	}

	printJSON(cmd, a.Scheduler.Preferences())
}

func runNotifyHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	a := openApp(cmd, app.Options{})
	defer a.Close()

	outs, err := a.Scheduler.History(cmd.Context(), limit)
	if err != nil {
		exitErr("history", err)
	}
	printJSON(cmd, outs)
}

func runNotifyICS(cmd *cobra.Command, args []string) {
	a := openApp(cmd, app.Options{})
	defer a.Close()

	fmt.Fprint(cmd.OutOrStdout(), a.Scheduler.ExportICS())
}

func locationCmd() *cobra.Command {
	locCmd := &cobra.Command{
		Use:   "location",
		Short: "Notifications bound to geofence transitions",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Register a location notification",
		Run:   runLocationAdd,
	}
	addRequestFlags(addCmd)
	addCmd.Flags().String("geofence", "", "Geofence region id (required)")
	addCmd.Flags().String("trigger", string(model.TriggerEnter), "Trigger: enter, exit or both")
	addCmd.MarkFlagRequired("geofence")

	rmCmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Unregister a location notification",
		Args:  cobra.ExactArgs(1),
		Run:   runLocationRm,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List location notifications",
		Run:   runLocationList,
	}

	locCmd.AddCommand(addCmd, rmCmd, listCmd)
	return locCmd
}

func runLocationAdd(cmd *cobra.Command, args []string) {
	geofence, _ := cmd.Flags().GetString("geofence")
	trigger, _ := cmd.Flags().GetString("trigger")
	ln := model.LocationNotification{
		NotificationRequest: requestFromFlags(cmd),
		GeofenceID:          geofence,
		Trigger:             model.Trigger(trigger),
	}

	a := openApp(cmd, app.Options{})
	defer a.Close()

	if err := a.Scheduler.RegisterLocationNotification(cmd.Context(), ln); err != nil {
		exitErr("location add", err)
	}
	printJSON(cmd, a.Scheduler.LocationNotifications())
}

func runLocationRm(cmd *cobra.Command, args []string) {
	a := openApp(cmd, app.Options{})
	defer a.Close()

	a.Scheduler.UnregisterLocationNotification(cmd.Context(), args[0])
	printJSON(cmd, a.Scheduler.LocationNotifications())
}

func runLocationList(cmd *cobra.Command, args []string) {
	a := openApp(cmd, app.Options{})
	defer a.Close()

	printJSON(cmd, a.Scheduler.LocationNotifications())
}
