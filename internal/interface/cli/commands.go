package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/athlete-hub/athlete-hub/internal/app"
	"github.com/athlete-hub/athlete-hub/internal/application/syncer"
	"github.com/athlete-hub/athlete-hub/internal/domain/activity"
	"github.com/athlete-hub/athlete-hub/internal/domain/calendar"
	"github.com/athlete-hub/athlete-hub/internal/domain/grade"
	"github.com/athlete-hub/athlete-hub/internal/domain/session"
	"github.com/athlete-hub/athlete-hub/internal/domain/settings"
	"github.com/athlete-hub/athlete-hub/internal/domain/task"
	"github.com/athlete-hub/athlete-hub/internal/infrastructure/scheduler"
	"github.com/athlete-hub/athlete-hub/pkg/timeutil"
)

// ErrHelp is returned after usage has been printed.
var ErrHelp = errors.New("help provided")

// CommandLine dispatches subcommands against a wired hub.
type CommandLine struct {
	hub *app.App

	mu  sync.Mutex
	out io.Writer
}

// NewCommandLine creates a CommandLine.
func NewCommandLine(hub *app.App, out io.Writer) *CommandLine {
	return &CommandLine{hub: hub, out: out}
}

func (cli *CommandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  task add|edit|list|start|complete|delete|overdue   - assignments board")
	fmt.Fprintln(cli.out, "  grade add|edit|list|delete|stats                  - GPA history")
	fmt.Fprintln(cli.out, "  session add|list|upcoming|delete                  - training sessions")
	fmt.Fprintln(cli.out, "  event add|list|day|upcoming|delete                - calendar")
	fmt.Fprintln(cli.out, "  settings show|set                                 - preferences")
	fmt.Fprintln(cli.out, "  view set NAME                                     - current view")
	fmt.Fprintln(cli.out, "  note add|list|delete                              - journal notes")
	fmt.Fprintln(cli.out, "  activity list|streak|today                        - activity feed")
	fmt.Fprintln(cli.out, "  sync [-watch] [-every 5m]                         - push journal to remote")
}

// Run executes args, where args[0] is the command group.
func (cli *CommandLine) Run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		cli.printUsage()
		return ErrHelp
	}

	group, rest := args[0], args[1:]
	switch group {
	case "task":
		return cli.runTask(ctx, rest)
	case "grade":
		return cli.runGrade(ctx, rest)
	case "session":
		return cli.runSession(ctx, rest)
	case "event":
		return cli.runEvent(ctx, rest)
	case "settings":
		return cli.runSettings(ctx, rest)
	case "view":
		return cli.runView(ctx, rest)
	case "note":
		return cli.runNote(ctx, rest)
	case "activity":
		return cli.runActivity(ctx, rest)
	case "sync":
		return cli.runSync(ctx, rest)
	default:
		cli.printUsage()
		return ErrHelp
	}
}

// newFlagSet returns a flag set that reports errors instead of exiting.
func (cli *CommandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// parse parses args and reports which flags were given.
func parse(fs *flag.FlagSet, args []string) (map[string]bool, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set, nil
}

func requireFlag(fs *flag.FlagSet, set map[string]bool, names ...string) error {
	for _, n := range names {
		if !set[n] {
			fmt.Fprintf(fs.Output(), "-%s is required\n", n)
			fs.Usage()
			return ErrHelp
		}
	}
	return nil
}

func subcommand(args []string) (string, []string) {
	if len(args) == 0 {
		return "", nil
	}
	return args[0], args[1:]
}

func (cli *CommandLine) table() *tabwriter.Writer {
	return tabwriter.NewWriter(cli.out, 0, 2, 2, ' ', 0)
}

// ══════════════════════════════════════════════════════════════════════════════
// TASKS
// ══════════════════════════════════════════════════════════════════════════════

func (cli *CommandLine) runTask(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	m := cli.hub.Assignments

	switch sub {
	case "add", "edit":
		fs := cli.newFlagSet("task " + sub)
		id := fs.String("id", "", "task id (edit only)")
		title := fs.String("title", "", "title")
		due := fs.String("due", "", "due date, YYYY-MM-DD")
		priority := fs.String("priority", string(task.PriorityMedium), "low, medium or high")
		notes := fs.String("notes", "", "notes")
		status := fs.String("status", "", "todo, inProgress or completed (edit only)")
		set, err := parse(fs, rest)
		if err != nil {
			return err
		}

		if sub == "add" {
			t, err := m.Add(ctx, task.Task{Title: *title, DueDate: *due, Priority: task.Priority(*priority), Notes: *notes})
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "added task %s\n", t.ID)
			return nil
		}

		if err := requireFlag(fs, set, "id"); err != nil {
			return err
		}
		var patch task.Patch
		if set["title"] {
			patch.Title = title
		}
		if set["due"] {
			patch.DueDate = due
		}
		if set["priority"] {
			p := task.Priority(*priority)
			patch.Priority = &p
		}
		if set["notes"] {
			patch.Notes = notes
		}
		if set["status"] {
			s := task.Status(*status)
			patch.Status = &s
		}
		t, err := m.Edit(ctx, *id, patch)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "updated task %s (%s)\n", t.ID, t.Status)
		return nil

	case "start", "complete", "delete":
		fs := cli.newFlagSet("task " + sub)
		id := fs.String("id", "", "task id")
		set, err := parse(fs, rest)
		if err != nil {
			return err
		}
		if err := requireFlag(fs, set, "id"); err != nil {
			return err
		}
		switch sub {
		case "start":
			_, err = m.Start(ctx, *id)
		case "complete":
			_, err = m.Complete(ctx, *id)
		default:
			err = m.Delete(ctx, *id)
		}
		return err

	case "list", "overdue":
		fs := cli.newFlagSet("task " + sub)
		status := fs.String("status", "", "only tasks with this status")
		if _, err := parse(fs, rest); err != nil {
			return err
		}
		var tasks []task.Task
		switch {
		case sub == "overdue":
			tasks = m.Overdue()
		case *status != "":
			tasks = m.ListByStatus(task.Status(*status))
		default:
			tasks = m.List()
		}
		w := cli.table()
		fmt.Fprintln(w, "ID\tTITLE\tDUE\tPRIORITY\tSTATUS")
		for _, t := range tasks {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.DueDate, t.Priority, t.Status)
		}
		return w.Flush()
	}

	fmt.Fprintln(cli.out, "usage: task add|edit|list|start|complete|delete|overdue")
	return ErrHelp
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADES
// ══════════════════════════════════════════════════════════════════════════════

func (cli *CommandLine) runGrade(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	m := cli.hub.Grades

	switch sub {
	case "add", "edit":
		fs := cli.newFlagSet("grade " + sub)
		id := fs.Int64("id", 0, "grade id (edit only)")
		year := fs.Int("year", 0, "academic year")
		semester := fs.String("semester", "", "semester name")
		gpa := fs.Float64("gpa", 0, "GPA between 0 and 4")
		date := fs.String("date", "", "date, YYYY-MM-DD")
		notes := fs.String("notes", "", "notes")
		set, err := parse(fs, rest)
		if err != nil {
			return err
		}

		if sub == "add" {
			g := grade.Grade{Year: *year, Semester: *semester, Date: *date, Notes: *notes}
			if set["gpa"] {
				g.GPA = grade.GPA(*gpa)
			}
			g, err = m.Add(ctx, g)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "added grade %d\n", g.ID)
			return nil
		}

		if err := requireFlag(fs, set, "id"); err != nil {
			return err
		}
		var patch grade.Patch
		if set["year"] {
			patch.Year = year
		}
		if set["semester"] {
			patch.Semester = semester
		}
		if set["gpa"] {
			patch.GPA = gpa
		}
		if set["date"] {
			patch.Date = date
		}
		if set["notes"] {
			patch.Notes = notes
		}
		_, err = m.Edit(ctx, *id, patch)
		return err

	case "delete":
		fs := cli.newFlagSet("grade delete")
		id := fs.Int64("id", 0, "grade id")
		set, err := parse(fs, rest)
		if err != nil {
			return err
		}
		if err := requireFlag(fs, set, "id"); err != nil {
			return err
		}
		return m.Delete(ctx, *id)

	case "list":
		w := cli.table()
		fmt.Fprintln(w, "ID\tYEAR\tSEMESTER\tGPA\tDATE")
		for _, g := range m.List() {
			fmt.Fprintf(w, "%d\t%d\t%s\t%.2f\t%s\n", g.ID, g.Year, g.Semester, g.Value(), g.Date)
		}
		return w.Flush()

	case "stats":
		a := m.Analytics()
		if a.Count == 0 {
			fmt.Fprintln(cli.out, "no grades recorded")
			return nil
		}
		fmt.Fprintf(cli.out, "grades %d  current %.2f  previous %.2f  average %.2f  highest %.2f  lowest %.2f  trend %s\n",
			a.Count, a.Current, a.Previous, a.Average, a.Highest, a.Lowest, a.Trend)
		return nil
	}

	fmt.Fprintln(cli.out, "usage: grade add|edit|list|delete|stats")
	return ErrHelp
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

func (cli *CommandLine) runSession(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	m := cli.hub.Sessions

	switch sub {
	case "add":
		fs := cli.newFlagSet("session add")
		title := fs.String("title", "", "title")
		date := fs.String("date", "", "date, YYYY-MM-DD")
		at := fs.String("time", "", "start time, HH:MM")
		duration := fs.Int("duration", 0, "length in minutes")
		location := fs.String("location", "", "location")
		description := fs.String("description", "", "description")
		repeat := fs.String("repeat", "", "daily, weekly or monthly")
		interval := fs.Int("interval", 1, "repeat every N units")
		count := fs.Int("count", 0, "number of occurrences")
		until := fs.String("until", "", "last date, YYYY-MM-DD")
		if _, err := parse(fs, rest); err != nil {
			return err
		}

		s := session.Session{
			Title:           *title,
			Date:            *date,
			Time:            *at,
			DurationMinutes: *duration,
			Location:        *location,
			Description:     *description,
		}
		if *repeat != "" {
			s.IsRecurring = true
			s.RecurrenceRule = &session.RecurrenceRule{
				Frequency: session.Frequency(*repeat),
				Interval:  *interval,
				Count:     *count,
				Until:     *until,
			}
		}
		added, err := m.Add(ctx, s)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "scheduled %d session(s)\n", len(added))
		return nil

	case "delete":
		fs := cli.newFlagSet("session delete")
		id := fs.String("id", "", "session id")
		set, err := parse(fs, rest)
		if err != nil {
			return err
		}
		if err := requireFlag(fs, set, "id"); err != nil {
			return err
		}
		return m.Delete(ctx, *id)

	case "list", "upcoming":
		sessions := m.List()
		if sub == "upcoming" {
			sessions = m.Upcoming()
		}
		w := cli.table()
		fmt.Fprintln(w, "ID\tTITLE\tDATE\tTIME\tLOCATION")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Title, s.Date, s.Time, s.Location)
		}
		return w.Flush()
	}

	fmt.Fprintln(cli.out, "usage: session add|list|upcoming|delete")
	return ErrHelp
}

// ══════════════════════════════════════════════════════════════════════════════
// CALENDAR
// ══════════════════════════════════════════════════════════════════════════════

func (cli *CommandLine) runEvent(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	m := cli.hub.Calendar

	switch sub {
	case "add":
		fs := cli.newFlagSet("event add")
		title := fs.String("title", "", "title")
		date := fs.String("date", "", "date or date-time")
		location := fs.String("location", "", "location")
		description := fs.String("description", "", "description")
		if _, err := parse(fs, rest); err != nil {
			return err
		}
		e, err := m.Add(ctx, calendar.Event{Title: *title, Date: *date, Location: *location, Description: *description})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "added event %s\n", e.ID)
		return nil

	case "delete":
		fs := cli.newFlagSet("event delete")
		id := fs.String("id", "", "event id")
		set, err := parse(fs, rest)
		if err != nil {
			return err
		}
		if err := requireFlag(fs, set, "id"); err != nil {
			return err
		}
		return m.Delete(ctx, *id)

	case "list", "day", "upcoming":
		fs := cli.newFlagSet("event " + sub)
		date := fs.String("date", "", "day, YYYY-MM-DD (day only)")
		limit := fs.Int("limit", 5, "maximum events (upcoming only)")
		set, err := parse(fs, rest)
		if err != nil {
			return err
		}

		var events []calendar.Event
		switch sub {
		case "day":
			if err := requireFlag(fs, set, "date"); err != nil {
				return err
			}
			day, err := timeutil.Parse(*date)
			if err != nil {
				return fmt.Errorf("invalid -date: %w", err)
			}
			events = m.EventsOn(day)
		case "upcoming":
			events = m.Upcoming(*limit)
		default:
			events = m.List()
		}

		w := cli.table()
		fmt.Fprintln(w, "ID\tTITLE\tDATE\tLOCATION")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.Title, e.Date, e.Location)
		}
		return w.Flush()
	}

	fmt.Fprintln(cli.out, "usage: event add|list|day|upcoming|delete")
	return ErrHelp
}

// ══════════════════════════════════════════════════════════════════════════════
// SETTINGS & VIEW
// ══════════════════════════════════════════════════════════════════════════════

func (cli *CommandLine) runSettings(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	st := cli.hub.State

	switch sub {
	case "show":
		s := st.Settings()
		fmt.Fprintf(cli.out, "theme=%s notifications=%t calendarView=%s language=%s view=%s\n",
			s.Theme, s.Notifications, s.CalendarView, s.Language, st.CurrentView())
		return nil

	case "set":
		fs := cli.newFlagSet("settings set")
		theme := fs.String("theme", "", "light or dark")
		notifications := fs.Bool("notifications", true, "enable notifications")
		calendarView := fs.String("calendar-view", "", "month, week or day")
		language := fs.String("language", "", "language tag, e.g. en")
		set, err := parse(fs, rest)
		if err != nil {
			return err
		}

		var patch settings.Partial
		if set["theme"] {
			patch.Theme = theme
		}
		if set["notifications"] {
			patch.Notifications = notifications
		}
		if set["calendar-view"] {
			patch.CalendarView = calendarView
		}
		if set["language"] {
			patch.Language = language
		}
		_, err = st.UpdateSettings(ctx, patch)
		return err
	}

	fmt.Fprintln(cli.out, "usage: settings show|set")
	return ErrHelp
}

func (cli *CommandLine) runView(ctx context.Context, args []string) error {
	if len(args) != 2 || args[0] != "set" {
		fmt.Fprintln(cli.out, "usage: view set overview|grades|assignments|calendar|training")
		return ErrHelp
	}
	return cli.hub.State.SetView(ctx, settings.View(args[1]))
}

// ══════════════════════════════════════════════════════════════════════════════
// JOURNAL
// ══════════════════════════════════════════════════════════════════════════════

func (cli *CommandLine) runNote(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	j := cli.hub.Journal

	switch sub {
	case "add":
		fs := cli.newFlagSet("note add")
		title := fs.String("title", "", "title")
		body := fs.String("body", "", "text")
		if _, err := parse(fs, rest); err != nil {
			return err
		}
		_, err := j.AddNote(ctx, activity.Note{Title: *title, Body: *body})
		return err

	case "delete":
		fs := cli.newFlagSet("note delete")
		id := fs.String("id", "", "note id")
		set, err := parse(fs, rest)
		if err != nil {
			return err
		}
		if err := requireFlag(fs, set, "id"); err != nil {
			return err
		}
		n, err := strconv.ParseInt(*id, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid -id %q", *id)
		}
		return j.DeleteNote(ctx, n)

	case "list":
		notes, err := j.Notes(ctx)
		if err != nil {
			return err
		}
		w := cli.table()
		fmt.Fprintln(w, "ID\tTITLE\tCREATED\tSYNCED")
		for _, n := range notes {
			fmt.Fprintf(w, "%d\t%s\t%s\t%t\n", n.ID, n.Title, n.CreatedAt.Format("2006-01-02 15:04"), !n.PendingSync)
		}
		return w.Flush()
	}

	fmt.Fprintln(cli.out, "usage: note add|list|delete")
	return ErrHelp
}

func (cli *CommandLine) runActivity(ctx context.Context, args []string) error {
	sub, rest := subcommand(args)
	j := cli.hub.Journal

	switch sub {
	case "list":
		fs := cli.newFlagSet("activity list")
		limit := fs.Int("limit", 10, "maximum entries")
		if _, err := parse(fs, rest); err != nil {
			return err
		}
		acts, err := j.Activities(ctx, *limit)
		if err != nil {
			return err
		}
		for _, a := range acts {
			fmt.Fprintf(cli.out, "%s  %s\n", a.CreatedAt.Format("2006-01-02 15:04"), a.Description)
		}
		return nil

	case "streak":
		s, err := j.Streak(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "current streak %d day(s), longest %d\n", s.Current, s.Longest)
		return nil

	case "today":
		p, err := j.Today(ctx)
		if err != nil {
			return err
		}
		parts := make([]string, 0, len(p.ByType))
		for t, n := range p.ByType {
			parts = append(parts, fmt.Sprintf("%s=%d", t, n))
		}
		sort.Strings(parts)
		fmt.Fprintf(cli.out, "%d activities today %s\n", p.Total, strings.Join(parts, " "))
		return nil
	}

	fmt.Fprintln(cli.out, "usage: activity list|streak|today")
	return ErrHelp
}

func (cli *CommandLine) runSync(ctx context.Context, args []string) error {
	fs := cli.newFlagSet("sync")
	watch := fs.Bool("watch", false, "keep syncing until interrupted")
	every := fs.Duration("every", cli.hub.Config.Sync.Interval, "period with -watch")
	if _, err := parse(fs, args); err != nil {
		return err
	}

	if cli.hub.Syncer == nil {
		return errors.New("remote sync is not configured; set SYNC_DATABASE_URL")
	}
	if !*watch {
		res, err := cli.hub.Syncer.Sync(ctx)
		cli.printSyncResult(res)
		return err
	}

	schedule, err := scheduler.Every(*every)
	if err != nil {
		return err
	}
	sched := scheduler.New(scheduler.Config{Logger: cli.hub.Logger})
	job := cli.hub.Syncer.Job(func(res syncer.Result, err error) {
		if err == nil {
			cli.printSyncResult(res)
		}
	})
	if err := sched.Register(job, schedule); err != nil {
		return err
	}

	// First pass right away, then on schedule. A failed pass is logged and
	// retried on the next tick.
	_, _ = sched.RunNow(ctx, job.Name())
	if err := sched.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "syncing %s, press Ctrl+C to stop\n", schedule)
	<-ctx.Done()
	return sched.Stop()
}

func (cli *CommandLine) printSyncResult(res syncer.Result) {
	cli.mu.Lock()
	defer cli.mu.Unlock()

	keys := make([]string, 0, len(res.Collections))
	for key := range res.Collections {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		c := res.Collections[key]
		fmt.Fprintf(cli.out, "%s: pushed %d of %d, cleared %d\n", key, c.Pushed, c.Pending, c.Cleared)
	}
}
