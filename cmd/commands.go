package main

import (
	"bufio"
	"context"
	"errors"
	"expvar"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/timoknapp/badminton-buddy/pkg/api"
	"github.com/timoknapp/badminton-buddy/pkg/config"
	"github.com/timoknapp/badminton-buddy/pkg/dashboard"
	"github.com/timoknapp/badminton-buddy/pkg/logger"
	"github.com/timoknapp/badminton-buddy/pkg/metrics"
	"github.com/timoknapp/badminton-buddy/pkg/models"
	"github.com/timoknapp/badminton-buddy/pkg/scheduler"
	"github.com/timoknapp/badminton-buddy/pkg/session"
	"github.com/timoknapp/badminton-buddy/pkg/tournament"
	"github.com/timoknapp/badminton-buddy/pkg/util"
)

type command func(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error

var commands = map[string]command{
	"login":       cmdLogin,
	"signup":      cmdSignup,
	"logout":      cmdLogout,
	"whoami":      cmdWhoami,
	"partners":    cmdPartners,
	"book":        cmdBook,
	"slots":       cmdSlots,
	"join-slot":   cmdJoinSlot,
	"history":     cmdHistory,
	"day":         cmdDay,
	"tournaments": cmdTournaments,
	"leaderboard": cmdLeaderboard,
	"calendar":    cmdCalendar,
	"dashboard":   cmdDashboard,
	"watch":       cmdWatch,
	"stats":       cmdStats,
}

func cmdLogin(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw, err := orPrompt(*password, "Password: ")
	if err != nil {
		return err
	}
	u, err := a.session.Login(ctx, *email, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", u.Name, u.Role)
	return nil
}

func cmdSignup(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw, err := orPrompt(*password, "Password: ")
	if err != nil {
		return err
	}
	u, err := a.session.Signup(ctx, *name, *email, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s! You are signed in.\n", u.Name)
	return nil
}

func cmdLogout(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, ok := a.session.User(); !ok {
		fmt.Fprintln(a.out, "Not logged in.")
		return nil
	}
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	withStats := fs.Bool("stats", false, "also fetch your stats from the server")
	if err := fs.Parse(args); err != nil {
		return err
	}
	u, err := a.session.Require()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s>  id=%d  role=%s\n", u.Name, u.Email, u.UserID, u.Role)
	if !*withStats {
		return nil
	}
	st, err := a.api.UserStats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "skill %d  wins %d/%d (%.0f%%)  friendly %d  tournament %d\n",
		st.SkillRating, st.Wins, st.TotalMatches, st.WinRatePercent, st.FriendlyMatches, st.TournamentMatches)
	return nil
}

// windowFlags registers -date/-start/-end and returns a func building the ISO window.
func windowFlags(fs *flag.FlagSet) func() (string, string, error) {
	date := fs.String("date", util.ToYMD(time.Now()), "date (YYYY-MM-DD)")
	start := fs.String("start", "", "start time (HH:MM)")
	end := fs.String("end", "", "end time (HH:MM)")
	return func() (string, string, error) {
		s, e := util.BuildISO(*date, *start), util.BuildISO(*date, *end)
		if !util.ValidWindow(s, e) {
			return "", "", errors.New("a date, a start and a later end time are required")
		}
		return s, e, nil
	}
}

func cmdPartners(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	window := windowFlags(fs)
	maxDiff := fs.Int("max-skill-diff", 0, "maximum skill difference (0 = server default)")
	limit := fs.Int("limit", 0, "maximum results (0 = server default)")
	pick := fs.Int("pick", 0, "user id to carry over into the next booking")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.session.Require(); err != nil {
		return err
	}
	start, end, err := window()
	if err != nil {
		return err
	}

	res, err := a.api.FindPartners(ctx, api.PartnerQuery{StartTime: start, EndTime: end, MaxSkillDiff: *maxDiff, Limit: *limit})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Your skill rating: %d\n", res.Me.SkillRating)
	if len(res.Partners) == 0 {
		fmt.Fprintln(a.out, "No partners available in that window.")
		return nil
	}
	tw := table(a)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tSKILL")
	for _, p := range res.Partners {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", p.UserID, p.Name, p.Email, p.SkillRating)
	}
	tw.Flush()

	if *pick == 0 {
		return nil
	}
	pf := models.BookingPrefill{OpponentID: *pick, StartTime: start, EndTime: end}
	for _, p := range res.Partners {
		if p.UserID == *pick {
			pf.OpponentName = p.Name
		}
	}
	if err := a.prefills.Stash(pf); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Saved for booking. Run: bbclient book -court <id>")
	return nil
}

func cmdBook(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	court := fs.Int("court", 1, "court id")
	opponent := fs.Int("opponent", 0, "opponent user id (0 = open slot)")
	date := fs.String("date", "", "date (YYYY-MM-DD)")
	start := fs.String("start", "", "start time (HH:MM)")
	end := fs.String("end", "", "end time (HH:MM)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.session.Require(); err != nil {
		return err
	}

	opponentSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "opponent" {
			opponentSet = true
		}
	})

	// the prefill stays until a booking goes through, so a refused attempt can be retried
	pf, err := a.prefills.Peek()
	if err != nil {
		return err
	}
	if pf != nil {
		fmt.Fprintln(a.out, session.PrefillNote(*pf))
		if !opponentSet {
			*opponent = pf.OpponentID
		}
		pd, ps := util.SplitISO(pf.StartTime)
		_, pe := util.SplitISO(pf.EndTime)
		*date, *start, *end = orDefault(*date, pd), orDefault(*start, ps), orDefault(*end, pe)
	}

	req := api.BookingRequest{
		CourtID:    *court,
		OpponentID: *opponent,
		StartTime:  util.BuildISO(*date, *start),
		EndTime:    util.BuildISO(*date, *end),
	}
	if req.CourtID <= 0 || !util.ValidWindow(req.StartTime, req.EndTime) {
		return errors.New("a court, a date, a start and a later end time are required")
	}
	res, err := a.api.BookMatch(ctx, req)
	if err != nil {
		return err
	}
	if pf != nil {
		if _, err := a.prefills.Take(); err != nil {
			logger.Warn("Could not clear booking prefill: %v", err)
		}
	}
	fmt.Fprintln(a.out, res.Summary())
	return nil
}

func cmdSlots(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	window := windowFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.session.Require(); err != nil {
		return err
	}
	start, end, err := window()
	if err != nil {
		return err
	}
	slots, err := a.api.OpenSlots(ctx, start, end)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		fmt.Fprintln(a.out, "No open slots.")
		return nil
	}
	tw := table(a)
	fmt.Fprintln(tw, "MATCH\tCOURT\tHOST\tFROM\tTO")
	for _, s := range slots {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", s.MatchID, s.CourtID, s.HostName, util.ClockLabel(s.StartTime), util.ClockLabel(s.EndTime))
	}
	return tw.Flush()
}

func cmdJoinSlot(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	match := fs.Int("match", 0, "match id of the open slot")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.session.Require(); err != nil {
		return err
	}
	msg, err := a.api.JoinSlot(ctx, *match)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, orDefault(msg.Message, "Joined."))
	return nil
}

func cmdHistory(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	query := fs.String("q", "", "filter by player name, id or tournament id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.session.Require(); err != nil {
		return err
	}
	rows, err := a.api.MatchHistory(ctx)
	if err != nil {
		return err
	}
	printMatches(a, dashboard.FilterHistory(rows, *query))
	return nil
}

func cmdDay(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	date := fs.String("date", util.ToYMD(time.Now()), "date (YYYY-MM-DD)")
	court := fs.Int("court", 0, "only this court (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.session.Require(); err != nil {
		return err
	}
	day, err := a.api.MatchesByDay(ctx, *date, *court)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Bookings on %s\n", orDefault(day.Date, *date))
	printMatches(a, day.Items)
	return nil
}

func cmdTournaments(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	action := "list"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		action, args = args[0], args[1:]
	}
	id := fs.Int("id", 0, "tournament id (match id for result)")
	name := fs.String("name", "", "name (create)")
	desc := fs.String("description", "", "description (create)")
	maxPlayers := fs.Int("max-players", 16, "maximum players (create)")
	court := fs.Int("court", 0, "court for round one (start)")
	startAt := fs.String("start-time", "", "ISO start of round one (start)")
	minutes := fs.Int("match-minutes", 0, "minutes per match (start)")
	winner := fs.Int("winner", 0, "winner user id (result)")
	score := fs.String("score", "", "score, e.g. 21-15 21-18 (result)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	u, err := a.session.Require()
	if err != nil {
		return err
	}

	switch action {
	case "list":
		var board tournament.Board
		if err := board.Refresh(ctx, a.api, false); err != nil {
			return err
		}
		if *id > 0 && !board.Select(*id) {
			return fmt.Errorf("tournament %d not found", *id)
		}
		sel, _ := board.Selected()
		tw := table(a)
		fmt.Fprintln(tw, " \tID\tNAME\tSTATUS\tMAX")
		for _, t := range board.Items() {
			mark := " "
			if t.TournamentID == sel.TournamentID {
				mark = "*"
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\n", mark, t.TournamentID, t.Name, t.Status, t.MaxPlayers)
		}
		return tw.Flush()
	case "create":
		if !tournament.CanCreate(u, *name, *maxPlayers) {
			return errors.New("creating a tournament needs an admin account, a name and more than one player")
		}
		res, err := a.api.CreateTournament(ctx, api.TournamentDraft{Name: *name, Description: *desc, MaxPlayers: *maxPlayers})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s (id %d)\n", orDefault(res.Message, "Tournament created"), res.TournamentID)
	case "join":
		msg, err := a.api.JoinTournament(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, orDefault(msg.Message, "Joined."))
	case "start":
		res, err := a.api.StartTournament(ctx, *id, api.StartOptions{CourtID: *court, StartTime: *startAt, MatchMinutes: *minutes})
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, res.Message)
		printMatches(a, res.MatchesCreated)
	case "matches":
		res, err := a.api.TournamentMatches(ctx, *id)
		if err != nil {
			return err
		}
		printMatches(a, res.Matches)
	case "result":
		msg, err := a.api.ReportMatchResult(ctx, *id, api.MatchResult{WinnerID: *winner, Score: *score})
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, orDefault(msg.Message, "Result saved."))
	case "complete":
		res, err := a.api.CompleteTournament(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s (%d matches)\n", res.Message, res.TotalMatches)
	default:
		return fmt.Errorf("unknown tournaments action %q (list, create, join, start, matches, result, complete)", action)
	}
	return nil
}

func cmdLeaderboard(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	id := fs.Int("tournament", 0, "show one tournament's standings instead")
	query := fs.String("q", "", "filter by name or user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.session.Require(); err != nil {
		return err
	}

	tw := table(a)
	if *id > 0 {
		rows, err := a.api.TournamentLeaderboard(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "#\tNAME\tWINS\tPLAYED")
		for i, r := range rows {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", i+1, r.Name, r.Wins, r.MatchesPlayed)
		}
		return tw.Flush()
	}

	rows, err := a.api.Leaderboard(ctx)
	if err != nil {
		return err
	}
	rank := make(map[int]int, len(rows))
	for i, r := range rows {
		rank[r.UserID] = i + 1
	}
	fmt.Fprintln(tw, "#\tNAME\tWINS\tMATCHES\tWIN%\tSKILL")
	for _, r := range dashboard.FilterLeaderboard(rows, *query) {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\n", rank[r.UserID], r.Name, r.Wins, r.TotalMatches, r.WinRate(), r.SkillRating)
	}
	return tw.Flush()
}

func cmdCalendar(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	action := "status"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		action, args = args[0], args[1:]
	}
	email := fs.String("google-email", "", "Google account email (connect)")
	access := fs.String("access-token", "", "OAuth access token (connect)")
	refresh := fs.String("refresh-token", "", "OAuth refresh token (connect)")
	expiry := fs.String("expiry", "", "token expiry, ISO (connect)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.session.Require(); err != nil {
		return err
	}

	switch action {
	case "status":
		st, err := a.api.CalendarStatus(ctx)
		if err != nil {
			return err
		}
		if !st.Connected {
			fmt.Fprintln(a.out, "Google Calendar: not connected")
			return nil
		}
		fmt.Fprintf(a.out, "Google Calendar: connected as %s\n", st.GoogleAccountEmail)
		if st.TokenExpiry != nil {
			fmt.Fprintf(a.out, "Token expires %s\n", *st.TokenExpiry)
		}
	case "connect":
		msg, err := a.api.CalendarConnect(ctx, api.CalendarCredentials{
			GoogleAccountEmail: *email,
			AccessToken:        *access,
			RefreshToken:       *refresh,
			TokenExpiry:        *expiry,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, orDefault(msg.Message, "Calendar connected."))
	default:
		return fmt.Errorf("unknown calendar action %q (status, connect)", action)
	}
	return nil
}

func cmdDashboard(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	u, err := a.session.Require()
	if err != nil {
		return err
	}
	s, err := dashboard.Load(ctx, a.api, u.UserID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Hi %s\n\n", u.Name)
	fmt.Fprintf(a.out, "Bookings: %d  Played: %d  Wins: %d  Win rate: %d%%\n", s.AllCount, s.PlayedCount, s.Wins, s.WinRate)
	if s.Rank != nil {
		fmt.Fprintf(a.out, "Rank: #%d  Skill: %d  Leaderboard: %d / %d\n", *s.Rank, *s.SkillRating, *s.LbWins, *s.LbMatches)
	} else {
		fmt.Fprintln(a.out, "Rank: -")
	}
	if len(s.Preview) > 0 {
		fmt.Fprintln(a.out, "\nRecent:")
		printMatches(a, s.Preview)
	}
	return nil
}

func cmdWatch(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	spec := fs.String("cron", a.cfg.WatchCron, "cron spec for the refresh")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.session.Require(); err != nil {
		return err
	}

	cfg := scheduler.FromConfig(a.cfg)
	cfg.CronSpec = *spec
	s, err := scheduler.New(cfg, a.api)
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", *spec, err)
	}

	if a.cfg.DebugAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc(metrics.StatsPath, metrics.StatsHandler)
		mux.Handle(metrics.DebugVarsPath, expvar.Handler())
		srv := &http.Server{Addr: a.cfg.DebugAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("Debug endpoints on http://%s%s", a.cfg.DebugAddr, metrics.StatsPath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Debug server failed: %v", err)
			}
		}()
		defer srv.Close()
	}

	hup := make(chan os.Signal, 1)
	if len(reloadSignals) > 0 {
		signal.Notify(hup, reloadSignals...)
		defer signal.Stop(hup)
	}

	s.Start()
	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case <-hup:
			if err := reloadWatch(s); err != nil {
				logger.Error("Reload failed, keeping cron=%s: %v", s.GetConfig().CronSpec, err)
			}
		}
	}
	s.Stop()

	last, runs := s.Last()
	fmt.Fprintf(a.out, "Stopped after %d refresh(es); last fetched %d row(s)\n", runs, last.Total())
	return nil
}

// reloadWatch re-reads the configuration and applies the log level and cron spec to a running watch.
func reloadWatch(s *scheduler.Scheduler) error {
	cfg, err := config.Reload(os.Getenv("BB_ENV_FILE"))
	if err != nil {
		return err
	}
	logger.SetLogLevelFromString(cfg.LogLevel)
	if err := s.Reload(scheduler.FromConfig(cfg)); err != nil {
		return err
	}
	logger.Info("Configuration reloaded (cron=%s, log level=%s)", s.GetConfig().CronSpec, logger.GetLogLevel())
	return nil
}

func cmdStats(ctx context.Context, a *app, fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	stats, err := a.store.GetCacheStatistics()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "API:      %s\n", a.cfg.BaseURL)
	fmt.Fprintf(a.out, "Backend:  %s\n", a.cfg.SessionBackend)
	fmt.Fprintf(a.out, "Session:  %s\n", a.session.State())
	fmt.Fprintf(a.out, "Stored:   identity=%d prefill=%d cookie_hosts=%d cookies=%d\n",
		stats["identity"], stats["prefill"], stats["cookie_hosts"], stats["cookies"])

	snap := metrics.Snapshot()
	fmt.Fprintf(a.out, "Requests: %d (errors %d, transport failures %d)\n", snap.TotalRequests, snap.TotalErrors, snap.TransportFailures)
	return nil
}

func printMatches(a *app, rows []models.Match) {
	if len(rows) == 0 {
		fmt.Fprintln(a.out, "No matches.")
		return
	}
	tw := table(a)
	fmt.Fprintln(tw, "MATCH\tCOURT\tDATE\tTIME\tPLAYERS\tSTATUS")
	for _, m := range rows {
		date, from := util.SplitISO(m.StartTime)
		_, to := util.SplitISO(m.EndTime)
		players := m.Player1Name
		if m.IsOpenSlot() {
			players += " vs (open)"
		} else if m.Player2Name != nil {
			players += " vs " + *m.Player2Name
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s-%s\t%s\t%s\n", m.MatchID, m.CourtID, date, from, to, players, matchStatus(m))
	}
	tw.Flush()
}

func matchStatus(m models.Match) string {
	switch {
	case m.Played() && m.Score != nil:
		return fmt.Sprintf("won by %d (%s)", *m.WinnerID, *m.Score)
	case m.Played():
		return fmt.Sprintf("won by %d", *m.WinnerID)
	case m.TournamentID != nil:
		return "tournament"
	default:
		return "pending"
	}
}

func table(a *app) *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

// orPrompt returns v, or reads one line from stdin when v is empty.
func orPrompt(v, prompt string) (string, error) {
	if v != "" {
		return v, nil
	}
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
