package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"hskmaster/internal/app"
	"hskmaster/internal/config"
	"hskmaster/internal/logging"
	"hskmaster/internal/models"
	"hskmaster/internal/service"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	name := os.Args[1]
	cmd, ok := commands[name]
	if !ok {
		printUsage()
		os.Exit(1)
	}

	fs := pflag.NewFlagSet(name, pflag.ExitOnError)
	config.RegisterFlags(fs)
	printMetrics := fs.Bool("metrics", false, "print metrics in the Prometheus text format afterwards")
	run := cmd.setup(fs)
	fs.Parse(os.Args[2:])

	cfg, err := config.LoadWithFlags(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	err = run(ctx, a)
	if err == nil && (*printMetrics || name == "metrics") {
		err = a.Metrics.WriteText(os.Stdout)
	}
	if cerr := a.Close(); cerr != nil {
		log.WithError(cerr).Warn("failed to close stores")
	}
	if err != nil {
		log.Fatalf("%s failed: %v", name, err)
	}
}

type runFunc func(ctx context.Context, a *app.App) error

type command struct {
	usage string
	setup func(fs *pflag.FlagSet) runFunc
}

var commands = map[string]command{
	"stats":      {"Daily or weekly practice summary", statsCommand},
	"progress":   {"Streak, XP and level", progressCommand},
	"mastery":    {"Per-character mastery at one HSK level", masteryCommand},
	"characters": {"Every practiced character, best first", charactersCommand},
	"struggling": {"Characters that need more practice", strugglingCommand},
	"quiz":       {"Generate a quiz weighted towards weak words", quizCommand},
	"tests":      {"Bundled practice tests and their history", testsCommand},
	"grade":      {"Grade and save answers to a practice test", gradeCommand},
	"clear":      {"Delete old or all learning records", clearCommand},
	"premium":    {"Show or change the premium flag", premiumCommand},
	"metrics":    {"Print store metrics", metricsCommand},
}

func statsCommand(fs *pflag.FlagSet) runFunc {
	date := fs.String("date", "", "day to summarise as YYYY-MM-DD (default: today)")
	week := fs.Bool("week", false, "summarise today and the previous six days")

	return func(ctx context.Context, a *app.App) error {
		if *week {
			days, err := a.Stats.WeeklyStats(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tATTEMPTS\tCORRECT\tACCURACY\tCHARACTERS")
			for _, d := range days {
				fmt.Fprintf(w, "%s\t%d\t%d\t%.1f%%\t%d\n", d.Date, d.TotalAttempts, d.CorrectCount, d.AccuracyRate, d.CharactersLearned)
			}
			return w.Flush()
		}

		day := time.Now().In(a.Config.Location)
		if *date != "" {
			parsed, err := time.ParseInLocation("2006-01-02", *date, a.Config.Location)
			if err != nil {
				return fmt.Errorf("invalid date %q: %w", *date, err)
			}
			day = parsed
		}

		d, err := a.Stats.DailyStats(ctx, day)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d attempts, %d correct, %d wrong, %.1f%% accuracy, %d characters\n",
			d.Date, d.TotalAttempts, d.CorrectCount, d.WrongCount, d.AccuracyRate, d.CharactersLearned)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "GAME\tATTEMPTS\tCORRECT\tACCURACY")
		for _, gameType := range models.GameTypes {
			g, ok := d.GameBreakdown[gameType]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%.2f%%\n", gameType, g.Attempts, g.Correct, g.Accuracy)
		}
		return w.Flush()
	}
}

func progressCommand(fs *pflag.FlagSet) runFunc {
	return func(ctx context.Context, a *app.App) error {
		p, err := a.Tracker.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Level %d (%s), %s XP total, %s XP today\n",
			p.CurrentLevel, p.LevelTitle, humanize.Comma(int64(p.TotalXP)), humanize.Comma(int64(p.TodayXP)))
		fmt.Printf("Next level: %.0f%% there, %s XP to go\n", p.LevelProgress*100, humanize.Comma(int64(p.XPToNextLevel)))
		fmt.Printf("Streak: %d days (longest %d)\n", p.CurrentStreak, p.LongestStreak)
		if p.IsStreakAtRisk {
			fmt.Println("Practice today to keep your streak!")
		}
		return nil
	}
}

func masteryCommand(fs *pflag.FlagSet) runFunc {
	level := fs.Int("level", 1, "HSK level")

	return func(ctx context.Context, a *app.App) error {
		mastery, err := a.Stats.WordMasteryByLevel(ctx, *level)
		if err != nil {
			return err
		}
		coverage, err := a.Stats.LevelCoverage(ctx, *level, len(a.Assets.Vocabulary(*level)))
		if err != nil {
			return err
		}

		characters := make([]string, 0, len(mastery))
		for c := range mastery {
			characters = append(characters, c)
		}
		sort.Slice(characters, func(i, j int) bool {
			if mastery[characters[i]] != mastery[characters[j]] {
				return mastery[characters[i]] > mastery[characters[j]]
			}
			return characters[i] < characters[j]
		})

		fmt.Printf("HSK %d: %d words practiced, %.1f%% of the vocabulary\n", *level, len(mastery), coverage*100)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, c := range characters {
			fmt.Fprintf(w, "%s\t%.0f%%\n", c, mastery[c]*100)
		}
		return w.Flush()
	}
}

func charactersCommand(fs *pflag.FlagSet) runFunc {
	limit := fs.Int("limit", 20, "number of characters to show, 0 for all")
	watch := fs.Bool("watch", false, "keep printing as new answers are recorded")

	return func(ctx context.Context, a *app.App) error {
		if !*watch {
			progress, err := a.Stats.CharacterProgress(ctx)
			if err != nil {
				return err
			}
			return printProgress(progress, *limit)
		}

		for progress := range a.Stats.WatchCharacterProgress(ctx) {
			fmt.Printf("--- %s\n", time.Now().Format(time.TimeOnly))
			if err := printProgress(progress, *limit); err != nil {
				return err
			}
		}
		return nil
	}
}

func printProgress(progress []models.CharacterProgress, limit int) error {
	if limit > 0 && len(progress) > limit {
		progress = progress[:limit]
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHARACTER\tPINYIN\tCORRECT\tMASTERY\tLAST SEEN")
	for _, p := range progress {
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%.1f%%\t%s\n",
			p.Character, p.Pinyin, p.CorrectCount, p.TotalAttempts, p.Mastery, humanize.Time(p.LastSeen))
	}
	return w.Flush()
}

func strugglingCommand(fs *pflag.FlagSet) runFunc {
	limit := fs.Int("limit", 10, "number of characters to show, 0 for all")

	return func(ctx context.Context, a *app.App) error {
		words, err := a.Practice.StrugglingWords(ctx, *limit)
		if err != nil {
			return err
		}
		if len(words) == 0 {
			fmt.Println("No struggling characters yet")
			return nil
		}
		return printProgress(words, 0)
	}
}

func quizCommand(fs *pflag.FlagSet) runFunc {
	level := fs.Int("level", 1, "HSK level")
	count := fs.Int("count", 10, "number of questions")

	return func(ctx context.Context, a *app.App) error {
		words := a.Assets.Vocabulary(*level)
		if len(words) == 0 {
			return fmt.Errorf("no vocabulary for HSK %d", *level)
		}

		questions, err := a.Practice.Quiz(ctx, words, *count)
		if err != nil {
			return err
		}
		for i, q := range questions {
			fmt.Printf("%d. %s: %s\n", i+1, q.Type.Label(), q.Prompt)
			for j, opt := range q.Options {
				fmt.Printf("   %c) %s\n", 'A'+j, opt)
			}
		}
		return nil
	}
}

func testsCommand(fs *pflag.FlagSet) runFunc {
	level := fs.Int("level", 1, "HSK level")

	return func(ctx context.Context, a *app.App) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TEST\tQUESTIONS\tATTEMPTS\tPASSED\tBEST")
		for _, name := range a.Assets.AvailableTests(*level) {
			test := a.Assets.Test(name)
			if test == nil {
				continue
			}
			stats, err := a.Tests.Stats(ctx, test.TestID)
			if err != nil {
				return err
			}
			best := "-"
			if stats.BestScorePercentage != nil {
				best = fmt.Sprintf("%.1f%%", *stats.BestScorePercentage)
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", name, test.QuestionCount(), stats.TotalAttempts, stats.PassedAttempts, best)
		}
		return w.Flush()
	}
}

func gradeCommand(fs *pflag.FlagSet) runFunc {
	testPath := fs.String("test", "", "test file relative to the assets directory, e.g. Hsk1Tests/H10901.json (required)")
	answers := fs.String("answers", "", "comma separated answers as number=answer, e.g. 1=A,2=B")
	elapsed := fs.Duration("time", 0, "time taken to complete the test")

	return func(ctx context.Context, a *app.App) error {
		if *testPath == "" {
			return fmt.Errorf("--test is required")
		}
		test, err := a.Assets.LoadTest(*testPath)
		if err != nil {
			return err
		}
		parsed, err := parseAnswers(*answers)
		if err != nil {
			return err
		}

		attempt, err := a.Tests.GradeAndSubmit(ctx, test, parsed, elapsed.Milliseconds())
		if err != nil {
			return err
		}

		outcome := "FAILED"
		if attempt.Passed {
			outcome = "PASSED"
		}
		fmt.Printf("%s %s: %d/%d (%.1f%%), listening %d, reading %d\n",
			attempt.TestID, outcome, attempt.TotalScore, attempt.TotalQuestions, attempt.Percentage(),
			attempt.ListeningScore, attempt.ReadingScore)
		for _, ans := range attempt.Answers {
			if !ans.IsCorrect {
				fmt.Printf("  %s #%d: answered %q, expected %q\n", ans.Section, ans.QuestionNumber, ans.UserAnswer, ans.CorrectAnswer)
			}
		}
		return nil
	}
}

// parseAnswers reads "1=A,2=B" into a question number to answer map
func parseAnswers(s string) (map[int]string, error) {
	answers := map[int]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		number, answer, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid answer %q, want number=answer", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(number))
		if err != nil {
			return nil, fmt.Errorf("invalid question number %q", number)
		}
		answers[n] = strings.TrimSpace(answer)
	}
	return answers, nil
}

func clearCommand(fs *pflag.FlagSet) runFunc {
	days := fs.Int("days", 0, "keep this many days of records (default: retention.days)")
	all := fs.Bool("all", false, "delete every learning record (WARNING: destructive)")

	return func(ctx context.Context, a *app.App) error {
		if *all {
			n, err := a.Learning.ClearAllData(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %s records\n", humanize.Comma(n))
			return nil
		}

		keep := *days
		if keep <= 0 {
			keep = a.Config.RetentionDays
		}
		n, err := a.Learning.ClearOldData(ctx, keep)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %s records older than %d days\n", humanize.Comma(n), keep)
		return nil
	}
}

func premiumCommand(fs *pflag.FlagSet) runFunc {
	toggle := fs.Bool("toggle", false, "flip the premium flag")
	set := fs.String("set", "", "set the premium flag to true or false")

	return func(ctx context.Context, a *app.App) error {
		switch {
		case *toggle:
			if _, err := a.Purchases.TogglePremium(ctx); err != nil {
				return err
			}
		case *set != "":
			value, err := strconv.ParseBool(*set)
			if err != nil {
				return fmt.Errorf("invalid --set value %q", *set)
			}
			if err := a.Purchases.SetPremium(ctx, value); err != nil {
				return err
			}
		}

		premium, err := a.Purchases.IsPremium(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Premium (%s): %t\n", service.ProductPremium, premium)
		return nil
	}
}

// metricsCommand runs the read views once so their query timings show up
func metricsCommand(fs *pflag.FlagSet) runFunc {
	return func(ctx context.Context, a *app.App) error {
		if _, err := a.Stats.WeeklyStats(ctx); err != nil {
			return err
		}
		_, err := a.Stats.CharacterProgress(ctx)
		return err
	}
}

func printUsage() {
	fmt.Println("HSK Master learning record tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  hsk <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%s\n", name, commands[name].usage)
	}
	w.Flush()

	fmt.Println()
	fmt.Println("Every command accepts --database-type, --database-path, --counters-backend,")
	fmt.Println("--assets-path, --timezone, --log-level and --metrics. Settings can also come from")
	fmt.Println("HSK_* environment variables, a .env file or config.yaml.")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  hsk stats --week")
	fmt.Println("  hsk mastery --level 2")
	fmt.Println("  hsk grade --test Hsk1Tests/H10901.json --answers 1=A,2=B,3=C --time 25m")
	fmt.Println("  hsk clear --days 30")
}
