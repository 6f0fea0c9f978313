// Package main provides echoctl, the administration CLI for the PhonoEcho
// data directory.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/okian/phonoecho/internal/adapters/dataset"
	"github.com/okian/phonoecho/internal/adapters/repository"
	"github.com/okian/phonoecho/internal/config"
	"github.com/okian/phonoecho/pkg/logger"
)

const (
	defaultAttemptLimit = 20
	dayLayout           = "2006-01-02"
)

var (
	dataDir      string
	auditLogPath string
	bcryptCost   int

	password string

	historyLesson int
	historyDay    string
	outputFormat  string

	attemptsLesson int
	attemptsLimit  int
)

var errUnknownFormat = errors.New("unknown output format")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "echoctl",
		Short:         "Manage PhonoEcho users, lessons and practice history",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return applyConfig(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default: data_dir from config)")
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "", "attempt log path (default: audit_log_path from config)")
	rootCmd.PersistentFlags().IntVar(&bcryptCost, "bcrypt-cost", 0, "password hashing cost (default: bcrypt_cost from config)")

	rootCmd.AddCommand(newUserCmd())
	rootCmd.AddCommand(newLessonsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newAttemptsCmd())

	return rootCmd
}

// applyConfig fills flags the user left unset from the service config.
func applyConfig(cmd *cobra.Command) error {
	if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return err
	}
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cmd.Flags().Changed("data-dir") {
		dataDir = cfg.DataDir
	}
	if !cmd.Flags().Changed("audit-log") {
		auditLogPath = cfg.AuditLogPath
	}
	if !cmd.Flags().Changed("bcrypt-cost") {
		bcryptCost = cfg.BcryptCost
	}
	return nil
}

func openRepository(opts ...repository.Option) *repository.FileRepository {
	opts = append([]repository.Option{
		repository.WithBcryptCost(bcryptCost),
		repository.WithLogger(logger.Named("echoctl")),
	}, opts...)
	return repository.NewFileRepository(dataDir, opts...)
}

// ---- user ----

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	addCmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE:  runUserAdd,
	}
	addCmd.Flags().StringVar(&password, "password", "", "password of the new account")
	_ = addCmd.MarkFlagRequired("password")

	resetCmd := &cobra.Command{
		Use:   "reset-password NAME",
		Short: "Replace an account's password",
		Args:  cobra.ExactArgs(1),
		RunE:  runUserReset,
	}
	resetCmd.Flags().StringVar(&password, "password", "", "new password")
	_ = resetCmd.MarkFlagRequired("password")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List account names",
		Args:  cobra.NoArgs,
		RunE:  runUserList,
	}

	userCmd.AddCommand(addCmd, resetCmd, listCmd)
	return userCmd
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	user, err := openRepository().Register(cmd.Context(), args[0], password)
	if err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", user.Name)
	return nil
}

func runUserReset(cmd *cobra.Command, args []string) error {
	if err := openRepository().ResetPassword(cmd.Context(), args[0], password); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", args[0])
	return nil
}

func runUserList(cmd *cobra.Command, _ []string) error {
	names, err := openRepository().ListUsers(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}

// ---- lessons ----

func newLessonsCmd() *cobra.Command {
	lessonsCmd := &cobra.Command{
		Use:   "lessons",
		Short: "Inspect a user's lessons",
	}
	lessonsCmd.AddCommand(&cobra.Command{
		Use:   "list USER",
		Short: "List lessons in index order",
		Args:  cobra.ExactArgs(1),
		RunE:  runLessonsList,
	})
	return lessonsCmd
}

func runLessonsList(cmd *cobra.Command, args []string) error {
	repo := openRepository()
	if _, err := repo.GetUser(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	ds, err := dataset.Load(repo.Layout().LearningDir(args[0]))
	if err != nil {
		return fmt.Errorf("failed to load lessons: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tNAME\tTEXT\tVIDEO")
	for _, l := range ds.Lessons {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", l.Index, l.Name, l.TextPath, l.VideoPath)
	}
	return tw.Flush()
}

// ---- history ----

func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect saved practice history",
	}

	showCmd := &cobra.Command{
		Use:   "show USER",
		Short: "Print a lesson's scores and error buckets for one day",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}
	showCmd.Flags().IntVar(&historyLesson, "lesson", 0, "zero-based lesson index")
	showCmd.Flags().StringVar(&historyDay, "day", "", "practice day YYYY-MM-DD (default: today)")
	showCmd.Flags().StringVarP(&outputFormat, "output", "o", "yaml", "output format: json or yaml")

	historyCmd.AddCommand(showCmd)
	return historyCmd
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	day := time.Now()
	if historyDay != "" {
		parsed, err := time.ParseInLocation(dayLayout, historyDay, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --day: %w", err)
		}
		day = parsed
	}

	repo := openRepository(repository.WithClock(func() time.Time { return day }))
	state, found, err := repo.History(args[0]).LoadLesson(cmd.Context(), historyLesson)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if !found {
		return fmt.Errorf("no history for lesson %d on %s", historyLesson, day.Format(dayLayout))
	}
	return render(cmd.OutOrStdout(), state)
}

// ---- attempts ----

func newAttemptsCmd() *cobra.Command {
	attemptsCmd := &cobra.Command{
		Use:   "attempts",
		Short: "Query the attempt log",
	}

	listCmd := &cobra.Command{
		Use:   "list USER",
		Short: "List a lesson's attempts, newest first",
		Args:  cobra.ExactArgs(1),
		RunE:  runAttemptsList,
	}
	listCmd.Flags().IntVar(&attemptsLesson, "lesson", 0, "zero-based lesson index")
	listCmd.Flags().IntVar(&attemptsLimit, "limit", defaultAttemptLimit, "maximum rows")
	listCmd.Flags().StringVarP(&outputFormat, "output", "o", "yaml", "output format: json or yaml")

	attemptsCmd.AddCommand(listCmd)
	return attemptsCmd
}

func runAttemptsList(cmd *cobra.Command, args []string) error {
	if auditLogPath == "" {
		return errors.New("attempt log is disabled (audit_log_path is empty)")
	}
	ctx := cmd.Context()
	l, err := repository.OpenAttemptLog(ctx, auditLogPath)
	if err != nil {
		return fmt.Errorf("failed to open attempt log: %w", err)
	}
	defer func() {
		if cerr := l.Close(); cerr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed to close attempt log: %v\n", cerr)
		}
	}()

	rows, err := l.List(ctx, args[0], attemptsLesson, attemptsLimit)
	if err != nil {
		return fmt.Errorf("failed to list attempts: %w", err)
	}
	return render(cmd.OutOrStdout(), rows)
}

// render writes v in the selected output format. YAML output keeps the JSON
// field names so both formats read the same.
func render(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	switch outputFormat {
	case "json":
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		var generic any
		if err := json.Unmarshal(b, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", errUnknownFormat, outputFormat)
	}
}
