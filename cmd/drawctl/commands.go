package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/AdamBeresnev/championship-draw/internal/db"
	"github.com/AdamBeresnev/championship-draw/internal/draw"
	"github.com/AdamBeresnev/championship-draw/internal/eventbus"
	"github.com/AdamBeresnev/championship-draw/internal/export"
	"github.com/AdamBeresnev/championship-draw/internal/logo"
	"github.com/AdamBeresnev/championship-draw/internal/roster"
	"github.com/AdamBeresnev/championship-draw/internal/service"
	"github.com/AdamBeresnev/championship-draw/internal/store"
	"github.com/AdamBeresnev/championship-draw/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
)

// env is what every command works against. Each drawctl run is its own
// context, so running servers pick its writes up through their watchers.
type env struct {
	db          *sqlx.DB
	repo        *store.StateStore
	bus         *eventbus.Bus
	tournaments *service.TournamentService
	draws       *service.DrawService
}

func openEnv(c *cli.Context) (*env, error) {
	database, err := db.Open(c.String("db"))
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(database.DB); err != nil {
		database.Close()
		return nil, err
	}

	repo := store.NewStateStore(database, "drawctl-"+uuid.NewString())
	bus := eventbus.New(slog.Default())
	return &env{
		db:          database,
		repo:        repo,
		bus:         bus,
		tournaments: service.NewTournamentService(repo, bus),
		draws:       service.NewDrawService(repo, bus, nil),
	}, nil
}

func (e *env) Close() {
	e.bus.Close()
	e.db.Close()
}

// withEnv opens the database around a command action
func withEnv(action func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, err := openEnv(c)
		if err != nil {
			return err
		}
		defer e.Close()
		return action(c, e)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "drawctl",
		Usage:     "run a championship draw from the terminal",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Usage:   "path to the SQLite database",
				Value:   "./championship.db",
				EnvVars: []string{"DATABASE_PATH"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
		Commands: []*cli.Command{
			statusCommand(),
			setCommand(),
			addClubCommand(),
			editClubCommand(),
			removeClubCommand(),
			transitionCommand("start", "open the draw", func(e *env) func(context.Context) (*draw.Snapshot, error) { return e.draws.Start }),
			transitionCommand("finish", "close the draw", func(e *env) func(context.Context) (*draw.Snapshot, error) { return e.draws.Finish }),
			transitionCommand("restart", "clear every assignment and go back to setup", func(e *env) func(context.Context) (*draw.Snapshot, error) { return e.draws.Restart }),
			drawCommand(),
			importCommand(),
			exportCommand(),
			watchCommand(),
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "print the tournament, its clubs and the draw positions",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the raw record"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			snapshot, err := e.tournaments.Snapshot(c.Context)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				enc := json.NewEncoder(c.App.Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(snapshot)
			}
			return printSnapshot(c.App.Writer, *snapshot)
		}),
	}
}

func setCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "change one setting: name, format, groups, clubsPerGroup or totalClubs",
		ArgsUsage: "<field> <value>",
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.NArg() != 2 {
				return errors.New("set takes a field and a value")
			}
			snapshot, err := e.tournaments.SetField(c.Context, draw.Field(c.Args().Get(0)), c.Args().Get(1))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s: %d clubs\n", snapshot.Tournament.Format, snapshot.Tournament.TotalClubs)
			return nil
		}),
	}
}

func addClubCommand() *cli.Command {
	return &cli.Command{
		Name:      "add-club",
		Usage:     "register a club",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "logo", Usage: "image file or URL"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.NArg() != 1 {
				return errors.New("add-club takes the club name")
			}
			logoRef, err := resolveLogo(c.Context, c.String("logo"))
			if err != nil {
				return err
			}
			club, err := e.tournaments.AddClub(c.Context, c.Args().First(), logoRef)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s\t%s\n", club.ID, club.Name)
			return nil
		}),
	}
}

func editClubCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit-club",
		Usage:     "rename a club or replace its logo",
		ArgsUsage: "<club-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name"},
			&cli.StringFlag{Name: "logo", Usage: "image file or URL"},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.NArg() != 1 {
				return errors.New("edit-club takes the club id")
			}
			var patch draw.ClubPatch
			if c.IsSet("name") {
				patch.Name = utils.Ptr(c.String("name"))
			}
			if c.IsSet("logo") {
				logoRef, err := resolveLogo(c.Context, c.String("logo"))
				if err != nil {
					return err
				}
				patch.LogoRef = utils.StringOrNil(logoRef)
			}
			club, err := e.tournaments.UpdateClub(c.Context, c.Args().First(), patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s\t%s\n", club.ID, club.Name)
			return nil
		}),
	}
}

func removeClubCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove-club",
		Usage:     "unregister a club",
		ArgsUsage: "<club-id>",
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.NArg() != 1 {
				return errors.New("remove-club takes the club id")
			}
			return e.tournaments.RemoveClub(c.Context, c.Args().First())
		}),
	}
}

func transitionCommand(name, usage string, pick func(e *env) func(context.Context) (*draw.Snapshot, error)) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: withEnv(func(c *cli.Context, e *env) error {
			snapshot, err := pick(e)(c.Context)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "draw is %s\n", snapshot.Status)
			return nil
		}),
	}
}

func drawCommand() *cli.Command {
	return &cli.Command{
		Name:      "draw",
		Usage:     "place a club in the next empty position",
		ArgsUsage: "<club-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "reveal", Usage: "wait for the reveal before returning"},
			&cli.DurationFlag{Name: "hold", Value: service.DefaultRevealHold},
			&cli.DurationFlag{Name: "exit", Value: service.DefaultRevealExit},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.NArg() != 1 {
				return errors.New("draw takes the club id")
			}

			revealed := make(chan struct{})
			hold, exit := c.Duration("hold"), c.Duration("exit")
			if !c.Bool("reveal") {
				hold, exit = 0, 0
			}
			session := service.NewDrawSession(e.draws, hold, exit, func(context.Context, service.Assignment) {
				close(revealed)
			})
			defer session.Close()

			assignment, err := session.Draw(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			snapshot, err := e.tournaments.Snapshot(c.Context)
			if err != nil {
				return err
			}
			title := draw.GroupTitle(snapshot.Tournament.Format, assignment.Position.Group)
			fmt.Fprintf(c.App.Writer, "%s slot %d: %s\n", title, assignment.Position.Slot, assignment.Club.Name)

			if c.Bool("reveal") {
				select {
				case <-revealed:
				case <-c.Context.Done():
				}
			}
			return nil
		}),
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "load settings and clubs from a YAML or XLSX roster",
		ArgsUsage: "<file>",
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.NArg() != 1 {
				return errors.New("import takes the roster file")
			}
			path := c.Args().First()

			var r *roster.Roster
			var err error
			switch strings.ToLower(filepath.Ext(path)) {
			case ".yaml", ".yml":
				var f *os.File
				f, err = os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				r, err = roster.ParseYAML(f)
			case ".xlsx":
				var data []byte
				data, err = os.ReadFile(path)
				if err != nil {
					return err
				}
				r, err = roster.ParseXLSX(data)
			default:
				return errors.New("roster must be a .yaml, .yml or .xlsx file")
			}
			if err != nil {
				return err
			}

			added, err := r.Apply(c.Context, e.tournaments)
			fmt.Fprintf(c.App.Writer, "imported %d clubs\n", added)
			return err
		}),
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "write the draw to an XLSX workbook, - for stdout",
		ArgsUsage: "<file>",
		Action: withEnv(func(c *cli.Context, e *env) error {
			if c.NArg() != 1 {
				return errors.New("export takes the output file")
			}
			snapshot, err := e.tournaments.Snapshot(c.Context)
			if err != nil {
				return err
			}

			if c.Args().First() == "-" {
				return export.WriteWorkbook(c.App.Writer, *snapshot)
			}
			f, err := os.Create(c.Args().First())
			if err != nil {
				return err
			}
			if err := export.WriteWorkbook(f, *snapshot); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		}),
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "print a line whenever another process changes the draw",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "interval", Value: store.DefaultPollInterval},
		},
		Action: withEnv(func(c *cli.Context, e *env) error {
			watcher := store.NewWatcher(e.db, e.repo.ContextID(), c.Duration("interval"), func(ctx context.Context, key string) {
				snapshot, err := e.repo.Load(ctx)
				if err != nil {
					slog.ErrorContext(ctx, "failed to reload draw", "error", err)
					return
				}
				fmt.Fprintf(c.App.Writer, "%s changed: %s, %d/%d positions filled\n",
					key, snapshot.Status, snapshot.FilledPositions(), len(snapshot.Positions))
			})

			err := watcher.Run(c.Context)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}),
	}
}

// resolveLogo passes URLs through and turns a local image file into a data URI
func resolveLogo(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "data:") || strings.Contains(ref, "://") {
		return ref, nil
	}

	f, err := os.Open(ref)
	if err != nil {
		return "", fmt.Errorf("failed to open logo: %w", err)
	}
	defer f.Close()
	return logo.DataURIConverter{}.Convert(ctx, mime.TypeByExtension(filepath.Ext(ref)), f)
}

func printSnapshot(w io.Writer, snapshot draw.Snapshot) error {
	t := snapshot.Tournament
	name := t.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(w, "%s\n%s draw, %s, %d/%d clubs registered, %d positions filled\n\n",
		name, t.Format, snapshot.Status, len(t.Clubs), t.TotalClubs, snapshot.FilledPositions())

	clubs := make(map[string]string, len(t.Clubs))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCLUB")
	for _, club := range t.Clubs {
		clubs[club.ID] = club.Name
		fmt.Fprintf(tw, "%s\t%s\n", club.ID, club.Name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tSLOT\tCLUB")
	for _, p := range snapshot.Positions {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", draw.GroupTitle(t.Format, p.Group), p.Slot, clubs[p.ClubID])
	}
	return tw.Flush()
}
