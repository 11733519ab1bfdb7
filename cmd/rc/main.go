package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"recount/internal/app"
	"recount/internal/config"
	"recount/internal/db"
	"recount/internal/engine"
	"recount/internal/engine/auth"
	"recount/internal/logging"
)

var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "rc",
	Short: "Recount CLI",
	Long: `Recount records physical inventory counts and reconciles repeated counts.
- Items: one count record per product; each holds up to a few counts.
- Reconciliation: the last two counts must agree within tolerance (0.25% with a scale, 0.01% by hand).
- Statuses: PENDING -> IN_PROGRESS -> COUNTED, or NEEDS_REVIEW when two counts disagree and a third is due.
- Scope: users see their own items; leaders and admins see every item of their sector.
Commands acting on items run as the user given by --as (or RECOUNT_AS).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		cfg, err := app.ResolveConfig(workspace, viper.GetViper())
		if err != nil {
			return err
		}
		l, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("RECOUNT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("workspace", "w", ".", "workspace directory")
	flags.Bool("json", false, "output JSON")
	flags.String("as", "", "email of the acting user")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("db-driver", "", "database driver (sqlite, mysql)")
	flags.String("db-dsn", "", "database DSN")
	flags.String("redis-addr", "", "redis address for the catalog cache")
	for _, name := range []string{"workspace", "json", "as", "log-level", "db-driver", "db-dsn", "redis-addr"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(leadersCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(itemCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	c := &cobra.Command{Use: "config", Short: "Inspect or create recount.yml"}
	c.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"), viper.GetViper())
			if err != nil {
				return err
			}
			return printJSON(cfg)
		},
	})
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default recount.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("Wrote", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	c.AddCommand(initCmd)
	return c
}

func userCmd() *cobra.Command {
	c := &cobra.Command{Use: "user", Short: "Manage accounts"}
	c.AddCommand(userRegisterCmd())
	c.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				users, err := e.Users(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := newTable("ID", "Name", "Email", "Role", "Sector")
				for _, u := range users {
					tw.AppendRow(table.Row{u.ID, u.Name, u.Email, u.Role, u.Sector})
				}
				tw.Render()
				return nil
			})
		},
	})
	return c
}

func userRegisterCmd() *cobra.Command {
	var opts engine.RegisterOptions
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Password == "" {
				opts.Password = os.Getenv("RECOUNT_PASSWORD")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.Register(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "login email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password (or RECOUNT_PASSWORD)")
	cmd.Flags().StringVar(&opts.Role, "role", "", "user, leader or admin")
	cmd.Flags().StringVar(&opts.Sector, "sector", "", "sector")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func leadersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leaders",
		Short: "List team leaders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				leaders, err := e.Leaders(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(leaders)
				}
				tw := newTable("Name", "Since")
				for _, l := range leaders {
					tw.AppendRow(table.Row{l.Name, l.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
}

// --- helpers ---

func openApp(ctx context.Context) (*app.App, error) {
	workspace := viper.GetString("workspace")
	cfg, err := app.ResolveConfig(workspace, viper.GetViper())
	if err != nil {
		return nil, err
	}
	return app.Open(ctx, workspace, cfg, logger)
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a.Engine)
}

// withScope runs fn as the user named by --as.
func withScope(ctx context.Context, fn func(context.Context, engine.Engine, auth.Scope) error) error {
	email := strings.TrimSpace(viper.GetString("as"))
	if email == "" {
		return fmt.Errorf("--as (or RECOUNT_AS) is required")
	}
	return withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
		scope, err := e.ScopeForEmail(ctx, email)
		if err != nil {
			return err
		}
		return fn(ctx, e, scope)
	})
}

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(header))
	return tw
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	return renderFields(os.Stdout, v)
}

// renderFields prints the JSON fields of v as a Field/Value table, sorted by
// field name. Values that do not encode to a JSON object are printed as JSON.
func renderFields(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		var out bytes.Buffer
		if err := json.Indent(&out, b, "", "  "); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, out.String())
		return err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Field", "Value"})
	for _, k := range keys {
		tw.AppendRow(table.Row{k, fieldText(fields[k])})
	}
	tw.Render()
	return nil
}

func fieldText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
