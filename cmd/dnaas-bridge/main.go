// dnaas-bridge is an operational CLI for the bridge-domain lifecycle
// manager: fleet discovery, exclusive-editing assignment, and two-phase
// deployment, organized as noun-group subcommands.
//
// Examples:
//
//	dnaas-bridge discover full
//	dnaas-bridge bd list
//	dnaas-bridge bd show g_visaev_v251
//	dnaas-bridge assign g_visaev_v251 --reason "adding uplink"
//	dnaas-bridge deploy g_visaev_v251 --add DNAAS-LEAF-B15:ge100-0/0/31:251
//	dnaas-bridge release g_visaev_v251
package main

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/dnaas-network/bridge/pkg/auth"
	"github.com/dnaas-network/bridge/pkg/cli"
	"github.com/dnaas-network/bridge/pkg/config"
	"github.com/dnaas-network/bridge/pkg/discovery"
	"github.com/dnaas-network/bridge/pkg/executor"
	"github.com/dnaas-network/bridge/pkg/inventory"
	"github.com/dnaas-network/bridge/pkg/settings"
	"github.com/dnaas-network/bridge/pkg/sshsession"
	"github.com/dnaas-network/bridge/pkg/store"
	"github.com/dnaas-network/bridge/pkg/util"
	"github.com/dnaas-network/bridge/pkg/version"
	"github.com/dnaas-network/bridge/pkg/workspace"
)

// App holds CLI state shared across all commands.
type App struct {
	// Option flags
	inventoryPath string
	dbPath        string
	vlanRange     string
	asUser        string
	jsonOutput    bool
	verbose       bool

	// Initialized state (set in PersistentPreRunE)
	settings *settings.Settings
	cfg      *config.Config
	inv      *inventory.Inventory
	store    *store.Store
	exec     *executor.Executor
	scanCfg  discovery.ScanConfig
	checker  *auth.Checker
	ws       *workspace.Workspace
}

var app = &App{}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "dnaas-bridge",
	Short:         "Bridge-domain lifecycle manager for DNOS devices",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if isVersionOrHelp(cmd) {
			return nil
		}

		var err error
		app.settings, err = settings.Load()
		if err != nil {
			util.Warnf("could not load settings: %v", err)
			app.settings = &settings.Settings{}
		}

		if app.inventoryPath == "" {
			app.inventoryPath = app.settings.GetInventoryPath()
		}
		if app.vlanRange == "" {
			app.vlanRange = app.settings.DefaultVLANRange
		}

		if app.verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}

		app.cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if app.inventoryPath != "" {
			app.cfg.InventoryPath = app.inventoryPath
		}
		if app.vlanRange != "" {
			app.cfg.GlobalVLANRange = app.vlanRange
		}
		if app.dbPath != "" {
			app.cfg.DBPath = app.dbPath
		}

		if isUnderCommand(cmd, "settings") {
			return nil
		}

		app.inv, err = inventory.Load(app.cfg.InventoryPath)
		if err != nil {
			return fmt.Errorf("loading inventory: %w", err)
		}

		app.store, err = store.Open(app.cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}

		app.scanCfg, err = discovery.NewScanConfigFromRange(app.cfg.GlobalVLANRange)
		if err != nil {
			return fmt.Errorf("parsing global vlan range: %w", err)
		}

		app.exec = executor.New(sshOpener(app), app.cfg.Parallelism, app.cfg.CommandTimeout)

		if app.asUser == "" {
			if u, uerr := user.Current(); uerr == nil {
				app.asUser = u.Username
			} else {
				app.asUser = "unknown"
			}
		}

		app.checker = auth.NewChecker(&auth.Config{SuperUsers: []string{app.asUser}})
		app.checker.SetUser(app.asUser)

		var lease *workspace.LeaseManager
		if app.cfg.RedisAddr != "" {
			lease = workspace.NewLeaseManager(app.cfg.RedisAddr, workspace.DefaultLeaseTTL)
		}
		app.ws = workspace.New(app.store, app.checker, lease)

		auditPath := app.settings.GetAuditLogPath()
		if l, aerr := newAuditLogger(auditPath, app.settings); aerr != nil {
			util.Warnf("could not initialize audit logging: %v", aerr)
		} else {
			setAuditLogger(l)
		}

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app.store != nil {
			return app.store.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&app.inventoryPath, "inventory", "i", "", "Device inventory YAML path")
	rootCmd.PersistentFlags().StringVar(&app.dbPath, "db", "", "sqlite database path")
	rootCmd.PersistentFlags().StringVar(&app.vlanRange, "vlan-range", "", "Global VLAN range, e.g. 2000-3999")
	rootCmd.PersistentFlags().StringVarP(&app.asUser, "user", "u", "", "Acting username (defaults to the OS user)")
	rootCmd.PersistentFlags().BoolVar(&app.jsonOutput, "json", false, "JSON output")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(
		versionCmd,
		discoverCmd,
		bdCmd,
		assignCmd,
		releaseCmd,
		deployCmd,
		auditCmd,
		settingsCmd,
	)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("dnaas-bridge dev build")
		} else {
			fmt.Printf("dnaas-bridge %s (%s)\n", version.Version, version.GitCommit)
		}
	},
}

// sshOpener builds an executor.Opener that dials a real DNOS device over
// SSH using the resolved inventory entry.
func sshOpener(a *App) executor.Opener {
	return func(ctx context.Context, device string) (executor.Session, error) {
		info, ok := a.inv.Get(device)
		if !ok {
			return nil, fmt.Errorf("device %q not found in inventory", device)
		}
		return sshsession.Open(ctx, info, sshsession.Options{
			ConnectTimeout: a.cfg.ConnectTimeout,
			CommandTimeout: a.cfg.CommandTimeout,
		})
	}
}

// Color helpers — delegate to pkg/cli
func green(s string) string  { return cli.Green(s) }
func yellow(s string) string { return cli.Yellow(s) }
func red(s string) string    { return cli.Red(s) }
func bold(s string) string   { return cli.Bold(s) }

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// isUnderCommand reports whether cmd or any of its ancestors is named name.
func isUnderCommand(cmd *cobra.Command, name string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == name {
			return true
		}
	}
	return false
}

func isVersionOrHelp(cmd *cobra.Command) bool {
	return isUnderCommand(cmd, "version") || isUnderCommand(cmd, "help")
}
