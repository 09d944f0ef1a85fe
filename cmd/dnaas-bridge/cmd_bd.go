package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dnaas-network/bridge/pkg/cli"
)

var bdCmd = &cobra.Command{
	Use:   "bd",
	Short: "Query persisted bridge domains",
}

var bdListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all known bridge domains",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		bds, err := app.store.ListAll(ctx)
		if err != nil {
			return fmt.Errorf("listing bridge domains: %w", err)
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(bds)
		}

		if len(bds) == 0 {
			fmt.Println("No bridge domains in the database. Run `dnaas-bridge discover full` first.")
			return nil
		}

		sort.Slice(bds, func(i, j int) bool { return bds[i].Name < bds[j].Name })

		t := cli.NewTable("NAME", "VLAN", "TYPE", "SCOPE", "MEMBERS", "STATUS")
		for _, bd := range bds {
			t.Row(bd.Name, strconv.Itoa(bd.VLANID), bd.DNAASType, bd.Scope, strconv.Itoa(len(bd.Members)), dash(bd.DeploymentStatus))
		}
		t.Flush()
		return nil
	},
}

var bdShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one bridge domain's members and metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		bd, err := app.store.GetBridgeDomainByName(ctx, args[0])
		if err != nil {
			return fmt.Errorf("loading %s: %w", args[0], err)
		}

		if app.jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(bd)
		}

		fmt.Printf("Bridge domain: %s\n", bold(bd.Name))
		fmt.Printf("  Username:   %s\n", dash(bd.Username))
		fmt.Printf("  VLAN:       %d\n", bd.VLANID)
		fmt.Printf("  Type:       %s\n", bd.DNAASType)
		fmt.Printf("  Topology:   %s\n", bd.TopologyType)
		fmt.Printf("  Scope:      %s\n", bd.Scope)
		fmt.Printf("  Status:     %s\n", dash(bd.DeploymentStatus))
		if len(bd.Warnings) > 0 {
			fmt.Printf("  Warnings:   %v\n", bd.Warnings)
		}

		fmt.Println("\n  Members:")
		t := cli.NewTable("DEVICE", "INTERFACE", "ADMIN", "OPER").WithPrefix("    ")
		for _, m := range bd.Members {
			t.Row(m.Device, m.Name, m.AdminStatus, m.OperStatus)
		}
		t.Flush()
		return nil
	},
}

func init() {
	bdCmd.AddCommand(bdListCmd, bdShowCmd)
}
