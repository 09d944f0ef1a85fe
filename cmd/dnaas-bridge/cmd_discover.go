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
	"github.com/dnaas-network/bridge/pkg/discovery"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Scan the fleet and consolidate bridge-domain fragments",
}

var discoverFullCmd = &cobra.Command{
	Use:   "full",
	Short: "Scan every device in the inventory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		result, err := discovery.FullScan(ctx, app.inv, app.exec, app.scanCfg)
		if err != nil {
			return fmt.Errorf("full scan: %w", err)
		}
		return storeAndPrintScan(ctx, result)
	},
}

var discoverDeviceCmd = &cobra.Command{
	Use:   "device <name>",
	Short: "Rescan a single device, optionally scoped to one bridge domain or interface prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bdName, _ := cmd.Flags().GetString("bd")
		ifBase, _ := cmd.Flags().GetString("interface")

		ctx := context.Background()
		result, err := discovery.TargetedScan(ctx, app.inv, app.exec, args[0], discovery.TargetSelector{
			BDName:        bdName,
			InterfaceBase: ifBase,
		}, app.scanCfg)
		if err != nil {
			return fmt.Errorf("targeted scan: %w", err)
		}
		return storeAndPrintScan(ctx, result)
	},
}

func init() {
	discoverDeviceCmd.Flags().String("bd", "", "Limit the scan to this bridge-domain name")
	discoverDeviceCmd.Flags().String("interface", "", "Limit the scan to interfaces with this base name")
	discoverCmd.AddCommand(discoverFullCmd, discoverDeviceCmd)
}

func storeAndPrintScan(ctx context.Context, result *discovery.ScanResult) error {
	for _, bd := range result.BridgeDomains {
		if err := app.store.UpsertBridgeDomain(ctx, bd); err != nil {
			return fmt.Errorf("persisting %s: %w", bd.Name, err)
		}
	}

	if app.jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	if len(result.Metadata.DevicesFailed) > 0 {
		fmt.Println(yellow(fmt.Sprintf("devices unreachable: %v", result.Metadata.DevicesFailed)))
	}

	sort.Slice(result.BridgeDomains, func(i, j int) bool {
		return result.BridgeDomains[i].Name < result.BridgeDomains[j].Name
	})

	t := cli.NewTable("NAME", "VLAN", "TYPE", "SCOPE", "MEMBERS")
	for _, bd := range result.BridgeDomains {
		t.Row(bd.Name, strconv.Itoa(bd.VLANID), bd.DNAASType, bd.Scope, strconv.Itoa(len(bd.Members)))
	}
	t.Flush()
	fmt.Printf("\n%d bridge domains consolidated from %d devices.\n", len(result.BridgeDomains), len(result.Metadata.DevicesScanned))
	return nil
}
