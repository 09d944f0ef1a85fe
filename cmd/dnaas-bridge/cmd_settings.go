package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dnaas-network/bridge/pkg/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View and edit per-user CLI defaults",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		fmt.Printf("Settings file:         %s\n", settings.DefaultSettingsPath())
		fmt.Printf("Default inventory path: %s\n", s.GetInventoryPath())
		fmt.Printf("Default VLAN range:    %s\n", dash(s.DefaultVLANRange))
		fmt.Printf("Audit log path:        %s\n", s.GetAuditLogPath())
		return nil
	},
}

var settingsSetInventoryCmd = &cobra.Command{
	Use:   "set-inventory <path>",
	Short: "Persist a default inventory path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		s.DefaultInventoryPath = args[0]
		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Println(green("default inventory path saved."))
		return nil
	},
}

var settingsSetVLANRangeCmd = &cobra.Command{
	Use:   "set-vlan-range <range>",
	Short: "Persist a default VLAN range override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settings.Load()
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		s.DefaultVLANRange = args[0]
		if err := s.Save(); err != nil {
			return fmt.Errorf("saving settings: %w", err)
		}
		fmt.Println(green("default vlan range saved."))
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsSetInventoryCmd, settingsSetVLANRangeCmd)
}
