package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var assignCmd = &cobra.Command{
	Use:   "assign <bd-name>",
	Short: "Claim exclusive editing rights on a bridge domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")

		ctx := context.Background()
		bd, err := app.store.GetBridgeDomainByName(ctx, args[0])
		if err != nil {
			return fmt.Errorf("loading %s: %w", args[0], err)
		}

		_, err = app.ws.Assign(ctx, bd, app.asUser, reason)
		logAuditEvent(app.asUser, "", "assign", err)
		if err != nil {
			return fmt.Errorf("assigning %s to %s: %w", bd.Name, app.asUser, err)
		}

		fmt.Println(green(fmt.Sprintf("%s assigned to %s.", bd.Name, app.asUser)))
		return nil
	},
}

var releaseCmd = &cobra.Command{
	Use:   "release <bd-name>",
	Short: "Give up an active assignment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		bd, err := app.store.GetBridgeDomainByName(ctx, args[0])
		if err != nil {
			return fmt.Errorf("loading %s: %w", args[0], err)
		}

		err = app.ws.Release(ctx, bd, app.asUser)
		logAuditEvent(app.asUser, "", "release", err)
		if err != nil {
			return fmt.Errorf("releasing %s: %w", bd.Name, err)
		}

		fmt.Println(green(fmt.Sprintf("%s released.", bd.Name)))
		return nil
	},
}

func init() {
	assignCmd.Flags().String("reason", "", "Free-text reason recorded with the assignment")
}
