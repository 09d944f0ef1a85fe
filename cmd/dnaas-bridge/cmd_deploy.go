package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dnaas-network/bridge/pkg/deploy"
	"github.com/dnaas-network/bridge/pkg/drift"
	"github.com/dnaas-network/bridge/pkg/model"
)

var deployCmd = &cobra.Command{
	Use:   "deploy <bd-name>",
	Short: "Plan, commit-check, and commit pending edits to a bridge domain",
	Long: `Deploy runs the two-phase protocol against the devices touched by
--add/--remove: every device's commit-check must report a real pending
change before any device commits. A device reporting "no changes" is
routed to the drift resolver chosen by --on-drift (default: sync).

Examples:
  dnaas-bridge deploy g_visaev_v251 --add DNAAS-LEAF-B15:ge100-0/0/31:251
  dnaas-bridge deploy g_visaev_v300 --add DNAAS-LEAF-B14:ge100-0/0/1:100:200
  dnaas-bridge deploy g_visaev_v251 --remove DNAAS-LEAF-B15:ge100-0/0/31`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		adds, _ := cmd.Flags().GetStringSlice("add")
		removes, _ := cmd.Flags().GetStringSlice("remove")
		onDrift, _ := cmd.Flags().GetString("on-drift")

		resolution, err := parseResolution(onDrift)
		if err != nil {
			return err
		}

		if len(adds) == 0 && len(removes) == 0 {
			return fmt.Errorf("nothing to deploy: pass at least one --add or --remove")
		}

		ctx := context.Background()
		bd, err := app.store.GetBridgeDomainByName(ctx, args[0])
		if err != nil {
			return fmt.Errorf("loading %s: %w", args[0], err)
		}

		session := &model.EditSession{BridgeDomainID: bd.ID}
		for _, spec := range adds {
			change, err := parseAddSpec(spec)
			if err != nil {
				return err
			}
			if err := app.ws.ApplyChange(ctx, bd, app.asUser, session, change); err != nil {
				return fmt.Errorf("applying %q: %w", spec, err)
			}
		}
		for _, spec := range removes {
			change, err := parseRemoveSpec(spec)
			if err != nil {
				return err
			}
			if err := app.ws.ApplyChange(ctx, bd, app.asUser, session, change); err != nil {
				return fmt.Errorf("applying %q: %w", spec, err)
			}
		}

		resolver := drift.New(app.inv, app.exec, app.store, app.scanCfg)
		orch := deploy.New(app.exec, app.store, resolver)

		decide := func(ctx context.Context, event *model.DriftEvent) model.Resolution {
			fmt.Println(yellow(fmt.Sprintf("drift on %s/%s: %s — resolving as %s", event.Device, event.Interface, event.Kind, resolution)))
			return resolution
		}

		dep, err := orch.Deploy(ctx, bd, session, decide)
		logAuditEvent(app.asUser, bd.Name, "deploy", err)
		if err != nil {
			return fmt.Errorf("deploying %s: %w", bd.Name, err)
		}

		return printDeployment(dep)
	},
}

func init() {
	deployCmd.Flags().StringSlice("add", nil, "device:interface:vlan or device:interface:outer:inner")
	deployCmd.Flags().StringSlice("remove", nil, "device:interface")
	deployCmd.Flags().String("on-drift", "sync", "Resolution when a device reports no pending change: sync, skip, override, abort")
}

func parseResolution(s string) (model.Resolution, error) {
	switch model.Resolution(strings.ToLower(s)) {
	case model.ResolveSync:
		return model.ResolveSync, nil
	case model.ResolveSkip:
		return model.ResolveSkip, nil
	case model.ResolveOverride:
		return model.ResolveOverride, nil
	case model.ResolveAbort:
		return model.ResolveAbort, nil
	default:
		return "", fmt.Errorf("invalid --on-drift %q: must be sync, skip, override, or abort", s)
	}
}

func parseAddSpec(spec string) (model.Change, error) {
	parts := strings.Split(spec, ":")
	switch len(parts) {
	case 3:
		vlan, err := strconv.Atoi(parts[2])
		if err != nil {
			return model.Change{}, fmt.Errorf("invalid vlan in %q: %w", spec, err)
		}
		return model.Change{Kind: model.ChangeAddInterface, Device: parts[0], Interface: parts[1], VLANID: &vlan}, nil
	case 4:
		outer, err := strconv.Atoi(parts[2])
		if err != nil {
			return model.Change{}, fmt.Errorf("invalid outer vlan in %q: %w", spec, err)
		}
		inner, err := strconv.Atoi(parts[3])
		if err != nil {
			return model.Change{}, fmt.Errorf("invalid inner vlan in %q: %w", spec, err)
		}
		return model.Change{Kind: model.ChangeAddInterface, Device: parts[0], Interface: parts[1], OuterVLAN: &outer, InnerVLAN: &inner}, nil
	default:
		return model.Change{}, fmt.Errorf("invalid --add %q: want device:interface:vlan or device:interface:outer:inner", spec)
	}
}

func parseRemoveSpec(spec string) (model.Change, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 2 {
		return model.Change{}, fmt.Errorf("invalid --remove %q: want device:interface", spec)
	}
	return model.Change{Kind: model.ChangeRemoveInterface, Device: parts[0], Interface: parts[1]}, nil
}

func printDeployment(dep *model.DeploymentRecord) error {
	switch dep.Stage {
	case model.StageCommitted:
		fmt.Println(green(fmt.Sprintf("deployment %s committed.", dep.ID)))
	case model.StageFailed:
		fmt.Println(red(fmt.Sprintf("deployment %s failed; rollback plan recorded.", dep.ID)))
	case model.StageAborted:
		fmt.Println(red(fmt.Sprintf("deployment %s aborted before any device committed.", dep.ID)))
	default:
		fmt.Println(yellow(fmt.Sprintf("deployment %s ended in stage %s.", dep.ID, dep.Stage)))
	}

	for dev, r := range dep.Commit {
		status := green("committed")
		if !r.Committed {
			status = red("failed: " + dash(r.Err))
		}
		fmt.Printf("  %s: %s\n", dev, status)
	}
	return nil
}
