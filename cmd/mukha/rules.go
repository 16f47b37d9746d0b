package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/mukha/internal/gesture"
	"github.com/ayusman/mukha/internal/rules"
)

var (
	ruleGesture  string
	ruleAction   string
	ruleParam    string
	ruleDisabled bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage gesture to action rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules in evaluation order",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := activeProfile()
		if err != nil {
			return err
		}
		list, err := db.Rules().List(p.ID)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tGESTURE\tACTION\tENABLED")
		for _, r := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", r.ID, r.Gesture, r.ActionName(), r.Enabled)
		}
		return w.Flush()
	},
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Bind a gesture to an action",
	Long: "Bind a gesture to an action.\n\nGestures: " + strings.Join(gesture.Names(), ", ") +
		"\nActions: " + strings.Join(rules.Actions, ", "),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := activeProfile()
		if err != nil {
			return err
		}

		r := &rules.Rule{
			Gesture: ruleGesture,
			Action:  ruleAction,
			Param:   ruleParam,
			Enabled: !ruleDisabled,
		}
		if err := db.Rules().Create(p.ID, r); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Added rule %s: %s -> %s\n", r.ID, r.Gesture, r.ActionName())
		return nil
	},
}

var rulesRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Delete a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := db.Rules().Delete(args[0]); err != nil {
			return fmt.Errorf("rule %s: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed rule %s\n", args[0])
		return nil
	},
}

func init() {
	rulesAddCmd.Flags().StringVar(&ruleGesture, "gesture", "", "gesture signal, e.g. smileLeft")
	rulesAddCmd.Flags().StringVar(&ruleAction, "action", "", "action, e.g. right-click")
	rulesAddCmd.Flags().StringVar(&ruleParam, "param", "", "text for type and read-text actions")
	rulesAddCmd.Flags().BoolVar(&ruleDisabled, "disabled", false, "add the rule disabled")
	rulesAddCmd.MarkFlagRequired("gesture")
	rulesAddCmd.MarkFlagRequired("action")

	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesRemoveCmd)
	rootCmd.AddCommand(rulesCmd)
}
