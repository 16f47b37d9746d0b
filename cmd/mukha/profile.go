package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayusman/mukha/internal/threshold"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect or reset the active profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := activeProfile()
		if err != nil {
			return err
		}
		rs, err := db.Rules().List(p.ID)
		if err != nil {
			return err
		}
		history, err := db.Sessions().History(p.ID)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(p.Schema(rs, history), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var profileResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore default thresholds and forget calibration and history",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := activeProfile()
		if err != nil {
			return err
		}

		p.Thresholds = threshold.Defaults()
		p.NeutralPose = nil
		p.Calibrated = nil
		p.LastCalibrated = nil
		if err := db.Profiles().Update(p); err != nil {
			return err
		}
		if err := db.Sessions().DeleteAll(p.ID); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Profile %q reset\n", p.Name)
		return nil
	},
}

var calibrationCmd = &cobra.Command{
	Use:   "calibration",
	Short: "Manage stored calibration",
}

var calibrationClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the neutral pose and the calibrated gesture thresholds",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := activeProfile()
		if err != nil {
			return err
		}

		p.NeutralPose = nil
		p.Calibrated = nil
		p.LastCalibrated = nil
		if err := db.Profiles().Update(p); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Calibration cleared; it is re-learned on the next session")
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileShowCmd, profileResetCmd)
	calibrationCmd.AddCommand(calibrationClearCmd)
	rootCmd.AddCommand(profileCmd, calibrationCmd)
}
