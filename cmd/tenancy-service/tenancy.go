package main

import (
	"context"
	"fmt"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func bookCmd() *cobra.Command {
	var from, occupation string
	cmd := &cobra.Command{
		Use:   "book <unit-id>",
		Short: "Reserve a vacant unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unitID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("unit id: %w", err)
			}
			e, err := buildEngine()
			if err != nil {
				return err
			}
			defer e.app.Close()

			reservedFrom := utils.Today(utils.NewClock(e.app.Config.Location))
			if from != "" {
				if reservedFrom, err = time.Parse(dateLayout, from); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
			}
			var occupationID *uuid.UUID
			if occupation != "" {
				id, err := uuid.Parse(occupation)
				if err != nil {
					return fmt.Errorf("--occupation: %w", err)
				}
				occupationID = &id
			}
			booking, err := e.occupancy.BookUnit(context.Background(), unitID, occupationID, nil, reservedFrom)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "booking %s reserved unit %s from %s\n",
				booking.ID, unitID, booking.ReservedFrom.Format(dateLayout))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "reservation start date (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&occupation, "occupation", "", "occupation the unit is held for")
	return cmd
}

func noticeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notice <occupation-id> <vacating-date>",
		Short: "Record a notice to vacate for a CURRENT occupation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			occupationID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("occupation id: %w", err)
			}
			vacating, err := time.Parse(dateLayout, args[1])
			if err != nil {
				return fmt.Errorf("vacating date: %w", err)
			}
			e, err := buildEngine()
			if err != nil {
				return err
			}
			defer e.app.Close()

			today := utils.Today(utils.NewClock(e.app.Config.Location))
			notice, err := e.occupancy.GiveNotice(context.Background(), occupationID, today, vacating)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "notice %s: occupation %s vacates on %s\n",
				notice.ID, occupationID, notice.VacatingDate.Format(dateLayout))
			return nil
		},
	}
	return cmd
}
