package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"exohabit/config"
	"exohabit/controller"
	apihttp "exohabit/http"
	"exohabit/monitoring"
	"exohabit/planet"
	"exohabit/tui"
)

func (a *app) serveCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local dashboard server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := apihttp.ServerConfigFrom(a.cfg)
			if port > 0 {
				cfg.Port = port
			}
			server, err := apihttp.NewServer(cfg, a.client(), a.logger)
			if err != nil {
				return err
			}
			a.watchConfig(cmd.Context(), func(c *config.Config) {
				if err := server.ApplyDisplay(c.Display); err != nil {
					a.logger.Warn("animation intervals not applied", zap.Error(err))
				}
			})
			a.logger.Info("scoring service", zap.String("base_url", a.cfg.API.BaseURL))

			if err := server.Run(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("exiting")
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
	return cmd
}

func (a *app) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.watchConfig(cmd.Context())
			return tui.Run(cmd.Context(), a.client(), a.cfg, a.logger)
		},
	}
}

func (a *app) predictCmd() *cobra.Command {
	var earth bool
	values := make(map[planet.Field]*string, len(planet.Fields))

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score one planet and print the result",
		Example: "  exohabit predict --pl_rade 1 --pl_eqt 288 --pl_orbper 365 --st_teff 5778 --st_mass 1 --st_rad 1\n" +
			"  exohabit predict --earth --pl_eqt 320",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := planet.RawValues{}
			if earth {
				raw = planet.EarthLike()
			}
			for f, v := range values {
				if cmd.Flags().Changed(string(f)) {
					raw[f] = *v
				}
			}

			display := monitoring.NewDisplay(a.cfg.Display.PredictionPlaceholder, 1, nil, a.logger)
			ctrl := controller.New(nil, a.client(), display, a.logger)
			ctrl.SetRankLimit(a.cfg.API.RankLimit)

			out := cmd.OutOrStdout()
			outcome, err := ctrl.SubmitValues(cmd.Context(), raw)
			var verr *planet.ValidationError
			switch {
			case errors.As(err, &verr):
				fmt.Fprintln(out, controller.MsgInvalidInput)
				if box := display.Snapshot().ErrorBox; box != "" {
					fmt.Fprintln(out, box)
				}
				return err
			case err != nil:
				fmt.Fprintln(out, display.Snapshot().Message)
				return err
			}
			fmt.Fprintln(out, outcome.Text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&earth, "earth", false, "start from Earth-like values")
	for _, f := range planet.Fields {
		values[f] = cmd.Flags().String(string(f), "", f.Label())
	}
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the aggregate catalogue statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.client().Stats(cmd.Context())
			if err != nil {
				return err
			}
			display := monitoring.NewDisplay(a.cfg.Display.PredictionPlaceholder, 1, nil, a.logger)
			display.ShowStats(*stats)
			panel := display.Snapshot().Stats

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total planets: %s\n", panel.Total)
			fmt.Fprintf(out, "Habitable:     %s\n", panel.Habitable)
			fmt.Fprintf(out, "Avg score:     %s\n", panel.AvgScore)
			return nil
		},
	}
}

func (a *app) rankCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Print the habitability leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				limit = a.cfg.API.RankLimit
			}
			ranking, err := a.client().Rank(cmd.Context(), limit)
			if err != nil {
				return err
			}
			display := monitoring.NewDisplay(a.cfg.Display.PredictionPlaceholder, 1, nil, a.logger)
			display.ShowRanking(*ranking)

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("#", "Planet", "Score", "Prediction")
			for i, row := range display.Snapshot().Ranking {
				t.Row(fmt.Sprint(i+1), row.Name, row.Score, row.Prediction)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of entries (default from config)")
	return cmd
}

func (a *app) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the scoring service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client().Ping(cmd.Context()); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "API offline")
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API OK")
			return nil
		},
	}
}
