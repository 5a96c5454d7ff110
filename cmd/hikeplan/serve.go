package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	hikeplan "github.com/gezmi/plan-hikes"
	"github.com/gezmi/plan-hikes/httpapi"
	"github.com/gezmi/plan-hikes/model"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the planning API over HTTP",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", ":8080", "Listen address")
	rootCmd.AddCommand(serveCmd)
}

// cliProvider builds planners from the on-disk indexes, creating them
// on first use.
type cliProvider struct{}

func (cliProvider) PlannerFor(ctx context.Context, query model.HikeQuery) (*hikeplan.Planner, error) {
	return plannerFor(ctx, query)
}

func serve(cmd *cobra.Command, args []string) error {
	server := httpapi.NewServer(cliProvider{})
	slog.Info("listening", "addr", serveAddr)
	return http.ListenAndServe(serveAddr, server)
}
