package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/qworpa/qworpa/internal/api"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var routesOutput string

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the API URL table",
	Long:  `List the registered API routes in match order with their names and methods.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printRoutes(cmd.OutOrStdout(), routesOutput)
	},
}

func init() {
	routesCmd.Flags().StringVarP(&routesOutput, "output", "o", "table", "Output format: table, json, yaml")
}

type routeInfo struct {
	Name    string `json:"name" yaml:"name"`
	Method  string `json:"method" yaml:"method"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

func printRoutes(w io.Writer, format string) error {
	table, err := api.RouteTable()
	if err != nil {
		return err
	}

	var routes []routeInfo
	for _, r := range table.Routes() {
		routes = append(routes, routeInfo{Name: r.Name, Method: r.Method, Pattern: table.Prefix() + r.Pattern})
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(routes)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(routes)
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tMETHOD\tPATTERN")
		for _, r := range routes {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, r.Method, r.Pattern)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (supported: table, json, yaml)", format)
	}
}
