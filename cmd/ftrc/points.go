package main

import (
	"context"
	"fmt"
	"text/tabwriter"
)

type pointsConfig struct {
	*rootConfig
}

func (cfg *pointsConfig) Exec(ctx context.Context, args []string) error {
	tw := tabwriter.NewWriter(cfg.stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintf(tw, "COLUMN\tTRACE POINT\n")
	for i, name := range cfg.points {
		fmt.Fprintf(tw, "%d\t%s\n", i, name)
	}
	return tw.Flush()
}
