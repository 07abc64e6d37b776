// Package cmd - CLI command: matali services
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"matali-pricing/core/catalog"
	"matali-pricing/internal/config"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the service master with capacity and unit cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadServiceMaster()
		if err != nil {
			return err
		}
		return render(c.Services())
	},
}

var servicesClassifyCmd = &cobra.Command{
	Use:   "classify <label>...",
	Short: "Show which service key each label maps to",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadServiceMaster()
		if err != nil {
			return err
		}

		results := make([]catalog.Classification, 0, len(args))
		for _, label := range args {
			results = append(results, c.Classify(label))
		}
		if outputFormat == "json" {
			return render(results)
		}
		for _, cl := range results {
			if cl.Known {
				fmt.Printf("%-30s -> %s\n", cl.Label, cl.Key)
			} else {
				fmt.Printf("%-30s -> (unknown, priced as %s)\n", cl.Label, c.DefaultKey())
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(servicesCmd)
	servicesCmd.AddCommand(servicesClassifyCmd)
}

func loadServiceMaster() (*catalog.Catalog, error) {
	path := config.Get().Data.ServicesPath
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(path)
}
