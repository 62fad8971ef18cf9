package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yanniedog/blueberry/internal/globals"
	"github.com/yanniedog/blueberry/internal/models"
	"github.com/yanniedog/blueberry/internal/vendor"
)

// vendorCmd represents the vendor command
var vendorCmd = &cobra.Command{
	Use:   "vendor",
	Short: "Resolve device manufacturers",
}

// vendorLookupCmd represents the vendor lookup command
var vendorLookupCmd = &cobra.Command{
	Use:   "lookup <mac>",
	Short: "Resolve the manufacturer of an address",
	Long: `Resolve the manufacturer of an address using the local vendor table first and
the remote lookup service second.

Examples:
  blueberry vendor lookup 00:1A:2B:3C:4D:5E
  blueberry vendor lookup 001a2b3c4d5e`,
	Args: cobra.ExactArgs(1),
	RunE: runVendorLookup,
}

func runVendorLookup(cmd *cobra.Command, args []string) error {
	mac, err := models.NormalizeMAC(args[0])
	if err != nil {
		return err
	}

	resolver := newResolver(globals.Settings, globals.Logger)

	name, err := resolver.Lookup(cmd.Context(), mac)
	if errors.Is(err, vendor.ErrNotFound) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\tunknown\n", mac)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", mac, name)
	return nil
}

func init() {
	rootCmd.AddCommand(vendorCmd)
	vendorCmd.AddCommand(vendorLookupCmd)
}
