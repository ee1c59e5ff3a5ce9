package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wsltools/vhdm/internal/journal"
	"github.com/wsltools/vhdm/internal/output"
	"github.com/wsltools/vhdm/internal/wsl"
)

var createSize string

var createCmd = &cobra.Command{
	Use:   "create <path>",
	Short: "Create a new VHDX file",
	Long: `Creates a new dynamically-sized VHDX file at the given Windows path.

The disk is not attached or tracked until the first 'vhdm attach'; create
only produces the file.

Examples:
  vhdm create C:\VMs\data.vhdx --size 10G
  vhdm create D:\scratch.vhdx --size 512M`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createSize, "size", "", "virtual disk size, e.g. 10G (required)")
	createCmd.MarkFlagRequired("size")
	RootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	path := e.resolvePath(args[0])

	spinner := output.NewSpinner(fmt.Sprintf("Creating %s", path))
	spinner.Start()
	err = wsl.CreateVHD(path, createSize)
	spinner.Stop()
	if err != nil {
		return err
	}

	e.record(journal.OpCreate, path, "", "", createSize)
	fmt.Printf("Created %s (%s)\n", path, createSize)
	fmt.Println("Run 'vhdm attach' to expose it as a block device.")
	return nil
}
