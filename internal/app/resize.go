package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wsltools/vhdm/internal/journal"
	"github.com/wsltools/vhdm/internal/output"
	"github.com/wsltools/vhdm/internal/tracking"
	"github.com/wsltools/vhdm/internal/wsl"
)

var resizeSize string

var resizeCmd = &cobra.Command{
	Use:   "resize <path>",
	Short: "Resize a detached VHD",
	Long: `Resizes a VHD file. The disk must be detached; resizing an attached
image corrupts it. Growing the image does not grow the filesystem
inside it; run resize2fs (or the equivalent) after re-attaching.`,
	Args: cobra.ExactArgs(1),
	RunE: runResize,
}

func init() {
	resizeCmd.Flags().StringVar(&resizeSize, "size", "", "new size, e.g. 20G (required)")
	resizeCmd.MarkFlagRequired("size")
	RootCmd.AddCommand(resizeCmd)
}

func runResize(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	path := e.resolvePath(args[0])

	uuid, err := e.store.LookupUUIDByPath(path)
	if err != nil && !errors.Is(err, tracking.ErrNotFound) {
		return err
	}
	if err == nil && uuid != "" {
		attached, err := e.observer.IsAttached(uuid)
		if err != nil {
			return err
		}
		if attached {
			return fmt.Errorf("%s is attached; detach it before resizing", path)
		}
	}

	spinner := output.NewSpinner(fmt.Sprintf("Resizing %s to %s", path, resizeSize))
	spinner.Start()
	err = wsl.ResizeVHD(path, resizeSize)
	spinner.Stop()
	if err != nil {
		return err
	}

	e.record(journal.OpResize, path, "", "", resizeSize)
	fmt.Printf("Resized %s to %s\n", path, resizeSize)
	return nil
}
