package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user-none/fmtrack/fm"
)

func newBankCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bank",
		Short: "Save or list sound banks",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "save <path>",
			Short: "Write the built-in bank to a file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := fm.SaveBankFile(args[0], fm.DefaultBank()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "list [path]",
			Short: "List the instruments of a bank file, or of the live bank",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var insts []fm.Instrument
				if len(args) == 1 {
					var err error
					if insts, err = fm.LoadBankFile(args[0]); err != nil {
						return err
					}
				} else {
					c, err := opts.newController()
					if err != nil {
						return err
					}
					insts = c.Bank()
				}
				w := cmd.OutOrStdout()
				for i, inst := range insts {
					fmt.Fprintf(w, "%3d  %s%s\n", i, inst.Name, instrumentTags(&inst))
				}
				return nil
			},
		},
	)
	return cmd
}
