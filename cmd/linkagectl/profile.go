package main

import (
	"fmt"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/linkage-va-hub/linkage/backend/go-services/internal/profile"
	"github.com/spf13/cobra"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "profile", Short: "Profile completeness tools"}
	completion := &cobra.Command{
		Use:   "completion",
		Short: "Compute the completion percentage of a profile JSON document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString("file")
			kind, _ := cmd.Flags().GetString("kind")
			email, _ := cmd.Flags().GetString("email")

			var c profile.Completion
			switch kind {
			case models.RoleVA:
				var va models.VA
				if err := readJSONFile(file, &va); err != nil {
					return err
				}
				c = profile.VA(&va, email)
			case models.RoleBusiness:
				var b models.Business
				if err := readJSONFile(file, &b); err != nil {
					return err
				}
				c = profile.Business(&b)
			default:
				return fmt.Errorf("unknown kind %q (va or business)", kind)
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"completion": c,
				"canMessage": profile.CanMessage(c),
			})
		},
	}
	completion.Flags().StringP("file", "f", "", "profile JSON document, - for stdin")
	completion.Flags().StringP("kind", "k", models.RoleVA, "va or business")
	completion.Flags().String("email", "", "owning account e-mail, used to reject names that repeat it")
	_ = completion.MarkFlagRequired("file")
	cmd.AddCommand(completion)
	return cmd
}
