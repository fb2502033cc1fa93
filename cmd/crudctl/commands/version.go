package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/crudkit/version"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFlags(v); err != nil {
				return err
			}
			info := version.Get()
			w := cmd.OutOrStdout()
			switch v.GetString("output") {
			case "json":
				encoder := json.NewEncoder(w)
				encoder.SetIndent("", "  ")
				return encoder.Encode(info)
			case "yaml":
				encoder := yaml.NewEncoder(w)
				defer encoder.Close()
				return encoder.Encode(info)
			}
			_, err := fmt.Fprintf(w, "crudctl %s\n", info)
			return err
		},
	}
}
