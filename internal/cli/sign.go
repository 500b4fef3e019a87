package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sharemeow/internal/signing"
	"sharemeow/internal/templates"
)

var signCmd = &cobra.Command{
	Use:   "sign template=<Name> [key=value...]",
	Short: "Print a signed GET URL for an image",
	Long: `Sign validates the parameters against the template registry and prints a
URL that renders the image on first fetch. The URL embeds an HS256 token
signed with SIGNING_SECRET.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(args)
		if err != nil {
			return err
		}
		if _, err := templates.NewRegistry(templates.DefaultFactories()).Resolve(params); err != nil {
			return &usageError{err}
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		signer, err := signing.New(cfg.SigningSecret)
		if err != nil {
			return fmt.Errorf("%w (set SIGNING_SECRET)", err)
		}
		token, err := signer.Sign(params)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s/v1/%s/image.jpg\n", strings.TrimRight(cfg.BaseURL, "/"), token)
		return nil
	},
}
