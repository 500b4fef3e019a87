package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var flagGenerateJSON bool

var generateCmd = &cobra.Command{
	Use:   "generate template=<Name> [key=value...]",
	Short: "Generate an image and print its public URL",
	Long: `Generate renders the named template with the given parameters, uploads
the image and prints its URL. A parameter set that was generated before is
served from the cache without rendering.`,
	Example: `  sharemeow generate template=HelloWorld message="Hello, World"
  sharemeow generate template=CodeSnippet language=go code='fmt.Println("hi")'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(args)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		slog.SetDefault(newLogger(cfg, os.Stderr))

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		img, err := a.engine.NewImage(params)
		if err != nil {
			return &usageError{err}
		}
		url, err := img.GenerateAndStore(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagGenerateJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]string{"image_url": url, "cache_key": img.CacheKey()})
		}
		fmt.Fprintln(out, url)
		return nil
	},
}

func init() {
	generateCmd.Flags().BoolVar(&flagGenerateJSON, "json", false, "print the URL and cache key as JSON")
}
