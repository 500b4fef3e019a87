package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sharemeow/internal/database"
	"sharemeow/internal/models"
	"sharemeow/internal/store"
	"sharemeow/internal/templates"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [template=<Name> key=value...]",
	Short: "Show recently generated images",
	Long: `History lists the newest rows of the generation log. With parameters,
it shows the last generation of that image only. Requires POSTGRES_HOST.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		if len(args) > 0 {
			params, err := parseParams(args)
			if err != nil {
				return err
			}
			tmpl, err := templates.NewRegistry(templates.DefaultFactories()).Resolve(params)
			if err != nil {
				return &usageError{err}
			}
			key = tmpl.CacheKey()
		}
		if historyLimit <= 0 {
			return &usageError{fmt.Errorf("--limit must be positive, got %d", historyLimit)}
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.DBEnabled() {
			return errors.New("generation log is disabled: set POSTGRES_HOST")
		}
		db, err := database.Connect(cfg.DSN())
		if err != nil {
			return err
		}
		defer db.Close()

		s := store.NewImageLogStore(db)
		out := cmd.OutOrStdout()

		if key != "" {
			img, err := s.FindByCacheKey(cmd.Context(), key)
			if err != nil {
				return err
			}
			if img == nil {
				fmt.Fprintf(out, "%s has not been generated.\n", key)
				return nil
			}
			return writeHistory(out, []models.GeneratedImage{*img})
		}

		total, err := s.Count(cmd.Context())
		if err != nil {
			return err
		}
		images, err := s.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if err := writeHistory(out, images); err != nil {
			return err
		}
		fmt.Fprintf(out, "%d of %d generated images.\n", len(images), total)
		return nil
	},
}

// writeHistory prints one aligned row per image.
func writeHistory(w io.Writer, images []models.GeneratedImage) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tTEMPLATE\tSIZE\tRENDER\tURL")
	for _, img := range images {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dms\t%s\n",
			img.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			img.Template, img.HumanSize(), img.RenderMS, img.URL)
	}
	return tw.Flush()
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of rows to show")
}
