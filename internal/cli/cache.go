package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sharemeow/internal/cache"
	"sharemeow/internal/templates"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the image URL cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge [template=<Name> key=value...]",
	Short: "Forget cached image URLs",
	Long: `Purge removes cached image URLs from Valkey so the next request renders
again. With parameters, only that image's entry is removed. Stored objects
are left in the bucket and are overwritten on the next render.

Running servers keep entries in their in-process cache for up to
CACHE_L1_TTL.`,
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

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
		if err != nil {
			return fmt.Errorf("connect valkey: %w", err)
		}
		defer client.Close()

		v := cache.NewValkey(client, cache.DefaultKeyPrefix)
		out := cmd.OutOrStdout()

		if key != "" {
			if err := v.Delete(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Fprintf(out, "Purged %s.\n", key)
			return nil
		}

		n, err := v.InvalidateAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Purged %d cached image URLs.\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
}
