// ABOUTME: Cache commands for the embedding cache
// ABOUTME: Shows entry counts and pushes the Charm replica to the cloud
package commands

import (
	"fmt"
	"strings"

	"github.com/harper/chapterize/internal/charm"
	"github.com/harper/chapterize/internal/storage"
	"github.com/harper/chapterize/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

// NewCacheCmd creates the cache command group
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and sync the embedding cache",
		Long: `Inspect the embedding cache selected by EMBEDDING_CACHE.

The sqlite backend keeps vectors in a local file under the XDG data
directory. The charm backend keeps them in Charm KV and syncs them
across devices linked to the same Charm account via SSH keys.`,
	}

	cmd.AddCommand(newCacheStatusCmd())
	cmd.AddCommand(newCacheSyncCmd())

	return cmd
}

func newCacheStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cache backend and entry count",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch strings.ToLower(cfg.EmbeddingCache) {
			case storage.BackendSQLite:
				path := cfg.EmbeddingCachePath
				if path == "" {
					path = sqlite.DefaultDBPath()
				}
				db, err := sqlite.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open cache: %w", err)
				}
				cache := sqlite.NewEmbeddingCache(db)
				defer cache.Close()

				n, err := cache.Count(cmd.Context(), cfg.EmbeddingModel)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Backend: sqlite\n")
				fmt.Fprintf(out, "Path: %s\n", path)
				fmt.Fprintf(out, "Model: %s\n", cfg.EmbeddingModel)
				fmt.Fprintf(out, "Entries: %d\n", n)

			case storage.BackendCharm:
				client, err := charm.NewClient(cfg.CacheOptions().Charm)
				if err != nil {
					return fmt.Errorf("failed to connect to Charm: %w", err)
				}
				defer client.Close()

				n, err := client.Count()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Backend: charm\n")
				fmt.Fprintf(out, "Host: %s\n", cfg.CharmHost)
				fmt.Fprintf(out, "Database: %s\n", cfg.CharmDBName)
				fmt.Fprintf(out, "Entries: %d\n", n)

			default:
				fmt.Fprintln(out, "Embedding cache disabled (set EMBEDDING_CACHE=sqlite or charm)")
			}
			return nil
		},
	}
}

func newCacheSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Force immediate sync with Charm cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if strings.ToLower(cfg.EmbeddingCache) != storage.BackendCharm {
				return fmt.Errorf("sync needs EMBEDDING_CACHE=charm, got %q", cfg.EmbeddingCache)
			}

			client, err := charm.NewClient(cfg.CacheOptions().Charm)
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}
			defer client.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Syncing...")
			if err := client.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sync complete")
			return nil
		},
	}
}
