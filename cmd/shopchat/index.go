package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/shopchat/config"
	"github.com/mohammad-safakhou/shopchat/internal/catalog"
	"github.com/mohammad-safakhou/shopchat/internal/embedding"
	postgresindex "github.com/mohammad-safakhou/shopchat/internal/index/postgres"
	"github.com/mohammad-safakhou/shopchat/internal/retriever"
	"github.com/mohammad-safakhou/shopchat/internal/worker"
	"github.com/mohammad-safakhou/shopchat/provider"
)

func indexCMD() *cobra.Command {
	var cfgPath string
	var all bool
	var productIDs []int64

	var index = &cobra.Command{
		Use:   "index",
		Short: "Build or rebuild passage embeddings for catalog products",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(productIDs) == 0 {
				return fmt.Errorf("pass --all or --product-ids")
			}
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}

			ctx := context.Background()
			dsn, err := cfg.Storage.Postgres.DSN()
			if err != nil {
				return err
			}
			db, err := sql.Open("postgres", dsn)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("postgres connection failed: %w", err)
			}

			llm, err := provider.NewProvider(cfg.LLM)
			if err != nil {
				return err
			}
			embedder, err := embedding.New(llm, cfg.RAG.EmbeddingDimensions)
			if err != nil {
				return err
			}
			vindex, err := postgresindex.New(db, cfg.RAG.EmbeddingDimensions)
			if err != nil {
				return err
			}
			if err := vindex.EnsureReady(ctx); err != nil {
				return err
			}
			ret, err := retriever.New(embedder, vindex, nil, retriever.Config{
				ChunkSize:    cfg.RAG.ChunkSize,
				ChunkOverlap: cfg.RAG.ChunkOverlap,
				TopK:         cfg.RAG.TopK,
				MinScore:     cfg.RAG.MinScore,
			}, nil)
			if err != nil {
				return err
			}

			indexer := worker.NewIndexer(&catalog.Store{DB: db}, ret, nil)
			if all {
				n, err := indexer.ReindexAll(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("indexed %d products\n", n)
				return nil
			}
			if err := indexer.ReindexItems(ctx, productIDs); err != nil {
				return err
			}
			fmt.Printf("indexed %d products\n", len(productIDs))
			return nil
		},
	}
	index.Flags().BoolVar(&all, "all", false, "reindex every product")
	index.Flags().Int64SliceVar(&productIDs, "product-ids", nil, "specific product ids to reindex")
	index.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")

	return index
}
