package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/shopchat/config"
)

type seedProduct struct {
	id          int64
	name        string
	imageURL    string
	price       float64
	category    string
	description string
	reviews     []string
	qna         [][2]string
}

var seedProducts = []seedProduct{
	{
		id:       1,
		name:     "AeroBuds Wireless Earphones",
		price:    59.90,
		category: "electronics",
		description: "True wireless earphones with active noise cancellation and touch controls. " +
			"One charge lasts 8 hours of playback. The charging case adds another 24 hours. " +
			"IPX4 splash resistance makes them safe for workouts, and Bluetooth 5.3 keeps the " +
			"connection stable up to 10 meters.",
		reviews: []string{
			"Battery easily gets me through a full workday of calls. Case is pocketable.",
			"Noise cancellation is decent for the price, though wind noise leaks in on a bike.",
		},
		qna: [][2]string{
			{"Do they support wireless charging?", "The case charges over USB-C only, no wireless charging."},
			{"Can I use one earbud at a time?", "Yes, each earbud pairs independently in mono mode."},
		},
	},
	{
		id:       2,
		name:     "CloudSoft Double Bedding Set",
		price:    120.00,
		category: "bedding",
		description: "Six-piece double bedding set: duvet cover, fitted sheet, and four pillowcases. " +
			"Woven from combed cotton sateen at a 300 thread count. Machine washable at 40 degrees; " +
			"colors are reactive-dyed so they survive repeated washing without fading.",
		reviews: []string{
			"Fabric feels cool in summer. Survived five washes with no pilling so far.",
			"The fitted sheet runs slightly small for a thick mattress, measure before buying.",
		},
		qna: [][2]string{
			{"Does the set include a duvet?", "No, it includes the duvet cover only, the duvet is sold separately."},
		},
	},
	{
		id:       3,
		name:     "Golden Harvest Saffron, 2g",
		price:    18.50,
		category: "food",
		description: "Grade one negin saffron threads, harvested this season and packed in an " +
			"airtight tin. Store away from light and humidity. Steep a few threads in warm water " +
			"for ten minutes before adding to rice or desserts.",
		reviews: []string{
			"Strong aroma and deep color, a little goes a long way.",
		},
		qna: [][2]string{
			{"What is the shelf life?", "Two years from the packaging date when stored sealed and away from light."},
		},
	},
}

func seedCMD() *cobra.Command {
	var cfgPath string

	var seed = &cobra.Command{
		Use:   "seed",
		Short: "Insert a small sample catalog for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			dsn, err := cfg.Storage.Postgres.DSN()
			if err != nil {
				return err
			}
			db, err := sql.Open("postgres", dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			for _, p := range seedProducts {
				if err := insertProduct(ctx, db, p); err != nil {
					return fmt.Errorf("seeding product %d: %w", p.id, err)
				}
			}
			fmt.Printf("seeded %d products\n", len(seedProducts))
			return nil
		},
	}
	seed.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")

	return seed
}

func insertProduct(ctx context.Context, db *sql.DB, p seedProduct) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO products (id, name, image_url, price, category, description)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING
`, p.id, p.name, p.imageURL, p.price, p.category, p.description)
	if err != nil {
		return err
	}
	for _, r := range p.reviews {
		if _, err := db.ExecContext(ctx, `
INSERT INTO product_reviews (product_id, review_text) VALUES ($1, $2)
`, p.id, r); err != nil {
			return err
		}
	}
	for _, q := range p.qna {
		if _, err := db.ExecContext(ctx, `
INSERT INTO product_qna (product_id, question, answer) VALUES ($1, $2, $3)
`, p.id, q[0], q[1]); err != nil {
			return err
		}
	}
	// Keep the id sequence ahead of explicit ids.
	_, err = db.ExecContext(ctx, `SELECT setval(pg_get_serial_sequence('products','id'), (SELECT MAX(id) FROM products))`)
	return err
}
