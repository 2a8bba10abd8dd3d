package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"helpconnect/internal/dynamo"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/k0kubun/pp/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const adminScanPageSize = 100

var adminCommand = &cli.Command{
	Name:  "admin",
	Usage: "Operational commands against the live tables",
	Subcommands: []*cli.Command{
		{
			Name:   "view",
			Usage:  "Dump all items from the three tables to stdout",
			Action: adminView,
		},
		{
			Name:   "backup",
			Usage:  "Write all items from the three tables to a JSON file",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "out",
					Aliases: []string{"o"},
					Usage:   "Output file path",
					Value:   "backup.json",
				},
			},
			Action: adminBackup,
		},
		{
			Name:   "reset",
			Usage:  "Delete every item from the three tables",
			Action: adminReset,
		},
	},
}

// tableSpec names a table together with its key attributes, which a scan item
// must be reduced to before Delete.
type tableSpec struct {
	name string
	keys []string
}

func adminTables(ctx context.Context) (dynamo.API, []tableSpec, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	awsConfig, err := loadAWSConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	db := dynamo.NewClient(awsConfig)

	specs := []tableSpec{
		{name: config.HelpRequestsTable, keys: []string{"request_id"}},
		{name: config.OffersTable, keys: []string{"request_id", "offer_id"}},
		{name: config.SettingsTable, keys: []string{"user_id"}},
	}

	return db, specs, nil
}

func scanAll(ctx context.Context, db dynamo.API, table string) ([]dynamo.Item, error) {
	var items []dynamo.Item
	var startKey dynamo.Item

	for {
		page, next, err := db.Scan(ctx, table, adminScanPageSize, startKey)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}

		items = append(items, page...)

		if next == nil {
			return items, nil
		}
		startKey = next
	}
}

func decodeItems(items []dynamo.Item) ([]map[string]any, error) {
	decoded := make([]map[string]any, 0, len(items))
	for _, item := range items {
		var m map[string]any
		if err := attributevalue.UnmarshalMap(item, &m); err != nil {
			return nil, fmt.Errorf("decode item: %w", err)
		}
		decoded = append(decoded, m)
	}
	return decoded, nil
}

func adminView(c *cli.Context) error {
	ctx := context.Background()

	db, specs, err := adminTables(ctx)
	if err != nil {
		return err
	}

	for _, spec := range specs {
		items, err := scanAll(ctx, db, spec.name)
		if err != nil {
			return err
		}

		decoded, err := decodeItems(items)
		if err != nil {
			return err
		}

		fmt.Printf("== %s (%d items) ==\n", spec.name, len(decoded))
		for _, item := range decoded {
			pp.Println(item)
		}
	}

	return nil
}

func adminBackup(c *cli.Context) error {
	ctx := context.Background()

	db, specs, err := adminTables(ctx)
	if err != nil {
		return err
	}

	dump := make(map[string][]map[string]any, len(specs))
	for _, spec := range specs {
		items, err := scanAll(ctx, db, spec.name)
		if err != nil {
			return err
		}

		decoded, err := decodeItems(items)
		if err != nil {
			return err
		}

		dump[spec.name] = decoded
	}

	out := c.String("out")

	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(dump); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}

	logrus.WithField("file", out).Info("backup written")

	return nil
}

func adminReset(c *cli.Context) error {
	ctx := context.Background()

	db, specs, err := adminTables(ctx)
	if err != nil {
		return err
	}

	for _, spec := range specs {
		items, err := scanAll(ctx, db, spec.name)
		if err != nil {
			return err
		}

		for _, item := range items {
			key := dynamo.Item{}
			for _, attr := range spec.keys {
				key[attr] = item[attr]
			}

			if err := db.Delete(ctx, spec.name, key); err != nil {
				return fmt.Errorf("delete from %s: %w", spec.name, err)
			}
		}

		logrus.WithFields(logrus.Fields{
			"table":   spec.name,
			"deleted": len(items),
		}).Info("table reset")
	}

	return nil
}
