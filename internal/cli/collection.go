package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recall-dev/recall/internal/config"
	"github.com/recall-dev/recall/internal/ui"
)

var collectionDescription string

// collectionCmd represents the collection parent command.
var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage document collections",
	Long: `Manage document collections.

A collection is a named group of documents that is searched as a unit.
Most commands create collections implicitly; use these subcommands to
inspect or remove them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// collectionCreateCmd creates an empty collection.
var collectionCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		st, manager, err := openManager(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		col, err := manager.CreateCollection(args[0], collectionDescription)
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		fmt.Printf("%s Created collection %s\n", ui.Success.Render("✓"), ui.Bold.Render(col.Name))
		return nil
	},
}

// collectionListCmd lists all collections.
var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all collections",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		st, manager, err := openManager(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		cols, err := manager.ListCollections()
		if err != nil {
			return fmt.Errorf("failed to list collections: %w", err)
		}

		if len(cols) == 0 {
			fmt.Println("No collections found.")
			fmt.Println(ui.Dim.Render("Add documents with 'recall add' to create one."))
			return nil
		}

		fmt.Println(ui.Header.Render(fmt.Sprintf("Collections (%d)", len(cols))))
		fmt.Println()

		for _, col := range cols {
			fmt.Println(ui.Bold.Render(col.Name))
			if col.Description != "" {
				fmt.Printf("  %s\n", col.Description)
			}
			fmt.Printf("  %s\n", ui.Dim.Render(fmt.Sprintf(
				"%d documents, %d chunks, updated %s",
				col.DocumentCount, col.TotalChunks, formatTime(col.UpdatedAt))))
			fmt.Println()
		}

		return nil
	},
}

// collectionDeleteCmd deletes a collection and all its documents.
var collectionDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a collection and all its documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()

		st, manager, err := openManager(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		col, err := manager.GetCollectionByName(args[0])
		if err != nil {
			return fmt.Errorf("collection %q not found", args[0])
		}

		fmt.Printf("Delete collection %s (%d documents)? [y/N] ", ui.Bold.Render(col.Name), col.DocumentCount)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Cancelled")
			return nil
		}

		if err := manager.DeleteCollection(col.ID); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}

		fmt.Printf("%s Deleted collection %s\n", ui.Success.Render("✓"), ui.Bold.Render(col.Name))
		return nil
	},
}

func init() {
	collectionCreateCmd.Flags().StringVarP(&collectionDescription, "description", "d", "", "collection description")

	collectionCmd.AddCommand(collectionCreateCmd)
	collectionCmd.AddCommand(collectionListCmd)
	collectionCmd.AddCommand(collectionDeleteCmd)
}
