package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/siren/internal/catalog"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a demo instructor and courses",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

var demoCourses = []struct{ title, description string }{
	{"Hypermedia APIs", "Designing APIs clients can navigate"},
	{"Relational Modeling", ""},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, queries, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := requireMigrated(database); err != nil {
		return err
	}

	store := catalog.NewStore(queries, logger.Named("catalog"))
	in, err := store.CreateInstructor("Roy Fielding", "roy@example.com")
	if err != nil {
		return fmt.Errorf("seed instructor: %w", err)
	}
	for _, d := range demoCourses {
		c, err := store.CreateCourse(d.title, d.description, in.ID)
		if err != nil {
			return fmt.Errorf("seed course %q: %w", d.title, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "/courses/%s\n", c.ID)
	}
	return nil
}
