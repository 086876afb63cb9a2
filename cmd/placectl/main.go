package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/denisok6893-rgb/place-matching/internal/domain"
	"github.com/denisok6893-rgb/place-matching/internal/logging"
	"github.com/denisok6893-rgb/place-matching/internal/matching"
	"github.com/denisok6893-rgb/place-matching/internal/storage"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:           "placectl",
		Short:         "Seed, rank and score travel places",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(logging.Config{Level: logLevel, Format: "console", Output: cmd.ErrOrStderr()})
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	root.AddCommand(newSeedCmd())
	root.AddCommand(newRankCmd())
	root.AddCommand(newScoreCmd())
	return root
}

func newSeedCmd() *cobra.Command {
	var placesPath, dbPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load places from JSON into a SQLite database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			places, err := storage.LoadPlacesFromFile(placesPath)
			if err != nil {
				return err
			}
			store, err := storage.OpenSQLite(dbPath)
			if err != nil {
				return fmt.Errorf("open sqlite: %w", err)
			}
			defer store.Close()

			if err := store.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
			if err := store.UpsertMany(ctx, places); err != nil {
				return fmt.Errorf("upsert places: %w", err)
			}
			n, err := store.CountPlaces(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d places, %d in database\n", len(places), n)
			return nil
		},
	}
	cmd.Flags().StringVar(&placesPath, "places", "data/places.json", "places JSON file")
	cmd.Flags().StringVar(&dbPath, "db", "places.db", "SQLite database path")
	return cmd
}

// prefFlags registers the six preference sliders on cmd.
func prefFlags(cmd *cobra.Command, p *domain.UserPreferences) {
	*p = domain.DefaultPreferences()
	cmd.Flags().IntVar(&p.Budget, "budget", p.Budget, "budget target 0-100")
	cmd.Flags().IntVar(&p.Crowds, "crowds", p.Crowds, "crowd level target 0-100")
	cmd.Flags().IntVar(&p.TripLength, "trip-length", p.TripLength, "trip length target 0-100")
	cmd.Flags().IntVar(&p.Season, "season", p.Season, "season target 0-100")
	cmd.Flags().IntVar(&p.Transit, "transit", p.Transit, "transit target 0-100")
	cmd.Flags().IntVar(&p.Accessibility, "accessibility", p.Accessibility, "accessibility target 0-100")
}

func newRankCmd() *cobra.Command {
	var (
		placesPath, dbPath string
		search, tag, sort  string
		types              []string
		limit, offset      int
		prefs              domain.UserPreferences
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Filter, score and sort places",
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := domain.FilterState{Search: search, SelectedTag: tag, SortOrder: domain.ParseSortOrder(sort)}
			for _, raw := range types {
				t, err := domain.ParsePlaceType(raw)
				if err != nil {
					return err
				}
				fs.ActiveTypes = append(fs.ActiveTypes, t)
			}

			places, err := loadPlaces(placesPath, dbPath, fs.ActiveTypes)
			if err != nil {
				return err
			}

			engine := matching.NewEngine(matching.DefaultWeights(), matching.WithLogger(logging.Logger()))
			ranked := engine.FilterAndSort(places, fs, prefs)
			printRanked(cmd.OutOrStdout(), matching.Paginate(ranked, limit, offset), len(ranked))
			return nil
		},
	}
	cmd.Flags().StringVar(&placesPath, "places", "data/places.json", "places JSON file")
	cmd.Flags().StringVar(&dbPath, "db", "", "read places from this SQLite database instead of JSON")
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive search text")
	cmd.Flags().StringVar(&tag, "tag", "", "exact tag to require")
	cmd.Flags().StringVar(&sort, "sort", string(domain.SortMatch), "match, popular, cost-low or cost-high")
	cmd.Flags().StringSliceVar(&types, "type", nil, "place types to include (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", matching.DefaultPageSize, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	prefFlags(cmd, &prefs)
	return cmd
}

func newScoreCmd() *cobra.Command {
	var (
		attrs [6]float64
		prefs domain.UserPreferences
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one set of place attributes against preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := domain.Attrs(attrs[0], attrs[1], attrs[2], attrs[3], attrs[4], attrs[5])
			res := matching.ComputeMatch(a, prefs)

			out := cmd.OutOrStdout()
			m := res.AttributeMatches
			fmt.Fprintf(out, "budget\t%.1f\ncrowds\t%.1f\ntrip_length\t%.1f\nseason\t%.1f\ntransit\t%.1f\naccessibility\t%.1f\n",
				m.Budget, m.Crowds, m.TripLength, m.Season, m.Transit, m.Accessibility)
			fmt.Fprintf(out, "match_score\t%.2f\n", res.MatchScore)
			return nil
		},
	}
	cmd.Flags().Float64Var(&attrs[0], "cost", 0, "place cost 0-100")
	cmd.Flags().Float64Var(&attrs[1], "crowd-level", 0, "place crowd level 0-100")
	cmd.Flags().Float64Var(&attrs[2], "recommended-stay", 0, "place recommended stay 0-100")
	cmd.Flags().Float64Var(&attrs[3], "best-season", 0, "place best season 0-100")
	cmd.Flags().Float64Var(&attrs[4], "place-transit", 0, "place transit 0-100")
	cmd.Flags().Float64Var(&attrs[5], "place-accessibility", 0, "place accessibility 0-100")
	prefFlags(cmd, &prefs)
	return cmd
}

func loadPlaces(placesPath, dbPath string, types []domain.PlaceType) ([]domain.Place, error) {
	if dbPath == "" {
		return storage.LoadPlacesFromFile(placesPath)
	}
	store, err := storage.OpenSQLite(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer store.Close()
	return store.ListPlacesFiltered(context.Background(), storage.PlaceQuery{Types: types})
}

func printRanked(w io.Writer, items []domain.ScoredPlace, total int) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tNAME\tTYPE\tCOST\tCROWD\tMATCH\tTAGS")
	for i, it := range items {
		p := it.Place
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.0f\t%.0f\t%.1f\t%s\n",
			i+1, p.ID, p.Name, p.Type,
			p.Attributes.CostValue(), p.Attributes.CrowdLevelValue(),
			it.Score.MatchScore, strings.Join(p.Tags, ","))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d of %d places\n", len(items), total)
}
